package container

import (
	"errors"
	"fmt"
	"reflect"
)

// NoSuchBeanDefinitionError 请求的 Bean 定义不存在。
type NoSuchBeanDefinitionError struct {
	Name string
}

func (e *NoSuchBeanDefinitionError) Error() string {
	return fmt.Sprintf("beans: 未找到名为 %q 的 Bean 定义", e.Name)
}

// InstantiationError 原始实例化（构造函数或工厂调用）失败。
// 对当前的 GetBean 调用始终是致命的。
type InstantiationError struct {
	BeanName string
	Type     reflect.Type
	Cause    error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("beans: 实例化 Bean %q (%v) 失败: %v", e.BeanName, e.Type, e.Cause)
}

func (e *InstantiationError) Unwrap() error {
	return e.Cause
}

// UnsatisfiedDependencyError 某个候选（构造函数重载、自动装配目标）无法被满足。
// 在重载搜索循环中按候选吞掉并继续；当没有候选剩余时才是致命的。
type UnsatisfiedDependencyError struct {
	BeanName     string
	Property     string       // 属性注入时的属性名（与 ArgIndex 二选一）
	ArgIndex     int          // 构造参数注入时的参数下标，-1 表示不适用
	RequiredType reflect.Type // 需要的参数/属性类型
	Reason       string
	Cause        error
}

func (e *UnsatisfiedDependencyError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("beans: Bean %q 的属性 %q 依赖无法满足: %s", e.BeanName, e.Property, e.Reason)
	}
	return fmt.Sprintf("beans: Bean %q 的第 %d 个构造参数 (%v) 依赖无法满足: %s",
		e.BeanName, e.ArgIndex, e.RequiredType, e.Reason)
}

func (e *UnsatisfiedDependencyError) Unwrap() error {
	return e.Cause
}

// BeanCreationError 原始实例化之后任何阶段（属性填充、生命周期钩子、嵌套解析）
// 失败的统一包装。携带所属 Bean 名称与阶段描述；
// 始终致命，并在适用时触发急切缓存的驱逐。
type BeanCreationError struct {
	BeanName string
	Stage    string
	Cause    error
}

func (e *BeanCreationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("beans: 创建 Bean %q 失败 (%s): %v", e.BeanName, e.Stage, e.Cause)
	}
	return fmt.Sprintf("beans: 创建 Bean %q 失败 (%s)", e.BeanName, e.Stage)
}

func (e *BeanCreationError) Unwrap() error {
	return e.Cause
}

// newBeanCreationError 保留已是 BeanCreationError 的错误，避免重复包装同一 Bean。
func newBeanCreationError(beanName, stage string, cause error) error {
	var bce *BeanCreationError
	if errors.As(cause, &bce) && bce.BeanName == beanName {
		return cause
	}
	return &BeanCreationError{BeanName: beanName, Stage: stage, Cause: cause}
}
