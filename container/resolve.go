package container

import (
	"fmt"
	"reflect"

	"github.com/gocrud/beans/logging"
)

// resolveValue 把声明值解析为运行时值。对声明值变体做穷尽匹配：
// 内部 Bean 定义、命名引用、序列/集合/映射递归解析，其余视为字面量原样返回。
// argName 标识值所属的属性/参数，嵌套解析追加下标或键形成诊断路径。
func (f *BeanFactory) resolveValue(beanName string, def *BeanDefinition, argName string, value any) (any, error) {
	switch v := value.(type) {
	case BeanDefinitionValue:
		return f.resolveInnerBean(beanName, v.Name, v.Definition)
	case *BeanDefinition:
		return f.resolveInnerBean(beanName, "", v)
	case RuntimeBeanReference:
		return f.resolveReference(beanName, def, argName, v)
	case ManagedList:
		resolved := make([]any, len(v))
		for i, elem := range v {
			r, err := f.resolveValue(beanName, def, fmt.Sprintf("%s[%d]", argName, i), elem)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil
	case ManagedSet:
		// 按出现顺序去重
		resolved := make([]any, 0, len(v))
		seen := make(map[any]bool, len(v))
		for i, elem := range v {
			r, err := f.resolveValue(beanName, def, fmt.Sprintf("%s[%d]", argName, i), elem)
			if err != nil {
				return nil, err
			}
			if comparable := isComparableValue(r); comparable {
				if seen[r] {
					continue
				}
				seen[r] = true
			}
			resolved = append(resolved, r)
		}
		return resolved, nil
	case ManagedMap:
		resolved := make(map[any]any, len(v))
		for _, entry := range v {
			r, err := f.resolveValue(beanName, def, fmt.Sprintf("%s[%v]", argName, entry.Key), entry.Value)
			if err != nil {
				return nil, err
			}
			resolved[entry.Key] = r
		}
		return resolved, nil
	default:
		// 字面量，无需解析
		return value, nil
	}
}

// resolveInnerBean 解析内嵌的匿名 Bean 定义。
// 内部 Bean 是匿名原型：不进入单例缓存，每次解析新建实例；
// 为销毁排序注册一条"外部 Bean 依赖内部 Bean"的边。
func (f *BeanFactory) resolveInnerBean(beanName, innerName string, innerDef *BeanDefinition) (any, error) {
	if innerName == "" {
		innerName = "(内部 Bean)"
	}
	f.logger.Debug("解析内部 Bean 定义",
		logging.Field{Key: "bean", Value: beanName},
		logging.Field{Key: "inner", Value: innerName})

	if err := innerDef.Validate(); err != nil {
		return nil, newBeanCreationError(beanName,
			fmt.Sprintf("内部 Bean %q 的定义无效", innerName), err)
	}
	instance, err := f.createBean(innerName, innerDef, false)
	if err != nil {
		return nil, newBeanCreationError(beanName,
			fmt.Sprintf("内部 Bean %q 构造失败", innerName), err)
	}
	if innerDef.Singleton() {
		f.singletons.RegisterDependent(innerName, beanName)
	}
	return instance, nil
}

// resolveReference 解析对另一个 Bean 的命名引用。
func (f *BeanFactory) resolveReference(beanName string, def *BeanDefinition, argName string, ref RuntimeBeanReference) (any, error) {
	f.logger.Debug("解析 Bean 引用",
		logging.Field{Key: "bean", Value: beanName},
		logging.Field{Key: "property", Value: argName},
		logging.Field{Key: "target", Value: ref.Name})

	if ref.ToParent {
		if f.parent == nil {
			return nil, &BeanCreationError{BeanName: beanName,
				Stage: fmt.Sprintf("无法解析属性 %q 对父工厂 Bean %q 的引用：没有父工厂", argName, ref.Name)}
		}
		instance, err := f.parent.GetBean(ref.Name)
		if err != nil {
			return nil, newBeanCreationError(beanName,
				fmt.Sprintf("解析属性 %q 对父工厂 Bean %q 的引用失败", argName, ref.Name), err)
		}
		return instance, nil
	}

	if def.Singleton() {
		f.singletons.RegisterDependent(ref.Name, beanName)
	}
	instance, err := f.GetBean(ref.Name)
	if err != nil {
		return nil, newBeanCreationError(beanName,
			fmt.Sprintf("解析属性 %q 对 Bean %q 的引用失败", argName, ref.Name), err)
	}
	return instance, nil
}

// isComparableValue 报告 v 是否可用作 map 键（集合去重用）。
func isComparableValue(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
