package container

import (
	"fmt"
	"reflect"
)

// InstantiationStrategy 产生原始的、未初始化的实例。
// 只负责创建对象，不设置属性、不运行生命周期钩子。
// 任何反射/构造失败都包装为 InstantiationError。
type InstantiationStrategy interface {
	// Instantiate 通过隐式无参构造（reflect.New）创建实例。
	Instantiate(def *BeanDefinition, beanName string) (any, error)

	// InstantiateWithConstructor 调用候选构造函数 ctor（函数值）并传入 args。
	InstantiateWithConstructor(def *BeanDefinition, beanName string, ctor reflect.Value, args []any) (any, error)

	// InstantiateWithFactoryMethod 调用工厂方法。factoryInstance 为 nil 时
	// method 是静态工厂函数值，否则是 factoryInstance 上的已绑定方法值。
	InstantiateWithFactoryMethod(def *BeanDefinition, beanName string, factoryInstance any, method reflect.Value, args []any) (any, error)
}

// defaultInstantiationStrategy 基于 reflect 的默认实例化策略。
type defaultInstantiationStrategy struct{}

func (s defaultInstantiationStrategy) Instantiate(def *BeanDefinition, beanName string) (any, error) {
	if def.Type == nil {
		return nil, &InstantiationError{BeanName: beanName,
			Cause: fmt.Errorf("定义没有实现类型，无法无参实例化")}
	}
	return reflect.New(def.Type.Elem()).Interface(), nil
}

func (s defaultInstantiationStrategy) InstantiateWithConstructor(def *BeanDefinition, beanName string, ctor reflect.Value, args []any) (any, error) {
	instance, err := callFunc(ctor, args)
	if err != nil {
		return nil, &InstantiationError{BeanName: beanName, Type: def.Type, Cause: err}
	}
	return instance, nil
}

func (s defaultInstantiationStrategy) InstantiateWithFactoryMethod(def *BeanDefinition, beanName string, factoryInstance any, method reflect.Value, args []any) (any, error) {
	instance, err := callFunc(method, args)
	if err != nil {
		return nil, &InstantiationError{BeanName: beanName, Type: def.Type, Cause: err}
	}
	return instance, nil
}

// callFunc 调用函数值 fn，处理 (T) 与 (T, error) 两种返回形式，
// 并兜底恢复反射调用的 panic（参数类型不符等）。
func callFunc(fn reflect.Value, args []any) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("反射调用 panic: %v", r)
		}
	}()

	fnType := fn.Type()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fnType.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}

	results := fn.Call(in)
	if len(results) == 0 {
		return nil, fmt.Errorf("构造/工厂函数没有返回值")
	}
	if len(results) > 1 {
		last := results[len(results)-1]
		if last.Type().Implements(errorType) && !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	first := results[0]
	if (first.Kind() == reflect.Ptr || first.Kind() == reflect.Interface) && first.IsNil() {
		return nil, fmt.Errorf("构造/工厂函数返回了 nil 实例")
	}
	return first.Interface(), nil
}
