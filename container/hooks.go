package container

import "reflect"

// BeanPostProcessor 在 Bean 初始化前后介入的扩展钩子。
// 钩子按注册顺序依次调用，每个钩子返回的实例会替换传给下一个钩子的实例；
// 返回 nil 视为钩子行为错误，构造以 BeanCreationError 失败。
type BeanPostProcessor interface {
	// BeforeInitialization 在初始化回调（AfterPropertiesSet、自定义 init 方法）之前调用。
	BeforeInitialization(instance any, beanName string) (any, error)

	// AfterInitialization 在全部初始化回调之后调用。
	AfterInitialization(instance any, beanName string) (any, error)
}

// InstantiationAwareBeanPostProcessor 额外在原始实例化之前介入的钩子。
// BeforeInstantiation 返回非 nil 替代对象时，该对象被原样使用，
// 跳过实例化、属性填充与全部后续生命周期阶段（用于代理）。
type InstantiationAwareBeanPostProcessor interface {
	BeanPostProcessor

	BeforeInstantiation(beanType reflect.Type, beanName string) (any, error)
}

// InitializingBean 属性填充完成后需要回调的 Bean 实现此接口。
type InitializingBean interface {
	AfterPropertiesSet() error
}

// DisposableBean 工厂销毁时需要回调的单例 Bean 实现此接口。
type DisposableBean interface {
	Destroy()
}

// BeanNameAware Bean 需要知道自己在工厂中的名称时实现此接口。
type BeanNameAware interface {
	SetBeanName(name string)
}

// BeanFactoryAware Bean 需要持有所属工厂时实现此接口。
type BeanFactoryAware interface {
	SetBeanFactory(factory *BeanFactory)
}
