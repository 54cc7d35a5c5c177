package beans

import "github.com/gocrud/beans/container"

// New 创建 Bean 工厂
// 这是使用容器的入口点
func New(opts ...container.Option) *container.BeanFactory {
	return container.New(opts...)
}

// NewDefinition 创建指向 *T 的 Bean 定义
func NewDefinition[T any]() *container.BeanDefinition {
	return container.NewBeanDefinition[T]()
}
