package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/beans/container"
)

type endpoint struct {
	host string
	port int
	tag  string
}

func TestConstructorIndexedArgs(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func(host string, port int) *endpoint { return &endpoint{host: host, port: port} },
	}
	def.ConstructorArgs.AddIndexed(0, "localhost").AddIndexed(1, 6379)
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	e := factory.MustGetBean("endpoint").(*endpoint)
	assert.Equal(t, "localhost", e.host)
	assert.Equal(t, 6379, e.port)
}

func TestConstructorGenericArgsMatchedByType(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func(host string, port int) *endpoint { return &endpoint{host: host, port: port} },
	}
	// 泛化参数按类型兼容性对号入座，与书写顺序无关
	def.ConstructorArgs.AddGeneric(8080).AddGeneric("example.com")
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	e := factory.MustGetBean("endpoint").(*endpoint)
	assert.Equal(t, "example.com", e.host)
	assert.Equal(t, 8080, e.port)
}

// 贪婪原则：参数最多且能全部满足的候选者胜出。
func TestConstructorGreedySelection(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func(host string) *endpoint { return &endpoint{host: host, tag: "narrow"} },
		func(host string, port int) *endpoint { return &endpoint{host: host, port: port, tag: "wide"} },
	}
	def.ConstructorArgs.AddGeneric("h").AddGeneric(1)
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	e := factory.MustGetBean("endpoint").(*endpoint)
	assert.Equal(t, "wide", e.tag)
}

// 同参数量时按类型差异权重打分，精确匹配优于需要转换的匹配。
func TestConstructorWeightPrefersExactMatch(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func(port float64) *endpoint { return &endpoint{port: int(port), tag: "converted"} },
		func(port int) *endpoint { return &endpoint{port: port, tag: "exact"} },
	}
	def.ConstructorArgs.AddGeneric(42)
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	e := factory.MustGetBean("endpoint").(*endpoint)
	assert.Equal(t, "exact", e.tag)
	assert.Equal(t, 42, e.port)
}

// 权重打平时保留先遇到的候选者。
func TestConstructorTieKeepsFirst(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func(port int) *endpoint { return &endpoint{port: port, tag: "first"} },
		func(port int) *endpoint { return &endpoint{port: port, tag: "second"} },
	}
	def.ConstructorArgs.AddGeneric(7)
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	assert.Equal(t, "first", factory.MustGetBean("endpoint").(*endpoint).tag)
}

func TestConstructorNoMatch(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func(host string, port int) *endpoint { return &endpoint{host: host, port: port} },
	}
	def.ConstructorArgs.AddGeneric("only-host")
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	_, err := factory.GetBean("endpoint")
	var creation *container.BeanCreationError
	require.ErrorAs(t, err, &creation)
}

type registryClient struct {
	Endpoint *endpoint
	label    string
}

// 构造注入：声明参数之外的空位从容器按类型补齐。
func TestConstructorAutowiresMissingSlots(t *testing.T) {
	factory := container.New()

	require.NoError(t, factory.RegisterBeanDefinition("endpoint", container.NewBeanDefinition[endpoint]()))

	def := container.NewBeanDefinition[registryClient]()
	def.Constructors = []any{
		func(label string, ep *endpoint) *registryClient { return &registryClient{label: label, Endpoint: ep} },
	}
	def.ConstructorArgs.AddGeneric("primary")
	def.Autowire = container.AutowireConstructor
	require.NoError(t, factory.RegisterBeanDefinition("client", def))

	c := factory.MustGetBean("client").(*registryClient)
	assert.Equal(t, "primary", c.label)
	assert.Same(t, factory.MustGetBean("endpoint"), c.Endpoint)
}

// 构造参数中的 Ref 在匹配前解析为容器内的活实例。
func TestConstructorArgBeanReference(t *testing.T) {
	factory := container.New()

	require.NoError(t, factory.RegisterBeanDefinition("endpoint", container.NewBeanDefinition[endpoint]()))

	def := container.NewBeanDefinition[registryClient]()
	def.Constructors = []any{
		func(label string, ep *endpoint) *registryClient { return &registryClient{label: label, Endpoint: ep} },
	}
	def.ConstructorArgs.AddGeneric("k1").AddGeneric(container.Ref("endpoint"))
	require.NoError(t, factory.RegisterBeanDefinition("client", def))

	c := factory.MustGetBean("client").(*registryClient)
	assert.Equal(t, "k1", c.label)
	assert.Same(t, factory.MustGetBean("endpoint"), c.Endpoint)
}

func TestConstructorReturningError(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func() (*endpoint, error) { return nil, errors.New("拨号失败") },
	}
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	_, err := factory.GetBean("endpoint")
	require.Error(t, err)
	var creation *container.BeanCreationError
	require.ErrorAs(t, err, &creation)
	assert.Equal(t, "endpoint", creation.BeanName)
}

func TestFactoryFnInstantiation(t *testing.T) {
	factory := container.New()

	def := container.NewFactoryFnDefinition(func(host string) *endpoint {
		return &endpoint{host: host, tag: "factory"}
	})
	def.ConstructorArgs.AddGeneric("built")
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	e := factory.MustGetBean("endpoint").(*endpoint)
	assert.Equal(t, "built", e.host)
	assert.Equal(t, "factory", e.tag)
}

type endpointFactory struct {
	prefix string
}

func (f *endpointFactory) NewEndpoint(name string, port int) *endpoint {
	return &endpoint{host: f.prefix + name, port: port}
}

func TestInstanceFactoryMethod(t *testing.T) {
	factory := container.New()

	require.NoError(t, factory.RegisterBeanDefinition("endpointFactory", container.NewBeanDefinition[endpointFactory]()))

	def := container.NewFactoryBeanDefinition("endpointFactory", "NewEndpoint")
	def.ConstructorArgs.AddGeneric("cache").AddGeneric(6379)
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	e := factory.MustGetBean("endpoint").(*endpoint)
	assert.Equal(t, "cache", e.host)
	assert.Equal(t, 6379, e.port)
}

// 静态工厂函数缺省的参数槽位走按类型自动装配。
type portHolder struct{ Port int }

func TestFactoryFnAutowiresArgs(t *testing.T) {
	factory := container.New()

	hDef := container.NewBeanDefinition[portHolder]()
	hDef.Properties.Add("Port", 9000)
	require.NoError(t, factory.RegisterBeanDefinition("holder", hDef))

	def := container.NewFactoryFnDefinition(func(h *portHolder) *endpoint {
		return &endpoint{port: h.Port, tag: "wrapped"}
	})
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	e := factory.MustGetBean("endpoint").(*endpoint)
	assert.Equal(t, 9000, e.port)
	assert.Equal(t, "wrapped", e.tag)
}

func TestFactoryMethodArgCountMismatch(t *testing.T) {
	factory := container.New()
	require.NoError(t, factory.RegisterBeanDefinition("endpointFactory", container.NewBeanDefinition[endpointFactory]()))

	def := container.NewFactoryBeanDefinition("endpointFactory", "NewEndpoint")
	// 声明 1 个参数但方法需要 2 个：实例工厂方法要求声明数量精确匹配
	def.ConstructorArgs.AddIndexed(0, "cache")
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	_, err := factory.GetBean("endpoint")
	require.Error(t, err)
}

func TestIndexedArgTypeMismatch(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[endpoint]()
	def.Constructors = []any{
		func(port int) *endpoint { return &endpoint{port: port} },
	}
	def.ConstructorArgs.AddIndexed(0, struct{ X int }{1})
	require.NoError(t, factory.RegisterBeanDefinition("endpoint", def))

	_, err := factory.GetBean("endpoint")
	require.Error(t, err)
}
