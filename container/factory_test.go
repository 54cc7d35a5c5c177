package container_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/beans/container"
)

type greeter struct {
	Message string
	Times   int
}

type dependent struct {
	Greeter *greeter
}

func TestGetBeanDefaultInstantiation(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[greeter]()
	def.Properties.Add("Message", "你好").Add("Times", 3)
	require.NoError(t, factory.RegisterBeanDefinition("greeter", def))

	bean, err := factory.GetBean("greeter")
	require.NoError(t, err)

	g := bean.(*greeter)
	assert.Equal(t, "你好", g.Message)
	assert.Equal(t, 3, g.Times)
}

func TestSingletonIdempotent(t *testing.T) {
	factory := container.New()
	require.NoError(t, factory.RegisterBeanDefinition("greeter", container.NewBeanDefinition[greeter]()))

	first := factory.MustGetBean("greeter")
	second := factory.MustGetBean("greeter")
	assert.Same(t, first, second)
}

func TestPrototypeScope(t *testing.T) {
	factory := container.New()
	def := container.NewBeanDefinition[greeter]()
	def.Scope = container.ScopePrototype
	require.NoError(t, factory.RegisterBeanDefinition("greeter", def))

	first := factory.MustGetBean("greeter")
	second := factory.MustGetBean("greeter")
	assert.NotSame(t, first, second)
}

func TestGetBeanUnknownName(t *testing.T) {
	factory := container.New()

	_, err := factory.GetBean("ghost")
	var notFound *container.NoSuchBeanDefinitionError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Name)
}

func TestMustGetBeanPanics(t *testing.T) {
	factory := container.New()
	assert.Panics(t, func() { factory.MustGetBean("ghost") })
}

func TestRegisterDuplicateDefinition(t *testing.T) {
	factory := container.New()
	require.NoError(t, factory.RegisterBeanDefinition("greeter", container.NewBeanDefinition[greeter]()))

	err := factory.RegisterBeanDefinition("greeter", container.NewBeanDefinition[greeter]())
	require.Error(t, err)
}

func TestRegisterSingletonInstance(t *testing.T) {
	factory := container.New()
	instance := &greeter{Message: "manual"}
	require.NoError(t, factory.RegisterSingleton("greeter", instance))

	assert.Same(t, instance, factory.MustGetBean("greeter"))
	assert.True(t, factory.ContainsBean("greeter"))
	require.Error(t, factory.RegisterSingleton("greeter", &greeter{}))
}

// 单例之间的属性循环引用通过急切缓存化解：双方都能拿到对方的最终实例。
type pingBean struct {
	Pong *pongBean
}

type pongBean struct {
	Ping *pingBean
}

func TestCircularSingletonReferences(t *testing.T) {
	factory := container.New()

	pingDef := container.NewBeanDefinition[pingBean]()
	pingDef.Properties.Add("Pong", container.Ref("pong"))
	require.NoError(t, factory.RegisterBeanDefinition("ping", pingDef))

	pongDef := container.NewBeanDefinition[pongBean]()
	pongDef.Properties.Add("Ping", container.Ref("ping"))
	require.NoError(t, factory.RegisterBeanDefinition("pong", pongDef))

	bean, err := factory.GetBean("ping")
	require.NoError(t, err)

	ping := bean.(*pingBean)
	require.NotNil(t, ping.Pong)
	assert.Same(t, ping, ping.Pong.Ping)
	assert.Same(t, factory.MustGetBean("pong"), ping.Pong)
}

// 构造参数循环无法通过急切缓存化解，必须立即失败而不是无限递归。
type ctorCycleA struct{ b *ctorCycleB }

type ctorCycleB struct{ a *ctorCycleA }

func TestConstructorCycleFailsFast(t *testing.T) {
	factory := container.New()

	aDef := container.NewBeanDefinition[ctorCycleA]()
	aDef.Constructors = []any{func(b *ctorCycleB) *ctorCycleA { return &ctorCycleA{b: b} }}
	aDef.Autowire = container.AutowireConstructor
	require.NoError(t, factory.RegisterBeanDefinition("cycleA", aDef))

	bDef := container.NewBeanDefinition[ctorCycleB]()
	bDef.Constructors = []any{func(a *ctorCycleA) *ctorCycleB { return &ctorCycleB{a: a} }}
	bDef.Autowire = container.AutowireConstructor
	require.NoError(t, factory.RegisterBeanDefinition("cycleB", bDef))

	_, err := factory.GetBean("cycleA")
	var creation *container.BeanCreationError
	require.ErrorAs(t, err, &creation)
}

func TestDependsOnCycleFailsFast(t *testing.T) {
	factory := container.New()

	aDef := container.NewBeanDefinition[greeter]()
	aDef.DependsOn = []string{"depB"}
	require.NoError(t, factory.RegisterBeanDefinition("depA", aDef))

	bDef := container.NewBeanDefinition[greeter]()
	bDef.DependsOn = []string{"depA"}
	require.NoError(t, factory.RegisterBeanDefinition("depB", bDef))

	_, err := factory.GetBean("depA")
	require.Error(t, err)
}

// 生命周期回调与自定义初始化方法。
type lifecycleBean struct {
	Label string

	events []string
}

func (b *lifecycleBean) AfterPropertiesSet() error {
	b.events = append(b.events, "afterPropertiesSet")
	return nil
}

func (b *lifecycleBean) Setup() {
	b.events = append(b.events, "setup")
}

func (b *lifecycleBean) SetBeanName(name string) {
	b.events = append(b.events, "name:"+name)
}

func (b *lifecycleBean) SetBeanFactory(factory *container.BeanFactory) {
	b.events = append(b.events, "factory")
}

func TestLifecycleCallbackOrder(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[lifecycleBean]()
	def.Properties.Add("Label", "x")
	def.InitMethod = "Setup"
	require.NoError(t, factory.RegisterBeanDefinition("lifecycle", def))

	bean := factory.MustGetBean("lifecycle").(*lifecycleBean)
	assert.Equal(t, []string{"name:lifecycle", "factory", "afterPropertiesSet", "setup"}, bean.events)
}

type failingInitBean struct{}

func (b *failingInitBean) AfterPropertiesSet() error {
	return errors.New("初始化失败")
}

func TestInitFailureEvictsEagerCache(t *testing.T) {
	factory := container.New()
	require.NoError(t, factory.RegisterBeanDefinition("failing", container.NewBeanDefinition[failingInitBean]()))

	_, err := factory.GetBean("failing")
	var creation *container.BeanCreationError
	require.ErrorAs(t, err, &creation)
	assert.Equal(t, "failing", creation.BeanName)

	// 急切缓存的残缺实例必须被驱逐：重复请求仍然失败，而不是返回半成品
	_, err = factory.GetBean("failing")
	require.ErrorAs(t, err, &creation)
}

func TestInitMethodMissing(t *testing.T) {
	factory := container.New()
	def := container.NewBeanDefinition[greeter]()
	def.InitMethod = "NoSuchMethod"
	require.NoError(t, factory.RegisterBeanDefinition("greeter", def))

	_, err := factory.GetBean("greeter")
	require.Error(t, err)
}

// 销毁顺序：依赖者先于被依赖者销毁。
type tracingDisposable struct {
	Name  string
	Dep   *tracingDisposable
	trace *[]string
}

func (d *tracingDisposable) Destroy() {
	*d.trace = append(*d.trace, d.Name)
}

func TestDestroyDependentsFirst(t *testing.T) {
	factory := container.New()
	var trace []string

	depDef := container.NewBeanDefinition[tracingDisposable]()
	depDef.Properties.Add("Name", "storage")
	require.NoError(t, factory.RegisterBeanDefinition("storage", depDef))

	userDef := container.NewBeanDefinition[tracingDisposable]()
	userDef.Properties.Add("Name", "service").Add("Dep", container.Ref("storage"))
	require.NoError(t, factory.RegisterBeanDefinition("service", userDef))

	for _, name := range []string{"storage", "service"} {
		factory.MustGetBean(name).(*tracingDisposable).trace = &trace
	}

	factory.DestroySingletons()
	assert.Equal(t, []string{"service", "storage"}, trace)
}

type closableBean struct {
	closed *bool
}

func (b *closableBean) Shutdown() {
	*b.closed = true
}

func TestCustomDestroyMethod(t *testing.T) {
	factory := container.New()
	closed := false

	def := container.NewBeanDefinition[closableBean]()
	def.DestroyMethod = "Shutdown"
	require.NoError(t, factory.RegisterBeanDefinition("closable", def))

	factory.MustGetBean("closable").(*closableBean).closed = &closed
	factory.DestroySingletons()
	assert.True(t, closed)
}

func TestParentFactoryFallback(t *testing.T) {
	parent := container.New()
	require.NoError(t, parent.RegisterSingleton("shared", &greeter{Message: "parent"}))

	child := container.New(container.WithParent(parent))
	bean, err := child.GetBean("shared")
	require.NoError(t, err)
	assert.Equal(t, "parent", bean.(*greeter).Message)
	assert.True(t, child.ContainsBean("shared"))
}

func TestParentRefBypassesLocalShadow(t *testing.T) {
	parent := container.New()
	require.NoError(t, parent.RegisterSingleton("greeter", &greeter{Message: "parent"}))

	child := container.New(container.WithParent(parent))
	localDef := container.NewBeanDefinition[greeter]()
	localDef.Properties.Add("Message", "child")
	require.NoError(t, child.RegisterBeanDefinition("greeter", localDef))

	depLocal := container.NewBeanDefinition[dependent]()
	depLocal.Properties.Add("Greeter", container.Ref("greeter"))
	require.NoError(t, child.RegisterBeanDefinition("usesLocal", depLocal))

	depParent := container.NewBeanDefinition[dependent]()
	depParent.Properties.Add("Greeter", container.ParentRef("greeter"))
	require.NoError(t, child.RegisterBeanDefinition("usesParent", depParent))

	assert.Equal(t, "child", child.MustGetBean("usesLocal").(*dependent).Greeter.Message)
	assert.Equal(t, "parent", child.MustGetBean("usesParent").(*dependent).Greeter.Message)
}

func TestParentRefWithoutParent(t *testing.T) {
	factory := container.New()
	def := container.NewBeanDefinition[dependent]()
	def.Properties.Add("Greeter", container.ParentRef("greeter"))
	require.NoError(t, factory.RegisterBeanDefinition("orphan", def))

	_, err := factory.GetBean("orphan")
	var creation *container.BeanCreationError
	require.ErrorAs(t, err, &creation)
}

func TestBeanDefinitionNamesSorted(t *testing.T) {
	factory := container.New()
	for _, name := range []string{"zebra", "alpha", "mango"} {
		require.NoError(t, factory.RegisterBeanDefinition(name, container.NewBeanDefinition[greeter]()))
	}
	assert.Equal(t, []string{"alpha", "mango", "zebra"}, factory.BeanDefinitionNames())
}

func TestConcurrentGetBean(t *testing.T) {
	factory := container.New()
	require.NoError(t, factory.RegisterBeanDefinition("greeter", container.NewBeanDefinition[greeter]()))

	results := make(chan any, 16)
	for i := 0; i < 16; i++ {
		go func() {
			bean, err := factory.GetBean("greeter")
			if err != nil {
				results <- err
				return
			}
			results <- bean
		}()
	}

	first := <-results
	require.IsType(t, &greeter{}, first)
	for i := 1; i < 16; i++ {
		assert.Same(t, first, <-results, fmt.Sprintf("request %d returned a different instance", i))
	}
}
