package container

import (
	"bytes"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/gocrud/beans/logging"
)

// BeanProvider 按名称提供 Bean 的最小能力，父工厂以此接入。
type BeanProvider interface {
	GetBean(name string) (any, error)
	ContainsBean(name string) bool
}

// TypeMatcher 按类型查找候选 Bean 的能力，自动装配（按类型、构造参数）依赖它。
// 返回 name -> 实例 的映射；没有匹配时返回空映射。
// 默认由工厂自身实现（扫描已注册的定义与手工单例）；
// 外层注册表可注入自己的实现来扩大匹配范围。
type TypeMatcher interface {
	FindMatchingBeans(requiredType reflect.Type) (map[string]any, error)
}

// BeanFactory 声明式 Bean 容器：持有 Bean 定义，按需解析并构造对象图，
// 管理单例缓存与生命周期。对不同名称的并发 GetBean 是安全的，
// 彼此只在单例注册表与转换器临界区上短暂竞争。
type BeanFactory struct {
	mu          sync.RWMutex
	definitions map[string]*BeanDefinition

	singletons *singletonRegistry
	converters *converterRegistry

	// creating 正在构造中的 Bean。同一 goroutine 再次命中而单例缓存未命中，
	// 说明存在急切缓存无法化解的循环（构造参数循环、dependsOn 循环），
	// 立即报错而不是无限递归；其他 goroutine 命中则等待构造完成后重试。
	creatingMu sync.Mutex
	creating   map[string]*creationGuard

	parent         BeanProvider
	matcher        TypeMatcher
	strategy       InstantiationStrategy
	postProcessors []BeanPostProcessor
	ignoredTypes   map[reflect.Type]bool
	logger         logging.Logger
}

// Option 配置 BeanFactory。
type Option func(*BeanFactory)

// WithParent 设置父工厂，用于 to-parent 引用与本地未命中时的查找回退。
func WithParent(parent BeanProvider) Option {
	return func(f *BeanFactory) { f.parent = parent }
}

// WithLogger 设置日志记录器。
func WithLogger(logger logging.Logger) Option {
	return func(f *BeanFactory) { f.logger = logger }
}

// WithTypeMatcher 注入自定义的按类型匹配实现。
func WithTypeMatcher(matcher TypeMatcher) Option {
	return func(f *BeanFactory) { f.matcher = matcher }
}

// WithInstantiationStrategy 替换实例化策略。
func WithInstantiationStrategy(strategy InstantiationStrategy) Option {
	return func(f *BeanFactory) { f.strategy = strategy }
}

// New 创建空的 BeanFactory。
func New(opts ...Option) *BeanFactory {
	f := &BeanFactory{
		definitions:  make(map[string]*BeanDefinition),
		singletons:   newSingletonRegistry(),
		converters:   newConverterRegistry(),
		creating:     make(map[string]*creationGuard),
		strategy:     defaultInstantiationStrategy{},
		ignoredTypes: make(map[reflect.Type]bool),
		logger:       logging.NewLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.matcher == nil {
		f.matcher = f
	}
	// 工厂自身永远不参与自动装配与依赖检查
	f.ignoredTypes[reflect.TypeOf((*BeanFactory)(nil))] = true
	return f
}

// RegisterBeanDefinition 注册名为 name 的 Bean 定义。定义注册后视为只读。
func (f *BeanFactory) RegisterBeanDefinition(name string, def *BeanDefinition) error {
	if name == "" {
		return fmt.Errorf("beans: Bean 名称不能为空")
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("beans: Bean %q 的定义无效: %w", name, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.definitions[name]; exists {
		return fmt.Errorf("beans: Bean %q 已注册", name)
	}
	f.definitions[name] = def
	return nil
}

// RegisterSingleton 把一个现成实例注册为名为 name 的单例。
func (f *BeanFactory) RegisterSingleton(name string, instance any) error {
	if name == "" {
		return fmt.Errorf("beans: Bean 名称不能为空")
	}
	if instance == nil {
		return fmt.Errorf("beans: 单例 %q 的实例不能为 nil", name)
	}
	if f.singletons.Contains(name) {
		return fmt.Errorf("beans: 单例 %q 已注册", name)
	}
	f.singletons.Put(name, instance)
	return nil
}

// BeanDefinition 返回名为 name 的合并后定义。
func (f *BeanFactory) BeanDefinition(name string) (*BeanDefinition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.definitions[name]
	if !ok {
		return nil, &NoSuchBeanDefinitionError{Name: name}
	}
	return def, nil
}

// BeanDefinitionNames 返回全部已注册定义的名称（字典序，保证确定性）。
func (f *BeanFactory) BeanDefinitionNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.definitions))
	for name := range f.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContainsBean 报告名为 name 的 Bean 在本工厂（或父工厂）是否可得。
func (f *BeanFactory) ContainsBean(name string) bool {
	if f.singletons.Contains(name) {
		return true
	}
	f.mu.RLock()
	_, ok := f.definitions[name]
	f.mu.RUnlock()
	if ok {
		return true
	}
	return f.parent != nil && f.parent.ContainsBean(name)
}

// AddBeanPostProcessor 追加一个扩展钩子，按注册顺序调用。
func (f *BeanFactory) AddBeanPostProcessor(p BeanPostProcessor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postProcessors = append(f.postProcessors, p)
}

// RegisterConverter 注册 targetType 的自定义类型转换器。
// 注册任何转换器后，全部类型转换都会进入共享的互斥临界区。
func (f *BeanFactory) RegisterConverter(targetType reflect.Type, fn ConverterFunc) {
	f.converters.register(targetType, fn)
}

// IgnoreDependencyType 把类型 t 排除在自动装配与依赖检查之外。
func (f *BeanFactory) IgnoreDependencyType(t reflect.Type) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignoredTypes[t] = true
}

// GetBean 返回名为 name 的完全初始化实例。
// 单例命中缓存直接返回；否则走完整构造管线。
func (f *BeanFactory) GetBean(name string) (any, error) {
	for {
		if instance, ok := f.singletons.Get(name); ok {
			return instance, nil
		}

		def, err := f.BeanDefinition(name)
		if err != nil {
			if f.parent != nil {
				return f.parent.GetBean(name)
			}
			return nil, err
		}

		wait, err := f.markInCreation(name)
		if err != nil {
			return nil, err
		}
		if wait != nil {
			// 别的 goroutine 正在构造同名 Bean：等它完成后从头重试，
			// 单例届时直接命中缓存，原型则开启自己的一轮构造
			<-wait
			continue
		}

		return f.createGuarded(name, def)
	}
}

func (f *BeanFactory) createGuarded(name string, def *BeanDefinition) (any, error) {
	// 即使构造过程 panic 也要解除在建标记，避免等待者永久阻塞
	defer f.unmarkInCreation(name)

	// 双重检查：缓存未命中与标记成功之间别的调用可能已完成构造
	if def.Singleton() {
		if instance, ok := f.singletons.Get(name); ok {
			return instance, nil
		}
	}
	return f.createBean(name, def, def.Singleton())
}

// MustGetBean GetBean 的 panic 版本。
func (f *BeanFactory) MustGetBean(name string) any {
	instance, err := f.GetBean(name)
	if err != nil {
		panic(err)
	}
	return instance
}

// creationGuard 标记一次进行中的构造：owner 是发起构造的 goroutine，
// done 在构造结束（无论成败）时关闭。
type creationGuard struct {
	owner uint64
	done  chan struct{}
}

// markInCreation 尝试把 name 标记为构造中。三种结果：
// 标记成功返回 (nil, nil)；同一 goroutine 重复标记说明出现循环，返回错误；
// 别的 goroutine 已在构造，返回其完成信号供调用方等待。
func (f *BeanFactory) markInCreation(name string) (<-chan struct{}, error) {
	gid := goroutineID()
	f.creatingMu.Lock()
	defer f.creatingMu.Unlock()
	if guard, ok := f.creating[name]; ok {
		if guard.owner == gid {
			return nil, &BeanCreationError{BeanName: name,
				Stage: "Bean 当前正在创建中，存在无法通过急切缓存化解的循环引用"}
		}
		return guard.done, nil
	}
	f.creating[name] = &creationGuard{owner: gid, done: make(chan struct{})}
	return nil, nil
}

func (f *BeanFactory) unmarkInCreation(name string) {
	f.creatingMu.Lock()
	if guard, ok := f.creating[name]; ok {
		close(guard.done)
		delete(f.creating, name)
	}
	f.creatingMu.Unlock()
}

// goroutineID 解析 runtime.Stack 首行 "goroutine N [running]:" 中的 N。
// 仅用于区分循环递归与跨 goroutine 竞争，不依赖其稳定性做任何其它事情。
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// createBean 执行完整构造管线。allowCaching 为 false 时（内部 Bean、原型）
// 不进行急切单例缓存。
func (f *BeanFactory) createBean(name string, def *BeanDefinition, allowCaching bool) (instance any, err error) {
	f.logger.Debug("创建 Bean 实例", logging.Field{Key: "bean", Value: name})

	// 给钩子一个返回替代对象（如代理）的机会，替代对象原样使用并跳过全部后续阶段。
	if def.Type != nil {
		substitute, hookErr := f.applyBeforeInstantiation(def.Type, name)
		if hookErr != nil {
			return nil, newBeanCreationError(name, "实例化前钩子失败", hookErr)
		}
		if substitute != nil {
			f.logger.Debug("实例化前钩子返回替代对象",
				logging.Field{Key: "bean", Value: name})
			if allowCaching && def.Singleton() {
				f.singletons.Put(name, substitute)
			}
			return substitute, nil
		}
	}

	// 保证 dependsOn 声明的 Bean 先完成构造
	for _, dep := range def.DependsOn {
		if _, depErr := f.GetBean(dep); depErr != nil {
			return nil, newBeanCreationError(name,
				fmt.Sprintf("依赖的 Bean %q 构造失败", dep), depErr)
		}
	}

	eagerlyCached := false
	defer func() {
		if err != nil && eagerlyCached {
			f.singletons.Remove(name)
		}
	}()

	switch {
	case def.FactoryMethod != "" || def.FactoryFn != nil:
		instance, err = f.instantiateUsingFactoryMethod(name, def)
	case len(def.Constructors) > 0 || def.Autowire == AutowireConstructor || def.hasConstructorArgs():
		instance, err = f.autowireConstructor(name, def)
	default:
		instance, err = f.strategy.Instantiate(def, name)
	}
	if err != nil {
		return nil, newBeanCreationError(name, "实例化失败", err)
	}

	// 急切缓存单例，使循环引用在属性填充阶段能够命中部分构造的实例
	if allowCaching && def.Singleton() {
		f.singletons.Put(name, instance)
		eagerlyCached = true
	}

	accessor := newBeanAccessor(instance, f.converters)

	if err = f.populateBean(name, def, accessor); err != nil {
		return nil, newBeanCreationError(name, "属性填充失败", err)
	}

	if aware, ok := instance.(BeanNameAware); ok {
		aware.SetBeanName(name)
	}
	if aware, ok := instance.(BeanFactoryAware); ok {
		aware.SetBeanFactory(f)
	}

	instance, err = f.applyBeforeInitialization(instance, name)
	if err != nil {
		return nil, newBeanCreationError(name, "初始化前钩子失败", err)
	}
	if err = f.invokeInitMethods(name, instance, def); err != nil {
		return nil, newBeanCreationError(name, "初始化失败", err)
	}
	instance, err = f.applyAfterInitialization(instance, name)
	if err != nil {
		return nil, newBeanCreationError(name, "初始化后钩子失败", err)
	}

	// 钩子替换了实例时刷新缓存，保证同名只暴露一个身份
	if eagerlyCached {
		f.singletons.Replace(name, instance)
	}

	f.registerDisposableIfNecessary(name, instance, def, eagerlyCached)
	return instance, nil
}

// applyBeforeInstantiation 依次调用实例化前钩子，首个非 nil 替代对象生效。
func (f *BeanFactory) applyBeforeInstantiation(beanType reflect.Type, name string) (any, error) {
	for _, p := range f.processors() {
		ip, ok := p.(InstantiationAwareBeanPostProcessor)
		if !ok {
			continue
		}
		substitute, err := ip.BeforeInstantiation(beanType, name)
		if err != nil {
			return nil, err
		}
		if substitute != nil {
			return substitute, nil
		}
	}
	return nil, nil
}

func (f *BeanFactory) applyBeforeInitialization(instance any, name string) (any, error) {
	result := instance
	for _, p := range f.processors() {
		next, err := p.BeforeInitialization(result, name)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("钩子 %T 的 BeforeInitialization 对 Bean %q 返回了 nil", p, name)
		}
		result = next
	}
	return result, nil
}

func (f *BeanFactory) applyAfterInitialization(instance any, name string) (any, error) {
	result := instance
	for _, p := range f.processors() {
		next, err := p.AfterInitialization(result, name)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("钩子 %T 的 AfterInitialization 对 Bean %q 返回了 nil", p, name)
		}
		result = next
	}
	return result, nil
}

func (f *BeanFactory) processors() []BeanPostProcessor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.postProcessors
}

// invokeInitMethods 调用 InitializingBean 回调与自定义初始化方法。
func (f *BeanFactory) invokeInitMethods(name string, instance any, def *BeanDefinition) error {
	if initializing, ok := instance.(InitializingBean); ok {
		f.logger.Debug("调用 AfterPropertiesSet",
			logging.Field{Key: "bean", Value: name})
		if err := initializing.AfterPropertiesSet(); err != nil {
			return err
		}
	}
	if def.InitMethod != "" {
		f.logger.Debug("调用自定义初始化方法",
			logging.Field{Key: "bean", Value: name},
			logging.Field{Key: "method", Value: def.InitMethod})
		return invokeLifecycleMethod(instance, def.InitMethod)
	}
	return nil
}

// invokeLifecycleMethod 按名调用实例上的生命周期方法（签名 func() 或 func() error）。
func invokeLifecycleMethod(instance any, methodName string) error {
	method := reflect.ValueOf(instance).MethodByName(methodName)
	if !method.IsValid() {
		return fmt.Errorf("在 %T 上找不到方法 %q", instance, methodName)
	}
	if method.Type().NumIn() != 0 {
		return fmt.Errorf("方法 %q 不能有参数", methodName)
	}
	results := method.Call(nil)
	if len(results) == 1 && results[0].Type().Implements(errorType) {
		if !results[0].IsNil() {
			return results[0].Interface().(error)
		}
	}
	return nil
}

// registerDisposableIfNecessary 为单例注册销毁回调与 dependsOn 销毁顺序边。
func (f *BeanFactory) registerDisposableIfNecessary(name string, instance any, def *BeanDefinition, cached bool) {
	if !cached {
		return
	}
	for _, dep := range def.DependsOn {
		f.singletons.RegisterDependent(dep, name)
	}
	_, disposable := instance.(DisposableBean)
	if !disposable && def.DestroyMethod == "" {
		return
	}
	f.singletons.RegisterDisposable(name, func() {
		f.logger.Debug("销毁 Bean", logging.Field{Key: "bean", Value: name})
		if d, ok := instance.(DisposableBean); ok {
			d.Destroy()
		}
		if def.DestroyMethod != "" {
			if err := invokeLifecycleMethod(instance, def.DestroyMethod); err != nil {
				f.logger.Error("自定义销毁方法失败",
					logging.Field{Key: "bean", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}
	})
}

// DestroySingletons 销毁全部缓存单例：依赖者先于被依赖者。
func (f *BeanFactory) DestroySingletons() {
	f.logger.Debug("销毁全部单例")
	f.singletons.DestroyAll()
}

// FindMatchingBeans 默认的按类型匹配实现：扫描全部定义与手工注册的单例，
// 返回可赋值给 requiredType 的 Bean（名称字典序遍历，结果可复现）。
// 匹配到定义时会触发其构造。
func (f *BeanFactory) FindMatchingBeans(requiredType reflect.Type) (map[string]any, error) {
	matches := make(map[string]any)

	for _, name := range f.BeanDefinitionNames() {
		def, err := f.BeanDefinition(name)
		if err != nil {
			continue
		}
		predicted := f.predictBeanType(def)
		if predicted == nil || !predicted.AssignableTo(requiredType) {
			continue
		}
		instance, err := f.GetBean(name)
		if err != nil {
			return nil, err
		}
		matches[name] = instance
	}

	// 手工注册的单例没有定义，按实例的实际类型匹配
	for _, name := range f.singletons.Names() {
		if _, ok := matches[name]; ok {
			continue
		}
		f.mu.RLock()
		_, hasDef := f.definitions[name]
		f.mu.RUnlock()
		if hasDef {
			continue
		}
		instance, ok := f.singletons.Get(name)
		if !ok || instance == nil {
			continue
		}
		if reflect.TypeOf(instance).AssignableTo(requiredType) {
			matches[name] = instance
		}
	}
	return matches, nil
}

// predictBeanType 尽力推断定义将产生的实例类型。
func (f *BeanFactory) predictBeanType(def *BeanDefinition) reflect.Type {
	if len(def.Constructors) > 0 {
		return reflect.TypeOf(def.Constructors[0]).Out(0)
	}
	if def.Type != nil {
		return def.Type
	}
	if def.FactoryFn != nil {
		t := reflect.TypeOf(def.FactoryFn)
		if t.NumOut() > 0 {
			return t.Out(0)
		}
		return nil
	}
	if def.FactoryBean != "" {
		factoryDef, err := f.BeanDefinition(def.FactoryBean)
		if err != nil || factoryDef.Type == nil {
			return nil
		}
		method, ok := factoryDef.Type.MethodByName(def.FactoryMethod)
		if !ok || method.Type.NumOut() == 0 {
			return nil
		}
		return method.Type.Out(0)
	}
	return nil
}
