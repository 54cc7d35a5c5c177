package container

import (
	"sync"
)

// singletonRegistry 进程内共享单例缓存。
//
// Put 是幂等发布：允许在属性填充之前急切发布部分构造的单例，
// 使得构造中途对同一名称的再次 GetBean 能观察到部分初始化的实例，
// 从而让单例之间的循环引用得以终止。
// 发布先于任何可能重入同名构造的嵌套解析发生（happens-before 由
// 同步调用顺序与本注册表的互斥锁共同保证）。
type singletonRegistry struct {
	mu         sync.RWMutex
	singletons map[string]any

	// dependents 记录"B 被 A 依赖"（键为被依赖方 B），仅用于销毁排序：
	// 先销毁依赖者，再销毁被依赖者。从不用于拒绝循环。
	dependents map[string]map[string]bool

	// disposables 待销毁的单例回调，按名称注册。
	disposables map[string]func()
	// disposeOrder 注册顺序，销毁时作为次级顺序（逆序）。
	disposeOrder []string
}

func newSingletonRegistry() *singletonRegistry {
	return &singletonRegistry{
		singletons:  make(map[string]any),
		dependents:  make(map[string]map[string]bool),
		disposables: make(map[string]func()),
	}
}

// Get 返回名为 name 的单例，未缓存时第二个返回值为 false。
func (r *singletonRegistry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instance, ok := r.singletons[name]
	return instance, ok
}

// Contains 报告名为 name 的单例是否已缓存。
func (r *singletonRegistry) Contains(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Put 发布单例。同名重复发布保留首个实例，保证一个名称不会暴露两个身份。
func (r *singletonRegistry) Put(name string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.singletons[name]; exists {
		return
	}
	r.singletons[name] = instance
}

// Replace 用 instance 替换名为 name 的单例（钩子替换实例后刷新缓存）。
func (r *singletonRegistry) Replace(name string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singletons[name] = instance
}

// Remove 驱逐名为 name 的单例（构造失败时回滚急切缓存）。
func (r *singletonRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.singletons, name)
	delete(r.disposables, name)
}

// Names 返回已缓存的单例名称（无序）。
func (r *singletonRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.singletons))
	for name := range r.singletons {
		names = append(names, name)
	}
	return names
}

// RegisterDependent 记录 dependentName 依赖 name。
func (r *singletonRegistry) RegisterDependent(name, dependentName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.dependents[name]
	if !ok {
		set = make(map[string]bool)
		r.dependents[name] = set
	}
	set[dependentName] = true
}

// RegisterDisposable 注册名为 name 的单例的销毁回调。
func (r *singletonRegistry) RegisterDisposable(name string, dispose func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.disposables[name]; !exists {
		r.disposeOrder = append(r.disposeOrder, name)
	}
	r.disposables[name] = dispose
}

// DestroyAll 销毁全部单例：依赖者先于被依赖者，其余按注册逆序。
func (r *singletonRegistry) DestroyAll() {
	r.mu.Lock()
	order := make([]string, len(r.disposeOrder))
	copy(order, r.disposeOrder)
	r.mu.Unlock()

	destroyed := make(map[string]bool)
	for i := len(order) - 1; i >= 0; i-- {
		r.destroySingleton(order[i], destroyed)
	}

	r.mu.Lock()
	r.singletons = make(map[string]any)
	r.dependents = make(map[string]map[string]bool)
	r.disposables = make(map[string]func())
	r.disposeOrder = nil
	r.mu.Unlock()
}

// destroySingleton 销毁 name，先递归销毁它的依赖者。
func (r *singletonRegistry) destroySingleton(name string, destroyed map[string]bool) {
	if destroyed[name] {
		return
	}
	destroyed[name] = true

	r.mu.Lock()
	var deps []string
	for dep := range r.dependents[name] {
		deps = append(deps, dep)
	}
	dispose := r.disposables[name]
	r.mu.Unlock()

	for _, dep := range deps {
		r.destroySingleton(dep, destroyed)
	}
	if dispose != nil {
		dispose()
	}
}
