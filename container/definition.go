package container

import (
	"fmt"
	"reflect"
)

// ScopeType 定义 Bean 的生命周期作用域。
type ScopeType int

const (
	// ScopeSingleton 每个工厂生命周期内只有一个共享实例（默认）。
	ScopeSingleton ScopeType = iota
	// ScopePrototype 每次请求都创建新实例，调用方持有所有权。
	ScopePrototype
)

// AutowireMode 定义未声明协作者的自动装配方式。
type AutowireMode int

const (
	// AutowireNone 不自动装配（默认），只应用显式声明的值。
	AutowireNone AutowireMode = iota
	// AutowireByName 按属性名查找同名 Bean 填充未声明的对象属性。
	AutowireByName
	// AutowireByType 按属性类型查找唯一匹配的 Bean 填充未声明的对象属性。
	AutowireByType
	// AutowireConstructor 构造参数按类型自动装配。
	AutowireConstructor
)

// DependencyCheckMode 定义属性填充后的依赖检查策略。
type DependencyCheckMode int

const (
	// DependencyCheckNone 不检查（默认）。
	DependencyCheckNone DependencyCheckMode = iota
	// DependencyCheckSimple 仅检查简单类型（基本类型、字符串等）属性已设置。
	DependencyCheckSimple
	// DependencyCheckObjects 仅检查对象类型属性已设置。
	DependencyCheckObjects
	// DependencyCheckAll 检查全部可写属性已设置。
	DependencyCheckAll
)

// ValueHolder 一个构造参数的声明值，可附带期望类型。
type ValueHolder struct {
	Value any
	// Type 期望的参数类型，nil 表示不限定。
	Type reflect.Type
}

// ConstructorArgumentValues 构造参数声明：带下标的参数绑定到固定位置，
// 泛化（无下标）参数绑定到最匹配的剩余参数，每个最多消费一次。
type ConstructorArgumentValues struct {
	indexed map[int]*ValueHolder
	generic []*ValueHolder
}

// NewConstructorArgumentValues 创建空的构造参数集合。
func NewConstructorArgumentValues() *ConstructorArgumentValues {
	return &ConstructorArgumentValues{indexed: make(map[int]*ValueHolder)}
}

// AddIndexed 在固定下标处声明参数值。
func (c *ConstructorArgumentValues) AddIndexed(index int, value any) *ConstructorArgumentValues {
	return c.AddIndexedTyped(index, value, nil)
}

// AddIndexedTyped 在固定下标处声明带期望类型的参数值。
func (c *ConstructorArgumentValues) AddIndexedTyped(index int, value any, typ reflect.Type) *ConstructorArgumentValues {
	if c.indexed == nil {
		c.indexed = make(map[int]*ValueHolder)
	}
	c.indexed[index] = &ValueHolder{Value: value, Type: typ}
	return c
}

// AddGeneric 声明一个不限定位置的参数值。
func (c *ConstructorArgumentValues) AddGeneric(value any) *ConstructorArgumentValues {
	return c.AddGenericTyped(value, nil)
}

// AddGenericTyped 声明一个不限定位置但限定类型的参数值。
func (c *ConstructorArgumentValues) AddGenericTyped(value any, typ reflect.Type) *ConstructorArgumentValues {
	c.generic = append(c.generic, &ValueHolder{Value: value, Type: typ})
	return c
}

// ArgumentCount 返回声明的参数个数。
func (c *ConstructorArgumentValues) ArgumentCount() int {
	if c == nil {
		return 0
	}
	return len(c.indexed) + len(c.generic)
}

// Empty 报告是否没有任何声明参数。
func (c *ConstructorArgumentValues) Empty() bool {
	return c.ArgumentCount() == 0
}

// ArgumentValue 返回绑定到下标 index、需要类型 requiredType 的声明值。
// 优先返回该下标的定点值；否则返回第一个类型兼容（或未限定类型）
// 且尚未被 used 消费的泛化值。没有匹配时返回 nil。
func (c *ConstructorArgumentValues) ArgumentValue(index int, requiredType reflect.Type, used map[*ValueHolder]bool) *ValueHolder {
	if c == nil {
		return nil
	}
	if holder, ok := c.indexed[index]; ok {
		if holder.Type == nil || requiredType == nil || typeAcceptable(holder.Type, requiredType) {
			return holder
		}
	}
	for _, holder := range c.generic {
		if used[holder] {
			continue
		}
		if holder.Type != nil && requiredType != nil && !typeAcceptable(holder.Type, requiredType) {
			continue
		}
		return holder
	}
	return nil
}

// typeAcceptable 报告声明类型 declared 是否可用于需要 required 的参数槽。
func typeAcceptable(declared, required reflect.Type) bool {
	return declared == required || declared.AssignableTo(required)
}

// indexedValue 返回下标 index 的定点声明值，未声明时为 nil。
func (c *ConstructorArgumentValues) indexedValue(index int) *ValueHolder {
	if c == nil {
		return nil
	}
	return c.indexed[index]
}

// genericValues 返回全部泛化声明值（按声明顺序）。
func (c *ConstructorArgumentValues) genericValues() []*ValueHolder {
	if c == nil {
		return nil
	}
	return c.generic
}

// indexedIndices 返回声明过的全部下标（用于最小参数个数计算）。
func (c *ConstructorArgumentValues) indexedIndices() []int {
	if c == nil {
		return nil
	}
	indices := make([]int, 0, len(c.indexed))
	for i := range c.indexed {
		indices = append(indices, i)
	}
	return indices
}

// PropertyValue 一个待应用的属性名/声明值对。
type PropertyValue struct {
	Name  string
	Value any
}

// PropertyValues 有序的属性值集合。同名 Add 覆盖旧值，顺序保持首次出现的位置。
type PropertyValues struct {
	values []PropertyValue
}

// NewPropertyValues 创建空的属性值集合。
func NewPropertyValues() *PropertyValues {
	return &PropertyValues{}
}

// Add 追加或覆盖名为 name 的属性值。
func (p *PropertyValues) Add(name string, value any) *PropertyValues {
	for i := range p.values {
		if p.values[i].Name == name {
			p.values[i].Value = value
			return p
		}
	}
	p.values = append(p.values, PropertyValue{Name: name, Value: value})
	return p
}

// Contains 报告是否声明了名为 name 的属性。
func (p *PropertyValues) Contains(name string) bool {
	if p == nil {
		return false
	}
	for i := range p.values {
		if p.values[i].Name == name {
			return true
		}
	}
	return false
}

// All 返回属性值切片（按声明顺序）。调用方不得修改。
func (p *PropertyValues) All() []PropertyValue {
	if p == nil {
		return nil
	}
	return p.values
}

// Len 返回属性个数。
func (p *PropertyValues) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// copyOf 返回可独立修改的浅拷贝（自动装配阶段在拷贝上补充值，不污染定义）。
func (p *PropertyValues) copyOf() *PropertyValues {
	cp := &PropertyValues{}
	if p != nil {
		cp.values = append(cp.values, p.values...)
	}
	return cp
}

// BeanDefinition 一个 Bean 的构造配方与元数据。注册后只读。
//
// 实例化方式三选一（Validate 强制）：
//  1. Type 驱动：Type 为指向结构体的指针类型；无参构造、
//     或通过 Constructors 候选构造函数做参数匹配。
//  2. 实例工厂：FactoryBean + FactoryMethod，在工厂 Bean 实例上按名反射调用。
//  3. 静态工厂：FactoryFn，一个包级工厂函数值。
type BeanDefinition struct {
	// Type 实现类型，指向结构体的指针类型（工厂模式下可为 nil，由工厂返回值决定）。
	Type reflect.Type

	// Constructors 候选构造函数（func(deps...) T 或 func(deps...) (T, error)）。
	// 多个候选之间按"最贪婪优先 + 最低类型差异权重"选择。
	Constructors []any

	// FactoryBean 实例工厂 Bean 的名称，与 FactoryMethod 配合使用。
	FactoryBean string
	// FactoryMethod 工厂方法名，在工厂 Bean 的类型上按名查找。
	FactoryMethod string
	// FactoryFn 静态工厂函数值。
	FactoryFn any

	// ConstructorArgs 声明的构造参数值。
	ConstructorArgs *ConstructorArgumentValues
	// Properties 声明的属性值（字段名到声明值）。
	Properties *PropertyValues

	Scope           ScopeType
	Autowire        AutowireMode
	DependencyCheck DependencyCheckMode

	// DependsOn 必须先于本 Bean 完成构造的 Bean 名称。
	DependsOn []string

	// InitMethod 自定义初始化方法名（签名 func() 或 func() error）。
	InitMethod string
	// DestroyMethod 自定义销毁方法名（同上签名），在工厂销毁单例时调用。
	DestroyMethod string
}

// NewBeanDefinition 创建以 T 的指针为实现类型的 Bean 定义。
func NewBeanDefinition[T any]() *BeanDefinition {
	return &BeanDefinition{
		Type:            reflect.TypeOf((*T)(nil)),
		ConstructorArgs: NewConstructorArgumentValues(),
		Properties:      NewPropertyValues(),
	}
}

// NewFactoryBeanDefinition 创建由实例工厂产生的 Bean 定义。
func NewFactoryBeanDefinition(factoryBean, factoryMethod string) *BeanDefinition {
	return &BeanDefinition{
		FactoryBean:     factoryBean,
		FactoryMethod:   factoryMethod,
		ConstructorArgs: NewConstructorArgumentValues(),
		Properties:      NewPropertyValues(),
	}
}

// NewFactoryFnDefinition 创建由静态工厂函数产生的 Bean 定义。
func NewFactoryFnDefinition(fn any) *BeanDefinition {
	return &BeanDefinition{
		FactoryFn:       fn,
		ConstructorArgs: NewConstructorArgumentValues(),
		Properties:      NewPropertyValues(),
	}
}

// Singleton 报告作用域是否为单例。
func (d *BeanDefinition) Singleton() bool {
	return d.Scope == ScopeSingleton
}

// hasConstructorArgs 报告是否声明了构造参数。
func (d *BeanDefinition) hasConstructorArgs() bool {
	return d.ConstructorArgs != nil && !d.ConstructorArgs.Empty()
}

// Validate 校验定义的内部一致性。
func (d *BeanDefinition) Validate() error {
	modes := 0
	if d.Type != nil {
		modes++
	}
	if d.FactoryBean != "" || d.FactoryMethod != "" {
		if d.FactoryBean == "" || d.FactoryMethod == "" {
			return fmt.Errorf("beans: FactoryBean 与 FactoryMethod 必须同时指定")
		}
		modes++
	}
	if d.FactoryFn != nil {
		if reflect.TypeOf(d.FactoryFn).Kind() != reflect.Func {
			return fmt.Errorf("beans: FactoryFn 必须是函数，得到 %T", d.FactoryFn)
		}
		modes++
	}
	if modes == 0 {
		return fmt.Errorf("beans: Bean 定义必须指定实现类型或工厂")
	}
	if modes > 1 {
		return fmt.Errorf("beans: 实现类型、实例工厂、静态工厂三种实例化方式只能指定一种")
	}
	if d.Type != nil {
		if d.Type.Kind() != reflect.Ptr || d.Type.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("beans: 实现类型必须是指向结构体的指针，得到 %v", d.Type)
		}
	}
	for i, ctor := range d.Constructors {
		if d.Type == nil {
			return fmt.Errorf("beans: 候选构造函数只能与实现类型一起使用")
		}
		t := reflect.TypeOf(ctor)
		if t == nil || t.Kind() != reflect.Func {
			return fmt.Errorf("beans: 第 %d 个候选构造函数必须是函数，得到 %T", i, ctor)
		}
		if t.NumOut() == 0 || t.NumOut() > 2 {
			return fmt.Errorf("beans: 第 %d 个候选构造函数必须返回 (T) 或 (T, error)", i)
		}
		if t.NumOut() == 2 && !t.Out(1).Implements(errorType) {
			return fmt.Errorf("beans: 第 %d 个候选构造函数的第二个返回值必须实现 error", i)
		}
	}
	for _, idx := range d.ConstructorArgs.indexedIndices() {
		if idx < 0 {
			return fmt.Errorf("beans: 非法的构造参数下标: %d", idx)
		}
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
