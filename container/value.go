package container

import "fmt"

// Value 是声明值的标记接口。属性值与构造参数值在解析前都以声明值的形式
// 存在于 BeanDefinition 中；解析器对下列变体做穷尽匹配：
//
//   - RuntimeBeanReference: 对另一个 Bean 的命名引用（可指向父工厂）
//   - BeanDefinitionValue:  内嵌的匿名 Bean 定义（内部 Bean）
//   - ManagedList:          有序序列，元素逐个解析
//   - ManagedSet:           集合，元素逐个解析（按出现顺序去重）
//   - ManagedMap:           键值映射，值逐个解析（键集保留）
//
// 其余任何 Go 值都视为字面量，原样返回。
type Value interface {
	managedValue()
}

// RuntimeBeanReference 对工厂中另一个 Bean 的命名引用。
// ToParent 为 true 时委托给父工厂查找。
type RuntimeBeanReference struct {
	Name     string
	ToParent bool
}

func (RuntimeBeanReference) managedValue() {}

func (r RuntimeBeanReference) String() string {
	if r.ToParent {
		return fmt.Sprintf("<ref parent %q>", r.Name)
	}
	return fmt.Sprintf("<ref %q>", r.Name)
}

// Ref 构造一个对名为 name 的 Bean 的引用。
func Ref(name string) RuntimeBeanReference {
	return RuntimeBeanReference{Name: name}
}

// ParentRef 构造一个对父工厂中名为 name 的 Bean 的引用。
func ParentRef(name string) RuntimeBeanReference {
	return RuntimeBeanReference{Name: name, ToParent: true}
}

// BeanDefinitionValue 内嵌的 Bean 定义（内部 Bean）。
// 内部 Bean 是匿名原型：其定义上的作用域标志被忽略，每次解析都新建实例，
// 且不进入单例注册表。Name 仅用于诊断，可为空。
type BeanDefinitionValue struct {
	Name       string
	Definition *BeanDefinition
}

func (BeanDefinitionValue) managedValue() {}

// ManagedList 有序的声明值序列。解析后保持原有顺序。
type ManagedList []any

func (ManagedList) managedValue() {}

// ManagedSet 声明值集合。解析后按出现顺序去重为 []any。
type ManagedSet []any

func (ManagedSet) managedValue() {}

// MapEntry ManagedMap 中的一个键值对。键本身不参与解析。
type MapEntry struct {
	Key   any
	Value any
}

// ManagedMap 键到声明值的映射。条目顺序仅用于确定性遍历；
// 解析结果为 map[any]any，键集保留。
type ManagedMap []MapEntry

func (ManagedMap) managedValue() {}
