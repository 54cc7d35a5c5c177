// Package yamldef 从 YAML 文档加载 Bean 定义并注册到工厂。
//
// Go 无法按字符串名实例化类型，所以加载前先通过 RegisterType / RegisterFactory
// 把类型名绑定到 Go 类型，YAML 文档再按名引用：
//
//	beans:
//	  userService:
//	    type: UserService
//	    autowire: byName
//	    properties:
//	      Repo: { ref: userRepo }
package yamldef

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gocrud/beans/container"
)

// Loader YAML Bean 定义加载器
type Loader struct {
	prototypes map[string]func() *container.BeanDefinition
}

// NewLoader 创建加载器
func NewLoader() *Loader {
	return &Loader{
		prototypes: make(map[string]func() *container.BeanDefinition),
	}
}

// RegisterType 把类型名绑定到 *T，文档中 type: name 引用
func RegisterType[T any](l *Loader, name string) {
	l.prototypes[name] = func() *container.BeanDefinition {
		return container.NewBeanDefinition[T]()
	}
}

// RegisterFactory 把工厂函数绑定到名称，文档中 factory: name 引用
func (l *Loader) RegisterFactory(name string, fn any) {
	l.prototypes[name] = func() *container.BeanDefinition {
		return container.NewFactoryFnDefinition(fn)
	}
}

// LoadFile 读取文件并把其中的 Bean 定义注册到工厂
func (l *Loader) LoadFile(path string, factory *container.BeanFactory) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("yamldef: 读取文件 '%s' 失败: %w", path, err)
	}
	return l.Load(data, factory)
}

// Load 解析 YAML 文档并把其中的 Bean 定义注册到工厂
func (l *Loader) Load(data []byte, factory *container.BeanFactory) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("yamldef: 解析 YAML 失败: %w", err)
	}
	if doc.Beans.Kind == 0 {
		return nil
	}
	if doc.Beans.Kind != yaml.MappingNode {
		return fmt.Errorf("yamldef: 'beans' 必须是映射节点")
	}

	// 按文档顺序注册
	for i := 0; i < len(doc.Beans.Content); i += 2 {
		name := doc.Beans.Content[i].Value
		def, err := l.buildDefinition(doc.Beans.Content[i+1])
		if err != nil {
			return fmt.Errorf("yamldef: Bean '%s' 定义无效: %w", name, err)
		}
		if err := factory.RegisterBeanDefinition(name, def); err != nil {
			return err
		}
	}
	return nil
}

type document struct {
	Beans yaml.Node `yaml:"beans"`
}

type beanSpec struct {
	Name            string    `yaml:"name"`
	Type            string    `yaml:"type"`
	Factory         string    `yaml:"factory"`
	FactoryBean     string    `yaml:"factoryBean"`
	FactoryMethod   string    `yaml:"factoryMethod"`
	Scope           string    `yaml:"scope"`
	Autowire        string    `yaml:"autowire"`
	DependencyCheck string    `yaml:"dependencyCheck"`
	DependsOn       []string  `yaml:"dependsOn"`
	InitMethod      string    `yaml:"initMethod"`
	DestroyMethod   string    `yaml:"destroyMethod"`
	ConstructorArgs []argSpec `yaml:"constructorArgs"`
	Properties      yaml.Node `yaml:"properties"`
}

type argSpec struct {
	Index *int      `yaml:"index"`
	Value yaml.Node `yaml:"value"`
}

func (l *Loader) buildDefinition(node *yaml.Node) (*container.BeanDefinition, error) {
	var spec beanSpec
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}

	def, err := l.baseDefinition(&spec)
	if err != nil {
		return nil, err
	}

	if def.Scope, err = parseScope(spec.Scope); err != nil {
		return nil, err
	}
	if def.Autowire, err = parseAutowire(spec.Autowire); err != nil {
		return nil, err
	}
	if def.DependencyCheck, err = parseDependencyCheck(spec.DependencyCheck); err != nil {
		return nil, err
	}
	def.DependsOn = spec.DependsOn
	def.InitMethod = spec.InitMethod
	def.DestroyMethod = spec.DestroyMethod

	for _, arg := range spec.ConstructorArgs {
		value, err := l.decodeValue(&arg.Value)
		if err != nil {
			return nil, fmt.Errorf("构造参数无效: %w", err)
		}
		if def.ConstructorArgs == nil {
			def.ConstructorArgs = container.NewConstructorArgumentValues()
		}
		if arg.Index != nil {
			def.ConstructorArgs.AddIndexed(*arg.Index, value)
		} else {
			def.ConstructorArgs.AddGeneric(value)
		}
	}

	if spec.Properties.Kind != 0 {
		if spec.Properties.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("'properties' 必须是映射节点")
		}
		props := container.NewPropertyValues()
		for i := 0; i < len(spec.Properties.Content); i += 2 {
			propName := spec.Properties.Content[i].Value
			value, err := l.decodeValue(spec.Properties.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("属性 '%s' 无效: %w", propName, err)
			}
			props.Add(propName, value)
		}
		def.Properties = props
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// baseDefinition 按实例化方式创建基础定义：type / factory 查注册表，
// factoryBean+factoryMethod 指向容器内的工厂 Bean。
func (l *Loader) baseDefinition(spec *beanSpec) (*container.BeanDefinition, error) {
	switch {
	case spec.Type != "":
		proto, ok := l.prototypes[spec.Type]
		if !ok {
			return nil, fmt.Errorf("类型 '%s' 未注册", spec.Type)
		}
		return proto(), nil
	case spec.Factory != "":
		proto, ok := l.prototypes[spec.Factory]
		if !ok {
			return nil, fmt.Errorf("工厂函数 '%s' 未注册", spec.Factory)
		}
		return proto(), nil
	case spec.FactoryBean != "" && spec.FactoryMethod != "":
		return container.NewFactoryBeanDefinition(spec.FactoryBean, spec.FactoryMethod), nil
	default:
		return nil, fmt.Errorf("必须指定 type、factory 或 factoryBean+factoryMethod 之一")
	}
}

// decodeValue 把 YAML 节点解码为声明值：标量为字面量，序列为受管列表，
// 映射按唯一键 ref/parentRef/list/set/map/bean 区分。
func (l *Loader) decodeValue(node *yaml.Node) (any, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}

	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil

	case yaml.SequenceNode:
		list := make(container.ManagedList, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := l.decodeValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, fmt.Errorf("映射值必须恰好包含 ref/parentRef/list/set/map/bean 之一")
		}
		key, value := node.Content[0].Value, node.Content[1]
		switch key {
		case "ref":
			return container.Ref(value.Value), nil
		case "parentRef":
			return container.ParentRef(value.Value), nil
		case "list":
			return l.decodeValue(value)
		case "set":
			items, err := l.decodeValue(value)
			if err != nil {
				return nil, err
			}
			list, ok := items.(container.ManagedList)
			if !ok {
				return nil, fmt.Errorf("'set' 必须是序列节点")
			}
			return container.ManagedSet(list), nil
		case "map":
			if value.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("'map' 必须是映射节点")
			}
			entries := make(container.ManagedMap, 0, len(value.Content)/2)
			for i := 0; i < len(value.Content); i += 2 {
				k, err := l.decodeValue(value.Content[i])
				if err != nil {
					return nil, err
				}
				v, err := l.decodeValue(value.Content[i+1])
				if err != nil {
					return nil, err
				}
				entries = append(entries, container.MapEntry{Key: k, Value: v})
			}
			return entries, nil
		case "bean":
			var inner beanSpec
			if err := value.Decode(&inner); err != nil {
				return nil, err
			}
			def, err := l.buildDefinition(value)
			if err != nil {
				return nil, fmt.Errorf("内部 Bean 定义无效: %w", err)
			}
			return container.BeanDefinitionValue{Name: inner.Name, Definition: def}, nil
		default:
			return nil, fmt.Errorf("无法识别的值标记 '%s'", key)
		}

	default:
		return nil, fmt.Errorf("不支持的 YAML 节点类型")
	}
}

func parseScope(s string) (container.ScopeType, error) {
	switch s {
	case "", "singleton":
		return container.ScopeSingleton, nil
	case "prototype":
		return container.ScopePrototype, nil
	default:
		return 0, fmt.Errorf("未知的 scope '%s'", s)
	}
}

func parseAutowire(s string) (container.AutowireMode, error) {
	switch s {
	case "", "no", "none":
		return container.AutowireNone, nil
	case "byName":
		return container.AutowireByName, nil
	case "byType":
		return container.AutowireByType, nil
	case "constructor":
		return container.AutowireConstructor, nil
	default:
		return 0, fmt.Errorf("未知的 autowire 模式 '%s'", s)
	}
}

func parseDependencyCheck(s string) (container.DependencyCheckMode, error) {
	switch s {
	case "", "none":
		return container.DependencyCheckNone, nil
	case "simple":
		return container.DependencyCheckSimple, nil
	case "objects":
		return container.DependencyCheckObjects, nil
	case "all":
		return container.DependencyCheckAll, nil
	default:
		return 0, fmt.Errorf("未知的 dependencyCheck 模式 '%s'", s)
	}
}
