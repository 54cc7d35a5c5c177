package container

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/gocrud/beans/logging"
)

// populateBean 把定义里声明的属性值（按需补充自动装配结果）应用到实例。
func (f *BeanFactory) populateBean(beanName string, def *BeanDefinition, accessor *BeanAccessor) error {
	pvs := def.Properties

	if def.Autowire == AutowireByName || def.Autowire == AutowireByType {
		// 在拷贝上补充自动装配结果，定义保持只读
		pvs = pvs.copyOf()
		var err error
		if def.Autowire == AutowireByName {
			err = f.autowireByName(beanName, def, accessor, pvs)
		} else {
			err = f.autowireByType(beanName, def, accessor, pvs)
		}
		if err != nil {
			return err
		}
	}

	if err := f.dependencyCheck(beanName, def, accessor, pvs); err != nil {
		return err
	}
	return f.applyPropertyValues(beanName, def, accessor, pvs)
}

// unsatisfiedObjectProperties 返回未满足的对象属性名（字典序）：
// 可写、类型未被忽略、未在定义中声明、且不是简单类型。
func (f *BeanFactory) unsatisfiedObjectProperties(def *BeanDefinition, accessor *BeanAccessor) []string {
	var result []string
	for _, name := range accessor.PropertyNames() {
		propType := accessor.PropertyType(name)
		if f.isIgnoredType(propType) {
			continue
		}
		if def.Properties.Contains(name) || isSimpleType(propType) {
			continue
		}
		// 构造阶段已赋值的属性不再参与自动装配
		if accessor.PropertySet(name) {
			continue
		}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func (f *BeanFactory) isIgnoredType(t reflect.Type) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ignoredTypes[t]
}

// autowireByName 用同名 Bean 填充未满足的对象属性。
// 先按字段名精确查找，再按首字母小写的惯用 Bean 名查找；
// 找不到时静默跳过（尽力而为，不报错）。
func (f *BeanFactory) autowireByName(beanName string, def *BeanDefinition, accessor *BeanAccessor, pvs *PropertyValues) error {
	for _, propName := range f.unsatisfiedObjectProperties(def, accessor) {
		targetName, ok := f.lookupBeanName(propName)
		if !ok {
			f.logger.Debug("按名自动装配未找到同名 Bean，跳过",
				logging.Field{Key: "bean", Value: beanName},
				logging.Field{Key: "property", Value: propName})
			continue
		}
		instance, err := f.GetBean(targetName)
		if err != nil {
			return newBeanCreationError(beanName,
				fmt.Sprintf("按名自动装配属性 %q 失败", propName), err)
		}
		pvs.Add(propName, instance)
		if def.Singleton() {
			f.singletons.RegisterDependent(targetName, beanName)
		}
		f.logger.Debug("按名自动装配属性",
			logging.Field{Key: "bean", Value: beanName},
			logging.Field{Key: "property", Value: propName},
			logging.Field{Key: "target", Value: targetName})
	}
	return nil
}

// lookupBeanName 把属性名映射到可得的 Bean 名：精确匹配优先，
// 其次是首字母小写的变体（Go 导出字段名对应的惯用 Bean 名）。
func (f *BeanFactory) lookupBeanName(propName string) (string, bool) {
	if f.ContainsBean(propName) {
		return propName, true
	}
	if lower := decapitalize(propName); lower != propName && f.ContainsBean(lower) {
		return lower, true
	}
	return "", false
}

func decapitalize(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// autowireByType 用唯一的类型匹配 Bean 填充未满足的对象属性。
// 零个匹配静默跳过；多于一个匹配报 UnsatisfiedDependency。
func (f *BeanFactory) autowireByType(beanName string, def *BeanDefinition, accessor *BeanAccessor, pvs *PropertyValues) error {
	for _, propName := range f.unsatisfiedObjectProperties(def, accessor) {
		requiredType := accessor.PropertyType(propName)
		matching, err := f.matcher.FindMatchingBeans(requiredType)
		if err != nil {
			return newBeanCreationError(beanName,
				fmt.Sprintf("按类型自动装配属性 %q 失败", propName), err)
		}
		switch len(matching) {
		case 0:
			f.logger.Debug("按类型自动装配未找到匹配 Bean，跳过",
				logging.Field{Key: "bean", Value: beanName},
				logging.Field{Key: "property", Value: propName})
		case 1:
			for targetName, instance := range matching {
				pvs.Add(propName, instance)
				if def.Singleton() {
					f.singletons.RegisterDependent(targetName, beanName)
				}
				f.logger.Debug("按类型自动装配属性",
					logging.Field{Key: "bean", Value: beanName},
					logging.Field{Key: "property", Value: propName},
					logging.Field{Key: "target", Value: targetName})
			}
		default:
			return &UnsatisfiedDependencyError{
				BeanName: beanName, Property: propName, ArgIndex: -1, RequiredType: requiredType,
				Reason: fmt.Sprintf("按类型自动装配需要恰好 1 个候选 Bean，找到 %d 个", len(matching)),
			}
		}
	}
	return nil
}

// dependencyCheck 属性填充前的依赖检查：按定义的策略，
// 要求简单/对象/全部可写属性都已有声明值或装配值。
func (f *BeanFactory) dependencyCheck(beanName string, def *BeanDefinition, accessor *BeanAccessor, pvs *PropertyValues) error {
	if def.DependencyCheck == DependencyCheckNone {
		return nil
	}
	for _, name := range accessor.PropertyNames() {
		propType := accessor.PropertyType(name)
		if f.isIgnoredType(propType) || pvs.Contains(name) {
			continue
		}
		// 构造函数里已经赋过值的属性视为已满足
		if accessor.PropertySet(name) {
			continue
		}
		simple := isSimpleType(propType)
		unsatisfied := def.DependencyCheck == DependencyCheckAll ||
			(simple && def.DependencyCheck == DependencyCheckSimple) ||
			(!simple && def.DependencyCheck == DependencyCheckObjects)
		if unsatisfied {
			return &UnsatisfiedDependencyError{
				BeanName: beanName, Property: name, ArgIndex: -1, RequiredType: propType,
				Reason: "依赖检查要求该属性必须被设置（或放宽该 Bean 的检查策略）",
			}
		}
	}
	return nil
}

// applyPropertyValues 解析并应用属性值。解析在值的拷贝上进行，
// 定义中声明的值不会被解析结果替换。
func (f *BeanFactory) applyPropertyValues(beanName string, def *BeanDefinition, accessor *BeanAccessor, pvs *PropertyValues) error {
	for _, pv := range pvs.All() {
		// 先校验属性存在，避免为无处安放的值解析内部 Bean
		if !accessor.HasProperty(pv.Name) {
			return &UnsatisfiedDependencyError{
				BeanName: beanName, Property: pv.Name, ArgIndex: -1,
				Reason: "声明的属性不存在或不可写",
			}
		}
		resolved, err := f.resolveValue(beanName, def, pv.Name, pv.Value)
		if err != nil {
			return err
		}
		if err := accessor.SetProperty(pv.Name, resolved); err != nil {
			return newBeanCreationError(beanName, "设置属性值失败", err)
		}
	}
	return nil
}
