package container

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/gocrud/beans/logging"
)

// resolveConstructorArguments 把定义里声明的构造参数值解析为运行时值。
// 返回解析结果与最少参数个数（声明个数与最大下标+1 的较大者）。
// 每次 createBean 只解析一遍，之后每个候选构造函数共用解析结果。
func (f *BeanFactory) resolveConstructorArguments(beanName string, def *BeanDefinition) (*ConstructorArgumentValues, int, error) {
	resolved := NewConstructorArgumentValues()
	cargs := def.ConstructorArgs
	if cargs == nil {
		return resolved, 0, nil
	}

	minArgs := cargs.ArgumentCount()
	for _, index := range cargs.indexedIndices() {
		if index+1 > minArgs {
			minArgs = index + 1
		}
		holder := cargs.indexed[index]
		argName := fmt.Sprintf("下标为 %d 的构造参数", index)
		value, err := f.resolveValue(beanName, def, argName, holder.Value)
		if err != nil {
			return nil, 0, err
		}
		resolved.AddIndexedTyped(index, value, holder.Type)
	}
	for _, holder := range cargs.generic {
		value, err := f.resolveValue(beanName, def, "构造参数", holder.Value)
		if err != nil {
			return nil, 0, err
		}
		resolved.AddGenericTyped(value, holder.Type)
	}
	return resolved, minArgs, nil
}

// ctorCandidate 一个候选构造函数及其参数类型。
type ctorCandidate struct {
	fn       reflect.Value
	argTypes []reflect.Type
}

func newCtorCandidate(fn any) ctorCandidate {
	v := reflect.ValueOf(fn)
	t := v.Type()
	argTypes := make([]reflect.Type, t.NumIn())
	for i := range argTypes {
		argTypes[i] = t.In(i)
	}
	return ctorCandidate{fn: v, argTypes: argTypes}
}

// autowireConstructor 在候选构造函数之间做重载选择并实例化。
//
// 算法：候选按参数个数降序（最贪婪优先，声明顺序稳定）尝试；
// 一旦已选中的构造比剩余候选更贪婪即停止搜索；
// 每个候选的参数数组构建失败（UnsatisfiedDependency）只淘汰该候选；
// 成功的候选按类型差异权重打分，最低者胜出，同分保留先遇到的。
func (f *BeanFactory) autowireConstructor(beanName string, def *BeanDefinition) (any, error) {
	if len(def.Constructors) == 0 {
		return nil, &BeanCreationError{BeanName: beanName,
			Stage: "声明了构造参数或构造自动装配，但定义没有候选构造函数"}
	}

	resolved, minArgs, err := f.resolveConstructorArguments(beanName, def)
	if err != nil {
		return nil, err
	}

	candidates := make([]ctorCandidate, 0, len(def.Constructors))
	for _, ctor := range def.Constructors {
		candidates = append(candidates, newCtorCandidate(ctor))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].argTypes) > len(candidates[j].argTypes)
	})

	autowiring := def.Autowire == AutowireConstructor

	var chosen *ctorCandidate
	var chosenArgs []any
	minWeight := math.MaxInt
	var lastUnsatisfied *UnsatisfiedDependencyError

	for i := range candidates {
		candidate := &candidates[i]

		if chosen != nil && len(chosen.argTypes) > len(candidate.argTypes) {
			// 已找到可满足的更贪婪构造，剩下的只会更少参数
			break
		}
		if len(candidate.argTypes) < minArgs {
			if chosen != nil {
				break
			}
			return nil, &BeanCreationError{BeanName: beanName,
				Stage: fmt.Sprintf("声明了 %d 个构造参数，但没有参数个数足够的候选构造函数", minArgs)}
		}

		args, rawArgs, err := f.createArgumentArray(beanName, def, resolved, candidate.argTypes, autowiring)
		if err != nil {
			var ude *UnsatisfiedDependencyError
			if errors.As(err, &ude) {
				// 该候选无法满足，吞掉并尝试下一个
				f.logger.Debug("跳过无法满足依赖的候选构造函数",
					logging.Field{Key: "bean", Value: beanName},
					logging.Field{Key: "args", Value: len(candidate.argTypes)})
				lastUnsatisfied = ude
				continue
			}
			return nil, err
		}

		weight := typeDifferenceWeight(candidate.argTypes, rawArgs)
		if weight < minWeight {
			chosen = candidate
			chosenArgs = args
			minWeight = weight
		}
	}

	if chosen == nil {
		if lastUnsatisfied != nil {
			return nil, lastUnsatisfied
		}
		return nil, &BeanCreationError{BeanName: beanName, Stage: "无法解析匹配的构造函数"}
	}

	f.logger.Debug("通过构造函数实例化 Bean",
		logging.Field{Key: "bean", Value: beanName},
		logging.Field{Key: "args", Value: len(chosen.argTypes)})
	return f.strategy.InstantiateWithConstructor(def, beanName, chosen.fn, chosenArgs)
}

// instantiateUsingFactoryMethod 通过静态工厂函数或实例工厂方法实例化。
// 实例工厂：在工厂 Bean 的类型上按名查找方法并校验参数个数；
// 与构造函数不同，工厂方法的首个参数构建成功即胜出，不做打分。
func (f *BeanFactory) instantiateUsingFactoryMethod(beanName string, def *BeanDefinition) (any, error) {
	resolved, _, err := f.resolveConstructorArguments(beanName, def)
	if err != nil {
		return nil, err
	}
	expectedArgCount := def.ConstructorArgs.ArgumentCount()

	var method reflect.Value
	var factoryInstance any

	if def.FactoryFn != nil {
		method = reflect.ValueOf(def.FactoryFn)
	} else {
		factoryInstance, err = f.GetBean(def.FactoryBean)
		if err != nil {
			return nil, &BeanCreationError{BeanName: beanName,
				Stage: fmt.Sprintf("工厂 Bean %q 构造失败", def.FactoryBean), Cause: err}
		}
		m := reflect.ValueOf(factoryInstance).MethodByName(def.FactoryMethod)
		if !m.IsValid() {
			return nil, &BeanCreationError{BeanName: beanName,
				Stage: fmt.Sprintf("在工厂 Bean %q (%T) 上找不到工厂方法 %q",
					def.FactoryBean, factoryInstance, def.FactoryMethod)}
		}
		if m.Type().NumIn() != expectedArgCount {
			return nil, &BeanCreationError{BeanName: beanName,
				Stage: fmt.Sprintf("工厂方法 %q 需要 %d 个参数，声明了 %d 个",
					def.FactoryMethod, m.Type().NumIn(), expectedArgCount)}
		}
		method = m
	}

	mt := method.Type()
	argTypes := make([]reflect.Type, mt.NumIn())
	for i := range argTypes {
		argTypes[i] = mt.In(i)
	}

	// 工厂方法实例化总是允许按类型自动装配缺失的参数
	args, _, err := f.createArgumentArray(beanName, def, resolved, argTypes, true)
	if err != nil {
		return nil, &BeanCreationError{BeanName: beanName,
			Stage: "无法为工厂方法构建参数", Cause: err}
	}

	f.logger.Debug("通过工厂方法实例化 Bean",
		logging.Field{Key: "bean", Value: beanName},
		logging.Field{Key: "method", Value: def.FactoryMethod})
	return f.strategy.InstantiateWithFactoryMethod(def, beanName, factoryInstance, method, args)
}

// createArgumentArray 为一次构造/工厂调用构建具体参数数组。
// 每个声明值最多被一个参数槽消费；有声明值的槽做类型转换，
// 转换失败只判定该候选不满足（UnsatisfiedDependency）；
// 没有声明值的槽在 autowiring 为 true 时要求恰好一个类型匹配的 Bean。
// 第二个返回值是转换前的原始值数组，用于重载打分
// （精确匹配必须优于转换后匹配）。
func (f *BeanFactory) createArgumentArray(beanName string, def *BeanDefinition,
	resolved *ConstructorArgumentValues, argTypes []reflect.Type, autowiring bool) ([]any, []any, error) {

	args := make([]any, len(argTypes))
	rawArgs := make([]any, len(argTypes))
	used := make(map[*ValueHolder]bool, len(argTypes))

	for j, argType := range argTypes {
		// 定点声明值绑死该槽位：转换失败即候选不满足
		if holder := resolved.indexedValue(j); holder != nil {
			if holder.Type != nil && !typeAcceptable(holder.Type, argType) {
				return nil, nil, &UnsatisfiedDependencyError{
					BeanName: beanName, ArgIndex: j, RequiredType: argType,
					Reason: fmt.Sprintf("下标 %d 的声明类型 %v 与参数类型不符", j, holder.Type),
				}
			}
			converted, err := f.converters.convert(holder.Value, argType)
			if err != nil {
				return nil, nil, &UnsatisfiedDependencyError{
					BeanName: beanName, ArgIndex: j, RequiredType: argType,
					Reason: fmt.Sprintf("无法把声明值 %v 转换为需要的类型", holder.Value),
					Cause:  err,
				}
			}
			args[j] = converted
			rawArgs[j] = holder.Value
			continue
		}

		// 泛化声明值对号入座：逐个尝试类型转换，第一个转换成功的
		// 未消费值占据该槽位，失败的留给后面的槽位
		matched := false
		for _, holder := range resolved.genericValues() {
			if used[holder] {
				continue
			}
			if holder.Type != nil && !typeAcceptable(holder.Type, argType) {
				continue
			}
			converted, err := f.converters.convert(holder.Value, argType)
			if err != nil {
				continue
			}
			used[holder] = true
			args[j] = converted
			rawArgs[j] = holder.Value
			matched = true
			break
		}
		if matched {
			continue
		}

		if !autowiring {
			return nil, nil, &UnsatisfiedDependencyError{
				BeanName: beanName, ArgIndex: j, RequiredType: argType,
				Reason: "构造参数类型无法匹配声明值，请检查泛化参数的 Bean 引用是否正确",
			}
		}

		matching, err := f.matcher.FindMatchingBeans(argType)
		if err != nil {
			return nil, nil, err
		}
		if len(matching) != 1 {
			return nil, nil, &UnsatisfiedDependencyError{
				BeanName: beanName, ArgIndex: j, RequiredType: argType,
				Reason: fmt.Sprintf("按类型自动装配构造参数需要恰好 1 个候选 Bean，找到 %d 个", len(matching)),
			}
		}
		for matchName, matchInstance := range matching {
			args[j] = matchInstance
			rawArgs[j] = matchInstance
			if def.Singleton() {
				f.singletons.RegisterDependent(matchName, beanName)
			}
			f.logger.Debug("构造参数按类型自动装配",
				logging.Field{Key: "bean", Value: beanName},
				logging.Field{Key: "target", Value: matchName})
		}
	}
	return args, rawArgs, nil
}

// typeDifferenceWeight 参数数组对目标参数类型的类型差异权重。
// 精确类型匹配计 0，接口满足计 1，需要转换计 2；逐参数累加。
// 权重越低匹配越好；结果只用于重载之间的相对排序。
func typeDifferenceWeight(argTypes []reflect.Type, args []any) int {
	weight := 0
	for i, argType := range argTypes {
		if args[i] == nil {
			continue
		}
		actual := reflect.TypeOf(args[i])
		switch {
		case actual == argType:
			// 精确匹配
		case argType.Kind() == reflect.Interface && actual.Implements(argType):
			weight += 1
		default:
			weight += 2
		}
	}
	return weight
}
