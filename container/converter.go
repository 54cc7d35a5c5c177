package container

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ConverterFunc 自定义类型转换器：把声明值转换为目标类型的值。
type ConverterFunc func(value any) (any, error)

// converterRegistry 共享的自定义转换器注册表。
// 转换器本身不保证并发安全，因此一旦注册了任何转换器，
// 所有类型转换（属性赋值、构造参数转换）都在同一把互斥锁内进行；
// 没有注册转换器时转换走无锁路径。
type converterRegistry struct {
	mu         sync.Mutex
	converters map[reflect.Type]ConverterFunc
	count      atomic.Int32
}

func newConverterRegistry() *converterRegistry {
	return &converterRegistry{converters: make(map[reflect.Type]ConverterFunc)}
}

// register 注册 targetType 的转换器，覆盖同类型的旧转换器。
func (r *converterRegistry) register(targetType reflect.Type, fn ConverterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.converters[targetType]; !exists {
		r.count.Add(1)
	}
	r.converters[targetType] = fn
}

// convert 把 value 转换为 targetType。注册了转换器时整个转换在临界区内完成。
func (r *converterRegistry) convert(value any, targetType reflect.Type) (any, error) {
	if r.count.Load() == 0 {
		return coerce(value, targetType, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return coerce(value, targetType, r.converters)
}

// coerce 执行实际的类型强制转换。converters 可为 nil。
func coerce(value any, targetType reflect.Type, converters map[reflect.Type]ConverterFunc) (any, error) {
	if value == nil {
		switch targetType.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return nil, nil
		}
		return nil, fmt.Errorf("无法把 nil 赋给 %v", targetType)
	}

	if fn, ok := converters[targetType]; ok {
		converted, err := fn(value)
		if err != nil {
			return nil, fmt.Errorf("自定义转换器转换到 %v 失败: %w", targetType, err)
		}
		value = converted
	}

	src := reflect.ValueOf(value)
	if src.Type() == targetType || src.Type().AssignableTo(targetType) {
		return value, nil
	}

	// 字符串字面量解析为基本类型
	if s, ok := value.(string); ok {
		if parsed, ok, err := parseString(s, targetType); ok {
			return parsed, err
		}
	}

	// 数值之间的 reflect 转换。排除到 string 的转换：
	// reflect 会把整数转成对应码点的字符串。
	if src.Type().ConvertibleTo(targetType) &&
		!(targetType.Kind() == reflect.String && src.Kind() != reflect.String) {
		return src.Convert(targetType).Interface(), nil
	}

	// []any 到具体切片/映射/集合类型
	if converted, ok, err := coerceCollection(src, targetType, converters); ok {
		return converted, err
	}

	return nil, fmt.Errorf("无法把 %T 转换为 %v", value, targetType)
}

// parseString 尝试把字符串解析为目标基本类型。第二个返回值报告是否适用。
func parseString(s string, targetType reflect.Type) (any, bool, error) {
	if targetType == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, true, fmt.Errorf("解析时长 %q 失败: %w", s, err)
		}
		return d, true, nil
	}
	switch targetType.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, true, fmt.Errorf("解析布尔值 %q 失败: %w", s, err)
		}
		return convertKind(reflect.ValueOf(b), targetType), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, true, fmt.Errorf("解析整数 %q 失败: %w", s, err)
		}
		return convertKind(reflect.ValueOf(n), targetType), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, true, fmt.Errorf("解析无符号整数 %q 失败: %w", s, err)
		}
		return convertKind(reflect.ValueOf(n), targetType), true, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, true, fmt.Errorf("解析浮点数 %q 失败: %w", s, err)
		}
		return convertKind(reflect.ValueOf(f), targetType), true, nil
	}
	return nil, false, nil
}

func convertKind(v reflect.Value, targetType reflect.Type) any {
	return v.Convert(targetType).Interface()
}

// coerceCollection 把解析后的 []any / map[any]any 转换为具体的集合类型。
func coerceCollection(src reflect.Value, targetType reflect.Type, converters map[reflect.Type]ConverterFunc) (any, bool, error) {
	switch targetType.Kind() {
	case reflect.Slice:
		if src.Kind() != reflect.Slice {
			return nil, false, nil
		}
		out := reflect.MakeSlice(targetType, src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			elem, err := coerce(src.Index(i).Interface(), targetType.Elem(), converters)
			if err != nil {
				return nil, true, fmt.Errorf("切片元素 %d: %w", i, err)
			}
			if elem != nil {
				out.Index(i).Set(reflect.ValueOf(elem))
			}
		}
		return out.Interface(), true, nil
	case reflect.Map:
		if src.Kind() != reflect.Map {
			return nil, false, nil
		}
		out := reflect.MakeMapWithSize(targetType, src.Len())
		iter := src.MapRange()
		for iter.Next() {
			key, err := coerce(iter.Key().Interface(), targetType.Key(), converters)
			if err != nil {
				return nil, true, fmt.Errorf("映射键 %v: %w", iter.Key(), err)
			}
			val, err := coerce(iter.Value().Interface(), targetType.Elem(), converters)
			if err != nil {
				return nil, true, fmt.Errorf("映射键 %v 的值: %w", iter.Key(), err)
			}
			elemVal := reflect.Zero(targetType.Elem())
			if val != nil {
				elemVal = reflect.ValueOf(val)
			}
			out.SetMapIndex(reflect.ValueOf(key), elemVal)
		}
		return out.Interface(), true, nil
	}
	return nil, false, nil
}
