package container

import (
	"fmt"
	"reflect"
	"time"
)

// BeanAccessor 包装一个活动实例，暴露其可写属性用于类型转换后的赋值。
// 可写属性即实例底层结构体的导出字段。
type BeanAccessor struct {
	instance   any
	structVal  reflect.Value // 底层结构体（可寻址），非结构体实例时无效
	converters *converterRegistry
}

// newBeanAccessor 包装 instance。instance 应为指向结构体的指针；
// 其他类型也可包装，但没有可写属性。
func newBeanAccessor(instance any, converters *converterRegistry) *BeanAccessor {
	a := &BeanAccessor{instance: instance, converters: converters}
	v := reflect.ValueOf(instance)
	if v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Kind() == reflect.Struct {
		a.structVal = v.Elem()
	}
	return a
}

// Instance 返回被包装的实例。
func (a *BeanAccessor) Instance() any {
	return a.instance
}

// PropertyNames 返回全部可写属性名（导出字段，按声明顺序）。
func (a *BeanAccessor) PropertyNames() []string {
	if !a.structVal.IsValid() {
		return nil
	}
	t := a.structVal.Type()
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() {
			names = append(names, f.Name)
		}
	}
	return names
}

// PropertyType 返回名为 name 的属性类型，不存在或不可写时返回 nil。
func (a *BeanAccessor) PropertyType(name string) reflect.Type {
	if !a.structVal.IsValid() {
		return nil
	}
	f, ok := a.structVal.Type().FieldByName(name)
	if !ok || !f.IsExported() {
		return nil
	}
	return f.Type
}

// HasProperty 报告是否存在名为 name 的可写属性。
func (a *BeanAccessor) HasProperty(name string) bool {
	return a.PropertyType(name) != nil
}

// PropertySet 报告名为 name 的属性当前是否已持有非零值。
func (a *BeanAccessor) PropertySet(name string) bool {
	if !a.structVal.IsValid() {
		return false
	}
	f := a.structVal.FieldByName(name)
	if !f.IsValid() {
		return false
	}
	return !f.IsZero()
}

// SetProperty 把 value 经类型转换后赋给名为 name 的属性。
func (a *BeanAccessor) SetProperty(name string, value any) error {
	if !a.structVal.IsValid() {
		return fmt.Errorf("实例 %T 不是结构体指针，没有可写属性", a.instance)
	}
	field := a.structVal.FieldByName(name)
	structField, ok := a.structVal.Type().FieldByName(name)
	if !ok || !structField.IsExported() {
		return fmt.Errorf("属性 %q 不存在或不可写", name)
	}
	converted, err := a.converters.convert(value, structField.Type)
	if err != nil {
		return fmt.Errorf("属性 %q: %w", name, err)
	}
	if converted == nil {
		field.Set(reflect.Zero(structField.Type))
		return nil
	}
	field.Set(reflect.ValueOf(converted))
	return nil
}

// isSimpleType 报告 t 是否为简单类型：基本类型、字符串、时间与时长。
// 依赖检查用它区分"简单属性"与"对象属性"。
func isSimpleType(t reflect.Type) bool {
	if t == reflect.TypeOf(time.Time{}) || t == reflect.TypeOf(time.Duration(0)) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	}
	return false
}
