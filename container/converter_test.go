package container_test

import (
	"fmt"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/beans/container"
)

type tunables struct {
	Enabled  bool
	Workers  int
	Ratio    float64
	Interval time.Duration
	Deadline time.Time
}

// 字符串字面量按目标类型解析，配置文件里的值因此都能写成字符串。
func TestStringCoercion(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[tunables]()
	def.Properties.Add("Enabled", "true").
		Add("Workers", "8").
		Add("Ratio", "0.75").
		Add("Interval", "1m30s")
	require.NoError(t, factory.RegisterBeanDefinition("tunables", def))

	v := factory.MustGetBean("tunables").(*tunables)
	assert.True(t, v.Enabled)
	assert.Equal(t, 8, v.Workers)
	assert.Equal(t, 0.75, v.Ratio)
	assert.Equal(t, 90*time.Second, v.Interval)
}

func TestNumericWidening(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[tunables]()
	def.Properties.Add("Ratio", 1) // int → float64
	require.NoError(t, factory.RegisterBeanDefinition("tunables", def))

	v := factory.MustGetBean("tunables").(*tunables)
	assert.Equal(t, 1.0, v.Ratio)
}

// int→string 的 Go 语言级转换会产生码点字符串，必须拒绝而不是默许。
type labeled struct{ Name string }

func TestIntToStringRejected(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[labeled]()
	def.Properties.Add("Name", 65)
	require.NoError(t, factory.RegisterBeanDefinition("labeled", def))

	_, err := factory.GetBean("labeled")
	require.Error(t, err)
}

func TestInvalidStringValue(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[tunables]()
	def.Properties.Add("Workers", "many")
	require.NoError(t, factory.RegisterBeanDefinition("tunables", def))

	_, err := factory.GetBean("tunables")
	require.Error(t, err)
}

type upstream struct {
	Endpoint *url.URL
}

func TestCustomConverter(t *testing.T) {
	factory := container.New()
	factory.RegisterConverter(reflect.TypeOf((*url.URL)(nil)), func(value any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("期望字符串，得到 %T", value)
		}
		return url.Parse(s)
	})

	def := container.NewBeanDefinition[upstream]()
	def.Properties.Add("Endpoint", "https://example.com/api")
	require.NoError(t, factory.RegisterBeanDefinition("upstream", def))

	u := factory.MustGetBean("upstream").(*upstream)
	require.NotNil(t, u.Endpoint)
	assert.Equal(t, "example.com", u.Endpoint.Host)
}

func TestCustomConverterError(t *testing.T) {
	factory := container.New()
	factory.RegisterConverter(reflect.TypeOf((*url.URL)(nil)), func(value any) (any, error) {
		return nil, fmt.Errorf("总是失败")
	})

	def := container.NewBeanDefinition[upstream]()
	def.Properties.Add("Endpoint", "whatever")
	require.NoError(t, factory.RegisterBeanDefinition("upstream", def))

	_, err := factory.GetBean("upstream")
	require.Error(t, err)
}

func TestNilAssignableToPointerOnly(t *testing.T) {
	factory := container.New()

	okDef := container.NewBeanDefinition[upstream]()
	okDef.Properties.Add("Endpoint", nil)
	require.NoError(t, factory.RegisterBeanDefinition("nilPointer", okDef))
	u := factory.MustGetBean("nilPointer").(*upstream)
	assert.Nil(t, u.Endpoint)

	badDef := container.NewBeanDefinition[tunables]()
	badDef.Properties.Add("Workers", nil)
	require.NoError(t, factory.RegisterBeanDefinition("nilInt", badDef))
	_, err := factory.GetBean("nilInt")
	require.Error(t, err)
}

func TestSliceElementCoercion(t *testing.T) {
	factory := container.New()

	def := container.NewBeanDefinition[collector]()
	def.Properties.Add("Tags", container.ManagedList{"a", "b"})
	def.Properties.Add("Weights", container.ManagedMap{{Key: "w", Value: "3"}})
	require.NoError(t, factory.RegisterBeanDefinition("collector", def))

	c := factory.MustGetBean("collector").(*collector)
	assert.Equal(t, []string{"a", "b"}, c.Tags)
	assert.Equal(t, map[string]int{"w": 3}, c.Weights)
}

func TestConverterReusedAcrossInstances(t *testing.T) {
	factory := container.New()
	factory.RegisterConverter(reflect.TypeOf((*url.URL)(nil)), func(value any) (any, error) {
		return url.Parse(value.(string))
	})

	def := container.NewBeanDefinition[upstream]()
	def.Scope = container.ScopePrototype
	def.Properties.Add("Endpoint", "https://example.com")
	require.NoError(t, factory.RegisterBeanDefinition("upstream", def))

	first := factory.MustGetBean("upstream").(*upstream)
	second := factory.MustGetBean("upstream").(*upstream)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Endpoint.Host, second.Endpoint.Host)
}
