package yamldef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/beans/container"
)

type repository struct {
	DSN     string
	MaxConn int
}

type service struct {
	Repo   *repository
	Tags   []string
	Limits map[string]int
}

func newTestLoader() *Loader {
	loader := NewLoader()
	RegisterType[repository](loader, "Repository")
	RegisterType[service](loader, "Service")
	return loader
}

func TestLoadDefinitions(t *testing.T) {
	doc := `
beans:
  repo:
    type: Repository
    properties:
      DSN: "file::memory:"
      MaxConn: 10
  svc:
    type: Service
    properties:
      Repo: { ref: repo }
      Tags: { list: [alpha, beta] }
      Limits: { map: { read: 100, write: 10 } }
`
	factory := container.New()
	require.NoError(t, newTestLoader().Load([]byte(doc), factory))

	bean, err := factory.GetBean("svc")
	require.NoError(t, err)

	svc := bean.(*service)
	assert.Equal(t, "file::memory:", svc.Repo.DSN)
	assert.Equal(t, 10, svc.Repo.MaxConn)
	assert.Equal(t, []string{"alpha", "beta"}, svc.Tags)
	assert.Equal(t, map[string]int{"read": 100, "write": 10}, svc.Limits)

	// 两条路径命中同一个单例
	repo, err := factory.GetBean("repo")
	require.NoError(t, err)
	assert.Same(t, svc.Repo, repo.(*repository))
}

func TestLoadPrototypeScope(t *testing.T) {
	doc := `
beans:
  repo:
    type: Repository
    scope: prototype
`
	factory := container.New()
	require.NoError(t, newTestLoader().Load([]byte(doc), factory))

	first, err := factory.GetBean("repo")
	require.NoError(t, err)
	second, err := factory.GetBean("repo")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestLoadInnerBean(t *testing.T) {
	doc := `
beans:
  svc:
    type: Service
    properties:
      Repo:
        bean:
          type: Repository
          properties:
            DSN: inner
`
	factory := container.New()
	require.NoError(t, newTestLoader().Load([]byte(doc), factory))

	bean, err := factory.GetBean("svc")
	require.NoError(t, err)
	assert.Equal(t, "inner", bean.(*service).Repo.DSN)

	// 内部 Bean 不注册顶层名称
	assert.False(t, factory.ContainsBean("Repository"))
}

func TestLoadUnknownType(t *testing.T) {
	doc := `
beans:
  ghost:
    type: Ghost
`
	err := newTestLoader().Load([]byte(doc), container.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未注册")
}

func TestLoadFactoryFn(t *testing.T) {
	doc := `
beans:
  repo:
    factory: newRepository
`
	loader := NewLoader()
	loader.RegisterFactory("newRepository", func() (*repository, error) {
		return &repository{DSN: "from-factory"}, nil
	})

	factory := container.New()
	require.NoError(t, loader.Load([]byte(doc), factory))

	bean, err := factory.GetBean("repo")
	require.NoError(t, err)
	assert.Equal(t, "from-factory", bean.(*repository).DSN)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beans.yaml")
	require.NoError(t, os.WriteFile(path, []byte("beans:\n  repo:\n    type: Repository\n"), 0o644))

	factory := container.New()
	require.NoError(t, newTestLoader().LoadFile(path, factory))
	assert.True(t, factory.ContainsBean("repo"))
}
