package host

import (
	"sync"

	"github.com/gocrud/beans/container"
	"github.com/gocrud/beans/logging"
)

// Configurator 在宿主构建阶段向容器注册 Bean 的扩展点
// configure/ 下的各后端 glue 包都通过它接入
type Configurator func(ctx *BuildContext) error

// BuildContext 构建上下文，Configurator 通过它访问容器并登记清理函数
type BuildContext struct {
	factory *container.BeanFactory
	logger  logging.Logger

	mu       sync.Mutex
	cleanups []namedCleanup
}

type namedCleanup struct {
	key string
	fn  func()
}

// Factory 返回正在构建的 Bean 工厂
func (c *BuildContext) Factory() *container.BeanFactory {
	return c.factory
}

// Logger 返回宿主日志记录器
func (c *BuildContext) Logger() logging.Logger {
	return c.logger
}

// SetCleanup 登记清理函数，宿主停止时倒序执行；同名键覆盖
func (c *BuildContext) SetCleanup(key string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.cleanups {
		if existing.key == key {
			c.cleanups[i].fn = fn
			return
		}
	}
	c.cleanups = append(c.cleanups, namedCleanup{key: key, fn: fn})
}

func (c *BuildContext) runCleanups() {
	c.mu.Lock()
	cleanups := make([]namedCleanup, len(c.cleanups))
	copy(cleanups, c.cleanups)
	c.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i].fn()
	}
}
