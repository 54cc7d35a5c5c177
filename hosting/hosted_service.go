package hosting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/gocrud/beans/container"
	"github.com/gocrud/beans/logging"
)

// HostedService 托管服务接口
// 宿主会自动在 goroutine 中调用 Start，用户无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务。该方法应阻塞执行，直到 context 被取消或发生错误。
	// 宿主会在独立的 goroutine 中调用此方法。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑。
	// 当 Start 的 context 被取消时服务应自动停止，
	// Stop 用于执行额外的清理工作（可选）。
	Stop(ctx context.Context) error
}

// hostedServiceType 用于按类型从容器发现托管服务 Bean
var hostedServiceType = reflect.TypeOf((*HostedService)(nil)).Elem()

type entry struct {
	name    string
	service HostedService
}

// Manager 托管服务管理器
type Manager struct {
	entries []entry
	logger  logging.Logger
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewManager 创建托管服务管理器
func NewManager(logger logging.Logger) *Manager {
	return &Manager{logger: logger}
}

// Add 添加命名的托管服务
func (m *Manager) Add(name string, service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{name: name, service: service})
}

// Discover 从工厂中按类型发现托管服务 Bean 并全部纳入管理
func (m *Manager) Discover(factory *container.BeanFactory) error {
	matches, err := factory.FindMatchingBeans(hostedServiceType)
	if err != nil {
		return fmt.Errorf("hosting: 发现托管服务失败: %w", err)
	}

	names := make([]string, 0, len(matches))
	for name := range matches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m.Add(name, matches[name].(HostedService))
	}
	return nil
}

// Count 返回已注册的托管服务数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartAll 并发启动所有托管服务，每个服务在独立的 goroutine 中运行
// 返回的通道会收到各服务 Start 的非取消错误
func (m *Manager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.entries))

	for _, e := range m.entries {
		m.wg.Add(1)
		go func(e entry) {
			defer m.wg.Done()

			m.logger.Debug("启动托管服务", logging.Field{Key: "service", Value: e.name})

			if err := e.service.Start(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					m.logger.Debug("托管服务随上下文退出", logging.Field{Key: "service", Value: e.name})
					return
				}
				m.logger.Error("托管服务异常退出",
					logging.Field{Key: "service", Value: e.name},
					logging.Field{Key: "error", Value: err.Error()})
				select {
				case errCh <- fmt.Errorf("hosting: 服务 '%s' 异常退出: %w", e.name, err):
				default:
				}
				return
			}

			m.logger.Debug("托管服务正常结束", logging.Field{Key: "service", Value: e.name})
		}(e)
	}

	m.logger.Info("托管服务已启动", logging.Field{Key: "count", Value: len(m.entries)})
	return errCh
}

// StopAll 逆序并发停止所有托管服务，等待全部完成
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var wg sync.WaitGroup
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			if err := e.service.Stop(ctx); err != nil {
				m.logger.Error("停止托管服务失败",
					logging.Field{Key: "service", Value: e.name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}(e)
	}
	wg.Wait()

	m.logger.Info("托管服务已全部停止", logging.Field{Key: "count", Value: len(m.entries)})
	return nil
}

// Wait 等待所有服务的 Start goroutine 返回
func (m *Manager) Wait() {
	m.wg.Wait()
}
