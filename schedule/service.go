// Package schedule 把容器管理的 Bean 接入 cron 调度：
// 实现 Task 的 Bean 经后置处理器在初始化完成后自动注册为定时任务，
// Service 作为托管服务随宿主启动调度器。
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/beans/logging"
)

// Task 定时任务接口，容器中实现此接口的 Bean 会被自动调度
type Task interface {
	// Spec 返回 cron 表达式，如 "*/5 * * * *"（每 5 分钟）
	Spec() string
	// Run 执行任务
	Run()
}

// Service Cron 调度托管服务
type Service struct {
	cron   *cron.Cron
	logger logging.Logger
	mu     sync.RWMutex
	jobs   map[string]cron.EntryID
}

// Option 调度服务选项
type Option func(*options)

type options struct {
	location      *time.Location
	enableSeconds bool
}

// WithLocation 设置调度时区（默认本地时区）
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithSeconds 启用秒级精度（默认分钟级）
func WithSeconds() Option {
	return func(o *options) { o.enableSeconds = true }
}

// NewService 创建调度服务
func NewService(logger logging.Logger, opts ...Option) *Service {
	opt := &options{}
	for _, o := range opts {
		o(opt)
	}

	cronOpts := []cron.Option{
		cron.WithChain(cron.Recover(newCronLogger(logger))),
	}
	if opt.location != nil {
		cronOpts = append(cronOpts, cron.WithLocation(opt.location))
	}
	if opt.enableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &Service{
		cron:   cron.New(cronOpts...),
		logger: logger,
		jobs:   make(map[string]cron.EntryID),
	}
}

// AddTask 按名称注册任务，表达式无效时返回错误
func (s *Service) AddTask(name string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("schedule: 任务 '%s' 已注册", name)
	}

	entryID, err := s.cron.AddFunc(task.Spec(), func() {
		s.logger.Debug("定时任务开始", logging.Field{Key: "task", Value: name})
		task.Run()
		s.logger.Debug("定时任务完成", logging.Field{Key: "task", Value: name})
	})
	if err != nil {
		return fmt.Errorf("schedule: 注册任务 '%s' 失败: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("定时任务已注册",
		logging.Field{Key: "task", Value: name},
		logging.Field{Key: "spec", Value: task.Spec()})
	return nil
}

// RemoveTask 按名称移除任务
func (s *Service) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}
}

// TaskNames 返回已注册的任务名称
func (s *Service) TaskNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start 启动调度器并阻塞到 context 取消
func (s *Service) Start(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	return ctx.Err()
}

// Stop 停止调度器，等待运行中的任务完成或 ctx 超时
func (s *Service) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 把 cron 库的日志接到宿主日志
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, toFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := append(toFields(keysAndValues), logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func toFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, logging.Field{Key: key, Value: keysAndValues[i+1]})
	}
	return fields
}
