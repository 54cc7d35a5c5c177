// Package host 提供把容器管理的 Bean 作为长驻应用运行的宿主：
// 构建容器、发现并启动托管服务 Bean、监听退出信号、优雅关闭并销毁单例。
package host

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/beans/container"
	"github.com/gocrud/beans/hosting"
	"github.com/gocrud/beans/logging"
)

// Host 应用宿主
type Host struct {
	factory      *container.BeanFactory
	buildCtx     *BuildContext
	logger       logging.Logger
	stopTimeout  time.Duration
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// Factory 返回宿主持有的 Bean 工厂
func (h *Host) Factory() *container.BeanFactory {
	return h.factory
}

// Shutdown 请求宿主退出，可并发多次调用
func (h *Host) Shutdown() {
	h.shutdownOnce.Do(func() {
		close(h.shutdownCh)
	})
}

// Run 启动宿主并阻塞，直到收到退出信号、Shutdown 被调用或某个托管服务异常退出
func (h *Host) Run() error {
	manager := hosting.NewManager(h.logger)
	if err := manager.Discover(h.factory); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := manager.StartAll(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
		h.logger.Info("收到退出信号")
	case <-h.shutdownCh:
		h.logger.Info("宿主请求退出")
	case err := <-errCh:
		h.logger.Error("托管服务失败，触发关闭", logging.Field{Key: "error", Value: err.Error()})
		runErr = err
	}

	h.stop(manager, cancel)
	return runErr
}

func (h *Host) stop(manager *hosting.Manager, cancel context.CancelFunc) {
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), h.stopTimeout)
	defer stopCancel()

	_ = manager.StopAll(stopCtx)
	manager.Wait()

	// 先跑配置器登记的清理（关闭客户端连接等），再销毁单例
	h.buildCtx.runCleanups()
	h.factory.DestroySingletons()
}
