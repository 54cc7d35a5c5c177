package web

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/beans/container"
	"github.com/gocrud/beans/logging"
)

// Router 路由 Bean 接口
// 容器中实现此接口的 Bean 会在服务器启动前挂载到引擎上
type Router interface {
	Mount(group *gin.RouterGroup)
}

var routerType = reflect.TypeOf((*Router)(nil)).Elem()

// Server 基于 Gin 的 Web 托管服务
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	factory  *container.BeanFactory
	basePath string
	logger   logging.Logger
}

// Engine 返回底层 Gin 引擎（用于高级定制）
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// mountRouters 按类型从容器发现路由 Bean 并挂载
func (s *Server) mountRouters() error {
	matches, err := s.factory.FindMatchingBeans(routerType)
	if err != nil {
		return fmt.Errorf("web: 发现路由 Bean 失败: %w", err)
	}

	names := make([]string, 0, len(matches))
	for name := range matches {
		names = append(names, name)
	}
	sort.Strings(names)

	group := s.engine.Group(s.basePath)
	for _, name := range names {
		matches[name].(Router).Mount(group)
		s.logger.Debug("路由 Bean 已挂载", logging.Field{Key: "router", Value: name})
	}
	return nil
}

// Start 挂载路由并启动 HTTP 服务器，阻塞到 context 取消或监听失败
func (s *Server) Start(ctx context.Context) error {
	if err := s.mountRouters(); err != nil {
		return err
	}

	s.logger.Info("Web 服务器启动", logging.Field{Key: "addr", Value: s.server.Addr})

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		// Stop 负责关闭
		return nil
	}
}

// Stop 优雅关闭 HTTP 服务器
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("web: 关闭服务器失败: %w", err)
	}
	s.logger.Info("Web 服务器已停止")
	return nil
}
