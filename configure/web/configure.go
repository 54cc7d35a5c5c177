package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/beans/host"
)

// Builder Web 服务配置构建器（基于 Gin）
type Builder struct {
	port       int
	mode       string
	basePath   string
	middleware []gin.HandlerFunc
}

// NewBuilder 创建 Web 构建器
func NewBuilder() *Builder {
	return &Builder{
		port:     8080,
		mode:     gin.ReleaseMode,
		basePath: "/",
	}
}

// UsePort 设置监听端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// UseMode 设置 Gin 模式
func (b *Builder) UseMode(mode string) *Builder {
	b.mode = mode
	return b
}

// UseBasePath 设置路由 Bean 挂载的基础路径
func (b *Builder) UseBasePath(path string) *Builder {
	b.basePath = path
	return b
}

// Use 附加全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.middleware = append(b.middleware, middleware...)
	return b
}

// Configure 返回 Web 配置器：注册 Gin 引擎与服务器 Bean
//
// 引擎以 "ginEngine" 注册；服务器以 "webServer" 注册，
// 作为托管服务随宿主启动，启动前挂载容器中的 Router Bean。
func Configure(options func(*Builder)) host.Configurator {
	return func(ctx *host.BuildContext) error {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		gin.SetMode(builder.mode)
		engine := gin.New()
		engine.Use(gin.Recovery())
		engine.Use(builder.middleware...)

		server := &Server{
			engine: engine,
			server: &http.Server{
				Addr:    fmt.Sprintf(":%d", builder.port),
				Handler: engine,
			},
			factory:  ctx.Factory(),
			basePath: builder.basePath,
			logger:   ctx.Logger(),
		}

		if err := ctx.Factory().RegisterSingleton("ginEngine", engine); err != nil {
			return err
		}
		return ctx.Factory().RegisterSingleton("webServer", server)
	}
}
