package mongodb

import (
	"fmt"

	"github.com/gocrud/mgo"

	"github.com/gocrud/beans/host"
	"github.com/gocrud/beans/logging"
)

// Builder MongoDB 配置构建器
type Builder struct {
	configs []Options
	errors  []error
}

// NewBuilder 创建 MongoDB 构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 添加一个 MongoDB 客户端配置
func (b *Builder) Add(name string, uri string, configure func(*Options)) *Builder {
	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 MongoDB 客户端工厂
func (b *Builder) Build(logger logging.Logger) (*Factory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("mongo configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
		logger.Info("Mongo 客户端已注册",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "uri", Value: opts.Uri})
	}
	return factory, nil
}

// Configure 返回 MongoDB 配置器：把客户端注册为容器单例
//
// 每个客户端以 "mongo:<name>" 注册，"default" 客户端额外注册为 "mongo"。
func Configure(options func(*Builder)) host.Configurator {
	return func(ctx *host.BuildContext) error {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.Logger())
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		if err := ctx.Factory().RegisterSingleton("mongoClients", factory); err != nil {
			return err
		}

		var registerErr error
		factory.Each(func(name string, client *mgo.Client) {
			if registerErr != nil {
				return
			}
			if registerErr = ctx.Factory().RegisterSingleton("mongo:"+name, client); registerErr != nil {
				return
			}
			if name == "default" {
				registerErr = ctx.Factory().RegisterSingleton("mongo", client)
			}
		})
		if registerErr != nil {
			return registerErr
		}

		ctx.SetCleanup("mongodb", func() {
			if err := factory.Close(); err != nil {
				ctx.Logger().Error("关闭 Mongo 客户端失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
		return nil
	}
}
