package etcd

import (
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/beans/host"
	"github.com/gocrud/beans/logging"
)

// Builder Etcd 客户端配置构建器
type Builder struct {
	configs []ClientOptions
	errors  []error
}

// NewBuilder 创建 Etcd 构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 etcd 客户端工厂
func (b *Builder) Build(logger logging.Logger) (*ClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("etcd configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewClientFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
		logger.Info("Etcd 客户端已注册",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "endpoints", Value: opts.Endpoints})
	}
	return factory, nil
}

// Configure 返回 etcd 配置器：把客户端注册为容器单例
//
// 每个客户端以 "etcd:<name>" 注册，"default" 客户端额外注册为 "etcd"。
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

		if err := ctx.Factory().RegisterSingleton("etcdClients", factory); err != nil {
			return err
		}

		var registerErr error
		factory.Each(func(name string, client *clientv3.Client) {
			if registerErr != nil {
				return
			}
			if registerErr = ctx.Factory().RegisterSingleton("etcd:"+name, client); registerErr != nil {
				return
			}
			if name == "default" {
				registerErr = ctx.Factory().RegisterSingleton("etcd", client)
			}
		})
		if registerErr != nil {
			return registerErr
		}

		ctx.SetCleanup("etcd", func() {
			if err := factory.Close(); err != nil {
				ctx.Logger().Error("关闭 Etcd 客户端失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
		return nil
	}
}
