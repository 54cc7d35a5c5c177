package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gocrud/beans/host"
	"github.com/gocrud/beans/logging"
)

// Builder 数据库配置构建器
type Builder struct {
	configs []Options
	errors  []error
}

// NewBuilder 创建数据库构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 添加一个数据库配置
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid database configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建数据库工厂
func (b *Builder) Build(logger logging.Logger) (*Factory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("database configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
		logger.Info("数据库已注册", logging.Field{Key: "name", Value: opts.Name})
	}
	return factory, nil
}

// Configure 返回数据库配置器：把 gorm 实例注册为容器单例
//
// 每个实例以 "db:<name>" 注册，"default" 实例额外注册为 "db"。
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

		if err := ctx.Factory().RegisterSingleton("databases", factory); err != nil {
			return err
		}

		var registerErr error
		factory.Each(func(name string, db *gorm.DB) {
			if registerErr != nil {
				return
			}
			if registerErr = ctx.Factory().RegisterSingleton("db:"+name, db); registerErr != nil {
				return
			}
			if name == "default" {
				registerErr = ctx.Factory().RegisterSingleton("db", db)
			}
		})
		if registerErr != nil {
			return registerErr
		}

		ctx.SetCleanup("database", func() {
			if err := factory.Close(); err != nil {
				ctx.Logger().Error("关闭数据库连接失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
		return nil
	}
}
