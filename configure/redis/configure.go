package redis

import (
	goredis "github.com/redis/go-redis/v9"

	"github.com/gocrud/beans/host"
	"github.com/gocrud/beans/logging"
)

// Configure 返回 Redis 配置器：把客户端注册为容器单例
// 使用示例: builder.Configure(redis.Configure(func(b *redis.Builder) { ... }))
//
// 每个客户端以 "redis:<name>" 注册，"default" 客户端额外注册为 "redis"。
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

		if err := ctx.Factory().RegisterSingleton("redisClients", factory); err != nil {
			return err
		}

		var registerErr error
		factory.Each(func(name string, client *goredis.Client) {
			if registerErr != nil {
				return
			}
			if registerErr = ctx.Factory().RegisterSingleton("redis:"+name, client); registerErr != nil {
				return
			}
			if name == "default" {
				registerErr = ctx.Factory().RegisterSingleton("redis", client)
			}
		})
		if registerErr != nil {
			return registerErr
		}

		ctx.SetCleanup("redis", func() {
			if err := factory.Close(); err != nil {
				ctx.Logger().Error("关闭 Redis 客户端失败",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
		return nil
	}
}
