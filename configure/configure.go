// Package configure 汇总各后端的便捷配置器导出。
package configure

import (
	"github.com/gocrud/beans/configure/database"
	"github.com/gocrud/beans/configure/etcd"
	"github.com/gocrud/beans/configure/mongodb"
	"github.com/gocrud/beans/configure/redis"
	"github.com/gocrud/beans/configure/web"
	"github.com/gocrud/beans/host"
)

// Redis 便捷导出 redis 配置器
// 使用示例: builder.Configure(configure.Redis(func(b *redis.Builder) { ... }))
func Redis(options func(*redis.Builder)) host.Configurator {
	return redis.Configure(options)
}

// Database 便捷导出数据库配置器
// 使用示例: builder.Configure(configure.Database(func(b *database.Builder) { ... }))
func Database(options func(*database.Builder)) host.Configurator {
	return database.Configure(options)
}

// Mongo 便捷导出 MongoDB 配置器
// 使用示例: builder.Configure(configure.Mongo(func(b *mongodb.Builder) { ... }))
func Mongo(options func(*mongodb.Builder)) host.Configurator {
	return mongodb.Configure(options)
}

// Etcd 便捷导出 etcd 配置器
// 使用示例: builder.Configure(configure.Etcd(func(b *etcd.Builder) { ... }))
func Etcd(options func(*etcd.Builder)) host.Configurator {
	return etcd.Configure(options)
}

// Web 便捷导出 web 配置器
// 使用示例: builder.Configure(configure.Web(func(b *web.Builder) { ... }))
func Web(options func(*web.Builder)) host.Configurator {
	return web.Configure(options)
}
