package host

import (
	"time"

	"github.com/gocrud/beans/container"
	"github.com/gocrud/beans/logging"
)

// Builder 宿主构建器
type Builder struct {
	logger        logging.Logger
	containerOpts []container.Option
	configurators []Configurator
	stopTimeout   time.Duration
}

// NewBuilder 创建宿主构建器
func NewBuilder() *Builder {
	return &Builder{
		stopTimeout: 5 * time.Second,
	}
}

// UseLogger 设置宿主与容器共用的日志记录器
func (b *Builder) UseLogger(logger logging.Logger) *Builder {
	b.logger = logger
	return b
}

// UseContainerOptions 附加容器选项（父工厂、实例化策略等）
func (b *Builder) UseContainerOptions(opts ...container.Option) *Builder {
	b.containerOpts = append(b.containerOpts, opts...)
	return b
}

// Configure 附加配置器，Build 时按注册顺序执行
func (b *Builder) Configure(configurators ...Configurator) *Builder {
	b.configurators = append(b.configurators, configurators...)
	return b
}

// SetStopTimeout 设置优雅关闭的超时时间（默认 5 秒）
func (b *Builder) SetStopTimeout(d time.Duration) *Builder {
	b.stopTimeout = d
	return b
}

// Build 构建宿主：创建容器并执行全部配置器
func (b *Builder) Build() (*Host, error) {
	logger := b.logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	opts := append([]container.Option{container.WithLogger(logger)}, b.containerOpts...)
	factory := container.New(opts...)

	ctx := &BuildContext{factory: factory, logger: logger}
	for _, configure := range b.configurators {
		if err := configure(ctx); err != nil {
			return nil, err
		}
	}

	return &Host{
		factory:     factory,
		buildCtx:    ctx,
		logger:      logger,
		stopTimeout: b.stopTimeout,
		shutdownCh:  make(chan struct{}),
	}, nil
}
