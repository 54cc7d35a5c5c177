package schedule

// PostProcessor 在初始化完成后把实现 Task 的 Bean 注册到调度服务
type PostProcessor struct {
	service *Service
}

// NewPostProcessor 创建调度后置处理器
func NewPostProcessor(service *Service) *PostProcessor {
	return &PostProcessor{service: service}
}

// BeforeInitialization 原样返回实例
func (p *PostProcessor) BeforeInitialization(instance any, beanName string) (any, error) {
	return instance, nil
}

// AfterInitialization 对实现 Task 的 Bean 注册定时任务
func (p *PostProcessor) AfterInitialization(instance any, beanName string) (any, error) {
	if task, ok := instance.(Task); ok {
		if err := p.service.AddTask(beanName, task); err != nil {
			return nil, err
		}
	}
	return instance, nil
}
