package schedule_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/beans/container"
	"github.com/gocrud/beans/logging"
	"github.com/gocrud/beans/schedule"
)

type tickTask struct {
	spec string

	mu   sync.Mutex
	runs int
}

func (t *tickTask) Spec() string { return t.spec }

func (t *tickTask) Run() {
	t.mu.Lock()
	t.runs++
	t.mu.Unlock()
}

func (t *tickTask) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func TestAddTask(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger())

	require.NoError(t, svc.AddTask("tick", &tickTask{spec: "@every 1h"}))
	assert.Equal(t, []string{"tick"}, svc.TaskNames())
}

func TestAddTaskDuplicateName(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger())

	require.NoError(t, svc.AddTask("tick", &tickTask{spec: "@every 1h"}))
	require.Error(t, svc.AddTask("tick", &tickTask{spec: "@every 1h"}))
}

func TestAddTaskInvalidSpec(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger())

	err := svc.AddTask("broken", &tickTask{spec: "not a cron spec"})
	require.Error(t, err)
	assert.Empty(t, svc.TaskNames())
}

func TestRemoveTask(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger())

	require.NoError(t, svc.AddTask("tick", &tickTask{spec: "@every 1h"}))
	svc.RemoveTask("tick")
	assert.Empty(t, svc.TaskNames())

	// 移除后同名任务可以重新注册
	require.NoError(t, svc.AddTask("tick", &tickTask{spec: "@every 1h"}))
}

func TestServiceRunsTask(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger(), schedule.WithSeconds())
	task := &tickTask{spec: "* * * * * *"}
	require.NoError(t, svc.AddTask("tick", task))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	require.Eventually(t, func() bool { return task.count() > 0 },
		3*time.Second, 50*time.Millisecond, "task should fire at second granularity")

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, svc.Stop(context.Background()))
}

func TestStartStopWithoutTasks(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, svc.Stop(context.Background()))
}

// 容器中实现 Task 的 Bean 经后置处理器自动注册。
type reportTask struct {
	Cron string
}

func (t *reportTask) Spec() string { return t.Cron }
func (t *reportTask) Run()         {}

func TestPostProcessorRegistersTaskBeans(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger())

	factory := container.New()
	factory.AddBeanPostProcessor(schedule.NewPostProcessor(svc))

	def := container.NewBeanDefinition[reportTask]()
	def.Properties.Add("Cron", "@daily")
	require.NoError(t, factory.RegisterBeanDefinition("reportTask", def))

	// 非 Task Bean 不受影响
	require.NoError(t, factory.RegisterBeanDefinition("plain", container.NewBeanDefinition[struct{ N int }]()))

	factory.MustGetBean("reportTask")
	factory.MustGetBean("plain")

	assert.Equal(t, []string{"reportTask"}, svc.TaskNames())
}

func TestPostProcessorRejectsInvalidTaskBean(t *testing.T) {
	svc := schedule.NewService(logging.NewNopLogger())

	factory := container.New()
	factory.AddBeanPostProcessor(schedule.NewPostProcessor(svc))

	def := container.NewBeanDefinition[reportTask]()
	def.Properties.Add("Cron", "gibberish")
	require.NoError(t, factory.RegisterBeanDefinition("badTask", def))

	_, err := factory.GetBean("badTask")
	require.Error(t, err)
}
