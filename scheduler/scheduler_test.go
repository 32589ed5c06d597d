package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/persistence/redis"
	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func taskStorage(t *testing.T) persistence.TaskStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	return redis.NewRedisTaskStorageWithClient(client, "test")
}

func intervalSpec() *TaskSpec {
	return &TaskSpec{
		ScheduleType: model.SCHEDULE_TYPE_INTERVAL,
		IntervalMs:   60_000,
		BotId:        "bot-1",
		FlowId:       "flow-1",
		NodeId:       "node-1",
		UserId:       42,
		ChatId:       77,
	}
}

func TestCreateTaskSchedulesFirstFiring(t *testing.T) {
	tasks := taskStorage(t)
	s := NewScheduler(tasks)

	taskId, err := s.CreateTask(context.Background(), intervalSpec())
	require.NoError(t, err)
	require.NotEmpty(t, taskId)

	status, err := s.GetTaskStatus(context.Background(), taskId)
	require.NoError(t, err)
	require.Equal(t, model.TASK_STATUS_SCHEDULED, status)

	// Not due yet, due after the interval elapses.
	due, err := tasks.PopDue(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Empty(t, due)

	due, err = tasks.PopDue(context.Background(), time.Now().Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Equal(t, []string{taskId}, due)

	// Popped entries are consumed.
	due, err = tasks.PopDue(context.Background(), time.Now().Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestPopDueOrdersByFireTime(t *testing.T) {
	tasks := taskStorage(t)
	now := time.Now()
	require.NoError(t, tasks.PushDue(context.Background(), "late", now.Add(30*time.Second)))
	require.NoError(t, tasks.PushDue(context.Background(), "early", now.Add(5*time.Second)))
	require.NoError(t, tasks.PushDue(context.Background(), "future", now.Add(time.Hour)))

	due, err := tasks.PopDue(context.Background(), now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"early", "late"}, due)
}

func TestCancelTaskMarksStatus(t *testing.T) {
	tasks := taskStorage(t)
	s := NewScheduler(tasks)

	taskId, err := s.CreateTask(context.Background(), intervalSpec())
	require.NoError(t, err)
	require.NoError(t, s.CancelTask(context.Background(), taskId))

	status, err := s.GetTaskStatus(context.Background(), taskId)
	require.NoError(t, err)
	require.Equal(t, model.TASK_STATUS_CANCELLED, status)
}

func TestCreateTaskValidation(t *testing.T) {
	s := NewScheduler(taskStorage(t))

	scenarios := map[string]func(*TaskSpec){
		"zero interval": func(spec *TaskSpec) { spec.IntervalMs = 0 },
		"bad cron":      func(spec *TaskSpec) { spec.ScheduleType = model.SCHEDULE_TYPE_CRON; spec.CronExpression = "nope" },
		"missing bot":   func(spec *TaskSpec) { spec.BotId = "" },
		"missing node":  func(spec *TaskSpec) { spec.NodeId = "" },
		"unknown type":  func(spec *TaskSpec) { spec.ScheduleType = "sometimes" },
	}
	for name, mutate := range scenarios {
		t.Run(name, func(t *testing.T) {
			spec := intervalSpec()
			mutate(spec)
			_, err := s.CreateTask(context.Background(), spec)
			require.Error(t, err)
		})
	}
}
