package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/google/uuid"
)

type TaskSpec struct {
	ScheduleType   model.ScheduleType
	IntervalMs     int64
	CronExpression string
	MaxExecutions  int
	BotId          string
	FlowId         string
	NodeId         string
	TargetNodeId   string
	UserId         int64
	ChatId         int64
}

// Scheduler is the contract the periodic_execution node registers against.
// The queue layer gives no exactly-once guarantee; firings must tolerate
// re-delivery, and cancellation is a marker consulted before each firing.
type Scheduler interface {
	CreateTask(ctx context.Context, spec *TaskSpec) (string, error)
	GetTaskStatus(ctx context.Context, taskId string) (model.TaskStatus, error)
	CancelTask(ctx context.Context, taskId string) error
}

type taskScheduler struct {
	tasks persistence.TaskStorage
}

var _ Scheduler = new(taskScheduler)

func NewScheduler(tasks persistence.TaskStorage) *taskScheduler {
	return &taskScheduler{tasks: tasks}
}

func (s *taskScheduler) CreateTask(ctx context.Context, spec *TaskSpec) (string, error) {
	if err := validateSpec(spec); err != nil {
		return "", err
	}
	task := &model.ScheduledTask{
		Id:             uuid.NewString(),
		BotId:          spec.BotId,
		FlowId:         spec.FlowId,
		NodeId:         spec.NodeId,
		TargetNodeId:   spec.TargetNodeId,
		UserId:         spec.UserId,
		ChatId:         spec.ChatId,
		ScheduleType:   spec.ScheduleType,
		IntervalMs:     spec.IntervalMs,
		CronExpression: spec.CronExpression,
		MaxExecutions:  spec.MaxExecutions,
		Status:         model.TASK_STATUS_SCHEDULED,
		CreatedAt:      time.Now(),
	}
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return "", err
	}
	next, err := nextFire(task, time.Now())
	if err != nil {
		return "", err
	}
	if err := s.tasks.PushDue(ctx, task.Id, next); err != nil {
		return "", err
	}
	return task.Id, nil
}

func (s *taskScheduler) GetTaskStatus(ctx context.Context, taskId string) (model.TaskStatus, error) {
	task, err := s.tasks.GetTask(ctx, taskId)
	if err != nil {
		return "", err
	}
	return task.Status, nil
}

func (s *taskScheduler) CancelTask(ctx context.Context, taskId string) error {
	task, err := s.tasks.GetTask(ctx, taskId)
	if err != nil {
		return err
	}
	task.Status = model.TASK_STATUS_CANCELLED
	return s.tasks.SaveTask(ctx, task)
}

func validateSpec(spec *TaskSpec) error {
	switch spec.ScheduleType {
	case model.SCHEDULE_TYPE_INTERVAL:
		if spec.IntervalMs <= 0 {
			return fmt.Errorf("interval schedule requires a positive intervalMs")
		}
	case model.SCHEDULE_TYPE_CRON:
		if _, err := ParseCron(spec.CronExpression); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid schedule type %s", spec.ScheduleType)
	}
	if spec.BotId == "" || spec.NodeId == "" {
		return fmt.Errorf("task spec requires botId and nodeId")
	}
	return nil
}

func nextFire(task *model.ScheduledTask, after time.Time) (time.Time, error) {
	switch task.ScheduleType {
	case model.SCHEDULE_TYPE_INTERVAL:
		return after.Add(time.Duration(task.IntervalMs) * time.Millisecond), nil
	case model.SCHEDULE_TYPE_CRON:
		expr, err := ParseCron(task.CronExpression)
		if err != nil {
			return time.Time{}, err
		}
		return expr.Next(after), nil
	}
	return time.Time{}, fmt.Errorf("invalid schedule type %s", task.ScheduleType)
}
