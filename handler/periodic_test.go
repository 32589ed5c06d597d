package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/scheduler"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	specs     []*scheduler.TaskSpec
	nextId    string
	createErr error
	statuses  map[string]model.TaskStatus
}

func (f *fakeScheduler) CreateTask(ctx context.Context, spec *scheduler.TaskSpec) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.specs = append(f.specs, spec)
	return f.nextId, nil
}

func (f *fakeScheduler) GetTaskStatus(ctx context.Context, taskId string) (model.TaskStatus, error) {
	status, ok := f.statuses[taskId]
	if !ok {
		return "", fmt.Errorf("no task %s", taskId)
	}
	return status, nil
}

func (f *fakeScheduler) CancelTask(ctx context.Context, taskId string) error {
	return nil
}

func periodicDeps(s *fakeScheduler) *Deps {
	deps, _ := newTestDeps(&fakeTelegram{})
	deps.Scheduler = s
	return deps
}

func periodicData() map[string]any {
	return map[string]any{
		"scheduleType": "interval",
		"intervalMs":   60000,
		"targetNodeId": "reminder-node",
	}
}

func TestPeriodicRegistersTaskAndParks(t *testing.T) {
	sched := &fakeScheduler{nextId: "task-1"}
	deps := periodicDeps(sched)
	ec := execContext(model.NODE_TYPE_PERIODIC, periodicData(), true)

	outcome, err := NewPeriodicHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)

	require.Len(t, sched.specs, 1)
	spec := sched.specs[0]
	require.Equal(t, model.SCHEDULE_TYPE_INTERVAL, spec.ScheduleType)
	require.Equal(t, int64(60000), spec.IntervalMs)
	require.Equal(t, "reminder-node", spec.TargetNodeId)
	require.Equal(t, "bot-1", spec.BotId)
	require.Equal(t, int64(42), spec.UserId)
	require.Equal(t, "task-1", ec.Session.Variables["__periodic_task_node-1"])
}

func TestPeriodicTriggeredModeRequiresTransition(t *testing.T) {
	sched := &fakeScheduler{nextId: "task-1"}
	deps := periodicDeps(sched)
	data := periodicData()
	data["activationMode"] = "triggered"
	ec := execContext(model.NODE_TYPE_PERIODIC, data, false)

	outcome, err := NewPeriodicHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)
	require.Empty(t, sched.specs)
	require.NotContains(t, ec.Session.Variables, "__periodic_task_node-1")
}

func TestPeriodicSkipsWhenTaskAlreadyLive(t *testing.T) {
	sched := &fakeScheduler{
		nextId:   "task-2",
		statuses: map[string]model.TaskStatus{"task-1": model.TASK_STATUS_SCHEDULED},
	}
	deps := periodicDeps(sched)
	ec := execContext(model.NODE_TYPE_PERIODIC, periodicData(), true)
	ec.Session.SetVariable("__periodic_task_node-1", "task-1")

	outcome, err := NewPeriodicHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)
	require.Empty(t, sched.specs)
	require.Equal(t, "task-1", ec.Session.Variables["__periodic_task_node-1"])
}

func TestPeriodicReRegistersAfterCancellation(t *testing.T) {
	sched := &fakeScheduler{
		nextId:   "task-2",
		statuses: map[string]model.TaskStatus{"task-1": model.TASK_STATUS_CANCELLED},
	}
	deps := periodicDeps(sched)
	ec := execContext(model.NODE_TYPE_PERIODIC, periodicData(), true)
	ec.Session.SetVariable("__periodic_task_node-1", "task-1")

	outcome, err := NewPeriodicHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)
	require.Len(t, sched.specs, 1)
	require.Equal(t, "task-2", ec.Session.Variables["__periodic_task_node-1"])
}

func TestPeriodicRegistrationFailureStillParks(t *testing.T) {
	sched := &fakeScheduler{createErr: fmt.Errorf("queue unavailable")}
	deps := periodicDeps(sched)
	ec := execContext(model.NODE_TYPE_PERIODIC, periodicData(), true)

	outcome, err := NewPeriodicHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)
	require.NotContains(t, ec.Session.Variables, "__periodic_task_node-1")
}

func TestPeriodicCustomTaskIdVariable(t *testing.T) {
	sched := &fakeScheduler{nextId: "task-1"}
	deps := periodicDeps(sched)
	data := periodicData()
	data["taskIdVariable"] = "reminderTask"
	ec := execContext(model.NODE_TYPE_PERIODIC, data, true)

	_, err := NewPeriodicHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, "task-1", ec.Session.Variables["reminderTask"])
}
