package handler

import (
	"context"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/scheduler"
	"go.uber.org/zap"
)

type periodicHandler struct {
	deps *Deps
}

func NewPeriodicHandler(deps *Deps) *periodicHandler {
	return &periodicHandler{deps: deps}
}

// Execute registers a recurring job with the scheduler; it never runs the
// sub-graph itself and never advances, continuation is entirely the poller
// firing the target node out of band. Triggered mode only registers when the
// node was reached via an edge in this event; standalone registers whenever
// the node executes. A task id already stored for this node means the job is
// live and registration is skipped.
func (h *periodicHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.PeriodicData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.ParkOutcome, err
	}
	if data.ActivationMode == model.ACTIVATION_TRIGGERED && !ec.ReachedThroughTransition {
		return engine.ParkOutcome, nil
	}

	taskIdVariable := data.TaskIdVariable
	if taskIdVariable == "" {
		taskIdVariable = "__periodic_task_" + ec.Node.Id
	}
	if existing, ok := ec.Session.Variables[taskIdVariable].(string); ok && existing != "" {
		status, err := h.deps.Scheduler.GetTaskStatus(ctx, existing)
		if err == nil && status == model.TASK_STATUS_SCHEDULED {
			return engine.ParkOutcome, nil
		}
	}

	spec := &scheduler.TaskSpec{
		ScheduleType:   data.ScheduleType,
		IntervalMs:     data.IntervalMs,
		CronExpression: data.CronExpression,
		MaxExecutions:  data.MaxExecutions,
		BotId:          ec.Session.BotId,
		FlowId:         ec.Flow.Id,
		NodeId:         ec.Node.Id,
		TargetNodeId:   data.TargetNodeId,
		UserId:         ec.Session.UserId,
		ChatId:         ec.Session.ChatId,
	}
	taskId, err := h.deps.Scheduler.CreateTask(ctx, spec)
	if err != nil {
		logger.Error("periodic task registration failed",
			zap.String("bot", ec.Session.BotId), zap.String("node", ec.Node.Id), zap.Error(err))
		return engine.ParkOutcome, nil
	}
	ec.Session.SetVariable(taskIdVariable, taskId)
	logger.Info("periodic task registered",
		zap.String("bot", ec.Session.BotId), zap.String("node", ec.Node.Id), zap.String("task", taskId))
	return engine.ParkOutcome, nil
}
