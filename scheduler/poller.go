package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/metrics"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/util"
	"go.uber.org/zap"
)

// Dispatcher is the slice of the engine the poller needs: fire a sub-graph
// node out of band without disturbing the session's resting position.
type Dispatcher interface {
	DispatchAt(ctx context.Context, update *model.Update, startNodeId string, restorePosition bool) error
}

// Poller drains due tasks from the delay queue on a tick and hands them to a
// channel worker, so a slow sub-graph never stalls the poll loop.
type Poller struct {
	tasks        persistence.TaskStorage
	dispatcher   Dispatcher
	pollInterval time.Duration
	batchSize    int
	tickWorker   *util.TickWorker
	worker       *util.Worker
	wg           *sync.WaitGroup
}

func NewPoller(tasks persistence.TaskStorage, dispatcher Dispatcher, pollInterval time.Duration, batchSize int, wg *sync.WaitGroup) *Poller {
	if pollInterval == 0 {
		pollInterval = time.Second
	}
	if batchSize == 0 {
		batchSize = 100
	}
	p := &Poller{
		tasks:        tasks,
		dispatcher:   dispatcher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		wg:           wg,
	}
	p.worker = util.NewWorker("scheduler-firing", wg, p.fire, batchSize)
	p.tickWorker = util.NewTickWorker("scheduler-poll", pollInterval, make(chan struct{}), p.poll, wg)
	return p
}

func (p *Poller) Start() {
	p.worker.Start()
	p.tickWorker.Start()
}

func (p *Poller) Stop() {
	p.tickWorker.Stop()
	p.worker.Stop()
}

func (p *Poller) poll() {
	ctx := context.Background()
	taskIds, err := p.tasks.PopDue(ctx, time.Now(), p.batchSize)
	if err != nil {
		logger.Error("error polling due tasks", zap.Error(err))
		return
	}
	for _, id := range taskIds {
		p.worker.Sender() <- id
	}
}

// fire executes one due firing. The queue layer may re-deliver; the status
// and execution-count checks keep duplicate firings harmless.
func (p *Poller) fire(t util.Task) error {
	taskId := t.(string)
	ctx := context.Background()
	task, err := p.tasks.GetTask(ctx, taskId)
	if err != nil {
		return err
	}
	if task.Status != model.TASK_STATUS_SCHEDULED {
		logger.Debug("skipping task", zap.String("task", taskId), zap.String("status", string(task.Status)))
		return nil
	}
	if task.MaxExecutions > 0 && task.Executions >= task.MaxExecutions {
		task.Status = model.TASK_STATUS_COMPLETED
		return p.tasks.SaveTask(ctx, task)
	}
	target := task.TargetNodeId
	if target == "" {
		target = task.NodeId
	}
	update := &model.Update{
		Kind:   model.UPDATE_SCHEDULER,
		BotId:  task.BotId,
		ChatId: task.ChatId,
		From:   model.User{Id: task.UserId},
	}
	if err := p.dispatcher.DispatchAt(ctx, update, target, true); err != nil {
		logger.Error("periodic firing failed", zap.String("task", taskId), zap.Error(err))
	}
	metrics.SchedulerFiringsTotal.Inc()

	task.Executions++
	if task.MaxExecutions > 0 && task.Executions >= task.MaxExecutions {
		task.Status = model.TASK_STATUS_COMPLETED
	}
	if err := p.tasks.SaveTask(ctx, task); err != nil {
		return err
	}
	if task.Status != model.TASK_STATUS_SCHEDULED {
		return nil
	}
	next, err := nextFire(task, time.Now())
	if err != nil {
		return err
	}
	return p.tasks.PushDue(ctx, task.Id, next)
}
