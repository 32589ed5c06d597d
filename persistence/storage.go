package persistence

import (
	"context"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
)

// SessionStorage persists the per (bot, end-user) session. Sessions are never
// hard-deleted, only saved back with Active=false.
type SessionStorage interface {
	Get(ctx context.Context, botId string, userId int64) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
	ListByCurrentNode(ctx context.Context, botId string, nodeId string) ([]*model.Session, error)
}

type GroupStorage interface {
	GetGroup(ctx context.Context, botId string, id string) (*model.GroupSession, error)
	// FindOpenGroup returns the newest non-archived, non-full group for the
	// key, or NotFoundError.
	FindOpenGroup(ctx context.Context, botId string, groupKey string) (*model.GroupSession, error)
	SaveGroup(ctx context.Context, group *model.GroupSession) error
}

// FlowStorage holds published flow definitions, one per bot.
type FlowStorage interface {
	SaveFlow(ctx context.Context, flow *model.Flow) error
	GetFlow(ctx context.Context, botId string) (*model.Flow, error)
}

// EndpointBuffer holds out-of-band payloads posted to an endpoint URL before
// any session reached the endpoint node. Take consumes the payload.
type EndpointBuffer interface {
	Put(ctx context.Context, key string, payload map[string]any) error
	Take(ctx context.Context, key string) (map[string]any, error)
}

// TaskStorage backs the scheduler: task records plus a due queue ordered by
// next fire time.
type TaskStorage interface {
	SaveTask(ctx context.Context, task *model.ScheduledTask) error
	GetTask(ctx context.Context, taskId string) (*model.ScheduledTask, error)
	PushDue(ctx context.Context, taskId string, at time.Time) error
	PopDue(ctx context.Context, now time.Time, limit int) ([]string, error)
}
