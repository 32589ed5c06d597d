package handler

import (
	"context"
	"time"

	"github.com/Billerens/botmanager-be-sub004/ai"
	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/payment"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/scheduler"
	"github.com/Billerens/botmanager-be-sub004/stream"
	"github.com/Billerens/botmanager-be-sub004/telegram"
	"github.com/Billerens/botmanager-be-sub004/util"
	"go.uber.org/zap"
)

// Deps is the capability object shared by every node handler: messaging,
// storage, AI, payments, scheduling and the interpolator, composed instead of
// inherited so handlers stay flat.
type Deps struct {
	Telegram       telegram.Client
	Sessions       persistence.SessionStorage
	Groups         persistence.GroupStorage
	Endpoints      persistence.EndpointBuffer
	Ai             *ai.Selector
	AiClient       ai.ChatClient
	Payments       payment.Provider
	Scheduler      scheduler.Scheduler
	Streamer       *stream.Responder
	PublicBaseUrl  string
	EndpointSecret string
	SandboxTimeout time.Duration
	AiMaxTokens    int
	AiTemperature  float64
	HistoryBudget  int
}

// Interpolate substitutes {{path}} tokens against the session and the
// inbound event.
func (d *Deps) Interpolate(template string, ec *engine.ExecutionContext) string {
	return util.Interpolate(template, util.NewInterpolationContext(ec.Session, ec.Update))
}

// SendAndPersist sends a message on the bot's behalf and records the platform
// message id in the session so later nodes can edit or reference it.
func (d *Deps) SendAndPersist(ctx context.Context, ec *engine.ExecutionContext, text string, opts *telegram.SendOptions) (int64, error) {
	messageId, err := d.Telegram.SendMessage(ctx, ec.Flow.BotToken, ec.Session.ChatId, text, opts)
	if err != nil {
		logger.Error("message send failed",
			zap.String("bot", ec.Session.BotId), zap.Int64("chat", ec.Session.ChatId), zap.Error(err))
		return 0, err
	}
	if messageId != 0 {
		ec.Session.SetVariable("last_message_id", messageId)
	}
	return messageId, nil
}

// RegisterAll installs one handler per node type into the engine registry.
func RegisterAll(e *engine.Engine, deps *Deps) {
	e.Register(model.NODE_TYPE_MESSAGE, NewMessageHandler(deps))
	e.Register(model.NODE_TYPE_CALCULATOR, NewCalculatorHandler(deps))
	e.Register(model.NODE_TYPE_TRANSFORM, NewTransformHandler(deps))
	e.Register(model.NODE_TYPE_AI_SINGLE, NewAiSingleHandler(deps))
	e.Register(model.NODE_TYPE_AI_CHAT, NewAiChatHandler(deps))
	e.Register(model.NODE_TYPE_FORM, NewFormHandler(deps))
	e.Register(model.NODE_TYPE_LOCATION, NewLocationHandler(deps))
	e.Register(model.NODE_TYPE_PAYMENT, NewPaymentHandler(deps))
	e.Register(model.NODE_TYPE_GROUP_JOIN, NewGroupJoinHandler(deps))
	e.Register(model.NODE_TYPE_GROUP_LEAVE, NewGroupLeaveHandler(deps))
	e.Register(model.NODE_TYPE_PERIODIC, NewPeriodicHandler(deps))
	e.Register(model.NODE_TYPE_ENDPOINT, NewEndpointHandler(deps))
}

// intVariable reads an int session variable, tolerating the float64 shape
// JSON round-trips produce.
func intVariable(vars map[string]any, key string) int {
	switch v := vars[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func boolVariable(vars map[string]any, key string) bool {
	v, _ := vars[key].(bool)
	return v
}
