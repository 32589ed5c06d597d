package handler

import (
	"context"
	"time"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/telegram"
	"go.uber.org/zap"
)

const DEFAULT_LOCATION_TIMEOUT = 5 * time.Minute

type locationHandler struct {
	deps *Deps
}

func NewLocationHandler(deps *Deps) *locationHandler {
	return &locationHandler{deps: deps}
}

// Execute prompts with a share-location keyboard and records a pending marker
// on the session. The next inbound event settles the request either way:
// coordinates are stored and the flow advances, and anything without location
// data clears the marker and advances too. A missing share is a soft failure,
// never a retry loop.
func (h *locationHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.LocationData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}

	pending := ec.Session.LocationRequest
	if !ec.ReachedThroughTransition && pending != nil && pending.NodeId == ec.Node.Id {
		ec.Session.LocationRequest = nil
		if pending.Expired(time.Now()) {
			logger.Debug("location request expired",
				zap.String("bot", ec.Session.BotId), zap.String("node", ec.Node.Id))
			return engine.AdvanceOutcome, nil
		}
		if ec.Update.Kind == model.UPDATE_LOCATION && ec.Update.Location != nil {
			if data.ResultVariable != "" {
				ec.Session.SetVariable(data.ResultVariable, map[string]any{
					"latitude":  ec.Update.Location.Latitude,
					"longitude": ec.Update.Location.Longitude,
				})
			}
		}
		return engine.AdvanceOutcome, nil
	}

	prompt := h.deps.Interpolate(data.Prompt, ec)
	if prompt == "" {
		prompt = "Please share your location."
	}
	opts := &telegram.SendOptions{
		ReplyMarkup: telegram.ReplyKeyboardMarkup{
			Keyboard: [][]telegram.KeyboardButton{
				{{Text: "Share location", RequestLocation: true}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		},
	}
	if _, err := h.deps.SendAndPersist(ctx, ec, prompt, opts); err != nil {
		return engine.ParkOutcome, err
	}
	timeoutMs := data.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = DEFAULT_LOCATION_TIMEOUT.Milliseconds()
	}
	ec.Session.LocationRequest = &model.LocationRequest{
		NodeId:    ec.Node.Id,
		Timestamp: time.Now(),
		TimeoutMs: timeoutMs,
	}
	return engine.ParkOutcome, nil
}
