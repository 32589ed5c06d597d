package handler

import (
	"context"
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

type endpointHandler struct {
	deps *Deps
}

func NewEndpointHandler(deps *Deps) *endpointHandler {
	return &endpointHandler{deps: deps}
}

// Execute resolves this node's inbound URL and checks the buffer. A payload
// already posted there is merged into the session variables and the flow
// advances immediately; otherwise the waiting message goes out and the session
// parks until the resume endpoint fires.
func (h *endpointHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.EndpointData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.ParkOutcome, err
	}

	key := EndpointKey(ec.Session.BotId, ec.Node.Id)
	payload, err := h.deps.Endpoints.Take(ctx, key)
	var notFound persistence.NotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return engine.ParkOutcome, err
	}
	if ec.Update.Kind == model.UPDATE_ENDPOINT && len(ec.Update.Payload) > 0 {
		// Resume dispatch carries the payload inline; the buffered copy, if
		// any, was already consumed by the resume path.
		payload = ec.Update.Payload
	}
	if len(payload) > 0 {
		if err := mergo.Merge(&ec.Session.Variables, payload, mergo.WithOverride); err != nil {
			logger.Warn("endpoint payload merge failed", zap.String("node", ec.Node.Id), zap.Error(err))
		}
		return engine.AdvanceOutcome, nil
	}

	suffix := EndpointSuffix(ec.Session.BotId, ec.Node.Id, h.deps.EndpointSecret, data.Suffix)
	url := fmt.Sprintf("%s/endpoint/%s/%s/%s", h.deps.PublicBaseUrl, ec.Session.BotId, ec.Node.Id, suffix)
	waiting := data.WaitingMessage
	if waiting == "" {
		waiting = "Waiting for external data..."
	}
	waiting = h.deps.Interpolate(waiting, ec)
	ec.Session.SetVariable("endpoint_url_"+ec.Node.Id, url)
	if _, err := h.deps.SendAndPersist(ctx, ec, waiting, nil); err != nil {
		return engine.ParkOutcome, err
	}
	return engine.ParkOutcome, nil
}

// EndpointKey is the buffer key shared by the handler and the resume route.
func EndpointKey(botId string, nodeId string) string {
	return botId + ":" + nodeId
}

// EndpointSuffix is the URL capability token for (botId, nodeId): the
// designer-configured suffix when present, else a deterministic hash salted
// with the deployment secret so the URL is stable across restarts but not
// guessable from the ids alone.
func EndpointSuffix(botId string, nodeId string, secret string, configured string) string {
	if configured != "" {
		return configured
	}
	sum := murmur3.Sum64([]byte(botId + ":" + nodeId + ":" + secret))
	return fmt.Sprintf("%016x", sum)
}
