package handler

import (
	"context"

	"github.com/Billerens/botmanager-be-sub004/ai"
	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"go.uber.org/zap"
)

type aiSingleHandler struct {
	deps *Deps
}

func NewAiSingleHandler(deps *Deps) *aiSingleHandler {
	return &aiSingleHandler{deps: deps}
}

// Execute performs one AI completion for the interpolated prompt, walking the
// model fallback chain on provider errors. The response is sent to the user,
// optionally streamed, and stored in the configured variables. A total AI
// outage sends an apology instead of stalling the flow.
func (h *aiSingleHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.AISingleData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}
	prompt := h.deps.Interpolate(data.Prompt, ec)
	system := h.deps.Interpolate(data.SystemPrompt, ec)

	var messages []ai.Message
	if system != "" {
		messages = append(messages, ai.Message{Role: ai.ROLE_SYSTEM, Content: system})
	}
	messages = append(messages, ai.Message{Role: ai.ROLE_USER, Content: prompt})
	params := h.aiParameters(data.MaxTokens, data.Temperature)

	result, err := h.deps.Ai.ExecuteWithFallback(ctx, data.PreferredModel, func(modelId string) (any, error) {
		req := &ai.Request{Messages: messages, Model: modelId, Parameters: params}
		if data.Stream {
			chunks, errs := h.deps.AiClient.Stream(ctx, req)
			return h.deps.Streamer.Respond(ctx, ec.Flow.BotToken, ec.Session.ChatId, chunks, errs)
		}
		resp, err := h.deps.AiClient.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.Content, nil
	})
	if err != nil {
		logger.Error("ai completion failed on all models",
			zap.String("bot", ec.Flow.BotId), zap.String("node", ec.Node.Id), zap.Error(err))
		if data.ResponseVariable != "" {
			ec.Session.SetVariable(data.ResponseVariable, "")
			ec.Session.SetVariable(data.ResponseVariable+"_error", err.Error())
		}
		ec.Session.SetVariable("last_ai_error", err.Error())
		_, sendErr := h.deps.SendAndPersist(ctx, ec, "Sorry, the assistant is unavailable right now. Please try again later.", nil)
		return engine.AdvanceOutcome, sendErr
	}

	content, _ := result.Result.(string)
	if !data.Stream && content != "" {
		if _, err := h.deps.SendAndPersist(ctx, ec, content, nil); err != nil {
			return engine.AdvanceOutcome, err
		}
	}
	if data.ResponseVariable != "" {
		ec.Session.SetVariable(data.ResponseVariable, content)
	}
	if data.ModelVariable != "" {
		ec.Session.SetVariable(data.ModelVariable, result.ModelName)
	}
	return engine.AdvanceOutcome, nil
}

func (h *aiSingleHandler) aiParameters(maxTokens int, temperature float64) ai.Parameters {
	if maxTokens == 0 {
		maxTokens = h.deps.AiMaxTokens
	}
	if temperature == 0 {
		temperature = h.deps.AiTemperature
	}
	return ai.Parameters{MaxTokens: maxTokens, Temperature: temperature}
}
