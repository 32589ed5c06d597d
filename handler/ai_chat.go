package handler

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/Billerens/botmanager-be-sub004/ai"
	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"go.uber.org/zap"
)

const DEFAULT_HISTORY_TOKEN_BUDGET = 2000

// recentVerbatimTurns is how many trailing messages survive a summarization
// pass untouched.
const recentVerbatimTurns = 4

var defaultExitKeywords = []string{"stop", "exit", "/stop", "/exit"}

const chatHistoryPrefix = "__aichat_history_"
const chatSummaryPrefix = "__aichat_summary_"

type aiChatHandler struct {
	deps *Deps
}

func NewAiChatHandler(deps *Deps) *aiChatHandler {
	return &aiChatHandler{deps: deps}
}

// Execute runs a multi-turn conversation pinned to this node. Entering the
// node through an edge initializes the transcript and parks; every following
// user message extends it and produces a completion, until an exit keyword
// releases the session to the next node. When the estimated token size of the
// transcript exceeds the budget, older turns are collapsed into a condensed
// summary by a separate completion call, keeping the most recent messages
// verbatim. Transcript state lives in session variables keyed by node id so
// two chat nodes in one flow never share history.
func (h *aiChatHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.AIChatData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}

	historyKey := chatHistoryPrefix + ec.Node.Id
	summaryKey := chatSummaryPrefix + ec.Node.Id
	if ec.ReachedThroughTransition {
		delete(ec.Session.Variables, historyKey)
		delete(ec.Session.Variables, summaryKey)
		welcome := data.WelcomeMessage
		if welcome == "" {
			welcome = "Hi! Ask me anything. Say \"exit\" when you are done."
		}
		_, err := h.deps.SendAndPersist(ctx, ec, h.deps.Interpolate(welcome, ec), nil)
		return engine.ParkOutcome, err
	}

	text := strings.TrimSpace(ec.Update.Text)
	if isExitKeyword(text, data.ExitKeywords) {
		delete(ec.Session.Variables, historyKey)
		delete(ec.Session.Variables, summaryKey)
		return engine.AdvanceOutcome, nil
	}
	if text == "" {
		// Callbacks, locations etc. do not belong to the conversation.
		return engine.ParkOutcome, nil
	}

	history := loadHistory(ec.Session, historyKey)
	history = append(history, ai.Message{Role: ai.ROLE_USER, Content: text})

	budget := data.HistoryBudget
	if budget <= 0 {
		budget = h.deps.HistoryBudget
	}
	if budget <= 0 {
		budget = DEFAULT_HISTORY_TOKEN_BUDGET
	}
	if estimateTokens(history) > budget && len(history) > recentVerbatimTurns {
		history = h.summarize(ctx, ec, data, history, summaryKey)
	}

	messages := h.assembleMessages(ec, data, ec.Session.Variables[summaryKey], history)
	params := h.chatParameters(data.MaxTokens, data.Temperature)

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
		logger.Error("ai chat turn failed on all models",
			zap.String("bot", ec.Flow.BotId), zap.String("node", ec.Node.Id), zap.Error(err))
		_, sendErr := h.deps.SendAndPersist(ctx, ec, "Sorry, the assistant is unavailable right now. Please try again.", nil)
		return engine.ParkOutcome, sendErr
	}

	content, _ := result.Result.(string)
	if !data.Stream && content != "" {
		if _, err := h.deps.SendAndPersist(ctx, ec, content, nil); err != nil {
			return engine.ParkOutcome, err
		}
	}
	history = append(history, ai.Message{Role: ai.ROLE_ASSISTANT, Content: content})
	saveHistory(ec.Session, historyKey, history)
	return engine.ParkOutcome, nil
}

func (h *aiChatHandler) assembleMessages(ec *engine.ExecutionContext, data model.AIChatData, summary any, history []ai.Message) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+2)
	if data.SystemPrompt != "" {
		messages = append(messages, ai.Message{Role: ai.ROLE_SYSTEM, Content: h.deps.Interpolate(data.SystemPrompt, ec)})
	}
	if s, ok := summary.(string); ok && s != "" {
		messages = append(messages, ai.Message{Role: ai.ROLE_SYSTEM, Content: "Summary of the earlier conversation: " + s})
	}
	return append(messages, history...)
}

// summarize collapses everything but the trailing turns into the node's
// summary variable via a dedicated completion. On failure the transcript is
// truncated without a summary; losing old context beats failing the turn.
func (h *aiChatHandler) summarize(ctx context.Context, ec *engine.ExecutionContext, data model.AIChatData, history []ai.Message, summaryKey string) []ai.Message {
	cut := len(history) - recentVerbatimTurns
	older, recent := history[:cut], history[cut:]

	var transcript strings.Builder
	if prior, ok := ec.Session.Variables[summaryKey].(string); ok && prior != "" {
		transcript.WriteString("Earlier summary: ")
		transcript.WriteString(prior)
		transcript.WriteString("\n")
	}
	for _, m := range older {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}

	req := &ai.Request{
		Messages: []ai.Message{
			{Role: ai.ROLE_SYSTEM, Content: "Condense the following conversation into a short summary that preserves facts, names and decisions."},
			{Role: ai.ROLE_USER, Content: transcript.String()},
		},
		Parameters: ai.Parameters{MaxTokens: 300, Temperature: 0.2},
	}
	result, err := h.deps.Ai.ExecuteWithFallback(ctx, data.PreferredModel, func(modelId string) (any, error) {
		req.Model = modelId
		resp, err := h.deps.AiClient.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.Content, nil
	})
	if err != nil {
		logger.Warn("chat history summarization failed, truncating instead",
			zap.String("node", ec.Node.Id), zap.Error(err))
		return recent
	}
	if summary, ok := result.Result.(string); ok {
		ec.Session.SetVariable(summaryKey, summary)
	}
	return recent
}

func (h *aiChatHandler) chatParameters(maxTokens int, temperature float64) ai.Parameters {
	if maxTokens == 0 {
		maxTokens = h.deps.AiMaxTokens
	}
	if temperature == 0 {
		temperature = h.deps.AiTemperature
	}
	return ai.Parameters{MaxTokens: maxTokens, Temperature: temperature}
}

func isExitKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		keywords = defaultExitKeywords
	}
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if lowered == strings.ToLower(strings.TrimSpace(kw)) {
			return true
		}
	}
	return false
}

// estimateTokens approximates the transcript size without a tokenizer.
// Cyrillic text packs fewer characters per token than latin, so it gets the
// denser estimate.
func estimateTokens(history []ai.Message) int {
	total := 0
	for _, m := range history {
		charsPerToken := 4.0
		if isMostlyCyrillic(m.Content) {
			charsPerToken = 2.5
		}
		total += int(float64(len([]rune(m.Content)))/charsPerToken) + 1
	}
	return total
}

func isMostlyCyrillic(s string) bool {
	cyrillic, letters := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.Is(unicode.Cyrillic, r) {
				cyrillic++
			}
		}
	}
	return letters > 0 && cyrillic*2 > letters
}

// History round-trips through the JSON session store, so it is kept as an
// encoded string rather than a typed slice.
func loadHistory(session *model.Session, key string) []ai.Message {
	raw, ok := session.GetVariable(key)
	if !ok {
		return nil
	}
	encoded, ok := raw.(string)
	if !ok {
		return nil
	}
	var history []ai.Message
	if err := json.Unmarshal([]byte(encoded), &history); err != nil {
		logger.Warn("discarding corrupt chat history", zap.String("key", key), zap.Error(err))
		return nil
	}
	return history
}

func saveHistory(session *model.Session, key string, history []ai.Message) {
	encoded, err := json.Marshal(history)
	if err != nil {
		return
	}
	session.SetVariable(key, string(encoded))
}
