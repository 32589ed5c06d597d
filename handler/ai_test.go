package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Billerens/botmanager-be-sub004/ai"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/stretchr/testify/require"
)

type fakeAiClient struct {
	models   []ai.Model
	failIds  map[string]bool
	reply    string
	requests []*ai.Request
}

func (f *fakeAiClient) Complete(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	f.requests = append(f.requests, req)
	if f.failIds[req.Model] {
		return nil, fmt.Errorf("model %s down", req.Model)
	}
	return &ai.Response{Content: f.reply}, nil
}

func (f *fakeAiClient) Stream(ctx context.Context, req *ai.Request) (<-chan string, <-chan error) {
	chunks := make(chan string, 1)
	errs := make(chan error, 1)
	chunks <- f.reply
	close(chunks)
	errs <- nil
	return chunks, errs
}

func (f *fakeAiClient) ListModels(ctx context.Context) ([]ai.Model, error) {
	return f.models, nil
}

func aiDeps(tg *fakeTelegram, client *fakeAiClient) *Deps {
	deps, _ := newTestDeps(tg)
	deps.AiClient = client
	deps.Ai = ai.NewSelector(client, time.Minute)
	deps.AiMaxTokens = 256
	deps.AiTemperature = 0.5
	return deps
}

func TestAiSingleStoresResponseAndModel(t *testing.T) {
	tg := &fakeTelegram{}
	client := &fakeAiClient{
		models:  []ai.Model{{Id: "m1", Name: "One"}, {Id: "m2", Name: "Two"}},
		failIds: map[string]bool{"m1": true},
		reply:   "the answer",
	}
	deps := aiDeps(tg, client)
	ec := execContext(model.NODE_TYPE_AI_SINGLE, map[string]any{
		"prompt":           "what is {{name}}?",
		"responseVariable": "answer",
		"modelVariable":    "answeredBy",
	}, true)
	ec.Session.SetVariable("name", "go")

	outcome, err := NewAiSingleHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Equal(t, "the answer", ec.Session.Variables["answer"])
	require.Equal(t, "Two", ec.Session.Variables["answeredBy"])
	require.Equal(t, "the answer", tg.lastSent().Text)
	// Interpolation ran before the request went out.
	require.Equal(t, "what is go?", client.requests[0].Messages[0].Content)
}

func TestAiSingleTotalOutageStoresErrorAndAdvances(t *testing.T) {
	tg := &fakeTelegram{}
	client := &fakeAiClient{
		models:  []ai.Model{{Id: "m1", Name: "One"}},
		failIds: map[string]bool{"m1": true},
	}
	deps := aiDeps(tg, client)
	ec := execContext(model.NODE_TYPE_AI_SINGLE, map[string]any{
		"prompt":           "hi",
		"responseVariable": "answer",
	}, true)

	outcome, err := NewAiSingleHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Equal(t, "", ec.Session.Variables["answer"])
	require.NotEmpty(t, ec.Session.Variables["answer_error"])
}

func TestAiChatConversationLifecycle(t *testing.T) {
	tg := &fakeTelegram{}
	client := &fakeAiClient{models: []ai.Model{{Id: "m1", Name: "One"}}, reply: "sure"}
	deps := aiDeps(tg, client)
	h := NewAiChatHandler(deps)
	ec := execContext(model.NODE_TYPE_AI_CHAT, map[string]any{
		"systemPrompt":   "be brief",
		"welcomeMessage": "welcome!",
	}, true)

	// Entry sends the welcome and parks.
	outcome, err := h.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)
	require.Equal(t, "welcome!", tg.lastSent().Text)

	// A user turn produces a completion and records history.
	ec.ReachedThroughTransition = false
	ec.Update.Text = "tell me a joke"
	outcome, err = h.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)
	require.Equal(t, "sure", tg.lastSent().Text)
	require.Contains(t, ec.Session.Variables, "__aichat_history_node-1")

	// The request carried the system prompt and the user turn.
	req := client.requests[len(client.requests)-1]
	require.Equal(t, ai.ROLE_SYSTEM, req.Messages[0].Role)
	require.Equal(t, "be brief", req.Messages[0].Content)
	require.Equal(t, "tell me a joke", req.Messages[len(req.Messages)-1].Content)

	// An exit keyword ends the sub-dialog and clears the transcript.
	ec.Update.Text = "/stop"
	outcome, err = h.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.NotContains(t, ec.Session.Variables, "__aichat_history_node-1")
}

func TestAiChatExitKeywords(t *testing.T) {
	scenarios := map[string]struct {
		text     string
		keywords []string
		exit     bool
	}{
		"default stop":        {"stop", nil, true},
		"default slash exit":  {"/exit", nil, true},
		"case insensitive":    {"STOP", nil, true},
		"ordinary message":    {"story", nil, false},
		"custom keyword":      {"done", []string{"done"}, true},
		"custom replaces set": {"stop", []string{"done"}, false},
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, sc.exit, isExitKeyword(sc.text, sc.keywords))
		})
	}
}

func TestAiChatHistoryBudgetTriggersSummarization(t *testing.T) {
	tg := &fakeTelegram{}
	client := &fakeAiClient{models: []ai.Model{{Id: "m1", Name: "One"}}, reply: "condensed"}
	deps := aiDeps(tg, client)
	h := NewAiChatHandler(deps)
	ec := execContext(model.NODE_TYPE_AI_CHAT, map[string]any{
		"historyBudget": 10,
	}, false)

	long := make([]ai.Message, 0, 8)
	for i := 0; i < 8; i++ {
		long = append(long, ai.Message{Role: ai.ROLE_USER, Content: "a fairly long message body for the estimate"})
	}
	saveHistory(ec.Session, "__aichat_history_node-1", long)

	ec.Update.Text = "and another thing"
	_, err := h.Execute(context.Background(), ec)
	require.NoError(t, err)
	require.NotEmpty(t, ec.Session.Variables["__aichat_summary_node-1"])

	history := loadHistory(ec.Session, "__aichat_history_node-1")
	// Recent turns verbatim plus the new exchange.
	require.LessOrEqual(t, len(history), recentVerbatimTurns+2)
}

func TestEstimateTokens(t *testing.T) {
	latin := []ai.Message{{Role: ai.ROLE_USER, Content: "hello world, how are you"}}
	cyrillic := []ai.Message{{Role: ai.ROLE_USER, Content: "привет мир, как дела у тебя"}}
	// Cyrillic packs fewer chars per token, so similar lengths estimate higher.
	require.Greater(t, estimateTokens(cyrillic), estimateTokens(latin))
}
