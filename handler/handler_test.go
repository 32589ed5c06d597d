package handler

import (
	"context"
	"sync"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence/inmem"
	"github.com/Billerens/botmanager-be-sub004/telegram"
)

type sentMessage struct {
	ChatId int64
	Text   string
	Opts   *telegram.SendOptions
}

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []sentMessage
	photos   []sentMessage
	edits    []string
	nextId   int64
	sendFail error
}

func (f *fakeTelegram) SendMessage(ctx context.Context, token string, chatId int64, text string, opts *telegram.SendOptions) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendFail != nil {
		return 0, f.sendFail
	}
	f.sent = append(f.sent, sentMessage{ChatId: chatId, Text: text, Opts: opts})
	f.nextId++
	return f.nextId, nil
}

func (f *fakeTelegram) EditMessageText(ctx context.Context, token string, chatId int64, messageId int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeTelegram) SendPhoto(ctx context.Context, token string, chatId int64, photoUrl string, caption string, opts *telegram.SendOptions) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, sentMessage{ChatId: chatId, Text: caption, Opts: opts})
	f.nextId++
	return f.nextId, nil
}

func (f *fakeTelegram) SendDocument(ctx context.Context, token string, chatId int64, fileUrl string, caption string) (int64, error) {
	return 0, nil
}

func (f *fakeTelegram) SendChatAction(ctx context.Context, token string, chatId int64, action string) error {
	return nil
}

func (f *fakeTelegram) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func newTestDeps(tg *fakeTelegram) (*Deps, *inmem.Storage) {
	storage := inmem.NewStorage()
	return &Deps{
		Telegram:       tg,
		Sessions:       storage,
		Groups:         storage,
		Endpoints:      storage,
		PublicBaseUrl:  "https://bots.example.com",
		EndpointSecret: "secret",
	}, storage
}

// execContext builds a one-node context for direct handler invocation.
func execContext(nodeType model.NodeType, data map[string]any, reached bool) *engine.ExecutionContext {
	node := model.Node{Id: "node-1", Type: nodeType, Data: data}
	flow := &model.Flow{Id: "flow-1", BotId: "bot-1", BotToken: "tok", RootId: "node-1", Nodes: []model.Node{node}}
	flow.Index()
	session := model.NewSession("bot-1", 42, 77)
	session.CurrentNodeId = "node-1"
	update := &model.Update{
		Kind:   model.UPDATE_MESSAGE,
		BotId:  "bot-1",
		ChatId: 77,
		From:   model.User{Id: 42, FirstName: "Ada", Username: "ada"},
		Text:   "hello",
	}
	n, _ := flow.Node("node-1")
	return &engine.ExecutionContext{
		Flow:                     flow,
		Node:                     n,
		Session:                  session,
		Update:                   update,
		ReachedThroughTransition: reached,
	}
}
