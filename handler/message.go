package handler

import (
	"context"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/telegram"
)

type messageHandler struct {
	deps *Deps
}

func NewMessageHandler(deps *Deps) *messageHandler {
	return &messageHandler{deps: deps}
}

// Execute sends the configured text or image+caption. A plain message always
// advances. A keyboard message parks until its callback arrives: the callback
// data becomes the output handle (exact edge match, with the legacy numeric
// button-index fallback handled by the router).
func (h *messageHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.MessageData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}
	if !ec.ReachedThroughTransition && ec.Update.Kind == model.UPDATE_CALLBACK && len(data.Buttons) > 0 {
		return engine.AdvanceVia(ec.Update.CallbackData), nil
	}

	text := h.deps.Interpolate(data.Text, ec)
	opts := &telegram.SendOptions{}
	if len(data.Buttons) > 0 {
		markup := telegram.InlineKeyboardMarkup{}
		for _, b := range data.Buttons {
			callbackData := b.Data
			if callbackData == "" {
				callbackData = b.Text
			}
			markup.InlineKeyboard = append(markup.InlineKeyboard, []telegram.InlineKeyboardButton{
				{Text: h.deps.Interpolate(b.Text, ec), CallbackData: callbackData},
			})
		}
		opts.ReplyMarkup = markup
	}

	var err error
	if data.ImageUrl != "" {
		_, err = h.deps.Telegram.SendPhoto(ctx, ec.Flow.BotToken, ec.Session.ChatId, data.ImageUrl, text, opts)
	} else {
		_, err = h.deps.SendAndPersist(ctx, ec, text, opts)
	}
	if len(data.Buttons) > 0 {
		return engine.ParkOutcome, err
	}
	return engine.AdvanceOutcome, err
}
