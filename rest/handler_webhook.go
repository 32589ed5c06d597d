package rest

import (
	"encoding/json"
	"net/http"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// telegramUpdate mirrors the platform webhook payload, trimmed to the fields
// the engine consumes.
type telegramUpdate struct {
	UpdateId int64 `json:"update_id"`
	Message  *struct {
		MessageId int64         `json:"message_id"`
		From      *telegramUser `json:"from"`
		Chat      *telegramChat `json:"chat"`
		Text      string        `json:"text"`
		Location  *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"message"`
	CallbackQuery *struct {
		Id      string        `json:"id"`
		From    *telegramUser `json:"from"`
		Data    string        `json:"data"`
		Message *struct {
			Chat *telegramChat `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

type telegramUser struct {
	Id        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type telegramChat struct {
	Id int64 `json:"id"`
}

// HandleWebhook normalizes one platform webhook delivery into an Update and
// dispatches it. The platform retries on non-2xx, so dispatch failures are
// logged and acknowledged anyway; redelivery would re-run handler side
// effects.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	botId := vars["botId"]

	var tu telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&tu); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed update")
		return
	}
	defer r.Body.Close()

	update := normalizeUpdate(botId, &tu)
	if update == nil {
		// Unsupported update kind (channel post, edited message, ...).
		respondOK(w, map[string]any{"ok": true})
		return
	}
	if err := s.dispatcher.Dispatch(r.Context(), update); err != nil {
		logger.Error("webhook dispatch failed",
			zap.String("bot", botId), zap.Int64("update", tu.UpdateId), zap.Error(err))
	}
	respondOK(w, map[string]any{"ok": true})
}

func normalizeUpdate(botId string, tu *telegramUpdate) *model.Update {
	if cb := tu.CallbackQuery; cb != nil && cb.From != nil {
		update := &model.Update{
			Kind:         model.UPDATE_CALLBACK,
			BotId:        botId,
			From:         toUser(cb.From),
			CallbackData: cb.Data,
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			update.ChatId = cb.Message.Chat.Id
		}
		return update
	}
	if msg := tu.Message; msg != nil && msg.From != nil && msg.Chat != nil {
		update := &model.Update{
			Kind:   model.UPDATE_MESSAGE,
			BotId:  botId,
			ChatId: msg.Chat.Id,
			From:   toUser(msg.From),
			Text:   msg.Text,
		}
		if msg.Location != nil {
			update.Kind = model.UPDATE_LOCATION
			update.Location = &model.Location{
				Latitude:  msg.Location.Latitude,
				Longitude: msg.Location.Longitude,
			}
		}
		return update
	}
	return nil
}

func toUser(u *telegramUser) model.User {
	return model.User{
		Id:        u.Id,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}
