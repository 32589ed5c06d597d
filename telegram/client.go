package telegram

import "context"

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	Url          string `json:"url,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type KeyboardButton struct {
	Text            string `json:"text"`
	RequestLocation bool   `json:"request_location,omitempty"`
}

type ReplyKeyboardMarkup struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

type SendOptions struct {
	ParseMode   string
	ReplyMarkup any
}

// Client is the messaging platform boundary. SendMessage returns the platform
// message id (0 when the platform returned none). EditMessageText treats the
// platform's "message is not modified" reply as success.
type Client interface {
	SendMessage(ctx context.Context, token string, chatId int64, text string, opts *SendOptions) (int64, error)
	EditMessageText(ctx context.Context, token string, chatId int64, messageId int64, text string) error
	SendPhoto(ctx context.Context, token string, chatId int64, photoUrl string, caption string, opts *SendOptions) (int64, error)
	SendDocument(ctx context.Context, token string, chatId int64, fileUrl string, caption string) (int64, error)
	SendChatAction(ctx context.Context, token string, chatId int64, action string) error
}
