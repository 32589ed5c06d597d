package model

type UpdateKind string

const UPDATE_MESSAGE UpdateKind = "message"
const UPDATE_CALLBACK UpdateKind = "callback"
const UPDATE_LOCATION UpdateKind = "location"
const UPDATE_ENDPOINT UpdateKind = "endpoint"
const UPDATE_SCHEDULER UpdateKind = "scheduler"

type User struct {
	Id        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Update is the normalized inbound event: a user message or callback from the
// messaging platform, a buffered endpoint payload, or a scheduler tick.
type Update struct {
	Kind         UpdateKind     `json:"kind"`
	BotId        string         `json:"botId"`
	ChatId       int64          `json:"chatId"`
	From         User           `json:"from"`
	Text         string         `json:"text"`
	CallbackData string         `json:"callbackData"`
	Location     *Location      `json:"location,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}
