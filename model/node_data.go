package model

import (
	"github.com/mitchellh/mapstructure"
)

// DecodeNodeData fills a per-type payload struct from the raw node data map.
// Unknown keys are ignored and missing keys leave zero values so that a
// half-filled designer payload never fails the dispatch loop.
func DecodeNodeData(node *Node, out any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(node.Data)
}

type MessageData struct {
	Text     string   `json:"text"`
	ImageUrl string   `json:"imageUrl"`
	Buttons  []Button `json:"buttons"`
}

type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

type CalculatorFormat string

const CALC_FORMAT_NUMBER CalculatorFormat = "number"
const CALC_FORMAT_CURRENCY CalculatorFormat = "currency"
const CALC_FORMAT_PERCENTAGE CalculatorFormat = "percentage"

type CalculatorData struct {
	Expression     string           `json:"expression"`
	ResultVariable string           `json:"resultVariable"`
	Format         CalculatorFormat `json:"format"`
	Precision      int              `json:"precision"`
	Currency       string           `json:"currency"`
}

type TransformData struct {
	Script         string `json:"script"`
	ResultVariable string `json:"resultVariable"`
	InputVariable  string `json:"inputVariable"`
}

type AISingleData struct {
	Prompt           string  `json:"prompt"`
	SystemPrompt     string  `json:"systemPrompt"`
	PreferredModel   string  `json:"preferredModel"`
	ResponseVariable string  `json:"responseVariable"`
	ModelVariable    string  `json:"modelVariable"`
	MaxTokens        int     `json:"maxTokens"`
	Temperature      float64 `json:"temperature"`
	Stream           bool    `json:"stream"`
}

type AIChatData struct {
	SystemPrompt   string   `json:"systemPrompt"`
	WelcomeMessage string   `json:"welcomeMessage"`
	PreferredModel string   `json:"preferredModel"`
	ExitKeywords   []string `json:"exitKeywords"`
	MaxTokens      int      `json:"maxTokens"`
	Temperature    float64  `json:"temperature"`
	HistoryBudget  int      `json:"historyBudget"`
	Stream         bool     `json:"stream"`
}

type FieldType string

const FIELD_TYPE_TEXT FieldType = "text"
const FIELD_TYPE_EMAIL FieldType = "email"
const FIELD_TYPE_PHONE FieldType = "phone"
const FIELD_TYPE_NUMBER FieldType = "number"
const FIELD_TYPE_DATE FieldType = "date"
const FIELD_TYPE_SELECT FieldType = "select"
const FIELD_TYPE_MULTISELECT FieldType = "multiselect"

type FormField struct {
	Name         string    `json:"name"`
	Prompt       string    `json:"prompt"`
	Type         FieldType `json:"type"`
	Required     bool      `json:"required"`
	Min          *float64  `json:"min"`
	Max          *float64  `json:"max"`
	MinLength    int       `json:"minLength"`
	MaxLength    int       `json:"maxLength"`
	Pattern      string    `json:"pattern"`
	Options      []string  `json:"options"`
	ErrorMessage string    `json:"errorMessage"`
}

type FormData struct {
	Fields         []FormField `json:"fields"`
	SummaryMessage string      `json:"summaryMessage"`
	SendSummary    bool        `json:"sendSummary"`
}

type LocationData struct {
	Prompt         string `json:"prompt"`
	ResultVariable string `json:"resultVariable"`
	TimeoutMs      int64  `json:"timeoutMs"`
}

type PaymentAction string

const PAYMENT_ACTION_CREATE PaymentAction = "create"
const PAYMENT_ACTION_CHECK PaymentAction = "check_status"
const PAYMENT_ACTION_CANCEL PaymentAction = "cancel"
const PAYMENT_ACTION_REFUND PaymentAction = "refund"

type PaymentData struct {
	Action          PaymentAction `json:"action"`
	Amount          string        `json:"amount"`
	Currency        string        `json:"currency"`
	Description     string        `json:"description"`
	PaymentIdSource string        `json:"paymentIdSource"`
	RefundAmount    string        `json:"refundAmount"`
	RefundReason    string        `json:"refundReason"`
	ResultVariable  string        `json:"resultVariable"`
}

type OnFullAction string

const ON_FULL_REJECT OnFullAction = "reject"
const ON_FULL_CREATE_NEW OnFullAction = "create_new"
const ON_FULL_QUEUE OnFullAction = "queue"

type GroupJoinData struct {
	GroupKey       string       `json:"groupKey"`
	Capacity       int          `json:"capacity"`
	OnFullAction   OnFullAction `json:"onFullAction"`
	WelcomeMessage string       `json:"welcomeMessage"`
	RejectMessage  string       `json:"rejectMessage"`
}

type GroupLeaveData struct {
	FarewellMessage   string `json:"farewellMessage"`
	BroadcastLeave    bool   `json:"broadcastLeave"`
	BroadcastTemplate string `json:"broadcastTemplate"`
}

type ScheduleType string

const SCHEDULE_TYPE_INTERVAL ScheduleType = "interval"
const SCHEDULE_TYPE_CRON ScheduleType = "cron"

type ActivationMode string

const ACTIVATION_STANDALONE ActivationMode = "standalone"
const ACTIVATION_TRIGGERED ActivationMode = "triggered"

type PeriodicData struct {
	ScheduleType   ScheduleType   `json:"scheduleType"`
	IntervalMs     int64          `json:"intervalMs"`
	CronExpression string         `json:"cronExpression"`
	MaxExecutions  int            `json:"maxExecutions"`
	TargetNodeId   string         `json:"targetNodeId"`
	TaskIdVariable string         `json:"taskIdVariable"`
	ActivationMode ActivationMode `json:"activationMode"`
}

type EndpointData struct {
	Suffix         string `json:"suffix"`
	WaitingMessage string `json:"waitingMessage"`
}
