package payment

import "context"

const STATUS_PENDING = "pending"
const STATUS_SUCCEEDED = "succeeded"
const STATUS_CANCELLED = "cancelled"
const STATUS_REFUNDED = "refunded"

type PaymentSpec struct {
	BotId          string `json:"botId"`
	UserId         int64  `json:"userId"`
	ChatId         int64  `json:"chatId"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type Payment struct {
	Id         string `json:"id"`
	ExternalId string `json:"externalId"`
	Status     string `json:"status"`
	PaymentUrl string `json:"paymentUrl"`
}

// Provider is the payment collaborator boundary.
type Provider interface {
	CreatePayment(ctx context.Context, spec *PaymentSpec) (*Payment, error)
	CheckPaymentStatus(ctx context.Context, id string) (*Payment, error)
	CancelPayment(ctx context.Context, id string) (*Payment, error)
	RefundPayment(ctx context.Context, id string, amount string, reason string) (*Payment, error)
}
