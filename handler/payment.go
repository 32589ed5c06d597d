package handler

import (
	"context"
	"fmt"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const PAYMENT_ERROR_HANDLE = "error"

type paymentHandler struct {
	deps *Deps
}

func NewPaymentHandler(deps *Deps) *paymentHandler {
	return &paymentHandler{deps: deps}
}

// Execute dispatches one payment action. Results land both in the node-scoped
// result variable and in session-wide last_payment_* shortcuts. Any provider
// failure advances through the "error" handle so downstream nodes can branch;
// the flow itself never stalls on the payment backend.
func (h *paymentHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.PaymentData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceVia(PAYMENT_ERROR_HANDLE), err
	}

	result, err := h.dispatch(ctx, ec, data)
	if err != nil {
		logger.Error("payment action failed",
			zap.String("bot", ec.Session.BotId), zap.String("action", string(data.Action)), zap.Error(err))
		ec.Session.SetVariable("last_payment_error", err.Error())
		if data.ResultVariable != "" {
			ec.Session.SetVariable(data.ResultVariable, map[string]any{
				"status": "error",
				"error":  err.Error(),
			})
		}
		return engine.AdvanceVia(PAYMENT_ERROR_HANDLE), nil
	}

	state := map[string]any{
		"id":         result.Id,
		"externalId": result.ExternalId,
		"status":     result.Status,
		"paymentUrl": result.PaymentUrl,
	}
	if data.ResultVariable != "" {
		ec.Session.SetVariable(data.ResultVariable, state)
	}
	ec.Session.SetVariable("last_payment_id", result.Id)
	ec.Session.SetVariable("last_payment_status", result.Status)
	if result.PaymentUrl != "" {
		ec.Session.SetVariable("last_payment_url", result.PaymentUrl)
	}
	return engine.AdvanceOutcome, nil
}

func (h *paymentHandler) dispatch(ctx context.Context, ec *engine.ExecutionContext, data model.PaymentData) (*payment.Payment, error) {
	switch data.Action {
	case model.PAYMENT_ACTION_CREATE:
		spec := &payment.PaymentSpec{
			BotId:          ec.Session.BotId,
			UserId:         ec.Session.UserId,
			ChatId:         ec.Session.ChatId,
			Amount:         h.deps.Interpolate(data.Amount, ec),
			Currency:       data.Currency,
			Description:    h.deps.Interpolate(data.Description, ec),
			IdempotencyKey: uuid.NewString(),
		}
		return h.deps.Payments.CreatePayment(ctx, spec)
	case model.PAYMENT_ACTION_CHECK:
		id, err := h.paymentId(ec, data)
		if err != nil {
			return nil, err
		}
		return h.deps.Payments.CheckPaymentStatus(ctx, id)
	case model.PAYMENT_ACTION_CANCEL:
		id, err := h.paymentId(ec, data)
		if err != nil {
			return nil, err
		}
		return h.deps.Payments.CancelPayment(ctx, id)
	case model.PAYMENT_ACTION_REFUND:
		id, err := h.paymentId(ec, data)
		if err != nil {
			return nil, err
		}
		amount := h.deps.Interpolate(data.RefundAmount, ec)
		return h.deps.Payments.RefundPayment(ctx, id, amount, data.RefundReason)
	default:
		return nil, fmt.Errorf("unknown payment action %q", data.Action)
	}
}

// paymentId resolves the target payment: an interpolated source expression
// when configured, else the session-wide shortcut from the last create.
func (h *paymentHandler) paymentId(ec *engine.ExecutionContext, data model.PaymentData) (string, error) {
	if data.PaymentIdSource != "" {
		if id := h.deps.Interpolate(data.PaymentIdSource, ec); id != "" {
			return id, nil
		}
	}
	if id, ok := ec.Session.Variables["last_payment_id"].(string); ok && id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no payment id available for action %q", data.Action)
}
