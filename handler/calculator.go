package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

type calculatorHandler struct {
	deps *Deps
}

func NewCalculatorHandler(deps *Deps) *calculatorHandler {
	return &calculatorHandler{deps: deps}
}

// Execute evaluates the interpolated arithmetic expression and stores the
// formatted result. Evaluation failure is logged, never fatal: the flow must
// not deadlock on a bad expression, so this node advances unconditionally.
func (h *calculatorHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.CalculatorData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}
	expression := h.deps.Interpolate(data.Expression, ec)
	value, err := evaluateArithmetic(expression)
	if err != nil {
		logger.Warn("calculator evaluation failed",
			zap.String("node", ec.Node.Id), zap.String("expression", expression), zap.Error(err))
		return engine.AdvanceOutcome, nil
	}
	formatted := formatResult(value, data)
	if data.ResultVariable != "" {
		ec.Session.SetVariable(data.ResultVariable, formatted)
	}
	return engine.AdvanceOutcome, nil
}

// evaluateArithmetic admits only digits, the four basic operators, dot,
// parentheses and whitespace; everything else is stripped before the
// expression reaches the VM, so interpolated values can never smuggle in
// code.
func evaluateArithmetic(expression string) (float64, error) {
	sanitized := sanitizeExpression(expression)
	if strings.TrimSpace(sanitized) == "" {
		return 0, fmt.Errorf("expression empty after sanitization: %q", expression)
	}
	vm := goja.New()
	value, err := vm.RunString(sanitized)
	if err != nil {
		return 0, fmt.Errorf("error evaluating expression: %w", err)
	}
	return value.ToFloat(), nil
}

// sanitizeExpression strips everything except digits, arithmetic operators,
// parentheses, whitespace and the decimal point. The point is an allowlist
// extension for monetary amounts like 19.99; it cannot form anything but a
// number literal, so the expression stays pure arithmetic.
func sanitizeExpression(expression string) string {
	var b strings.Builder
	for _, r := range expression {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '(' || r == ')' || r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatResult(value float64, data model.CalculatorData) string {
	precision := data.Precision
	base := strconv.FormatFloat(value, 'f', precision, 64)
	switch data.Format {
	case model.CALC_FORMAT_CURRENCY:
		currency := data.Currency
		if currency == "" {
			currency = "USD"
		}
		return base + " " + currency
	case model.CALC_FORMAT_PERCENTAGE:
		return base + "%"
	default:
		return base
	}
}
