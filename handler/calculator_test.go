package handler

import (
	"context"
	"testing"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/stretchr/testify/require"
)

func TestCalculatorHandler(t *testing.T) {
	scenarios := map[string]struct {
		data      map[string]any
		variables map[string]any
		expected  any
	}{
		"interpolated expression with precision": {
			data: map[string]any{
				"expression":     "2 + 2 * {{x}}",
				"resultVariable": "result",
				"format":         "number",
				"precision":      2,
			},
			variables: map[string]any{"x": 3},
			expected:  "8.00",
		},
		"currency format": {
			data: map[string]any{
				"expression":     "100 / 4",
				"resultVariable": "result",
				"format":         "currency",
				"precision":      2,
				"currency":       "EUR",
			},
			expected: "25.00 EUR",
		},
		"percentage format": {
			data: map[string]any{
				"expression":     "1 / 2 * 100",
				"resultVariable": "result",
				"format":         "percentage",
				"precision":      0,
			},
			expected: "50%",
		},
		"letters are stripped before evaluation": {
			data: map[string]any{
				"expression":     "2 * abc3",
				"resultVariable": "result",
				"format":         "number",
				"precision":      0,
			},
			expected: "6",
		},
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			ec := execContext(model.NODE_TYPE_CALCULATOR, sc.data, true)
			for k, v := range sc.variables {
				ec.Session.SetVariable(k, v)
			}
			deps, _ := newTestDeps(&fakeTelegram{})
			outcome, err := NewCalculatorHandler(deps).Execute(context.Background(), ec)
			require.NoError(t, err)
			require.True(t, outcome.Advance)
			require.Equal(t, sc.expected, ec.Session.Variables["result"])
		})
	}
}

// A broken expression must not stall the flow.
func TestCalculatorFailureStillAdvances(t *testing.T) {
	ec := execContext(model.NODE_TYPE_CALCULATOR, map[string]any{
		"expression":     "((",
		"resultVariable": "result",
	}, true)
	deps, _ := newTestDeps(&fakeTelegram{})
	outcome, err := NewCalculatorHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	_, ok := ec.Session.Variables["result"]
	require.False(t, ok)
}
