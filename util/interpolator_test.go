package util

import (
	"testing"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/stretchr/testify/require"
)

func interpolationContext() InterpolationContext {
	return InterpolationContext{
		User:        model.User{Id: 42, FirstName: "Ada", LastName: "Lovelace", Username: "ada"},
		ChatId:      77,
		MessageText: "hi there",
		Variables: map[string]any{
			"name":  "Ada",
			"score": 12.5,
			"order": map[string]any{
				"id":    "ord-1",
				"total": float64(99),
			},
		},
		Now: time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC),
	}
}

func TestInterpolate(t *testing.T) {
	ctx := interpolationContext()

	scenarios := map[string]struct {
		template string
		expected string
	}{
		"no tokens":           {"plain text", "plain text"},
		"reserved user path":  {"hello {{user.firstName}}", "hello Ada"},
		"reserved user id":    {"id={{user.id}}", "id=42"},
		"reserved chat id":    {"chat={{chat.id}}", "chat=77"},
		"reserved message":    {"you said {{message.text}}", "you said hi there"},
		"reserved date":       {"{{date}}", "2026-08-28"},
		"reserved time":       {"{{time}}", "15:04:05"},
		"exact variable":      {"{{name}} scored {{score}}", "Ada scored 12.5"},
		"nested variable":     {"order {{order.id}} total {{order.total}}", "order ord-1 total 99"},
		"unknown path":        {"[{{missing}}]", "[]"},
		"unknown nested path": {"[{{order.missing}}]", "[]"},
		"whitespace in token": {"{{ name }}", "Ada"},
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, sc.expected, Interpolate(sc.template, ctx))
		})
	}
}

func TestInterpolateSerializesComposites(t *testing.T) {
	ctx := interpolationContext()
	require.Equal(t, `{"id":"ord-1","total":99}`, Interpolate("{{order}}", ctx))
}
