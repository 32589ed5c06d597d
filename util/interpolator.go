package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

var tokenRegexp = regexp.MustCompile(`\{\{(.*?)\}\}`)

// InterpolationContext is the lookup scope for template tokens: reserved
// user/chat/message paths first, then the session variable bag.
type InterpolationContext struct {
	User        model.User
	ChatId      int64
	MessageText string
	Variables   map[string]any
	Now         time.Time
}

func NewInterpolationContext(session *model.Session, update *model.Update) InterpolationContext {
	ctx := InterpolationContext{
		ChatId: session.ChatId,
		Now:    time.Now(),
	}
	if session != nil {
		ctx.Variables = session.Variables
	}
	if update != nil {
		ctx.User = update.From
		ctx.MessageText = update.Text
	}
	return ctx
}

// Interpolate substitutes {{path}} tokens. An unknown path resolves to the
// empty string so downstream emptiness checks keep working; it is logged as a
// warning, never returned as an error.
func Interpolate(template string, ctx InterpolationContext) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return tokenRegexp.ReplaceAllStringFunc(template, func(token string) string {
		path := strings.TrimSpace(token[2 : len(token)-2])
		value, ok := resolvePath(path, ctx)
		if !ok {
			logger.Warn("unknown interpolation path", zap.String("path", path))
			return ""
		}
		return stringify(value)
	})
}

func resolvePath(path string, ctx InterpolationContext) (any, bool) {
	switch path {
	case "user.firstName":
		return ctx.User.FirstName, true
	case "user.lastName":
		return ctx.User.LastName, true
	case "user.username":
		return ctx.User.Username, true
	case "user.id":
		return ctx.User.Id, true
	case "chat.id":
		return ctx.ChatId, true
	case "message.text":
		return ctx.MessageText, true
	case "timestamp":
		return ctx.Now.Unix(), true
	case "date":
		return ctx.Now.Format("2006-01-02"), true
	case "time":
		return ctx.Now.Format("15:04:05"), true
	}
	if v, ok := ctx.Variables[path]; ok {
		return v, true
	}
	// Dotted paths reach into nested variable objects.
	if strings.Contains(path, ".") {
		v, err := jsonpath.JsonPathLookup(ctx.Variables, "$."+path)
		if err == nil && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
