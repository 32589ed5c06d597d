package handler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"go.uber.org/zap"
)

const formIndexPrefix = "__form_index_"
const formCompletedPrefix = "__form_completed_"

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
var phoneRegexp = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{5,18}$`)

var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006"}

type formHandler struct {
	deps *Deps
}

func NewFormHandler(deps *Deps) *formHandler {
	return &formHandler{deps: deps}
}

// Execute collects the configured fields one message at a time. A field
// pointer scoped by node id tracks progress; invalid input re-prompts the
// same field without moving the pointer. When the last field validates, all
// answers are already in session variables, an optional summary is sent and
// the flow advances.
func (h *formHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.FormData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.ParkOutcome, err
	}
	if len(data.Fields) == 0 {
		logger.Warn("form node has no fields", zap.String("node", ec.Node.Id))
		return engine.AdvanceOutcome, nil
	}

	indexKey := formIndexPrefix + ec.Node.Id
	completedKey := formCompletedPrefix + ec.Node.Id

	if ec.ReachedThroughTransition {
		ec.Session.SetVariable(indexKey, 0)
		ec.Session.SetVariable(completedKey, false)
		return engine.ParkOutcome, h.promptField(ctx, ec, data.Fields[0])
	}

	index := intVariable(ec.Session.Variables, indexKey)
	if index >= len(data.Fields) {
		// Stale pointer from a republished flow; restart the form.
		index = 0
		ec.Session.SetVariable(indexKey, 0)
	}
	field := data.Fields[index]

	value, err := validateField(field, strings.TrimSpace(ec.Update.Text))
	if err != nil {
		message := field.ErrorMessage
		if message == "" {
			message = err.Error()
		}
		if _, sendErr := h.deps.SendAndPersist(ctx, ec, message, nil); sendErr != nil {
			return engine.ParkOutcome, sendErr
		}
		return engine.ParkOutcome, h.promptField(ctx, ec, field)
	}
	ec.Session.SetVariable(field.Name, value)

	index++
	ec.Session.SetVariable(indexKey, index)
	if index < len(data.Fields) {
		return engine.ParkOutcome, h.promptField(ctx, ec, data.Fields[index])
	}

	ec.Session.SetVariable(completedKey, true)
	if data.SendSummary {
		summary := data.SummaryMessage
		if summary == "" {
			summary = buildSummary(data.Fields, ec.Session.Variables)
		} else {
			summary = h.deps.Interpolate(summary, ec)
		}
		if _, err := h.deps.SendAndPersist(ctx, ec, summary, nil); err != nil {
			return engine.AdvanceOutcome, err
		}
	}
	return engine.AdvanceOutcome, nil
}

func (h *formHandler) promptField(ctx context.Context, ec *engine.ExecutionContext, field model.FormField) error {
	prompt := h.deps.Interpolate(field.Prompt, ec)
	if prompt == "" {
		prompt = "Please enter " + field.Name
	}
	if len(field.Options) > 0 {
		prompt += "\nOptions: " + strings.Join(field.Options, ", ")
	}
	_, err := h.deps.SendAndPersist(ctx, ec, prompt, nil)
	return err
}

// validateField checks the raw text against the field's type and constraints
// and returns the typed value to store.
func validateField(field model.FormField, text string) (any, error) {
	if text == "" {
		if field.Required {
			return nil, fmt.Errorf("this field is required")
		}
		return "", nil
	}
	switch field.Type {
	case model.FIELD_TYPE_EMAIL:
		if !emailRegexp.MatchString(text) {
			return nil, fmt.Errorf("please enter a valid email address")
		}
		return text, nil
	case model.FIELD_TYPE_PHONE:
		if !phoneRegexp.MatchString(text) {
			return nil, fmt.Errorf("please enter a valid phone number")
		}
		return text, nil
	case model.FIELD_TYPE_NUMBER:
		n, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("please enter a number")
		}
		if field.Min != nil && n < *field.Min {
			return nil, fmt.Errorf("value must be at least %v", *field.Min)
		}
		if field.Max != nil && n > *field.Max {
			return nil, fmt.Errorf("value must be at most %v", *field.Max)
		}
		return n, nil
	case model.FIELD_TYPE_DATE:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
		return nil, fmt.Errorf("please enter a date like 2006-01-02")
	case model.FIELD_TYPE_SELECT:
		for _, opt := range field.Options {
			if strings.EqualFold(opt, text) {
				return opt, nil
			}
		}
		return nil, fmt.Errorf("please choose one of: %s", strings.Join(field.Options, ", "))
	case model.FIELD_TYPE_MULTISELECT:
		var chosen []string
		for _, part := range strings.Split(text, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			matched := ""
			for _, opt := range field.Options {
				if strings.EqualFold(opt, part) {
					matched = opt
					break
				}
			}
			if matched == "" {
				return nil, fmt.Errorf("%q is not one of: %s", part, strings.Join(field.Options, ", "))
			}
			chosen = append(chosen, matched)
		}
		if len(chosen) == 0 {
			return nil, fmt.Errorf("please choose at least one of: %s", strings.Join(field.Options, ", "))
		}
		return chosen, nil
	default:
		return validateText(field, text)
	}
}

func validateText(field model.FormField, text string) (any, error) {
	if field.MinLength > 0 && len([]rune(text)) < field.MinLength {
		return nil, fmt.Errorf("answer must be at least %d characters", field.MinLength)
	}
	if field.MaxLength > 0 && len([]rune(text)) > field.MaxLength {
		return nil, fmt.Errorf("answer must be at most %d characters", field.MaxLength)
	}
	if field.Pattern != "" {
		re, err := regexp.Compile(field.Pattern)
		if err != nil {
			logger.Warn("invalid form field pattern", zap.String("pattern", field.Pattern), zap.Error(err))
			return text, nil
		}
		if !re.MatchString(text) {
			return nil, fmt.Errorf("answer does not match the expected format")
		}
	}
	return text, nil
}

func buildSummary(fields []model.FormField, vars map[string]any) string {
	var b strings.Builder
	b.WriteString("Here is what you entered:\n")
	for _, f := range fields {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(fmt.Sprintf("%v", vars[f.Name]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
