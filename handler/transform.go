package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

const DEFAULT_SANDBOX_TIMEOUT = 5 * time.Second

type transformHandler struct {
	deps *Deps
}

func NewTransformHandler(deps *Deps) *transformHandler {
	return &transformHandler{deps: deps}
}

// Execute runs the node script in a fresh VM against a read-only snapshot of
// the session. Script failures and timeouts store an error marker instead of
// aborting the flow; the node always advances.
func (h *transformHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.TransformData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}

	timeout := h.deps.SandboxTimeout
	if timeout <= 0 {
		timeout = DEFAULT_SANDBOX_TIMEOUT
	}
	result, err := runScript(data.Script, scriptScope(ec, data.InputVariable), timeout)
	if err != nil {
		var interrupted *goja.InterruptedError
		kind := "script_error"
		if errors.As(err, &interrupted) {
			kind = "timeout"
		}
		logger.Warn("transform script failed",
			zap.String("node", ec.Node.Id), zap.String("kind", kind), zap.Error(err))
		if data.ResultVariable != "" {
			ec.Session.SetVariable(data.ResultVariable, fmt.Sprintf("error: %s", kind))
		}
		return engine.AdvanceOutcome, nil
	}
	if data.ResultVariable != "" {
		ec.Session.SetVariable(data.ResultVariable, serializeScriptResult(result))
	}
	return engine.AdvanceOutcome, nil
}

// scriptScope is the object graph exposed to the script as `context`. The
// variables map is a copy; scripts cannot mutate the session directly.
func scriptScope(ec *engine.ExecutionContext, inputVariable string) map[string]any {
	vars := make(map[string]any, len(ec.Session.Variables))
	for k, v := range ec.Session.Variables {
		vars[k] = v
	}
	var input any
	if inputVariable != "" {
		input = ec.Session.Variables[inputVariable]
	}
	return map[string]any{
		"variables": vars,
		"user": map[string]any{
			"id":        ec.Update.From.Id,
			"firstName": ec.Update.From.FirstName,
			"lastName":  ec.Update.From.LastName,
			"username":  ec.Update.From.Username,
		},
		"bot":     map[string]any{"id": ec.Flow.BotId},
		"node":    map[string]any{"id": ec.Node.Id},
		"message": map[string]any{"text": ec.Update.Text},
		"input":   input,
	}
}

// runScript evaluates the script with a hard wall-clock interrupt. The VM has
// no host bindings beyond `context`; goja ships only the ECMAScript built-ins.
func runScript(script string, scope map[string]any, timeout time.Duration) (goja.Value, error) {
	vm := goja.New()
	if err := vm.Set("context", scope); err != nil {
		return nil, err
	}
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt("script timeout")
	})
	defer timer.Stop()
	return vm.RunString(script)
}

func serializeScriptResult(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	exported := v.Export()
	switch e := exported.(type) {
	case string, bool, int64, float64:
		return e
	default:
		encoded, err := json.Marshal(exported)
		if err != nil {
			return fmt.Sprintf("%v", exported)
		}
		return string(encoded)
	}
}
