package engine

import (
	"context"

	"github.com/Billerens/botmanager-be-sub004/model"
)

// ExecutionContext is built once per handler dispatch and never persisted.
// ReachedThroughTransition is true when the node was reached via an edge in
// the same inbound event, false when the node was the session's resting point.
type ExecutionContext struct {
	Flow                     *model.Flow
	Node                     *model.Node
	Session                  *model.Session
	Update                   *model.Update
	ReachedThroughTransition bool
}

// Outcome tells the engine what to do after a handler ran. Advance=false
// parks the session at the current node awaiting a future event. Handle
// selects a tagged output edge ("" means the default output).
type Outcome struct {
	Advance bool
	Handle  string
}

var ParkOutcome = Outcome{}
var AdvanceOutcome = Outcome{Advance: true}

func AdvanceVia(handle string) Outcome {
	return Outcome{Advance: true, Handle: handle}
}

// Handler executes the side effects of one node type.
type Handler interface {
	Execute(ctx context.Context, ec *ExecutionContext) (Outcome, error)
}
