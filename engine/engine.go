package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Billerens/botmanager-be-sub004/analytics"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/metrics"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

// maxSteps bounds one dispatch pass so a cyclic graph of always-advancing
// nodes cannot spin forever.
const maxSteps = 1000

// lockStripes bounds the session lock table: conversations hash onto a fixed
// set of mutexes instead of growing one map entry per (bot, user) for the
// process lifetime. A stripe collision only serializes two unrelated
// conversations, it never interleaves one.
const lockStripes = 256

type FlowProvider interface {
	GetFlow(ctx context.Context, botId string) (*model.Flow, error)
}

// Engine pairs inbound events with sessions and walks the graph through an
// explicit work-list loop. Handlers never call each other; they return an
// Outcome and the engine routes.
type Engine struct {
	flows    FlowProvider
	sessions persistence.SessionStorage
	router   *Router
	registry map[model.NodeType]Handler

	locks [lockStripes]sync.Mutex
}

func NewEngine(flows FlowProvider, sessions persistence.SessionStorage, router *Router) *Engine {
	return &Engine{
		flows:    flows,
		sessions: sessions,
		router:   router,
		registry: make(map[model.NodeType]Handler),
	}
}

// Register installs a handler for a node type. Called once at startup; the
// registry is read-only afterwards.
func (e *Engine) Register(nodeType model.NodeType, handler Handler) {
	e.registry[nodeType] = handler
}

// sessionLock serializes dispatches per (bot, user). Two concurrent events
// for the same session (duplicate webhook delivery, periodic firing during a
// conversation) would otherwise race on Variables and CurrentNodeId.
func (e *Engine) sessionLock(botId string, userId int64) *sync.Mutex {
	key := botId + ":" + strconv.FormatInt(userId, 10)
	return &e.locks[murmur3.Sum32([]byte(key))%lockStripes]
}

// Dispatch processes one inbound event for the session it belongs to.
func (e *Engine) Dispatch(ctx context.Context, update *model.Update) error {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()
	metrics.DispatchesTotal.WithLabelValues(string(update.Kind)).Inc()

	flow, err := e.flows.GetFlow(ctx, update.BotId)
	if err != nil {
		return err
	}
	lock := e.sessionLock(update.BotId, update.From.Id)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.loadOrCreateSession(ctx, flow, update)
	if err != nil {
		return err
	}
	startId := session.CurrentNodeId
	if _, ok := flow.Node(startId); !ok {
		// The flow was edited and the resting node removed. Fail closed:
		// log and leave the session where it is.
		logger.Error("session parked at unknown node",
			zap.String("bot", update.BotId), zap.Int64("user", update.From.Id), zap.String("node", startId))
		return nil
	}
	e.run(ctx, flow, session, update, startId, false)
	session.LastActivity = time.Now()
	return e.sessions.Save(ctx, session)
}

// DispatchAt runs a sub-graph starting at a specific node, used by the
// scheduler for periodic firings and by the endpoint resume path. The
// session's resting node is restored afterwards unless a handler in the
// sub-graph parked the session somewhere else on purpose.
func (e *Engine) DispatchAt(ctx context.Context, update *model.Update, startNodeId string, restorePosition bool) error {
	metrics.DispatchesTotal.WithLabelValues(string(update.Kind)).Inc()
	flow, err := e.flows.GetFlow(ctx, update.BotId)
	if err != nil {
		return err
	}
	lock := e.sessionLock(update.BotId, update.From.Id)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.loadOrCreateSession(ctx, flow, update)
	if err != nil {
		return err
	}
	if _, ok := flow.Node(startNodeId); !ok {
		logger.Error("dispatch target node missing from flow",
			zap.String("bot", update.BotId), zap.String("node", startNodeId))
		return nil
	}
	resting := session.CurrentNodeId
	e.run(ctx, flow, session, update, startNodeId, true)
	if restorePosition {
		session.CurrentNodeId = resting
	}
	session.LastActivity = time.Now()
	return e.sessions.Save(ctx, session)
}

func (e *Engine) loadOrCreateSession(ctx context.Context, flow *model.Flow, update *model.Update) (*model.Session, error) {
	session, err := e.sessions.Get(ctx, update.BotId, update.From.Id)
	if err == nil {
		if session.ChatId == 0 {
			session.ChatId = update.ChatId
		}
		return session, nil
	}
	if _, ok := err.(persistence.NotFoundError); !ok {
		return nil, err
	}
	session = model.NewSession(update.BotId, update.From.Id, update.ChatId)
	session.CurrentNodeId = flow.RootId
	if session.CurrentNodeId == "" && len(flow.Nodes) > 0 {
		session.CurrentNodeId = flow.Nodes[0].Id
	}
	return session, nil
}

type workItem struct {
	nodeId  string
	reached bool
}

// run is the trampoline: a LIFO work list reproduces the depth-first order of
// the old recursive continuation style with bounded stack depth. Fan-out
// children are pushed in reverse so they execute in edge order, each chain
// running to completion before the next child starts.
func (e *Engine) run(ctx context.Context, flow *model.Flow, session *model.Session, update *model.Update, startId string, reached bool) {
	worklist := []workItem{{nodeId: startId, reached: reached}}
	fanOutOrigin := ""
	steps := 0
	for len(worklist) > 0 {
		it := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		steps++
		if steps > maxSteps {
			logger.Error("dispatch exceeded step budget, stopping",
				zap.String("bot", session.BotId), zap.String("node", it.nodeId))
			return
		}
		node, ok := flow.Node(it.nodeId)
		if !ok {
			logger.Error("edge target missing from flow", zap.String("node", it.nodeId))
			continue
		}
		handler, ok := e.registry[node.Type]
		if !ok {
			logger.Error("no handler registered for node type", zap.String("type", string(node.Type)))
			continue
		}
		session.CurrentNodeId = node.Id
		ec := &ExecutionContext{
			Flow:                     flow,
			Node:                     node,
			Session:                  session,
			Update:                   update,
			ReachedThroughTransition: it.reached,
		}
		outcome, err := handler.Execute(ctx, ec)
		if err != nil {
			logger.Error("node handler failed",
				zap.String("bot", session.BotId), zap.String("node", node.Id),
				zap.String("type", string(node.Type)), zap.Error(err))
			metrics.NodeExecutionsTotal.WithLabelValues(string(node.Type), "error").Inc()
			analytics.RecordNodeFailure(session.BotId, flow.Id, string(node.Type), node.Id, session.UserId, err.Error())
		} else {
			metrics.NodeExecutionsTotal.WithLabelValues(string(node.Type), "ok").Inc()
			analytics.RecordNodeSuccess(session.BotId, flow.Id, string(node.Type), node.Id, session.UserId)
		}
		if !outcome.Advance {
			continue
		}
		targets := e.router.Next(flow, node.Id, outcome.Handle)
		if len(targets) == 0 {
			continue
		}
		if len(targets) > 1 {
			fanOutOrigin = node.Id
		}
		for i := len(targets) - 1; i >= 0; i-- {
			worklist = append(worklist, workItem{nodeId: targets[i], reached: true})
		}
	}
	// Fan-out that dead-ends returns control to the originating node so the
	// user's next message is routed through it again.
	if fanOutOrigin != "" && session.CurrentNodeId != fanOutOrigin {
		if len(flow.OutEdges(session.CurrentNodeId)) == 0 {
			session.CurrentNodeId = fanOutOrigin
		}
	}
}
