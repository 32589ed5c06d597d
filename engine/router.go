package engine

import (
	"strconv"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"go.uber.org/zap"
)

// Router resolves the next node ids for (node, output handle) against the
// published edge set.
type Router struct{}

func NewRouter() *Router {
	return &Router{}
}

// Next returns the ordered target list. Exact sourceHandle matching is
// canonical. With an empty handle every unconditioned edge matches; more than
// one target means fan-out.
//
// Deprecated compatibility path: when a handle matches no edge but parses as
// a number, it is treated as an ordinal index into the node's out-edges
// (legacy keyboard button routing). This breaks if edges are reordered
// upstream and must not be extended to new node types.
func (r *Router) Next(flow *model.Flow, nodeId string, handle string) []string {
	edges := flow.OutEdges(nodeId)
	if len(edges) == 0 {
		return nil
	}
	if handle == "" {
		var targets []string
		for _, e := range edges {
			if e.SourceHandle == "" {
				targets = append(targets, e.Target)
			}
		}
		if len(targets) > 0 {
			return targets
		}
		// Every out-edge is handle-tagged; a default advance takes the first
		// edge so the flow cannot dead-end on an untagged output.
		return []string{edges[0].Target}
	}
	var targets []string
	for _, e := range edges {
		if e.SourceHandle == handle {
			targets = append(targets, e.Target)
		}
	}
	if len(targets) > 0 {
		return targets
	}
	if idx, err := strconv.Atoi(handle); err == nil && idx >= 0 && idx < len(edges) {
		logger.Debug("positional edge fallback", zap.String("node", nodeId), zap.Int("index", idx))
		return []string{edges[idx].Target}
	}
	return nil
}
