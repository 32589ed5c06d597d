package engine

import (
	"testing"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/stretchr/testify/require"
)

func routerFlow() *model.Flow {
	flow := &model.Flow{
		Id: "f1", BotId: "b1", RootId: "n1",
		Nodes: []model.Node{
			{Id: "n1", Type: model.NODE_TYPE_MESSAGE},
			{Id: "yes", Type: model.NODE_TYPE_MESSAGE},
			{Id: "no", Type: model.NODE_TYPE_MESSAGE},
			{Id: "both1", Type: model.NODE_TYPE_MESSAGE},
			{Id: "both2", Type: model.NODE_TYPE_MESSAGE},
			{Id: "tagged", Type: model.NODE_TYPE_MESSAGE},
		},
		Edges: []model.Edge{
			{Source: "n1", Target: "yes", SourceHandle: "yes"},
			{Source: "n1", Target: "no", SourceHandle: "no"},
			{Source: "both1", Target: "yes"},
			{Source: "both1", Target: "no"},
			{Source: "tagged", Target: "both1", SourceHandle: "ok"},
			{Source: "tagged", Target: "both2", SourceHandle: "fail"},
		},
	}
	flow.Index()
	return flow
}

func TestRouterNext(t *testing.T) {
	router := NewRouter()
	flow := routerFlow()

	scenarios := map[string]struct {
		nodeId  string
		handle  string
		targets []string
	}{
		"exact handle match": {
			nodeId: "n1", handle: "yes", targets: []string{"yes"},
		},
		"unconditioned edges fan out": {
			nodeId: "both1", handle: "", targets: []string{"yes", "no"},
		},
		"empty handle with only tagged edges takes first edge": {
			nodeId: "tagged", handle: "", targets: []string{"both1"},
		},
		"numeric handle falls back to edge index": {
			nodeId: "n1", handle: "1", targets: []string{"no"},
		},
		"unmatched handle routes nowhere": {
			nodeId: "n1", handle: "maybe", targets: nil,
		},
		"out of range index routes nowhere": {
			nodeId: "n1", handle: "5", targets: nil,
		},
		"no out edges": {
			nodeId: "yes", handle: "", targets: nil,
		},
	}
	for name, sc := range scenarios {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, sc.targets, router.Next(flow, sc.nodeId, sc.handle))
		})
	}
}
