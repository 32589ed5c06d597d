package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence/inmem"
	"github.com/stretchr/testify/require"
)

func validFlow() *model.Flow {
	return &model.Flow{
		Id:       "flow-1",
		BotId:    "bot-1",
		BotToken: "tok",
		RootId:   "n1",
		Nodes: []model.Node{
			{Id: "n1", Type: model.NODE_TYPE_MESSAGE, Data: map[string]any{"text": "hi"}},
			{Id: "n2", Type: model.NODE_TYPE_MESSAGE, Data: map[string]any{"text": "bye"}},
		},
		Edges: []model.Edge{{Source: "n1", Target: "n2"}},
	}
}

func TestPublishFlowRejectsInvalidDefinitions(t *testing.T) {
	svc := NewMetadataService(inmem.NewStorage(), time.Minute)

	scenarios := map[string]func(*model.Flow){
		"missing bot id":    func(f *model.Flow) { f.BotId = "" },
		"missing token":     func(f *model.Flow) { f.BotToken = "" },
		"no nodes":          func(f *model.Flow) { f.Nodes = nil },
		"duplicate node id": func(f *model.Flow) { f.Nodes[1].Id = "n1" },
		"dangling edge":     func(f *model.Flow) { f.Edges[0].Target = "ghost" },
		"unknown node type": func(f *model.Flow) { f.Nodes[0].Type = "teleport" },
		"root not in graph": func(f *model.Flow) { f.RootId = "ghost" },
	}
	for name, mutate := range scenarios {
		t.Run(name, func(t *testing.T) {
			flow := validFlow()
			mutate(flow)
			require.Error(t, svc.PublishFlow(context.Background(), flow))
		})
	}
}

func TestGetFlowCachesUntilRepublish(t *testing.T) {
	storage := inmem.NewStorage()
	svc := NewMetadataService(storage, time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.PublishFlow(ctx, validFlow()))
	first, err := svc.GetFlow(ctx, "bot-1")
	require.NoError(t, err)

	// A write that bypasses the service is invisible while cached.
	behind := validFlow()
	behind.Id = "flow-2"
	require.NoError(t, storage.SaveFlow(ctx, behind))
	cached, err := svc.GetFlow(ctx, "bot-1")
	require.NoError(t, err)
	require.Equal(t, first.Id, cached.Id)

	// Publishing through the service drops the cached copy.
	updated := validFlow()
	updated.Id = "flow-3"
	require.NoError(t, svc.PublishFlow(ctx, updated))
	fresh, err := svc.GetFlow(ctx, "bot-1")
	require.NoError(t, err)
	require.Equal(t, "flow-3", fresh.Id)
}

func TestGetFlowMissingBot(t *testing.T) {
	svc := NewMetadataService(inmem.NewStorage(), time.Minute)
	_, err := svc.GetFlow(context.Background(), "nobody")
	require.Error(t, err)
}
