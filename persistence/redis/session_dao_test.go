package redis

import (
	"context"
	"testing"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) rd.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return rd.NewClient(&rd.Options{Addr: mr.Addr()})
}

func TestSessionRoundTrip(t *testing.T) {
	dao := NewRedisSessionStorageWithClient(testClient(t), "test")
	ctx := context.Background()

	session := model.NewSession("bot-1", 42, 77)
	session.CurrentNodeId = "n1"
	session.SetVariable("name", "Ada")
	session.SetVariable("nested", map[string]any{"a": "b"})
	require.NoError(t, dao.Save(ctx, session))

	loaded, err := dao.Get(ctx, "bot-1", 42)
	require.NoError(t, err)
	require.Equal(t, "n1", loaded.CurrentNodeId)
	require.Equal(t, int64(77), loaded.ChatId)
	require.Equal(t, "Ada", loaded.Variables["name"])
	require.Equal(t, map[string]any{"a": "b"}, loaded.Variables["nested"])
	require.True(t, loaded.Active)
}

func TestSessionGetMissingIsNotFound(t *testing.T) {
	dao := NewRedisSessionStorageWithClient(testClient(t), "test")
	_, err := dao.Get(context.Background(), "bot-1", 999)
	require.ErrorAs(t, err, &persistence.NotFoundError{})
}

func TestListByCurrentNodeFiltersActiveSessions(t *testing.T) {
	dao := NewRedisSessionStorageWithClient(testClient(t), "test")
	ctx := context.Background()

	parked := model.NewSession("bot-1", 1, 1)
	parked.CurrentNodeId = "endpoint-1"
	elsewhere := model.NewSession("bot-1", 2, 2)
	elsewhere.CurrentNodeId = "other"
	inactive := model.NewSession("bot-1", 3, 3)
	inactive.CurrentNodeId = "endpoint-1"
	inactive.Active = false
	for _, s := range []*model.Session{parked, elsewhere, inactive} {
		require.NoError(t, dao.Save(ctx, s))
	}

	sessions, err := dao.ListByCurrentNode(ctx, "bot-1", "endpoint-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, int64(1), sessions[0].UserId)
}

func TestSessionsAreNamespacedPerBot(t *testing.T) {
	dao := NewRedisSessionStorageWithClient(testClient(t), "test")
	ctx := context.Background()

	session := model.NewSession("bot-1", 42, 77)
	require.NoError(t, dao.Save(ctx, session))

	_, err := dao.Get(ctx, "bot-2", 42)
	require.ErrorAs(t, err, &persistence.NotFoundError{})
}
