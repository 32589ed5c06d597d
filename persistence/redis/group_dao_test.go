package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/stretchr/testify/require"
)

func openGroup(id string, participants ...int64) *model.GroupSession {
	return &model.GroupSession{
		Id:             id,
		BotId:          "bot-1",
		GroupKey:       "trivia",
		ParticipantIds: participants,
		Capacity:       2,
		Status:         model.GROUP_STATUS_OPEN,
		CreatedAt:      time.Now(),
	}
}

func TestFindOpenGroupTracksIndex(t *testing.T) {
	dao := NewRedisGroupStorageWithClient(testClient(t), "test")
	ctx := context.Background()

	_, err := dao.FindOpenGroup(ctx, "bot-1", "trivia")
	require.ErrorAs(t, err, &persistence.NotFoundError{})

	require.NoError(t, dao.SaveGroup(ctx, openGroup("g1", 1)))
	found, err := dao.FindOpenGroup(ctx, "bot-1", "trivia")
	require.NoError(t, err)
	require.Equal(t, "g1", found.Id)

	// Filling the group removes it from the open index.
	require.NoError(t, dao.SaveGroup(ctx, openGroup("g1", 1, 2)))
	_, err = dao.FindOpenGroup(ctx, "bot-1", "trivia")
	require.ErrorAs(t, err, &persistence.NotFoundError{})

	// The record itself is still readable.
	group, err := dao.GetGroup(ctx, "bot-1", "g1")
	require.NoError(t, err)
	require.Len(t, group.ParticipantIds, 2)
}

func TestArchivedGroupLeavesIndex(t *testing.T) {
	dao := NewRedisGroupStorageWithClient(testClient(t), "test")
	ctx := context.Background()

	require.NoError(t, dao.SaveGroup(ctx, openGroup("g1", 1)))
	archived := openGroup("g1")
	archived.Status = model.GROUP_STATUS_ARCHIVED
	require.NoError(t, dao.SaveGroup(ctx, archived))

	_, err := dao.FindOpenGroup(ctx, "bot-1", "trivia")
	require.ErrorAs(t, err, &persistence.NotFoundError{})
}

func TestEndpointBufferTakeConsumes(t *testing.T) {
	dao := NewRedisEndpointBufferWithClient(testClient(t), "test")
	ctx := context.Background()

	require.NoError(t, dao.Put(ctx, "bot-1:node-1", map[string]any{"k": "v"}))
	payload, err := dao.Take(ctx, "bot-1:node-1")
	require.NoError(t, err)
	require.Equal(t, "v", payload["k"])

	_, err = dao.Take(ctx, "bot-1:node-1")
	require.ErrorAs(t, err, &persistence.NotFoundError{})
}
