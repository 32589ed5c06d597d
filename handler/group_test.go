package handler

import (
	"context"
	"testing"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/stretchr/testify/require"
)

func joinData(onFull string) map[string]any {
	return map[string]any{
		"groupKey":     "trivia",
		"capacity":     2,
		"onFullAction": onFull,
	}
}

func joinAs(t *testing.T, h *groupJoinHandler, userId int64) (*engine.ExecutionContext, engine.Outcome) {
	t.Helper()
	ec := execContext(model.NODE_TYPE_GROUP_JOIN, joinData("reject"), true)
	ec.Session.UserId = userId
	ec.Session.ChatId = userId
	ec.Update.From.Id = userId
	outcome, err := h.Execute(context.Background(), ec)
	require.NoError(t, err)
	return ec, outcome
}

func TestGroupJoinCreatesAndFills(t *testing.T) {
	deps, storage := newTestDeps(&fakeTelegram{})
	h := NewGroupJoinHandler(deps)

	// First joiner opens the group as owner.
	ec1, outcome := joinAs(t, h, 1)
	require.True(t, outcome.Advance)
	require.Empty(t, outcome.Handle)
	require.NotNil(t, ec1.Session.LobbyData)
	require.Equal(t, model.LOBBY_ROLE_OWNER, ec1.Session.LobbyData.Role)

	// Second joiner fills it.
	ec2, outcome := joinAs(t, h, 2)
	require.True(t, outcome.Advance)
	require.Equal(t, model.LOBBY_ROLE_MEMBER, ec2.Session.LobbyData.Role)

	group, err := storage.GetGroup(context.Background(), "bot-1", ec1.Session.LobbyData.GroupSessionId)
	require.NoError(t, err)
	require.Equal(t, model.GROUP_STATUS_FULL, group.Status)
	require.Len(t, group.ParticipantIds, 2)
}

func TestGroupJoinFullRejects(t *testing.T) {
	tg := &fakeTelegram{}
	deps, _ := newTestDeps(tg)
	h := NewGroupJoinHandler(deps)

	joinAs(t, h, 1)
	joinAs(t, h, 2)

	ec3 := execContext(model.NODE_TYPE_GROUP_JOIN, joinData("reject"), true)
	ec3.Session.UserId = 3
	ec3.Update.From.Id = 3
	outcome, err := h.Execute(context.Background(), ec3)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Equal(t, GROUP_FULL_HANDLE, outcome.Handle)
	require.Nil(t, ec3.Session.LobbyData)
	require.Equal(t, "Sorry, this group is full.", tg.lastSent().Text)
}

func TestGroupJoinFullCreatesNewGroup(t *testing.T) {
	deps, storage := newTestDeps(&fakeTelegram{})
	h := NewGroupJoinHandler(deps)

	ec1, _ := joinAs(t, h, 1)
	joinAs(t, h, 2)

	ec3 := execContext(model.NODE_TYPE_GROUP_JOIN, joinData("create_new"), true)
	ec3.Session.UserId = 3
	ec3.Update.From.Id = 3
	outcome, err := h.Execute(context.Background(), ec3)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Empty(t, outcome.Handle)
	require.NotNil(t, ec3.Session.LobbyData)
	require.Equal(t, model.LOBBY_ROLE_OWNER, ec3.Session.LobbyData.Role)
	require.NotEqual(t, ec1.Session.LobbyData.GroupSessionId, ec3.Session.LobbyData.GroupSessionId)

	group, err := storage.GetGroup(context.Background(), "bot-1", ec3.Session.LobbyData.GroupSessionId)
	require.NoError(t, err)
	require.Equal(t, model.GROUP_STATUS_OPEN, group.Status)
}

func TestGroupLeaveArchivesEmptyGroup(t *testing.T) {
	tg := &fakeTelegram{}
	deps, storage := newTestDeps(tg)
	join := NewGroupJoinHandler(deps)
	leave := NewGroupLeaveHandler(deps)

	ec1, _ := joinAs(t, join, 1)
	groupId := ec1.Session.LobbyData.GroupSessionId
	require.NoError(t, storage.Save(context.Background(), ec1.Session))

	ecLeave := execContext(model.NODE_TYPE_GROUP_LEAVE, map[string]any{
		"farewellMessage": "bye!",
	}, true)
	ecLeave.Session = ec1.Session
	outcome, err := leave.Execute(context.Background(), ecLeave)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Nil(t, ecLeave.Session.LobbyData)
	require.Equal(t, "bye!", tg.lastSent().Text)

	group, err := storage.GetGroup(context.Background(), "bot-1", groupId)
	require.NoError(t, err)
	require.Equal(t, model.GROUP_STATUS_ARCHIVED, group.Status)
	require.Empty(t, group.ParticipantIds)
}

func TestGroupLeaveBroadcastsToRemaining(t *testing.T) {
	tg := &fakeTelegram{}
	deps, storage := newTestDeps(tg)
	join := NewGroupJoinHandler(deps)
	leave := NewGroupLeaveHandler(deps)

	ec1, _ := joinAs(t, join, 1)
	ec2, _ := joinAs(t, join, 2)
	require.NoError(t, storage.Save(context.Background(), ec1.Session))
	require.NoError(t, storage.Save(context.Background(), ec2.Session))

	ecLeave := execContext(model.NODE_TYPE_GROUP_LEAVE, map[string]any{
		"broadcastLeave": true,
	}, true)
	ecLeave.Session = ec1.Session
	ecLeave.Update.From = model.User{Id: 1, FirstName: "Ada"}
	_, err := leave.Execute(context.Background(), ecLeave)
	require.NoError(t, err)

	// The remaining member got the departure notice in their own chat.
	require.Equal(t, int64(2), tg.lastSent().ChatId)
	require.Contains(t, tg.lastSent().Text, "Ada left")
}
