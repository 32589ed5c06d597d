package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Billerens/botmanager-be-sub004/engine"
	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const GROUP_FULL_HANDLE = "full"

type groupJoinHandler struct {
	deps *Deps
}

func NewGroupJoinHandler(deps *Deps) *groupJoinHandler {
	return &groupJoinHandler{deps: deps}
}

// Execute places the user in the open group for the configured key, creating
// one when none exists. A full group is handled per policy: reject advances
// through the "full" handle, create_new opens a fresh group with this user as
// owner. Queueing is a designer-facing placeholder and behaves like reject.
func (h *groupJoinHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.GroupJoinData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}
	groupKey := h.deps.Interpolate(data.GroupKey, ec)
	if groupKey == "" {
		groupKey = ec.Node.Id
	}

	group, err := h.deps.Groups.FindOpenGroup(ctx, ec.Session.BotId, groupKey)
	var notFound persistence.NotFoundError
	switch {
	case err == nil:
	case errors.As(err, &notFound):
		group = nil
	default:
		return engine.AdvanceOutcome, err
	}

	role := model.LOBBY_ROLE_MEMBER
	if group == nil {
		group = h.newGroup(ec.Session.BotId, groupKey, data.Capacity)
		role = model.LOBBY_ROLE_OWNER
	} else if group.HasParticipant(ec.Session.UserId) {
		h.attachLobby(ec.Session, group, role)
		return engine.AdvanceOutcome, nil
	} else if group.IsFull() {
		switch data.OnFullAction {
		case model.ON_FULL_CREATE_NEW:
			group.Status = model.GROUP_STATUS_FULL
			if err := h.deps.Groups.SaveGroup(ctx, group); err != nil {
				return engine.AdvanceOutcome, err
			}
			group = h.newGroup(ec.Session.BotId, groupKey, data.Capacity)
			role = model.LOBBY_ROLE_OWNER
		default:
			// reject, and queue until it is implemented
			reject := data.RejectMessage
			if reject == "" {
				reject = "Sorry, this group is full."
			}
			if _, err := h.deps.SendAndPersist(ctx, ec, h.deps.Interpolate(reject, ec), nil); err != nil {
				return engine.AdvanceVia(GROUP_FULL_HANDLE), err
			}
			return engine.AdvanceVia(GROUP_FULL_HANDLE), nil
		}
	}

	group.ParticipantIds = append(group.ParticipantIds, ec.Session.UserId)
	if group.IsFull() {
		group.Status = model.GROUP_STATUS_FULL
	}
	if err := h.deps.Groups.SaveGroup(ctx, group); err != nil {
		return engine.AdvanceOutcome, err
	}
	h.attachLobby(ec.Session, group, role)

	if data.WelcomeMessage != "" {
		if _, err := h.deps.SendAndPersist(ctx, ec, h.deps.Interpolate(data.WelcomeMessage, ec), nil); err != nil {
			return engine.AdvanceOutcome, err
		}
	}
	return engine.AdvanceOutcome, nil
}

func (h *groupJoinHandler) newGroup(botId string, groupKey string, capacity int) *model.GroupSession {
	return &model.GroupSession{
		Id:        uuid.NewString(),
		BotId:     botId,
		GroupKey:  groupKey,
		Capacity:  capacity,
		Status:    model.GROUP_STATUS_OPEN,
		CreatedAt: time.Now(),
	}
}

func (h *groupJoinHandler) attachLobby(session *model.Session, group *model.GroupSession, role model.LobbyRole) {
	session.LobbyData = &model.LobbyData{
		GroupSessionId: group.Id,
		Role:           role,
		JoinedAt:       time.Now(),
	}
	session.SetVariable("group_session_id", group.Id)
	session.SetVariable("group_member_count", len(group.ParticipantIds))
}

type groupLeaveHandler struct {
	deps *Deps
}

func NewGroupLeaveHandler(deps *Deps) *groupLeaveHandler {
	return &groupLeaveHandler{deps: deps}
}

// Execute removes the user from their current group, optionally broadcasting
// the departure to the remaining members, and archives the group when it
// becomes empty. The leaver's own session continues through the graph.
func (h *groupLeaveHandler) Execute(ctx context.Context, ec *engine.ExecutionContext) (engine.Outcome, error) {
	var data model.GroupLeaveData
	if err := model.DecodeNodeData(ec.Node, &data); err != nil {
		return engine.AdvanceOutcome, err
	}
	lobby := ec.Session.LobbyData
	if lobby == nil {
		logger.Debug("group leave without lobby membership",
			zap.String("bot", ec.Session.BotId), zap.Int64("user", ec.Session.UserId))
		return engine.AdvanceOutcome, nil
	}

	group, err := h.deps.Groups.GetGroup(ctx, ec.Session.BotId, lobby.GroupSessionId)
	if err != nil {
		var notFound persistence.NotFoundError
		if errors.As(err, &notFound) {
			ec.Session.LobbyData = nil
			return engine.AdvanceOutcome, nil
		}
		return engine.AdvanceOutcome, err
	}

	group.RemoveParticipant(ec.Session.UserId)
	if len(group.ParticipantIds) == 0 {
		group.Status = model.GROUP_STATUS_ARCHIVED
	} else if group.Status == model.GROUP_STATUS_FULL && !group.IsFull() {
		group.Status = model.GROUP_STATUS_OPEN
	}
	if err := h.deps.Groups.SaveGroup(ctx, group); err != nil {
		return engine.AdvanceOutcome, err
	}
	ec.Session.LobbyData = nil
	delete(ec.Session.Variables, "group_session_id")

	if data.BroadcastLeave && len(group.ParticipantIds) > 0 {
		h.broadcast(ctx, ec, data, group)
	}
	if data.FarewellMessage != "" {
		if _, err := h.deps.SendAndPersist(ctx, ec, h.deps.Interpolate(data.FarewellMessage, ec), nil); err != nil {
			return engine.AdvanceOutcome, err
		}
	}
	return engine.AdvanceOutcome, nil
}

// broadcast notifies remaining members through their own sessions. Delivery
// failures are logged per member and never block the leaver.
func (h *groupLeaveHandler) broadcast(ctx context.Context, ec *engine.ExecutionContext, data model.GroupLeaveData, group *model.GroupSession) {
	template := data.BroadcastTemplate
	if template == "" {
		template = fmt.Sprintf("%s left the group.", displayName(ec.Update.From))
	} else {
		template = h.deps.Interpolate(template, ec)
	}
	for _, memberId := range group.ParticipantIds {
		member, err := h.deps.Sessions.Get(ctx, ec.Session.BotId, memberId)
		if err != nil {
			logger.Warn("broadcast target session missing",
				zap.String("bot", ec.Session.BotId), zap.Int64("user", memberId), zap.Error(err))
			continue
		}
		if _, err := h.deps.Telegram.SendMessage(ctx, ec.Flow.BotToken, member.ChatId, template, nil); err != nil {
			logger.Warn("departure broadcast failed",
				zap.Int64("chat", member.ChatId), zap.Error(err))
		}
	}
}

func displayName(u model.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("user %d", u.Id)
}
