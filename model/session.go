package model

import "time"

// Session is the per (bot, end-user) execution state. It is created on the
// first inbound event, mutated by every node handler and never hard-deleted,
// only marked inactive.
type Session struct {
	BotId           string           `json:"botId"`
	UserId          int64            `json:"userId"`
	ChatId          int64            `json:"chatId"`
	CurrentNodeId   string           `json:"currentNodeId"`
	Variables       map[string]any   `json:"variables"`
	LastActivity    time.Time        `json:"lastActivity"`
	Active          bool             `json:"active"`
	LocationRequest *LocationRequest `json:"locationRequest,omitempty"`
	LobbyData       *LobbyData       `json:"lobbyData,omitempty"`
}

func NewSession(botId string, userId int64, chatId int64) *Session {
	return &Session{
		BotId:        botId,
		UserId:       userId,
		ChatId:       chatId,
		Variables:    make(map[string]any),
		LastActivity: time.Now(),
		Active:       true,
	}
}

func (s *Session) SetVariable(key string, value any) {
	if s.Variables == nil {
		s.Variables = make(map[string]any)
	}
	s.Variables[key] = value
}

func (s *Session) GetVariable(key string) (any, bool) {
	v, ok := s.Variables[key]
	return v, ok
}

// LocationRequest marks a pending location prompt. An inbound event carrying
// coordinates is matched against it; everything else clears it.
type LocationRequest struct {
	NodeId    string    `json:"nodeId"`
	Timestamp time.Time `json:"timestamp"`
	TimeoutMs int64     `json:"timeoutMs"`
}

func (lr *LocationRequest) Expired(now time.Time) bool {
	if lr.TimeoutMs <= 0 {
		return false
	}
	return now.Sub(lr.Timestamp) > time.Duration(lr.TimeoutMs)*time.Millisecond
}

type LobbyRole string

const LOBBY_ROLE_OWNER LobbyRole = "owner"
const LOBBY_ROLE_MEMBER LobbyRole = "member"

type LobbyData struct {
	GroupSessionId string    `json:"groupSessionId"`
	Role           LobbyRole `json:"role"`
	JoinedAt       time.Time `json:"joinedAt"`
}

type GroupStatus string

const GROUP_STATUS_OPEN GroupStatus = "open"
const GROUP_STATUS_FULL GroupStatus = "full"
const GROUP_STATUS_ARCHIVED GroupStatus = "archived"

// GroupSession is lobby state shared by several end-user sessions. The engine
// references it through GroupStorage but does not own its lifecycle rules
// beyond join/leave/archive.
type GroupSession struct {
	Id             string      `json:"id"`
	BotId          string      `json:"botId"`
	GroupKey       string      `json:"groupKey"`
	ParticipantIds []int64     `json:"participantIds"`
	Capacity       int         `json:"capacity"`
	Status         GroupStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func (g *GroupSession) IsFull() bool {
	return g.Capacity > 0 && len(g.ParticipantIds) >= g.Capacity
}

func (g *GroupSession) HasParticipant(userId int64) bool {
	for _, id := range g.ParticipantIds {
		if id == userId {
			return true
		}
	}
	return false
}

func (g *GroupSession) RemoveParticipant(userId int64) {
	out := g.ParticipantIds[:0]
	for _, id := range g.ParticipantIds {
		if id != userId {
			out = append(out, id)
		}
	}
	g.ParticipantIds = out
}
