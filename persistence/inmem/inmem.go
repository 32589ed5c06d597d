package inmem

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/util"
)

// Storage is a single-process implementation of every persistence interface,
// for local development and tests. Values round-trip through the same JSON
// codec as the redis DAOs so both backends see identical variable shapes.
type Storage struct {
	mu        sync.Mutex
	sessions  map[string][]byte
	groups    map[string][]byte
	flows     map[string][]byte
	endpoints map[string][]byte
	tasks     map[string][]byte
	due       []dueEntry

	sessionCodec  util.EncoderDecoder[model.Session]
	groupCodec    util.EncoderDecoder[model.GroupSession]
	flowCodec     util.EncoderDecoder[model.Flow]
	endpointCodec util.EncoderDecoder[map[string]any]
	taskCodec     util.EncoderDecoder[model.ScheduledTask]
}

type dueEntry struct {
	taskId string
	at     time.Time
}

var _ persistence.SessionStorage = new(Storage)
var _ persistence.GroupStorage = new(Storage)
var _ persistence.FlowStorage = new(Storage)
var _ persistence.EndpointBuffer = new(Storage)
var _ persistence.TaskStorage = new(Storage)

func NewStorage() *Storage {
	return &Storage{
		sessions:      make(map[string][]byte),
		groups:        make(map[string][]byte),
		flows:         make(map[string][]byte),
		endpoints:     make(map[string][]byte),
		tasks:         make(map[string][]byte),
		sessionCodec:  util.NewJsonEncoderDecoder[model.Session](),
		groupCodec:    util.NewJsonEncoderDecoder[model.GroupSession](),
		flowCodec:     util.NewJsonEncoderDecoder[model.Flow](),
		endpointCodec: util.NewJsonEncoderDecoder[map[string]any](),
		taskCodec:     util.NewJsonEncoderDecoder[model.ScheduledTask](),
	}
}

func sessionKey(botId string, userId int64) string {
	return botId + ":" + strconv.FormatInt(userId, 10)
}

func (s *Storage) Get(ctx context.Context, botId string, userId int64) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.sessions[sessionKey(botId, userId)]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "session", Key: strconv.FormatInt(userId, 10)}
	}
	return s.sessionCodec.Decode(raw)
}

func (s *Storage) Save(ctx context.Context, session *model.Session) error {
	raw, err := s.sessionCodec.Encode(*session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(session.BotId, session.UserId)] = raw
	return nil
}

func (s *Storage) ListByCurrentNode(ctx context.Context, botId string, nodeId string) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Session
	for key, raw := range s.sessions {
		if len(key) < len(botId)+1 || key[:len(botId)+1] != botId+":" {
			continue
		}
		session, err := s.sessionCodec.Decode(raw)
		if err != nil {
			return nil, err
		}
		if session.Active && session.CurrentNodeId == nodeId {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *Storage) GetGroup(ctx context.Context, botId string, id string) (*model.GroupSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.groups[botId+":"+id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "group", Key: id}
	}
	return s.groupCodec.Decode(raw)
}

func (s *Storage) FindOpenGroup(ctx context.Context, botId string, groupKey string) (*model.GroupSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *model.GroupSession
	for key, raw := range s.groups {
		if len(key) < len(botId)+1 || key[:len(botId)+1] != botId+":" {
			continue
		}
		group, err := s.groupCodec.Decode(raw)
		if err != nil {
			return nil, err
		}
		if group.GroupKey != groupKey || group.Status != model.GROUP_STATUS_OPEN {
			continue
		}
		if newest == nil || group.CreatedAt.After(newest.CreatedAt) {
			newest = group
		}
	}
	if newest == nil {
		return nil, persistence.NotFoundError{Kind: "group", Key: groupKey}
	}
	return newest, nil
}

func (s *Storage) SaveGroup(ctx context.Context, group *model.GroupSession) error {
	raw, err := s.groupCodec.Encode(*group)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.BotId+":"+group.Id] = raw
	return nil
}

func (s *Storage) SaveFlow(ctx context.Context, flow *model.Flow) error {
	raw, err := s.flowCodec.Encode(*flow)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[flow.BotId] = raw
	return nil
}

func (s *Storage) GetFlow(ctx context.Context, botId string) (*model.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.flows[botId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "flow", Key: botId}
	}
	flow, err := s.flowCodec.Decode(raw)
	if err != nil {
		return nil, err
	}
	flow.Index()
	return flow, nil
}

func (s *Storage) Put(ctx context.Context, key string, payload map[string]any) error {
	raw, err := s.endpointCodec.Encode(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[key] = raw
	return nil
}

func (s *Storage) Take(ctx context.Context, key string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.endpoints[key]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "endpoint payload", Key: key}
	}
	delete(s.endpoints, key)
	payload, err := s.endpointCodec.Decode(raw)
	if err != nil {
		return nil, err
	}
	return *payload, nil
}

func (s *Storage) SaveTask(ctx context.Context, task *model.ScheduledTask) error {
	raw, err := s.taskCodec.Encode(*task)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.Id] = raw
	return nil
}

func (s *Storage) GetTask(ctx context.Context, taskId string) (*model.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.tasks[taskId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "task", Key: taskId}
	}
	return s.taskCodec.Decode(raw)
}

func (s *Storage) PushDue(ctx context.Context, taskId string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.due = append(s.due, dueEntry{taskId: taskId, at: at})
	sort.Slice(s.due, func(i, j int) bool { return s.due[i].at.Before(s.due[j].at) })
	return nil
}

func (s *Storage) PopDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	i := 0
	for ; i < len(s.due) && len(out) < limit && !s.due[i].at.After(now); i++ {
		out = append(out, s.due[i].taskId)
	}
	s.due = s.due[i:]
	return out, nil
}
