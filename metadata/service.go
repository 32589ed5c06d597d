package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DEFAULT_FLOW_CACHE_TTL = 30 * time.Second

// MetadataService owns the published flow definitions: validation on publish,
// and a short-TTL cache of indexed flows in front of the storage so every
// inbound message does not pay a storage round trip.
type MetadataService interface {
	GetFlow(ctx context.Context, botId string) (*model.Flow, error)
	PublishFlow(ctx context.Context, flow *model.Flow) error
	ValidateFlow(flow *model.Flow) error
	GetFlowStorage() persistence.FlowStorage
}

type metadataService struct {
	storage persistence.FlowStorage
	cache   *gocache.Cache
	ttl     time.Duration
}

func NewMetadataService(storage persistence.FlowStorage, ttl time.Duration) MetadataService {
	if ttl == 0 {
		ttl = DEFAULT_FLOW_CACHE_TTL
	}
	return &metadataService{
		storage: storage,
		cache:   gocache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

func (s *metadataService) GetFlow(ctx context.Context, botId string) (*model.Flow, error) {
	if cached, ok := s.cache.Get(botId); ok {
		return cached.(*model.Flow), nil
	}
	flow, err := s.storage.GetFlow(ctx, botId)
	if err != nil {
		return nil, err
	}
	flow.Index()
	s.cache.Set(botId, flow, s.ttl)
	return flow, nil
}

// PublishFlow validates and persists a new definition and drops the cached
// copy, so sessions pick up the new graph within one cache miss.
func (s *metadataService) PublishFlow(ctx context.Context, flow *model.Flow) error {
	if err := s.ValidateFlow(flow); err != nil {
		return err
	}
	if err := s.storage.SaveFlow(ctx, flow); err != nil {
		return err
	}
	s.cache.Delete(flow.BotId)
	logger.Info("flow published", zap.String("bot", flow.BotId), zap.String("flow", flow.Id))
	return nil
}

func (s *metadataService) ValidateFlow(flow *model.Flow) error {
	if flow.BotId == "" {
		return fmt.Errorf("flow requires a botId")
	}
	if flow.BotToken == "" {
		return fmt.Errorf("flow requires a bot token")
	}
	return flow.Validate()
}

func (s *metadataService) GetFlowStorage() persistence.FlowStorage {
	return s.storage
}
