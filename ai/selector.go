package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const modelListCacheKey = "models"

// TaskFunc runs one attempt against a candidate model.
type TaskFunc func(modelId string) (any, error)

type FallbackResult struct {
	Result    any
	ModelId   string
	ModelName string
}

// Selector keeps a prioritized, periodically refreshed model list and retries
// a task down the list until one model succeeds. Transient provider outages
// and model deprecations stay invisible to the nodes that call AI.
type Selector struct {
	client ChatClient
	cache  *gocache.Cache
	ttl    time.Duration
}

func NewSelector(client ChatClient, ttl time.Duration) *Selector {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Selector{
		client: client,
		cache:  gocache.New(ttl, 2*ttl),
		ttl:    ttl,
	}
}

// AvailableModels returns the cached prioritized list, refreshing it from the
// backend when the TTL expired. List order is the fallback priority.
func (s *Selector) AvailableModels(ctx context.Context) ([]Model, error) {
	if cached, ok := s.cache.Get(modelListCacheKey); ok {
		return cached.([]Model), nil
	}
	models, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(modelListCacheKey, models, s.ttl)
	return models, nil
}

// ExecuteWithFallback invokes task with each candidate model in priority
// order until one succeeds. A preferred model, when currently available, is
// tried first; when it is not in the list the override is silently ignored.
// Exhausting the list is a terminal error.
func (s *Selector) ExecuteWithFallback(ctx context.Context, preferred string, task TaskFunc) (*FallbackResult, error) {
	models, err := s.AvailableModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("model list unavailable: %w", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models available")
	}
	candidates := prioritize(models, preferred)
	var lastErr error
	for i, m := range candidates {
		result, err := task(m.Id)
		if err == nil {
			if i > 0 {
				metrics.AiFallbacksTotal.Inc()
			}
			return &FallbackResult{Result: result, ModelId: m.Id, ModelName: m.Name}, nil
		}
		lastErr = err
		logger.Warn("model invocation failed, trying next candidate",
			zap.String("model", m.Id), zap.Error(err))
	}
	return nil, fmt.Errorf("all %d models failed, last error: %w", len(candidates), lastErr)
}

func prioritize(models []Model, preferred string) []Model {
	if preferred == "" {
		return models
	}
	out := make([]Model, 0, len(models))
	for _, m := range models {
		if m.Id == preferred {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		// Preferred model not currently available; fall back to the ordered
		// list without it.
		return models
	}
	for _, m := range models {
		if m.Id != preferred {
			out = append(out, m)
		}
	}
	return out
}
