package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Billerens/botmanager-be-sub004/persistence"
	rd "github.com/redis/go-redis/v9"
)

const ENDPOINT_KEY string = "ENDPOINT"

var _ persistence.EndpointBuffer = new(redisEndpointBuffer)

type redisEndpointBuffer struct {
	*baseDao
}

func NewRedisEndpointBuffer(conf Config) *redisEndpointBuffer {
	return &redisEndpointBuffer{baseDao: newBaseDao(conf)}
}

func NewRedisEndpointBufferWithClient(client rd.UniversalClient, namespace string) *redisEndpointBuffer {
	return &redisEndpointBuffer{baseDao: newBaseDaoWithClient(client, namespace)}
}

func (r *redisEndpointBuffer) Put(ctx context.Context, key string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	storeKey := r.getNamespaceKey(ENDPOINT_KEY, key)
	if err := r.redisClient.Set(ctx, storeKey, string(data), 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisEndpointBuffer) Take(ctx context.Context, key string) (map[string]any, error) {
	storeKey := r.getNamespaceKey(ENDPOINT_KEY, key)
	data, err := r.redisClient.GetDel(ctx, storeKey).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "endpoint payload", Key: key}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
