package redis

import (
	"context"
	"errors"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/util"
	rd "github.com/redis/go-redis/v9"
)

const GROUP_KEY string = "GROUP"
const GROUP_INDEX_KEY string = "GROUPIDX"

var _ persistence.GroupStorage = new(redisGroupStorage)

type redisGroupStorage struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.GroupSession]
}

func NewRedisGroupStorage(conf Config) *redisGroupStorage {
	return &redisGroupStorage{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.GroupSession](),
	}
}

func NewRedisGroupStorageWithClient(client rd.UniversalClient, namespace string) *redisGroupStorage {
	return &redisGroupStorage{
		baseDao:        newBaseDaoWithClient(client, namespace),
		encoderDecoder: util.NewJsonEncoderDecoder[model.GroupSession](),
	}
}

func (r *redisGroupStorage) GetGroup(ctx context.Context, botId string, id string) (*model.GroupSession, error) {
	key := r.getNamespaceKey(GROUP_KEY, botId)
	data, err := r.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "group", Key: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	group, err := r.encoderDecoder.Decode([]byte(data))
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *redisGroupStorage) FindOpenGroup(ctx context.Context, botId string, groupKey string) (*model.GroupSession, error) {
	idxKey := r.getNamespaceKey(GROUP_INDEX_KEY, botId, groupKey)
	id, err := r.redisClient.Get(ctx, idxKey).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "group", Key: groupKey}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	group, err := r.GetGroup(ctx, botId, id)
	if err != nil {
		return nil, err
	}
	if group.Status == model.GROUP_STATUS_ARCHIVED || group.IsFull() {
		return nil, persistence.NotFoundError{Kind: "group", Key: groupKey}
	}
	return group, nil
}

func (r *redisGroupStorage) SaveGroup(ctx context.Context, group *model.GroupSession) error {
	key := r.getNamespaceKey(GROUP_KEY, group.BotId)
	data, err := r.encoderDecoder.Encode(*group)
	if err != nil {
		return err
	}
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, key, group.Id, string(data))
	idxKey := r.getNamespaceKey(GROUP_INDEX_KEY, group.BotId, group.GroupKey)
	if group.Status == model.GROUP_STATUS_ARCHIVED || group.IsFull() {
		// Drop the open-group pointer only if it still points at this group.
		current, err := r.redisClient.Get(ctx, idxKey).Result()
		if err == nil && current == group.Id {
			pipe.Del(ctx, idxKey)
		}
	} else {
		pipe.Set(ctx, idxKey, group.Id, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
