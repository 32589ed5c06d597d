package redis

import (
	"context"
	"errors"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/util"
	rd "github.com/redis/go-redis/v9"
)

const FLOW_KEY string = "FLOWDEF"

var _ persistence.FlowStorage = new(redisFlowStorage)

type redisFlowStorage struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Flow]
}

func NewRedisFlowStorage(conf Config) *redisFlowStorage {
	return &redisFlowStorage{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Flow](),
	}
}

func NewRedisFlowStorageWithClient(client rd.UniversalClient, namespace string) *redisFlowStorage {
	return &redisFlowStorage{
		baseDao:        newBaseDaoWithClient(client, namespace),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Flow](),
	}
}

func (r *redisFlowStorage) SaveFlow(ctx context.Context, flow *model.Flow) error {
	key := r.getNamespaceKey(FLOW_KEY)
	data, err := r.encoderDecoder.Encode(*flow)
	if err != nil {
		return err
	}
	if err := r.redisClient.HSet(ctx, key, flow.BotId, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisFlowStorage) GetFlow(ctx context.Context, botId string) (*model.Flow, error) {
	key := r.getNamespaceKey(FLOW_KEY)
	data, err := r.redisClient.HGet(ctx, key, botId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "flow", Key: botId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	flow, err := r.encoderDecoder.Decode([]byte(data))
	if err != nil {
		return nil, err
	}
	flow.Index()
	return flow, nil
}
