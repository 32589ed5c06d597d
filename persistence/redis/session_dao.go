package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/util"
	rd "github.com/redis/go-redis/v9"
)

const SESSION_KEY string = "SESSION"

var _ persistence.SessionStorage = new(redisSessionStorage)

type redisSessionStorage struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Session]
}

func NewRedisSessionStorage(conf Config) *redisSessionStorage {
	return &redisSessionStorage{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Session](),
	}
}

func NewRedisSessionStorageWithClient(client rd.UniversalClient, namespace string) *redisSessionStorage {
	return &redisSessionStorage{
		baseDao:        newBaseDaoWithClient(client, namespace),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Session](),
	}
}

func (r *redisSessionStorage) Get(ctx context.Context, botId string, userId int64) (*model.Session, error) {
	key := r.getNamespaceKey(SESSION_KEY, botId)
	data, err := r.redisClient.HGet(ctx, key, strconv.FormatInt(userId, 10)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "session", Key: strconv.FormatInt(userId, 10)}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	session, err := r.encoderDecoder.Decode([]byte(data))
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *redisSessionStorage) Save(ctx context.Context, session *model.Session) error {
	key := r.getNamespaceKey(SESSION_KEY, session.BotId)
	data, err := r.encoderDecoder.Encode(*session)
	if err != nil {
		return err
	}
	if err := r.redisClient.HSet(ctx, key, strconv.FormatInt(session.UserId, 10), string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisSessionStorage) ListByCurrentNode(ctx context.Context, botId string, nodeId string) ([]*model.Session, error) {
	key := r.getNamespaceKey(SESSION_KEY, botId)
	all, err := r.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	var sessions []*model.Session
	for _, data := range all {
		session, err := r.encoderDecoder.Decode([]byte(data))
		if err != nil {
			continue
		}
		if session.Active && session.CurrentNodeId == nodeId {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}
