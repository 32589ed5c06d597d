package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/persistence"
	"github.com/Billerens/botmanager-be-sub004/util"
	rd "github.com/redis/go-redis/v9"
)

const TASK_KEY string = "TASK"
const TASK_DUE_KEY string = "TASKDUE"

var _ persistence.TaskStorage = new(redisTaskStorage)

type redisTaskStorage struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.ScheduledTask]
}

func NewRedisTaskStorage(conf Config) *redisTaskStorage {
	return &redisTaskStorage{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.ScheduledTask](),
	}
}

func NewRedisTaskStorageWithClient(client rd.UniversalClient, namespace string) *redisTaskStorage {
	return &redisTaskStorage{
		baseDao:        newBaseDaoWithClient(client, namespace),
		encoderDecoder: util.NewJsonEncoderDecoder[model.ScheduledTask](),
	}
}

func (r *redisTaskStorage) SaveTask(ctx context.Context, task *model.ScheduledTask) error {
	key := r.getNamespaceKey(TASK_KEY)
	data, err := r.encoderDecoder.Encode(*task)
	if err != nil {
		return err
	}
	if err := r.redisClient.HSet(ctx, key, task.Id, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisTaskStorage) GetTask(ctx context.Context, taskId string) (*model.ScheduledTask, error) {
	key := r.getNamespaceKey(TASK_KEY)
	data, err := r.redisClient.HGet(ctx, key, taskId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "task", Key: taskId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	task, err := r.encoderDecoder.Decode([]byte(data))
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *redisTaskStorage) PushDue(ctx context.Context, taskId string, at time.Time) error {
	key := r.getNamespaceKey(TASK_DUE_KEY)
	member := rd.Z{
		Score:  float64(at.UnixMilli()),
		Member: taskId,
	}
	if err := r.redisClient.ZAdd(ctx, key, member).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisTaskStorage) PopDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	key := r.getNamespaceKey(TASK_DUE_KEY)
	opt := &rd.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}
	res, err := r.redisClient.ZRangeByScore(ctx, key, opt).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if len(res) == 0 {
		return []string{}, nil
	}
	// Remove only what was handed out; entries past the batch limit stay due.
	members := make([]any, len(res))
	for i, m := range res {
		members[i] = m
	}
	if err := r.redisClient.ZRem(ctx, key, members...).Err(); err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}
