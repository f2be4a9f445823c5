package repository

import (
	"context"
	"fmt"
	"time"

	"diof-search/internal/model"

	"github.com/go-redis/redis/v8"
)

// TaskTTL 是异步入库任务状态在 Redis 中的保留时间。
const TaskTTL = 24 * time.Hour

// TaskRepository 在 Redis 中记录异步入库任务的状态。
type TaskRepository interface {
	Save(ctx context.Context, status model.TaskStatus) error
	// Get 返回任务状态；不存在时返回 (nil, nil)。
	Get(ctx context.Context, taskID string) (*model.TaskStatus, error)
}

type taskRepository struct {
	redisClient *redis.Client
}

// NewTaskRepository 创建一个新的 TaskRepository 实例。
func NewTaskRepository(redisClient *redis.Client) TaskRepository {
	return &taskRepository{redisClient: redisClient}
}

func taskKey(taskID string) string {
	return "ingest:task:" + taskID
}

func (r *taskRepository) Save(ctx context.Context, status model.TaskStatus) error {
	key := taskKey(status.TaskID)
	pipe := r.redisClient.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"filename":    status.Filename,
		"index":       status.IndexName,
		"state":       string(status.State),
		"document_id": status.DocumentID,
		"error_kind":  status.ErrorKind,
		"error":       status.Error,
	})
	pipe.Expire(ctx, key, TaskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("保存任务状态失败 (task=%s): %w", status.TaskID, err)
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, taskID string) (*model.TaskStatus, error) {
	fields, err := r.redisClient.HGetAll(ctx, taskKey(taskID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &model.TaskStatus{
		TaskID:     taskID,
		Filename:   fields["filename"],
		IndexName:  fields["index"],
		State:      model.TaskState(fields["state"]),
		DocumentID: fields["document_id"],
		ErrorKind:  fields["error_kind"],
		Error:      fields["error"],
	}, nil
}
