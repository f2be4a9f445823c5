package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"diof-search/internal/encoder"
	"diof-search/internal/errs"
	"diof-search/internal/model"
	"diof-search/internal/repository"
	"diof-search/internal/store"
	"diof-search/pkg/log"
	"diof-search/pkg/storage"
	"diof-search/pkg/tasks"

	"github.com/google/uuid"
)

const cleanupTimeout = 5 * time.Second

// TaskPublisher 投递异步入库任务，由 Kafka 生产者实现。
type TaskPublisher interface {
	Publish(ctx context.Context, task tasks.IngestTask) error
}

// UploadService 负责异步上传：暂存原始文件、登记任务并投递到队列。
type UploadService interface {
	// Submit 返回任务 ID；实际入库由消费者完成。
	Submit(ctx context.Context, req model.UploadRequest, indexName string) (string, error)
	GetTask(ctx context.Context, taskID string) (*model.TaskStatus, error)
}

type uploadService struct {
	store        store.Store
	objects      storage.ObjectStore
	publisher    TaskPublisher
	taskRepo     repository.TaskRepository
	defaultIndex string
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(st store.Store, objects storage.ObjectStore, publisher TaskPublisher, taskRepo repository.TaskRepository, defaultIndex string) UploadService {
	return &uploadService{
		store:        st,
		objects:      objects,
		publisher:    publisher,
		taskRepo:     taskRepo,
		defaultIndex: defaultIndex,
	}
}

func (s *uploadService) Submit(ctx context.Context, req model.UploadRequest, indexName string) (string, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrInvalidUpload, "filename is required")
	}
	if len(req.Raw) == 0 {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrInvalidUpload, "file %q is empty", filename)
	}
	if indexName = strings.TrimSpace(indexName); indexName == "" {
		indexName = s.defaultIndex
	}

	// 提前检查目标索引，避免把注定失败的任务放进队列。
	exists, err := s.store.IndexExists(ctx, indexName)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errs.Newf(errs.OpIndexExists, errs.ErrIndexNotFound, "index %q", indexName)
	}

	taskID := uuid.NewString()
	objectName := storage.StagingObjectName(taskID, filename)
	if err := s.objects.Put(ctx, objectName, req.Raw, encoder.DetectMIME(req.Raw, filename)); err != nil {
		log.Errorf("[UploadService] 暂存文件失败, TaskID: %s, Object: %s, Error: %v", taskID, objectName, err)
		return "", errs.New(errs.OpReadUpload, errs.ErrIO, err)
	}
	log.Infof("[UploadService] 文件已暂存, TaskID: %s, Object: %s, 大小: %d 字节", taskID, objectName, len(req.Raw))

	status := model.TaskStatus{TaskID: taskID, Filename: filename, IndexName: indexName, State: model.TaskPending}
	if err := s.taskRepo.Save(ctx, status); err != nil {
		log.Errorf("[UploadService] 登记任务失败, TaskID: %s, Error: %v", taskID, err)
		s.discard(objectName)
		return "", errs.New(errs.OpIndexDocument, errs.ErrIO, fmt.Errorf("登记任务失败: %w", err))
	}

	task := tasks.IngestTask{TaskID: taskID, ObjectName: objectName, Filename: filename, IndexName: indexName}
	if err := s.publisher.Publish(ctx, task); err != nil {
		log.Errorf("[UploadService] 投递任务失败, TaskID: %s, Error: %v", taskID, err)
		status.State = model.TaskFailed
		status.ErrorKind = errs.KindOf(errs.ErrIO)
		status.Error = err.Error()
		_ = s.taskRepo.Save(ctx, status)
		s.discard(objectName)
		return "", errs.New(errs.OpIndexDocument, errs.ErrIO, err)
	}
	log.Infof("[UploadService] 任务已投递, TaskID: %s, Index: %s", taskID, indexName)
	return taskID, nil
}

// discard 删除未能进入队列的暂存对象。请求 ctx 可能已取消，因此使用独立的超时 ctx。
func (s *uploadService) discard(objectName string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.objects.Remove(ctx, objectName); err != nil {
		log.Warnf("[UploadService] 清理暂存对象失败, Object: %s, Error: %v", objectName, err)
	}
}

func (s *uploadService) GetTask(ctx context.Context, taskID string) (*model.TaskStatus, error) {
	return s.taskRepo.Get(ctx, taskID)
}
