// Package pipeline 定义了异步入库任务的处理流程。
package pipeline

import (
	"context"
	"fmt"
	"time"

	"diof-search/internal/errs"
	"diof-search/internal/model"
	"diof-search/internal/repository"
	"diof-search/internal/service"
	"diof-search/pkg/log"
	"diof-search/pkg/storage"
	"diof-search/pkg/tasks"
)

// saveTimeout 限制写回任务状态的时间。写回使用独立于消费者的 ctx，
// 服务关闭取消消费者时，正在处理的任务仍能记下最终状态。
const saveTimeout = 5 * time.Second

// Processor 封装了异步入库的所有依赖和逻辑。
type Processor struct {
	objects  storage.ObjectStore
	ingest   service.IngestService
	taskRepo repository.TaskRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(objects storage.ObjectStore, ingest service.IngestService, taskRepo repository.TaskRepository) *Processor {
	return &Processor{
		objects:  objects,
		ingest:   ingest,
		taskRepo: taskRepo,
	}
}

// Process 从暂存区取回文件并入库，结果写回任务状态。
// 无论成功与否，暂存对象都会被删除；任务不会被重新投递。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] 开始处理任务, TaskID: %s, FileName: %s, Index: %s", task.TaskID, task.Filename, task.IndexName)
	status := model.TaskStatus{
		TaskID:    task.TaskID,
		Filename:  task.Filename,
		IndexName: task.IndexName,
	}

	defer func() {
		if err := p.objects.Remove(context.Background(), task.ObjectName); err != nil {
			log.Warnf("[Processor] 删除暂存对象失败, Object: %s, Error: %v", task.ObjectName, err)
		}
	}()

	// 1. 从暂存区取回原始文件
	raw, err := p.objects.Get(ctx, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 步骤1: 取回暂存文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return p.fail(status, errs.New(errs.OpReadUpload, errs.ErrIO, err))
	}
	log.Infof("[Processor] 步骤1: 暂存文件取回成功, 大小: %d 字节", len(raw))

	// 2. 编码并提交到抽取管道
	id, err := p.ingest.IngestUpload(ctx, model.UploadRequest{Filename: task.Filename, Raw: raw}, task.IndexName)
	if err != nil {
		return p.fail(status, err)
	}
	log.Infof("[Processor] 步骤2: 入库成功, DocumentID: %s", id)

	status.State = model.TaskDone
	status.DocumentID = id
	if err := p.save(status); err != nil {
		log.Errorf("[Processor] 保存任务状态失败, TaskID: %s, Error: %v", task.TaskID, err)
		return err
	}
	return nil
}

func (p *Processor) fail(status model.TaskStatus, cause error) error {
	status.State = model.TaskFailed
	status.ErrorKind = errs.KindOf(cause)
	status.Error = cause.Error()
	if err := p.save(status); err != nil {
		log.Errorf("[Processor] 保存失败状态失败, TaskID: %s, Error: %v", status.TaskID, err)
	}
	return fmt.Errorf("task %s: %w", status.TaskID, cause)
}

func (p *Processor) save(status model.TaskStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	return p.taskRepo.Save(ctx, status)
}
