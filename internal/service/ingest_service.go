package service

import (
	"context"
	"fmt"
	"strings"

	"diof-search/internal/encoder"
	"diof-search/internal/errs"
	"diof-search/internal/metrics"
	"diof-search/internal/model"
	"diof-search/internal/repository"
	"diof-search/internal/store"
	"diof-search/pkg/log"
)

// IngestService 把上传的文档提交到抽取管道并写入索引。
type IngestService interface {
	// Ingest 提交已编码的文档，返回存储生成的文档 ID。
	// 不做重试，也不去重：同一文件重复入库会得到两篇不同的文档。
	Ingest(ctx context.Context, filename, base64Body, indexName string) (string, error)
	// IngestUpload 编码原始上传内容后调用 Ingest。
	IngestUpload(ctx context.Context, req model.UploadRequest, indexName string) (string, error)
	ListDocuments(indexName string, page, size int) ([]model.DocumentRecord, int64, error)
}

type ingestService struct {
	store        store.Store
	docRepo      repository.DocumentRepository
	indexRepo    repository.IndexRepository
	pipelineID   string
	defaultIndex string
}

// NewIngestService 创建一个新的 IngestService 实例。
// docRepo 与 indexRepo 可以为 nil，此时不写台账、不锁定 schema。
func NewIngestService(st store.Store, docRepo repository.DocumentRepository, indexRepo repository.IndexRepository, pipelineID, defaultIndex string) IngestService {
	return &ingestService{
		store:        st,
		docRepo:      docRepo,
		indexRepo:    indexRepo,
		pipelineID:   pipelineID,
		defaultIndex: defaultIndex,
	}
}

func (s *ingestService) resolveIndex(indexName string) string {
	if indexName = strings.TrimSpace(indexName); indexName != "" {
		return indexName
	}
	return s.defaultIndex
}

func (s *ingestService) Ingest(ctx context.Context, filename, base64Body, indexName string) (string, error) {
	payload := model.EncodedPayload{Base64Body: base64Body}
	return s.ingest(ctx, filename, payload, -1, s.resolveIndex(indexName))
}

func (s *ingestService) IngestUpload(ctx context.Context, req model.UploadRequest, indexName string) (string, error) {
	if len(req.Raw) == 0 {
		err := errs.Newf(errs.OpIndexDocument, errs.ErrInvalidUpload, "file %q is empty", req.Filename)
		metrics.ObserveIngest(err)
		return "", err
	}
	payload := encoder.EncodePayload(req)
	log.Infof("[IngestService] 文件已编码, FileName: %s, MIME: %s, 原始大小: %d 字节, 编码后长度: %d",
		req.Filename, payload.MIMEHint, len(req.Raw), len(payload.Base64Body))
	log.Debugf("[IngestService] 载荷预览: %.96s", encoder.DataURI(payload))
	return s.ingest(ctx, req.Filename, payload, int64(len(req.Raw)), s.resolveIndex(indexName))
}

// ingest 是两个入口的共同实现。size 为 -1 表示调用方只提供了编码后的内容。
func (s *ingestService) ingest(ctx context.Context, filename string, payload model.EncodedPayload, size int64, indexName string) (id string, err error) {
	defer func() { metrics.ObserveIngest(err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrInvalidUpload, "filename is required")
	}
	if payload.Base64Body == "" {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrInvalidUpload, "file %q is empty", filename)
	}

	log.Infof("[IngestService] 开始入库, FileName: %s, Index: %s, Pipeline: %s", filename, indexName, s.pipelineID)
	doc := model.IngestDocument{Filename: filename, Data: payload.Base64Body}
	id, err = s.store.IndexDocument(ctx, indexName, s.pipelineID, doc)
	if err != nil {
		log.Errorf("[IngestService] 入库失败, FileName: %s, Index: %s, Kind: %s, Error: %v", filename, indexName, errs.KindOf(err), err)
		return "", fmt.Errorf("ingest %s: %w", filename, err)
	}
	log.Infof("[IngestService] 入库成功, FileName: %s, Index: %s, DocumentID: %s", filename, indexName, id)

	s.afterIngest(id, filename, payload.MIMEHint, size, indexName)
	return id, nil
}

// afterIngest 锁定 schema 并写入台账。文档已持久化在存储中，这里的失败只记录日志。
func (s *ingestService) afterIngest(id, filename, mimeType string, size int64, indexName string) {
	if s.indexRepo != nil {
		if err := s.indexRepo.Lock(indexName); err != nil {
			log.Warnf("[IngestService] 锁定索引 '%s' 的 schema 失败: %v", indexName, err)
		}
	}
	if s.docRepo != nil {
		if size < 0 {
			size = 0
		}
		record := &model.DocumentRecord{
			DocumentID: id,
			IndexName:  indexName,
			Filename:   filename,
			MIMEType:   mimeType,
			SizeBytes:  size,
		}
		if err := s.docRepo.Create(record); err != nil {
			log.Warnf("[IngestService] 写入入库台账失败, DocumentID: %s, Error: %v", id, err)
		}
	}
}

func (s *ingestService) ListDocuments(indexName string, page, size int) ([]model.DocumentRecord, int64, error) {
	indexName = s.resolveIndex(indexName)
	if s.docRepo == nil {
		return []model.DocumentRecord{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	records, err := s.docRepo.FindByIndex(indexName, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("查询入库台账失败: %w", err)
	}
	total, err := s.docRepo.CountByIndex(indexName)
	if err != nil {
		return nil, 0, fmt.Errorf("统计入库台账失败: %w", err)
	}
	return records, total, nil
}
