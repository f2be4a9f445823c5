// Package store 定义了核心所消费的文档存储能力。
//
// 存储可以通过 HTTP 或原生协议访问；核心只依赖这里的接口，
// 具体实现（pkg/es）可以替换而不影响入库与检索逻辑。
package store

import (
	"context"

	"diof-search/internal/model"
)

// Store 暴露 put-pipeline、create-index、index-document、search 四个请求/响应操作，
// 以及两个存在性检查。所有错误都带有 errs 包中的类别。
type Store interface {
	// CreatePipeline 注册附件抽取管道（格式嗅探 + 文本抽取 + 丢弃原始二进制）。
	CreatePipeline(ctx context.Context, pipelineID string) error
	PipelineExists(ctx context.Context, pipelineID string) (bool, error)

	// CreateIndex 以给定 schema 创建索引；索引已存在时返回 errs.ErrAlreadyExists。
	CreateIndex(ctx context.Context, schema model.IndexSchema) error
	IndexExists(ctx context.Context, indexName string) (bool, error)

	// IndexDocument 通过管道写入一篇文档并返回存储生成的 ID。
	// 目标索引不存在时返回 errs.ErrIndexNotFound，且不得自动创建索引。
	IndexDocument(ctx context.Context, indexName, pipelineID string, doc model.IngestDocument) (string, error)

	// Search 执行查询体并按相关度顺序返回命中。
	Search(ctx context.Context, indexName string, query map[string]interface{}) ([]model.SearchHit, error)
}
