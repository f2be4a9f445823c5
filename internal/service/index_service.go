// Package service 包含了入库、检索与索引 schema 管理的业务逻辑。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"diof-search/internal/config"
	"diof-search/internal/errs"
	"diof-search/internal/model"
	"diof-search/internal/repository"
	"diof-search/internal/store"
	"diof-search/pkg/log"
)

// IndexService 负责索引 schema 的一次性创建与抽取管道的注册。
type IndexService interface {
	// CreateIndex 创建索引；同名索引已存在时返回 errs.ErrAlreadyExists，绝不覆盖。
	CreateIndex(ctx context.Context, indexName string) error
	// EnsureIndex 在索引不存在时创建它，已存在则忽略，供启动流程使用。
	EnsureIndex(ctx context.Context, indexName string) error
	// EnsurePipeline 注册抽取管道，已存在则忽略。
	EnsurePipeline(ctx context.Context) error
	ListIndices() ([]model.IndexState, error)
}

type indexService struct {
	store      store.Store
	indexRepo  repository.IndexRepository
	analyzer   config.AnalyzerConfig
	pipelineID string
}

// NewIndexService 创建一个新的 IndexService 实例。indexRepo 为 nil 时不登记 schema 状态（CLI 场景）。
func NewIndexService(st store.Store, indexRepo repository.IndexRepository, analyzer config.AnalyzerConfig, pipelineID string) IndexService {
	return &indexService{
		store:      st,
		indexRepo:  indexRepo,
		analyzer:   analyzer,
		pipelineID: pipelineID,
	}
}

// schemaFor 根据分析器配置构建索引 schema。
func (s *indexService) schemaFor(indexName string) model.IndexSchema {
	return model.IndexSchema{
		Name: indexName,
		Analyzer: model.AnalyzerSpec{
			Name:      s.analyzer.Name,
			StopWords: s.analyzer.StopWords,
			Stemmer:   s.analyzer.Stemmer,
		},
	}
}

func (s *indexService) CreateIndex(ctx context.Context, indexName string) error {
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return errs.Newf(errs.OpCreateIndex, errs.ErrInvalidArgument, "index name is required")
	}
	log.Infof("[IndexService] 开始创建索引 '%s'", indexName)

	if s.indexRepo != nil {
		state, err := s.indexRepo.FindByName(indexName)
		if err != nil {
			log.Errorf("[IndexService] 查询索引登记记录失败, index: %s, error: %v", indexName, err)
			return fmt.Errorf("查询索引登记记录失败: %w", err)
		}
		// schema 已锁定意味着已有文档按该分析器入库，直接拒绝而不依赖存储判断。
		if state != nil && state.SchemaLocked {
			log.Warnf("[IndexService] 索引 '%s' 的 schema 已锁定, 拒绝重建", indexName)
			return errs.Newf(errs.OpCreateIndex, errs.ErrAlreadyExists, "index %q schema is locked", indexName)
		}
	}

	schema := s.schemaFor(indexName)
	if err := s.store.CreateIndex(ctx, schema); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			log.Warnf("[IndexService] 索引 '%s' 已存在", indexName)
		} else {
			log.Errorf("[IndexService] 创建索引 '%s' 失败: %v", indexName, err)
		}
		return err
	}

	// 索引已在存储中创建成功，登记失败不回滚，只记录。
	s.register(schema)

	log.Infof("[IndexService] 索引 '%s' 创建成功, analyzer: %s, stopWords: %v", indexName, schema.Analyzer.Name, schema.Analyzer.StopWords)
	return nil
}

func (s *indexService) EnsureIndex(ctx context.Context, indexName string) error {
	exists, err := s.store.IndexExists(ctx, indexName)
	if err != nil {
		return err
	}
	if exists {
		log.Infof("[IndexService] 索引 '%s' 已存在", indexName)
		// 存储中已有、登记表中没有的索引（例如登记表是后来才启用的）在这里补登，
		// 之后的入库才能锁定它的 schema。
		if s.indexRepo != nil {
			state, err := s.indexRepo.FindByName(indexName)
			if err != nil {
				return fmt.Errorf("查询索引登记记录失败: %w", err)
			}
			if state == nil {
				s.register(s.schemaFor(indexName))
			}
		}
		return nil
	}
	err = s.CreateIndex(ctx, indexName)
	// 多个实例同时启动时可能被其他实例抢先创建。
	if errors.Is(err, errs.ErrAlreadyExists) {
		return nil
	}
	return err
}

// register 把 schema 写入登记表。indexRepo 为 nil 时什么也不做。
func (s *indexService) register(schema model.IndexSchema) {
	if s.indexRepo == nil {
		return
	}
	state := &model.IndexState{
		Name:         schema.Name,
		AnalyzerName: schema.Analyzer.Name,
		StopWords:    strings.Join(schema.Analyzer.StopWords, ","),
		Stemmer:      schema.Analyzer.Stemmer,
	}
	if err := s.indexRepo.Create(state); err != nil {
		log.Errorf("[IndexService] 登记索引 '%s' 失败: %v", schema.Name, err)
	}
}

func (s *indexService) EnsurePipeline(ctx context.Context) error {
	exists, err := s.store.PipelineExists(ctx, s.pipelineID)
	if err != nil {
		log.Errorf("[IndexService] 检查管道 '%s' 失败: %v", s.pipelineID, err)
		return err
	}
	if exists {
		log.Infof("[IndexService] 管道 '%s' 已存在, 跳过注册", s.pipelineID)
		return nil
	}
	return s.store.CreatePipeline(ctx, s.pipelineID)
}

func (s *indexService) ListIndices() ([]model.IndexState, error) {
	if s.indexRepo == nil {
		return []model.IndexState{}, nil
	}
	return s.indexRepo.FindAll()
}
