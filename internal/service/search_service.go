package service

import (
	"context"
	"fmt"
	"strings"

	"diof-search/internal/config"
	"diof-search/internal/errs"
	"diof-search/internal/metrics"
	"diof-search/internal/model"
	"diof-search/internal/store"
	"diof-search/pkg/log"
)

// SearchService 接口定义了检索操作。
type SearchService interface {
	// Search 返回按相关度排序、按文档 ID 去重的命中，最多 max_results 条。
	// 零命中返回空切片而不是错误。
	Search(ctx context.Context, query, indexName string) ([]model.SearchHit, error)
}

type searchService struct {
	store        store.Store
	cfg          config.SearchConfig
	defaultIndex string
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(st store.Store, cfg config.SearchConfig, defaultIndex string) SearchService {
	return &searchService{
		store:        st,
		cfg:          cfg,
		defaultIndex: defaultIndex,
	}
}

func (s *searchService) Search(ctx context.Context, query, indexName string) (hits []model.SearchHit, err error) {
	defer func() { metrics.ObserveSearch(len(hits), err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		log.Warnf("[SearchService] 拒绝空查询")
		return nil, errs.Newf(errs.OpSearch, errs.ErrInvalidQuery, "query must not be blank")
	}
	if indexName = strings.TrimSpace(indexName); indexName == "" {
		indexName = s.defaultIndex
	}
	log.Infof("[SearchService] 开始检索, query: '%s', index: %s", query, indexName)

	raw, err := s.store.Search(ctx, indexName, BuildQuery(query, s.cfg))
	if err != nil {
		log.Errorf("[SearchService] 检索失败, query: '%s', index: %s, Kind: %s, Error: %v", query, indexName, errs.KindOf(err), err)
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	hits = dedupeHits(raw, s.cfg.MaxResults)
	if len(hits) == 0 {
		log.Infof("[SearchService] 检索 '%s' 返回 0 条命中结果", query)
		return []model.SearchHit{}, nil
	}
	log.Infof("[SearchService] 检索完毕, query: '%s', 返回 %d 条结果", query, len(hits))
	return hits, nil
}

// BuildQuery 构建复合 should 查询：
// 短语子句要求查询词连续且有序出现（权重 phrase_boost），
// 全词子句只要求所有词都出现（权重 terms_boost），两者得分相加。
func BuildQuery(query string, cfg config.SearchConfig) map[string]interface{} {
	phrase := map[string]interface{}{"query": query}
	if cfg.PhraseBoost > 0 && cfg.PhraseBoost != 1.0 {
		phrase["boost"] = cfg.PhraseBoost
	}
	terms := map[string]interface{}{
		"query":    query,
		"operator": "and",
	}
	if cfg.TermsBoost > 0 {
		terms["boost"] = cfg.TermsBoost
	}

	size := capResults(cfg.MaxResults)
	return map[string]interface{}{
		"size":    size,
		"_source": []string{model.FieldFilename},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{"match_phrase": map[string]interface{}{model.FieldContent: phrase}},
					{"match": map[string]interface{}{model.FieldContent: terms}},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

// dedupeHits 保持存储返回的顺序，按文档 ID 去重并截断到 limit 条。
func dedupeHits(raw []model.SearchHit, limit int) []model.SearchHit {
	limit = capResults(limit)
	seen := make(map[string]struct{}, len(raw))
	hits := make([]model.SearchHit, 0, len(raw))
	for _, h := range raw {
		if _, ok := seen[h.DocumentID]; ok {
			continue
		}
		seen[h.DocumentID] = struct{}{}
		hits = append(hits, h)
		if len(hits) == limit {
			break
		}
	}
	return hits
}

// capResults 把命中数限制在 (0, MaxSearchResults] 内，非正数取上限。
func capResults(n int) int {
	if n <= 0 || n > config.MaxSearchResults {
		return config.MaxSearchResults
	}
	return n
}
