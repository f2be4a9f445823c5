package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"diof-search/internal/errs"
	"diof-search/internal/model"
	"diof-search/internal/store"
	"diof-search/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Store 是 store.Store 在 Elasticsearch 上的实现。
type Store struct {
	client  *elasticsearch.Client
	refresh string
}

var _ store.Store = (*Store)(nil)

// NewStore 包装一个已初始化的客户端。refresh 透传给 index 请求，
// 设为 "wait_for" 时入库返回后立即可被检索到。
func NewStore(client *elasticsearch.Client, refresh string) *Store {
	return &Store{client: client, refresh: refresh}
}

// errorBody 是 Elasticsearch 错误响应的公共部分。
type errorBody struct {
	Error struct {
		Type      string `json:"type"`
		Reason    string `json:"reason"`
		RootCause []struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"root_cause"`
	} `json:"error"`
	Status int `json:"status"`
}

// readError 解析错误响应，返回错误类型和可读描述。
func readError(res *esapi.Response) (string, string) {
	raw, _ := io.ReadAll(res.Body)
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Type == "" {
		return "", fmt.Sprintf("[%d] %s", res.StatusCode, string(raw))
	}
	reason := body.Error.Reason
	if len(body.Error.RootCause) > 0 && body.Error.RootCause[0].Reason != "" && body.Error.RootCause[0].Reason != reason {
		reason = reason + " (" + body.Error.RootCause[0].Reason + ")"
	}
	return body.Error.Type, fmt.Sprintf("[%d] %s: %s", res.StatusCode, body.Error.Type, reason)
}

// transient 判断状态码是否代表存储不可达或暂时过载。
func transient(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func encodeBody(v interface{}) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return &buf, nil
}

// PipelineExists 检查抽取管道是否已注册。
func (s *Store) PipelineExists(ctx context.Context, pipelineID string) (bool, error) {
	res, err := s.client.Ingest.GetPipeline(
		s.client.Ingest.GetPipeline.WithContext(ctx),
		s.client.Ingest.GetPipeline.WithPipelineID(pipelineID),
	)
	if err != nil {
		return false, errs.New(errs.OpGetPipeline, errs.ErrIO, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.IsError():
		_, msg := readError(res)
		return false, errs.Newf(errs.OpGetPipeline, errs.ErrIO, "%s", msg)
	}
	return true, nil
}

// CreatePipeline 注册附件抽取管道。
func (s *Store) CreatePipeline(ctx context.Context, pipelineID string) error {
	body, err := encodeBody(PipelineBody())
	if err != nil {
		return fmt.Errorf("failed to encode pipeline body: %w", err)
	}
	res, err := s.client.Ingest.PutPipeline(pipelineID, body,
		s.client.Ingest.PutPipeline.WithContext(ctx),
	)
	if err != nil {
		return errs.New(errs.OpPutPipeline, errs.ErrIO, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		_, msg := readError(res)
		log.Errorf("[ES] 注册管道 '%s' 失败: %s", pipelineID, msg)
		return errs.Newf(errs.OpPutPipeline, errs.ErrIO, "%s", msg)
	}
	log.Infof("[ES] 管道 '%s' 注册成功", pipelineID)
	return nil
}

// IndexExists 检查索引是否存在。
func (s *Store) IndexExists(ctx context.Context, indexName string) (bool, error) {
	res, err := s.client.Indices.Exists([]string{indexName},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, errs.New(errs.OpIndexExists, errs.ErrIO, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusBadRequest:
		// HEAD 响应没有错误体，400 只可能是索引名非法。
		return false, errs.Newf(errs.OpIndexExists, errs.ErrInvalidArgument, "invalid index name %q", indexName)
	}
	return false, errs.Newf(errs.OpIndexExists, errs.ErrIO, "检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
}

// CreateIndex 以自定义分析器和字段映射创建索引，已存在时返回 errs.ErrAlreadyExists，不会覆盖。
func (s *Store) CreateIndex(ctx context.Context, schema model.IndexSchema) error {
	body, err := encodeBody(IndexBody(schema))
	if err != nil {
		return fmt.Errorf("failed to encode index body: %w", err)
	}
	res, err := s.client.Indices.Create(schema.Name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(body),
	)
	if err != nil {
		return errs.New(errs.OpCreateIndex, errs.ErrIO, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errType, msg := readError(res)
		switch {
		case errType == "resource_already_exists_exception":
			return errs.Newf(errs.OpCreateIndex, errs.ErrAlreadyExists, "index %q", schema.Name)
		case errType == "invalid_index_name_exception", res.StatusCode == http.StatusBadRequest:
			// 索引名或分析器配置被拒绝，属于调用方输入错误而非连接故障。
			log.Warnf("[ES] 创建索引 '%s' 被拒绝: %s", schema.Name, msg)
			return errs.Newf(errs.OpCreateIndex, errs.ErrInvalidArgument, "%s", msg)
		}
		log.Errorf("[ES] 创建索引 '%s' 时 Elasticsearch 返回错误: %s", schema.Name, msg)
		return errs.Newf(errs.OpCreateIndex, errs.ErrIO, "%s", msg)
	}
	log.Infof("[ES] 索引 '%s' 创建成功", schema.Name)
	return nil
}

// IndexDocument 通过抽取管道写入一篇文档。
// Elasticsearch 默认会为不存在的索引自动创建默认映射，这会绕过语言分析器配置，
// 因此写入前先确认索引存在。
func (s *Store) IndexDocument(ctx context.Context, indexName, pipelineID string, doc model.IngestDocument) (string, error) {
	exists, err := s.IndexExists(ctx, indexName)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrIndexNotFound, "index %q", indexName)
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:    indexName,
		Body:     bytes.NewReader(docBytes),
		Pipeline: pipelineID,
		Refresh:  s.refresh,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return "", errs.New(errs.OpIndexDocument, errs.ErrIO, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errType, msg := readError(res)
		log.Errorf("[ES] 索引文档到 '%s' 出错: %s", indexName, msg)
		switch {
		case errType == "index_not_found_exception":
			return "", errs.Newf(errs.OpIndexDocument, errs.ErrIndexNotFound, "%s", msg)
		case transient(res.StatusCode):
			return "", errs.Newf(errs.OpIndexDocument, errs.ErrIO, "%s", msg)
		default:
			// 文档体本身结构固定，存储拒绝它意味着抽取管道无法处理该二进制。
			return "", errs.Newf(errs.OpIndexDocument, errs.ErrProcessing, "%s", msg)
		}
	}

	var indexed struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexed); err != nil {
		return "", errs.New(errs.OpIndexDocument, errs.ErrIO, fmt.Errorf("failed to decode index response: %w", err))
	}
	return indexed.ID, nil
}

// Search 执行查询体，按存储返回的相关度顺序投影出 {documentId, filename}。
func (s *Store) Search(ctx context.Context, indexName string, query map[string]interface{}) ([]model.SearchHit, error) {
	buf, err := encodeBody(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(indexName),
		s.client.Search.WithBody(buf),
	)
	if err != nil {
		return nil, errs.New(errs.OpSearch, errs.ErrIO, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errType, msg := readError(res)
		if errType == "index_not_found_exception" {
			return nil, errs.Newf(errs.OpSearch, errs.ErrIndexNotFound, "index %q", indexName)
		}
		log.Errorf("[ES] 检索 '%s' 时 Elasticsearch 返回错误: %s", indexName, msg)
		return nil, errs.Newf(errs.OpSearch, errs.ErrIO, "%s", msg)
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Filename string `json:"filename"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, errs.New(errs.OpSearch, errs.ErrIO, fmt.Errorf("failed to decode es response: %w", err))
	}

	hits := make([]model.SearchHit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, model.SearchHit{DocumentID: h.ID, Filename: h.Source.Filename})
	}
	return hits, nil
}
