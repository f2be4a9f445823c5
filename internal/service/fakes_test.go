package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"diof-search/internal/encoder"
	"diof-search/internal/errs"
	"diof-search/internal/model"
	"diof-search/pkg/tasks"
)

// portugueseStop 是测试用的葡萄牙语停用词子集。
var portugueseStop = map[string]struct{}{
	"a": {}, "o": {}, "as": {}, "os": {}, "de": {}, "do": {}, "da": {}, "dos": {}, "das": {},
	"e": {}, "em": {}, "no": {}, "na": {}, "um": {}, "uma": {}, "que": {}, "para": {}, "com": {}, "por": {},
}

// memIndex 模拟一个带分析器的索引：标准分词 + 小写 + 停用词。
type memIndex struct {
	stop map[string]struct{}
	docs []memDoc
}

type memDoc struct {
	id       string
	filename string
	tokens   []string
}

func (ix *memIndex) analyze(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := ix.stop[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

// memStore 是 store.Store 的内存实现，按 BuildQuery 生成的查询体打分。
type memStore struct {
	mu        sync.Mutex
	pipelines map[string]bool
	indices   map[string]*memIndex
	nextID    int
	failNext  error
	searches  []map[string]interface{}
}

func newMemStore() *memStore {
	return &memStore{pipelines: map[string]bool{}, indices: map[string]*memIndex{}}
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) CreatePipeline(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.pipelines[id] = true
	return nil
}

func (m *memStore) PipelineExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipelines[id], nil
}

func (m *memStore) CreateIndex(_ context.Context, schema model.IndexSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.indices[schema.Name]; ok {
		return errs.Newf(errs.OpCreateIndex, errs.ErrAlreadyExists, "index %q", schema.Name)
	}
	stop := map[string]struct{}{}
	for _, w := range schema.Analyzer.StopWords {
		if w == model.DefaultStopWordsPreset {
			for k := range portugueseStop {
				stop[k] = struct{}{}
			}
			continue
		}
		stop[strings.ToLower(w)] = struct{}{}
	}
	m.indices[schema.Name] = &memIndex{stop: stop}
	return nil
}

func (m *memStore) IndexExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.indices[name]
	return ok, nil
}

func (m *memStore) IndexDocument(_ context.Context, indexName, pipelineID string, doc model.IngestDocument) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return "", err
	}
	ix, ok := m.indices[indexName]
	if !ok {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrIndexNotFound, "index %q", indexName)
	}
	if !m.pipelines[pipelineID] {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrProcessing, "pipeline %q missing", pipelineID)
	}
	raw, err := encoder.Decode(doc.Data)
	if err != nil || strings.HasPrefix(string(raw), "%CORRUPT") {
		return "", errs.Newf(errs.OpIndexDocument, errs.ErrProcessing, "cannot extract %s", doc.Filename)
	}
	m.nextID++
	id := fmt.Sprintf("doc-%d", m.nextID)
	ix.docs = append(ix.docs, memDoc{id: id, filename: doc.Filename, tokens: ix.analyze(string(raw))})
	return id, nil
}

func (m *memStore) docCount(indexName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ix, ok := m.indices[indexName]; ok {
		return len(ix.docs)
	}
	return 0
}

// clauseQuery 从 BuildQuery 的 should 子句中取出查询串与权重。
func clauseQuery(clause map[string]interface{}, kind string) (string, float64) {
	body := clause[kind].(map[string]interface{})[model.FieldContent].(map[string]interface{})
	boost := 1.0
	if b, ok := body["boost"].(float64); ok {
		boost = b
	}
	return body["query"].(string), boost
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j := range phrase {
			if tokens[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func containsAll(tokens, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	set := map[string]struct{}{}
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	for _, t := range terms {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func (m *memStore) Search(_ context.Context, indexName string, query map[string]interface{}) ([]model.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, query)
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	ix, ok := m.indices[indexName]
	if !ok {
		return nil, errs.Newf(errs.OpSearch, errs.ErrIndexNotFound, "index %q", indexName)
	}

	should := query["query"].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]map[string]interface{})
	phraseQ, phraseBoost := clauseQuery(should[0], "match_phrase")
	termsQ, termsBoost := clauseQuery(should[1], "match")
	phrase := ix.analyze(phraseQ)
	terms := ix.analyze(termsQ)

	type scored struct {
		doc   memDoc
		score float64
	}
	var matches []scored
	for _, d := range ix.docs {
		score := 0.0
		if containsPhrase(d.tokens, phrase) {
			score += phraseBoost
		}
		if containsAll(d.tokens, terms) {
			score += termsBoost
		}
		if score > 0 {
			matches = append(matches, scored{doc: d, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	size := query["size"].(int)
	hits := make([]model.SearchHit, 0, len(matches))
	for i, s := range matches {
		if i == size {
			break
		}
		hits = append(hits, model.SearchHit{DocumentID: s.doc.id, Filename: s.doc.filename})
	}
	return hits, nil
}

// fakeIndexRepo 是 repository.IndexRepository 的内存实现。
type fakeIndexRepo struct {
	mu     sync.Mutex
	states map[string]*model.IndexState
	err    error
}

func newFakeIndexRepo() *fakeIndexRepo {
	return &fakeIndexRepo{states: map[string]*model.IndexState{}}
}

func (r *fakeIndexRepo) FindByName(name string) (*model.IndexState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if s, ok := r.states[name]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeIndexRepo) Create(state *model.IndexState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[state.Name]; ok {
		return errors.New("duplicate entry")
	}
	cp := *state
	r.states[state.Name] = &cp
	return nil
}

func (r *fakeIndexRepo) Lock(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[name]; ok {
		s.SchemaLocked = true
		return nil
	}
	r.states[name] = &model.IndexState{Name: name, SchemaLocked: true}
	return nil
}

func (r *fakeIndexRepo) FindAll() ([]model.IndexState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.IndexState, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, *s)
	}
	return out, nil
}

// fakeDocRepo 是 repository.DocumentRepository 的内存实现。
type fakeDocRepo struct {
	mu      sync.Mutex
	records []model.DocumentRecord
}

func (r *fakeDocRepo) Create(record *model.DocumentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeDocRepo) FindByIndex(indexName string, limit, offset int) ([]model.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DocumentRecord
	for _, rec := range r.records {
		if rec.IndexName == indexName {
			out = append(out, rec)
		}
	}
	if offset >= len(out) {
		return []model.DocumentRecord{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDocRepo) CountByIndex(indexName string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.IndexName == indexName {
			n++
		}
	}
	return n, nil
}

// fakeObjects 是 storage.ObjectStore 的内存实现。
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (o *fakeObjects) Put(_ context.Context, name string, data []byte, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.putErr != nil {
		return o.putErr
	}
	o.objects[name] = append([]byte(nil), data...)
	return nil
}

func (o *fakeObjects) Get(_ context.Context, name string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %s not found", name)
	}
	return data, nil
}

func (o *fakeObjects) Remove(_ context.Context, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, name)
	return nil
}

type fakePublisher struct {
	published []tasks.IngestTask
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, task tasks.IngestTask) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, task)
	return nil
}

type fakeTaskRepo struct {
	mu       sync.Mutex
	statuses map[string]model.TaskStatus
	saveErr  error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{statuses: map[string]model.TaskStatus{}}
}

func (r *fakeTaskRepo) Save(_ context.Context, status model.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.statuses[status.TaskID] = status
	return nil
}

func (r *fakeTaskRepo) Get(_ context.Context, id string) (*model.TaskStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[id]; ok {
		return &s, nil
	}
	return nil, nil
}
