package service

import (
	"context"
	"errors"
	"testing"

	"diof-search/internal/config"
	"diof-search/internal/encoder"
	"diof-search/internal/errs"
	"diof-search/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIndex = "diof"

type harness struct {
	store     *memStore
	indexRepo *fakeIndexRepo
	docRepo   *fakeDocRepo
	indexes   IndexService
	ingest    IngestService
	search    SearchService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newMemStore()
	indexRepo := newFakeIndexRepo()
	docRepo := &fakeDocRepo{}
	analyzer := config.AnalyzerConfig{Name: "diof_text", StopWords: []string{model.DefaultStopWordsPreset}}
	searchCfg := config.SearchConfig{MaxResults: 10, PhraseBoost: 1.0, TermsBoost: 0.5}

	h := &harness{
		store:     st,
		indexRepo: indexRepo,
		docRepo:   docRepo,
		indexes:   NewIndexService(st, indexRepo, analyzer, "attachment"),
		ingest:    NewIngestService(st, docRepo, indexRepo, "attachment", testIndex),
		search:    NewSearchService(st, searchCfg, testIndex),
	}
	require.NoError(t, h.indexes.EnsurePipeline(context.Background()))
	return h
}

func (h *harness) upload(t *testing.T, filename, text string) string {
	t.Helper()
	id, err := h.ingest.IngestUpload(context.Background(), model.UploadRequest{Filename: filename, Raw: []byte(text)}, testIndex)
	require.NoError(t, err)
	return id
}

func hitIDs(hits []model.SearchHit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.DocumentID)
	}
	return ids
}

func TestIngestThenSearch_FindsDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))

	id := h.upload(t, "diario.pdf", "Publicação do extrato contratual xilogravura número 42")
	h.upload(t, "outro.pdf", "Nada relevante aqui")

	hits, err := h.search.Search(ctx, "xilogravura", testIndex)
	require.NoError(t, err)
	assert.Equal(t, []model.SearchHit{{DocumentID: id, Filename: "diario.pdf"}}, hits)
}

func TestSearch_EmptyIndexReturnsNoResults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))

	hits, err := h.search.Search(ctx, "qualquer coisa", testIndex)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearch_StopWordOnlyQueryReturnsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))
	h.upload(t, "a.pdf", "O relatório de contas da prefeitura")

	hits, err := h.search.Search(ctx, "de", testIndex)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_PhraseRanksAboveUnorderedTerms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))

	unordered := h.upload(t, "unordered.pdf", "O balanço anual inclui o relatório de despesas")
	phrase := h.upload(t, "phrase.pdf", "Segue o relatório anual da secretaria")

	hits, err := h.search.Search(ctx, "relatório anual", testIndex)
	require.NoError(t, err)
	assert.Equal(t, []string{phrase, unordered}, hitIDs(hits))
}

func TestSearch_BlankQueryRejectedBeforeStore(t *testing.T) {
	h := newHarness(t)
	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := h.search.Search(context.Background(), q, testIndex)
		assert.ErrorIs(t, err, errs.ErrInvalidQuery)
	}
	assert.Empty(t, h.store.searches)
}

func TestSearch_MissingIndex(t *testing.T) {
	h := newHarness(t)
	_, err := h.search.Search(context.Background(), "anything", "nope")
	assert.ErrorIs(t, err, errs.ErrIndexNotFound)
}

func TestSearch_CapsAndDefaultsIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))
	for i := 0; i < 15; i++ {
		h.upload(t, "edital.pdf", "edital de licitação")
	}

	hits, err := h.search.Search(ctx, "edital", "")
	require.NoError(t, err)
	assert.Len(t, hits, 10)
}

func TestSearch_StoreIOErrorPropagates(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.indexes.CreateIndex(context.Background(), testIndex))
	h.store.failNext = errs.New(errs.OpSearch, errs.ErrIO, errors.New("connection reset"))

	_, err := h.search.Search(context.Background(), "edital", testIndex)
	assert.ErrorIs(t, err, errs.ErrIO)
}

func TestCreateIndex_TwiceFailsAndKeepsDocuments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))
	h.upload(t, "a.pdf", "conteúdo")

	err := h.indexes.CreateIndex(ctx, testIndex)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	assert.Equal(t, 1, h.store.docCount(testIndex))
}

func TestCreateIndex_SecondCallBeforeIngestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))
	err := h.indexes.CreateIndex(ctx, testIndex)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestCreateIndex_LockedSchemaRejectedWithoutStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.indexes.CreateIndex(ctx, testIndex))
	h.upload(t, "a.pdf", "conteúdo")

	state, err := h.indexRepo.FindByName(testIndex)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.SchemaLocked)

	// 即使存储层返回成功，已锁定的 schema 也必须被拒绝。
	h.store.mu.Lock()
	delete(h.store.indices, testIndex)
	h.store.mu.Unlock()

	err = h.indexes.CreateIndex(ctx, testIndex)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	exists, _ := h.store.IndexExists(ctx, testIndex)
	assert.False(t, exists)
}

func TestCreateIndex_BlankName(t *testing.T) {
	h := newHarness(t)
	err := h.indexes.CreateIndex(context.Background(), "  ")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestEnsureIndex_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.indexes.EnsureIndex(ctx, testIndex))
	require.NoError(t, h.indexes.EnsureIndex(ctx, testIndex))

	indices, err := h.indexes.ListIndices()
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.Equal(t, "diof_text", indices[0].AnalyzerName)
}

func TestEnsurePipeline_CreateOrIgnore(t *testing.T) {
	h := newHarness(t)
	h.store.failNext = errors.New("must not be called")
	require.NoError(t, h.indexes.EnsurePipeline(context.Background()))
}

func TestIngest_MissingIndexLeavesNothingBehind(t *testing.T) {
	h := newHarness(t)

	_, err := h.ingest.IngestUpload(context.Background(), model.UploadRequest{Filename: "a.pdf", Raw: []byte("texto")}, "ghost")
	assert.ErrorIs(t, err, errs.ErrIndexNotFound)
	assert.Equal(t, 0, h.store.docCount("ghost"))
	assert.Empty(t, h.docRepo.records)
}

func TestIngest_ProcessingError(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.indexes.CreateIndex(context.Background(), testIndex))

	_, err := h.ingest.IngestUpload(context.Background(), model.UploadRequest{Filename: "bad.pdf", Raw: []byte("%CORRUPT")}, testIndex)
	assert.ErrorIs(t, err, errs.ErrProcessing)
	assert.Equal(t, 0, h.store.docCount(testIndex))
}

func TestIngest_ReingestCreatesDistinctDocuments(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.indexes.CreateIndex(context.Background(), testIndex))

	first := h.upload(t, "same.pdf", "mesmo conteúdo")
	second := h.upload(t, "same.pdf", "mesmo conteúdo")
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, h.store.docCount(testIndex))
}

func TestIngest_EncodedContract(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.indexes.CreateIndex(context.Background(), testIndex))

	id, err := h.ingest.Ingest(context.Background(), "nota.txt", encoder.Encode([]byte("nota fiscal")), testIndex)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, h.docRepo.records, 1)
	assert.Equal(t, int64(0), h.docRepo.records[0].SizeBytes)
}

func TestIngest_InvalidUploads(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.indexes.CreateIndex(context.Background(), testIndex))

	_, err := h.ingest.IngestUpload(context.Background(), model.UploadRequest{Filename: "empty.pdf"}, testIndex)
	assert.ErrorIs(t, err, errs.ErrInvalidUpload)

	_, err = h.ingest.Ingest(context.Background(), " ", encoder.Encode([]byte("x")), testIndex)
	assert.ErrorIs(t, err, errs.ErrInvalidUpload)
}

func TestIngest_WritesLedger(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.indexes.CreateIndex(context.Background(), testIndex))
	id := h.upload(t, "plain.txt", "texto simples")

	records, total, err := h.ingest.ListDocuments("", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].DocumentID)
	assert.Equal(t, "text/plain", records[0].MIMEType)
	assert.Equal(t, int64(len("texto simples")), records[0].SizeBytes)
}

func TestIngest_WithoutRepositories(t *testing.T) {
	st := newMemStore()
	indexes := NewIndexService(st, nil, config.AnalyzerConfig{Name: "x"}, "attachment")
	ingest := NewIngestService(st, nil, nil, "attachment", testIndex)
	ctx := context.Background()

	require.NoError(t, indexes.EnsurePipeline(ctx))
	require.NoError(t, indexes.CreateIndex(ctx, testIndex))
	_, err := ingest.IngestUpload(ctx, model.UploadRequest{Filename: "a.txt", Raw: []byte("a b c")}, "")
	require.NoError(t, err)

	records, total, err := ingest.ListDocuments(testIndex, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, total)
}

func TestEnsureIndex_RegistersIndexMissingFromRegistry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	// 索引直接在存储中创建，登记表里没有记录。
	require.NoError(t, h.store.CreateIndex(ctx, model.IndexSchema{Name: testIndex}))

	require.NoError(t, h.indexes.EnsureIndex(ctx, testIndex))

	state, err := h.indexRepo.FindByName(testIndex)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "diof_text", state.AnalyzerName)
	assert.False(t, state.SchemaLocked)
}

func TestIngest_UnregisteredIndexStillGetsLocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.CreateIndex(ctx, model.IndexSchema{Name: testIndex}))
	h.upload(t, "a.pdf", "conteúdo")

	state, err := h.indexRepo.FindByName(testIndex)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.SchemaLocked)

	// 锁定后，即使存储中的索引消失，重建请求也在到达存储之前被拒绝。
	h.store.mu.Lock()
	delete(h.store.indices, testIndex)
	h.store.mu.Unlock()
	err = h.indexes.CreateIndex(ctx, testIndex)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	exists, _ := h.store.IndexExists(ctx, testIndex)
	assert.False(t, exists)
}
