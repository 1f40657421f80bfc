package service

import (
	"context"
	"testing"

	"field-smart-go/internal/config"
	"field-smart-go/internal/model"
	"field-smart-go/pkg/es"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- 测试替身 ----

type stubEmbedder struct {
	calls int
}

func (e *stubEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{0.5, 0.5, 0.5}, nil
}

func (e *stubEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.5, 0.5, 0.5}
	}
	return vectors, nil
}

type stubSearcher struct {
	hits        []es.ChunkHit
	calls       int
	lastK       int
	lastFileIDs []uint
}

func (s *stubSearcher) KnnSearch(ctx context.Context, vector []float32, k int, fileIDs []uint) ([]es.ChunkHit, error) {
	s.calls++
	s.lastK = k
	s.lastFileIDs = fileIDs
	return s.hits, nil
}

type stubFileRepo struct {
	files map[uint]*model.File
	calls int
}

func (r *stubFileRepo) Create(record *model.File) error {
	if r.files == nil {
		r.files = make(map[uint]*model.File)
	}
	record.ID = uint(len(r.files) + 1)
	r.files[record.ID] = record
	return nil
}

func (r *stubFileRepo) FindByID(fileID uint) (*model.File, error) {
	if f, ok := r.files[fileID]; ok {
		return f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubFileRepo) FindByIDs(fileIDs []uint) ([]*model.File, error) {
	r.calls++
	var result []*model.File
	for _, id := range fileIDs {
		if f, ok := r.files[id]; ok {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *stubFileRepo) FindByUserID(userID uint) ([]model.File, error)  { return nil, nil }
func (r *stubFileRepo) FindUnprocessed(limit int) ([]model.File, error) { return nil, nil }
func (r *stubFileRepo) MarkProcessed(fileID uint) error                 { return nil }
func (r *stubFileRepo) MarkUnprocessed(fileID uint) error               { return nil }
func (r *stubFileRepo) Delete(fileID uint) error {
	delete(r.files, fileID)
	return nil
}

func chunkHit(fileID uint, chunkIndex int, content string, score float64) es.ChunkHit {
	return es.ChunkHit{
		Source: model.EsChunkDocument{
			ChunkUID:   model.ChunkUID(fileID, chunkIndex),
			FileID:     fileID,
			ChunkIndex: chunkIndex,
			Content:    content,
			WordCount:  len(content),
			Length:     len(content),
		},
		Score: score,
	}
}

func defaultSearchConfig() config.SearchConfig {
	return config.SearchConfig{MatchThreshold: 0.78, MatchCount: 10}
}

// ---- 测试 ----

func TestSearchEmptyQueryRejectedBeforeAnyCall(t *testing.T) {
	embedder := &stubEmbedder{}
	searcher := &stubSearcher{}
	fileRepo := &stubFileRepo{files: map[uint]*model.File{}}
	svc := NewSearchService(embedder, searcher, fileRepo, defaultSearchConfig())

	for _, query := range []string{"", "   ", "\t\n"} {
		_, _, err := svc.Search(context.Background(), SearchOptions{Query: query})
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}

	// 校验失败时不得触碰任何外部依赖
	assert.Zero(t, embedder.calls)
	assert.Zero(t, searcher.calls)
	assert.Zero(t, fileRepo.calls)
}

func TestSearchInvalidThreshold(t *testing.T) {
	svc := NewSearchService(&stubEmbedder{}, &stubSearcher{}, &stubFileRepo{}, defaultSearchConfig())

	for _, threshold := range []float64{-0.1, 1.5} {
		tv := threshold
		_, _, err := svc.Search(context.Background(), SearchOptions{Query: "pump", MatchThreshold: &tv})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestSearchAppliesDefaultThreshold(t *testing.T) {
	searcher := &stubSearcher{hits: []es.ChunkHit{
		chunkHit(1, 0, "pump impeller wear", 0.95),
		chunkHit(1, 1, "valve torque table", 0.80),
		chunkHit(2, 0, "unrelated memo", 0.50),
	}}
	fileRepo := &stubFileRepo{files: map[uint]*model.File{
		1: {ID: 1, FileName: "pump-manual.pdf"},
		2: {ID: 2, FileName: "memo.txt"},
	}}
	svc := NewSearchService(&stubEmbedder{}, searcher, fileRepo, defaultSearchConfig())

	results, threshold, err := svc.Search(context.Background(), SearchOptions{Query: "pump"})
	require.NoError(t, err)

	assert.Equal(t, 0.78, threshold)
	require.Len(t, results, 2)
	assert.Equal(t, "pump-manual.pdf", results[0].FileName)
	assert.Equal(t, 0.95, results[0].Similarity)
	assert.Equal(t, 0.80, results[1].Similarity)
	assert.Equal(t, 10, searcher.lastK)
}

func TestSearchCustomThresholdAndCount(t *testing.T) {
	searcher := &stubSearcher{hits: []es.ChunkHit{
		chunkHit(1, 0, "pump impeller wear", 0.95),
		chunkHit(1, 1, "valve torque table", 0.80),
	}}
	fileRepo := &stubFileRepo{files: map[uint]*model.File{
		1: {ID: 1, FileName: "pump-manual.pdf"},
	}}
	svc := NewSearchService(&stubEmbedder{}, searcher, fileRepo, defaultSearchConfig())

	threshold := 0.9
	results, actual, err := svc.Search(context.Background(), SearchOptions{
		Query:          "pump",
		MatchThreshold: &threshold,
		MatchCount:     5,
		FileIDs:        []uint{1},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.9, actual)
	require.Len(t, results, 1)
	assert.Equal(t, 0.95, results[0].Similarity)
	assert.Equal(t, 5, searcher.lastK)
	assert.Equal(t, []uint{1}, searcher.lastFileIDs)
}

func TestSearchNoHitsIsNotAnError(t *testing.T) {
	svc := NewSearchService(&stubEmbedder{}, &stubSearcher{}, &stubFileRepo{}, defaultSearchConfig())

	results, threshold, err := svc.Search(context.Background(), SearchOptions{Query: "nothing matches this"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0.78, threshold)
}

func TestSearchFillsChunkMetadata(t *testing.T) {
	searcher := &stubSearcher{hits: []es.ChunkHit{
		chunkHit(7, 3, "lubrication interval", 0.88),
	}}
	fileRepo := &stubFileRepo{files: map[uint]*model.File{
		7: {ID: 7, FileName: "maintenance.docx"},
	}}
	svc := NewSearchService(&stubEmbedder{}, searcher, fileRepo, defaultSearchConfig())

	results, _, err := svc.Search(context.Background(), SearchOptions{Query: "lubrication"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, uint(7), r.FileID)
	assert.Equal(t, 3, r.ChunkIndex)
	assert.Equal(t, 3, r.Metadata.ChunkIndex)
	assert.Equal(t, r.Content, "lubrication interval")
	assert.Equal(t, len(r.Content), r.Metadata.Length)
}
