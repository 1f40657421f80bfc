package service

import (
	"context"
	"testing"
	"time"

	"field-smart-go/internal/model"
	"field-smart-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- 测试替身 ----

type stubAnalyticsRepo struct {
	records     map[uint]*model.SearchAnalytics
	nextID      uint
	updateCalls int
	lastLimit   int
}

func newStubAnalyticsRepo() *stubAnalyticsRepo {
	return &stubAnalyticsRepo{records: make(map[uint]*model.SearchAnalytics), nextID: 1}
}

func (r *stubAnalyticsRepo) Create(record *model.SearchAnalytics) error {
	record.ID = r.nextID
	r.nextID++
	r.records[record.ID] = record
	return nil
}

func (r *stubAnalyticsRepo) FindByID(id uint) (*model.SearchAnalytics, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *stubAnalyticsRepo) UpdateClickedResults(id uint, clickedResults string) error {
	r.updateCalls++
	record, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.ClickedResults = clickedResults
	return nil
}

func (r *stubAnalyticsRepo) FindByUserID(userID uint, limit int) ([]model.SearchAnalytics, error) {
	r.lastLimit = limit
	var result []model.SearchAnalytics
	for _, record := range r.records {
		if record.UserID == userID {
			result = append(result, *record)
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *stubAnalyticsRepo) Summarize(userID uint, since time.Time) (*repository.SummaryRow, error) {
	row := &repository.SummaryRow{}
	var totalTime, totalResults int64
	for _, record := range r.records {
		if record.UserID == userID {
			row.TotalSearches++
			totalTime += record.ExecutionTimeMs
			totalResults += int64(record.ResultsCount)
		}
	}
	if row.TotalSearches > 0 {
		row.AvgExecutionTimeMs = float64(totalTime) / float64(row.TotalSearches)
		row.AvgResultsCount = float64(totalResults) / float64(row.TotalSearches)
	}
	return row, nil
}

func (r *stubAnalyticsRepo) GroupPopular(since time.Time, limit int) ([]repository.PopularRow, error) {
	counts := make(map[string]int64)
	for _, record := range r.records {
		counts[record.Query]++
	}
	var rows []repository.PopularRow
	for query, count := range counts {
		rows = append(rows, repository.PopularRow{Query: query, Count: count})
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type stubSavedQueryRepo struct {
	records map[uint]*model.SavedQuery
	nextID  uint
}

func newStubSavedQueryRepo() *stubSavedQueryRepo {
	return &stubSavedQueryRepo{records: make(map[uint]*model.SavedQuery), nextID: 1}
}

func (r *stubSavedQueryRepo) Create(record *model.SavedQuery) error {
	record.ID = r.nextID
	r.nextID++
	r.records[record.ID] = record
	return nil
}

func (r *stubSavedQueryRepo) FindByID(id uint) (*model.SavedQuery, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (r *stubSavedQueryRepo) FindByUserID(userID uint) ([]model.SavedQuery, error) {
	var result []model.SavedQuery
	for _, record := range r.records {
		if record.UserID == userID {
			result = append(result, *record)
		}
	}
	return result, nil
}

func (r *stubSavedQueryRepo) IncrementUsage(id uint) error {
	record, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.UseCount++
	now := time.Now()
	record.LastUsedAt = &now
	return nil
}

func (r *stubSavedQueryRepo) DeleteByIDAndUserID(id, userID uint) (int64, error) {
	record, ok := r.records[id]
	if !ok || record.UserID != userID {
		return 0, nil
	}
	delete(r.records, id)
	return 1, nil
}

func newTestAnalyticsService() (AnalyticsService, *stubAnalyticsRepo, *stubSavedQueryRepo) {
	analyticsRepo := newStubAnalyticsRepo()
	savedQueryRepo := newStubSavedQueryRepo()
	return NewAnalyticsService(analyticsRepo, savedQueryRepo, nil), analyticsRepo, savedQueryRepo
}

// ---- 测试 ----

func TestTrackQueryValidation(t *testing.T) {
	svc, _, _ := newTestAnalyticsService()

	tests := []struct {
		name         string
		query        string
		resultsCount int
		threshold    float64
	}{
		{"空白查询", "   ", 3, 0.78},
		{"负的结果数", "pump", -1, 0.78},
		{"阈值超出上界", "pump", 3, 1.2},
		{"阈值超出下界", "pump", 3, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.TrackQuery(1, tt.query, tt.resultsCount, tt.threshold, 50)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestTrackQueryReturnsRecordID(t *testing.T) {
	svc, repo, _ := newTestAnalyticsService()

	id, err := svc.TrackQuery(1, "pump seal replacement", 5, 0.78, 120)
	require.NoError(t, err)
	require.NotZero(t, id)

	record := repo.records[id]
	require.NotNil(t, record)
	assert.Equal(t, uint(1), record.UserID)
	assert.Equal(t, 5, record.ResultsCount)
	assert.Equal(t, int64(120), record.ExecutionTimeMs)
}

func TestTrackResultClick(t *testing.T) {
	svc, repo, _ := newTestAnalyticsService()
	id, err := svc.TrackQuery(1, "pump", 3, 0.78, 50)
	require.NoError(t, err)

	require.NoError(t, svc.TrackResultClick(id, "1_0"))
	assert.Equal(t, `["1_0"]`, repo.records[id].ClickedResults)

	// 重复点击同一结果是幂等的, 不触发更新
	updates := repo.updateCalls
	require.NoError(t, svc.TrackResultClick(id, "1_0"))
	assert.Equal(t, updates, repo.updateCalls)
	assert.Equal(t, `["1_0"]`, repo.records[id].ClickedResults)

	// 不同结果追加
	require.NoError(t, svc.TrackResultClick(id, "2_1"))
	assert.Equal(t, `["1_0","2_1"]`, repo.records[id].ClickedResults)
}

func TestTrackResultClickMissingRecord(t *testing.T) {
	svc, _, _ := newTestAnalyticsService()

	err := svc.TrackResultClick(999, "1_0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetHistoryBoundedByLimit(t *testing.T) {
	svc, repo, _ := newTestAnalyticsService()
	for i := 0; i < 5; i++ {
		_, err := svc.TrackQuery(1, "pump", 1, 0.78, 10)
		require.NoError(t, err)
	}
	_, err := svc.TrackQuery(2, "other user", 1, 0.78, 10)
	require.NoError(t, err)

	history, err := svc.GetHistory(1, 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, 3, repo.lastLimit)
	for _, record := range history {
		assert.Equal(t, uint(1), record.UserID)
	}
}

func TestGetHistoryDefaultLimit(t *testing.T) {
	svc, repo, _ := newTestAnalyticsService()

	_, err := svc.GetHistory(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)

	_, err = svc.GetHistory(1, -5)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)
}

func TestGetSummary(t *testing.T) {
	svc, _, _ := newTestAnalyticsService()
	_, err := svc.TrackQuery(1, "pump", 4, 0.78, 100)
	require.NoError(t, err)
	_, err = svc.TrackQuery(1, "valve", 2, 0.78, 200)
	require.NoError(t, err)
	_, err = svc.TrackQuery(2, "other user", 1, 0.78, 50)
	require.NoError(t, err)

	summary, err := svc.GetSummary(1, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.TotalSearches)
	assert.Equal(t, 150.0, summary.AvgExecutionTimeMs)
	assert.Equal(t, 3.0, summary.AvgResultsCount)
	assert.Equal(t, 30, summary.DaysBack) // 默认时间窗口
}

func TestGetPopularQueriesWithoutCache(t *testing.T) {
	svc, _, _ := newTestAnalyticsService()
	for i := 0; i < 3; i++ {
		_, err := svc.TrackQuery(1, "pump", 1, 0.78, 10)
		require.NoError(t, err)
	}
	_, err := svc.TrackQuery(2, "valve", 1, 0.78, 10)
	require.NoError(t, err)

	popular, err := svc.GetPopularQueries(context.Background(), 10, 7)
	require.NoError(t, err)
	require.Len(t, popular, 2)

	byQuery := make(map[string]int64, len(popular))
	for _, p := range popular {
		byQuery[p.Query] = p.Count
	}
	assert.Equal(t, int64(3), byQuery["pump"])
	assert.Equal(t, int64(1), byQuery["valve"])
}

func TestSaveQueryValidation(t *testing.T) {
	svc, _, _ := newTestAnalyticsService()

	_, err := svc.SaveQuery(1, "  ", "pump", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.SaveQuery(1, "my search", "  ", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	bad := 1.5
	_, err = svc.SaveQuery(1, "my search", "pump", &model.SavedQueryFilters{SimilarityThreshold: &bad})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSaveQueryRoundTripsFilters(t *testing.T) {
	svc, _, _ := newTestAnalyticsService()

	threshold := 0.85
	maxResults := 5
	dto, err := svc.SaveQuery(1, "pump checks", "pump seal", &model.SavedQueryFilters{
		FileIDs:             []uint{1, 2},
		SimilarityThreshold: &threshold,
		MaxResults:          &maxResults,
	})
	require.NoError(t, err)
	assert.Zero(t, dto.UseCount)

	listed, err := svc.ListSavedQueries(1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Filters)
	assert.Equal(t, []uint{1, 2}, listed[0].Filters.FileIDs)
	assert.Equal(t, 0.85, *listed[0].Filters.SimilarityThreshold)
	assert.Equal(t, 5, *listed[0].Filters.MaxResults)
}

func TestUpdateUsage(t *testing.T) {
	svc, _, repo := newTestAnalyticsService()
	dto, err := svc.SaveQuery(1, "pump checks", "pump seal", nil)
	require.NoError(t, err)

	updated, err := svc.UpdateUsage(dto.ID)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 1, repo.records[dto.ID].UseCount)
	assert.NotNil(t, repo.records[dto.ID].LastUsedAt)

	// 不存在的记录返回 false 而不是错误
	updated, err = svc.UpdateUsage(999)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestDeleteSavedQueryOwnership(t *testing.T) {
	svc, _, repo := newTestAnalyticsService()
	dto, err := svc.SaveQuery(1, "pump checks", "pump seal", nil)
	require.NoError(t, err)

	// 非所有者删除失败, 记录保留
	deleted, err := svc.DeleteSavedQuery(dto.ID, 2)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, repo.records, dto.ID)

	// 所有者删除成功
	deleted, err = svc.DeleteSavedQuery(dto.ID, 1)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, repo.records, dto.ID)
}
