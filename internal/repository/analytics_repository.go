package repository

import (
	"time"

	"field-smart-go/internal/model"

	"gorm.io/gorm"
)

// SummaryRow 是检索统计聚合查询的原始结果行。
type SummaryRow struct {
	TotalSearches      int64
	AvgExecutionTimeMs float64
	AvgResultsCount    float64
}

// PopularRow 是热门查询分组统计的原始结果行。
type PopularRow struct {
	Query string
	Count int64
}

// AnalyticsRepository 定义了对 search_analytics 表的数据操作接口。
type AnalyticsRepository interface {
	Create(record *model.SearchAnalytics) error
	FindByID(id uint) (*model.SearchAnalytics, error)
	UpdateClickedResults(id uint, clickedResults string) error
	FindByUserID(userID uint, limit int) ([]model.SearchAnalytics, error)
	Summarize(userID uint, since time.Time) (*SummaryRow, error)
	GroupPopular(since time.Time, limit int) ([]PopularRow, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建一个新的 AnalyticsRepository 实例。
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// Create 追加一条检索记录。
func (r *analyticsRepository) Create(record *model.SearchAnalytics) error {
	return r.db.Create(record).Error
}

// FindByID 根据 ID 检索一条检索记录。
func (r *analyticsRepository) FindByID(id uint) (*model.SearchAnalytics, error) {
	var record model.SearchAnalytics
	if err := r.db.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateClickedResults 只更新点击列表字段，原始查询字段保持不变。
func (r *analyticsRepository) UpdateClickedResults(id uint, clickedResults string) error {
	return r.db.Model(&model.SearchAnalytics{}).Where("id = ?", id).
		Update("clicked_results", clickedResults).Error
}

// FindByUserID 返回用户的检索历史，最近的在前。
func (r *analyticsRepository) FindByUserID(userID uint, limit int) ([]model.SearchAnalytics, error) {
	var records []model.SearchAnalytics
	q := r.db.Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&records).Error
	return records, err
}

// Summarize 统计 since 之后该用户的检索总数与平均耗时/平均结果数。
func (r *analyticsRepository) Summarize(userID uint, since time.Time) (*SummaryRow, error) {
	var row SummaryRow
	err := r.db.Model(&model.SearchAnalytics{}).
		Select("COUNT(*) AS total_searches, "+
			"COALESCE(AVG(execution_time_ms), 0) AS avg_execution_time_ms, "+
			"COALESCE(AVG(results_count), 0) AS avg_results_count").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GroupPopular 将 since 之后完全相同的查询串分组，按出现次数降序返回。
func (r *analyticsRepository) GroupPopular(since time.Time, limit int) ([]PopularRow, error) {
	var rows []PopularRow
	err := r.db.Model(&model.SearchAnalytics{}).
		Select("query, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("query").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
