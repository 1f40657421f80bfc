package model

import "time"

// SearchAnalytics 对应于数据库中的 search_analytics 表。
// 每次检索追加一条记录；除点击追踪外不再修改，正常流程中也不删除（作为历史）。
type SearchAnalytics struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID              uint      `gorm:"index;not null" json:"userId"`
	Query               string    `gorm:"type:text;not null" json:"query"`
	ResultsCount        int       `gorm:"not null" json:"resultsCount"`
	SimilarityThreshold float64   `gorm:"not null" json:"similarityThreshold"`
	ExecutionTimeMs     int64     `gorm:"not null;column:execution_time_ms" json:"executionTimeMs"`
	ClickedResults      string    `gorm:"type:text" json:"-"` // JSON 数组，记录被点击的结果标识
	CreatedAt           time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SearchAnalytics) TableName() string {
	return "search_analytics"
}

// SavedQuery 对应于数据库中的 saved_queries 表。
// 由用户显式创建，use_count 从 0 开始，仅允许所有者删除。
type SavedQuery struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"userId"`
	Name       string     `gorm:"type:varchar(100);not null" json:"name"`
	Query      string     `gorm:"type:text;not null" json:"query"`
	Filters    string     `gorm:"type:text" json:"-"` // JSON 序列化的 SavedQueryFilters
	UseCount   int        `gorm:"not null;default:0;column:use_count" json:"useCount"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	LastUsedAt *time.Time `gorm:"default:null;column:last_used_at" json:"lastUsedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SavedQuery) TableName() string {
	return "saved_queries"
}

// SavedQueryFilters 是保存查询时可选的检索过滤条件。
// 在进出数据库的边界上序列化为 JSON，核心内部只使用该结构体。
type SavedQueryFilters struct {
	FileIDs             []uint   `json:"fileIds,omitempty"`
	SimilarityThreshold *float64 `json:"similarityThreshold,omitempty"`
	MaxResults          *int     `json:"maxResults,omitempty"`
}

// SavedQueryDTO 是返回给前端的保存查询结构，filters 已反序列化。
type SavedQueryDTO struct {
	ID         uint               `json:"id"`
	Name       string             `json:"name"`
	Query      string             `json:"query"`
	Filters    *SavedQueryFilters `json:"filters,omitempty"`
	UseCount   int                `json:"useCount"`
	CreatedAt  time.Time          `json:"createdAt"`
	LastUsedAt *time.Time         `json:"lastUsedAt,omitempty"`
}

// SearchSummaryDTO 是一段时间窗口内的检索统计聚合。
type SearchSummaryDTO struct {
	TotalSearches      int64   `json:"totalSearches"`
	AvgExecutionTimeMs float64 `json:"avgExecutionTimeMs"`
	AvgResultsCount    float64 `json:"avgResultsCount"`
	DaysBack           int     `json:"daysBack"`
}

// PopularQueryDTO 是按出现次数排序的热门查询。
type PopularQueryDTO struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}
