package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"field-smart-go/internal/model"
	"field-smart-go/internal/repository"
	"field-smart-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 热门查询的缓存有效期。
const popularCacheTTL = 5 * time.Minute

// AnalyticsService 接口定义了检索分析与保存查询的全部操作。
type AnalyticsService interface {
	TrackQuery(userID uint, query string, resultsCount int, similarityThreshold float64, executionTimeMs int64) (uint, error)
	TrackResultClick(analyticsID uint, resultID string) error
	GetHistory(userID uint, limit int) ([]model.SearchAnalytics, error)
	GetSummary(userID uint, daysBack int) (*model.SearchSummaryDTO, error)
	GetPopularQueries(ctx context.Context, limit, daysBack int) ([]model.PopularQueryDTO, error)
	SaveQuery(userID uint, name, query string, filters *model.SavedQueryFilters) (*model.SavedQueryDTO, error)
	ListSavedQueries(userID uint) ([]model.SavedQueryDTO, error)
	UpdateUsage(queryID uint) (bool, error)
	DeleteSavedQuery(queryID, userID uint) (bool, error)
}

type analyticsService struct {
	analyticsRepo  repository.AnalyticsRepository
	savedQueryRepo repository.SavedQueryRepository
	redisClient    *redis.Client // 可为 nil，此时跳过热门查询缓存
}

// NewAnalyticsService 创建一个新的 AnalyticsService 实例。
func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository, savedQueryRepo repository.SavedQueryRepository, redisClient *redis.Client) AnalyticsService {
	return &analyticsService{
		analyticsRepo:  analyticsRepo,
		savedQueryRepo: savedQueryRepo,
		redisClient:    redisClient,
	}
}

// TrackQuery 追加一条检索记录并返回记录 ID。
// 记录一旦写入便不可变，后续只有点击追踪会更新它。
func (s *analyticsService) TrackQuery(userID uint, query string, resultsCount int, similarityThreshold float64, executionTimeMs int64) (uint, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("%w: query 不能为空", ErrInvalidArgument)
	}
	if resultsCount < 0 {
		return 0, fmt.Errorf("%w: resultsCount 不能为负", ErrInvalidArgument)
	}
	if similarityThreshold < 0 || similarityThreshold > 1 {
		return 0, fmt.Errorf("%w: similarityThreshold 必须位于 [0,1]", ErrInvalidArgument)
	}

	record := &model.SearchAnalytics{
		UserID:              userID,
		Query:               query,
		ResultsCount:        resultsCount,
		SimilarityThreshold: similarityThreshold,
		ExecutionTimeMs:     executionTimeMs,
	}
	if err := s.analyticsRepo.Create(record); err != nil {
		return 0, fmt.Errorf("记录检索失败: %w", err)
	}
	return record.ID, nil
}

// TrackResultClick 将一次结果点击关联到既有的检索记录。
// 同一结果的重复点击是幂等的；检索记录不存在时返回 ErrNotFound，
// 便于及时发现客户端上报了失效的 analyticsId。
func (s *analyticsService) TrackResultClick(analyticsID uint, resultID string) error {
	if strings.TrimSpace(resultID) == "" {
		return fmt.Errorf("%w: resultId 不能为空", ErrInvalidArgument)
	}

	record, err := s.analyticsRepo.FindByID(analyticsID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var clicked []string
	if record.ClickedResults != "" {
		if err := json.Unmarshal([]byte(record.ClickedResults), &clicked); err != nil {
			log.Warnf("[AnalyticsService] 解析点击列表失败, id=%d: %v", analyticsID, err)
			clicked = nil
		}
	}
	for _, id := range clicked {
		if id == resultID {
			return nil // 重复点击，不产生新记录
		}
	}
	clicked = append(clicked, resultID)

	payload, err := json.Marshal(clicked)
	if err != nil {
		return fmt.Errorf("序列化点击列表失败: %w", err)
	}
	return s.analyticsRepo.UpdateClickedResults(analyticsID, string(payload))
}

// GetHistory 返回用户的检索历史，最近的在前。
func (s *analyticsService) GetHistory(userID uint, limit int) ([]model.SearchAnalytics, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.analyticsRepo.FindByUserID(userID, limit)
}

// GetSummary 返回近 daysBack 天的检索统计聚合。
func (s *analyticsService) GetSummary(userID uint, daysBack int) (*model.SearchSummaryDTO, error) {
	if daysBack <= 0 {
		daysBack = 30
	}
	since := time.Now().AddDate(0, 0, -daysBack)
	row, err := s.analyticsRepo.Summarize(userID, since)
	if err != nil {
		return nil, fmt.Errorf("统计检索聚合失败: %w", err)
	}
	return &model.SearchSummaryDTO{
		TotalSearches:      row.TotalSearches,
		AvgExecutionTimeMs: row.AvgExecutionTimeMs,
		AvgResultsCount:    row.AvgResultsCount,
		DaysBack:           daysBack,
	}, nil
}

// GetPopularQueries 返回近 daysBack 天内出现次数最多的查询串。
// 结果在 Redis 中缓存 5 分钟，避免高频聚合扫描。
func (s *analyticsService) GetPopularQueries(ctx context.Context, limit, daysBack int) ([]model.PopularQueryDTO, error) {
	if limit <= 0 {
		limit = 10
	}
	if daysBack <= 0 {
		daysBack = 7
	}

	cacheKey := fmt.Sprintf("analytics:popular:%d:%d", limit, daysBack)
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Bytes(); err == nil {
			var dtos []model.PopularQueryDTO
			if err := json.Unmarshal(cached, &dtos); err == nil {
				return dtos, nil
			}
		}
	}

	since := time.Now().AddDate(0, 0, -daysBack)
	rows, err := s.analyticsRepo.GroupPopular(since, limit)
	if err != nil {
		return nil, fmt.Errorf("统计热门查询失败: %w", err)
	}
	dtos := make([]model.PopularQueryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, model.PopularQueryDTO{Query: row.Query, Count: row.Count})
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(dtos); err == nil {
			if err := s.redisClient.Set(ctx, cacheKey, payload, popularCacheTTL).Err(); err != nil {
				log.Warnf("[AnalyticsService] 写入热门查询缓存失败: %v", err)
			}
		}
	}
	return dtos, nil
}

// SaveQuery 创建一条保存的查询，use_count 从 0 开始。
func (s *analyticsService) SaveQuery(userID uint, name, query string, filters *model.SavedQueryFilters) (*model.SavedQueryDTO, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name 不能为空", ErrInvalidArgument)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query 不能为空", ErrInvalidArgument)
	}
	if filters != nil {
		if filters.SimilarityThreshold != nil && (*filters.SimilarityThreshold < 0 || *filters.SimilarityThreshold > 1) {
			return nil, fmt.Errorf("%w: similarityThreshold 必须位于 [0,1]", ErrInvalidArgument)
		}
		if filters.MaxResults != nil && *filters.MaxResults <= 0 {
			return nil, fmt.Errorf("%w: maxResults 必须为正数", ErrInvalidArgument)
		}
	}

	record := &model.SavedQuery{
		UserID: userID,
		Name:   strings.TrimSpace(name),
		Query:  query,
	}
	if filters != nil {
		payload, err := json.Marshal(filters)
		if err != nil {
			return nil, fmt.Errorf("序列化过滤条件失败: %w", err)
		}
		record.Filters = string(payload)
	}
	if err := s.savedQueryRepo.Create(record); err != nil {
		return nil, fmt.Errorf("保存查询失败: %w", err)
	}
	return toSavedQueryDTO(record), nil
}

// ListSavedQueries 返回用户保存的全部查询。
func (s *analyticsService) ListSavedQueries(userID uint) ([]model.SavedQueryDTO, error) {
	records, err := s.savedQueryRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	dtos := make([]model.SavedQueryDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, *toSavedQueryDTO(&records[i]))
	}
	return dtos, nil
}

// UpdateUsage 记录保存查询被复用一次。记录不存在时返回 false。
func (s *analyticsService) UpdateUsage(queryID uint) (bool, error) {
	err := s.savedQueryRepo.IncrementUsage(queryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteSavedQuery 删除用户自己的保存查询。
// 所有权校验是业务规则：非所有者与不存在的记录返回同样的 false，
// 不暴露他人数据是否存在。
func (s *analyticsService) DeleteSavedQuery(queryID, userID uint) (bool, error) {
	rows, err := s.savedQueryRepo.DeleteByIDAndUserID(queryID, userID)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// toSavedQueryDTO 将数据库记录转换为 DTO，过滤条件在边界上反序列化为结构体。
func toSavedQueryDTO(record *model.SavedQuery) *model.SavedQueryDTO {
	dto := &model.SavedQueryDTO{
		ID:         record.ID,
		Name:       record.Name,
		Query:      record.Query,
		UseCount:   record.UseCount,
		CreatedAt:  record.CreatedAt,
		LastUsedAt: record.LastUsedAt,
	}
	if record.Filters != "" {
		var filters model.SavedQueryFilters
		if err := json.Unmarshal([]byte(record.Filters), &filters); err != nil {
			log.Warnf("[AnalyticsService] 解析保存查询的过滤条件失败, id=%d: %v", record.ID, err)
		} else {
			dto.Filters = &filters
		}
	}
	return dto
}
