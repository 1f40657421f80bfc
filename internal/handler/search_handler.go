// Package handler 实现了 HTTP 层的请求处理器。
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"field-smart-go/internal/middleware"
	"field-smart-go/internal/service"
	"field-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了语义检索相关的处理器。
type SearchHandler struct {
	searchService    service.SearchService
	analyticsService service.AnalyticsService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService, analyticsService service.AnalyticsService) *SearchHandler {
	return &SearchHandler{
		searchService:    searchService,
		analyticsService: analyticsService,
	}
}

// Search 是处理语义检索请求的 Gin 处理函数。
// 每次成功的检索都会写入一条分析记录，analyticsId 随结果返回，
// 供客户端后续上报结果点击。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	log.Infof("[SearchHandler] 收到语义检索请求, query: %s", query)

	opts := service.SearchOptions{Query: query}

	if raw := c.Query("matchThreshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 matchThreshold 参数"})
			return
		}
		opts.MatchThreshold = &threshold
	}
	if raw := c.Query("matchCount"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil || count <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 matchCount 参数"})
			return
		}
		opts.MatchCount = count
	}
	if raw := c.Query("fileIds"); raw != "" {
		fileIDs, err := parseIDList(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 fileIds 参数"})
			return
		}
		opts.FileIDs = fileIDs
	}

	start := time.Now()
	results, threshold, err := h.searchService.Search(c.Request.Context(), opts)
	executionTime := time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) || errors.Is(err, service.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[SearchHandler] 语义检索服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}

	// 记录本次检索。分析写入失败不影响检索结果的返回。
	var analyticsID uint
	if id, trackErr := h.analyticsService.TrackQuery(middleware.UserID(c), query, len(results), threshold, executionTime); trackErr != nil {
		log.Warnf("[SearchHandler] 记录检索分析失败: %v", trackErr)
	} else {
		analyticsID = id
	}

	log.Infof("[SearchHandler] 语义检索成功, query: '%s', 返回 %d 条结果, 耗时 %dms", query, len(results), executionTime)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{
		"results":     results,
		"count":       len(results),
		"analyticsId": analyticsID,
	}, "message": "success"})
}

// parseIDList 解析逗号分隔的 ID 列表。
func parseIDList(raw string) ([]uint, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
