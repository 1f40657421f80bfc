package handler

import (
	"errors"
	"net/http"
	"strconv"

	"field-smart-go/internal/middleware"
	"field-smart-go/internal/model"
	"field-smart-go/internal/service"
	"field-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 结构体定义了检索分析与保存查询相关的处理器。
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

// NewAnalyticsHandler 创建一个新的 AnalyticsHandler 实例。
func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// trackClickRequest 是结果点击上报的请求体。
type trackClickRequest struct {
	AnalyticsID uint   `json:"analyticsId" binding:"required"`
	ResultID    string `json:"resultId" binding:"required"`
}

// TrackResultClick 是处理结果点击上报的 Gin 处理函数。
func (h *AnalyticsHandler) TrackResultClick(c *gin.Context) {
	var req trackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	if err := h.analyticsService.TrackResultClick(req.AnalyticsID, req.ResultID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "检索记录不存在"})
			return
		}
		if errors.Is(err, service.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[AnalyticsHandler] 记录结果点击失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "记录点击失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": nil, "message": "success"})
}

// GetHistory 是处理检索历史查询的 Gin 处理函数。
func (h *AnalyticsHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.analyticsService.GetHistory(middleware.UserID(c), limit)
	if err != nil {
		log.Errorf("[AnalyticsHandler] 查询检索历史失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询检索历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": history, "message": "success"})
}

// GetSummary 是处理检索统计查询的 Gin 处理函数。
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	daysBack, _ := strconv.Atoi(c.DefaultQuery("daysBack", "30"))

	summary, err := h.analyticsService.GetSummary(middleware.UserID(c), daysBack)
	if err != nil {
		log.Errorf("[AnalyticsHandler] 查询检索统计失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询检索统计失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": summary, "message": "success"})
}

// GetPopularQueries 是处理热门查询列表的 Gin 处理函数。
func (h *AnalyticsHandler) GetPopularQueries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	daysBack, _ := strconv.Atoi(c.DefaultQuery("daysBack", "7"))

	popular, err := h.analyticsService.GetPopularQueries(c.Request.Context(), limit, daysBack)
	if err != nil {
		log.Errorf("[AnalyticsHandler] 查询热门查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询热门查询失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": popular, "message": "success"})
}

// saveQueryRequest 是保存查询的请求体。
type saveQueryRequest struct {
	Name    string                   `json:"name" binding:"required"`
	Query   string                   `json:"query" binding:"required"`
	Filters *model.SavedQueryFilters `json:"filters"`
}

// SaveQuery 是处理保存查询创建的 Gin 处理函数。
func (h *AnalyticsHandler) SaveQuery(c *gin.Context) {
	var req saveQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	dto, err := h.analyticsService.SaveQuery(middleware.UserID(c), req.Name, req.Query, req.Filters)
	if err != nil {
		if errors.Is(err, service.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[AnalyticsHandler] 保存查询失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存查询失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": dto, "message": "success"})
}

// ListSavedQueries 是处理保存查询列表的 Gin 处理函数。
func (h *AnalyticsHandler) ListSavedQueries(c *gin.Context) {
	dtos, err := h.analyticsService.ListSavedQueries(middleware.UserID(c))
	if err != nil {
		log.Errorf("[AnalyticsHandler] 查询保存的查询列表失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": dtos, "message": "success"})
}

// UseSavedQuery 是处理保存查询复用计数的 Gin 处理函数。
func (h *AnalyticsHandler) UseSavedQuery(c *gin.Context) {
	queryID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询 ID"})
		return
	}

	updated, err := h.analyticsService.UpdateUsage(queryID)
	if err != nil {
		log.Errorf("[AnalyticsHandler] 更新保存查询使用次数失败, id=%d, error: %v", queryID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新使用次数失败"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "保存的查询不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": nil, "message": "success"})
}

// DeleteSavedQuery 是处理保存查询删除的 Gin 处理函数。
// 只有所有者可以删除；非所有者与不存在的记录得到相同的 404。
func (h *AnalyticsHandler) DeleteSavedQuery(c *gin.Context) {
	queryID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询 ID"})
		return
	}

	deleted, err := h.analyticsService.DeleteSavedQuery(queryID, middleware.UserID(c))
	if err != nil {
		log.Errorf("[AnalyticsHandler] 删除保存的查询失败, id=%d, error: %v", queryID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除查询失败"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "保存的查询不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": nil, "message": "success"})
}

// parseUintParam 解析路径参数中的无符号整数 ID。
func parseUintParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
