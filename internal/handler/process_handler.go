package handler

import (
	"context"
	"errors"
	"net/http"

	"field-smart-go/internal/pipeline"
	"field-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// FileProcessor 是处理器对文件处理管道的依赖。
type FileProcessor interface {
	ProcessFile(ctx context.Context, fileID uint, opts pipeline.Options) (int, error)
	ReprocessFile(ctx context.Context, fileID uint, opts pipeline.Options) (int, error)
	ProcessBatch(ctx context.Context, fileIDs []uint, opts pipeline.Options) ([]pipeline.Result, error)
}

// ProcessHandler 结构体定义了文件处理相关的处理器。
type ProcessHandler struct {
	processor FileProcessor
}

// NewProcessHandler 创建一个新的 ProcessHandler 实例。
func NewProcessHandler(processor FileProcessor) *ProcessHandler {
	return &ProcessHandler{processor: processor}
}

// processRequest 是单文件处理的请求体。
type processRequest struct {
	FileID    uint             `json:"fileId" binding:"required"`
	Options   pipeline.Options `json:"options"`
	Reprocess bool             `json:"reprocess"`
}

// ProcessFile 是处理单文件同步处理请求的 Gin 处理函数。
// reprocess 为 true 时先清空既有分块再重建。
func (h *ProcessHandler) ProcessFile(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	var (
		count int
		err   error
	)
	if req.Reprocess {
		count, err = h.processor.ReprocessFile(c.Request.Context(), req.FileID, req.Options)
	} else {
		count, err = h.processor.ProcessFile(c.Request.Context(), req.FileID, req.Options)
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		log.Errorf("[ProcessHandler] 文件处理失败, FileID: %d, error: %v", req.FileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "文件处理失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{
		"fileId":      req.FileID,
		"chunksCount": count,
	}, "message": "success"})
}

// batchProcessRequest 是批量处理的请求体。fileIds 为空时处理全部未处理文件。
type batchProcessRequest struct {
	FileIDs []uint           `json:"fileIds"`
	Options pipeline.Options `json:"options"`
}

// batchResultDTO 是批量处理中单个文件的对外结果。
type batchResultDTO struct {
	FileID      uint   `json:"fileId"`
	Success     bool   `json:"success"`
	ChunksCount int    `json:"chunksCount,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ProcessBatch 是处理批量文件处理请求的 Gin 处理函数。
// 单个文件的失败记录在对应结果中，整体响应仍为 200；
// 待处理文件的枚举失败则映射为 500。
func (h *ProcessHandler) ProcessBatch(c *gin.Context) {
	var req batchProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	results, err := h.processor.ProcessBatch(c.Request.Context(), req.FileIDs, req.Options)
	if err != nil {
		log.Errorf("[ProcessHandler] 批量处理失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "批量处理失败"})
		return
	}

	dtos := make([]batchResultDTO, 0, len(results))
	processed := 0
	for _, r := range results {
		dto := batchResultDTO{FileID: r.FileID, Success: r.Success, ChunksCount: r.ChunksCount}
		if r.Err != nil {
			dto.Error = r.Err.Error()
		}
		if r.Success {
			processed++
		}
		dtos = append(dtos, dto)
	}

	log.Infof("[ProcessHandler] 批量处理完成, 共 %d 个文件, 成功 %d 个", len(dtos), processed)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{
		"results":   dtos,
		"processed": processed,
		"failed":    len(dtos) - processed,
	}, "message": "success"})
}
