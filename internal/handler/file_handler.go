package handler

import (
	"errors"
	"net/http"

	"field-smart-go/internal/middleware"
	"field-smart-go/internal/service"
	"field-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// FileHandler 结构体定义了文件上传与管理相关的处理器。
type FileHandler struct {
	documentService service.DocumentService
}

// NewFileHandler 创建一个新的 FileHandler 实例。
func NewFileHandler(documentService service.DocumentService) *FileHandler {
	return &FileHandler{documentService: documentService}
}

// Upload 是处理文件上传的 Gin 处理函数。
// 文件写入对象存储并创建记录后即返回，解析与向量化由消费者异步完成。
func (h *FileHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求中缺少文件"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[FileHandler] 打开上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer src.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	record, validation, err := h.documentService.SaveUpload(
		c.Request.Context(), fileHeader.Filename, mimeType, fileHeader.Size, src, middleware.UserID(c))
	if err != nil {
		log.Errorf("[FileHandler] 保存上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}
	if record == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{
		"file":     record,
		"warnings": validation.Warnings,
	}, "message": "success"})
}

// ListFiles 是处理文件列表查询的 Gin 处理函数。
func (h *FileHandler) ListFiles(c *gin.Context) {
	files, err := h.documentService.ListFiles(middleware.UserID(c))
	if err != nil {
		log.Errorf("[FileHandler] 查询文件列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询文件列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": files, "message": "success"})
}

// ListChunks 是处理文件分块列表查询的 Gin 处理函数。
func (h *FileHandler) ListChunks(c *gin.Context) {
	fileID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的文件 ID"})
		return
	}

	chunks, err := h.documentService.ListChunks(fileID, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		log.Errorf("[FileHandler] 查询文件分块失败, FileID: %d, error: %v", fileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询文件分块失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": chunks, "message": "success"})
}

// DeleteFile 是处理文件删除的 Gin 处理函数。
func (h *FileHandler) DeleteFile(c *gin.Context) {
	fileID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的文件 ID"})
		return
	}

	if err := h.documentService.DeleteFile(c.Request.Context(), fileID, middleware.UserID(c), middleware.Role(c)); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		log.Errorf("[FileHandler] 删除文件失败, FileID: %d, error: %v", fileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除文件失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": nil, "message": "success"})
}
