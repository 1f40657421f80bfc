package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"field-smart-go/internal/model"
	"field-smart-go/internal/pipeline"
	"field-smart-go/internal/repository"
	"field-smart-go/pkg/log"
	"field-smart-go/pkg/tasks"
	"field-smart-go/pkg/token"

	"gorm.io/gorm"
)

// objectStorage 是文档服务对对象存储的依赖。
type objectStorage interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, objectName string) error
}

// chunkIndexCleaner 是文档服务对向量索引的依赖，仅用于级联删除。
type chunkIndexCleaner interface {
	DeleteByFileID(ctx context.Context, fileID uint) error
}

// taskPublisher 将文件处理任务投递到消息队列。
type taskPublisher interface {
	PublishFileTask(task tasks.FileProcessingTask) error
}

// DocumentService 接口定义了文件的上传、列举与删除操作。
type DocumentService interface {
	SaveUpload(ctx context.Context, fileName, mimeType string, size int64, reader io.Reader, userID uint) (*model.File, *pipeline.ValidationResult, error)
	ListFiles(userID uint) ([]model.File, error)
	ListChunks(fileID, userID uint, role string) ([]model.ChunkDTO, error)
	DeleteFile(ctx context.Context, fileID, userID uint, role string) error
}

type documentService struct {
	fileRepo    repository.FileRepository
	chunkRepo   repository.ChunkRepository
	index       chunkIndexCleaner
	objects     objectStorage
	publisher   taskPublisher
	maxFileSize int64
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	fileRepo repository.FileRepository,
	chunkRepo repository.ChunkRepository,
	index chunkIndexCleaner,
	objects objectStorage,
	publisher taskPublisher,
	maxFileSize int64,
) DocumentService {
	return &documentService{
		fileRepo:    fileRepo,
		chunkRepo:   chunkRepo,
		index:       index,
		objects:     objects,
		publisher:   publisher,
		maxFileSize: maxFileSize,
	}
}

// SaveUpload 校验并保存上传的文件，然后投递异步处理任务。
// 校验不通过时返回校验结果而不是错误，由处理器转为 400 响应。
func (s *documentService) SaveUpload(ctx context.Context, fileName, mimeType string, size int64, reader io.Reader, userID uint) (*model.File, *pipeline.ValidationResult, error) {
	validation := pipeline.ValidateFile(fileName, mimeType, size, s.maxFileSize)
	if !validation.IsValid {
		return nil, &validation, nil
	}

	objectName := fmt.Sprintf("uploads/%d/%d_%s", userID, time.Now().UnixNano(), fileName)
	if err := s.objects.PutObject(ctx, objectName, reader, size, mimeType); err != nil {
		return nil, nil, fmt.Errorf("保存文件到对象存储失败: %w", err)
	}

	record := &model.File{
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		ObjectName: objectName,
		UserID:     userID,
	}
	if err := s.fileRepo.Create(record); err != nil {
		// 记录创建失败时清理已写入的对象，避免孤儿对象
		if rmErr := s.objects.RemoveObject(ctx, objectName); rmErr != nil {
			log.Warnf("[DocumentService] 清理对象失败: %s, err=%v", objectName, rmErr)
		}
		return nil, nil, fmt.Errorf("创建文件记录失败: %w", err)
	}

	if err := s.publisher.PublishFileTask(tasks.FileProcessingTask{
		FileID:     record.ID,
		FileName:   record.FileName,
		ObjectName: record.ObjectName,
		MimeType:   record.MimeType,
		UserID:     record.UserID,
	}); err != nil {
		// 投递失败不回滚上传，文件保持未处理，可由批量处理接口补偿
		log.Warnf("[DocumentService] 投递文件处理任务失败, FileID=%d: %v", record.ID, err)
	}

	log.Infof("[DocumentService] 文件上传成功, FileID=%d, FileName=%s", record.ID, record.FileName)
	return record, &validation, nil
}

// ListFiles 返回用户上传的文件列表。
func (s *documentService) ListFiles(userID uint) ([]model.File, error) {
	return s.fileRepo.FindByUserID(userID)
}

// ListChunks 返回文件的全部分块，按 chunk_index 升序。
// 所有权规则与删除一致：所有者或管理角色可见，其余视同不存在。
func (s *documentService) ListChunks(fileID, userID uint, role string) ([]model.ChunkDTO, error) {
	file, err := s.fileRepo.FindByID(fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !canAccessFile(file, userID, role) {
		return nil, ErrNotFound
	}

	chunks, err := s.chunkRepo.FindByFileID(fileID)
	if err != nil {
		return nil, fmt.Errorf("查询分块记录失败: %w", err)
	}
	dtos := make([]model.ChunkDTO, 0, len(chunks))
	for _, chunk := range chunks {
		dtos = append(dtos, model.ChunkDTO{
			ID:         chunk.ID,
			FileID:     chunk.FileID,
			ChunkIndex: chunk.ChunkIndex,
			Content:    chunk.Content,
			Metadata:   chunk.Metadata(),
		})
	}
	return dtos, nil
}

// DeleteFile 删除文件及其全部派生数据。
// 分块不依赖数据库级联，而是在这里显式删除：分块表、向量索引、
// 对象存储中的原始文件，最后才是文件记录本身。
func (s *documentService) DeleteFile(ctx context.Context, fileID, userID uint, role string) error {
	file, err := s.fileRepo.FindByID(fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !canAccessFile(file, userID, role) {
		// 与 not-found 同样的对外表现，不暴露他人文件的存在
		return ErrNotFound
	}

	chunkCount, err := s.chunkRepo.CountByFileID(fileID)
	if err != nil {
		return fmt.Errorf("统计分块记录失败: %w", err)
	}

	if err := s.chunkRepo.DeleteByFileID(fileID); err != nil {
		return fmt.Errorf("删除分块记录失败: %w", err)
	}
	if err := s.index.DeleteByFileID(ctx, fileID); err != nil {
		return fmt.Errorf("删除分块索引失败: %w", err)
	}
	if err := s.objects.RemoveObject(ctx, file.ObjectName); err != nil {
		log.Warnf("[DocumentService] 删除对象失败: %s, err=%v", file.ObjectName, err)
	}
	if err := s.fileRepo.Delete(fileID); err != nil {
		return fmt.Errorf("删除文件记录失败: %w", err)
	}

	log.Infof("[DocumentService] 文件删除成功, FileID=%d, 级联删除分块 %d 个", fileID, chunkCount)
	return nil
}

// canAccessFile 判断用户是否可以访问某个文件：所有者或管理角色。
func canAccessFile(file *model.File, userID uint, role string) bool {
	return file.UserID == userID || role == token.RoleAdmin || role == token.RoleSupervisor
}
