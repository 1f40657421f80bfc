package repository

import (
	"field-smart-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 document_chunks 表的数据操作接口。
type ChunkRepository interface {
	BatchCreate(chunks []*model.DocumentChunk) error
	FindByFileID(fileID uint) ([]*model.DocumentChunk, error)
	DeleteByFileID(fileID uint) error
	CountByFileID(fileID uint) (int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// BatchCreate 批量创建文档分块记录。
func (r *chunkRepository) BatchCreate(chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error // 每100条记录一批
}

// FindByFileID 查找某个文件的全部分块，按 chunk_index 升序。
func (r *chunkRepository) FindByFileID(fileID uint) ([]*model.DocumentChunk, error) {
	var chunks []*model.DocumentChunk
	err := r.db.Where("file_id = ?", fileID).Order("chunk_index asc").Find(&chunks).Error
	return chunks, err
}

// DeleteByFileID 删除某个文件的全部分块记录。
func (r *chunkRepository) DeleteByFileID(fileID uint) error {
	return r.db.Where("file_id = ?", fileID).Delete(&model.DocumentChunk{}).Error
}

// CountByFileID 统计某个文件的分块数量。
func (r *chunkRepository) CountByFileID(fileID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.DocumentChunk{}).Where("file_id = ?", fileID).Count(&count).Error
	return count, err
}
