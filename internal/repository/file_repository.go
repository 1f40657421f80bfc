// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"time"

	"field-smart-go/internal/model"

	"gorm.io/gorm"
)

// FileRepository 接口定义了文件记录的数据持久化操作。
type FileRepository interface {
	Create(record *model.File) error
	FindByID(fileID uint) (*model.File, error)
	FindByIDs(fileIDs []uint) ([]*model.File, error)
	FindByUserID(userID uint) ([]model.File, error)
	FindUnprocessed(limit int) ([]model.File, error)
	MarkProcessed(fileID uint) error
	MarkUnprocessed(fileID uint) error
	Delete(fileID uint) error
}

// fileRepository 是 FileRepository 接口的 GORM 实现。
type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建一个新的 FileRepository 实例。
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

// Create 在数据库中创建一个新的文件记录。
func (r *fileRepository) Create(record *model.File) error {
	return r.db.Create(record).Error
}

// FindByID 根据文件 ID 检索文件记录。
func (r *fileRepository) FindByID(fileID uint) (*model.File, error) {
	var record model.File
	if err := r.db.First(&record, fileID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByIDs 批量检索文件记录，用于组装检索结果中的文件名。
func (r *fileRepository) FindByIDs(fileIDs []uint) ([]*model.File, error) {
	var records []*model.File
	if len(fileIDs) == 0 {
		return records, nil
	}
	err := r.db.Where("id IN ?", fileIDs).Find(&records).Error
	return records, err
}

// FindByUserID 查找指定用户上传的所有文件。
func (r *fileRepository) FindByUserID(userID uint) ([]model.File, error) {
	var files []model.File
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&files).Error
	return files, err
}

// FindUnprocessed 查找尚未处理的文件，limit <= 0 时不限数量。
func (r *fileRepository) FindUnprocessed(limit int) ([]model.File, error) {
	var files []model.File
	q := r.db.Where("is_processed = ?", false).Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&files).Error
	return files, err
}

// MarkProcessed 将文件标记为已处理并记录处理时间。
func (r *fileRepository) MarkProcessed(fileID uint) error {
	now := time.Now()
	return r.db.Model(&model.File{}).Where("id = ?", fileID).
		Updates(map[string]interface{}{"is_processed": true, "processed_at": &now}).Error
}

// MarkUnprocessed 清除文件的已处理标记（重新处理前调用）。
func (r *fileRepository) MarkUnprocessed(fileID uint) error {
	return r.db.Model(&model.File{}).Where("id = ?", fileID).
		Updates(map[string]interface{}{"is_processed": false, "processed_at": nil}).Error
}

// Delete 删除一个文件记录。
// 分块记录需要由调用方显式级联删除（见 ChunkRepository.DeleteByFileID）。
func (r *fileRepository) Delete(fileID uint) error {
	return r.db.Delete(&model.File{}, fileID).Error
}
