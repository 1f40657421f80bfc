package repository

import (
	"time"

	"field-smart-go/internal/model"

	"gorm.io/gorm"
)

// SavedQueryRepository 定义了对 saved_queries 表的数据操作接口。
type SavedQueryRepository interface {
	Create(record *model.SavedQuery) error
	FindByID(id uint) (*model.SavedQuery, error)
	FindByUserID(userID uint) ([]model.SavedQuery, error)
	IncrementUsage(id uint) error
	DeleteByIDAndUserID(id, userID uint) (int64, error)
}

type savedQueryRepository struct {
	db *gorm.DB
}

// NewSavedQueryRepository 创建一个新的 SavedQueryRepository 实例。
func NewSavedQueryRepository(db *gorm.DB) SavedQueryRepository {
	return &savedQueryRepository{db: db}
}

// Create 创建一条保存的查询。
func (r *savedQueryRepository) Create(record *model.SavedQuery) error {
	return r.db.Create(record).Error
}

// FindByID 根据 ID 检索保存的查询。
func (r *savedQueryRepository) FindByID(id uint) (*model.SavedQuery, error) {
	var record model.SavedQuery
	if err := r.db.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByUserID 返回用户保存的全部查询，最近创建的在前。
func (r *savedQueryRepository) FindByUserID(userID uint) ([]model.SavedQuery, error) {
	var records []model.SavedQuery
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&records).Error
	return records, err
}

// IncrementUsage 在数据库层原子地递增 use_count 并刷新 last_used_at，
// 两个会话并发复用同一条查询时也不会丢失计数。
func (r *savedQueryRepository) IncrementUsage(id uint) error {
	now := time.Now()
	result := r.db.Model(&model.SavedQuery{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"use_count":    gorm.Expr("use_count + 1"),
			"last_used_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByIDAndUserID 仅删除归属于 userID 的记录，返回受影响的行数。
// 所有权校验由 WHERE 条件保证：非所有者删除时行数为 0。
func (r *savedQueryRepository) DeleteByIDAndUserID(id, userID uint) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.SavedQuery{})
	return result.RowsAffected, result.Error
}
