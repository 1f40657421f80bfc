// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// File 定义了 files 表的 ORM 模型。
// 它记录了每个上传文件的元数据以及是否已完成切块向量化。
type File struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName    string     `gorm:"type:varchar(255);not null" json:"fileName"`
	MimeType    string     `gorm:"type:varchar(100);not null" json:"mimeType"`
	SizeBytes   int64      `gorm:"not null" json:"sizeBytes"`
	ObjectName  string     `gorm:"type:varchar(255);not null" json:"objectName"` // MinIO 中的对象名
	UserID      uint       `gorm:"index;not null" json:"userId"`
	IsProcessed bool       `gorm:"not null;default:false" json:"isProcessed"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	ProcessedAt *time.Time `gorm:"default:null" json:"processedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (File) TableName() string {
	return "files"
}
