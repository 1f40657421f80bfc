package model

import "fmt"

// DocumentChunk 对应于数据库中的 document_chunks 表。
// 分块在文件处理时批量创建，创建后不可变，随所属文件级联删除。
// chunk_index 在同一文件内从 0 开始且连续。
type DocumentChunk struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID       uint   `gorm:"index;not null;column:file_id" json:"fileId"`
	ChunkIndex   int    `gorm:"not null;column:chunk_index" json:"chunkIndex"`
	Content      string `gorm:"type:text;not null" json:"content"`
	WordCount    int    `gorm:"not null;column:word_count" json:"wordCount"`
	Length       int    `gorm:"not null" json:"length"`
	ModelVersion string `gorm:"type:varchar(50);column:model_version" json:"modelVersion"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// ChunkMetadata 是分块的结构化元数据，随检索结果一并返回。
type ChunkMetadata struct {
	WordCount  int `json:"wordCount"`
	Length     int `json:"length"`
	ChunkIndex int `json:"chunkIndex"`
}

// Metadata 返回该分块的结构化元数据。
func (c *DocumentChunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		WordCount:  c.WordCount,
		Length:     c.Length,
		ChunkIndex: c.ChunkIndex,
	}
}

// ChunkDTO 是返回给前端的分块视图，不包含向量。
type ChunkDTO struct {
	ID         uint          `json:"id"`
	FileID     uint          `json:"fileId"`
	ChunkIndex int           `json:"chunkIndex"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// EsChunkDocument 定义了存储在 Elasticsearch 中的分块文档结构。
type EsChunkDocument struct {
	ChunkUID     string    `json:"chunk_uid"` // 唯一标识，fileID_chunkIndex
	FileID       uint      `json:"file_id"`
	ChunkIndex   int       `json:"chunk_index"`
	Content      string    `json:"content"`
	Embedding    []float32 `json:"embedding"` // 分块内容的向量表示
	WordCount    int       `json:"word_count"`
	Length       int       `json:"length"`
	ModelVersion string    `json:"model_version"`
	UserID       uint      `json:"user_id"`
}

// ChunkUID 根据文件 ID 与分块序号生成 ES 文档的唯一标识。
func ChunkUID(fileID uint, chunkIndex int) string {
	return fmt.Sprintf("%d_%d", fileID, chunkIndex)
}

// SearchResultDTO 定义了返回给前端的单条检索结果。
type SearchResultDTO struct {
	FileID     uint          `json:"fileId"`
	FileName   string        `json:"fileName"`
	ChunkIndex int           `json:"chunkIndex"`
	Content    string        `json:"content"`
	Similarity float64       `json:"similarity"` // 归一化到 [0,1] 的余弦相似度
	Metadata   ChunkMetadata `json:"metadata"`
}
