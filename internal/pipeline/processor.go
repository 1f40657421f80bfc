// Package pipeline 定义了文件处理的核心流程：
// 校验 → 文本提取 → 切块 → 向量化 → 持久化 → 标记已处理。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"field-smart-go/internal/chunker"
	"field-smart-go/internal/config"
	"field-smart-go/internal/model"
	"field-smart-go/internal/repository"
	"field-smart-go/pkg/embedding"
	"field-smart-go/pkg/log"
	"field-smart-go/pkg/tasks"
	"field-smart-go/pkg/tika"

	"gorm.io/gorm"
)

// 批量处理的文件数上限缺省值，约束单次调用的执行时间。
// 配置中的 batch_limit 可以覆盖它。
const defaultBatchLimit = 10

// ErrFileNotFound 表示待处理的文件记录不存在。
var ErrFileNotFound = errors.New("文件不存在")

// ChunkIndex 是处理管道对向量索引的依赖。
type ChunkIndex interface {
	IndexChunk(ctx context.Context, doc model.EsChunkDocument) error
	DeleteByFileID(ctx context.Context, fileID uint) error
}

// TextExtractor 是处理管道对文本提取服务的依赖。
type TextExtractor interface {
	ExtractText(fileReader io.Reader, mimeType string) (string, error)
}

// ObjectStore 是处理管道对对象存储的依赖。
type ObjectStore interface {
	GetObject(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// Options 是单个文件处理的可调参数，零值字段回落到配置默认值。
type Options struct {
	ChunkSize    int `json:"chunkSize"`
	ChunkOverlap int `json:"chunkOverlap"`
	MaxChunks    int `json:"maxChunks"`
}

// Result 是批量处理中单个文件的处理结果。
// 失败被捕获并记录在 Err 中，不向外传播，保证一个文件的失败不中断整批。
type Result struct {
	FileID      uint  `json:"fileId"`
	Success     bool  `json:"success"`
	ChunksCount int   `json:"chunksCount,omitempty"`
	Err         error `json:"-"`
}

// Processor 封装了文件处理的所有依赖和逻辑。
type Processor struct {
	extractor    TextExtractor
	embedder     embedding.Client
	objects      ObjectStore
	fileRepo     repository.FileRepository
	chunkRepo    repository.ChunkRepository
	index        ChunkIndex
	cfg          config.ProcessingConfig
	modelVersion string
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	extractor TextExtractor,
	embedder embedding.Client,
	objects ObjectStore,
	fileRepo repository.FileRepository,
	chunkRepo repository.ChunkRepository,
	index ChunkIndex,
	procCfg config.ProcessingConfig,
	modelVersion string,
) *Processor {
	return &Processor{
		extractor:    extractor,
		embedder:     embedder,
		objects:      objects,
		fileRepo:     fileRepo,
		chunkRepo:    chunkRepo,
		index:        index,
		cfg:          procCfg,
		modelVersion: modelVersion,
	}
}

// ProcessFile 处理单个文件并返回生成的分块数。
// 任一步骤失败都会清理本次已写入的分块（包括数据库与索引），
// 文件保持未处理状态，整个文件的处理是全有或全无的。
func (p *Processor) ProcessFile(ctx context.Context, fileID uint, opts Options) (int, error) {
	opts = p.withDefaults(opts)
	log.Infof("[Processor] 开始处理文件, FileID: %d, chunkSize: %d, overlap: %d", fileID, opts.ChunkSize, opts.ChunkOverlap)

	// 1. 加载文件记录
	file, err := p.fileRepo.FindByID(fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrFileNotFound
		}
		return 0, fmt.Errorf("加载文件记录失败: %w", err)
	}

	// 2. MIME 类型能力检查
	if !tika.CanProcess(file.MimeType) {
		return 0, fmt.Errorf("不支持的文件类型: %s", file.MimeType)
	}

	// 3. 提取文本
	text, err := p.extractContent(ctx, file)
	if err != nil {
		return 0, err
	}

	// 4. 文本切块，超出上限时截断
	chunks := chunker.Chunk(text, opts.ChunkSize, opts.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, errors.New("未生成任何文本分块")
	}
	if opts.MaxChunks > 0 && len(chunks) > opts.MaxChunks {
		log.Warnf("[Processor] 分块数 %d 超过上限 %d, 截断处理, FileID: %d", len(chunks), opts.MaxChunks, fileID)
		chunks = chunks[:opts.MaxChunks]
	}
	log.Infof("[Processor] 文本分块完成, 共 %d 个分块, FileID: %d", len(chunks), fileID)

	// 5. 批量向量化。失败时尚未写入任何分块，文件保持未处理。
	vectors, err := p.embedder.CreateEmbeddings(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("分块向量化失败: %w", err)
	}

	// 处理前清理该文件既有的分块记录，保证重复投递时幂等
	if err := p.cleanupChunks(ctx, fileID); err != nil {
		return 0, err
	}

	// 6. 持久化分块并写入向量索引；任一写入失败则回滚本文件的全部分块
	if err := p.persistChunks(ctx, file, chunks, vectors); err != nil {
		if cleanupErr := p.cleanupChunks(ctx, fileID); cleanupErr != nil {
			log.Errorf("[Processor] 回滚分块失败, FileID: %d, Error: %v", fileID, cleanupErr)
		}
		return 0, err
	}

	// 7. 标记文件已处理
	if err := p.fileRepo.MarkProcessed(fileID); err != nil {
		if cleanupErr := p.cleanupChunks(ctx, fileID); cleanupErr != nil {
			log.Errorf("[Processor] 回滚分块失败, FileID: %d, Error: %v", fileID, cleanupErr)
		}
		return 0, fmt.Errorf("标记文件已处理失败: %w", err)
	}

	log.Infof("[Processor] 文件处理成功完成, FileID: %d, 分块数: %d", fileID, len(chunks))
	return len(chunks), nil
}

// ReprocessFile 先删除文件的全部既有分块，再重新执行同样的处理流程。
func (p *Processor) ReprocessFile(ctx context.Context, fileID uint, opts Options) (int, error) {
	log.Infof("[Processor] 重新处理文件, FileID: %d", fileID)
	if _, err := p.fileRepo.FindByID(fileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrFileNotFound
		}
		return 0, fmt.Errorf("加载文件记录失败: %w", err)
	}
	if err := p.cleanupChunks(ctx, fileID); err != nil {
		return 0, err
	}
	if err := p.fileRepo.MarkUnprocessed(fileID); err != nil {
		return 0, fmt.Errorf("清除已处理标记失败: %w", err)
	}
	return p.ProcessFile(ctx, fileID, opts)
}

// ProcessBatch 顺序处理一组文件，单个文件的失败记录在对应 Result 中，不中断整批。
// fileIDs 为空时处理全部未处理且类型可提取的文件，此时枚举失败作为错误返回，
// 调用方能区分“没有待处理文件”和“数据库不可用”。
func (p *Processor) ProcessBatch(ctx context.Context, fileIDs []uint, opts Options) ([]Result, error) {
	if len(fileIDs) == 0 {
		unprocessed, err := p.fileRepo.FindUnprocessed(0)
		if err != nil {
			return nil, fmt.Errorf("查询未处理文件失败: %w", err)
		}
		for _, f := range unprocessed {
			if tika.CanProcess(f.MimeType) {
				fileIDs = append(fileIDs, f.ID)
			}
		}
	}
	limit := p.cfg.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	if len(fileIDs) > limit {
		log.Warnf("[Processor] 批量处理数量 %d 超过上限, 截断为 %d", len(fileIDs), limit)
		fileIDs = fileIDs[:limit]
	}

	results := make([]Result, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		count, err := p.ProcessFile(ctx, fileID, opts)
		if err != nil {
			log.Errorf("[Processor] 批量处理中文件失败, FileID: %d, Error: %v", fileID, err)
			results = append(results, Result{FileID: fileID, Success: false, Err: err})
			continue
		}
		results = append(results, Result{FileID: fileID, Success: true, ChunksCount: count})
	}
	return results, nil
}

// ProcessTask 适配 Kafka 消费者，使用配置默认参数处理任务指向的文件。
func (p *Processor) ProcessTask(ctx context.Context, task tasks.FileProcessingTask) error {
	_, err := p.ProcessFile(ctx, task.FileID, Options{})
	return err
}

// extractContent 从对象存储取回文件内容并提取文本。
// 纯文本类型直接使用原始内容，其余类型交给 Tika。
func (p *Processor) extractContent(ctx context.Context, file *model.File) (string, error) {
	object, err := p.objects.GetObject(ctx, file.ObjectName)
	if err != nil {
		return "", fmt.Errorf("从对象存储下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		return "", fmt.Errorf("读取对象存储内容失败: %w", err)
	}
	if size == 0 {
		return "", errors.New("文件内容为空")
	}

	var text string
	if tika.IsPlainText(file.MimeType) {
		text = buf.String()
	} else {
		text, err = p.extractor.ExtractText(bytes.NewReader(buf.Bytes()), file.MimeType)
		if err != nil {
			return "", fmt.Errorf("提取文本失败: %w", err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 文本提取成功, FileID: %d, 内容长度: %d 字符", file.ID, utf8.RuneCountInString(text))
	return text, nil
}

// persistChunks 将分块连同向量写入数据库与向量索引。
func (p *Processor) persistChunks(ctx context.Context, file *model.File, chunks []string, vectors [][]float32) error {
	records := make([]*model.DocumentChunk, 0, len(chunks))
	for i, content := range chunks {
		records = append(records, &model.DocumentChunk{
			FileID:       file.ID,
			ChunkIndex:   i,
			Content:      content,
			WordCount:    len(strings.Fields(content)),
			Length:       utf8.RuneCountInString(content),
			ModelVersion: p.modelVersion,
		})
	}
	if err := p.chunkRepo.BatchCreate(records); err != nil {
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}

	for i, record := range records {
		doc := model.EsChunkDocument{
			ChunkUID:     model.ChunkUID(file.ID, record.ChunkIndex),
			FileID:       file.ID,
			ChunkIndex:   record.ChunkIndex,
			Content:      record.Content,
			Embedding:    vectors[i],
			WordCount:    record.WordCount,
			Length:       record.Length,
			ModelVersion: record.ModelVersion,
			UserID:       file.UserID,
		}
		if err := p.index.IndexChunk(ctx, doc); err != nil {
			return fmt.Errorf("索引分块 %d 失败: %w", record.ChunkIndex, err)
		}
	}
	return nil
}

// cleanupChunks 删除文件在数据库与向量索引中的全部分块。
func (p *Processor) cleanupChunks(ctx context.Context, fileID uint) error {
	if err := p.chunkRepo.DeleteByFileID(fileID); err != nil {
		return fmt.Errorf("清理分块记录失败: %w", err)
	}
	if err := p.index.DeleteByFileID(ctx, fileID); err != nil {
		return fmt.Errorf("清理分块索引失败: %w", err)
	}
	return nil
}

func (p *Processor) withDefaults(opts Options) Options {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = p.cfg.ChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = p.cfg.ChunkOverlap
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = p.cfg.MaxChunks
	}
	return opts
}
