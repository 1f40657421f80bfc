package service

import (
	"context"
	"fmt"
	"strings"

	"field-smart-go/internal/config"
	"field-smart-go/internal/model"
	"field-smart-go/internal/repository"
	"field-smart-go/pkg/embedding"
	"field-smart-go/pkg/es"
	"field-smart-go/pkg/log"
)

// SearchOptions 是一次语义检索的参数。
// MatchThreshold 为 nil 时使用配置默认值（0.78）。
type SearchOptions struct {
	Query          string
	MatchThreshold *float64
	MatchCount     int
	FileIDs        []uint
}

// SearchService 接口定义了语义检索操作。
type SearchService interface {
	Search(ctx context.Context, opts SearchOptions) ([]model.SearchResultDTO, float64, error)
}

// chunkSearcher 是检索服务对向量索引的依赖。
type chunkSearcher interface {
	KnnSearch(ctx context.Context, vector []float32, k int, fileIDs []uint) ([]es.ChunkHit, error)
}

type searchService struct {
	embeddingClient embedding.Client
	index           chunkSearcher
	fileRepo        repository.FileRepository
	cfg             config.SearchConfig
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embeddingClient embedding.Client, index chunkSearcher, fileRepo repository.FileRepository, cfg config.SearchConfig) SearchService {
	return &searchService{
		embeddingClient: embeddingClient,
		index:           index,
		fileRepo:        fileRepo,
		cfg:             cfg,
	}
}

// Search 执行一次语义检索，返回按相似度降序的结果与实际生效的阈值。
// 空白查询在任何外部调用之前被拒绝；零命中不是错误。
func (s *searchService) Search(ctx context.Context, opts SearchOptions) ([]model.SearchResultDTO, float64, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, 0, ErrEmptyQuery
	}

	threshold := s.cfg.MatchThreshold
	if opts.MatchThreshold != nil {
		threshold = *opts.MatchThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, 0, fmt.Errorf("%w: matchThreshold 必须位于 [0,1]", ErrInvalidArgument)
	}
	matchCount := opts.MatchCount
	if matchCount <= 0 {
		matchCount = s.cfg.MatchCount
	}

	log.Infof("[SearchService] 开始执行语义检索, query: '%s', threshold: %.2f, count: %d, files: %v",
		opts.Query, threshold, matchCount, opts.FileIDs)

	// 1. 向量化查询，使用与分块相同的向量空间
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, opts.Query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create query embedding: %w", err)
	}

	// 2. kNN 检索，可选按文件 ID 预过滤
	hits, err := s.index.KnnSearch(ctx, queryVector, matchCount, opts.FileIDs)
	if err != nil {
		return nil, 0, err
	}

	// 3. 阈值过滤。结果不足 matchCount 属于正常情况。
	filtered := make([]es.ChunkHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= threshold {
			filtered = append(filtered, hit)
		}
	}
	if len(filtered) == 0 {
		log.Infof("[SearchService] 检索无命中, query: '%s'", opts.Query)
		return []model.SearchResultDTO{}, threshold, nil
	}

	// 4. 批量获取文件名
	uniqueIDs := make(map[uint]struct{})
	for _, hit := range filtered {
		uniqueIDs[hit.Source.FileID] = struct{}{}
	}
	idList := make([]uint, 0, len(uniqueIDs))
	for id := range uniqueIDs {
		idList = append(idList, id)
	}
	fileInfos, err := s.fileRepo.FindByIDs(idList)
	if err != nil {
		return nil, 0, fmt.Errorf("批量查询文件信息失败: %w", err)
	}
	fileNameMap := make(map[uint]string, len(fileInfos))
	for _, info := range fileInfos {
		fileNameMap[info.ID] = info.FileName
	}

	// 5. 组装最终结果
	results := make([]model.SearchResultDTO, 0, len(filtered))
	for _, hit := range filtered {
		fileName := fileNameMap[hit.Source.FileID]
		if fileName == "" {
			log.Warnf("[SearchService] 未找到 FileID %d 对应的文件名", hit.Source.FileID)
			fileName = "未知文件"
		}
		results = append(results, model.SearchResultDTO{
			FileID:     hit.Source.FileID,
			FileName:   fileName,
			ChunkIndex: hit.Source.ChunkIndex,
			Content:    hit.Source.Content,
			Similarity: hit.Score,
			Metadata: model.ChunkMetadata{
				WordCount:  hit.Source.WordCount,
				Length:     hit.Source.Length,
				ChunkIndex: hit.Source.ChunkIndex,
			},
		})
	}

	log.Infof("[SearchService] 检索完成, query: '%s', 返回 %d 条结果", opts.Query, len(results))
	return results, threshold, nil
}
