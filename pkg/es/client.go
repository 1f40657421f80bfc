// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"field-smart-go/internal/config"
	"field-smart-go/internal/model"
	"field-smart-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client 封装了分块向量索引的全部 Elasticsearch 操作。
type Client struct {
	es        *elasticsearch.Client
	indexName string
}

// ChunkHit 是一次 kNN 检索命中的分块文档及其得分。
// 余弦相似度下 ES 的 _score = (1 + cosine) / 2，天然落在 [0,1] 区间。
type ChunkHit struct {
	Source model.EsChunkDocument
	Score  float64
}

// NewClient 初始化 Elasticsearch 客户端并确保分块索引存在。
// dims 是向量维度，必须与 Embedding 服务返回的维度一致。
func NewClient(esCfg config.ElasticsearchConfig, dims int) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	raw, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{es: raw, indexName: esCfg.IndexName}
	if err := c.createIndexIfNotExists(dims); err != nil {
		return nil, err
	}
	return c, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它。
func (c *Client) createIndexIfNotExists(dims int) error {
	res, err := c.es.Indices.Exists([]string{c.indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", c.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", c.indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// dense_vector 使用 cosine 相似度，维度跟随 Embedding 配置
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"chunk_uid": { "type": "keyword" },
				"file_id": { "type": "long" },
				"chunk_index": { "type": "integer" },
				"content": { "type": "text" },
				"embedding": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"word_count": { "type": "integer" },
				"length": { "type": "integer" },
				"model_version": { "type": "keyword" },
				"user_id": { "type": "long" }
			}
		}
	}`, dims)

	res, err = c.es.Indices.Create(
		c.indexName,
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", c.indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", c.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", c.indexName)
	return nil
}

// IndexChunk 将单个分块文档索引到 Elasticsearch。
func (c *Client) IndexChunk(ctx context.Context, doc model.EsChunkDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.indexName,
		DocumentID: doc.ChunkUID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引分块文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index chunk document")
	}
	return nil
}

// KnnSearch 对分块索引执行 kNN 向量检索，可选按文件 ID 预过滤。
// 返回按得分降序排列的命中，数量不超过 k。
func (c *Client) KnnSearch(ctx context.Context, vector []float32, k int, fileIDs []uint) ([]ChunkHit, error) {
	knn := map[string]interface{}{
		"field":          "embedding",
		"query_vector":   vector,
		"k":              k,
		"num_candidates": k * 10,
	}
	if len(fileIDs) > 0 {
		knn["filter"] = map[string]interface{}{
			"terms": map[string]interface{}{"file_id": fileIDs},
		}
	}
	esQuery := map[string]interface{}{
		"knn":  knn,
		"size": k,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.indexName),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("Elasticsearch 返回错误, status: %s", res.Status())
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsChunkDocument `json:"_source"`
				Score  float64               `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]ChunkHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		hits = append(hits, ChunkHit{Source: hit.Source, Score: hit.Score})
	}
	return hits, nil
}

// DeleteByFileID 删除某个文件的全部分块文档。
// 文件删除与重新处理都依赖它来维持“分块随文件级联删除”的不变式。
func (c *Client) DeleteByFileID(ctx context.Context, fileID uint) error {
	query := fmt.Sprintf(`{"query": {"term": {"file_id": %d}}}`, fileID)

	res, err := c.es.DeleteByQuery(
		[]string{c.indexName},
		strings.NewReader(query),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按文件 ID 删除 Elasticsearch 分块出错: %s", res.String())
		return errors.New("failed to delete chunk documents")
	}
	return nil
}
