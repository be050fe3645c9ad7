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

	"dead-inside-go/internal/config"
	"dead-inside-go/internal/model"
	"dead-inside-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 归档文档以全文检索 transcript 为主，其余字段用于过滤与展示
	mapping := `{
		"mappings": {
			"properties": {
				"conversation_id": { "type": "keyword" },
				"character_id": { "type": "keyword" },
				"character_name": { "type": "keyword" },
				"title": { "type": "text" },
				"transcript": { "type": "text" },
				"message_count": { "type": "integer" },
				"final_state": { "type": "integer" },
				"ended_at": { "type": "date" }
			}
		}
	}`

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)

	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexArchive 将单个会话归档文档索引到 Elasticsearch。
func IndexArchive(ctx context.Context, indexName string, doc model.ArchiveDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.ConversationID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引会话归档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index archive document")
	}

	return nil
}

// SearchArchive 按关键词在归档 transcript 中检索。
func SearchArchive(ctx context.Context, indexName, query string, size int) ([]model.ArchiveSearchHit, error) {
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"transcript", "title"},
			},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"transcript": map[string]interface{}{},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("归档检索返回错误: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score     float64               `json:"_score"`
				Source    model.ArchiveDocument `json:"_source"`
				Highlight struct {
					Transcript []string `json:"transcript"`
				} `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析归档检索结果失败: %w", err)
	}

	hits := make([]model.ArchiveSearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		snippet := ""
		if len(h.Highlight.Transcript) > 0 {
			snippet = h.Highlight.Transcript[0]
		}
		hits = append(hits, model.ArchiveSearchHit{
			ConversationID: h.Source.ConversationID,
			CharacterName:  h.Source.CharacterName,
			Title:          h.Source.Title,
			Snippet:        snippet,
			FinalState:     h.Source.FinalState,
			Score:          h.Score,
		})
	}
	return hits, nil
}
