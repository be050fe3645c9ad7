// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"

	"dead-inside-go/internal/config"
	"dead-inside-go/internal/model"
	"dead-inside-go/pkg/es"
)

// ArchiveService 定义了已结束会话归档的检索接口。
type ArchiveService interface {
	Search(ctx context.Context, query string, size int) ([]model.ArchiveSearchHit, error)
}

type archiveService struct {
	esCfg config.ElasticsearchConfig
}

// NewArchiveService 创建一个新的 ArchiveService 实例。
func NewArchiveService(esCfg config.ElasticsearchConfig) ArchiveService {
	return &archiveService{esCfg: esCfg}
}

// Search 在归档索引中按关键词检索 transcript。
func (s *archiveService) Search(ctx context.Context, query string, size int) ([]model.ArchiveSearchHit, error) {
	if size <= 0 {
		size = 10
	}
	return es.SearchArchive(ctx, s.esCfg.IndexName, query, size)
}
