package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/ai"
	"github.com/xxxsen/eacrag/internal/filestore"
	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
	"github.com/xxxsen/eacrag/internal/scraper"
	"github.com/xxxsen/eacrag/internal/vectorindex"
)

type KnowledgeConfig struct {
	URLs            []string
	MinParagraphLen int
	BatchSize       int
}

// KnowledgeService rebuilds the vector index from the source pages.
type KnowledgeService struct {
	fetcher  scraper.IFetcher
	embedder ai.IEmbedder
	index    vectorindex.Index
	archive  *filestore.Archive
	cfg      KnowledgeConfig
	now      func() time.Time
}

func NewKnowledgeService(fetcher scraper.IFetcher, embedder ai.IEmbedder, index vectorindex.Index, archive *filestore.Archive, cfg KnowledgeConfig) *KnowledgeService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MinParagraphLen <= 0 {
		cfg.MinParagraphLen = 60
	}
	return &KnowledgeService{
		fetcher:  fetcher,
		embedder: embedder,
		index:    index,
		archive:  archive,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Build scrapes every configured URL in order, embeds each paragraph and upserts
// the staged records in fixed-size batches. A failing URL is skipped from the
// point of failure on. The first failing batch stops the build with ErrBuild;
// the returned report is non-nil in both cases.
func (s *KnowledgeService) Build(ctx context.Context) (*model.BuildReport, error) {
	logger := logutil.GetLogger(ctx)
	start := s.now()
	report := &model.BuildReport{URLs: append([]string(nil), s.cfg.URLs...)}
	var records []model.VectorRecord
	for _, url := range s.cfg.URLs {
		staged, err := s.scrape(ctx, url, start)
		records = append(records, staged...)
		if err != nil {
			report.Failed = append(report.Failed, url)
			logger.Error("scrape url failed",
				zap.String("url", url),
				zap.Int("staged", len(staged)),
				zap.Error(err),
			)
			continue
		}
		logger.Info("scrape url finished", zap.String("url", url), zap.Int("staged", len(staged)))
	}
	report.Staged = len(records)
	for i := 0; i < len(records); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.index.Upsert(ctx, records[i:end]); err != nil {
			report.Duration = s.now().Sub(start)
			return report, fmt.Errorf("%w: upsert batch %d: %w", appErr.ErrBuild, report.Batches, err)
		}
		report.Batches++
		logger.Debug("upserted batch", zap.Int("batch", report.Batches), zap.Int("size", end-i))
	}
	report.Duration = s.now().Sub(start)
	logger.Info("knowledge base updated",
		zap.Int("staged", report.Staged),
		zap.Int("batches", report.Batches),
		zap.Strings("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// scrape returns the records staged for url. On error the records staged before
// the failure are still returned.
func (s *KnowledgeService) scrape(ctx context.Context, url string, at time.Time) ([]model.VectorRecord, error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	s.archivePage(ctx, url, at, body)
	paragraphs, err := scraper.ExtractParagraphs(body, s.cfg.MinParagraphLen)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	records := make([]model.VectorRecord, 0, len(paragraphs))
	for i, text := range paragraphs {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return records, fmt.Errorf("embed paragraph %d: %w", i, err)
		}
		records = append(records, model.VectorRecord{
			ID:       model.ChunkID(url, i),
			Values:   vec,
			Metadata: model.VectorMetadata{Text: text, URL: url},
		})
	}
	return records, nil
}

func (s *KnowledgeService) archivePage(ctx context.Context, url string, at time.Time, body []byte) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.SavePage(ctx, url, at, body)
	if err != nil {
		logutil.GetLogger(ctx).Warn("archive page failed", zap.String("url", url), zap.Error(err))
		return
	}
	logutil.GetLogger(ctx).Debug("page archived", zap.String("url", url), zap.String("key", key))
}
