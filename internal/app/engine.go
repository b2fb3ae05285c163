package app

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/ai"
	"github.com/xxxsen/eacrag/internal/config"
	"github.com/xxxsen/eacrag/internal/embedcache"
	"github.com/xxxsen/eacrag/internal/factsheet"
	"github.com/xxxsen/eacrag/internal/filestore"
	"github.com/xxxsen/eacrag/internal/scraper"
	"github.com/xxxsen/eacrag/internal/service"
	"github.com/xxxsen/eacrag/internal/vectorindex"
)

// NewEngine wires the configured providers, ensures the vector index exists and
// returns the answer and knowledge services.
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	facts, err := factsheet.LoadFile(cfg.FactsFile)
	if err != nil {
		return nil, err
	}
	embedder, err := buildEmbedder(cfg.AI)
	if err != nil {
		return nil, err
	}
	chatter, err := buildChatter(cfg.AI)
	if err != nil {
		return nil, err
	}
	client, err := vectorindex.New(cfg.VectorIndex.Type, cfg.VectorIndex.Data)
	if err != nil {
		return nil, fmt.Errorf("init vector index client: %w", err)
	}
	if err := client.EnsureIndex(ctx, cfg.VectorIndex.Name, cfg.VectorIndex.Dimension, cfg.VectorIndex.Metric); err != nil {
		return nil, fmt.Errorf("ensure index %s: %w", cfg.VectorIndex.Name, err)
	}
	index := client.Index(cfg.VectorIndex.Name)
	store, err := filestore.New(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("init archive: %w", err)
	}
	fetcher := scraper.NewFetcher(scraper.Config{
		Timeout: time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
	})
	archiveType := "none"
	if store != nil {
		archiveType = store.Type()
	}
	logutil.GetLogger(ctx).Info("engine wired",
		zap.Int("facts", facts.Len()),
		zap.String("embed_provider", cfg.AI.Embed.Name),
		zap.String("chat_provider", cfg.AI.Chat.Name),
		zap.String("vector_index", cfg.VectorIndex.Type),
		zap.String("archive", archiveType),
	)
	return &Engine{
		Answers: service.NewAnswerService(facts, embedder, index, chatter),
		Knowledge: service.NewKnowledgeService(fetcher, embedder, index, filestore.NewArchive(store), service.KnowledgeConfig{
			URLs:            cfg.Scraper.URLs,
			MinParagraphLen: cfg.Scraper.MinParagraphLen,
			BatchSize:       cfg.Scraper.BatchSize,
		}),
	}, nil
}

func buildEmbedder(cfg config.AIConfig) (ai.IEmbedder, error) {
	p, err := ai.NewEmbedProvider(cfg.Embed.Name, cfg.Embed.Data)
	if err != nil {
		return nil, fmt.Errorf("init embed provider %s: %w", cfg.Embed.Name, err)
	}
	embedder := ai.NewEmbedder(p, cfg.EmbedModel)
	ttl := time.Duration(cfg.EmbedCache.TTLMinutes) * time.Minute
	return embedcache.WrapLruCacheToEmbedder(embedder, cfg.EmbedCache.Size, ttl), nil
}

func buildChatter(cfg config.AIConfig) (ai.IChatter, error) {
	providers := append([]config.ProviderConfig{cfg.Chat}, cfg.ChatFallbacks...)
	entries := make([]ai.ChatterEntry, 0, len(providers))
	for _, pc := range providers {
		p, err := ai.NewChatProvider(pc.Name, pc.Data)
		if err != nil {
			return nil, fmt.Errorf("init chat provider %s: %w", pc.Name, err)
		}
		entries = append(entries, ai.ChatterEntry{
			Name:    pc.Name,
			Chatter: ai.NewChatter(p, cfg.ChatModel, service.AnswerTemperature),
		})
	}
	return ai.NewGroupChatter(entries), nil
}
