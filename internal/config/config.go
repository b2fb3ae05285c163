package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	DefaultPort            = 8000
	DefaultIndexName       = "eac-data"
	DefaultIndexDimension  = 1536
	DefaultIndexMetric     = "cosine"
	DefaultChatModel       = "gpt-4o-mini"
	DefaultEmbedModel      = "text-embedding-3-small"
	DefaultScrapeTimeout   = 15
	DefaultMinParagraphLen = 60
	DefaultUpsertBatchSize = 50
)

var DefaultSourceURLs = []string{
	"https://www.eac.int/overview",
	"https://www.eac.int/institutions",
}

type Config struct {
	Port                    int               `json:"port"`
	LogConfig               logger.LogConfig  `json:"log_config"`
	FactsFile               string            `json:"facts_file"`
	AI                      AIConfig          `json:"ai"`
	VectorIndex             VectorIndexConfig `json:"vector_index"`
	Scraper                 ScraperConfig     `json:"scraper"`
	Archive                 FileStoreConfig   `json:"archive"`
	RefreshCron             string            `json:"refresh_cron"`
	RefreshRateLimitSeconds int               `json:"refresh_rate_limit_seconds"`
	CORSAllowlist           []string          `json:"cors_allowlist"`
}

type ProviderConfig struct {
	Name string                 `json:"name"`
	Data map[string]interface{} `json:"data"`
}

type AIConfig struct {
	Chat          ProviderConfig   `json:"chat"`
	ChatFallbacks []ProviderConfig `json:"chat_fallbacks"`
	Embed         ProviderConfig   `json:"embed"`
	ChatModel     string           `json:"chat_model"`
	EmbedModel    string           `json:"embed_model"`
	EmbedCache    EmbedCacheConfig `json:"embed_cache"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLMinutes int `json:"ttl_minutes"`
}

type VectorIndexConfig struct {
	Type      string                 `json:"type"`
	Name      string                 `json:"name"`
	Dimension int                    `json:"dimension"`
	Metric    string                 `json:"metric"`
	Data      map[string]interface{} `json:"data"`
}

type ScraperConfig struct {
	URLs            []string `json:"urls"`
	TimeoutSeconds  int      `json:"timeout_seconds"`
	MinParagraphLen int      `json:"min_paragraph_len"`
	BatchSize       int      `json:"batch_size"`
}

// FileStoreConfig configures the optional raw page archive. An empty Type disables it.
type FileStoreConfig struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Load reads the JSON config at path (skipped when path is empty), then layers
// environment variables and defaults on top.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	keys := map[string]string{
		"openai": getenv("OPENAI_API_KEY"),
		"gemini": getenv("GEMINI_API_KEY"),
	}
	setProviderKey(&cfg.AI.Chat, keys)
	setProviderKey(&cfg.AI.Embed, keys)
	for i := range cfg.AI.ChatFallbacks {
		setProviderKey(&cfg.AI.ChatFallbacks[i], keys)
	}
	switch strings.ToLower(cfg.VectorIndex.Type) {
	case "", "pinecone":
		setDataDefault(&cfg.VectorIndex.Data, "api_key", getenv("PINECONE_API_KEY"))
	case "pgvector":
		setDataDefault(&cfg.VectorIndex.Data, "dsn", getenv("PGVECTOR_DSN"))
	}
	return nil
}

func setProviderKey(p *ProviderConfig, keys map[string]string) {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "openai"
	}
	setDataDefault(&p.Data, "api_key", keys[name])
}

func setDataDefault(data *map[string]interface{}, key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if *data == nil {
		*data = map[string]interface{}{}
	}
	if existing, ok := (*data)[key].(string); ok && strings.TrimSpace(existing) != "" {
		return
	}
	(*data)[key] = value
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Chat.Name == "" {
		cfg.AI.Chat.Name = "openai"
	}
	if cfg.AI.Embed.Name == "" {
		cfg.AI.Embed.Name = "openai"
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = DefaultChatModel
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = DefaultEmbedModel
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "pinecone"
	}
	if cfg.VectorIndex.Name == "" {
		cfg.VectorIndex.Name = DefaultIndexName
	}
	if cfg.VectorIndex.Dimension == 0 {
		cfg.VectorIndex.Dimension = DefaultIndexDimension
	}
	if cfg.VectorIndex.Metric == "" {
		cfg.VectorIndex.Metric = DefaultIndexMetric
	}
	if len(cfg.Scraper.URLs) == 0 {
		cfg.Scraper.URLs = append([]string(nil), DefaultSourceURLs...)
	}
	if cfg.Scraper.TimeoutSeconds == 0 {
		cfg.Scraper.TimeoutSeconds = DefaultScrapeTimeout
	}
	if cfg.Scraper.MinParagraphLen == 0 {
		cfg.Scraper.MinParagraphLen = DefaultMinParagraphLen
	}
	if cfg.Scraper.BatchSize == 0 {
		cfg.Scraper.BatchSize = DefaultUpsertBatchSize
	}
}

func validate(cfg *Config) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if cfg.VectorIndex.Dimension < 0 {
		return fmt.Errorf("vector_index.dimension must be positive")
	}
	if cfg.Scraper.BatchSize < 0 {
		return fmt.Errorf("scraper.batch_size must be positive")
	}
	switch strings.ToLower(cfg.Archive.Type) {
	case "", "local", "s3":
	default:
		return fmt.Errorf("archive.type must be local or s3")
	}
	return nil
}
