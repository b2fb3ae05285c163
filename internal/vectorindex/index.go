// Package vectorindex wraps the external nearest-neighbour stores holding scraped chunks.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/eacrag/internal/model"
)

const (
	MetricCosine     = "cosine"
	MetricEuclidean  = "euclidean"
	MetricDotProduct = "dotproduct"
)

// Client manages named indexes on one backend.
type Client interface {
	// EnsureIndex creates the named index when it is not listed yet. Creation
	// failures are logged and swallowed; only a failure to list is returned.
	EnsureIndex(ctx context.Context, name string, dimension int, metric string) error
	Index(name string) Index
}

// Index is a handle on a single named index.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]model.Match, error)
	// Upsert replaces records by id.
	Upsert(ctx context.Context, records []model.VectorRecord) error
}

type Factory func(args interface{}) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Client, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("vector_index.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector index type: %s", typ)
	}
	return factory(args)
}

func validMetric(metric string) bool {
	switch metric {
	case MetricCosine, MetricEuclidean, MetricDotProduct:
		return true
	}
	return false
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector index config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector index config: %w", err)
	}
	return nil
}
