package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

// MemoryClient is an in-process brute-force store. It is meant for development and tests.
type MemoryClient struct {
	mu      sync.RWMutex
	indexes map[string]*memoryIndex
}

type memoryIndex struct {
	mu        sync.RWMutex
	dimension int
	metric    string
	order     []string
	records   map[string]model.VectorRecord
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{indexes: make(map[string]*memoryIndex)}
}

func (c *MemoryClient) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[name]; ok {
		return nil
	}
	if dimension <= 0 || !validMetric(metric) {
		logutil.GetLogger(ctx).Warn("index creation note",
			zap.String("index", name),
			zap.Error(fmt.Errorf("invalid index spec: dimension=%d metric=%s", dimension, metric)),
		)
		return nil
	}
	c.indexes[name] = &memoryIndex{
		dimension: dimension,
		metric:    metric,
		records:   make(map[string]model.VectorRecord),
	}
	return nil
}

func (c *MemoryClient) Index(name string) Index {
	return &memoryHandle{client: c, name: name}
}

// Len reports how many records the named index holds.
func (c *MemoryClient) Len(name string) int {
	c.mu.RLock()
	idx := c.indexes[name]
	c.mu.RUnlock()
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

type memoryHandle struct {
	client *MemoryClient
	name   string
}

func (h *memoryHandle) lookup() (*memoryIndex, error) {
	h.client.mu.RLock()
	defer h.client.mu.RUnlock()
	idx := h.client.indexes[h.name]
	if idx == nil {
		return nil, fmt.Errorf("%w: index %s not found", appErr.ErrUpstream, h.name)
	}
	return idx, nil
}

func (h *memoryHandle) Upsert(ctx context.Context, records []model.VectorRecord) error {
	idx, err := h.lookup()
	if err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range records {
		if len(r.Values) != idx.dimension {
			return fmt.Errorf("%w: vector %s has dimension %d, index expects %d", appErr.ErrUpstream, r.ID, len(r.Values), idx.dimension)
		}
	}
	for _, r := range records {
		if _, ok := idx.records[r.ID]; !ok {
			idx.order = append(idx.order, r.ID)
		}
		r.Values = append([]float32(nil), r.Values...)
		idx.records[r.ID] = r
	}
	return nil
}

func (h *memoryHandle) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]model.Match, error) {
	idx, err := h.lookup()
	if err != nil {
		return nil, err
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index expects %d", appErr.ErrUpstream, len(vector), idx.dimension)
	}
	idx.mu.RLock()
	matches := make([]model.Match, 0, len(idx.order))
	for _, id := range idx.order {
		r := idx.records[id]
		m := model.Match{ID: id, Score: score(idx.metric, vector, r.Values)}
		if includeMetadata {
			m.Text = r.Metadata.Text
			m.SourceURL = r.Metadata.URL
		}
		matches = append(matches, m)
	}
	idx.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK >= 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// score is "higher is closer" for every metric.
func score(metric string, a, b []float32) float32 {
	var dot, normA, normB, dist float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
		dist += (x - y) * (x - y)
	}
	switch metric {
	case MetricDotProduct:
		return float32(dot)
	case MetricEuclidean:
		return float32(-math.Sqrt(dist))
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func init() {
	Register("memory", func(args interface{}) (Client, error) {
		return NewMemoryClient(), nil
	})
}
