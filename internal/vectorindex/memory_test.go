package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

func rec(id string, values ...float32) model.VectorRecord {
	return model.VectorRecord{ID: id, Values: values, Metadata: model.VectorMetadata{Text: "text " + id, URL: "https://example.org/" + id}}
}

func TestMemoryQueryOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.EnsureIndex(ctx, "eac-data", 2, MetricCosine))
	idx := c.Index("eac-data")
	require.NoError(t, idx.Upsert(ctx, []model.VectorRecord{rec("a", 1, 0), rec("b", 0, 1), rec("c", 1, 1)}))

	matches, err := idx.Query(ctx, []float32{1, 0.1}, 2, true)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "a", matches[0].ID)
	require.Equal(t, "c", matches[1].ID)
	require.Equal(t, "text a", matches[0].Text)
	require.Equal(t, "https://example.org/a", matches[0].SourceURL)
	require.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.EnsureIndex(ctx, "i", 2, MetricCosine))
	idx := c.Index("i")
	require.NoError(t, idx.Upsert(ctx, []model.VectorRecord{rec("a", 1, 0)}))
	updated := rec("a", 0, 1)
	updated.Metadata.Text = "changed"
	require.NoError(t, idx.Upsert(ctx, []model.VectorRecord{updated}))
	require.Equal(t, 1, c.Len("i"))

	matches, err := idx.Query(ctx, []float32{0, 1}, 3, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "changed", matches[0].Text)
}

func TestMemoryEmptyIndexReturnsNoMatches(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.EnsureIndex(ctx, "i", 3, MetricCosine))
	matches, err := c.Index("i").Query(ctx, []float32{1, 2, 3}, 3, true)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestMemoryEnsureIndexIsIdempotentAndSwallowsBadSpec(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.EnsureIndex(ctx, "i", 2, MetricCosine))
	require.NoError(t, c.EnsureIndex(ctx, "i", 4, MetricEuclidean))
	require.NoError(t, c.Index("i").Upsert(ctx, []model.VectorRecord{rec("a", 1, 2)}))

	require.NoError(t, c.EnsureIndex(ctx, "bad", 0, "manhattan"))
	_, err := c.Index("bad").Query(ctx, []float32{1}, 1, true)
	require.ErrorIs(t, err, appErr.ErrUpstream)
}

func TestMemoryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.EnsureIndex(ctx, "i", 2, MetricCosine))
	err := c.Index("i").Upsert(ctx, []model.VectorRecord{rec("a", 1, 2, 3)})
	require.ErrorIs(t, err, appErr.ErrUpstream)
}

func TestNewFromRegistry(t *testing.T) {
	c, err := New("Memory", nil)
	require.NoError(t, err)
	require.IsType(t, &MemoryClient{}, c)
	_, err = New("chroma", nil)
	require.Error(t, err)
}
