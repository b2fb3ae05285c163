package vectorindex

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/eacrag/internal/model"
)

func TestPgTableName(t *testing.T) {
	table, err := pgTableName("eac-data")
	require.NoError(t, err)
	require.Equal(t, "vec_eac_data", table)

	_, err = pgTableName("Robert'); DROP TABLE x;--")
	require.Error(t, err)
}

func TestScoreExprDefaultsToCosine(t *testing.T) {
	order, score := scoreExpr("")
	require.Equal(t, "embedding <=> $1", order)
	require.Equal(t, "1 - (embedding <=> $1)", score)
}

func TestCatalogQueriesUseDollarPlaceholders(t *testing.T) {
	sqlStr, args, err := catalogListQuery()
	require.NoError(t, err)
	require.Contains(t, sqlStr, "vector_indexes")
	require.NotContains(t, sqlStr, "?")
	require.Empty(t, args)

	sqlStr, args, err = catalogMetricQuery("eac-data")
	require.NoError(t, err)
	require.Contains(t, sqlStr, "metric")
	require.Contains(t, sqlStr, "$1")
	require.NotContains(t, sqlStr, "?")
	require.Equal(t, []interface{}{"eac-data"}, args)

	sqlStr, args, err = catalogInsertQuery("eac-data", 768, "cosine")
	require.NoError(t, err)
	require.Contains(t, sqlStr, "INSERT INTO vector_indexes")
	require.Contains(t, sqlStr, "$3")
	require.NotContains(t, sqlStr, "?")
	require.Len(t, args, 3)
	require.ElementsMatch(t, []interface{}{"eac-data", 768, "cosine"}, args)
}

func TestNewPgvectorClientRequiresDSN(t *testing.T) {
	_, err := NewPgvectorClient(map[string]interface{}{})
	require.Error(t, err)
}

func TestPgvectorRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set, skipping pgvector test")
	}
	c, err := NewPgvectorClient(map[string]interface{}{"dsn": dsn})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	name := "eac-test"
	_, _ = c.conn.ExecContext(ctx, `DROP TABLE IF EXISTS vec_eac_test`)
	_, _ = c.conn.ExecContext(ctx, `DELETE FROM vector_indexes WHERE name = $1`, name)

	require.NoError(t, c.EnsureIndex(ctx, name, 2, MetricCosine))
	require.NoError(t, c.EnsureIndex(ctx, name, 2, MetricCosine))
	idx := c.Index(name)
	require.NoError(t, idx.Upsert(ctx, []model.VectorRecord{rec("a", 1, 0), rec("b", 0, 1)}))
	require.NoError(t, idx.Upsert(ctx, []model.VectorRecord{rec("a", 1, 0.1)}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 3, true)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "a", matches[0].ID)
	require.Equal(t, "text a", matches[0].Text)
}
