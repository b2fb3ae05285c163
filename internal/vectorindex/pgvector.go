package vectorindex

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/db"
	"github.com/xxxsen/eacrag/internal/model"
	"github.com/xxxsen/eacrag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

const (
	pgIndexCatalog = "vector_indexes"
	pgOpenTimeout  = 10 * time.Second
)

var pgIndexNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,50}$`)

type pgvectorConfig struct {
	DSN string `json:"dsn"`
}

// PgvectorClient keeps each named index in its own table and lists them in a
// small catalog table so the distance operator follows the declared metric.
type PgvectorClient struct {
	conn *sqlx.DB

	mu      sync.RWMutex
	metrics map[string]string
}

func NewPgvectorClient(args interface{}) (*PgvectorClient, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), pgOpenTimeout)
	defer cancel()
	conn, err := db.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %w", appErr.ErrUpstream, err)
	}
	return NewPgvectorClientWithDB(conn), nil
}

func NewPgvectorClientWithDB(conn *sqlx.DB) *PgvectorClient {
	return &PgvectorClient{conn: conn, metrics: make(map[string]string)}
}

func (c *PgvectorClient) Close() error {
	return c.conn.Close()
}

func pgTableName(name string) (string, error) {
	if !pgIndexNameRe.MatchString(name) {
		return "", fmt.Errorf("invalid index name %q", name)
	}
	return "vec_" + strings.ReplaceAll(name, "-", "_"), nil
}

func (c *PgvectorClient) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	if err := db.ApplyMigrations(ctx, c.conn); err != nil {
		return fmt.Errorf("%w: prepare index catalog: %w", appErr.ErrUpstream, err)
	}
	sqlStr, args, err := catalogListQuery()
	if err != nil {
		return err
	}
	var names []string
	if err := c.conn.SelectContext(ctx, &names, sqlStr, args...); err != nil {
		return fmt.Errorf("%w: list indexes: %w", appErr.ErrUpstream, err)
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	if err := c.createIndex(ctx, name, dimension, metric); err != nil {
		if dbutil.IsConflict(err) {
			logutil.GetLogger(ctx).Info("index created concurrently", zap.String("index", name))
			return nil
		}
		logutil.GetLogger(ctx).Warn("index creation note", zap.String("index", name), zap.Error(err))
		return nil
	}
	logutil.GetLogger(ctx).Info("index created",
		zap.String("index", name),
		zap.Int("dimension", dimension),
		zap.String("metric", metric),
	)
	return nil
}

func (c *PgvectorClient) createIndex(ctx context.Context, name string, dimension int, metric string) error {
	table, err := pgTableName(name)
	if err != nil {
		return err
	}
	if dimension <= 0 || !validMetric(metric) {
		return fmt.Errorf("invalid index spec: dimension=%d metric=%s", dimension, metric)
	}
	tx, err := c.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		url TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, pq.QuoteIdentifier(table), dimension)); err != nil {
		return err
	}
	sqlStr, args, err := catalogInsertQuery(name, dimension, metric)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *PgvectorClient) metric(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	m, ok := c.metrics[name]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}
	sqlStr, args, err := catalogMetricQuery(name)
	if err != nil {
		return "", err
	}
	if err := c.conn.GetContext(ctx, &m, sqlStr, args...); err != nil {
		return "", fmt.Errorf("%w: lookup index %s: %w", appErr.ErrUpstream, name, err)
	}
	c.mu.Lock()
	c.metrics[name] = m
	c.mu.Unlock()
	return m, nil
}

func catalogListQuery() (string, []interface{}, error) {
	sqlStr, args, err := builder.BuildSelect(pgIndexCatalog, map[string]interface{}{}, []string{"name"})
	if err != nil {
		return "", nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return sqlStr, args, nil
}

func catalogMetricQuery(name string) (string, []interface{}, error) {
	where := map[string]interface{}{"name": name}
	sqlStr, args, err := builder.BuildSelect(pgIndexCatalog, where, []string{"metric"})
	if err != nil {
		return "", nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return sqlStr, args, nil
}

func catalogInsertQuery(name string, dimension int, metric string) (string, []interface{}, error) {
	data := map[string]interface{}{
		"name":      name,
		"dimension": dimension,
		"metric":    metric,
	}
	sqlStr, args, err := builder.BuildInsert(pgIndexCatalog, []map[string]interface{}{data})
	if err != nil {
		return "", nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return sqlStr, args, nil
}

func (c *PgvectorClient) Index(name string) Index {
	return &pgvectorIndex{client: c, name: name}
}

type pgvectorIndex struct {
	client *PgvectorClient
	name   string
}

type pgMatchRow struct {
	ID    string  `db:"id"`
	Text  string  `db:"text"`
	URL   string  `db:"url"`
	Score float64 `db:"score"`
}

// scoreExpr maps a metric to an ordering expression (ascending) and a score
// expression where higher means closer.
func scoreExpr(metric string) (order string, score string) {
	switch metric {
	case MetricEuclidean:
		return "embedding <-> $1", "-(embedding <-> $1)"
	case MetricDotProduct:
		return "embedding <#> $1", "-(embedding <#> $1)"
	default:
		return "embedding <=> $1", "1 - (embedding <=> $1)"
	}
}

func (i *pgvectorIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]model.Match, error) {
	table, err := pgTableName(i.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", appErr.ErrUpstream, err)
	}
	metric, err := i.client.metric(ctx, i.name)
	if err != nil {
		return nil, err
	}
	order, score := scoreExpr(metric)
	query := fmt.Sprintf(`SELECT id, text, url, %s AS score FROM %s ORDER BY %s LIMIT $2`,
		score, pq.QuoteIdentifier(table), order)
	var rows []pgMatchRow
	if err := i.client.conn.SelectContext(ctx, &rows, query, pgvector.NewVector(vector), topK); err != nil {
		return nil, fmt.Errorf("%w: query index %s: %w", appErr.ErrUpstream, i.name, err)
	}
	matches := make([]model.Match, 0, len(rows))
	for _, r := range rows {
		m := model.Match{ID: r.ID, Score: float32(r.Score)}
		if includeMetadata {
			m.Text = r.Text
			m.SourceURL = r.URL
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (i *pgvectorIndex) Upsert(ctx context.Context, records []model.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	table, err := pgTableName(i.name)
	if err != nil {
		return fmt.Errorf("%w: %w", appErr.ErrUpstream, err)
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (id, text, url, embedding) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			url = EXCLUDED.url,
			embedding = EXCLUDED.embedding`, pq.QuoteIdentifier(table))
	tx, err := i.client.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin upsert: %w", appErr.ErrUpstream, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, stmt, r.ID, r.Metadata.Text, r.Metadata.URL, pgvector.NewVector(r.Values)); err != nil {
			return fmt.Errorf("%w: upsert %s: %w", appErr.ErrUpstream, r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit upsert: %w", appErr.ErrUpstream, err)
	}
	return nil
}

func init() {
	Register("pgvector", func(args interface{}) (Client, error) {
		c, err := NewPgvectorClient(args)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
