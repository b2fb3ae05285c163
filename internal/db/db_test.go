package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationFilesEmbedded(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"0001_vector_catalog.sql"}, files)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE EXTENSION x;\n\n CREATE TABLE t (a INT) ;\n")
	require.Equal(t, []string{"CREATE EXTENSION x", "CREATE TABLE t (a INT)"}, got)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), " ")
	require.Error(t, err)
}

func TestApplyMigrations(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	ctx := context.Background()
	conn, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, ApplyMigrations(ctx, conn))
	require.NoError(t, ApplyMigrations(ctx, conn))
}
