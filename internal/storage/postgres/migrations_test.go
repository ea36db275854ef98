package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	raw, err := fs.ReadFile(migrationsFS, "migrations/00001_create_articles.sql")
	require.NoError(t, err)
	sql := string(raw)
	require.Contains(t, sql, "-- +goose Up")
	require.Contains(t, sql, "-- +goose Down")
	require.True(t, strings.Contains(sql, "CREATE TABLE IF NOT EXISTS articles"))
}

func TestGooseLoggerRoutesToZap(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	l := gooseLogger{sugar: zap.New(core).Sugar()}
	l.Printf("OK   %s (%s)\n", "00001_create_articles.sql", "1ms")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "OK   00001_create_articles.sql (1ms)", entries[0].Message)
}
