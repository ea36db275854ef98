package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/articles-api/internal/config"
	"github.com/JakeFAU/articles-api/internal/server"
)

// stubRuntime replaces config/logger loading for the duration of a test.
func stubRuntime(t *testing.T, dsn string) {
	t.Helper()
	orig := loadRuntime
	loadRuntime = func(string) (*runtime, error) {
		return &runtime{cfg: &config.Config{DB: config.DBConfig{DSN: dsn}}, logger: zap.NewNop()}, nil
	}
	t.Cleanup(func() { loadRuntime = orig })
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["migrate"])
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateUsesConfiguredDSN(t *testing.T) {
	stubRuntime(t, "postgres://example/articles")

	var gotDSN string
	orig := applyMigrations
	applyMigrations = func(_ context.Context, dsn string, _ *zap.Logger) error {
		gotDSN = dsn
		return nil
	}
	t.Cleanup(func() { applyMigrations = orig })

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Equal(t, "postgres://example/articles", gotDSN)
}

func TestMigrateFailurePropagates(t *testing.T) {
	stubRuntime(t, "postgres://example/articles")

	orig := applyMigrations
	applyMigrations = func(context.Context, string, *zap.Logger) error {
		return errors.New("relation already exists")
	}
	t.Cleanup(func() { applyMigrations = orig })

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "migrate: relation already exists")
}

func TestMigrateRejectsMemoryBackend(t *testing.T) {
	orig := loadRuntime
	loadRuntime = func(string) (*runtime, error) {
		cfg := &config.Config{DB: config.DBConfig{Backend: config.DBBackendMemory}}
		return &runtime{cfg: cfg, logger: zap.NewNop()}, nil
	}
	t.Cleanup(func() { loadRuntime = orig })

	called := false
	origApply := applyMigrations
	applyMigrations = func(context.Context, string, *zap.Logger) error {
		called = true
		return nil
	}
	t.Cleanup(func() { applyMigrations = origApply })

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, `db.backend "memory" has no schema to migrate`)
	require.False(t, called)
}

func TestServeBuildFailurePropagates(t *testing.T) {
	stubRuntime(t, "postgres://example/articles")

	orig := buildApp
	buildApp = func(context.Context, *config.Config, *zap.Logger) (*server.App, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { buildApp = orig })

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "build application: connection refused")
}

func TestConfigErrorStopsBeforeSubcommand(t *testing.T) {
	orig := loadRuntime
	loadRuntime = func(string) (*runtime, error) {
		return nil, errors.New("load config: db.dsn must be set (DATABASE_URL)")
	}
	t.Cleanup(func() { loadRuntime = orig })

	called := false
	origMigrate := applyMigrations
	applyMigrations = func(context.Context, string, *zap.Logger) error {
		called = true
		return nil
	}
	t.Cleanup(func() { applyMigrations = origMigrate })

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "DATABASE_URL")
	require.False(t, called)
}

func TestResolveRuntimeRequiresInit(t *testing.T) {
	_, err := resolveRuntime(context.Background())
	require.Error(t, err)
}
