package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepscalers/student-assistant/internal/infra/config"
)

func TestProvidePostgresPoolSkipsWhenUnconfigured(t *testing.T) {
	cfg := &config.Config{}

	pool, err := providePostgresPool(cfg, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, pool, "no DSN means memory stores take over")
}

func TestProvidePostgresPoolRejectsBadDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Postgres.DSN = "postgres://bad dsn with spaces"

	pool, err := providePostgresPool(cfg, discardLogger())
	require.Error(t, err, "a configured DSN that cannot be used must abort startup")
	assert.Nil(t, pool)
}

func TestProvideAuthStoreFallsBackToMemory(t *testing.T) {
	store, err := provideAuthStore(nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestProvideQuestionRepositoryFallsBackToMemory(t *testing.T) {
	repo, err := provideQuestionRepository(nil)
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
