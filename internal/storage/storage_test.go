package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/BradenHooton/gamegate/internal/config"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.StoreDriverMemory}}
	store, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer store.Close(context.Background())

	assert.Equal(t, config.StoreDriverMemory, store.Driver)
	assert.NoError(t, store.HealthCheck(context.Background()))

	_, err = store.Games.Create(context.Background(), &models.GameResult{GameID: "gali", Date: "01-01-2026", ResultNumber: "42"})
	require.NoError(t, err)

	groups, err := store.Games.ListGrouped(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}
	_, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
