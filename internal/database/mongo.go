package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gamegate/internal/config"
	"github.com/BradenHooton/gamegate/internal/models"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDB is the document-store alternative to the Postgres pool.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	logger   *slog.Logger
}

func NewMongoConnection(cfg *config.MongoConfig, logger *slog.Logger) (*MongoDB, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping mongo: %w", err)
	}

	logger.Info("mongo connection established", slog.String("database", cfg.Database))

	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.Database),
		logger:   logger,
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	m.logger.Info("closing mongo connection")
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := m.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

func MapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrConflict
	}
	return err
}
