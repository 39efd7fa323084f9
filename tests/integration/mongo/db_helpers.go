//go:build integration

package mongo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/BradenHooton/gamegate/internal/config"
	"github.com/BradenHooton/gamegate/internal/database"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/BradenHooton/gamegate/pkg/auth"
)

// TestMongo manages a MongoDB testcontainer and the connection the
// repositories use.
type TestMongo struct {
	Container *mongodb.MongoDBContainer
	DB        *database.MongoDB
}

// SetupTestMongo starts MongoDB and connects through the same constructor
// the API uses.
func SetupTestMongo(ctx context.Context) (*TestMongo, error) {
	container, err := mongodb.RunContainer(ctx, testcontainers.WithImage("mongo:7"))
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := database.NewMongoConnection(&config.MongoConfig{
		URI:            uri,
		Database:       "gamegate_test",
		ConnectTimeout: 10 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestMongo{Container: container, DB: db}, nil
}

// Teardown disconnects and stops the container.
func (m *TestMongo) Teardown(ctx context.Context) error {
	if m.DB != nil {
		_ = m.DB.Close(ctx)
	}
	if m.Container != nil {
		return m.Container.Terminate(ctx)
	}
	return nil
}

// CleanupCollections empties every collection but keeps the indexes.
func (m *TestMongo) CleanupCollections(ctx context.Context) error {
	for _, name := range []string{"accounts", "game_results"} {
		if _, err := m.DB.Database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
	}
	return nil
}

// NewVerifiedAccount returns an unsaved verified admin with password.
func NewVerifiedAccount(email, username, password string) (*models.AccountSecurity, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &models.AccountSecurity{
		Account: models.Account{
			FirstName:  "Asha",
			LastName:   "Rao",
			Username:   username,
			Email:      email,
			Role:       models.RoleAdmin,
			IsVerified: true,
		},
		PasswordHash: hash,
	}, nil
}
