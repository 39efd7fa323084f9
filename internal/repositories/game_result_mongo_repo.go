package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gamegate/internal/database"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const gameResultCollection = "game_results"

type gameResultDocument struct {
	ID           string    `bson:"_id"`
	GameID       string    `bson:"game_id"`
	Date         string    `bson:"date"`
	PlayedOn     time.Time `bson:"played_on"`
	ResultNumber string    `bson:"result_number"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d gameResultDocument) toModel() models.GameResult {
	return models.GameResult{
		ID:           d.ID,
		GameID:       d.GameID,
		Date:         d.Date,
		PlayedOn:     d.PlayedOn,
		ResultNumber: d.ResultNumber,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type GameResultMongoRepository struct {
	coll *mongo.Collection
}

func NewGameResultMongoRepository(ctx context.Context, db *database.MongoDB) (*GameResultMongoRepository, error) {
	coll := db.Database.Collection(gameResultCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "game_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game result indexes: %w", err)
	}

	return &GameResultMongoRepository{coll: coll}, nil
}

func (r *GameResultMongoRepository) Create(ctx context.Context, result *models.GameResult) (*models.GameResult, error) {
	now := time.Now().UTC()
	doc := gameResultDocument{
		ID:           uuid.New().String(),
		GameID:       result.GameID,
		Date:         result.Date,
		PlayedOn:     result.PlayedOn,
		ResultNumber: result.ResultNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, database.MapMongoError(err)
	}

	created := doc.toModel()
	return &created, nil
}

// ListGrouped sorts and groups server side.
func (r *GameResultMongoRepository) ListGrouped(ctx context.Context) ([]models.GameResultGroup, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "game_id", Value: 1}, {Key: "played_on", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$game_id"},
			{Key: "results", Value: bson.D{{Key: "$push", Value: "$$ROOT"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate game results: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		GameID  string               `bson:"_id"`
		Results []gameResultDocument `bson:"results"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode game results: %w", err)
	}

	groups := make([]models.GameResultGroup, 0, len(rows))
	for _, row := range rows {
		g := models.GameResultGroup{GameID: row.GameID, Results: make([]models.GameResult, 0, len(row.Results))}
		for _, d := range row.Results {
			g.Results = append(g.Results, d.toModel())
		}
		groups = append(groups, g)
	}
	return groups, nil
}
