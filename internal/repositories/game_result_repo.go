package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gamegate/internal/database"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type GameResultRepository struct {
	db *database.DB
}

func NewGameResultRepository(db *database.DB) *GameResultRepository {
	return &GameResultRepository{db: db}
}

const gameResultColumns = `id, game_id, date, played_on, result_number, created_at, updated_at`

func scanGameResultRow(scanner rowScanner) (*models.GameResult, error) {
	var g models.GameResult
	err := scanner.Scan(&g.ID, &g.GameID, &g.Date, &g.PlayedOn, &g.ResultNumber, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &g, nil
}

// Create inserts a result. A second result for the same game and date maps
// to models.ErrConflict through the unique constraint.
func (r *GameResultRepository) Create(ctx context.Context, result *models.GameResult) (*models.GameResult, error) {
	result.ID = uuid.New().String()
	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now

	query := `
		INSERT INTO game_results (id, game_id, date, played_on, result_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + gameResultColumns

	return scanGameResultRow(r.db.Pool.QueryRow(ctx, query,
		result.ID, result.GameID, result.Date, result.PlayedOn, result.ResultNumber,
		result.CreatedAt, result.UpdatedAt,
	))
}

// ListGrouped returns every result grouped by game, games in id order and
// each game's results oldest first.
func (r *GameResultRepository) ListGrouped(ctx context.Context) ([]models.GameResultGroup, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+gameResultColumns+` FROM game_results ORDER BY game_id, played_on`)
	if err != nil {
		return nil, fmt.Errorf("failed to query game results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GameResult, error) {
		g, err := scanGameResultRow(row)
		if err != nil {
			return models.GameResult{}, err
		}
		return *g, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan game results: %w", err)
	}

	return groupByGame(results), nil
}

// groupByGame folds results that are already ordered by game id.
func groupByGame(results []models.GameResult) []models.GameResultGroup {
	groups := make([]models.GameResultGroup, 0)
	for _, res := range results {
		if n := len(groups); n > 0 && groups[n-1].GameID == res.GameID {
			groups[n-1].Results = append(groups[n-1].Results, res)
			continue
		}
		groups = append(groups, models.GameResultGroup{
			GameID:  res.GameID,
			Results: []models.GameResult{res},
		})
	}
	return groups
}
