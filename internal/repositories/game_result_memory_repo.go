package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/google/uuid"
)

type GameResultMemoryRepository struct {
	mu      sync.RWMutex
	results map[string]models.GameResult // keyed by game id and date
}

func NewGameResultMemoryRepository() *GameResultMemoryRepository {
	return &GameResultMemoryRepository{results: make(map[string]models.GameResult)}
}

func gameResultKey(gameID, date string) string {
	return gameID + "\x00" + date
}

func (r *GameResultMemoryRepository) Create(_ context.Context, result *models.GameResult) (*models.GameResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := gameResultKey(result.GameID, result.Date)
	if _, ok := r.results[key]; ok {
		return nil, models.ErrConflict
	}

	stored := *result
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.results[key] = stored

	return &stored, nil
}

func (r *GameResultMemoryRepository) ListGrouped(_ context.Context) ([]models.GameResultGroup, error) {
	r.mu.RLock()
	all := make([]models.GameResult, 0, len(r.results))
	for _, res := range r.results {
		all = append(all, res)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].GameID != all[j].GameID {
			return all[i].GameID < all[j].GameID
		}
		return all[i].PlayedOn.Before(all[j].PlayedOn)
	})

	return groupByGame(all), nil
}
