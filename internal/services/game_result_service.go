package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/gamegate/internal/models"
)

// GameResultRepository stores game results, unique per game and date.
type GameResultRepository interface {
	Create(ctx context.Context, result *models.GameResult) (*models.GameResult, error)
	ListGrouped(ctx context.Context) ([]models.GameResultGroup, error)
}

type GameResultService struct {
	repo   GameResultRepository
	logger *slog.Logger
}

func NewGameResultService(repo GameResultRepository, logger *slog.Logger) *GameResultService {
	return &GameResultService{repo: repo, logger: logger}
}

// ParseGameDate parses a strict DD-MM-YYYY calendar date.
func ParseGameDate(date string) (time.Time, error) {
	if len(date) != len(models.GameResultDateLayout) {
		return time.Time{}, models.ErrInvalidDate
	}
	t, err := time.Parse(models.GameResultDateLayout, date)
	if err != nil {
		return time.Time{}, models.ErrInvalidDate
	}
	return t, nil
}

// Add records one result. The date string is stored exactly as given.
func (s *GameResultService) Add(ctx context.Context, gameID, date, resultNumber string) (*models.GameResult, error) {
	gameID = strings.TrimSpace(gameID)
	resultNumber = strings.TrimSpace(resultNumber)
	if gameID == "" || resultNumber == "" {
		return nil, fmt.Errorf("%w: gameId, date and resultNumber are required", models.ErrBadRequest)
	}

	playedOn, err := ParseGameDate(date)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.Create(ctx, &models.GameResult{
		GameID:       gameID,
		Date:         date,
		PlayedOn:     playedOn,
		ResultNumber: resultNumber,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to store game result", slog.String("game_id", gameID), slog.Any("error", err))
		return nil, fmt.Errorf("create game result: %w", err)
	}

	s.logger.Info("game result added", slog.String("game_id", gameID), slog.String("date", date))
	return result, nil
}

// List returns every result grouped by game, each group in date order.
func (s *GameResultService) List(ctx context.Context) ([]models.GameResultGroup, error) {
	groups, err := s.repo.ListGrouped(ctx)
	if err != nil {
		s.logger.Error("failed to list game results", slog.Any("error", err))
		return nil, fmt.Errorf("list game results: %w", err)
	}
	return groups, nil
}
