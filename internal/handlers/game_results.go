package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/gamegate/internal/models"
	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
)

// GameResultServiceInterface defines the interface for game result logic
type GameResultServiceInterface interface {
	Add(ctx context.Context, gameID, date, resultNumber string) (*models.GameResult, error)
	List(ctx context.Context) ([]models.GameResultGroup, error)
}

type GameResultHandler struct {
	service GameResultServiceInterface
	logger  *slog.Logger
}

func NewGameResultHandler(service GameResultServiceInterface, logger *slog.Logger) *GameResultHandler {
	return &GameResultHandler{service: service, logger: logger}
}

type AddGameResultRequest struct {
	GameID       string `json:"gameId" validate:"required"`
	Date         string `json:"date" validate:"required"`
	ResultNumber string `json:"resultNumber" validate:"required"`
}

// GameResultListResponse wraps the grouped results with the number of games.
type GameResultListResponse struct {
	Success    bool                     `json:"success"`
	TotalGames int                      `json:"totalGames"`
	Data       []models.GameResultGroup `json:"data"`
}

// Add stores one result; admin only
func (h *GameResultHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddGameResultRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Add(r.Context(), req.GameID, req.Date, req.ResultNumber)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidDate):
			pkghttp.WriteBadRequest(w, "Date must be in DD-MM-YYYY format")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "gameId, date and resultNumber are required")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Result already exists for this game & date")
		default:
			h.logger.Error("failed to add game result", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, "Game result added successfully", result)
}

// List returns every result grouped by game
func (h *GameResultHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list game results", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to fetch game results")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, GameResultListResponse{
		Success:    true,
		TotalGames: len(groups),
		Data:       groups,
	})
}
