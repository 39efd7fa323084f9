package models

import "time"

// GameResultDateLayout is the DD-MM-YYYY layout game dates are submitted in.
const GameResultDateLayout = "02-01-2006"

type GameResult struct {
	ID           string    `json:"id"`
	GameID       string    `json:"gameId"`
	Date         string    `json:"date"`
	PlayedOn     time.Time `json:"-"`
	ResultNumber string    `json:"resultNumber"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GameResultGroup is every result of one game, oldest date first.
type GameResultGroup struct {
	GameID  string       `json:"gameId"`
	Results []GameResult `json:"results"`
}
