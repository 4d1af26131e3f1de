// Package ladderdto holds the serializable shapes the ladder core exposes to
// its persistence, export, and presentation boundaries. The domain package
// converts to and from these types; nothing in here carries behavior.
package ladderdto

import "time"

// PendingResult is an unprocessed match outcome awaiting the opponent's next
// rating update.
type PendingResult struct {
	Opponent string  `json:"opponent"`
	Score    float64 `json:"score"`
}

// RatingPoint is one entry of a player's rating-over-time trail. Cycle is the
// rating period the value was committed at; cycle 0 is the registration seed.
type RatingPoint struct {
	Rating float64 `json:"rating"`
	Cycle  int     `json:"cycle"`
}

// PlayerState is the whole serializable state of a single player.
type PlayerState struct {
	Name       string          `json:"name"`
	Rating     float64         `json:"rating"`
	Deviation  float64         `json:"deviation"`
	Volatility float64         `json:"volatility"`
	Wins       int             `json:"wins"`
	Losses     int             `json:"losses"`
	Draws      int             `json:"draws"`
	Pending    []PendingResult `json:"pending,omitempty"`
	History    []RatingPoint   `json:"history"`
}

// MatchRecord is one immutable entry of the global match history. Outcome is
// relative to PlayerA: 1 win, 0.5 draw, 0 loss.
type MatchRecord struct {
	ID       string    `json:"id"`
	PlayerA  string    `json:"player_a"`
	PlayerB  string    `json:"player_b"`
	Outcome  float64   `json:"outcome"`
	Seq      int       `json:"seq"`
	PlayedAt time.Time `json:"played_at"`
}

// State is the whole-application snapshot the stores persist and restore.
type State struct {
	Players []PlayerState `json:"players"`
	Matches []MatchRecord `json:"matches"`
	Cycle   int           `json:"cycle"`
}

// RankRow is one row of the read-only ranking view.
type RankRow struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Draws      int     `json:"draws"`
	WinPct     float64 `json:"win_pct"`
}

// Games returns the total number of recorded matches for the row.
func (r RankRow) Games() int { return r.Wins + r.Losses + r.Draws }
