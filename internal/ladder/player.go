package ladder

import (
	"github.com/kapu/glicko-ladder-go/internal/glicko"
	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

// Outcome is a match result relative to the first-named player.
type Outcome float64

const (
	WinA Outcome = 1
	Draw Outcome = 0.5
	WinB Outcome = 0
)

func (o Outcome) valid() bool { return o == WinA || o == Draw || o == WinB }

// inverse returns the same result seen from the opponent's side.
func (o Outcome) inverse() Outcome { return 1 - o }

// pendingResult is an unprocessed game awaiting the owner's next rating
// update. Opponents are referenced by name; scores are resolved against the
// pre-cycle rating snapshot when the batch runs.
type pendingResult struct {
	opponent string
	score    float64
}

// player is the registry-owned entity. The service hands out ladderdto views,
// never pointers into this struct.
type player struct {
	name    string
	rating  glicko.Rating
	pending []pendingResult
	wins    int
	losses  int
	draws   int
	history []ladderdto.RatingPoint
}

func newPlayer(name string, seed glicko.Rating, cycle int) *player {
	return &player{
		name:    name,
		rating:  seed,
		history: []ladderdto.RatingPoint{{Rating: seed.Rating, Cycle: cycle}},
	}
}

func (p *player) games() int { return p.wins + p.losses + p.draws }

func (p *player) winPct() float64 {
	if p.games() == 0 {
		return 0
	}
	return float64(p.wins) / float64(p.games())
}

func (p *player) state() ladderdto.PlayerState {
	st := ladderdto.PlayerState{
		Name:       p.name,
		Rating:     p.rating.Rating,
		Deviation:  p.rating.Deviation,
		Volatility: p.rating.Volatility,
		Wins:       p.wins,
		Losses:     p.losses,
		Draws:      p.draws,
		History:    append([]ladderdto.RatingPoint(nil), p.history...),
	}
	for _, pr := range p.pending {
		st.Pending = append(st.Pending, ladderdto.PendingResult{Opponent: pr.opponent, Score: pr.score})
	}
	return st
}

func playerFromState(st ladderdto.PlayerState) *player {
	p := &player{
		name: st.Name,
		rating: glicko.Rating{
			Rating:     st.Rating,
			Deviation:  st.Deviation,
			Volatility: st.Volatility,
		},
		wins:    st.Wins,
		losses:  st.Losses,
		draws:   st.Draws,
		history: append([]ladderdto.RatingPoint(nil), st.History...),
	}
	for _, pr := range st.Pending {
		p.pending = append(p.pending, pendingResult{opponent: pr.Opponent, score: pr.Score})
	}
	if len(p.history) == 0 {
		p.history = []ladderdto.RatingPoint{{Rating: p.rating.Rating, Cycle: 0}}
	}
	return p
}
