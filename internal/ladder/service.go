// Package ladder implements the rating-tracker core: the player registry, the
// match recorder, the per-period batch rating update, and the ranking view.
// Persistence, export, and presentation live behind the ladderdto boundary.
package ladder

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/glicko-ladder-go/internal/glicko"
	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

// namePattern mirrors the registration contract of the presentation boundary:
// non-empty, at most 20 characters, letters/digits/underscore/space.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_ ]{1,20}$`)

// Service owns the player registry, the global match history, and the rating
// period counter. All operations run to completion on the calling goroutine;
// the mutex only guards against accidental concurrent use.
type Service struct {
	mu    sync.RWMutex
	rater Rater
	log   *zap.Logger

	players map[string]*player
	matches []ladderdto.MatchRecord
	cycle   int

	now func() time.Time
}

func NewService(rater Rater, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		rater:   rater,
		log:     log,
		players: make(map[string]*player),
		now:     time.Now,
	}
}

// Register creates a player with the supplied seed triple, or the rater's
// defaults when seed is nil. The registry is left untouched on failure.
func (s *Service) Register(name string, seed *glicko.Rating) (ladderdto.PlayerState, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return ladderdto.PlayerState{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[name]; ok {
		return ladderdto.PlayerState{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	rating := s.rater.Default()
	if seed != nil {
		rating = *seed
	}
	p := newPlayer(name, rating, s.cycle)
	s.players[name] = p

	s.log.Info("player registered",
		zap.String("name", name),
		zap.Float64("rating", rating.Rating),
		zap.Float64("deviation", rating.Deviation))
	return p.state(), nil
}

// Lookup returns a copy of the player's current state.
func (s *Service) Lookup(name string) (ladderdto.PlayerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[strings.TrimSpace(name)]
	if !ok {
		return ladderdto.PlayerState{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}
	return p.state(), nil
}

// RecordMatch registers a completed match between two distinct players.
// Both sides gain a complementary pending result and the win/loss/draw
// counters move; the rating itself does not change until the next UpdateAll.
func (s *Service) RecordMatch(nameA, nameB string, outcome Outcome) (ladderdto.MatchRecord, error) {
	nameA = strings.TrimSpace(nameA)
	nameB = strings.TrimSpace(nameB)
	if nameA == nameB {
		return ladderdto.MatchRecord{}, fmt.Errorf("%w: %s", ErrSamePlayer, nameA)
	}
	if !outcome.valid() {
		return ladderdto.MatchRecord{}, fmt.Errorf("%w: %v", ErrInvalidOutcome, float64(outcome))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.players[nameA]
	if !ok {
		return ladderdto.MatchRecord{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, nameA)
	}
	b, ok := s.players[nameB]
	if !ok {
		return ladderdto.MatchRecord{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, nameB)
	}

	a.pending = append(a.pending, pendingResult{opponent: nameB, score: float64(outcome)})
	b.pending = append(b.pending, pendingResult{opponent: nameA, score: float64(outcome.inverse())})

	switch outcome {
	case WinA:
		a.wins++
		b.losses++
	case Draw:
		a.draws++
		b.draws++
	case WinB:
		a.losses++
		b.wins++
	}

	rec := ladderdto.MatchRecord{
		ID:       uuid.NewString(),
		PlayerA:  nameA,
		PlayerB:  nameB,
		Outcome:  float64(outcome),
		Seq:      len(s.matches) + 1,
		PlayedAt: s.now(),
	}
	s.matches = append(s.matches, rec)

	s.log.Info("match recorded",
		zap.String("player_a", nameA),
		zap.String("player_b", nameB),
		zap.Float64("outcome", float64(outcome)),
		zap.Int("seq", rec.Seq))
	return rec, nil
}

// UpdateAll advances every player by exactly one rating period, consuming all
// pending results. Every update is computed against the pre-cycle rating
// snapshot, then committed in one pass: either all players move to the new
// period or none do.
func (s *Service) UpdateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Consistent opponent snapshot as of the start of the cycle.
	snap := make(map[string]glicko.Rating, len(s.players))
	for name, p := range s.players {
		snap[name] = p.rating
	}

	next := make(map[string]glicko.Rating, len(s.players))
	for name, p := range s.players {
		var (
			updated glicko.Rating
			err     error
		)
		if len(p.pending) == 0 {
			updated, err = s.rater.Skip(p.rating)
		} else {
			results := make([]glicko.Result, len(p.pending))
			for i, pr := range p.pending {
				results[i] = glicko.Result{Opponent: snap[pr.opponent], Score: pr.score}
			}
			updated, err = s.rater.Update(p.rating, results)
		}
		if err != nil {
			return fmt.Errorf("%w: player %s: %v", ErrRatingUpdate, name, err)
		}
		next[name] = updated
	}

	// Commit only after every triple computed successfully.
	s.cycle++
	for name, p := range s.players {
		p.rating = next[name]
		p.history = append(p.history, ladderdto.RatingPoint{Rating: p.rating.Rating, Cycle: s.cycle})
		p.pending = nil
	}

	s.log.Info("rating period committed",
		zap.Int("cycle", s.cycle),
		zap.Int("players", len(s.players)))
	return nil
}

// Matches returns a copy of the global match history, oldest first.
func (s *Service) Matches() []ladderdto.MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ladderdto.MatchRecord(nil), s.matches...)
}

// Cycle returns the number of committed rating periods.
func (s *Service) Cycle() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycle
}

// Snapshot serializes the whole application state for persistence. Players
// are emitted in name order so saved files diff cleanly.
func (s *Service) Snapshot() *ladderdto.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &ladderdto.State{
		Players: make([]ladderdto.PlayerState, 0, len(s.players)),
		Matches: append([]ladderdto.MatchRecord(nil), s.matches...),
		Cycle:   s.cycle,
	}
	for _, name := range s.sortedNames() {
		st.Players = append(st.Players, s.players[name].state())
	}
	return st
}

// Restore replaces the in-memory state with a previously saved snapshot.
func (s *Service) Restore(st *ladderdto.State) error {
	if st == nil {
		return fmt.Errorf("%w: nil snapshot", ErrBadSnapshot)
	}

	players := make(map[string]*player, len(st.Players))
	for _, ps := range st.Players {
		if ps.Name == "" {
			return fmt.Errorf("%w: player with empty name", ErrBadSnapshot)
		}
		if _, ok := players[ps.Name]; ok {
			return fmt.Errorf("%w: duplicate player %s", ErrBadSnapshot, ps.Name)
		}
		players[ps.Name] = playerFromState(ps)
	}
	for _, ps := range st.Players {
		for _, pr := range ps.Pending {
			if _, ok := players[pr.Opponent]; !ok {
				return fmt.Errorf("%w: pending opponent %s missing", ErrBadSnapshot, pr.Opponent)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = players
	s.matches = append([]ladderdto.MatchRecord(nil), st.Matches...)
	s.cycle = st.Cycle

	s.log.Debug("state restored",
		zap.Int("players", len(players)),
		zap.Int("matches", len(s.matches)),
		zap.Int("cycle", s.cycle))
	return nil
}
