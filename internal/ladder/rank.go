package ladder

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

// Criterion selects the ordering of the ranking view.
type Criterion string

const (
	ByRating Criterion = "rating"
	ByWinPct Criterion = "winpct"
	ByGames  Criterion = "games"
)

// ParseCriterion maps a user-supplied criterion name onto a Criterion.
func ParseCriterion(s string) (Criterion, error) {
	switch Criterion(strings.ToLower(strings.TrimSpace(s))) {
	case ByRating, "":
		return ByRating, nil
	case ByWinPct:
		return ByWinPct, nil
	case ByGames:
		return ByGames, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadCriterion, s)
	}
}

// Rank produces a restartable, read-only sequence of ranking rows ordered by
// the given criterion. Ties always break by name ascending; under the
// win-percentage criterion players with zero matches rank strictly last.
func (s *Service) Rank(criterion Criterion) (iter.Seq[ladderdto.RankRow], error) {
	less, err := rankLess(criterion)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	sorted := make([]*player, 0, len(s.players))
	for _, p := range s.players {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	rows := make([]ladderdto.RankRow, len(sorted))
	for i, p := range sorted {
		rows[i] = ladderdto.RankRow{
			Rank:       i + 1,
			Name:       p.name,
			Rating:     p.rating.Rating,
			Deviation:  p.rating.Deviation,
			Volatility: p.rating.Volatility,
			Wins:       p.wins,
			Losses:     p.losses,
			Draws:      p.draws,
			WinPct:     p.winPct(),
		}
	}
	s.mu.RUnlock()

	return func(yield func(ladderdto.RankRow) bool) {
		for _, row := range rows {
			if !yield(row) {
				return
			}
		}
	}, nil
}

func rankLess(criterion Criterion) (func(a, b *player) bool, error) {
	switch criterion {
	case ByRating:
		return func(a, b *player) bool {
			if a.rating.Rating != b.rating.Rating {
				return a.rating.Rating > b.rating.Rating
			}
			return a.name < b.name
		}, nil
	case ByWinPct:
		return func(a, b *player) bool {
			aPlayed, bPlayed := a.games() > 0, b.games() > 0
			if aPlayed != bPlayed {
				return aPlayed
			}
			if a.winPct() != b.winPct() {
				return a.winPct() > b.winPct()
			}
			return a.name < b.name
		}, nil
	case ByGames:
		return func(a, b *player) bool {
			if a.games() != b.games() {
				return a.games() > b.games()
			}
			return a.name < b.name
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadCriterion, criterion)
	}
}

// sortedNames returns registry keys in ascending order. Callers must hold the
// lock.
func (s *Service) sortedNames() []string {
	names := make([]string, 0, len(s.players))
	for name := range s.players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
