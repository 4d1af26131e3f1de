package ladder

import "github.com/kapu/glicko-ladder-go/internal/glicko"

// Rater is the rating-algorithm capability the service depends on. It must be
// deterministic and side-effect free; the service never inspects how the new
// triple is produced.
//
// Update consumes the player's current triple plus one result per pending
// game and returns the post-period triple. Skip applies the algorithm's
// "no games played" rule for one period.
type Rater interface {
	Default() glicko.Rating
	Update(cur glicko.Rating, results []glicko.Result) (glicko.Rating, error)
	Skip(cur glicko.Rating) (glicko.Rating, error)
}
