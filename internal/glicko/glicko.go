// Package glicko implements the Glicko-2 rating system as described in
// Professor Mark E. Glickman's paper (https://www.glicko.net/glicko/glicko2.pdf).
//
// Internal variables follow the paper's notation:
//   - mu: rating on the Glicko-2 scale
//   - phi: rating deviation on the Glicko-2 scale
//   - sigma: rating volatility
//   - g, E: weighting and expected-score functions
//   - v: estimated variance from game outcomes
//   - delta: estimated rating improvement
//
// All functions are deterministic and side-effect free.
package glicko

import (
	"fmt"
	"math"
)

// Default seed values for an unrated player, per the paper.
const (
	DefaultRating     = 1500.0
	DefaultDeviation  = 350.0
	DefaultVolatility = 0.06
)

const (
	// tau constrains volatility change per rating period. Smaller values
	// suit games decided by skill more than by upsets.
	tau     = 0.5
	scale   = 173.7178
	epsilon = 0.000001
)

// Rating is a player's strength estimate on the original Glicko scale.
type Rating struct {
	Rating     float64
	Deviation  float64
	Volatility float64
}

// Result is a single game against an opponent within one rating period.
// Score is 1 for a win, 0.5 for a draw, and 0 for a loss.
type Result struct {
	Opponent Rating
	Score    float64
}

// Algorithm evaluates rating updates with a fixed set of seed defaults. It
// satisfies the rater capability the ladder core depends on.
type Algorithm struct {
	seed Rating
}

// New returns an Algorithm seeding unrated players with the given values.
// Non-positive values fall back to the paper defaults.
func New(rating, deviation, volatility float64) *Algorithm {
	seed := Rating{Rating: rating, Deviation: deviation, Volatility: volatility}
	if seed.Rating <= 0 {
		seed.Rating = DefaultRating
	}
	if seed.Deviation <= 0 {
		seed.Deviation = DefaultDeviation
	}
	if seed.Volatility <= 0 {
		seed.Volatility = DefaultVolatility
	}
	return &Algorithm{seed: seed}
}

// Default returns the seed rating for a newly registered player.
func (a *Algorithm) Default() Rating { return a.seed }

// Update applies one rating period with the given results and returns the
// player's new rating triple.
func (a *Algorithm) Update(cur Rating, results []Result) (Rating, error) {
	if len(results) == 0 {
		return a.Skip(cur)
	}
	next := evaluate(cur, results)
	if err := checkFinite(next); err != nil {
		return Rating{}, err
	}
	return next, nil
}

// Skip applies the "no games played" rule for one rating period: the deviation
// grows while the rating and volatility stay put (paper step 6, phi* only).
func (a *Algorithm) Skip(cur Rating) (Rating, error) {
	phi := cur.Deviation / scale
	phiStar := math.Sqrt(phi*phi + cur.Volatility*cur.Volatility)
	next := Rating{
		Rating:     cur.Rating,
		Deviation:  phiStar * scale,
		Volatility: cur.Volatility,
	}
	if err := checkFinite(next); err != nil {
		return Rating{}, err
	}
	return next, nil
}

func checkFinite(r Rating) error {
	for _, v := range [...]float64{r.Rating, r.Deviation, r.Volatility} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("glicko: non-finite rating triple %+v", r)
		}
	}
	return nil
}

// game is a result converted to the Glicko-2 scale with its weighting terms
// precomputed.
type game struct {
	g     float64
	e     float64
	score float64
}

func evaluate(cur Rating, results []Result) Rating {
	// Step 2: convert to the Glicko-2 scale.
	mu := toMu(cur.Rating)
	phi := cur.Deviation / scale
	sigma := cur.Volatility

	games := make([]game, len(results))
	for i, res := range results {
		oppPhi := res.Opponent.Deviation / scale
		g := weight(oppPhi)
		games[i] = game{
			g:     g,
			e:     expected(mu, toMu(res.Opponent.Rating), g),
			score: res.Score,
		}
	}

	// Step 3: estimated variance from game outcomes.
	v := 0.0
	for _, gm := range games {
		v += gm.g * gm.g * gm.e * (1 - gm.e)
	}
	v = 1 / v

	// Step 4: estimated improvement.
	sum := 0.0
	for _, gm := range games {
		sum += gm.g * (gm.score - gm.e)
	}
	delta := v * sum

	// Step 5: new volatility.
	sigma = nextVolatility(sigma, delta, phi, v)

	// Step 6: deviation inflated by volatility.
	phiStar := math.Sqrt(phi*phi + sigma*sigma)

	// Step 7: new deviation and rating.
	phi = 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	mu += phi * phi * sum

	// Step 8: convert back to the original scale.
	return Rating{
		Rating:     scale*mu + 1500,
		Deviation:  phi * scale,
		Volatility: sigma,
	}
}

func toMu(rating float64) float64 { return (rating - 1500) / scale }

func weight(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

func expected(mu, oppMu, g float64) float64 {
	return 1 / (1 + math.Exp(-g*(mu-oppMu)))
}

// nextVolatility solves for sigma' with the Illinois variant of regula falsi
// (paper step 5).
func nextVolatility(sigma, delta, phi, v float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2 * (phi*phi + v + ex) * (phi*phi + v + ex)
		return num/den - (x-a)/(tau*tau)
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		B = a - k*tau
	}

	fA, fB := f(A), f(B)
	for math.Abs(B-A) > epsilon {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}
