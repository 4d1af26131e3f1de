package ladder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kapu/glicko-ladder-go/internal/glicko"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(glicko.New(0, 0, 0), nil)
}

// stubRater identifies players by their (distinct) current rating and records
// every Update call so tests can inspect which opponent values the batch used.
type stubRater struct {
	updates map[float64][]glicko.Result
	skips   int
	failAt  float64
}

func newStubRater() *stubRater {
	return &stubRater{updates: make(map[float64][]glicko.Result), failAt: -1}
}

func (r *stubRater) Default() glicko.Rating {
	return glicko.Rating{Rating: 1500, Deviation: 350, Volatility: 0.06}
}

func (r *stubRater) Update(cur glicko.Rating, results []glicko.Result) (glicko.Rating, error) {
	if cur.Rating == r.failAt {
		return glicko.Rating{}, fmt.Errorf("stub failure at %.0f", cur.Rating)
	}
	r.updates[cur.Rating] = append([]glicko.Result(nil), results...)
	cur.Rating += 100
	return cur, nil
}

func (r *stubRater) Skip(cur glicko.Rating) (glicko.Rating, error) {
	r.skips++
	cur.Deviation += 1
	return cur, nil
}

func seed(r, rd, vol float64) *glicko.Rating {
	return &glicko.Rating{Rating: r, Deviation: rd, Volatility: vol}
}

func TestRegisterAndLookup(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Register("Ana", nil); err != nil {
		t.Fatalf("Register default seed: %v", err)
	}
	got, err := svc.Lookup("Ana")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Rating != glicko.DefaultRating || got.Deviation != glicko.DefaultDeviation || got.Volatility != glicko.DefaultVolatility {
		t.Errorf("default seed = %.1f/%.1f/%.3f", got.Rating, got.Deviation, got.Volatility)
	}
	if len(got.History) != 1 || got.History[0].Rating != glicko.DefaultRating || got.History[0].Cycle != 0 {
		t.Errorf("history not seeded with initial rating: %+v", got.History)
	}

	if _, err := svc.Register("Bob", seed(1800, 120, 0.05)); err != nil {
		t.Fatalf("Register explicit seed: %v", err)
	}
	bob, err := svc.Lookup("Bob")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if bob.Rating != 1800 || bob.Deviation != 120 || bob.Volatility != 0.05 {
		t.Errorf("explicit seed = %.1f/%.1f/%.3f, want 1800/120/0.050", bob.Rating, bob.Deviation, bob.Volatility)
	}
}

func TestRegisterDuplicateLeavesRegistryUnchanged(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Register("Ana", seed(1700, 90, 0.06)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register("Ana", seed(1000, 350, 0.06))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	got, err := svc.Lookup("Ana")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Rating != 1700 {
		t.Errorf("rating changed by failed registration: %.1f", got.Rating)
	}
}

func TestRegisterRejectsInvalidNames(t *testing.T) {
	svc := newTestService(t)
	for _, name := range []string{"", "   ", "way-too-long-name-for-sure", "bad!chars", "emoji☃"} {
		if _, err := svc.Register(name, nil); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Register(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
	// Spaces and underscores are fine.
	if _, err := svc.Register("Jan Kowalski_2", nil); err != nil {
		t.Errorf("Register valid name: %v", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Lookup("Nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("err = %v, want ErrPlayerNotFound", err)
	}
}

func TestRecordMatchEffects(t *testing.T) {
	svc := newTestService(t)
	mustRegister(t, svc, "Ana", "Bob")

	rec, err := svc.RecordMatch("Ana", "Bob", WinA)
	if err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	if rec.Seq != 1 || rec.PlayerA != "Ana" || rec.PlayerB != "Bob" || rec.Outcome != 1 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.ID == "" {
		t.Error("match record missing ID")
	}

	ana, _ := svc.Lookup("Ana")
	bob, _ := svc.Lookup("Bob")
	if ana.Wins != 1 || ana.Losses != 0 || bob.Losses != 1 || bob.Wins != 0 {
		t.Errorf("counters: ana %d/%d bob %d/%d", ana.Wins, ana.Losses, bob.Wins, bob.Losses)
	}
	if len(ana.Pending) != 1 || ana.Pending[0].Opponent != "Bob" || ana.Pending[0].Score != 1 {
		t.Errorf("ana pending: %+v", ana.Pending)
	}
	if len(bob.Pending) != 1 || bob.Pending[0].Opponent != "Ana" || bob.Pending[0].Score != 0 {
		t.Errorf("bob pending: %+v", bob.Pending)
	}
	if got := len(svc.Matches()); got != 1 {
		t.Errorf("match history length = %d, want 1", got)
	}

	if _, err := svc.RecordMatch("Ana", "Bob", Draw); err != nil {
		t.Fatalf("RecordMatch draw: %v", err)
	}
	ana, _ = svc.Lookup("Ana")
	bob, _ = svc.Lookup("Bob")
	if ana.Draws != 1 || bob.Draws != 1 {
		t.Errorf("draw counters: %d/%d", ana.Draws, bob.Draws)
	}
}

func TestRecordMatchRejections(t *testing.T) {
	svc := newTestService(t)
	mustRegister(t, svc, "Ana", "Bob")

	if _, err := svc.RecordMatch("Ana", "Ana", WinA); !errors.Is(err, ErrSamePlayer) {
		t.Errorf("same player err = %v", err)
	}
	if _, err := svc.RecordMatch("Ana", "Ana", 0.3); !errors.Is(err, ErrSamePlayer) {
		t.Errorf("same player should win over outcome check, err = %v", err)
	}
	if _, err := svc.RecordMatch("Ana", "Ghost", WinA); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("missing opponent err = %v", err)
	}
	if _, err := svc.RecordMatch("Ghost", "Bob", WinA); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("missing player err = %v", err)
	}
	if _, err := svc.RecordMatch("Ana", "Bob", 0.75); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("invalid outcome err = %v", err)
	}
	if got := len(svc.Matches()); got != 0 {
		t.Errorf("rejected matches leaked into history: %d", got)
	}
}

// The whole batch must be computed against the pre-cycle snapshot, never
// against opponents already moved within the same call.
func TestUpdateAllUsesPreCycleOpponentRatings(t *testing.T) {
	rater := newStubRater()
	svc := NewService(rater, nil)

	mustRegisterSeed(t, svc, "A", 1000)
	mustRegisterSeed(t, svc, "B", 2000)
	mustRegisterSeed(t, svc, "C", 3000)

	mustMatch(t, svc, "A", "B", WinA)
	mustMatch(t, svc, "B", "C", WinA)

	if err := svc.UpdateAll(); err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}

	// B played A and C; both opponent triples must be the pre-cycle values
	// even though the stub moved every rating by +100 in the same call.
	bResults := rater.updates[2000]
	if len(bResults) != 2 {
		t.Fatalf("B updated with %d results, want 2", len(bResults))
	}
	if bResults[0].Opponent.Rating != 1000 || bResults[0].Score != 0 {
		t.Errorf("B vs A: %+v", bResults[0])
	}
	if bResults[1].Opponent.Rating != 3000 || bResults[1].Score != 1 {
		t.Errorf("B vs C: %+v", bResults[1])
	}
	aResults := rater.updates[1000]
	if len(aResults) != 1 || aResults[0].Opponent.Rating != 2000 {
		t.Errorf("A opponents: %+v", aResults)
	}

	for name, want := range map[string]float64{"A": 1100, "B": 2100, "C": 3100} {
		got, err := svc.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup %s: %v", name, err)
		}
		if got.Rating != want {
			t.Errorf("%s rating = %.0f, want %.0f", name, got.Rating, want)
		}
		if len(got.Pending) != 0 {
			t.Errorf("%s pending not cleared: %+v", name, got.Pending)
		}
		if len(got.History) != 2 || got.History[1].Cycle != 1 {
			t.Errorf("%s history: %+v", name, got.History)
		}
	}
}

func TestUpdateAllFailureCommitsNothing(t *testing.T) {
	rater := newStubRater()
	rater.failAt = 2000
	svc := NewService(rater, nil)

	mustRegisterSeed(t, svc, "A", 1000)
	mustRegisterSeed(t, svc, "B", 2000)
	mustMatch(t, svc, "A", "B", WinA)

	err := svc.UpdateAll()
	if !errors.Is(err, ErrRatingUpdate) {
		t.Fatalf("err = %v, want ErrRatingUpdate", err)
	}

	for name, want := range map[string]float64{"A": 1000, "B": 2000} {
		got, _ := svc.Lookup(name)
		if got.Rating != want {
			t.Errorf("%s rating moved despite aborted batch: %.0f", name, got.Rating)
		}
		if len(got.Pending) != 1 {
			t.Errorf("%s pending consumed despite aborted batch: %+v", name, got.Pending)
		}
		if len(got.History) != 1 {
			t.Errorf("%s history grew despite aborted batch: %+v", name, got.History)
		}
	}
	if svc.Cycle() != 0 {
		t.Errorf("cycle advanced to %d despite aborted batch", svc.Cycle())
	}
}

func TestUpdateAllNoMatchesInflatesDeviationOnly(t *testing.T) {
	svc := newTestService(t)
	mustRegister(t, svc, "Ana")

	before, _ := svc.Lookup("Ana")
	if err := svc.UpdateAll(); err != nil {
		t.Fatalf("UpdateAll #1: %v", err)
	}
	if err := svc.UpdateAll(); err != nil {
		t.Fatalf("UpdateAll #2: %v", err)
	}

	after, _ := svc.Lookup("Ana")
	if after.Rating != before.Rating {
		t.Errorf("rating changed with no games: %.4f -> %.4f", before.Rating, after.Rating)
	}
	if after.Volatility != before.Volatility {
		t.Errorf("volatility changed with no games: %.6f -> %.6f", before.Volatility, after.Volatility)
	}
	if after.Deviation <= before.Deviation {
		t.Errorf("deviation did not grow: %.4f -> %.4f", before.Deviation, after.Deviation)
	}
	if len(after.History) != 3 {
		t.Errorf("history length = %d, want 3 (seed + two cycles)", len(after.History))
	}
}

// Register "Ana" and "Bob", play one match, run a cycle: the scenario from
// the original application, end to end with the real algorithm.
func TestScenarioAnaBeatsBob(t *testing.T) {
	svc := newTestService(t)
	mustRegister(t, svc, "Ana", "Bob")
	mustMatch(t, svc, "Ana", "Bob", WinA)

	if err := svc.UpdateAll(); err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}

	ana, _ := svc.Lookup("Ana")
	bob, _ := svc.Lookup("Bob")
	if ana.Wins != 1 || bob.Losses != 1 {
		t.Errorf("counters: ana.Wins=%d bob.Losses=%d", ana.Wins, bob.Losses)
	}
	if ana.Rating <= glicko.DefaultRating {
		t.Errorf("Ana rating %.2f did not rise above %.0f", ana.Rating, glicko.DefaultRating)
	}
	if bob.Rating >= glicko.DefaultRating {
		t.Errorf("Bob rating %.2f did not fall below %.0f", bob.Rating, glicko.DefaultRating)
	}
	if len(ana.Pending) != 0 || len(bob.Pending) != 0 {
		t.Error("pending lists not cleared after cycle")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	svc := newTestService(t)
	mustRegister(t, svc, "Ana", "Bob", "Cid")
	mustMatch(t, svc, "Ana", "Bob", WinA)
	if err := svc.UpdateAll(); err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}
	mustMatch(t, svc, "Cid", "Ana", Draw)

	snap := svc.Snapshot()

	restored := newTestService(t)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	for _, name := range []string{"Ana", "Bob", "Cid"} {
		want, _ := svc.Lookup(name)
		got, err := restored.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup %s after restore: %v", name, err)
		}
		if got.Rating != want.Rating || got.Wins != want.Wins || len(got.Pending) != len(want.Pending) || len(got.History) != len(want.History) {
			t.Errorf("%s state diverged after restore:\n got %+v\nwant %+v", name, got, want)
		}
	}
	if restored.Cycle() != svc.Cycle() {
		t.Errorf("cycle = %d, want %d", restored.Cycle(), svc.Cycle())
	}
	if len(restored.Matches()) != len(svc.Matches()) {
		t.Errorf("match history length = %d, want %d", len(restored.Matches()), len(svc.Matches()))
	}
}

func TestRestoreRejectsMalformedSnapshots(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Restore(nil); !errors.Is(err, ErrBadSnapshot) {
		t.Errorf("nil snapshot err = %v", err)
	}

	donor := newTestService(t)
	mustRegister(t, donor, "Ana", "Bob")
	mustMatch(t, donor, "Ana", "Bob", WinA)
	snap := donor.Snapshot()
	snap.Players = snap.Players[:1] // drop Bob, leaving Ana's pending dangling
	if err := svc.Restore(snap); !errors.Is(err, ErrBadSnapshot) {
		t.Errorf("dangling opponent err = %v", err)
	}
}

func mustRegister(t *testing.T, svc *Service, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := svc.Register(name, nil); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}
}

func mustRegisterSeed(t *testing.T, svc *Service, name string, rating float64) {
	t.Helper()
	if _, err := svc.Register(name, seed(rating, 200, 0.06)); err != nil {
		t.Fatalf("Register %s: %v", name, err)
	}
}

func mustMatch(t *testing.T, svc *Service, a, b string, outcome Outcome) {
	t.Helper()
	if _, err := svc.RecordMatch(a, b, outcome); err != nil {
		t.Fatalf("RecordMatch %s vs %s: %v", a, b, err)
	}
}
