package export

import (
	"encoding/csv"
	"iter"
	"strings"
	"testing"

	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

func rowSeq(rows ...ladderdto.RankRow) iter.Seq[ladderdto.RankRow] {
	return func(yield func(ladderdto.RankRow) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}

func TestRankingCSV(t *testing.T) {
	var sb strings.Builder
	err := RankingCSV(&sb, rowSeq(
		ladderdto.RankRow{Rank: 1, Name: "Ana", Rating: 1543.2145, Deviation: 180.533, Volatility: 0.059987, Wins: 2, Losses: 1, WinPct: 2.0 / 3.0},
		ladderdto.RankRow{Rank: 2, Name: "Bob", Rating: 1456.8, Deviation: 181.1, Volatility: 0.06, Losses: 2, Draws: 1, WinPct: 0},
	))
	if err != nil {
		t.Fatalf("RankingCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	if records[0][0] != "Name" || records[0][7] != "WinPct" {
		t.Errorf("header = %v", records[0])
	}
	want := []string{"Ana", "1543.21", "180.53", "0.05999", "2", "1", "0", "66.67%"}
	for i, cell := range want {
		if records[1][i] != cell {
			t.Errorf("row 1 col %d = %q, want %q", i, records[1][i], cell)
		}
	}
	if records[2][0] != "Bob" || records[2][7] != "0.00%" {
		t.Errorf("row 2 = %v", records[2])
	}
}

func TestRankingCSVEmpty(t *testing.T) {
	var sb strings.Builder
	if err := RankingCSV(&sb, rowSeq()); err != nil {
		t.Fatalf("RankingCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("empty ranking produced %d lines, want header only", len(lines))
	}
}
