// Package export writes the ranking view in tabular form.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"

	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

var header = []string{"Name", "Rating", "RD", "Volatility", "Wins", "Losses", "Draws", "WinPct"}

// RankingCSV writes one row per player in the order the sequence yields them.
func RankingCSV(w io.Writer, rows iter.Seq[ladderdto.RankRow]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for row := range rows {
		record := []string{
			row.Name,
			fmt.Sprintf("%.2f", row.Rating),
			fmt.Sprintf("%.2f", row.Deviation),
			fmt.Sprintf("%.5f", row.Volatility),
			fmt.Sprintf("%d", row.Wins),
			fmt.Sprintf("%d", row.Losses),
			fmt.Sprintf("%d", row.Draws),
			fmt.Sprintf("%.2f%%", row.WinPct*100),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row for %s: %w", row.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
