package batchrun

import (
	"fmt"
	"log"
	"strings"

	types "github.com/okian/attrition/internal/domain/types"
)

// verifyRanking checks the ranking is ordered by score with competition ranks.
func verifyRanking(entries []types.Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("first entry has rank %d", e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		if e.Score > prev.Score {
			return fmt.Errorf("entry %d (%s) scores above entry %d (%s)", i, e.EmployeeID, i-1, prev.EmployeeID)
		}
		want := i + 1
		if e.Score == prev.Score {
			want = prev.Rank
		}
		if e.Rank != want {
			return fmt.Errorf("entry %d (%s) has rank %d, want %d", i, e.EmployeeID, e.Rank, want)
		}
	}
	return nil
}

func displayTop(entries []types.Entry) {
	log.Printf("Top %d employees by attrition risk:", len(entries))
	for _, e := range entries {
		log.Printf("   %d. %s %s/%s - %.3f %s (%s)", e.Rank, e.EmployeeID, e.Department, e.JobRole, e.Score, e.Level, e.Source)
	}
}

func displayScoreStats(entries []types.Entry) {
	if len(entries) == 0 {
		return
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.Score
	}
	log.Printf(`Score statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, sum/float64(len(entries)), entries[0].Score, entries[len(entries)-1].Score)
}

func displayExport(csv string) {
	for _, line := range strings.Split(strings.TrimSpace(csv), "\n") {
		log.Printf("   %s", line)
	}
}
