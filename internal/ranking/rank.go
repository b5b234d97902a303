// Package ranking computes dense class ranks from students' total obtained
// marks. Students without test records rank after everyone with a total and
// share one rank among themselves. Ties are never broken.
package ranking

import (
	"sort"
)

// Entry is one student's total obtained marks; Total is nil when the student
// has no test records.
type Entry struct {
	StudentID int64    `bun:"student_id" json:"student_id"`
	Name      string   `bun:"name" json:"name"`
	Total     *float64 `bun:"total" json:"total"`
}

type Ranked struct {
	Entry
	Position int `json:"position"`
}

// DenseRank orders entries by total descending, nulls last, and assigns
// rank = 1 + number of distinct larger totals. Entries with equal totals keep
// their input order.
func DenseRank(entries []Entry) []Ranked {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Total, sorted[j].Total
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})

	out := make([]Ranked, len(sorted))
	position := 0
	for i, e := range sorted {
		if i == 0 || !sameTotal(sorted[i-1].Total, e.Total) {
			position++
		}
		out[i] = Ranked{Entry: e, Position: position}
	}
	return out
}

func sameTotal(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// PositionOf returns the rank of studentID in ranked, or 0 if absent.
func PositionOf(ranked []Ranked, studentID int64) int {
	for _, r := range ranked {
		if r.StudentID == studentID {
			return r.Position
		}
	}
	return 0
}
