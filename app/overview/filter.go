package overview

import (
	"log/slog"
	"time"

	"github.com/ddm-research/donation-monitor/app/study"
	"github.com/ddm-research/donation-monitor/app/table"
)

// Filter selects the usable rows of an overview: started on or after the
// collection start, not a test submission.
type Filter struct {
	startField      string
	ageField        string
	collectionStart time.Time
	testSentinel    string
}

func NewFilter(s *study.Study) *Filter {
	return &Filter{
		startField:      s.Fields.StartTime,
		ageField:        s.Fields.Age,
		collectionStart: s.CollectionStartsAt(),
		testSentinel:    table.Canonical(s.TestAgeSentinel),
	}
}

// Usable returns a new table with the rows that pass both inclusion
// rules. Rows without a readable start time are excluded. The input is
// left untouched.
func (f *Filter) Usable(t *table.Table) *table.Table {
	beforeStart, testRows := 0, 0

	usable := t.Filter(func(row table.Row) bool {
		started, ok := table.Time(row[f.startField])
		if !ok || started.Before(f.collectionStart) {
			beforeStart++
			return false
		}
		if !table.IsNull(row[f.ageField]) && table.Canonical(row[f.ageField]) == f.testSentinel {
			testRows++
			return false
		}
		return true
	})

	slog.Debug("Usable rows selected", "usable", usable.Len(), "total", t.Len(), "before_start", beforeStart, "test", testRows)

	return usable
}
