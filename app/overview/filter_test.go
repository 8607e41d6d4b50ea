package overview

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ddm-research/donation-monitor/app/study"
	"github.com/ddm-research/donation-monitor/app/table"
)

func overviewTable() *table.Table {
	t := table.New("participant_id", "start_time", "Q2_age", "completed", "AngeseheneVideos_consent")
	t.Append(table.Row{"participant_id": "early", "start_time": "2025-01-01", "Q2_age": "30", "completed": true})
	t.Append(table.Row{"participant_id": "ok", "start_time": "2025-02-20 10:00:00", "Q2_age": "30", "completed": true, "AngeseheneVideos_consent": true})
	t.Append(table.Row{"participant_id": "test-num", "start_time": "2025-03-01T08:00:00Z", "Q2_age": 99.0})
	t.Append(table.Row{"participant_id": "test-text", "start_time": "2025-03-01T08:00:00Z", "Q2_age": "99"})
	t.Append(table.Row{"participant_id": "no-start", "Q2_age": "30"})
	t.Append(table.Row{"participant_id": "first-day", "start_time": "2025-02-16 00:30:00", "completed": "False", "AngeseheneVideos_consent": "True"})
	return t
}

func TestFilterUsable(t *testing.T) {
	full := overviewTable()

	usable := NewFilter(study.Default()).Usable(full)

	if diff := cmp.Diff([]string{"ok", "first-day"}, ids(usable)); diff != "" {
		t.Errorf("Unexpected usable rows (-want +got):\n%s", diff)
	}
	if full.Len() != 6 {
		t.Errorf("Expected unfiltered table to keep 6 rows, got %d", full.Len())
	}
	if full.Rows()[0]["participant_id"] != "early" {
		t.Error("Expected early row retained in unfiltered table")
	}
}

func TestSummarize(t *testing.T) {
	usable := NewFilter(study.Default()).Usable(overviewTable())

	got := Summarize(usable, study.Default())

	want := Summary{Started: 2, Completed: 1, Donated: 2}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}
