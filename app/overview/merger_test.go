package overview

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/table"
)

func records(t *testing.T, data string) []*table.Record {
	t.Helper()
	var recs []*table.Record
	if err := json.Unmarshal([]byte(data), &recs); err != nil {
		t.Fatal(err)
	}
	return recs
}

func ids(t *table.Table) []string {
	var out []string
	for _, v := range t.Column(KeyColumn) {
		out = append(out, table.String(v))
	}
	return out
}

var testBlueprints = []blueprint.Blueprint{{ID: "1", Name: "Angesehene Videos"}}

func TestParticipationTableRenamesExternalID(t *testing.T) {
	tbl := ParticipationTable(records(t, `[{"external_id": "A", "current_step": 3, "start_time": "2025-02-20T10:00:00Z"}]`))

	want := []string{"participant_id", "current_step", "start_time"}
	if diff := cmp.Diff(want, tbl.Columns()); diff != "" {
		t.Errorf("Unexpected columns (-want +got):\n%s", diff)
	}
}

func TestResponseTableFlattensResponseData(t *testing.T) {
	tbl := ResponseTable(records(t, `[
		{"participant": "A", "response_data": {"Q1_gender": 1, "Q2_age": "34"}},
		{"participant": "B", "response_data": {"Q2_age": "99", "Q5_first_vote": 4}}
	]`))

	want := []string{"participant_id", "Q1_gender", "Q2_age", "Q5_first_vote"}
	if diff := cmp.Diff(want, tbl.Columns()); diff != "" {
		t.Errorf("Unexpected columns (-want +got):\n%s", diff)
	}
	if got := tbl.Get(1, "Q5_first_vote"); table.Canonical(got) != "4" {
		t.Errorf("Expected first vote 4, got %v", got)
	}
	if got := tbl.Get(1, "Q1_gender"); got != nil {
		t.Errorf("Expected null gender for B, got %v", got)
	}
}

func TestMergeKeepsParticipantFromSingleSource(t *testing.T) {
	participation := ParticipationTable(records(t, `[{"external_id": "A", "current_step": 3}]`))
	responses := ResponseTable(records(t, `[{"participant": "X", "response_data": {"Q2_age": "25"}}]`))
	ledger := LedgerTable([]donation.LedgerEntry{{ParticipantID: "A"}}, testBlueprints)

	merged := Merge(participation, responses, ledger)

	if diff := cmp.Diff([]string{"A", "X"}, ids(merged)); diff != "" {
		t.Fatalf("Unexpected participants (-want +got):\n%s", diff)
	}

	x := merged.Rows()[1]
	if table.String(x["Q2_age"]) != "25" {
		t.Errorf("Expected X's response, got %v", x["Q2_age"])
	}
	for _, column := range []string{"current_step", "handled", "AngeseheneVideos_consent"} {
		if !table.IsNull(x[column]) {
			t.Errorf("Expected null %s for X, got %v", column, x[column])
		}
	}
	if !merged.HasColumn("AngeseheneVideos_n_datapoints") {
		t.Error("Expected ledger columns in merged table")
	}
}

func TestMergeOneRowPerParticipant(t *testing.T) {
	participation := ParticipationTable(records(t, `[{"external_id": "A"}, {"external_id": "B"}]`))
	responses := ResponseTable(records(t, `[
		{"participant": "B", "response_data": {"Q2_age": "30"}},
		{"participant": "B", "response_data": {"Q2_age": "31"}},
		{"participant": null, "response_data": {"Q2_age": "40"}}
	]`))
	ledger := LedgerTable([]donation.LedgerEntry{{ParticipantID: "C", Handled: true}}, testBlueprints)

	merged := Merge(participation, responses, ledger)

	if diff := cmp.Diff([]string{"A", "B", "C"}, ids(merged)); diff != "" {
		t.Fatalf("Unexpected participants (-want +got):\n%s", diff)
	}
	if got := table.String(merged.Rows()[1]["Q2_age"]); got != "31" {
		t.Errorf("Expected last response to win, got %s", got)
	}
}

func TestLedgerTableColumnOrder(t *testing.T) {
	n := 5
	consent := true
	status := "success"
	tbl := LedgerTable([]donation.LedgerEntry{{
		ParticipantID: "B",
		Handled:       true,
		Categories:    []blueprint.CategoryMetrics{{Name: "AngeseheneVideos", Consent: &consent, Status: &status, NDatapoints: &n}},
	}}, testBlueprints)

	want := []string{"participant_id", "AngeseheneVideos_consent", "AngeseheneVideos_status", "AngeseheneVideos_n_datapoints", "handled"}
	if diff := cmp.Diff(want, tbl.Columns()); diff != "" {
		t.Errorf("Unexpected columns (-want +got):\n%s", diff)
	}
	if tbl.Get(0, "AngeseheneVideos_n_datapoints") != 5 {
		t.Errorf("Expected 5 datapoints, got %v", tbl.Get(0, "AngeseheneVideos_n_datapoints"))
	}
}
