package blueprint

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testBlueprints = []Blueprint{
	{ID: "1", Name: "Angesehene Videos"},
	{ID: "2", Name: "Likes"},
	{ID: "3", Name: "Suchen"},
}

func mustParse(t *testing.T, data string) *RawDonation {
	t.Helper()
	raw, err := ParseRawDonation([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestBlueprintUnmarshalNumericID(t *testing.T) {
	var bps []Blueprint
	if err := json.Unmarshal([]byte(`[{"id": 1, "name": "Angesehene Videos"}, {"id": "2", "name": "Likes"}]`), &bps); err != nil {
		t.Fatal(err)
	}

	want := []Blueprint{{ID: "1", Name: "Angesehene Videos"}, {ID: "2", Name: "Likes"}}
	if diff := cmp.Diff(want, bps); diff != "" {
		t.Errorf("Unexpected blueprints (-want +got):\n%s", diff)
	}
	if bps[0].Prefix() != "AngeseheneVideos" {
		t.Errorf("Expected prefix 'AngeseheneVideos', got '%s'", bps[0].Prefix())
	}

	var bp Blueprint
	if err := json.Unmarshal([]byte(`{"name": "no id"}`), &bp); err == nil {
		t.Error("Expected error for blueprint without id")
	}
}

func TestParseRawDonation(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"blueprints": {"1": {"donations": []}}}`, false},
		{"empty blueprints", `{"blueprints": {}}`, false},
		{"null blueprints", `{"blueprints": null}`, false},
		{"error body", `{"errors": ["JSONDecodeError"]}`, true},
		{"blueprints not object", `{"blueprints": [1, 2]}`, true},
		{"not json", `<html>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRawDonation([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseRawDonation() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSummarizeMissingBlueprintIsNull(t *testing.T) {
	raw := mustParse(t, `{
		"blueprints": {
			"1": {"donations": [{"consent": true, "status": "success", "data": [{}, {}, {}, {}, {}]}]},
			"2": {"donations": [{"consent": false, "status": "nodata", "data": []}]}
		}
	}`)

	summary := NewExtractor().Summarize(raw, testBlueprints)

	if len(summary.Categories) != 3 {
		t.Fatalf("Expected 3 categories, got %d", len(summary.Categories))
	}
	if len(summary.Failures()) != 0 {
		t.Errorf("Expected no failures, got %v", summary.Failures())
	}

	videos := summary.Categories[0].Metrics
	if videos.Name != "AngeseheneVideos" {
		t.Errorf("Expected name 'AngeseheneVideos', got '%s'", videos.Name)
	}
	if videos.Consent == nil || !*videos.Consent {
		t.Errorf("Expected consent true, got %v", videos.Consent)
	}
	if videos.Status == nil || *videos.Status != "success" {
		t.Errorf("Expected status 'success', got %v", videos.Status)
	}
	if videos.NDatapoints == nil || *videos.NDatapoints != 5 {
		t.Errorf("Expected 5 datapoints, got %v", videos.NDatapoints)
	}

	likes := summary.Categories[1].Metrics
	if likes.NDatapoints == nil || *likes.NDatapoints != 0 {
		t.Errorf("Expected 0 datapoints for likes, got %v", likes.NDatapoints)
	}
	if likes.Consent == nil || *likes.Consent {
		t.Errorf("Expected consent false for likes, got %v", likes.Consent)
	}

	search := summary.Categories[2].Metrics
	if !search.IsNull() {
		t.Errorf("Expected null metrics for missing blueprint, got %+v", search)
	}
	if search.Name != "Suchen" {
		t.Errorf("Expected name 'Suchen', got '%s'", search.Name)
	}
}

func TestSummarizeZeroSubmissionsIsNull(t *testing.T) {
	raw := mustParse(t, `{"blueprints": {"1": {"donations": []}, "2": null}}`)

	summary := NewExtractor().Summarize(raw, testBlueprints[:2])

	for _, c := range summary.Categories {
		if !c.Metrics.IsNull() {
			t.Errorf("Expected null metrics for %s, got %+v", c.Blueprint.ID, c.Metrics)
		}
		if c.Err != nil {
			t.Errorf("Expected no error for %s, got %v", c.Blueprint.ID, c.Err)
		}
	}
}

func TestSummarizeMalformedBlueprintDoesNotAffectOthers(t *testing.T) {
	raw := mustParse(t, `{
		"blueprints": {
			"1": {"donations": [{"consent": "yes", "status": "success", "data": []}]},
			"2": {"donations": {"oops": true}},
			"3": {"donations": [{"consent": true, "status": "success", "data": [{"Date": "2025-03-01"}]}]}
		}
	}`)

	summary := NewExtractor().Summarize(raw, testBlueprints)

	failures := summary.Failures()
	if len(failures) != 2 {
		t.Fatalf("Expected 2 failures, got %d: %v", len(failures), failures)
	}
	if failures[0].BlueprintID != "1" || failures[1].BlueprintID != "2" {
		t.Errorf("Unexpected failing blueprints %s, %s", failures[0].BlueprintID, failures[1].BlueprintID)
	}
	if !summary.Categories[0].Metrics.IsNull() || !summary.Categories[1].Metrics.IsNull() {
		t.Error("Expected malformed blueprints to degrade to null metrics")
	}

	search := summary.Categories[2].Metrics
	if search.NDatapoints == nil || *search.NDatapoints != 1 {
		t.Errorf("Expected 1 datapoint for search, got %v", search.NDatapoints)
	}
}

func TestSummarizeMissingDataIsMalformed(t *testing.T) {
	raw := mustParse(t, `{"blueprints": {"1": {"donations": [{"consent": true, "status": "success"}]}}}`)

	summary := NewExtractor().Summarize(raw, testBlueprints[:1])

	if len(summary.Failures()) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(summary.Failures()))
	}
	if !summary.Categories[0].Metrics.IsNull() {
		t.Errorf("Expected null metrics, got %+v", summary.Categories[0].Metrics)
	}
}

func TestSummarizeUsesFirstSubmission(t *testing.T) {
	raw := mustParse(t, `{"blueprints": {"2": {"donations": [
		{"consent": true, "status": "success", "data": [{}, {}]},
		{"consent": false, "status": "failed", "data": []}
	]}}}`)

	summary := NewExtractor().Summarize(raw, []Blueprint{{ID: "2", Name: "Likes"}})

	m := summary.Categories[0].Metrics
	if m.NDatapoints == nil || *m.NDatapoints != 2 || !*m.Consent || *m.Status != "success" {
		t.Errorf("Expected metrics of the first submission, got %+v", m)
	}
}
