package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ddm-research/donation-monitor/app/blueprint"
)

type fakeSource struct {
	bodies map[string]string
	err    error
	calls  int
}

func (f *fakeSource) FetchAndCacheRaw(_ context.Context, participantID string) (*blueprint.RawDonation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return blueprint.ParseRawDonation([]byte(f.bodies[participantID]))
}

func (f *fakeSource) ReadCached(participantID string) (*blueprint.RawDonation, error) {
	body, ok := f.bodies[participantID]
	if !ok {
		return nil, errors.New("not cached")
	}
	return blueprint.ParseRawDonation([]byte(body))
}

var testBlueprints = []blueprint.Blueprint{{ID: "1", Name: "Angesehene Videos"}}

func TestEligible(t *testing.T) {
	tests := []struct {
		step any
		want bool
	}{
		{nil, false},
		{"", false},
		{"abc", false},
		{json.Number("1"), false},
		{json.Number("2"), true},
		{"3", true},
		{3.0, true},
		{1, false},
	}

	for _, tt := range tests {
		if got := Eligible(tt.step, 2); got != tt.want {
			t.Errorf("Eligible(%v) = %v, want %v", tt.step, got, tt.want)
		}
	}
}

func TestProcessParticipantTask_NotEligible(t *testing.T) {
	source := &fakeSource{}
	task := NewProcessParticipantTask("A", json.Number("1"), 2, testBlueprints, source, blueprint.NewExtractor(), 0)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if task.State != StateNotEligible {
		t.Errorf("Expected NOT_ELIGIBLE, got %s", task.State)
	}
	if task.Entry == nil || task.Entry.Handled {
		t.Errorf("Expected unhandled entry, got %+v", task.Entry)
	}
	if source.calls != 0 {
		t.Errorf("Expected no fetch, got %d", source.calls)
	}
}

func TestProcessParticipantTask_Processed(t *testing.T) {
	source := &fakeSource{bodies: map[string]string{
		"B": `{"blueprints": {"1": {"donations": [{"consent": true, "status": "success", "data": [{}, {}, {}, {}, {}]}]}}}`,
	}}
	task := NewProcessParticipantTask("B", json.Number("3"), 2, testBlueprints, source, blueprint.NewExtractor(), 0)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if task.State != StateProcessed {
		t.Errorf("Expected PROCESSED, got %s", task.State)
	}
	if !task.Entry.Handled || len(task.Entry.Categories) != 1 {
		t.Fatalf("Unexpected entry %+v", task.Entry)
	}
	n := task.Entry.Categories[0].NDatapoints
	if n == nil || *n != 5 {
		t.Errorf("Expected 5 datapoints, got %v", n)
	}
}

func TestProcessParticipantTask_FetchFailure(t *testing.T) {
	fetchErr := errors.New("timeout")
	task := NewProcessParticipantTask("C", "4", 2, testBlueprints, &fakeSource{err: fetchErr}, blueprint.NewExtractor(), 0)

	err := task.Execute(context.Background())

	if !errors.Is(err, fetchErr) {
		t.Errorf("Expected fetch error, got %v", err)
	}
	if task.State != StateFailed || task.Entry != nil {
		t.Errorf("Expected FAILED without entry, got %s %+v", task.State, task.Entry)
	}
}
