package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/table"
)

// ParticipantState is the outcome of one processed participant. Already
// handled participants get no task; the reconciler only counts them.
type ParticipantState string

const (
	StateNotEligible ParticipantState = "NOT_ELIGIBLE"
	StateProcessed   ParticipantState = "PROCESSED"
	StateFailed      ParticipantState = "FAILED"
)

// ProcessParticipantTask decides one participant's ledger entry: not
// eligible below the step threshold, otherwise the donation is fetched
// (or read from cache) and summarized per blueprint.
type ProcessParticipantTask struct {
	Task
	Step         any
	EligibleStep int
	Blueprints   []blueprint.Blueprint
	source       DonationSource
	extractor    *blueprint.Extractor

	State ParticipantState
	Entry *donation.LedgerEntry
	Err   error
}

func NewProcessParticipantTask(participantID string, step any, eligibleStep int, blueprints []blueprint.Blueprint,
	source DonationSource, extractor *blueprint.Extractor, maxRetries int) *ProcessParticipantTask {
	return &ProcessParticipantTask{
		Task:         NewTask(TaskTypeProcessParticipant, participantID, maxRetries),
		Step:         step,
		EligibleStep: eligibleStep,
		Blueprints:   blueprints,
		source:       source,
		extractor:    extractor,
		State:        StateFailed,
	}
}

// Eligible reports whether the participant reached the eligibility step.
// A missing or non-numeric step is not eligible.
func Eligible(step any, eligibleStep int) bool {
	s, ok := table.Float(step)
	return ok && s >= float64(eligibleStep)
}

func (t *ProcessParticipantTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		t.State, t.Err = StateFailed, ctx.Err()
		return ctx.Err()
	default:
	}

	if !Eligible(t.Step, t.EligibleStep) {
		slog.Debug("Participant not eligible yet", "participant", t.ParticipantID, "step", t.Step)
		t.State = StateNotEligible
		t.Entry = &donation.LedgerEntry{ParticipantID: t.ParticipantID, Handled: false}
		t.Err = nil
		return nil
	}

	raw, err := t.source.FetchAndCacheRaw(ctx, t.ParticipantID)
	if err != nil {
		t.State = StateFailed
		t.Entry = nil
		t.Err = fmt.Errorf("failed to fetch donation: %w", err)
		return t.Err
	}

	summary := t.extractor.Summarize(raw, t.Blueprints)
	for _, failure := range summary.Failures() {
		slog.Warn("Blueprint could not be read", "participant", t.ParticipantID, "blueprint", failure.BlueprintID, "error", failure.Err)
	}

	t.State = StateProcessed
	t.Entry = &donation.LedgerEntry{
		ParticipantID: t.ParticipantID,
		Handled:       true,
		Categories:    summary.Metrics(),
	}
	t.Err = nil

	return nil
}
