package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/table"
	"github.com/ddm-research/donation-monitor/app/tasks"
)

// Failure is a participant whose donation could not be fetched or read.
type Failure struct {
	ParticipantID string
	Err           error
}

// RunReport tallies one reconciliation pass. Participants counts the IDs
// in the current overview.
type RunReport struct {
	Participants int
	Skipped      int
	Processed    int
	NotEligible  int
	Failed       int
	NotRun       int
	Failures     []Failure
	Duration     time.Duration
}

type Options struct {
	StepField    string
	EligibleStep int
	MaxRetries   int
}

type Reconciler struct {
	source    tasks.DonationSource
	extractor *blueprint.Extractor
	runner    tasks.TaskRunnerInterface
	opts      Options
}

func NewReconciler(source tasks.DonationSource, extractor *blueprint.Extractor, runner tasks.TaskRunnerInterface, opts Options) *Reconciler {
	return &Reconciler{
		source:    source,
		extractor: extractor,
		runner:    runner,
		opts:      opts,
	}
}

// Delta splits the ledger into the handled entries to keep and the
// current participants that still need work, sorted by ID.
func Delta(ledger []donation.LedgerEntry, currentIDs []string) ([]donation.LedgerEntry, []string) {
	kept := make([]donation.LedgerEntry, 0, len(ledger))
	handled := make(map[string]bool)
	for _, e := range ledger {
		if e.Handled {
			kept = append(kept, e)
			handled[e.ParticipantID] = true
		}
	}

	seen := make(map[string]bool)
	var toHandle []string
	for _, id := range currentIDs {
		if handled[id] || seen[id] {
			continue
		}
		seen[id] = true
		toHandle = append(toHandle, id)
	}
	sort.Strings(toHandle)

	return kept, toHandle
}

// ParticipantIDs returns the distinct non-null participant IDs of the
// participation table in row order.
func ParticipantIDs(participation *table.Table) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, v := range participation.Column("participant_id") {
		if table.IsNull(v) {
			continue
		}
		id := table.String(v)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Reconcile brings the ledger up to date with the participation table.
// Handled entries are kept as they are; every other current participant
// is processed again. Unhandled entries of the old ledger are dropped and
// replaced by fresh results. Failed participants get no entry.
func (r *Reconciler) Reconcile(ctx context.Context, ledger []donation.LedgerEntry, participation *table.Table, blueprints []blueprint.Blueprint) ([]donation.LedgerEntry, RunReport) {
	start := time.Now()

	currentIDs := ParticipantIDs(participation)
	kept, toHandle := Delta(ledger, currentIDs)

	report := RunReport{
		Participants: len(currentIDs),
		Skipped:      len(currentIDs) - len(toHandle),
	}

	slog.Info("Reconciling participants", "participants", report.Participants, "handled", len(kept), "to_handle", len(toHandle))

	rows := participation.Lookup("participant_id")
	batch := make([]tasks.TaskInterface, 0, len(toHandle))
	pending := make([]*tasks.ProcessParticipantTask, 0, len(toHandle))
	for _, id := range toHandle {
		task := tasks.NewProcessParticipantTask(id, rows[id][r.opts.StepField], r.opts.EligibleStep, blueprints, r.source, r.extractor, r.opts.MaxRetries)
		batch = append(batch, task)
		pending = append(pending, task)
	}

	r.runner.Run(ctx, batch)

	entries := kept
	for _, task := range pending {
		if task.StartedAt == nil {
			report.NotRun++
			continue
		}

		switch task.State {
		case tasks.StateProcessed:
			report.Processed++
			entries = append(entries, *task.Entry)
		case tasks.StateNotEligible:
			report.NotEligible++
			entries = append(entries, *task.Entry)
		default:
			report.Failed++
			report.Failures = append(report.Failures, Failure{ParticipantID: task.ParticipantID, Err: task.Err})
			slog.Error("Participant failed", "participant", task.ParticipantID, "error", task.Err)
		}
	}

	report.Duration = time.Since(start)

	slog.Info("Reconciliation finished", "participants", report.Participants, "skipped", report.Skipped,
		"processed", report.Processed, "not_eligible", report.NotEligible, "failed", report.Failed,
		"not_run", report.NotRun, "duration", report.Duration)

	return entries, report
}
