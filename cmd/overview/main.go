package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/cfg"
	"github.com/ddm-research/donation-monitor/app/database"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/platform"
	"github.com/ddm-research/donation-monitor/app/reconcile"
	"github.com/ddm-research/donation-monitor/app/report"
	"github.com/ddm-research/donation-monitor/app/study"
	"github.com/ddm-research/donation-monitor/app/tasks"
)

func main() {
	c, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}
	c.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		slog.Error("Overview run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cfg.Cfg) error {
	startedAt := time.Now()

	slog.Info("Starting donation overview", "version", c.Version, "base_url", c.BaseURL, "workers", c.WorkerCount)

	s, err := study.Load(c.StudyFile)
	if err != nil {
		return fmt.Errorf("failed to load study: %w", err)
	}

	client := platform.NewClient(c)

	ov, err := client.GetOverview(ctx)
	if err != nil {
		return err
	}
	responses, err := client.GetResponses(ctx)
	if err != nil {
		return err
	}
	slog.Info("Fetched platform data", "participants", len(ov.Participants), "responses", len(responses.Responses), "blueprints", len(ov.Blueprints))

	store := donation.NewStore(c.LedgerPath(), c.DonationsDir(), client)
	ledger, err := store.Load()
	if err != nil {
		return err
	}

	participation := overview.ParticipationTable(ov.Participants)

	reconciler := reconcile.NewReconciler(store, blueprint.NewExtractor(), tasks.NewRunner(c.WorkerCount), reconcile.Options{
		StepField:    s.Fields.CurrentStep,
		EligibleStep: s.EligibleStep,
		MaxRetries:   c.MaxRetries,
	})
	entries, runReport := reconciler.Reconcile(ctx, ledger, participation, ov.Blueprints)

	// Results gathered before an interrupt are kept.
	if err := store.Save(entries); err != nil {
		return err
	}
	slog.Info("Ledger saved", "path", store.LedgerPath(), "entries", len(entries))

	merged := overview.Merge(
		participation,
		overview.ResponseTable(responses.Responses),
		overview.LedgerTable(entries, ov.Blueprints),
	)

	snapshots := overview.NewSnapshotStore(c.OverviewDir())
	snapshotPath, err := snapshots.WriteSnapshot(merged, time.Now())
	if err != nil {
		return err
	}
	slog.Info("Snapshot written", "path", snapshotPath, "rows", merged.Len())

	usable := overview.NewFilter(s).Usable(merged)
	summary := overview.Summarize(usable, s)
	report.RenderSummary(os.Stdout, summary)

	recordRun(c.DBPath, &database.Run{
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		Participants: runReport.Participants,
		Skipped:      runReport.Skipped,
		Processed:    runReport.Processed,
		NotEligible:  runReport.NotEligible,
		Failed:       runReport.Failed,
		NotRun:       runReport.NotRun,
		Snapshot:     filepath.Base(snapshotPath),
		Usable:       usable.Len(),
		Completed:    summary.Completed,
		Donated:      summary.Donated,
	}, runReport.Failures)

	if ctx.Err() != nil {
		slog.Warn("Run interrupted, remaining participants are picked up next run", "not_run", runReport.NotRun)
	}

	return nil
}

// recordRun stores the run in the history database. Failing to do so is
// logged only.
func recordRun(dbPath string, run *database.Run, failures []reconcile.Failure) {
	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("Failed to open run history", "path", dbPath, "error", err)
		return
	}
	defer db.Close()

	rows := make([]database.RunFailure, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, database.RunFailure{ParticipantID: f.ParticipantID, Error: f.Err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.NewRunRepository(db).CreateRun(ctx, run, rows); err != nil {
		slog.Error("Failed to record run", "error", err)
		return
	}
	slog.Debug("Run recorded", "run", run.ID, "failures", len(rows))
}
