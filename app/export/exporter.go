package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/table"
	"github.com/ddm-research/donation-monitor/app/tasks"
)

// Source lists and reads cached donations.
type Source interface {
	tasks.CachedDonations
	CachedParticipants() ([]string, error)
}

type Result struct {
	Cached     int
	Selected   int
	Successful int
	Failed     int
	NotRun     int
	Rows       int
	Failures   []string
	Duration   time.Duration
}

// Exporter writes one activities CSV per cached donation of a usable
// participant.
type Exporter struct {
	source    Source
	extractor *blueprint.Extractor
	runner    tasks.TaskRunnerInterface
	outputDir string
}

func NewExporter(source Source, extractor *blueprint.Extractor, runner tasks.TaskRunnerInterface, outputDir string) *Exporter {
	return &Exporter{
		source:    source,
		extractor: extractor,
		runner:    runner,
		outputDir: outputDir,
	}
}

// UsableIDs returns the participant IDs of a usable overview.
func UsableIDs(usable *table.Table) (map[string]bool, error) {
	if !usable.HasColumn("participant_id") {
		return nil, fmt.Errorf("overview has no participant_id column")
	}

	ids := make(map[string]bool, usable.Len())
	for _, v := range usable.Column("participant_id") {
		if !table.IsNull(v) {
			ids[table.String(v)] = true
		}
	}
	return ids, nil
}

// Run exports the cached donations of the given participants. Per-item
// failures are logged and counted; only listing the cache fails the run.
func (e *Exporter) Run(ctx context.Context, usable map[string]bool) (Result, error) {
	return e.run(ctx, e.outputDir, func(id string) bool { return usable[id] }, func(id string) exportTask {
		return tasks.NewExportActivitiesTask(id, e.outputDir, e.source, e.extractor)
	})
}

// VideoLists writes the watched video IDs of the given participants, or of
// every cached participant when none are given, into outputDir.
func (e *Exporter) VideoLists(ctx context.Context, participants []string, year int, outputDir string) (Result, error) {
	selected := make(map[string]bool, len(participants))
	for _, id := range participants {
		selected[id] = true
	}

	return e.run(ctx, outputDir, func(id string) bool { return len(selected) == 0 || selected[id] }, func(id string) exportTask {
		return tasks.NewExportVideoListTask(id, outputDir, year, e.source, e.extractor)
	})
}

type exportTask interface {
	tasks.TaskInterface
	OutputPath() string
	Outcome() (rows int, err error)
}

func (e *Exporter) run(ctx context.Context, outputDir string, keep func(string) bool, build func(string) exportTask) (Result, error) {
	start := time.Now()

	cached, err := e.source.CachedParticipants()
	if err != nil {
		return Result{}, err
	}

	var batch []tasks.TaskInterface
	var pending []exportTask
	for _, id := range cached {
		if !keep(id) {
			continue
		}
		task := build(id)
		batch = append(batch, task)
		pending = append(pending, task)
	}

	slog.Info("Exporting donations", "cached", len(cached), "selected", len(pending), "output_dir", outputDir)

	stats := e.runner.Run(ctx, batch)

	result := Result{
		Cached:     len(cached),
		Selected:   len(pending),
		Successful: stats.Succeeded,
		Failed:     stats.Failed,
		NotRun:     stats.NotRun,
	}
	for _, task := range pending {
		rows, err := task.Outcome()
		result.Rows += rows
		if err != nil {
			result.Failures = append(result.Failures, task.GetParticipantID())
			slog.Warn("Export failed", "type", task.GetType(), "participant", task.GetParticipantID(), "output", task.OutputPath(), "error", err)
		}
	}
	result.Duration = time.Since(start)

	slog.Info("Export finished", "successful", result.Successful, "failed", result.Failed, "not_run", result.NotRun, "rows", result.Rows, "duration", result.Duration)

	return result, nil
}
