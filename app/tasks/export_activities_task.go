package tasks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/table"
)

// ExportActivitiesTask writes one participant's activity rows to
// <outputDir>/<id>_activities.csv.
type ExportActivitiesTask struct {
	Task
	OutputDir string
	source    CachedDonations
	extractor *blueprint.Extractor

	Rows   int
	Report blueprint.ActivityReport
	Err    error
}

func NewExportActivitiesTask(participantID, outputDir string, source CachedDonations, extractor *blueprint.Extractor) *ExportActivitiesTask {
	return &ExportActivitiesTask{
		Task:      NewTask(TaskTypeExportActivities, participantID, 0),
		OutputDir: outputDir,
		source:    source,
		extractor: extractor,
	}
}

func (t *ExportActivitiesTask) OutputPath() string {
	return filepath.Join(t.OutputDir, t.ParticipantID+"_activities.csv")
}

func (t *ExportActivitiesTask) Outcome() (int, error) {
	return t.Rows, t.Err
}

func (t *ExportActivitiesTask) Execute(ctx context.Context) error {
	t.Err = t.export(ctx)
	return t.Err
}

func (t *ExportActivitiesTask) export(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	raw, err := t.source.ReadCached(t.ParticipantID)
	if err != nil {
		return err
	}

	activities, report := t.extractor.ExtractActivities(t.ParticipantID, raw)
	for _, failure := range report.Failures() {
		slog.Debug("Activity category omitted", "participant", t.ParticipantID, "blueprint", failure.BlueprintID, "error", failure.Err)
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, activities); err != nil {
		return &donation.FileError{Path: t.OutputPath(), Op: "encode", Err: err}
	}
	if err := donation.WriteFileAtomic(t.OutputPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write activities: %w", err)
	}

	t.Rows = activities.Len()
	t.Report = report

	return nil
}
