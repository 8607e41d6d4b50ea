package tasks

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/donation"
)

// ExportVideoListTask writes the watched video IDs of one participant to
// <outputDir>/<id>.csv, one ID per line and without a header.
type ExportVideoListTask struct {
	Task
	OutputDir string
	Year      int
	source    CachedDonations
	extractor *blueprint.Extractor

	List blueprint.VideoList
	Err  error
}

func NewExportVideoListTask(participantID, outputDir string, year int, source CachedDonations, extractor *blueprint.Extractor) *ExportVideoListTask {
	return &ExportVideoListTask{
		Task:      NewTask(TaskTypeExportVideoList, participantID, 0),
		OutputDir: outputDir,
		Year:      year,
		source:    source,
		extractor: extractor,
	}
}

func (t *ExportVideoListTask) OutputPath() string {
	return filepath.Join(t.OutputDir, t.ParticipantID+".csv")
}

func (t *ExportVideoListTask) Outcome() (int, error) {
	return len(t.List.IDs), t.Err
}

func (t *ExportVideoListTask) Execute(ctx context.Context) error {
	t.Err = t.export(ctx)
	return t.Err
}

func (t *ExportVideoListTask) export(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := t.source.ReadCached(t.ParticipantID)
	if err != nil {
		return err
	}

	list, err := t.extractor.WatchedVideoIDs(raw, t.Year)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, id := range list.IDs {
		if err := w.Write([]string{id}); err != nil {
			return &donation.FileError{Path: t.OutputPath(), Op: "encode", Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &donation.FileError{Path: t.OutputPath(), Op: "encode", Err: err}
	}

	if err := donation.WriteFileAtomic(t.OutputPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write video list: %w", err)
	}

	t.List = list

	return nil
}
