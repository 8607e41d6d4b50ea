package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ddm-research/donation-monitor/app/cfg"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/report"
	"github.com/ddm-research/donation-monitor/app/study"
)

func main() {
	c, err := cfg.LoadReport(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		return
	}
	c.SetupLogging()

	if err := run(c); err != nil {
		slog.Error("Report failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cfg.Cfg) error {
	s, err := study.Load(c.StudyFile)
	if err != nil {
		return fmt.Errorf("failed to load study: %w", err)
	}

	snapshots := overview.NewSnapshotStore(c.OverviewDir())
	full, path, err := snapshots.ReadLatest()
	if err != nil {
		return fmt.Errorf("failed to read latest snapshot in %s: %w", snapshots.Dir(), err)
	}
	slog.Info("Using snapshot", "path", path, "rows", full.Len())

	usable := overview.NewFilter(s).Usable(full)
	usablePath, err := snapshots.WriteUsable(usable)
	if err != nil {
		return err
	}
	slog.Info("Usable overview written", "path", usablePath, "rows", usable.Len(), "excluded", full.Len()-usable.Len())

	r := report.Build(usable, s)
	r.Render(os.Stdout)

	written, err := r.WritePlots(c.PlotsDir)
	if err != nil {
		return err
	}
	slog.Info("Plots written", "dir", c.PlotsDir, "count", len(written))

	return nil
}
