package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/cfg"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/export"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/tasks"
)

func main() {
	c, err := cfg.LoadActivities(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		return
	}
	c.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		slog.Error("Activity export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cfg.Cfg) error {
	usable, err := overview.NewSnapshotStore(filepath.Dir(c.OverviewFile)).Read(c.OverviewFile)
	if err != nil {
		return err
	}

	ids, err := export.UsableIDs(usable)
	if err != nil {
		return fmt.Errorf("invalid overview %s: %w", c.OverviewFile, err)
	}

	// Only the raw cache is read, nothing is fetched.
	store := donation.NewStore("", c.InputDir, nil)

	exporter := export.NewExporter(store, blueprint.NewExtractor(), tasks.NewRunner(c.WorkerCount), c.OutputDir)
	result, err := exporter.Run(ctx, ids)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d of %d donations (%d failed, %d rows) to %s\n",
		result.Successful, result.Selected, result.Failed, result.Rows, c.OutputDir)

	return nil
}
