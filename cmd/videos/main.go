package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/cfg"
	"github.com/ddm-research/donation-monitor/app/donation"
	"github.com/ddm-research/donation-monitor/app/export"
	"github.com/ddm-research/donation-monitor/app/platform"
	"github.com/ddm-research/donation-monitor/app/table"
	"github.com/ddm-research/donation-monitor/app/tasks"
)

func main() {
	c, err := cfg.LoadVideos(os.Args[1:])
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

	var runErr error
	switch c.Video.Name {
	case "pull":
		runErr = pull(ctx, c)
	case "list":
		runErr = list(ctx, c)
	case "get":
		runErr = get(ctx, c)
	case "update":
		runErr = update(ctx, c)
	}
	if runErr != nil {
		slog.Error("Video command failed", "command", c.Video.Name, "error", runErr)
		os.Exit(1)
	}
}

func pull(ctx context.Context, c *cfg.Cfg) error {
	client := platform.NewVideoClient(c)

	videos, listErr := client.ListPoliticalVideos(ctx, platform.VideoFilter{Date: c.Video.Date, Username: c.Video.Username})
	if listErr != nil && len(videos) == 0 {
		return listErr
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, table.FromRecords(videos, nil)); err != nil {
		return err
	}
	if err := donation.WriteFileAtomic(c.Video.Output, buf.Bytes()); err != nil {
		return err
	}

	fmt.Printf("Saved %d political videos to %s\n", len(videos), c.Video.Output)

	// Partial listings are kept on disk but still fail the command.
	return listErr
}

func list(ctx context.Context, c *cfg.Cfg) error {
	// Only the raw cache is read, nothing is fetched.
	store := donation.NewStore("", c.DonationsDir(), nil)

	exporter := export.NewExporter(store, blueprint.NewExtractor(), tasks.NewRunner(c.WorkerCount), c.Video.ListDir)
	result, err := exporter.VideoLists(ctx, c.Video.ParticipantIDs, c.Video.Year, c.Video.ListDir)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d of %d video lists (%d failed, %d videos) to %s\n",
		result.Successful, result.Selected, result.Failed, result.Rows, c.Video.ListDir)

	if len(c.Video.ParticipantIDs) > 0 && result.Selected < len(c.Video.ParticipantIDs) {
		return fmt.Errorf("%d requested participants have no cached donation", len(c.Video.ParticipantIDs)-result.Selected)
	}
	return nil
}

func get(ctx context.Context, c *cfg.Cfg) error {
	ids := c.Video.VideoIDs
	if c.Video.ListFile != "" {
		listed, err := readVideoList(c.Video.ListFile)
		if err != nil {
			return err
		}
		ids = append(ids, listed...)
	}

	client := platform.NewVideoClient(c)
	videos, failed := client.GetVideos(ctx, ids)

	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if c.Video.Output == "" {
		os.Stdout.Write(data)
	} else if err := donation.WriteFileAtomic(c.Video.Output, data); err != nil {
		return err
	}

	if len(failed) > 0 {
		return fmt.Errorf("metadata of %d of %d videos could not be fetched", len(failed), len(ids))
	}
	return nil
}

func update(ctx context.Context, c *cfg.Cfg) error {
	client := platform.NewVideoClient(c)

	video, err := client.UpdateVideo(ctx, c.Video.VideoIDs[0], platform.FieldValues(c.Video.Fields))
	if err != nil {
		return err
	}
	if video == nil {
		return nil
	}

	data, err := json.MarshalIndent(video, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	return nil
}

// readVideoList reads a video list written by the list command.
func readVideoList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var ids []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read video list %s: %w", path, err)
		}
		if len(record) > 0 && strings.TrimSpace(record[0]) != "" {
			ids = append(ids, strings.TrimSpace(record[0]))
		}
	}
	return ids, nil
}
