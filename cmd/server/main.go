package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ddm-research/donation-monitor/app/api"
	"github.com/ddm-research/donation-monitor/app/cfg"
	"github.com/ddm-research/donation-monitor/app/database"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/study"
)

func main() {
	c, err := cfg.LoadServer(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}
	c.SetupLogging()

	slog.Info("Starting Donation Monitor server", "version", c.Version)

	s, err := study.Load(c.StudyFile)
	if err != nil {
		slog.Error("Failed to load study", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(c.DBPath)
	if err != nil {
		slog.Error("Failed to open run history", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	handler := api.NewHandler(database.NewRunRepository(db), overview.NewSnapshotStore(c.OverviewDir()), s, c.PlotsDir)
	server := api.NewServer(handler, c.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port, "api_enabled", c.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
