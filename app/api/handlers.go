package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddm-research/donation-monitor/app/database"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/report"
	"github.com/ddm-research/donation-monitor/app/study"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

func NewHandler(runs database.RunRepositoryInterface, snapshots *overview.SnapshotStore, s *study.Study, plotsDir string) *Handler {
	plots := make(map[string]bool)
	for _, name := range report.PlotNames(s) {
		plots[name] = true
	}

	return &Handler{
		runs:      runs,
		snapshots: snapshots,
		filter:    overview.NewFilter(s),
		study:     s,
		plotsDir:  plotsDir,
		plots:     plots,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"study":     h.study.Name,
	}

	if run, err := h.runs.GetLatestRun(c.Request.Context()); err == nil && run != nil {
		health["latest_run"] = run.StartedAt.In(time.Local).Format(time.RFC3339)
	}

	if path, err := h.snapshots.Latest(); err == nil {
		health["snapshot"] = filepath.Base(path)
	} else {
		health["snapshot"] = nil
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) APIGetLatestRun(c *gin.Context) {
	run, err := h.runs.GetLatestRun(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run recorded yet"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) APIGetRunFailures(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing run id parameter"})
		return
	}

	failures, err := h.runs.GetRunFailures(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run_failures", "run", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":   id,
		"failures": failures,
		"total":    len(failures),
	})
}

func (h *Handler) APIGetSummary(c *gin.Context) {
	full, path, err := h.snapshots.ReadLatest()
	if errors.Is(err, overview.ErrNoSnapshot) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No overview snapshot yet"})
		return
	}
	if err != nil {
		slog.Error("Snapshot error", "operation", "read_latest", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Snapshot could not be read"})
		return
	}

	usable := h.filter.Usable(full)

	c.JSON(http.StatusOK, map[string]interface{}{
		"snapshot": filepath.Base(path),
		"rows":     full.Len(),
		"summary":  overview.Summarize(usable, h.study),
	})
}

func (h *Handler) APIGetPlot(c *gin.Context) {
	name := c.Param("name")
	if !h.plots[name] {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown plot"})
		return
	}

	path := filepath.Join(h.plotsDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plot not rendered yet"})
		return
	}

	c.Header("Content-Type", "image/png")
	c.File(path)
}
