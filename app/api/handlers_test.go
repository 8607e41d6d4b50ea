package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/ddm-research/donation-monitor/app/database"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/report"
	"github.com/ddm-research/donation-monitor/app/study"
	"github.com/ddm-research/donation-monitor/app/table"
)

const testKey = "secret"

type fakeRunRepository struct {
	runs     []database.Run
	failures map[string][]database.RunFailure
	limits   []int
}

func (r *fakeRunRepository) CreateRun(ctx context.Context, run *database.Run, failures []database.RunFailure) error {
	r.runs = append([]database.Run{*run}, r.runs...)
	return nil
}

func (r *fakeRunRepository) ListRuns(ctx context.Context, limit int) ([]database.Run, error) {
	r.limits = append(r.limits, limit)
	if limit < len(r.runs) {
		return r.runs[:limit], nil
	}
	return r.runs, nil
}

func (r *fakeRunRepository) GetLatestRun(ctx context.Context) (*database.Run, error) {
	if len(r.runs) == 0 {
		return nil, nil
	}
	return &r.runs[0], nil
}

func (r *fakeRunRepository) GetRunFailures(ctx context.Context, runID string) ([]database.RunFailure, error) {
	return r.failures[runID], nil
}

type fixture struct {
	engine    *gin.Engine
	repo      *fakeRunRepository
	snapshots *overview.SnapshotStore
	plotsDir  string
}

func setup(t *testing.T, accessKey string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	f := &fixture{
		repo:      &fakeRunRepository{failures: map[string][]database.RunFailure{}},
		snapshots: overview.NewSnapshotStore(filepath.Join(dir, "overview")),
		plotsDir:  filepath.Join(dir, "plots"),
	}
	handler := NewHandler(f.repo, f.snapshots, study.Default(), f.plotsDir)
	f.engine = NewServer(handler, accessKey)
	return f
}

func (f *fixture) get(t *testing.T, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	f := setup(t, "")

	w := f.get(t, "/api/runs")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with API disabled, got %d", w.Code)
	}

	w = f.get(t, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("Expected health to stay available, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	f := setup(t, testKey)

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"wrong key", []string{"X-API-Key", "nope"}, http.StatusUnauthorized},
		{"header key", []string{"X-API-Key", testKey}, http.StatusOK},
		{"bearer", []string{"Authorization", "Bearer " + testKey}, http.StatusOK},
		{"other scheme", []string{"Authorization", "Token " + testKey}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.get(t, "/api/runs", tt.header...)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	f := setup(t, testKey)

	body := decode(t, f.get(t, "/health"))
	if body["snapshot"] != nil {
		t.Errorf("Expected no snapshot, got %v", body["snapshot"])
	}
	if _, ok := body["latest_run"]; ok {
		t.Error("Expected no latest_run before the first run")
	}

	f.repo.runs = []database.Run{{ID: "r1", StartedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}}
	if _, err := f.snapshots.WriteSnapshot(table.New("participant_id"), time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	body = decode(t, f.get(t, "/health"))
	if body["snapshot"] != "overview_2025-03-01-10-05.csv" {
		t.Errorf("Expected snapshot name, got %v", body["snapshot"])
	}
	if _, ok := body["latest_run"]; !ok {
		t.Error("Expected latest_run to be reported")
	}
}

func TestListRuns(t *testing.T) {
	f := setup(t, testKey)
	f.repo.runs = []database.Run{{ID: "r2"}, {ID: "r1"}}

	w := f.get(t, "/api/runs?limit=1", "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if total := decode(t, w)["total"]; total != 1.0 {
		t.Errorf("Expected 1 run, got %v", total)
	}

	f.get(t, "/api/runs", "X-API-Key", testKey)
	f.get(t, "/api/runs?limit=5000", "X-API-Key", testKey)
	if diff := cmp.Diff([]int{1, defaultRunLimit, maxRunLimit}, f.repo.limits); diff != "" {
		t.Errorf("Unexpected limits (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"0", "-3", "many"} {
		w := f.get(t, "/api/runs?limit="+bad, "X-API-Key", testKey)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for limit=%s, got %d", bad, w.Code)
		}
	}
}

func TestLatestRun(t *testing.T) {
	f := setup(t, testKey)

	w := f.get(t, "/api/runs/latest", "X-API-Key", testKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before the first run, got %d", w.Code)
	}

	f.repo.runs = []database.Run{{ID: "r2", Processed: 3}, {ID: "r1"}}
	w = f.get(t, "/api/runs/latest", "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["id"] != "r2" || body["processed"] != 3.0 {
		t.Errorf("Expected run r2 with 3 processed, got %v", body)
	}
}

func TestRunFailures(t *testing.T) {
	f := setup(t, testKey)
	f.repo.failures["r1"] = []database.RunFailure{{RunID: "r1", ParticipantID: "B", Error: "HTTP 500"}}

	w := f.get(t, "/api/runs/r1/failures", "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		RunID    string                `json:"run_id"`
		Failures []database.RunFailure `json:"failures"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if diff := cmp.Diff(f.repo.failures["r1"], body.Failures); diff != "" {
		t.Errorf("Unexpected failures (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	f := setup(t, testKey)

	w := f.get(t, "/api/summary", "X-API-Key", testKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without snapshot, got %d", w.Code)
	}

	full := table.New("participant_id", "start_time", "Q2_age", "completed", "AngeseheneVideos_consent")
	full.Append(table.Row{"participant_id": "A", "start_time": "2025-02-20 10:00:00", "Q2_age": "30", "completed": "True", "AngeseheneVideos_consent": "True"})
	full.Append(table.Row{"participant_id": "B", "start_time": "2025-02-21 10:00:00", "Q2_age": "41", "completed": "False", "AngeseheneVideos_consent": "True"})
	full.Append(table.Row{"participant_id": "T", "start_time": "2025-02-21 11:00:00", "Q2_age": "99", "completed": "True"})
	if _, err := f.snapshots.WriteSnapshot(full, time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	w = f.get(t, "/api/summary", "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Snapshot string           `json:"snapshot"`
		Rows     int              `json:"rows"`
		Summary  overview.Summary `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Rows != 3 {
		t.Errorf("Expected 3 snapshot rows, got %d", body.Rows)
	}
	want := overview.Summary{Started: 2, Completed: 1, Donated: 2}
	if body.Summary != want {
		t.Errorf("Expected %+v, got %+v", want, body.Summary)
	}
}

func TestPlots(t *testing.T) {
	f := setup(t, testKey)

	w := f.get(t, "/api/plots/"+report.DataPointsPlot, "X-API-Key", testKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before rendering, got %d", w.Code)
	}

	if err := os.MkdirAll(f.plotsDir, 0755); err != nil {
		t.Fatal(err)
	}
	png := []byte("\x89PNG\r\n\x1a\n")
	if err := os.WriteFile(filepath.Join(f.plotsDir, report.DataPointsPlot), png, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.plotsDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w = f.get(t, "/api/plots/"+report.DataPointsPlot, "X-API-Key", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Expected image/png, got %q", got)
	}
	if w.Body.String() != string(png) {
		t.Error("Expected plot bytes to be served unchanged")
	}

	w = f.get(t, "/api/plots/notes.txt", "X-API-Key", testKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unlisted file, got %d", w.Code)
	}
}
