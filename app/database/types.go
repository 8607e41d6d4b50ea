package database

import (
	"context"
	"time"
)

// Run is one recorded reconciliation pass.
type Run struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Participants int       `json:"participants"`
	Skipped      int       `json:"skipped"`
	Processed    int       `json:"processed"`
	NotEligible  int       `json:"not_eligible"`
	Failed       int       `json:"failed"`
	NotRun       int       `json:"not_run"`
	Snapshot     string    `json:"snapshot"`
	Usable       int       `json:"usable"`
	Completed    int       `json:"completed"`
	Donated      int       `json:"donated"`
}

type RunFailure struct {
	RunID         string `json:"run_id"`
	ParticipantID string `json:"participant_id"`
	Error         string `json:"error"`
}

type RunRepositoryInterface interface {
	CreateRun(ctx context.Context, run *Run, failures []RunFailure) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetLatestRun(ctx context.Context) (*Run, error)
	GetRunFailures(ctx context.Context, runID string) ([]RunFailure, error)
}
