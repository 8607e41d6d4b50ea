package tasks

import (
	"context"

	"github.com/ddm-research/donation-monitor/app/blueprint"
)

// TaskRunnerInterface defines batch execution of tasks on a worker pool.
// Used by the reconciliation and export passes, which build one task per
// participant and read each task's outcome after Run returns.
// Example usage:
//
//	runner := NewRunner(cfg.WorkerCount)
//	stats := runner.Run(ctx, []TaskInterface{NewProcessParticipantTask(...)})
type TaskRunnerInterface interface {
	Run(ctx context.Context, tasks []TaskInterface) Stats
}

// DonationSource returns a participant's donation, fetching and caching
// it when needed.
type DonationSource interface {
	FetchAndCacheRaw(ctx context.Context, participantID string) (*blueprint.RawDonation, error)
}

// CachedDonations reads donations that are already cached.
type CachedDonations interface {
	ReadCached(participantID string) (*blueprint.RawDonation, error)
}
