package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

var _ TaskRunnerInterface = (*Runner)(nil)

// Stats tallies one Run. NotRun counts tasks left in the queue when the
// context was cancelled.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	NotRun    int
}

type Runner struct {
	workerCount    int
	taskTimeout    time.Duration
	retryBaseDelay time.Duration
	maxRetryDelay  time.Duration
}

func NewRunner(workerCount int) *Runner {
	if workerCount < 1 {
		workerCount = 1
	}

	return &Runner{
		workerCount:    workerCount,
		taskTimeout:    5 * time.Minute,
		retryBaseDelay: time.Second,
		maxRetryDelay:  30 * time.Second,
	}
}

// Run executes tasks on the worker pool and returns once every queued task
// has finished. Cancelling ctx stops queuing; tasks already picked up by a
// worker run to completion or fail on the cancelled context.
func (r *Runner) Run(ctx context.Context, tasks []TaskInterface) Stats {
	stats := Stats{Total: len(tasks)}
	if len(tasks) == 0 {
		return stats
	}

	queue := make(chan TaskInterface)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := min(r.workerCount, len(tasks))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			for task := range queue {
				err := r.executeTask(ctx, id, task)

				mu.Lock()
				if err != nil {
					stats.Failed++
				} else {
					stats.Succeeded++
				}
				mu.Unlock()
			}
		}(i)
	}

enqueue:
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		select {
		case queue <- task:
		case <-ctx.Done():
			break enqueue
		}
	}
	close(queue)
	wg.Wait()

	stats.NotRun = stats.Total - stats.Succeeded - stats.Failed
	if stats.NotRun > 0 {
		slog.Warn("Run cancelled, tasks left unprocessed", "not_run", stats.NotRun, "total", stats.Total)
	}

	return stats
}

func (r *Runner) executeTask(ctx context.Context, workerID int, task TaskInterface) error {
	for {
		task.Start()

		taskCtx, cancel := context.WithTimeout(ctx, r.taskTimeout)
		err := task.Execute(taskCtx)
		cancel()

		if err == nil {
			slog.Debug("Task completed", "worker_id", workerID, "type", string(task.GetType()), "participant", task.GetParticipantID(), "duration", task.GetDuration())
			return nil
		}

		if !task.CanRetry() || ctx.Err() != nil {
			if task.GetMaxRetries() > 0 {
				slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "participant", task.GetParticipantID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
			} else {
				slog.Error("Task failed", "type", string(task.GetType()), "participant", task.GetParticipantID(), "error", err)
			}
			return err
		}

		task.IncrementRetryCount()
		retryDelay := r.retryBaseDelay * time.Duration(1<<uint(task.GetRetryCount()-1))
		if retryDelay > r.maxRetryDelay {
			retryDelay = r.maxRetryDelay
		}

		slog.Warn("Task retry scheduled", "type", string(task.GetType()), "participant", task.GetParticipantID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String(), "error", err)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			slog.Debug("Runner stopped, skipping task retry", "type", string(task.GetType()), "participant", task.GetParticipantID())
			return err
		}
	}
}
