package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMaxAttempts = 3
	DefaultBatchLimit  = 10

	// busyThreshold is the total job count above which stats report the
	// queue as busy instead of healthy.
	busyThreshold = 100
)

// QueueConfig carries the admission and retry policy values.
type QueueConfig struct {
	MaxAttempts int
	BatchLimit  int
	// RetryDelay postpones a failed job's re-eligibility. Zero means a
	// failed job competes again on the very next poll cycle.
	RetryDelay time.Duration
}

// Queue is the sole legitimate mutation surface over the job store. It owns
// the status state machine:
//
//	pending -> in_progress -> completed
//	                       -> pending (attempts+1, while attempts+1 < max)
//	                       -> failed  (attempts+1 == max)
type Queue struct {
	store JobStore
	cfg   QueueConfig
}

func NewQueue(store JobStore, cfg QueueConfig) *Queue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	return &Queue{store: store, cfg: cfg}
}

// Enqueue admits a new pending job and returns its id. maxAttempts <= 0
// selects the configured default.
func (q *Queue) Enqueue(ctx context.Context, payload TaskPayload, maxAttempts int) (string, error) {
	job, err := q.buildJob(payload, maxAttempts)
	if err != nil {
		return "", err
	}
	if err := q.store.InsertJob(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// EnqueueBatch admits up to BatchLimit jobs in a single transaction.
// Admission is all-or-nothing: an oversized batch or any invalid payload
// rejects the whole batch before any row is written.
func (q *Queue) EnqueueBatch(ctx context.Context, payloads []TaskPayload) ([]string, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", ErrValidation)
	}
	if len(payloads) > q.cfg.BatchLimit {
		return nil, fmt.Errorf("%w: batch size %d exceeds limit %d", ErrValidation, len(payloads), q.cfg.BatchLimit)
	}

	jobs := make([]*Job, 0, len(payloads))
	for i, p := range payloads {
		job, err := q.buildJob(p, 0)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		jobs = append(jobs, job)
	}

	if err := q.store.InsertJobs(ctx, jobs); err != nil {
		return nil, err
	}

	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids, nil
}

func (q *Queue) buildJob(payload TaskPayload, maxAttempts int) (*Job, error) {
	if strings.TrimSpace(payload.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if payload.Priority == "" {
		payload.Priority = PriorityMedium
	}
	if !payload.Priority.Valid() {
		return nil, fmt.Errorf("%w: priority %q must be one of high, medium, low", ErrValidation, payload.Priority)
	}
	if maxAttempts <= 0 {
		maxAttempts = q.cfg.MaxAttempts
	}

	now := time.Now().UTC()
	return &Job{
		ID:            uuid.NewString(),
		Payload:       payload,
		Priority:      payload.Priority,
		Status:        StatusPending,
		Attempts:      0,
		MaxAttempts:   maxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
		NextAttemptAt: now,
	}, nil
}

// ClaimNext transitions the next eligible pending job to in_progress and
// returns it, or nil when the queue has no eligible work. A conditional
// update lost to a concurrent claimer retries against the next candidate;
// the race is never surfaced as an error.
func (q *Queue) ClaimNext(ctx context.Context) (*Job, error) {
	for {
		job, err := q.store.ClaimNextJob(ctx, time.Now().UTC())
		if errors.Is(err, ErrStaleWrite) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		return job, err
	}
}

// ReportSuccess transitions in_progress -> completed.
func (q *Queue) ReportSuccess(ctx context.Context, id string) error {
	err := q.store.MarkCompleted(ctx, id)
	if errors.Is(err, ErrStaleWrite) {
		return fmt.Errorf("%w: job %s is not in progress", ErrInvalidState, id)
	}
	return err
}

// ReportFailure records a failed print attempt. The job returns to pending
// while attempts remain, or becomes terminally failed once the configured
// ceiling is reached. The failure reason is retained in last_error either
// way.
func (q *Queue) ReportFailure(ctx context.Context, id, reason string) error {
	job, err := q.store.GetJobByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != StatusInProgress {
		return fmt.Errorf("%w: job %s has status %s", ErrInvalidState, id, job.Status)
	}

	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		err = q.store.MarkFailed(ctx, id, attempts, reason)
	} else {
		nextAt := time.Now().UTC().Add(q.cfg.RetryDelay)
		err = q.store.RequeueForRetry(ctx, id, attempts, reason, nextAt)
	}
	if errors.Is(err, ErrStaleWrite) {
		return fmt.Errorf("%w: job %s is not in progress", ErrInvalidState, id)
	}
	return err
}

// GetJob returns a read-only snapshot of the job.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	return q.store.GetJobByID(ctx, id)
}

// ListJobs returns a page of jobs, optionally filtered by status.
func (q *Queue) ListJobs(ctx context.Context, status Status, limit, offset int) ([]*Job, error) {
	if status != "" {
		switch status {
		case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
	}
	return q.store.ListJobs(ctx, status, limit, offset)
}

// Stats aggregates job counts by status. Read-only, never mutates.
func (q *Queue) Stats(ctx context.Context) (*QueueStats, error) {
	counts, err := q.store.CountsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{
		Pending:    counts[StatusPending],
		InProgress: counts[StatusInProgress],
		Completed:  counts[StatusCompleted],
		Failed:     counts[StatusFailed],
	}
	stats.Total = stats.Pending + stats.InProgress + stats.Completed + stats.Failed

	last24h, err := q.store.CountCreatedSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	stats.Last24h = last24h

	stats.Health = "healthy"
	if stats.Total >= busyThreshold {
		stats.Health = "busy"
	}
	return stats, nil
}

// Recover requeues jobs left in_progress by a crashed consumer. Attempts are
// not incremented: an interrupted print is not a failed print.
func (q *Queue) Recover(ctx context.Context) (int64, error) {
	return q.store.ResetInProgress(ctx)
}

// ReclaimStale requeues in_progress jobs claimed longer than lease ago.
func (q *Queue) ReclaimStale(ctx context.Context, lease time.Duration) (int64, error) {
	if lease <= 0 {
		return 0, nil
	}
	return q.store.ReclaimStale(ctx, time.Now().UTC().Add(-lease))
}

// CleanupOld prunes terminal jobs older than the given number of days.
// Retention is maintenance policy, not part of the consumption protocol.
func (q *Queue) CleanupOld(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return q.store.DeleteTerminalBefore(ctx, cutoff)
}

// Ping reports whether the durable store is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	return q.store.Ping(ctx)
}
