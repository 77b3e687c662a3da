package core

import (
	"context"
	"time"
)

// JobStore is the durable persistence contract the queue runs on. All writes
// are atomic at single-row granularity; the Mark/Requeue mutations carry an
// expected-status precondition and return ErrStaleWrite when it does not
// hold, which is the queue's only concurrency-control mechanism.
type JobStore interface {
	// InsertJob persists a new row. ErrConflict if the id already exists.
	InsertJob(ctx context.Context, job *Job) error
	// InsertJobs persists all rows in one transaction, all-or-nothing.
	InsertJobs(ctx context.Context, jobs []*Job) error
	// GetJobByID returns the job or ErrNotFound.
	GetJobByID(ctx context.Context, id string) (*Job, error)
	// ClaimNextJob atomically selects the highest-priority, oldest eligible
	// pending job and flips it to in_progress. Returns (nil, nil) when no
	// job is eligible.
	ClaimNextJob(ctx context.Context, now time.Time) (*Job, error)
	// MarkCompleted transitions in_progress -> completed.
	MarkCompleted(ctx context.Context, id string) error
	// MarkFailed transitions in_progress -> failed, recording the final
	// attempt count and failure reason.
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
	// RequeueForRetry transitions in_progress -> pending with the bumped
	// attempt count; the job is eligible again at nextAttemptAt.
	RequeueForRetry(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time) error

	ListJobs(ctx context.Context, status Status, limit, offset int) ([]*Job, error)
	CountsByStatus(ctx context.Context) (map[Status]int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)

	// ResetInProgress moves every in_progress job back to pending. Called at
	// consumer startup to recover jobs abandoned by a crashed worker.
	ResetInProgress(ctx context.Context) (int64, error)
	// ReclaimStale requeues in_progress jobs claimed before the cutoff.
	ReclaimStale(ctx context.Context, claimedBefore time.Time) (int64, error)
	// DeleteTerminalBefore prunes completed/failed jobs older than cutoff.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Ping(ctx context.Context) error
}
