package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/taskspool/taskspool/internal/core"
)

// JobStore is the SQLite implementation of core.JobStore. Every mutation of
// an existing row carries its expected prior status in the WHERE clause; a
// write that matches zero rows is reported as core.ErrStaleWrite so callers
// can tell a lost race from a missing job.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(conn *sql.DB) *JobStore {
	return &JobStore{db: conn}
}

func (s *JobStore) InsertJob(ctx context.Context, job *core.Job) error {
	_, err := s.db.ExecContext(ctx, insertJob, insertArgs(job)...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: id %s", core.ErrConflict, job.ID)
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (s *JobStore) InsertJobs(ctx context.Context, jobs []*core.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, job := range jobs {
		if _, err := tx.ExecContext(ctx, insertJob, insertArgs(job)...); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				return fmt.Errorf("%w: id %s", core.ErrConflict, job.ID)
			}
			return fmt.Errorf("failed to insert job: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return nil
}

func insertArgs(job *core.Job) []any {
	return []any{
		job.ID,
		job.Payload.Title,
		job.Payload.Description,
		string(job.Priority),
		job.Payload.Category,
		job.Payload.EstimatedTime,
		nullableTime(job.Payload.DueDate),
		string(job.Status),
		job.Attempts,
		job.MaxAttempts,
		job.LastError,
		job.CreatedAt,
		job.UpdatedAt,
		job.NextAttemptAt,
		nullableTime(job.ClaimedAt),
		nullableTime(job.CompletedAt),
	}
}

func (s *JobStore) GetJobByID(ctx context.Context, id string) (*core.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, getJobByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ClaimNextJob selects and claims inside one transaction. The conditional
// status guard on the UPDATE is kept even under the transaction so a claim
// lost to another process surfaces as ErrStaleWrite instead of silently
// double-delivering.
func (s *JobStore) ClaimNextJob(ctx context.Context, now time.Time) (*core.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	job, err := scanJob(tx.QueryRowContext(ctx, selectNextEligible, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select next job: %w", err)
	}

	res, err := tx.ExecContext(ctx, claimJob, now, now, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, core.ErrStaleWrite
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	job.Status = core.StatusInProgress
	claimed := now
	job.ClaimedAt = &claimed
	job.UpdatedAt = now
	return job, nil
}

func (s *JobStore) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.conditionalUpdate(ctx, id, markJobCompleted, now, now, id)
}

func (s *JobStore) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	now := time.Now().UTC()
	return s.conditionalUpdate(ctx, id, markJobFailed, attempts, lastError, now, now, id)
}

func (s *JobStore) RequeueForRetry(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time) error {
	now := time.Now().UTC()
	return s.conditionalUpdate(ctx, id, requeueJob, attempts, lastError, nextAttemptAt, now, id)
}

// conditionalUpdate runs a status-guarded UPDATE and classifies a zero-row
// result: the job either vanished (ErrNotFound) or its status moved on
// concurrently (ErrStaleWrite).
func (s *JobStore) conditionalUpdate(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM print_jobs WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %s", core.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to check job existence: %w", err)
	}
	return core.ErrStaleWrite
}

func (s *JobStore) ListJobs(ctx context.Context, status core.Status, limit, offset int) ([]*core.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.QueryContext(ctx, listJobsByStatus, string(status), limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, listAllJobs, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*core.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *JobStore) CountsByStatus(ctx context.Context) (map[core.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, countByStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[core.Status(status)] = count
	}
	return counts, rows.Err()
}

func (s *JobStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countCreatedSince, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recent jobs: %w", err)
	}
	return count, nil
}

func (s *JobStore) ResetInProgress(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, resetInProgress, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reset in-progress jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *JobStore) ReclaimStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, reclaimStale, time.Now().UTC(), claimedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *JobStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteTerminalBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *JobStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*core.Job, error) {
	job := &core.Job{}
	var priority, status string
	var dueDate, claimedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Payload.Title,
		&job.Payload.Description,
		&priority,
		&job.Payload.Category,
		&job.Payload.EstimatedTime,
		&dueDate,
		&status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.NextAttemptAt,
		&claimedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Priority = core.Priority(priority)
	job.Payload.Priority = job.Priority
	job.Status = core.Status(status)
	if dueDate.Valid {
		t := dueDate.Time
		job.Payload.DueDate = &t
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		job.ClaimedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
