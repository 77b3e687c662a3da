// Package worker drives claimed jobs to completion: it polls the queue,
// invokes the print capability, and reports the outcome back.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskspool/taskspool/internal/core"
	"github.com/taskspool/taskspool/internal/printer"
	"github.com/taskspool/taskspool/internal/webhook"
)

// EventSender publishes job lifecycle events. Nil disables notifications.
type EventSender interface {
	SendJobEvent(event webhook.Event, data webhook.JobEventData)
}

type Config struct {
	// PollInterval is how long the loop idles when no job is eligible.
	PollInterval time.Duration
	// LeaseTimeout > 0 requeues in_progress jobs claimed longer ago than
	// this during maintenance, reclaiming work from a dead consumer.
	LeaseTimeout time.Duration
	// RetentionDays > 0 prunes terminal jobs older than this once a day.
	RetentionDays int
	// MaintenanceInterval defaults to 5 minutes.
	MaintenanceInterval time.Duration
}

type Service struct {
	queue   *core.Queue
	printer printer.Printer
	events  EventSender
	cfg     Config
	logger  *slog.Logger

	lastCleanup time.Time
}

func New(queue *core.Queue, p printer.Printer, events EventSender, cfg Config, logger *slog.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queue:       queue,
		printer:     p,
		events:      events,
		cfg:         cfg,
		logger:      logger,
		lastCleanup: time.Now(),
	}
}

// Run executes the consumer loop until ctx is cancelled. Jobs abandoned by a
// previous run are requeued first. The loop polls immediately after a
// processed job and idles for the poll interval when the queue is empty; a
// single job failure never terminates the loop.
func (s *Service) Run(ctx context.Context) error {
	recovered, err := s.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		s.logger.Info("recovered abandoned jobs", "count", recovered)
	}

	if stats, err := s.queue.Stats(ctx); err == nil {
		s.logger.Info("queue status at startup",
			"pending", stats.Pending, "completed", stats.Completed, "failed", stats.Failed)
	}

	maintenance := time.NewTicker(s.cfg.MaintenanceInterval)
	defer maintenance.Stop()

	for {
		processed, err := s.processNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("queue poll failed", "error", err)
		}
		if processed {
			// Tight loop while work exists.
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-maintenance.C:
			s.runMaintenance(ctx)
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// processNext claims and prints at most one job. It reports whether a job
// was processed so the caller can skip the idle sleep.
func (s *Service) processNext(ctx context.Context) (bool, error) {
	job, err := s.queue.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	s.logger.Info("processing job", "job_id", job.ID, "title", job.Payload.Title,
		"priority", job.Priority, "attempt", job.Attempts+1, "max_attempts", job.MaxAttempts)
	s.notify(webhook.EventJobStarted, job, "")

	printErr := s.printer.Print(ctx, job)
	if printErr == nil {
		if err := s.queue.ReportSuccess(ctx, job.ID); err != nil {
			s.logger.Error("failed to report success", "job_id", job.ID, "error", err)
			return true, nil
		}
		s.logger.Info("job completed", "job_id", job.ID)
		s.notify(webhook.EventJobCompleted, job, "")
		return true, nil
	}

	reason := printErr.Error()
	if err := s.queue.ReportFailure(ctx, job.ID, reason); err != nil {
		s.logger.Error("failed to report failure", "job_id", job.ID, "error", err)
		return true, nil
	}

	if job.Attempts+1 >= job.MaxAttempts {
		s.logger.Error("job failed permanently", "job_id", job.ID, "error", reason)
		s.notify(webhook.EventJobFailed, job, reason)
	} else {
		s.logger.Warn("job failed, queued for retry",
			"job_id", job.ID, "attempt", job.Attempts+1, "max_attempts", job.MaxAttempts, "error", reason)
	}
	return true, nil
}

func (s *Service) runMaintenance(ctx context.Context) {
	if s.cfg.LeaseTimeout > 0 {
		if n, err := s.queue.ReclaimStale(ctx, s.cfg.LeaseTimeout); err != nil {
			s.logger.Error("stale claim reclaim failed", "error", err)
		} else if n > 0 {
			s.logger.Warn("reclaimed stale in-progress jobs", "count", n)
		}
	}

	if s.cfg.RetentionDays > 0 && time.Since(s.lastCleanup) > 24*time.Hour {
		if n, err := s.queue.CleanupOld(ctx, s.cfg.RetentionDays); err != nil {
			s.logger.Error("retention cleanup failed", "error", err)
		} else {
			s.logger.Info("cleaned up old jobs", "deleted", n)
			s.lastCleanup = time.Now()
		}
	}

	stats, err := s.queue.Stats(ctx)
	if err != nil {
		s.logger.Error("stats check failed", "error", err)
		return
	}
	if stats.Pending > 0 || stats.InProgress > 0 {
		s.logger.Info("queue health",
			"pending", stats.Pending, "in_progress", stats.InProgress, "health", stats.Health)
	}
}

func (s *Service) notify(event webhook.Event, job *core.Job, errMsg string) {
	if s.events == nil {
		return
	}
	data := webhook.JobEventData{
		JobID:  job.ID,
		Title:  job.Payload.Title,
		Status: statusFor(event),
	}
	if errMsg != "" {
		data.LastError = errMsg
		data.Attempts = job.Attempts + 1
	}
	s.events.SendJobEvent(event, data)
}

func statusFor(event webhook.Event) string {
	switch event {
	case webhook.EventJobStarted:
		return string(core.StatusInProgress)
	case webhook.EventJobCompleted:
		return string(core.StatusCompleted)
	case webhook.EventJobFailed:
		return string(core.StatusFailed)
	}
	return ""
}
