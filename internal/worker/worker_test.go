package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/taskspool/taskspool/internal/core"
	"github.com/taskspool/taskspool/internal/db"
	"github.com/taskspool/taskspool/internal/webhook"
)

// funcPrinter adapts a function to the printer interface.
type funcPrinter func(ctx context.Context, job *core.Job) error

func (f funcPrinter) Print(ctx context.Context, job *core.Job) error {
	return f(ctx, job)
}

type recordedEvent struct {
	event webhook.Event
	data  webhook.JobEventData
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) SendJobEvent(event webhook.Event, data webhook.JobEventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, data})
}

func (r *eventRecorder) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func newTestQueue(t *testing.T) *core.Queue {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return core.NewQueue(db.NewJobStore(conn), core.QueueConfig{})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessNext_Success(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	rec := &eventRecorder{}

	id, err := q.Enqueue(ctx, core.TaskPayload{Title: "receipt"}, 0)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	svc := New(q, funcPrinter(func(ctx context.Context, job *core.Job) error {
		return nil
	}), rec, Config{}, quietLogger())

	processed, err := svc.processNext(ctx)
	if err != nil {
		t.Fatalf("processNext: %v", err)
	}
	if !processed {
		t.Fatal("processed = false, want true")
	}

	job, err := q.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != core.StatusCompleted {
		t.Errorf("Status = %q, want completed", job.Status)
	}

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want started+completed", len(events))
	}
	if events[0].event != webhook.EventJobStarted || events[1].event != webhook.EventJobCompleted {
		t.Errorf("events = %v, %v", events[0].event, events[1].event)
	}
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	q := newTestQueue(t)
	svc := New(q, funcPrinter(func(ctx context.Context, job *core.Job) error {
		t.Error("printer invoked with empty queue")
		return nil
	}), nil, Config{}, quietLogger())

	processed, err := svc.processNext(context.Background())
	if err != nil {
		t.Fatalf("processNext: %v", err)
	}
	if processed {
		t.Error("processed = true on empty queue")
	}
}

func TestProcessNext_RetryThenPermanentFailure(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	rec := &eventRecorder{}

	id, err := q.Enqueue(ctx, core.TaskPayload{Title: "jammed"}, 2)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	svc := New(q, funcPrinter(func(ctx context.Context, job *core.Job) error {
		return errors.New("head overheated")
	}), rec, Config{}, quietLogger())

	// First failure requeues the job.
	if _, err := svc.processNext(ctx); err != nil {
		t.Fatalf("processNext: %v", err)
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != core.StatusPending || job.Attempts != 1 {
		t.Errorf("after first failure: status=%q attempts=%d, want pending/1", job.Status, job.Attempts)
	}

	// Second failure exhausts the attempts.
	if _, err := svc.processNext(ctx); err != nil {
		t.Fatalf("processNext: %v", err)
	}
	job, err = q.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != core.StatusFailed || job.Attempts != 2 {
		t.Errorf("after second failure: status=%q attempts=%d, want failed/2", job.Status, job.Attempts)
	}
	if job.LastError != "head overheated" {
		t.Errorf("LastError = %q", job.LastError)
	}

	// Only the permanent failure emits EventJobFailed.
	var failed int
	for _, e := range rec.snapshot() {
		if e.event == webhook.EventJobFailed {
			failed++
			if e.data.Attempts != 2 {
				t.Errorf("failed event attempts = %d, want 2", e.data.Attempts)
			}
		}
	}
	if failed != 1 {
		t.Errorf("EventJobFailed count = %d, want 1", failed)
	}
}

func TestRun_RecoversAbandonedJobs(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	id, err := q.Enqueue(ctx, core.TaskPayload{Title: "interrupted"}, 0)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Claim without reporting, simulating a crash mid-print.
	if _, err := q.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	svc := New(q, funcPrinter(func(ctx context.Context, job *core.Job) error {
		return nil
	}), nil, Config{PollInterval: 10 * time.Millisecond}, quietLogger())

	runCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := svc.Run(runCtx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job, err := q.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != core.StatusCompleted {
		t.Errorf("Status = %q after recovery run, want completed", job.Status)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	q := newTestQueue(t)
	svc := New(q, funcPrinter(func(ctx context.Context, job *core.Job) error {
		return nil
	}), nil, Config{PollInterval: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
