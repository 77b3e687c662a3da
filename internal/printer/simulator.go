package printer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/taskspool/taskspool/internal/core"
)

// defaultDelays approximate real card print times per priority.
var defaultDelays = map[core.Priority]time.Duration{
	core.PriorityHigh:   2 * time.Second,
	core.PriorityMedium: 3 * time.Second,
	core.PriorityLow:    4 * time.Second,
}

// Simulator is a no-op print capability used when no physical printer is
// attached. It sleeps for a priority-scaled duration and can inject
// failures at a configured rate.
type Simulator struct {
	// FailRate in [0,1] is the probability that a print attempt fails.
	FailRate float64
	// Delays overrides the per-priority sleep; nil selects the defaults.
	Delays map[core.Priority]time.Duration

	logger *slog.Logger
	rng    *rand.Rand
}

func NewSimulator(failRate float64, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		FailRate: failRate,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) Print(ctx context.Context, job *core.Job) error {
	s.logger.Info("simulating print",
		"job_id", job.ID,
		"title", job.Payload.Title,
		"priority", job.Priority,
		"category", job.Payload.Category,
	)

	delay, ok := s.Delays[job.Priority]
	if s.Delays == nil {
		delay = defaultDelays[job.Priority]
	} else if !ok {
		delay = 0
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.FailRate > 0 && s.rng.Float64() < s.FailRate {
		return fmt.Errorf("simulated print failure for job %s", job.ID)
	}

	s.logger.Info("simulation complete", "job_id", job.ID)
	return nil
}
