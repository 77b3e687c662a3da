package core

import (
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank maps priorities onto the total order used for claiming.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskPayload is the task description carried by a job. The queue persists
// it verbatim; only the printer interprets the individual fields.
type TaskPayload struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Priority      Priority   `json:"priority,omitempty"`
	Category      string     `json:"category,omitempty"`
	EstimatedTime string     `json:"estimated_time,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

type Job struct {
	ID            string      `json:"job_id"`
	Payload       TaskPayload `json:"payload"`
	Priority      Priority    `json:"priority"`
	Status        Status      `json:"status"`
	Attempts      int         `json:"attempts"`
	MaxAttempts   int         `json:"max_attempts"`
	LastError     string      `json:"last_error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	NextAttemptAt time.Time   `json:"-"`
	ClaimedAt     *time.Time  `json:"claimed_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

type QueueStats struct {
	Pending    int    `json:"pending"`
	InProgress int    `json:"in_progress"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
	Last24h    int    `json:"jobs_last_24h"`
	Health     string `json:"queue_health"`
}
