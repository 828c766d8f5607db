// File: internal/tasks/models.go

// Package tasks tracks user-submitted goals across their lifecycle. The
// manager is a bookkeeping layer; it never drives the agent itself.
package tasks

import (
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/wayfarer/internal/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Status is the lifecycle state of a task.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// terminal reports whether the status admits no further transitions.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Task is a single user-submitted goal and its outcome.
type Task struct {
	ID          string
	Goal        string
	Status      Status
	Result      *agent.Result
	Error       string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

type wireTask struct {
	ID          string        `json:"id"`
	Goal        string        `json:"goal"`
	Status      Status        `json:"status"`
	Result      *agent.Result `json:"result"`
	CreatedAt   float64       `json:"created_at"`
	StartedAt   *float64      `json:"started_at"`
	CompletedAt *float64      `json:"completed_at"`
	Duration    *float64      `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// MarshalJSON emits the dashboard shape: epoch-second timestamps, null for
// times that have not happened yet, and a duration measured from start to
// completion (or to now for a running task).
func (t *Task) MarshalJSON() ([]byte, error) {
	w := wireTask{
		ID:        t.ID,
		Goal:      t.Goal,
		Status:    t.Status,
		Result:    t.Result,
		CreatedAt: epochSeconds(t.CreatedAt),
		Error:     t.Error,
	}
	if !t.StartedAt.IsZero() {
		started := epochSeconds(t.StartedAt)
		w.StartedAt = &started

		end := time.Now()
		if !t.CompletedAt.IsZero() {
			end = t.CompletedAt
		}
		duration := math.Round(end.Sub(t.StartedAt).Seconds()*100) / 100
		w.Duration = &duration
	}
	if !t.CompletedAt.IsZero() {
		completed := epochSeconds(t.CompletedAt)
		w.CompletedAt = &completed
	}
	return json.Marshal(w)
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000.0
}

// Summary is the aggregate view of the manager's state.
type Summary struct {
	Total     int   `json:"total_tasks"`
	Completed int   `json:"completed"`
	Failed    int   `json:"failed"`
	Current   *Task `json:"current_task"`
}
