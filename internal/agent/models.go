// File: internal/agent/models.go
package agent

import (
	"time"

	json "github.com/json-iterator/go"
)

// StepStatus tracks the lifecycle of a single step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// ActionType is the closed action vocabulary the oracle may choose from.
type ActionType string

const (
	ActionNavigate   ActionType = "navigate"
	ActionClick      ActionType = "click"
	ActionTypeText   ActionType = "type"
	ActionSubmit     ActionType = "submit"
	ActionScroll     ActionType = "scroll"
	ActionScreenshot ActionType = "screenshot"
	ActionExtract    ActionType = "extract"
	ActionDone       ActionType = "done"
	ActionFail       ActionType = "fail"
)

// Decision is the parsed oracle response for one step.
type Decision struct {
	Thought string         `json:"thought"`
	Action  ActionType     `json:"action"`
	Args    map[string]any `json:"args"`
}

// Observation is the textual page snapshot presented to the oracle.
type Observation struct {
	URL     string
	Title   string
	Content string
}

// Step records one observe-think-act iteration. The loop mutates it in
// place; Observation holds the full text in memory and is truncated only on
// the wire.
type Step struct {
	Number      int
	Thought     string
	Action      ActionType
	Args        map[string]any
	Observation string
	Status      StepStatus
	Screenshot  []byte
	Timestamp   time.Time
}

// wireObservationLimit caps observation text in serialized steps.
const wireObservationLimit = 500

// MarshalJSON serializes the step for the presentation layer. Screenshots
// are reduced to a presence flag.
func (s Step) MarshalJSON() ([]byte, error) {
	type wireStep struct {
		Number        int            `json:"step_number"`
		Thought       string         `json:"thought"`
		Action        ActionType     `json:"action"`
		Args          map[string]any `json:"action_args"`
		Observation   string         `json:"observation"`
		Status        StepStatus     `json:"status"`
		HasScreenshot bool           `json:"has_screenshot"`
		Timestamp     float64        `json:"timestamp"`
	}

	args := s.Args
	if args == nil {
		args = map[string]any{}
	}

	var ts float64
	if !s.Timestamp.IsZero() {
		ts = float64(s.Timestamp.UnixMilli()) / 1000.0
	}

	return json.Marshal(wireStep{
		Number:        s.Number,
		Thought:       s.Thought,
		Action:        s.Action,
		Args:          args,
		Observation:   truncateRunes(s.Observation, wireObservationLimit),
		Status:        s.Status,
		HasScreenshot: len(s.Screenshot) > 0,
		Timestamp:     ts,
	})
}

// Result is the final outcome of one run. Steps are shared with the run's
// history, not copied.
type Result struct {
	Goal      string
	Success   bool
	Summary   string
	Steps     []*Step
	TotalTime time.Duration
}

func (r Result) MarshalJSON() ([]byte, error) {
	type wireResult struct {
		Goal      string  `json:"goal"`
		Success   bool    `json:"success"`
		Summary   string  `json:"summary"`
		Steps     []*Step `json:"steps"`
		TotalTime float64 `json:"total_time"`
	}

	steps := r.Steps
	if steps == nil {
		steps = []*Step{}
	}

	return json.Marshal(wireResult{
		Goal:      r.Goal,
		Success:   r.Success,
		Summary:   r.Summary,
		Steps:     steps,
		TotalTime: float64(int(r.TotalTime.Seconds()*100)) / 100,
	})
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
