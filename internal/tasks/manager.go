// File: internal/tasks/manager.go
package tasks

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer/internal/agent"
	"github.com/xkilldash9x/wayfarer/internal/config"
)

// ErrQueueFull is returned by Create when the queued backlog is at capacity.
var ErrQueueFull = fmt.Errorf("task queue is full")

// Manager keeps the task map and ordered history behind a single mutex.
// Pointers handed out by lookup methods are copies; callers mutate state
// only through the manager's transition methods.
type Manager struct {
	cfg    config.TasksConfig
	logger *zap.Logger

	mu        sync.Mutex
	tasks     map[string]*Task
	order     []string
	currentID string
}

// NewManager creates an empty task manager.
func NewManager(cfg config.TasksConfig, logger *zap.Logger) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("tasks"),
		tasks:  make(map[string]*Task),
	}
}

// Create registers a new queued task for the goal. Short IDs keep logs and
// the dashboard readable.
func (m *Manager) Create(goal string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queuedLocked() >= m.cfg.QueueSize {
		return nil, ErrQueueFull
	}

	task := &Task{
		ID:        uuid.NewString()[:8],
		Goal:      goal,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
	m.tasks[task.ID] = task
	m.order = append(m.order, task.ID)

	m.logger.Info("Task created", zap.String("task_id", task.ID), zap.String("goal", goal))
	return copyTask(task), nil
}

// Get returns a copy of the task, or nil when the ID is unknown.
func (m *Manager) Get(id string) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyTask(m.tasks[id])
}

// Current returns the task marked running, if any.
func (m *Manager) Current() *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

// Start transitions a queued task to running.
func (m *Manager) Start(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.Status != StatusQueued {
		return false
	}
	task.Status = StatusRunning
	task.StartedAt = time.Now()
	m.currentID = id

	m.logger.Info("Task started", zap.String("task_id", id))
	return true
}

// Complete records the agent result. The task lands in completed or failed
// depending on the outcome.
func (m *Manager) Complete(id string, result agent.Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.Status.terminal() {
		return false
	}

	task.Result = &result
	task.CompletedAt = time.Now()
	if result.Success {
		task.Status = StatusCompleted
	} else {
		task.Status = StatusFailed
		task.Error = result.Summary
	}
	if m.currentID == id {
		m.currentID = ""
	}

	m.logger.Info("Task finished",
		zap.String("task_id", id),
		zap.String("status", string(task.Status)),
		zap.Int("steps", len(result.Steps)))
	return true
}

// Cancel stops a queued or running task. Terminal tasks are left alone.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.Status.terminal() {
		return false
	}

	task.Status = StatusCancelled
	task.CompletedAt = time.Now()
	if m.currentID == id {
		m.currentID = ""
	}

	m.logger.Info("Task cancelled", zap.String("task_id", id))
	return true
}

// All returns copies of the most recent tasks, newest first, capped by the
// configured history limit.
func (m *Manager) All() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := m.cfg.HistoryLimit
	out := make([]*Task, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if task, ok := m.tasks[m.order[i]]; ok {
			out = append(out, copyTask(task))
		}
	}
	return out
}

// Status returns the aggregate summary for the dashboard.
func (m *Manager) Status() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{Total: len(m.tasks), Current: m.currentLocked()}
	for _, task := range m.tasks {
		switch task.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

func (m *Manager) currentLocked() *Task {
	if m.currentID == "" {
		return nil
	}
	return copyTask(m.tasks[m.currentID])
}

func (m *Manager) queuedLocked() int {
	n := 0
	for _, task := range m.tasks {
		if task.Status == StatusQueued {
			n++
		}
	}
	return n
}

func copyTask(t *Task) *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
