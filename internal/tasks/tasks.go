// Package tasks runs named background jobs, optionally on an interval, and
// keeps a bounded log of each job's last run for the admin API.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vouchd/vouchd/internal/logging"
)

const maxLogsPerTask = 1000

// Func is the unit of work. The logger stores output on the task run so it
// can be fetched afterwards.
type Func func(ctx context.Context, logger logging.InternalLogger) error

type Status struct {
	Name       string    `json:"name,omitempty"`
	Running    bool      `json:"running,omitempty"`
	LastRun    time.Time `json:"last_run"`
	LastResult string    `json:"last_result,omitempty"`
	NextRun    time.Time `json:"next_run"`
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}

type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task '%s' not found", e.Name)
}

type Manager struct {
	tasks sync.Map
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds a task. A positive interval schedules it periodically.
func (m *Manager) Register(name string, interval time.Duration, fn Func) {
	t := &task{
		name:         name,
		interval:     interval,
		handler:      fn,
		registeredAt: time.Now(),
	}
	m.tasks.Store(name, t)

	if interval > 0 {
		go t.schedule()
	}
}

// Trigger starts a task run in the background.
func (m *Manager) Trigger(name string) error {
	v, ok := m.tasks.Load(name)
	if !ok {
		return NotFoundError{Name: name}
	}
	go v.(*task).run()
	return nil
}

func (m *Manager) ListStatus() []Status {
	var list []Status
	m.tasks.Range(func(_, v any) bool {
		list = append(list, v.(*task).status())
		return true
	})
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	v, ok := m.tasks.Load(name)
	if !ok {
		return nil, NotFoundError{Name: name}
	}
	return v.(*task).getLogs(), nil
}

type task struct {
	name         string
	interval     time.Duration
	handler      Func
	registeredAt time.Time

	mu         sync.RWMutex
	running    bool
	lastRun    time.Time
	lastResult string
	logs       []LogEntry
}

func (t *task) schedule() {
	ticker := time.NewTicker(t.interval)
	for range ticker.C {
		t.run()
	}
}

func (t *task) run() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		log.Warn().Str("task", t.name).Msg("task is already running, skipping execution")
		return
	}
	t.running = true
	t.logs = t.logs[:0]
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.lastRun = time.Now()
		t.mu.Unlock()
	}()

	zlog := log.With().Str("task", t.name).Logger()
	logger := logging.NewMultiLogger(logging.NewZLogger(zlog), taskLogger{t})
	logger.Info("starting task execution")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	err := t.handler(ctx, logger)
	duration := time.Since(start)

	t.mu.Lock()
	if err != nil {
		t.lastResult = fmt.Sprintf("failed: %v", err)
	} else {
		t.lastResult = "success"
	}
	t.mu.Unlock()

	if err != nil {
		logger.Error("task failed after %s: %v", duration, err)
	} else {
		logger.Info("task completed successfully in %s", duration)
	}
}

func (t *task) status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var next time.Time
	if t.interval > 0 {
		if !t.lastRun.IsZero() {
			next = t.lastRun.Add(t.interval)
		} else {
			next = t.registeredAt.Add(t.interval)
		}
	}
	return Status{
		Name:       t.name,
		Running:    t.running,
		LastRun:    t.lastRun,
		LastResult: t.lastResult,
		NextRun:    next,
	}
}

func (t *task) getLogs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cpy := make([]LogEntry, len(t.logs))
	copy(cpy, t.logs)
	return cpy
}

func (t *task) appendLog(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logs = append(t.logs, LogEntry{Time: time.Now(), Level: level, Message: msg})
	if len(t.logs) > maxLogsPerTask {
		t.logs = t.logs[1:]
	}
}

// taskLogger adapts a task's log buffer to logging.InternalLogger.
type taskLogger struct {
	t *task
}

func (l taskLogger) Info(format string, args ...any) {
	l.t.appendLog("info", fmt.Sprintf(format, args...))
}

func (l taskLogger) Warn(format string, args ...any) {
	l.t.appendLog("warn", fmt.Sprintf(format, args...))
}

func (l taskLogger) Error(format string, args ...any) {
	l.t.appendLog("error", fmt.Sprintf(format, args...))
}
