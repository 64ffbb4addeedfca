// Package reminder runs the periodic sweep that detects due reminders
// and triggers notifications.
package reminder

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"taskmaster/internal/models"
)

// DefaultInterval is the sweep period. The firing window is one
// interval wide, so a reminder fires at most once per sweep cycle.
const DefaultInterval = time.Minute

// Scheduler periodically scans a task snapshot for due reminders. Firing
// never mutates the task: a fired reminder is not disarmed, the narrow
// time window is the natural exit. A process suspended across the window
// silently misses the reminder; that is an accepted limitation.
type Scheduler struct {
	// Notifier is the best-effort system notification capability. It may
	// be nil or fail; the in-app alert path still runs.
	Notifier Notifier

	// OnAlert is the in-app alert path, invoked for every fired reminder.
	OnAlert func(models.Task)

	interval time.Duration
	snapshot func() []models.Task
	logger   *log.Logger
	now      func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a scheduler sweeping the given snapshot function at the
// given interval. An interval of zero means DefaultInterval.
func New(interval time.Duration, snapshot func() []models.Task, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		snapshot: snapshot,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Sweep returns the tasks whose reminder falls inside the firing window
// at now: armed, not completed, and reminderAt within [now-interval, now].
func (s *Scheduler) Sweep(tasks []models.Task, now time.Time) []models.Task {
	var due []models.Task
	for _, t := range tasks {
		if t.Completed || t.ReminderAt == nil {
			continue
		}
		elapsed := now.Sub(t.ReminderAt.Time)
		if elapsed >= 0 && elapsed < s.interval {
			due = append(due, t)
		}
	}
	return due
}

// Start launches the periodic sweep in its own goroutine. Stop cancels it.
func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				for _, t := range s.Sweep(s.snapshot(), s.now()) {
					s.fire(t)
				}
			}
		}
	}()
}

// Stop cancels the sweep. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) fire(t models.Task) {
	if s.Notifier != nil {
		if err := s.Notifier.Notify(t); err != nil {
			// Degrade gracefully; the in-app alert below still runs.
			s.logger.Debug("system notification unavailable", "id", t.ID, "err", err)
		}
	}
	if s.OnAlert != nil {
		s.OnAlert(t)
	}
}
