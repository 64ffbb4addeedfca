// Package tracker holds the client-side task cache: an in-memory mirror
// of the persistence service with optimistic mutation and rollback.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"taskmaster/internal/models"
)

// DefaultUndoWindow bounds how long a removed task can be restored.
const DefaultUndoWindow = 5 * time.Second

var (
	// ErrUnknownTask is returned when a mutation targets an id that is
	// not in the cache.
	ErrUnknownTask = errors.New("unknown task id")

	// ErrPatchInFlight is returned when an update targets a record whose
	// previous patch has not resolved yet. Overlapping patches to one id
	// are rejected rather than raced.
	ErrPatchInFlight = errors.New("another update for this task is still in flight")

	// ErrNothingToUndo is returned by Undo when no removal is pending.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrUndoExpired is returned by Undo after the undo window has passed.
	ErrUndoExpired = errors.New("undo window has expired")
)

// Remote is the slice of the persistence service the tracker needs.
type Remote interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// tx is an optimistic transaction: the record as it was before the patch
// and as it is after. Rollback replays before, never a re-fetched state.
type tx struct {
	before models.Task
	after  models.Task
}

type undoEntry struct {
	task     models.Task
	deadline time.Time
}

// Store is the sole writer of the in-memory task collection. Mutations
// are applied optimistically and confirmed or rolled back when the
// remote call resolves. Readers always get a snapshot copy.
type Store struct {
	remote Remote
	logger *log.Logger

	// UndoWindow bounds Undo after a Remove. Defaults to DefaultUndoWindow.
	UndoWindow time.Duration

	// OnChange fires after every cache transition: optimistic apply,
	// confirmation, rollback, load. Used by the UI to re-render.
	OnChange func()

	// OnCompleted fires exactly once when a confirmed update transitions
	// completed false to true.
	OnCompleted func(models.Task)

	now func() time.Time

	mu       sync.Mutex
	tasks    []models.Task
	inflight map[string]struct{}
	undo     *undoEntry
}

// New creates an empty store backed by the given remote.
func New(remote Remote, logger *log.Logger) *Store {
	return &Store{
		remote:     remote,
		logger:     logger,
		UndoWindow: DefaultUndoWindow,
		now:        time.Now,
		inflight:   make(map[string]struct{}),
	}
}

func (s *Store) notify() {
	if s.OnChange != nil {
		s.OnChange()
	}
}

// clone deep-copies a task so cached records never share pointers with
// snapshots handed to callers.
func clone(t models.Task) models.Task {
	c := t
	if t.ReminderAt != nil {
		r := *t.ReminderAt
		c.ReminderAt = &r
	}
	return c
}

// Tasks returns a point-in-time snapshot of the cache.
func (s *Store) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = clone(t)
	}
	return out
}

// Load fetches the full collection and replaces the cache wholesale.
// On failure the cache is left empty and the error is surfaced; there
// is no automatic retry.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.remote.ListTasks(ctx)

	s.mu.Lock()
	if err != nil {
		s.tasks = nil
	} else {
		s.tasks = make([]models.Task, len(tasks))
		for i, t := range tasks {
			s.tasks[i] = clone(t)
		}
	}
	s.mu.Unlock()

	s.notify()
	return err
}

// Create validates the draft and submits it. Validation failure blocks
// the action before any network call; remote failure leaves the cache
// unchanged. On success the server-assigned record is appended.
func (s *Store) Create(ctx context.Context, draft models.Draft, defaultPriority string) (models.Task, error) {
	task, err := draft.Assemble(defaultPriority)
	if err != nil {
		return models.Task{}, err
	}

	created, err := s.remote.CreateTask(ctx, task)
	if err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, clone(created))
	s.mu.Unlock()

	s.notify()
	return created, nil
}

// Update applies the patch to the cached record immediately and then
// confirms it with the service. On failure the record is restored to its
// pre-patch snapshot. Overlapping updates to one id are rejected with
// ErrPatchInFlight.
func (s *Store) Update(ctx context.Context, id string, patch models.TaskPatch) error {
	s.mu.Lock()
	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		return ErrPatchInFlight
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownTask
	}

	t := tx{before: clone(s.tasks[idx])}
	after := clone(s.tasks[idx])
	patch.Apply(&after)
	t.after = after
	s.tasks[idx] = after
	s.inflight[id] = struct{}{}
	s.mu.Unlock()

	s.notify() // optimistic state is visible before the call resolves

	updated, err := s.remote.UpdateTask(ctx, id, patch)

	s.mu.Lock()
	delete(s.inflight, id)
	idx = s.indexOf(id)
	if err != nil {
		if idx >= 0 {
			s.tasks[idx] = t.before
		}
		s.mu.Unlock()
		s.notify()
		return err
	}
	if idx >= 0 {
		s.tasks[idx] = clone(updated)
	}
	celebrate := !t.before.Completed && updated.Completed
	s.mu.Unlock()

	s.notify()
	if celebrate && s.OnCompleted != nil {
		s.OnCompleted(updated)
	}
	return nil
}

// Remove deletes the record from the cache immediately and opens the
// undo window. The remote delete is best-effort: failure is logged and
// neither reverts the removal nor blocks Undo.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownTask
	}
	removed := clone(s.tasks[idx])
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.undo = &undoEntry{task: removed, deadline: s.now().Add(s.UndoWindow)}
	s.mu.Unlock()

	s.notify()

	if err := s.remote.DeleteTask(ctx, id); err != nil {
		s.logger.Warn("remote delete failed, optimistic removal stands", "id", id, "err", err)
	}
	return nil
}

// Undo recreates the most recently removed task if the undo window is
// still open. The recreation is a fresh create; the service may keep the
// old id or assign a new one.
func (s *Store) Undo(ctx context.Context) (models.Task, error) {
	s.mu.Lock()
	entry := s.undo
	if entry == nil {
		s.mu.Unlock()
		return models.Task{}, ErrNothingToUndo
	}
	if s.now().After(entry.deadline) {
		s.undo = nil
		s.mu.Unlock()
		return models.Task{}, ErrUndoExpired
	}
	s.undo = nil
	s.mu.Unlock()

	created, err := s.remote.CreateTask(ctx, entry.task)
	if err != nil {
		// Leave the entry available for a user-initiated retry.
		s.mu.Lock()
		s.undo = entry
		s.mu.Unlock()
		return models.Task{}, err
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, clone(created))
	s.mu.Unlock()

	s.notify()
	return created, nil
}

// ClearCompleted removes every completed task. Bulk removal carries no
// undo window; remote deletes are best-effort as in Remove.
func (s *Store) ClearCompleted(ctx context.Context) int {
	s.mu.Lock()
	var ids []string
	remaining := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Completed {
			ids = append(ids, t.ID)
		} else {
			remaining = append(remaining, t)
		}
	}
	s.tasks = remaining
	s.mu.Unlock()

	if len(ids) == 0 {
		return 0
	}
	s.notify()

	for _, id := range ids {
		if err := s.remote.DeleteTask(ctx, id); err != nil {
			s.logger.Warn("remote delete failed during clear completed", "id", id, "err", err)
		}
	}
	return len(ids)
}

// indexOf finds a task by id. Callers hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
