package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"taskmaster/internal/api"
	"taskmaster/internal/models"
)

// fakeRemote is an in-memory stand-in for the persistence service.
type fakeRemote struct {
	mu     sync.Mutex
	tasks  []models.Task
	nextID int

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	createCalls int
	updateCalls int
	deleteCalls int

	// beforeUpdate runs at the start of UpdateTask, while the tracker's
	// optimistic state is already visible.
	beforeUpdate func()
}

func (f *fakeRemote) ListTasks(ctx context.Context) ([]models.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

func (f *fakeRemote) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if f.createErr != nil {
		return models.Task{}, f.createErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if task.ID == "" {
		f.nextID++
		task.ID = fmt.Sprintf("srv-%d", f.nextID)
	}
	task.CreatedAt = models.NewTimestamp(time.Now().UTC())
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	f.updateCalls++
	f.mu.Unlock()
	if f.updateErr != nil {
		return models.Task{}, f.updateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			patch.Apply(&f.tasks[i])
			return f.tasks[i], nil
		}
	}
	return models.Task{}, &api.RemoteRejection{Status: 404, Message: "Task not found"}
}

func (f *fakeRemote) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleteCalls++
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &api.RemoteRejection{Status: 404, Message: "Task not found"}
}

func setupStore(t *testing.T, remote *fakeRemote) *Store {
	t.Helper()
	return New(remote, log.New(io.Discard))
}

func seedRemote(remote *fakeRemote, titles ...string) {
	for _, title := range titles {
		remote.CreateTask(context.Background(), models.Task{
			Title:    title,
			Priority: models.PriorityMedium,
			DueAt:    models.NewTimestamp(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		})
	}
	remote.createCalls = 0
}

func TestLoad_ReplacesCacheWholesale(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "one", "two")
	s := setupStore(t, remote)

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := len(s.Tasks()); got != 2 {
		t.Errorf("expected 2 tasks, got %d", got)
	}
}

func TestLoad_FailureLeavesCacheEmpty(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "one")
	s := setupStore(t, remote)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	remote.listErr = &api.TransportError{Op: "GET /api/tasks", Err: errors.New("connection refused")}
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error from failed Load")
	}
	if got := len(s.Tasks()); got != 0 {
		t.Errorf("expected empty cache after failed load, got %d tasks", got)
	}
}

func TestCreate_ValidationBlocksNetwork(t *testing.T) {
	remote := &fakeRemote{}
	s := setupStore(t, remote)

	_, err := s.Create(context.Background(), models.Draft{Title: "", DueAt: "2025-01-01T10:00"}, models.PriorityMedium)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *models.ValidationError, got %T (%v)", err, err)
	}
	if remote.createCalls != 0 {
		t.Errorf("expected no network call, got %d", remote.createCalls)
	}
	if got := len(s.Tasks()); got != 0 {
		t.Errorf("expected cache length 0, got %d", got)
	}
}

func TestCreate_AppendsServerRecord(t *testing.T) {
	remote := &fakeRemote{}
	s := setupStore(t, remote)

	draft := models.Draft{Title: "Buy milk", DueAt: "2025-01-01T10:00", Priority: models.PriorityLow}
	created, err := s.Create(context.Background(), draft, models.PriorityMedium)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("expected server-assigned id")
	}
	if created.Completed {
		t.Error("expected completed=false")
	}
	if created.Priority != models.PriorityLow {
		t.Errorf("expected priority low, got %q", created.Priority)
	}
	if got := len(s.Tasks()); got != 1 {
		t.Errorf("expected cache length 1, got %d", got)
	}
}

func TestCreate_RemoteRejectionLeavesCacheUnchanged(t *testing.T) {
	remote := &fakeRemote{createErr: &api.RemoteRejection{Status: 400, Message: "Title and Due Date/Time are required."}}
	s := setupStore(t, remote)

	draft := models.Draft{Title: "Buy milk", DueAt: "2025-01-01T10:00"}
	_, err := s.Create(context.Background(), draft, models.PriorityMedium)

	var rejection *api.RemoteRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("expected *api.RemoteRejection, got %T (%v)", err, err)
	}
	if got := len(s.Tasks()); got != 0 {
		t.Errorf("expected cache length 0, got %d", got)
	}
}

func TestUpdate_OptimisticBeforeConfirmation(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "Buy milk")
	s := setupStore(t, remote)
	s.Load(context.Background())
	id := s.Tasks()[0].ID

	var seenDuringCall bool
	remote.beforeUpdate = func() {
		// The remote has not answered yet; the cache must already show
		// the patched state.
		seenDuringCall = s.Tasks()[0].Completed
	}

	if err := s.Update(context.Background(), id, models.PatchCompleted(true)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !seenDuringCall {
		t.Error("optimistic state was not visible before the network call resolved")
	}
	if !s.Tasks()[0].Completed {
		t.Error("expected completed=true after confirmation")
	}
}

func TestUpdate_RollbackOnFailure(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "Buy milk")
	s := setupStore(t, remote)
	s.Load(context.Background())
	id := s.Tasks()[0].ID

	var renders int
	s.OnChange = func() { renders++ }

	remote.updateErr = &api.TransportError{Op: "PUT", Err: errors.New("connection reset")}
	err := s.Update(context.Background(), id, models.PatchCompleted(true))
	if err == nil {
		t.Fatal("expected error from failed update")
	}
	if s.Tasks()[0].Completed {
		t.Error("expected rollback to completed=false")
	}
	if renders < 2 {
		t.Errorf("expected a render for the optimistic apply and one for the rollback, got %d", renders)
	}
}

func TestUpdate_CelebratesExactlyOnce(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "Buy milk")
	s := setupStore(t, remote)
	s.Load(context.Background())
	id := s.Tasks()[0].ID

	var fired int
	s.OnCompleted = func(models.Task) { fired++ }

	if err := s.Update(context.Background(), id, models.PatchCompleted(true)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected one celebration, got %d", fired)
	}

	// Re-asserting completed or patching other fields must not re-fire.
	if err := s.Update(context.Background(), id, models.PatchCompleted(true)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := s.Update(context.Background(), id, models.PatchTitle("Buy oat milk")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if fired != 1 {
		t.Errorf("expected celebration to stay at 1, got %d", fired)
	}
}

func TestUpdate_RejectsOverlappingPatch(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "Buy milk")
	s := setupStore(t, remote)
	s.Load(context.Background())
	id := s.Tasks()[0].ID

	started := make(chan struct{})
	release := make(chan struct{})
	remote.beforeUpdate = func() {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Update(context.Background(), id, models.PatchCompleted(true))
	}()

	<-started
	if err := s.Update(context.Background(), id, models.PatchTitle("Other")); !errors.Is(err, ErrPatchInFlight) {
		t.Errorf("expected ErrPatchInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first update failed: %v", err)
	}
}

// wireRemote round-trips every patch through JSON the way the HTTP
// client and server do, so semantics that hang on an explicit null
// are exercised across serialization.
type wireRemote struct {
	fakeRemote
}

func (w *wireRemote) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return models.Task{}, err
	}
	var decoded models.TaskPatch
	if err := json.Unmarshal(data, &decoded); err != nil {
		return models.Task{}, err
	}
	return w.fakeRemote.UpdateTask(ctx, id, decoded)
}

func TestUpdate_ReminderDisarmSurvivesWire(t *testing.T) {
	remote := &wireRemote{}
	seedRemote(&remote.fakeRemote, "Standup")
	s := New(remote, log.New(io.Discard))
	s.Load(context.Background())
	id := s.Tasks()[0].ID

	at := models.NewTimestamp(time.Date(2025, 6, 1, 9, 45, 0, 0, time.UTC))
	if err := s.Update(context.Background(), id, models.PatchReminder(&at)); err != nil {
		t.Fatalf("arming failed: %v", err)
	}
	if s.Tasks()[0].ReminderAt == nil {
		t.Fatal("reminder not armed")
	}

	if err := s.Update(context.Background(), id, models.PatchReminder(nil)); err != nil {
		t.Fatalf("disarming failed: %v", err)
	}
	if remote.tasks[0].ReminderAt != nil {
		t.Error("remote record still armed after serialized disarm")
	}
	if s.Tasks()[0].ReminderAt != nil {
		t.Error("server reply re-armed the cache after disarm")
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	remote := &fakeRemote{}
	s := setupStore(t, remote)
	if err := s.Update(context.Background(), "nope", models.PatchCompleted(true)); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
}

func TestRemove_OptimisticWithUndo(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "Buy milk")
	s := setupStore(t, remote)
	s.Load(context.Background())
	original := s.Tasks()[0]

	if err := s.Remove(context.Background(), original.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if got := len(s.Tasks()); got != 0 {
		t.Fatalf("expected empty cache right after remove, got %d", got)
	}

	restored, err := s.Undo(context.Background())
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if restored.Title != original.Title {
		t.Errorf("expected title %q, got %q", original.Title, restored.Title)
	}
	if restored.Priority != original.Priority {
		t.Errorf("expected priority %q, got %q", original.Priority, restored.Priority)
	}
	if !restored.DueAt.Equal(original.DueAt.Time) {
		t.Errorf("expected dueAt %v, got %v", original.DueAt.Time, restored.DueAt.Time)
	}
	if got := len(s.Tasks()); got != 1 {
		t.Errorf("expected 1 task after undo, got %d", got)
	}
}

func TestRemove_DeleteFailureDoesNotRevert(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "Buy milk")
	s := setupStore(t, remote)
	s.Load(context.Background())
	id := s.Tasks()[0].ID

	remote.deleteErr = &api.TransportError{Op: "DELETE", Err: errors.New("connection refused")}
	if err := s.Remove(context.Background(), id); err != nil {
		t.Fatalf("Remove should not surface the delete failure, got %v", err)
	}
	if got := len(s.Tasks()); got != 0 {
		t.Errorf("expected optimistic removal to stand, got %d tasks", got)
	}

	// Undo is not blocked by the failed delete either.
	remote.createErr = nil
	if _, err := s.Undo(context.Background()); err != nil {
		t.Errorf("Undo failed: %v", err)
	}
}

func TestUndo_WindowExpires(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "Buy milk")
	s := setupStore(t, remote)
	s.Load(context.Background())
	id := s.Tasks()[0].ID

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	if err := s.Remove(context.Background(), id); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	s.now = func() time.Time { return base.Add(DefaultUndoWindow + time.Second) }
	if _, err := s.Undo(context.Background()); !errors.Is(err, ErrUndoExpired) {
		t.Errorf("expected ErrUndoExpired, got %v", err)
	}
}

func TestUndo_NothingPending(t *testing.T) {
	s := setupStore(t, &fakeRemote{})
	if _, err := s.Undo(context.Background()); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestClearCompleted(t *testing.T) {
	remote := &fakeRemote{}
	seedRemote(remote, "done one", "still open", "done two")
	s := setupStore(t, remote)
	s.Load(context.Background())

	tasks := s.Tasks()
	s.Update(context.Background(), tasks[0].ID, models.PatchCompleted(true))
	s.Update(context.Background(), tasks[2].ID, models.PatchCompleted(true))

	cleared := s.ClearCompleted(context.Background())
	if cleared != 2 {
		t.Errorf("expected 2 cleared, got %d", cleared)
	}

	remaining := s.Tasks()
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining, got %d", len(remaining))
	}
	if remaining[0].Title != "still open" {
		t.Errorf("wrong task survived: %q", remaining[0].Title)
	}
	if remote.deleteCalls != 2 {
		t.Errorf("expected 2 remote deletes, got %d", remote.deleteCalls)
	}
}
