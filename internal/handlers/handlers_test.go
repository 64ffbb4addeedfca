package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"taskmaster/internal/models"
	"taskmaster/internal/store"
)

func setupTestHandlers(t *testing.T) (*chi.Mux, *store.FileStore) {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h := New(s)
	r := chi.NewRouter()
	r.Get("/api/tasks", h.ListTasks)
	r.Post("/api/tasks", h.CreateTask)
	r.Put("/api/tasks/{id}", h.UpdateTask)
	r.Delete("/api/tasks/{id}", h.DeleteTask)
	return r, s
}

func seedTask(t *testing.T, s *store.FileStore, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:    title,
		Priority: models.PriorityLow,
		DueAt:    models.NewTimestamp(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)),
	}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func TestListTasks(t *testing.T) {
	r, s := setupTestHandlers(t)
	seedTask(t, s, "first")
	seedTask(t, s, "second")

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var tasks []models.Task
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestCreateTask(t *testing.T) {
	r, _ := setupTestHandlers(t)

	body := `{"title":"Buy milk","dueAt":"2025-01-01T10:00","priority":"low"}`
	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body)
	}

	var task models.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if task.ID == "" {
		t.Error("expected server-assigned id")
	}
	if task.CreatedAt.IsZero() {
		t.Error("expected server-assigned createdAt")
	}
	if task.Completed {
		t.Error("expected completed=false")
	}
}

func TestCreateTask_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"dueAt":"2025-01-01T10:00"}`},
		{"empty title", `{"title":"","dueAt":"2025-01-01T10:00"}`},
		{"missing due date", `{"title":"Buy milk"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, s := setupTestHandlers(t)

			req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			var body struct {
				Message string `json:"message"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Message != "Title and Due Date/Time are required." {
				t.Errorf("wrong message: %q", body.Message)
			}

			tasks, _ := s.ListTasks(context.Background())
			if len(tasks) != 0 {
				t.Errorf("expected no tasks created, got %d", len(tasks))
			}
		})
	}
}

func TestCreateTask_InvalidPriorityMessage(t *testing.T) {
	r, _ := setupTestHandlers(t)

	body := `{"title":"Buy milk","dueAt":"2025-01-01T10:00","priority":"urgent"}`
	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(resp.Message, "priority") {
		t.Errorf("message %q does not mention priority", resp.Message)
	}
	if resp.Message == "Title and Due Date/Time are required." {
		t.Error("priority rejection reported as a missing-field error")
	}
}

func TestUpdateTask(t *testing.T) {
	r, s := setupTestHandlers(t)
	task := seedTask(t, s, "Buy milk")

	body, _ := json.Marshal(models.PatchCompleted(true))
	req := httptest.NewRequest("PUT", "/api/tasks/"+task.ID, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}

	var updated models.Task
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !updated.Completed {
		t.Error("expected completed after patch")
	}
}

func TestUpdateTask_NullDueDateRejected(t *testing.T) {
	r, s := setupTestHandlers(t)
	task := seedTask(t, s, "Buy milk")

	req := httptest.NewRequest("PUT", "/api/tasks/"+task.ID, strings.NewReader(`{"dueAt":null}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUpdateTask_UnknownID(t *testing.T) {
	r, _ := setupTestHandlers(t)

	req := httptest.NewRequest("PUT", "/api/tasks/does-not-exist", strings.NewReader(`{"completed":true}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	r, s := setupTestHandlers(t)
	task := seedTask(t, s, "Buy milk")

	req := httptest.NewRequest("DELETE", "/api/tasks/"+task.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest("DELETE", "/api/tasks/"+task.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d on second delete, got %d", http.StatusNotFound, rec.Code)
	}
}
