package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"taskmaster/internal/models"
)

// tasksSchema describes the on-disk format: a flat array of task records.
// The file is validated against it at open so a corrupt or hand-edited
// file fails loudly instead of half-loading.
const tasksSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "title", "dueAt", "createdAt"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "title": {"type": "string", "minLength": 1},
      "priority": {"enum": ["low", "medium", "high"]},
      "dueAt": {"type": "string"},
      "completed": {"type": "boolean"},
      "createdAt": {"type": "string"},
      "reminderAt": {"type": ["string", "null"]},
      "nlpSourceText": {"type": "string"}
    }
  }
}`

// FileStore implements Store on top of a single JSON file holding the
// whole task collection. Every mutation rewrites the array wholesale.
// Single-writer only; there is no cross-process locking.
type FileStore struct {
	path   string
	mu     sync.Mutex
	tasks  []models.Task
	schema *jsonschema.Schema
}

// NewFileStore opens (or creates) the data file at path and loads the
// task collection into memory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("data file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tasks.schema.json", bytes.NewReader([]byte(tasksSchema))); err != nil {
		return nil, fmt.Errorf("add tasks schema: %w", err)
	}
	schema, err := compiler.Compile("tasks.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile tasks schema: %w", err)
	}

	s := &FileStore{path: path, schema: schema}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.tasks = []models.Task{}
		return s.flush()
	}
	if err != nil {
		return fmt.Errorf("read data file: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse data file %s: %w", s.path, err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return fmt.Errorf("data file %s failed validation: %w", s.path, err)
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return fmt.Errorf("decode data file %s: %w", s.path, err)
	}
	s.tasks = tasks
	return nil
}

// flush writes the whole collection back to disk. Callers hold s.mu.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

// ListTasks returns the full collection in insertion order.
func (s *FileStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

// CreateTask validates and appends the task, assigning id and createdAt
// unless the caller supplied an id (idempotent retry / undo recreation).
func (s *FileStore) CreateTask(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	for _, existing := range s.tasks {
		if existing.ID == task.ID {
			return fmt.Errorf("duplicate task id %q", task.ID)
		}
	}
	task.CreatedAt = models.NewTimestamp(time.Now().UTC())

	s.tasks = append(s.tasks, *task)
	if err := s.flush(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return err
	}
	return nil
}

// GetTask returns the task with the given id.
func (s *FileStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			t := s.tasks[i]
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateTask merges the patch into the stored task. A patch that would
// clear the due date is rejected with ErrDueDateRequired.
func (s *FileStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	if patch.ClearsDueAt() {
		return nil, ErrDueDateRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		before := s.tasks[i]
		patch.Apply(&s.tasks[i])
		if err := s.flush(); err != nil {
			s.tasks[i] = before
			return nil, err
		}
		t := s.tasks[i]
		return &t, nil
	}
	return nil, ErrNotFound
}

// DeleteTask removes the task with the given id.
func (s *FileStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		removed := s.tasks[i]
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		if err := s.flush(); err != nil {
			s.tasks = append(s.tasks[:i], append([]models.Task{removed}, s.tasks[i:]...)...)
			return err
		}
		return nil
	}
	return ErrNotFound
}

// Close is a no-op for the file store; it exists to satisfy Store.
func (s *FileStore) Close() error {
	return nil
}
