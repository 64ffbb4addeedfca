package store

import (
	"context"
	"errors"

	"taskmaster/internal/models"
)

// ErrNotFound is returned when no task exists with the requested id.
var ErrNotFound = errors.New("task not found")

// ErrDueDateRequired is returned when a patch would leave a task without
// a due date.
var ErrDueDateRequired = errors.New("task must have a due date/time")

// Store defines the interface for data persistence operations.
type Store interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}
