// Package view derives rendered projections from a task snapshot:
// filtering, sorting, and aggregate progress. Everything here is pure;
// nothing mutates its input.
package view

import (
	"math"
	"sort"
	"time"

	"taskmaster/internal/models"
)

// FilterMode selects which tasks a projection shows.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterActive    FilterMode = "active"
	FilterCompleted FilterMode = "completed"
	FilterFailed    FilterMode = "failed"
)

// SortKey selects the ordering of a projection.
type SortKey string

const (
	SortCreatedDesc SortKey = "createdAt-desc"
	SortCreatedAsc  SortKey = "createdAt-asc"
	SortPriority    SortKey = "priority-desc"
	SortDueDate     SortKey = "dueDate-asc"
)

// State is the explicit view state threaded from the controller through
// the projection. No component reads ambient globals.
type State struct {
	Filter FilterMode
	Sort   SortKey
	Dark   bool
}

// DefaultState mirrors a fresh session: everything, newest first.
func DefaultState() State {
	return State{Filter: FilterAll, Sort: SortCreatedDesc}
}

// Filter returns the tasks matching mode, evaluated at now. A record
// with no due timestamp is treated as having no date rather than
// panicking; it can never be "failed".
func Filter(tasks []models.Task, mode FilterMode, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		switch mode {
		case FilterActive:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		case FilterFailed:
			if t.Completed || t.DueAt.IsZero() || !t.DueAt.Before(now) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Sort returns a copy of tasks ordered by key. The sort is stable: ties
// keep their original relative order. A missing due date sorts first
// under dueDate-asc.
func Sort(tasks []models.Task, key SortKey) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)

	switch key {
	case SortCreatedDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt.Time)
		})
	case SortCreatedAsc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt.Time)
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PriorityRank() < out[j].PriorityRank()
		})
	case SortDueDate:
		sort.SliceStable(out, func(i, j int) bool {
			// Zero time already orders before any real due date.
			return out[i].DueAt.Before(out[j].DueAt.Time)
		})
	}
	return out
}

// Progress summarizes completion across the whole collection.
type Progress struct {
	CompletedCount int
	TotalCount     int
	Percent        int
}

// ComputeProgress counts completed tasks and derives a rounded percent.
// An empty collection is 0 percent.
func ComputeProgress(tasks []models.Task) Progress {
	p := Progress{TotalCount: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			p.CompletedCount++
		}
	}
	if p.TotalCount > 0 {
		p.Percent = int(math.Round(100 * float64(p.CompletedCount) / float64(p.TotalCount)))
	}
	return p
}

// Message picks the encouragement tier for the current progress.
func (p Progress) Message() string {
	messages := []string{
		"Let's get to work!",
		"Good start!",
		"Keep it up!",
		"Almost there!",
		"You're a productivity machine!",
	}

	idx := 0
	if p.Percent > 0 {
		idx = 1
	}
	if p.Percent > 30 {
		idx = 2
	}
	if p.Percent > 70 {
		idx = 3
	}
	if p.Percent == 100 {
		idx = 4
	}
	if p.TotalCount == 0 {
		idx = 0
	}
	return messages[idx]
}
