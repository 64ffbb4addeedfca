// Package ics renders a task as an iCalendar event for download into
// the user's calendar.
package ics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"taskmaster/internal/models"
)

// eventDuration is the fixed length of an exported event.
const eventDuration = time.Hour

// ErrNoDueDate is returned when the task has no due date to export.
var ErrNoDueDate = errors.New("no due date to export")

// Event renders the task as a single-VEVENT iCalendar blob: UID,
// DTSTAMP (now), DTSTART at the due time, DTEND one hour later, the
// title as SUMMARY and the priority as DESCRIPTION.
func Event(task models.Task, now time.Time) (string, error) {
	if task.DueAt.IsZero() {
		return "", ErrNoDueDate
	}

	cal := ical.NewCalendar()
	cal.SetProductId("-//TaskMaster//ToDo App//EN")

	event := cal.AddEvent(fmt.Sprintf("%s@taskmaster.app", task.ID))
	event.SetDtStampTime(now.UTC())
	event.SetStartAt(task.DueAt.UTC())
	event.SetEndAt(task.DueAt.Add(eventDuration).UTC())
	event.SetSummary(task.Title)
	event.SetDescription(fmt.Sprintf("Priority: %s", task.Priority))

	return cal.Serialize(), nil
}

// Filename derives a safe .ics file name from the task title.
func Filename(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "task"
	}
	return name + ".ics"
}

// WriteFile exports the task as an .ics file under dir and returns the
// written path.
func WriteFile(task models.Task, dir string, now time.Time) (string, error) {
	blob, err := Event(task, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, Filename(task.Title))
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		return "", fmt.Errorf("write calendar file: %w", err)
	}
	return path, nil
}
