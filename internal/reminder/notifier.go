package reminder

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"taskmaster/internal/models"
)

// Notifier is the external notification capability. It may be absent or
// denied by the platform; callers must treat failure as non-fatal.
type Notifier interface {
	Notify(task models.Task) error
}

// SystemNotifier sends desktop notifications through the platform's
// notification service.
type SystemNotifier struct {
	// AppName labels the notification source.
	AppName string
}

// Notify pops a desktop notification for the task's reminder.
func (n SystemNotifier) Notify(task models.Task) error {
	title := fmt.Sprintf("Reminder: %s", task.Title)
	body := fmt.Sprintf("Due: %s", task.DueAt.Format("Jan 2, 2006 15:04"))
	if err := beeep.Notify(title, body, ""); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
