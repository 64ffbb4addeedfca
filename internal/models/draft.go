package models

import "strings"

// Draft holds unvalidated user-provided fields prior to becoming a
// persisted Task.
type Draft struct {
	Title         string
	Priority      string
	DueAt         string // raw input, parsed on assembly
	NLPSourceText string
}

// Assemble validates the draft and builds the task to submit. Priority
// falls back to defaultPriority when absent. The returned error is always
// a *ValidationError.
func (d Draft) Assemble(defaultPriority string) (Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Message: "please enter a task title"}
	}

	if strings.TrimSpace(d.DueAt) == "" {
		return Task{}, &ValidationError{Field: "dueAt", Message: "please set a due date and time"}
	}
	due, err := ParseTimestamp(d.DueAt)
	if err != nil {
		return Task{}, &ValidationError{Field: "dueAt", Message: "due date/time is not a valid timestamp"}
	}

	priority := d.Priority
	if priority == "" {
		priority = defaultPriority
	}

	task := Task{
		Title:         title,
		Priority:      priority,
		DueAt:         due,
		NLPSourceText: d.NLPSourceText,
	}
	if err := task.Validate(); err != nil {
		return Task{}, err
	}
	return task, nil
}
