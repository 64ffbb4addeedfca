package models

import "encoding/json"

// NullableTime distinguishes an explicit JSON null from a concrete
// timestamp. A nil *NullableTime in a patch means the field is absent.
type NullableTime struct {
	Valid bool // false means explicit null
	Time  Timestamp
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullableTime{}
		return nil
	}
	var ts Timestamp
	if err := json.Unmarshal(data, &ts); err != nil {
		return err
	}
	*n = NullableTime{Valid: true, Time: ts}
	return nil
}

// TaskPatch is a partial update to a task. Nil fields are left untouched.
// DueAt and ReminderAt carry null explicitly so the server can reject a
// patch that clears the due date while "reminderAt": null disarms a reminder.
type TaskPatch struct {
	Title         *string       `json:"title,omitempty"`
	Priority      *string       `json:"priority,omitempty"`
	Completed     *bool         `json:"completed,omitempty"`
	DueAt         *NullableTime `json:"dueAt,omitempty"`
	ReminderAt    *NullableTime `json:"reminderAt,omitempty"`
	NLPSourceText *string       `json:"nlpSourceText,omitempty"`
}

// UnmarshalJSON decodes by key presence. The stdlib decoder nils a
// pointer field on a JSON null without consulting the pointee's
// unmarshaler, which would make {"dueAt": null} indistinguishable from
// an absent key, so dueAt and reminderAt are routed through
// NullableTime by hand.
func (p *TaskPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = TaskPatch{}
	if v, ok := raw["title"]; ok {
		if err := json.Unmarshal(v, &p.Title); err != nil {
			return err
		}
	}
	if v, ok := raw["priority"]; ok {
		if err := json.Unmarshal(v, &p.Priority); err != nil {
			return err
		}
	}
	if v, ok := raw["completed"]; ok {
		if err := json.Unmarshal(v, &p.Completed); err != nil {
			return err
		}
	}
	if v, ok := raw["dueAt"]; ok {
		nt := new(NullableTime)
		if err := nt.UnmarshalJSON(v); err != nil {
			return err
		}
		p.DueAt = nt
	}
	if v, ok := raw["reminderAt"]; ok {
		nt := new(NullableTime)
		if err := nt.UnmarshalJSON(v); err != nil {
			return err
		}
		p.ReminderAt = nt
	}
	if v, ok := raw["nlpSourceText"]; ok {
		if err := json.Unmarshal(v, &p.NLPSourceText); err != nil {
			return err
		}
	}
	return nil
}

// ClearsDueAt reports whether applying the patch would leave the task
// without a due date.
func (p TaskPatch) ClearsDueAt() bool {
	return p.DueAt != nil && (!p.DueAt.Valid || p.DueAt.Time.IsZero())
}

// Apply merges the patch into t. Callers must reject a patch for which
// ClearsDueAt is true before applying.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.DueAt != nil && p.DueAt.Valid {
		t.DueAt = p.DueAt.Time
	}
	if p.ReminderAt != nil {
		if p.ReminderAt.Valid {
			ts := p.ReminderAt.Time
			t.ReminderAt = &ts
		} else {
			t.ReminderAt = nil
		}
	}
	if p.NLPSourceText != nil {
		t.NLPSourceText = *p.NLPSourceText
	}
}

// PatchTitle builds a patch that renames a task.
func PatchTitle(title string) TaskPatch {
	return TaskPatch{Title: &title}
}

// PatchCompleted builds a patch that sets the completion flag.
func PatchCompleted(done bool) TaskPatch {
	return TaskPatch{Completed: &done}
}

// PatchReminder builds a patch that arms a reminder, or disarms it when
// at is nil.
func PatchReminder(at *Timestamp) TaskPatch {
	if at == nil {
		return TaskPatch{ReminderAt: &NullableTime{}}
	}
	return TaskPatch{ReminderAt: &NullableTime{Valid: true, Time: *at}}
}
