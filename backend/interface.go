package backend

import (
	"context"
	"time"

	"todotui/internal/recurrence"
)

// Draft holds every mutable field of a task. It is what the front ends
// stage while creating or editing, and what the store validates.
// A nil pointer means the field is absent.
type Draft struct {
	Name        string           `json:"name"`
	Due         *time.Time       `json:"due,omitempty"`
	Recurrence  *recurrence.Rule `json:"recurrence,omitempty"`
	Group       *string          `json:"group,omitempty"`
	Description *string          `json:"description,omitempty"`
	URL         *string          `json:"url,omitempty"`
	Complete    bool             `json:"complete"`
}

// Task represents a todo item
type Task struct {
	ID int `json:"id"`
	Draft
}

// Filter selects tasks for listing. The zero value lists every incomplete
// task in every group.
type Filter struct {
	Group        string // restrict to this group
	Ungrouped    bool   // restrict to tasks without a group
	ShowComplete bool   // include completed tasks
}

// Snapshot is the full task collection as written to or read from storage.
type Snapshot struct {
	Tasks []Task
	// NextID is the id the next created task receives. Backends that do not
	// persist it report zero and the store derives it from the task ids.
	NextID int
}

// Storage defines the interface for task persistence backends.
type Storage interface {
	// Load reads the full snapshot. A backend with nothing stored yet
	// returns an empty snapshot.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot. It must never leave a partially
	// written snapshot visible to a later Load.
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Matches reports whether the task passes the filter.
func (f Filter) Matches(t Task) bool {
	if t.Complete && !f.ShowComplete {
		return false
	}
	if f.Ungrouped {
		return t.Group == nil
	}
	if f.Group != "" {
		return t.Group != nil && *t.Group == f.Group
	}
	return true
}

// GroupName returns the task's group, or "" when ungrouped.
func (t Task) GroupName() string {
	if t.Group == nil {
		return ""
	}
	return *t.Group
}

// IsRecurring reports whether the task has a recurrence rule.
func (t Task) IsRecurring() bool {
	return t.Recurrence != nil
}

// Clone returns a deep copy so that callers can never alias store state.
func (d Draft) Clone() Draft {
	out := d
	if d.Due != nil {
		due := *d.Due
		out.Due = &due
	}
	if d.Recurrence != nil {
		rule := *d.Recurrence
		rule.Days = append([]time.Weekday(nil), d.Recurrence.Days...)
		if len(rule.Days) == 0 {
			rule.Days = nil
		}
		out.Recurrence = &rule
	}
	out.Group = cloneString(d.Group)
	out.Description = cloneString(d.Description)
	out.URL = cloneString(d.URL)
	return out
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	return Task{ID: t.ID, Draft: t.Draft.Clone()}
}

// StringPtr returns a pointer to s. Handy for building drafts.
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
