// Package lifecycle applies completion semantics and display settings on top
// of the task store.
package lifecycle

import (
	"context"
	"slices"

	"todotui/backend"
	"todotui/internal/recurrence"
	"todotui/internal/store"
	"todotui/internal/utils"
)

// Engine mediates completion of tasks and computes what the front ends
// display. It keeps no state of its own; every mutation goes through the
// store.
type Engine struct {
	store *store.Store
}

// New creates an engine over the store.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Store returns the underlying task store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Change describes the effect of a completion request.
type Change struct {
	Before backend.Task
	After  backend.Task
	// RolledOver is set when a recurring task was completed: its due date
	// advanced and it stays open.
	RolledOver bool
	// Changed is false when the request was a no-op.
	Changed bool
}

// ToggleComplete flips the completion flag of a non-recurring task. Completing
// a recurring task advances its due date by one period instead and leaves it
// incomplete. Recurring tasks never end up complete through the engine; one
// marked complete in hand-edited or imported data is reopened.
//
// When only the save fails the change is applied in memory and returned
// together with an error wrapping backend.ErrIO.
func (e *Engine) ToggleComplete(ctx context.Context, id int) (Change, error) {
	task, err := e.store.Get(id)
	if err != nil {
		return Change{}, err
	}
	return e.apply(ctx, task, !task.Complete)
}

// Complete marks a task done. Unlike ToggleComplete, completing a task that
// is already complete is a no-op rather than a reopen.
func (e *Engine) Complete(ctx context.Context, id int) (Change, error) {
	task, err := e.store.Get(id)
	if err != nil {
		return Change{}, err
	}
	if task.Complete {
		return Change{Before: task, After: task}, nil
	}
	return e.apply(ctx, task, true)
}

func (e *Engine) apply(ctx context.Context, task backend.Task, complete bool) (Change, error) {
	change := Change{Before: task.Clone(), Changed: true}

	if complete && task.IsRecurring() && task.Due != nil {
		rule := task.Recurrence.Anchored(*task.Due)
		next := recurrence.Next(*task.Due, rule)
		task.Due = &next
		task.Recurrence = &rule
		task.Complete = false
		change.RolledOver = true
		utils.Debugf("task %d rolled over to %s", task.ID, next.Format(utils.DefaultDateTimeLayout))
	} else {
		task.Complete = complete
	}
	change.After = task

	return change, e.store.Update(ctx, task.ID, task.Draft)
}

// GroupNames returns the distinct groups carried by any task, sorted.
func (e *Engine) GroupNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range e.store.All() {
		if t.Group == nil || seen[*t.Group] {
			continue
		}
		seen[*t.Group] = true
		names = append(names, *t.Group)
	}
	slices.Sort(names)
	return names
}

// HasGroup reports whether any task carries the group.
func (e *Engine) HasGroup(name string) bool {
	return slices.Contains(e.GroupNames(), name)
}

// Display is the user-adjustable view state shared by the front ends.
type Display struct {
	// Group restricts the view to one group. Empty means all groups.
	Group string
	// ShowComplete includes completed tasks.
	ShowComplete bool
}

// Filter converts the display settings into a store filter.
func (d Display) Filter() backend.Filter {
	return backend.Filter{Group: d.Group, ShowComplete: d.ShowComplete}
}

// View is what a front end renders for a set of display settings.
type View struct {
	// Display is the effective settings after resolving a vanished group.
	Display Display
	// Groups is the group menu. The first entry is always "" (all groups).
	Groups []string
	Tasks  []backend.Task
}

// View applies the display settings and returns the group menu together with
// the visible tasks. A selected group that no longer exists falls back to all
// groups.
func (e *Engine) View(d Display) View {
	groups := e.GroupNames()
	if d.Group != "" && !slices.Contains(groups, d.Group) {
		utils.Debugf("group %q no longer exists, showing all groups", d.Group)
		d.Group = ""
	}
	return View{
		Display: d,
		Groups:  append([]string{""}, groups...),
		Tasks:   e.store.List(d.Filter()),
	}
}

// CycleGroup moves the group selection by delta positions through the group
// menu, wrapping at both ends.
func (e *Engine) CycleGroup(d Display, delta int) Display {
	menu := e.View(d).Groups
	pos := slices.Index(menu, d.Group)
	if pos < 0 {
		pos = 0
	}
	n := len(menu)
	d.Group = menu[((pos+delta)%n+n)%n]
	return d
}
