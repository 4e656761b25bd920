package session

import "todotui/backend"

// Intent is a user request decoded by a front end.
type Intent interface {
	intent()
}

// List mode intents.
type (
	// StartCreate opens an empty draft.
	StartCreate struct{}
	// StartEdit loads an existing task into the draft.
	StartEdit struct{ ID int }
	// StartDelete asks for confirmation before deleting a task.
	StartDelete struct{ ID int }
	// ToggleComplete completes or reopens a task.
	ToggleComplete struct{ ID int }
	// OpenConfig shows the display settings.
	OpenConfig struct{}
)

// Display intents, accepted in List and Config mode.
type (
	// SelectGroup restricts the view to one group; "" selects all groups.
	SelectGroup struct{ Name string }
	// CycleGroup moves the group selection through the group menu.
	CycleGroup struct{ Delta int }
	// ToggleShowComplete shows or hides completed tasks.
	ToggleShowComplete struct{}
)

// Flow intents.
type (
	// Submit saves the draft being edited.
	Submit struct{ Draft backend.Draft }
	// Cancel leaves the edit or delete flow without changes.
	Cancel struct{}
	// Confirm carries out a pending delete.
	Confirm struct{}
	// Close leaves the settings and persists them.
	Close struct{}
)

func (StartCreate) intent()        {}
func (StartEdit) intent()          {}
func (StartDelete) intent()        {}
func (ToggleComplete) intent()     {}
func (OpenConfig) intent()         {}
func (SelectGroup) intent()        {}
func (CycleGroup) intent()         {}
func (ToggleShowComplete) intent() {}
func (Submit) intent()             {}
func (Cancel) intent()             {}
func (Confirm) intent()            {}
func (Close) intent()              {}
