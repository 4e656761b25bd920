package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Action names accepted in the keybindings section of the config file.
const (
	ActionQuit                 = "quit"
	ActionUp                   = "up"
	ActionDown                 = "down"
	ActionNewTask              = "new_task"
	ActionEditTask             = "edit_task"
	ActionDeleteTask           = "delete_task"
	ActionCompleteTask         = "complete_task"
	ActionNextGroup            = "next_group"
	ActionPrevGroup            = "prev_group"
	ActionToggleCompletedTasks = "toggle_completed_tasks"
	ActionOpenLink             = "open_link"
	ActionSettings             = "settings"
	ActionHelp                 = "help"
	ActionNextField            = "next_field"
	ActionPrevField            = "prev_field"
	ActionSaveChanges          = "save_changes"
	ActionGoBack               = "go_back"
	ActionConfirm              = "confirm"
	ActionDeny                 = "deny"
)

// KeyMap holds the key bindings of every mode. ctrl+c always quits and is
// not part of the map.
type KeyMap struct {
	// List
	Quit                 key.Binding
	Up                   key.Binding
	Down                 key.Binding
	NewTask              key.Binding
	EditTask             key.Binding
	DeleteTask           key.Binding
	CompleteTask         key.Binding
	NextGroup            key.Binding
	PrevGroup            key.Binding
	ToggleCompletedTasks key.Binding
	OpenLink             key.Binding
	Settings             key.Binding
	Help                 key.Binding

	// Form
	NextField   key.Binding
	PrevField   key.Binding
	SaveChanges key.Binding
	GoBack      key.Binding

	// Delete confirmation
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the bindings used when the config sets none.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:                 binding("quit", "q"),
		Up:                   binding("move up", "up", "k"),
		Down:                 binding("move down", "down", "j"),
		NewTask:              binding("new task", "n", "a"),
		EditTask:             binding("edit task", "e", "enter"),
		DeleteTask:           binding("delete task", "d"),
		CompleteTask:         binding("complete task", " ", "c"),
		NextGroup:            binding("next group", "right", "l", "]"),
		PrevGroup:            binding("previous group", "left", "h", "["),
		ToggleCompletedTasks: binding("show/hide completed", "H"),
		OpenLink:             binding("open link", "o"),
		Settings:             binding("settings", ","),
		Help:                 binding("help", "?"),
		NextField:            binding("next field", "tab", "down"),
		PrevField:            binding("previous field", "shift+tab", "up"),
		SaveChanges:          binding("save", "enter"),
		GoBack:               binding("cancel", "esc"),
		Confirm:              binding("yes", "y", "Y"),
		Deny:                 binding("no", "n", "N"),
	}
}

// NewKeyMap returns the default bindings with the keys of the named actions
// replaced. Unknown action names and empty key lists are ignored.
func NewKeyMap(overrides map[string][]string) KeyMap {
	km := DefaultKeyMap()
	bindings := km.byAction()
	for action, keys := range overrides {
		b, ok := bindings[action]
		if !ok || len(keys) == 0 {
			continue
		}
		*b = binding(b.Help().Desc, keys...)
	}
	return km
}

// Actions returns every action name a KeyMap binds.
func Actions() []string {
	return []string{
		ActionQuit, ActionUp, ActionDown, ActionNewTask, ActionEditTask,
		ActionDeleteTask, ActionCompleteTask, ActionNextGroup, ActionPrevGroup,
		ActionToggleCompletedTasks, ActionOpenLink, ActionSettings, ActionHelp,
		ActionNextField, ActionPrevField, ActionSaveChanges, ActionGoBack,
		ActionConfirm, ActionDeny,
	}
}

func (km *KeyMap) byAction() map[string]*key.Binding {
	return map[string]*key.Binding{
		ActionQuit:                 &km.Quit,
		ActionUp:                   &km.Up,
		ActionDown:                 &km.Down,
		ActionNewTask:              &km.NewTask,
		ActionEditTask:             &km.EditTask,
		ActionDeleteTask:           &km.DeleteTask,
		ActionCompleteTask:         &km.CompleteTask,
		ActionNextGroup:            &km.NextGroup,
		ActionPrevGroup:            &km.PrevGroup,
		ActionToggleCompletedTasks: &km.ToggleCompletedTasks,
		ActionOpenLink:             &km.OpenLink,
		ActionSettings:             &km.Settings,
		ActionHelp:                 &km.Help,
		ActionNextField:            &km.NextField,
		ActionPrevField:            &km.PrevField,
		ActionSaveChanges:          &km.SaveChanges,
		ActionGoBack:               &km.GoBack,
		ActionConfirm:              &km.Confirm,
		ActionDeny:                 &km.Deny,
	}
}

// ShortHelp lists the bindings shown in the status bar in list mode.
func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.NewTask, km.EditTask, km.DeleteTask, km.CompleteTask, km.Help, km.Quit}
}

// FullHelp groups the bindings for the help dialog.
func (km KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Down, km.Up, km.NextGroup, km.PrevGroup, km.ToggleCompletedTasks},
		{km.NewTask, km.EditTask, km.CompleteTask, km.DeleteTask, km.OpenLink, km.Settings},
		{km.NextField, km.PrevField, km.SaveChanges, km.GoBack},
		{km.Help, km.Quit},
	}
}

func binding(desc string, keys ...string) key.Binding {
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(helpKeys(keys), desc),
	)
}

// helpKeys renders key names the way they are typed, e.g. "j/down".
func helpKeys(keys []string) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		if k == " " {
			k = "space"
		}
		names[i] = k
	}
	return strings.Join(names, "/")
}
