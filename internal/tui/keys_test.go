package tui

import (
	"reflect"
	"slices"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func TestActionsCoverKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	bindings := km.byAction()
	if len(bindings) != len(Actions()) {
		t.Fatalf("KeyMap has %d actions, Actions() lists %d", len(bindings), len(Actions()))
	}
	for _, action := range Actions() {
		if _, ok := bindings[action]; !ok {
			t.Errorf("action %q has no binding", action)
		}
	}
}

func TestNewKeyMapOverrides(t *testing.T) {
	km := NewKeyMap(map[string][]string{
		ActionQuit:     {"x", "ctrl+q"},
		ActionOpenLink: {},
		"no_such":      {"z"},
	})

	if got := km.Quit.Keys(); !slices.Equal(got, []string{"x", "ctrl+q"}) {
		t.Errorf("quit keys = %v", got)
	}
	if h := km.Quit.Help(); h.Key != "x/ctrl+q" || h.Desc != "quit" {
		t.Errorf("quit help = %+v", h)
	}
	if !key.Matches(tea.KeyMsg{Type: tea.KeyCtrlQ}, km.Quit) {
		t.Error("ctrl+q should quit")
	}
	if key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, km.Quit) {
		t.Error("q should no longer quit")
	}
	if got := km.OpenLink.Keys(); !slices.Equal(got, []string{"o"}) {
		t.Errorf("empty override should keep the default, got %v", got)
	}
}

func TestNewKeyMapWithoutOverridesIsDefault(t *testing.T) {
	if !reflect.DeepEqual(NewKeyMap(nil), DefaultKeyMap()) {
		t.Error("NewKeyMap(nil) differs from DefaultKeyMap()")
	}
}

func TestHelpKeysNamesSpace(t *testing.T) {
	if got := DefaultKeyMap().CompleteTask.Help().Key; got != "space/c" {
		t.Errorf("help key = %q, want space/c", got)
	}
}
