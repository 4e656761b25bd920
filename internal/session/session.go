// Package session implements the interaction state machine shared by the
// interactive front end. Every user intent goes through Session.Handle.
package session

import (
	"context"
	"errors"
	"fmt"

	"todotui/backend"
	"todotui/internal/lifecycle"
	"todotui/internal/utils"
)

// ErrIllegalTransition is returned for an intent the current mode does not accept.
var ErrIllegalTransition = errors.New("illegal transition")

// Mode is the interaction state.
type Mode int

const (
	ModeList Mode = iota
	ModeEdit
	ModeDeleteConfirm
	ModeConfig
)

func (m Mode) String() string {
	switch m {
	case ModeList:
		return "List"
	case ModeEdit:
		return "Edit"
	case ModeDeleteConfirm:
		return "Delete"
	case ModeConfig:
		return "Config"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// SettingsSaver persists display settings when the settings view closes.
type SettingsSaver interface {
	SaveDisplay(d lifecycle.Display) error
}

// SettingsSaverFunc adapts a function to SettingsSaver.
type SettingsSaverFunc func(d lifecycle.Display) error

// SaveDisplay calls f(d).
func (f SettingsSaverFunc) SaveDisplay(d lifecycle.Display) error {
	return f(d)
}

// Result reports the outcome of a handled intent.
type Result struct {
	Mode Mode
	// Created is the id of a task created by Submit.
	Created *int
	// Change is set by ToggleComplete.
	Change *lifecycle.Change
	// Warning is a save failure after a mutation that was applied in
	// memory. The transition has completed.
	Warning error
}

// Session holds the transient interaction state: mode, target task, staging
// draft and display settings.
type Session struct {
	engine  *lifecycle.Engine
	saver   SettingsSaver
	mode    Mode
	target  *int
	staging *backend.Draft
	display lifecycle.Display
}

// New starts a session in List mode. saver may be nil.
func New(engine *lifecycle.Engine, display lifecycle.Display, saver SettingsSaver) *Session {
	return &Session{engine: engine, saver: saver, display: display}
}

// Mode returns the current mode.
func (s *Session) Mode() Mode { return s.mode }

// Target returns the id of the task being edited or deleted, if any.
func (s *Session) Target() (int, bool) {
	if s.target == nil {
		return 0, false
	}
	return *s.target, true
}

// Staging returns a copy of the draft being edited. It is only meaningful
// in Edit mode.
func (s *Session) Staging() (backend.Draft, bool) {
	if s.staging == nil {
		return backend.Draft{}, false
	}
	return s.staging.Clone(), true
}

// Display returns the current display settings.
func (s *Session) Display() lifecycle.Display { return s.display }

// View resolves the display settings against the current tasks and returns
// what to render. A vanished group selection is dropped for good.
func (s *Session) View() lifecycle.View {
	v := s.engine.View(s.display)
	s.display = v.Display
	return v
}

// Handle validates the intent against the current mode, carries it out and
// transitions. Rejected intents leave the session unchanged.
func (s *Session) Handle(ctx context.Context, in Intent) (Result, error) {
	var (
		res Result
		err error
	)
	switch s.mode {
	case ModeList:
		res, err = s.handleList(ctx, in)
	case ModeEdit:
		res, err = s.handleEdit(ctx, in)
	case ModeDeleteConfirm:
		res, err = s.handleDeleteConfirm(ctx, in)
	case ModeConfig:
		res, err = s.handleConfig(in)
	default:
		err = s.illegal(in)
	}
	res.Mode = s.mode
	if res.Warning != nil {
		utils.Warnf("%T applied but not saved: %v", in, res.Warning)
	}
	return res, err
}

func (s *Session) handleList(ctx context.Context, in Intent) (Result, error) {
	switch in := in.(type) {
	case StartCreate:
		draft := backend.Draft{}
		if s.display.Group != "" {
			draft.Group = backend.StringPtr(s.display.Group)
		}
		s.enterEdit(nil, draft)
		return Result{}, nil

	case StartEdit:
		task, err := s.engine.Store().Get(in.ID)
		if err != nil {
			return Result{}, err
		}
		id := in.ID
		s.enterEdit(&id, task.Draft)
		return Result{}, nil

	case StartDelete:
		if _, err := s.engine.Store().Get(in.ID); err != nil {
			return Result{}, err
		}
		id := in.ID
		s.mode = ModeDeleteConfirm
		s.target = &id
		return Result{}, nil

	case ToggleComplete:
		change, err := s.engine.ToggleComplete(ctx, in.ID)
		if err != nil && !errors.Is(err, backend.ErrIO) {
			return Result{}, err
		}
		return Result{Change: &change, Warning: err}, nil

	case OpenConfig:
		s.mode = ModeConfig
		return Result{}, nil

	case SelectGroup, CycleGroup, ToggleShowComplete:
		s.applyDisplay(in)
		return Result{}, nil
	}
	return Result{}, s.illegal(in)
}

func (s *Session) handleEdit(ctx context.Context, in Intent) (Result, error) {
	switch in := in.(type) {
	case Submit:
		store := s.engine.Store()
		var (
			res Result
			err error
		)
		if s.target == nil {
			var id int
			id, err = store.Create(ctx, in.Draft)
			if err == nil || errors.Is(err, backend.ErrIO) {
				res.Created = &id
			}
		} else {
			err = store.Update(ctx, *s.target, in.Draft)
		}

		if err != nil && !errors.Is(err, backend.ErrIO) {
			staged := in.Draft.Clone()
			s.staging = &staged
			return Result{}, err
		}
		res.Warning = err
		s.toList()
		return res, nil

	case Cancel:
		s.toList()
		return Result{}, nil
	}
	return Result{}, s.illegal(in)
}

func (s *Session) handleDeleteConfirm(ctx context.Context, in Intent) (Result, error) {
	switch in.(type) {
	case Confirm:
		err := s.engine.Store().Delete(ctx, *s.target)
		if err != nil && !errors.Is(err, backend.ErrIO) {
			return Result{}, err
		}
		s.toList()
		return Result{Warning: err}, nil

	case Cancel:
		s.toList()
		return Result{}, nil
	}
	return Result{}, s.illegal(in)
}

func (s *Session) handleConfig(in Intent) (Result, error) {
	switch in.(type) {
	case SelectGroup, CycleGroup, ToggleShowComplete:
		s.applyDisplay(in)
		return Result{}, nil

	case Close:
		var warning error
		if s.saver != nil {
			if err := s.saver.SaveDisplay(s.display); err != nil {
				warning = fmt.Errorf("save settings: %w", err)
			}
		}
		s.toList()
		return Result{Warning: warning}, nil
	}
	return Result{}, s.illegal(in)
}

func (s *Session) applyDisplay(in Intent) {
	switch in := in.(type) {
	case SelectGroup:
		s.display.Group = in.Name
		s.display = s.engine.View(s.display).Display
	case CycleGroup:
		s.display = s.engine.CycleGroup(s.display, in.Delta)
	case ToggleShowComplete:
		s.display.ShowComplete = !s.display.ShowComplete
	}
}

func (s *Session) enterEdit(target *int, draft backend.Draft) {
	s.mode = ModeEdit
	s.target = target
	s.staging = &draft
}

func (s *Session) toList() {
	s.mode = ModeList
	s.target = nil
	s.staging = nil
}

func (s *Session) illegal(in Intent) error {
	return fmt.Errorf("%w: %T in %s mode", ErrIllegalTransition, in, s.mode)
}
