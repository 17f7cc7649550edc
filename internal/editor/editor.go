// Package editor implements the authoring state machine for event actions.
//
// An Editor owns the committed collection for the length of an editing
// session. Create and edit sessions work on a staged deep copy which is only
// written back, atomically, by Save. Everything handed out (Actions, Staged,
// Owner notifications) is a copy. An Editor is not safe for concurrent use: it
// models one person editing at a time.
package editor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streamhook/streamhook/internal/actions"
	internalevents "github.com/streamhook/streamhook/internal/events"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	"github.com/streamhook/streamhook/pkg/streamhook/v1/events"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// State is the editor's lifecycle state.
type State int

const (
	Idle State = iota
	Creating
	Editing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Creating:
		return "CREATING"
	case Editing:
		return "EDITING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// GroupSelector names one of the two command groups of an action.
type GroupSelector int

const (
	StartupGroup GroupSelector = iota
	CleanupGroup
)

func (g GroupSelector) String() string {
	if g == CleanupGroup {
		return "cleanup commands"
	}
	return "startup commands"
}

// Owner receives the committed collection after every successful Save or
// Delete. The snapshot is a deep copy the owner may keep.
type Owner interface {
	Committed(snapshot []actions.EventAction)
}

// OwnerFunc adapts a function to Owner.
type OwnerFunc func(snapshot []actions.EventAction)

func (f OwnerFunc) Committed(snapshot []actions.EventAction) { f(snapshot) }

// Confirmer makes the yes/no decision Delete asks for.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Editor is the action authoring state machine.
type Editor struct {
	committed []actions.EventAction

	state     State
	staged    actions.EventAction
	editIndex int
	sessionID string

	owner     Owner
	confirmer Confirmer
	bus       events.Bus
	log       shlog.Logger
	now       func() time.Time
}

// New creates an Idle editor over a deep copy of committed.
func New(log shlog.Logger, committed []actions.EventAction, opts ...Option) (*Editor, error) {
	if log == nil {
		return nil, shErrors.NewConfigError("editor requires a non-nil logger", nil)
	}
	e := &Editor{
		committed: actions.CloneAll(committed),
		state:     Idle,
		editIndex: -1,
		bus:       internalevents.NewNoOpEventBus(),
		log:       log.With("component", "editor"),
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// State returns the current state.
func (e *Editor) State() State { return e.state }

// EditIndex returns the index being edited, or -1 outside an edit session.
func (e *Editor) EditIndex() int { return e.editIndex }

// SessionID returns the id of the running create/edit session, or "".
func (e *Editor) SessionID() string { return e.sessionID }

// Len returns the size of the committed collection.
func (e *Editor) Len() int { return len(e.committed) }

// Actions returns a snapshot of the committed collection.
func (e *Editor) Actions() []actions.EventAction {
	return actions.CloneAll(e.committed)
}

// Staged returns a copy of the staged action while a session is running.
func (e *Editor) Staged() (actions.EventAction, bool) {
	if !e.inSession() {
		return actions.EventAction{}, false
	}
	return e.staged.Clone(), true
}

func (e *Editor) inSession() bool {
	return e.state == Creating || e.state == Editing
}

// BeginCreate stages a default action and enters Creating. A session already
// in flight is discarded first; nothing is merged.
func (e *Editor) BeginCreate() {
	e.discardInFlight("BeginCreate")
	e.startSession(Creating, actions.NewDefault(), -1)
}

// BeginEdit stages a deep copy of the action at index and enters Editing.
// A session already in flight is discarded first. An invalid index leaves
// the editor untouched.
func (e *Editor) BeginEdit(index int) error {
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.discardInFlight("BeginEdit")
	e.startSession(Editing, e.committed[index].Clone(), index)
	return nil
}

func (e *Editor) startSession(state State, staged actions.EventAction, index int) {
	e.state = state
	e.staged = staged
	e.editIndex = index
	e.sessionID = uuid.NewString()
	e.log.Debugf("Session %s started in state %s (index %d)", e.sessionID, state, index)
	e.emit(events.SessionStarted, staged.Name, index, map[string]interface{}{"state": state.String()})
}

func (e *Editor) discardInFlight(op string) {
	if !e.inSession() {
		return
	}
	e.log.Warnf("%s discards in-flight session %s (%s)", op, e.sessionID, e.state)
	e.endSession(events.SessionCancelled)
}

func (e *Editor) endSession(evt events.EventType) {
	if evt != "" {
		e.emit(evt, e.staged.Name, e.editIndex, nil)
	}
	e.state = Idle
	e.staged = actions.EventAction{}
	e.editIndex = -1
	e.sessionID = ""
}

// Update applies fn to the staged action. It is how callers fill in the name,
// stages and command fields while authoring.
func (e *Editor) Update(fn func(a *actions.EventAction)) error {
	if !e.inSession() {
		return shErrors.NewInvalidTransitionError("Update", e.state.String())
	}
	fn(&e.staged)
	return nil
}

// AddCommand appends a blank command to the selected group of the staged
// action. Cleanup commands default to ignore_error; startup commands do not.
func (e *Editor) AddCommand(sel GroupSelector) error {
	if !e.inSession() {
		return shErrors.NewInvalidTransitionError("AddCommand", e.state.String())
	}
	if sel == CleanupGroup {
		e.staged.Action.CleanupCommands.Append(actions.NewCleanupCommand())
	} else {
		e.staged.Action.StartupCommands.Append(actions.NewStartupCommand())
	}
	return nil
}

// RemoveCommand deletes the command at index from the selected group of the
// staged action.
func (e *Editor) RemoveCommand(sel GroupSelector, index int) error {
	if !e.inSession() {
		return shErrors.NewInvalidTransitionError("RemoveCommand", e.state.String())
	}
	group := &e.staged.Action.StartupCommands
	if sel == CleanupGroup {
		group = &e.staged.Action.CleanupCommands
	}
	if index < 0 || index >= group.Len() {
		return shErrors.NewIndexOutOfRangeError(sel.String(), index, group.Len())
	}
	return group.RemoveAt(index)
}

// Save validates the staged action and commits it. On a validation failure
// the returned *errors.ValidationError lists the reasons and the editor stays
// in its current state with the collection untouched. On success blank
// commands are dropped, the action is appended (Creating) or replaces the
// edited entry (Editing), the owner is notified and the editor returns to Idle.
func (e *Editor) Save() error {
	if !e.inSession() {
		return shErrors.NewInvalidTransitionError("Save", e.state.String())
	}

	if reasons := e.staged.Validate(); len(reasons) > 0 {
		e.log.Infof("Session %s: save rejected: %v", e.sessionID, reasons)
		e.emit(events.ValidationFailed, e.staged.Name, e.editIndex, map[string]interface{}{"reasons": reasons})
		return shErrors.NewValidationFailure("event action", reasons)
	}

	compacted := e.staged.Compact()
	next := actions.CloneAll(e.committed)
	index := e.editIndex
	evt := events.ActionUpdated
	if e.state == Creating {
		next = append(next, compacted)
		index = len(next) - 1
		evt = events.ActionCreated
	} else {
		next[index] = compacted
	}
	e.committed = next

	e.log.Infof("Session %s: saved action '%s' at index %d", e.sessionID, compacted.Name, index)
	e.emit(evt, compacted.Name, index, nil)
	e.endSession("")
	e.notify()
	return nil
}

// Cancel discards the staged action and returns to Idle.
func (e *Editor) Cancel() error {
	if !e.inSession() {
		return shErrors.NewInvalidTransitionError("Cancel", e.state.String())
	}
	e.log.Debugf("Session %s cancelled", e.sessionID)
	e.endSession(events.SessionCancelled)
	return nil
}

// Delete removes the action at index after the configured Confirmer agrees.
// It reports whether the action was removed; a refusal is not an error.
func (e *Editor) Delete(index int) (bool, error) {
	if e.state != Idle {
		return false, shErrors.NewInvalidTransitionError("Delete", e.state.String())
	}
	if err := e.checkIndex(index); err != nil {
		return false, err
	}

	name := e.committed[index].Name
	if e.confirmer == nil || !e.confirmer.Confirm(DeletePrompt(name)) {
		e.log.Debugf("Deletion of action '%s' at index %d not confirmed", name, index)
		return false, nil
	}

	next := make([]actions.EventAction, 0, len(e.committed)-1)
	next = append(next, actions.CloneAll(e.committed[:index])...)
	next = append(next, actions.CloneAll(e.committed[index+1:])...)
	e.committed = next

	e.log.Infof("Deleted action '%s' at index %d", name, index)
	e.emit(events.ActionDeleted, name, index, nil)
	e.notify()
	return true, nil
}

// DeletePrompt is the question put to the Confirmer before deleting.
func DeletePrompt(name string) string {
	return fmt.Sprintf("Are you sure you want to delete the action '%s'?", name)
}

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.committed) {
		return shErrors.NewIndexOutOfRangeError("event actions", index, len(e.committed))
	}
	return nil
}

func (e *Editor) notify() {
	if e.owner != nil {
		e.owner.Committed(actions.CloneAll(e.committed))
	}
}

func (e *Editor) emit(t events.EventType, name string, index int, payload map[string]interface{}) {
	e.bus.Emit(events.Event{
		Type:       t,
		Timestamp:  e.now(),
		SessionID:  e.sessionID,
		ActionName: name,
		Index:      index,
		Payload:    payload,
	})
}
