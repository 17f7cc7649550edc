// Package v1 is the public Go API of streamhook: the event-action model, the
// authoring editor, legacy migration, configuration loading and stage
// resolution.
package v1

import (
	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/config"
	"github.com/streamhook/streamhook/internal/editor"
	"github.com/streamhook/streamhook/internal/migration"
	"github.com/streamhook/streamhook/internal/plan"
	"github.com/streamhook/streamhook/internal/stage"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	"github.com/streamhook/streamhook/pkg/streamhook/v1/events"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// Data model.
type (
	StageID       = stage.ID
	Stage         = stage.Stage
	Command       = actions.Command
	CommandGroup  = actions.CommandGroup
	FailurePolicy = actions.FailurePolicy
	Binding       = actions.Binding
	EventAction   = actions.EventAction
	PrepCommand   = migration.PrepCommand
	Document      = config.Document
	AppConfig     = config.AppConfig
)

// Authoring.
type (
	Editor        = editor.Editor
	EditorState   = editor.State
	GroupSelector = editor.GroupSelector
	Owner         = editor.Owner
	OwnerFunc     = editor.OwnerFunc
	Confirmer     = editor.Confirmer
	ConfirmFunc   = editor.ConfirmFunc
	EditorOption  = editor.Option
)

// Resolution.
type (
	Step             = plan.Step
	ExecutionContext = plan.ExecutionContext
	Resolver         = plan.Resolver
)

const (
	FailFast          = actions.FailFast
	ContinueOnFailure = actions.ContinueOnFailure

	StartupGroup = editor.StartupGroup
	CleanupGroup = editor.CleanupGroup
)

// NewEditor creates an authoring editor over a copy of committed.
func NewEditor(log shlog.Logger, committed []EventAction, opts ...EditorOption) (*Editor, error) {
	return editor.New(log, committed, opts...)
}

// WithOwner is an editor option registering the collaborator told about commits.
func WithOwner(owner Owner) EditorOption { return editor.WithOwner(owner) }

// WithConfirmer is an editor option setting the delete confirmation hook.
func WithConfirmer(c Confirmer) EditorOption { return editor.WithConfirmer(c) }

// WithEventBus is an editor option routing editor events to bus.
func WithEventBus(bus events.Bus) EditorOption { return editor.WithEventBus(bus) }

// Stages returns the stage registry in declaration order.
func Stages() []Stage { return stage.All() }

// StageDisplayName returns the display name of id, or id itself when unknown.
func StageDisplayName(id string) string { return stage.DisplayName(id) }

// ConvertPrepCommands migrates legacy do/undo pairs into event actions.
func ConvertPrepCommands(prep []PrepCommand) []EventAction { return migration.Convert(prep) }

// LoadConfig parses and validates a configuration document.
func LoadConfig(content []byte, filePathHint string) (*Document, error) {
	return config.Load(content, filePathHint)
}

// NewResolver creates a stage resolver over a copy of doc.
func NewResolver(doc *Document, log shlog.Logger) (*Resolver, error) {
	if log == nil {
		return nil, shErrors.NewConfigError("resolver requires a non-nil logger", nil)
	}
	return plan.NewResolver(doc, log), nil
}
