// Package actions holds the event-action data model: commands, command groups
// and the named actions binding them to lifecycle stages.
package actions

import (
	"fmt"
	"strings"

	"github.com/streamhook/streamhook/internal/stage"
)

// Validation reasons reported by EventAction.Validate.
const (
	ReasonNameRequired  = "name required"
	ReasonStageRequired = "at least one stage required"
)

// Binding ties a startup and/or shutdown stage to the commands run there.
type Binding struct {
	StartupStage    stage.ID     `json:"startup_stage" yaml:"startup_stage"`
	ShutdownStage   stage.ID     `json:"shutdown_stage" yaml:"shutdown_stage"`
	StartupCommands CommandGroup `json:"startup_commands" yaml:"startup_commands"`
	CleanupCommands CommandGroup `json:"cleanup_commands" yaml:"cleanup_commands"`
}

// EventAction is a named, user-authored binding of stages to command groups.
// Names are not required to be unique.
type EventAction struct {
	Name   string  `json:"name" yaml:"name"`
	Action Binding `json:"action" yaml:"action"`
}

// NewDefault returns the seed action for new-action authoring: no name, no
// stages, one blank fail-fast startup command and an empty cleanup group.
func NewDefault() EventAction {
	startup := NewGroup(FailFast)
	startup.Append(NewStartupCommand())
	return EventAction{
		Action: Binding{
			StartupCommands: startup,
			CleanupCommands: NewGroup(ContinueOnFailure),
		},
	}
}

// Validate returns the reasons the action cannot be committed. An empty
// result means the action is valid. Besides the name and stage-presence
// rules it checks that stages exist in the registry and sit on the right
// side: startup_stage outside the cleanup category, shutdown_stage inside it.
func (a EventAction) Validate() []string {
	var reasons []string
	if strings.TrimSpace(a.Name) == "" {
		reasons = append(reasons, ReasonNameRequired)
	}
	b := a.Action
	if b.StartupStage == "" && b.ShutdownStage == "" {
		reasons = append(reasons, ReasonStageRequired)
	}

	if b.StartupStage != "" {
		if s, ok := stage.Lookup(b.StartupStage); !ok {
			reasons = append(reasons, fmt.Sprintf("startup_stage '%s' is not a known stage", b.StartupStage))
		} else if s.Category == stage.CategoryCleanup {
			reasons = append(reasons, fmt.Sprintf("startup_stage '%s' is a cleanup stage", b.StartupStage))
		}
	}
	if b.ShutdownStage != "" {
		if s, ok := stage.Lookup(b.ShutdownStage); !ok {
			reasons = append(reasons, fmt.Sprintf("shutdown_stage '%s' is not a known stage", b.ShutdownStage))
		} else if s.Category != stage.CategoryCleanup {
			reasons = append(reasons, fmt.Sprintf("shutdown_stage '%s' is not a cleanup stage", b.ShutdownStage))
		}
	}

	reasons = append(reasons, b.StartupCommands.problems("startup_commands")...)
	reasons = append(reasons, b.CleanupCommands.problems("cleanup_commands")...)
	return reasons
}

// IsValid reports whether Validate finds nothing wrong.
func (a EventAction) IsValid() bool {
	return len(a.Validate()) == 0
}

// Compact returns a copy with blank commands removed from both groups.
func (a EventAction) Compact() EventAction {
	out := a
	out.Action.StartupCommands = a.Action.StartupCommands.Compact()
	out.Action.CleanupCommands = a.Action.CleanupCommands.Compact()
	return out
}

// Clone returns a deep copy sharing no slices with a.
func (a EventAction) Clone() EventAction {
	out := a
	out.Action.StartupCommands = a.Action.StartupCommands.Clone()
	out.Action.CleanupCommands = a.Action.CleanupCommands.Clone()
	return out
}

// CloneAll deep-copies a collection. The result is never nil.
func CloneAll(in []EventAction) []EventAction {
	out := make([]EventAction, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
