// Package migration upgrades the legacy prep-command list (flat do/undo pairs)
// into staged event actions.
package migration

import (
	"strings"

	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/stage"
)

// ConvertedActionName is the name given to the action produced by Convert.
const ConvertedActionName = "Converted Prep Commands"

// Convert turns legacy prep commands into at most one event action.
//
// Do commands become the fail-fast startup group, in declaration order, run at
// PRE_STREAM_START. Undo commands become the continue-on-failure cleanup group
// run at POST_STREAM_STOP, in reverse declaration order so the last prepared
// change is undone first; every cleanup command ignores errors. Blank command
// lines are dropped. Empty input yields an empty result.
func Convert(prep []PrepCommand) []actions.EventAction {
	if len(prep) == 0 {
		return []actions.EventAction{}
	}

	startup := actions.NewGroup(actions.FailFast)
	for _, p := range prep {
		if strings.TrimSpace(p.Do) == "" {
			continue
		}
		startup.Append(actions.Command{
			Cmd:            p.Do,
			Elevated:       p.Elevated,
			TimeoutSeconds: actions.DefaultTimeoutSeconds,
		})
	}

	cleanup := actions.NewGroup(actions.ContinueOnFailure)
	for i := len(prep) - 1; i >= 0; i-- {
		p := prep[i]
		if strings.TrimSpace(p.Undo) == "" {
			continue
		}
		cleanup.Append(actions.Command{
			Cmd:            p.Undo,
			Elevated:       p.Elevated,
			TimeoutSeconds: actions.DefaultTimeoutSeconds,
			IgnoreError:    true,
		})
	}

	return []actions.EventAction{{
		Name: ConvertedActionName,
		Action: actions.Binding{
			StartupStage:    stage.PreStreamStart,
			ShutdownStage:   stage.PostStreamStop,
			StartupCommands: startup,
			CleanupCommands: cleanup,
		},
	}}
}

// Suggested reports whether a configuration still relies on legacy prep
// commands: some are defined and no event actions exist yet.
func Suggested(prep []PrepCommand, existing []actions.EventAction) bool {
	return len(prep) > 0 && len(existing) == 0
}
