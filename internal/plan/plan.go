// Package plan turns a configuration document into the ordered command groups
// an execution engine runs when a session reaches a stage.
package plan

import (
	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/config"
	"github.com/streamhook/streamhook/internal/stage"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// Phase tells which half of an action a step comes from.
type Phase string

const (
	PhaseStartup Phase = "startup"
	PhaseCleanup Phase = "cleanup"
)

// OriginGlobal marks steps contributed by global_event_actions. App steps
// carry the app id as their origin.
const OriginGlobal = "global"

// Step is one command group scheduled for a stage.
type Step struct {
	Origin     string               `json:"origin" yaml:"origin"`
	ActionName string               `json:"action_name" yaml:"action_name"`
	Phase      Phase                `json:"phase" yaml:"phase"`
	Group      actions.CommandGroup `json:"group" yaml:"group"`
}

// Resolver answers "what runs at this stage for this app" for one document.
// The document is copied at construction; later edits to it are not seen.
type Resolver struct {
	doc *config.Document
	log shlog.Logger
}

// NewResolver creates a resolver over a deep copy of doc. Panics if log is nil.
func NewResolver(doc *config.Document, log shlog.Logger) *Resolver {
	if log == nil {
		panic("Resolver requires a non-nil logger")
	}
	if doc == nil {
		doc = config.NewDocument()
	}
	return &Resolver{doc: doc.Clone(), log: log.With("component", "plan")}
}

// GroupsFor lists the command groups to run at id for appID. Global actions
// come first unless the app excludes them for this stage, then the app's own
// actions, each in declaration order. An action contributes its startup
// group when its startup stage matches and its cleanup group when its
// shutdown stage matches. Blank commands are dropped and groups left empty
// are skipped. An unknown app only receives global steps.
func (r *Resolver) GroupsFor(id stage.ID, appID string) []Step {
	steps := []Step{}
	app, hasApp := r.doc.App(appID)

	if hasApp && app.ExcludeGlobal.Excludes(id) {
		r.log.Debugf("App '%s' excludes global actions for stage %s", appID, id)
	} else {
		steps = appendSteps(steps, OriginGlobal, r.doc.GlobalEventActions, id)
	}
	if hasApp {
		steps = appendSteps(steps, app.ID, app.EventActions, id)
	}

	r.log.Debugf("Resolved %d command group(s) for stage %s, app '%s'", len(steps), id, appID)
	return steps
}

// Resolve is GroupsFor driven by an execution context. Contexts without an
// active app resolve to nothing.
func (r *Resolver) Resolve(ec ExecutionContext) []Step {
	if !ec.Active() {
		r.log.Debugf("No active app session, skipping stage %s", ec.Stage)
		return []Step{}
	}
	return r.GroupsFor(ec.Stage, ec.AppID)
}

func appendSteps(steps []Step, origin string, list []actions.EventAction, id stage.ID) []Step {
	for _, a := range list {
		if a.Action.StartupStage == id {
			if g := a.Action.StartupCommands.Compact(); g.Len() > 0 {
				steps = append(steps, Step{Origin: origin, ActionName: a.Name, Phase: PhaseStartup, Group: g})
			}
		}
		if a.Action.ShutdownStage == id {
			if g := a.Action.CleanupCommands.Compact(); g.Len() > 0 {
				steps = append(steps, Step{Origin: origin, ActionName: a.Name, Phase: PhaseCleanup, Group: g})
			}
		}
	}
	return steps
}
