// Package config defines the streamhook configuration document and its
// loading pipeline: JSON-schema check, strict YAML decoding, schema version
// gate, defaults and logical validation.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/migration"
	"github.com/streamhook/streamhook/internal/stage"
	"gopkg.in/yaml.v3"
)

// CurrentSchemaVersion is written into documents created from scratch.
const CurrentSchemaVersion = "v1.0.0"

// Document is the root of a streamhook configuration file.
type Document struct {
	SchemaVersion string `yaml:"schemaVersion" json:"schemaVersion"`
	// GlobalPrepCmd is the legacy do/undo list run around every session.
	// It is superseded by GlobalEventActions and emptied by migration.
	GlobalPrepCmd      []migration.PrepCommand `yaml:"global_prep_cmd" json:"global_prep_cmd"`
	GlobalEventActions []actions.EventAction   `yaml:"global_event_actions" json:"global_event_actions"`
	Apps               []AppConfig             `yaml:"apps" json:"apps"`

	// FilePath is where the document was loaded from. Not serialized.
	FilePath string `yaml:"-" json:"-"`
}

// AppConfig holds the per-application part of the document.
type AppConfig struct {
	ID            string                  `yaml:"id" json:"id"`
	Name          string                  `yaml:"name" json:"name"`
	PrepCmd       []migration.PrepCommand `yaml:"prep_cmd" json:"prep_cmd"`
	EventActions  []actions.EventAction   `yaml:"event_actions" json:"event_actions"`
	ExcludeGlobal ExcludeGlobal           `yaml:"exclude_global_event_actions" json:"exclude_global_event_actions"`
}

// NewDocument returns an empty document at the current schema version.
func NewDocument() *Document {
	d := &Document{SchemaVersion: CurrentSchemaVersion}
	d.normalize()
	return d
}

// App returns the app with the given id.
func (d *Document) App(id string) (*AppConfig, bool) {
	for i := range d.Apps {
		if d.Apps[i].ID == id {
			return &d.Apps[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.GlobalPrepCmd = append([]migration.PrepCommand{}, d.GlobalPrepCmd...)
	out.GlobalEventActions = actions.CloneAll(d.GlobalEventActions)
	out.Apps = make([]AppConfig, len(d.Apps))
	for i, app := range d.Apps {
		out.Apps[i] = app.Clone()
	}
	return &out
}

// Clone returns a deep copy of the app.
func (a AppConfig) Clone() AppConfig {
	out := a
	out.PrepCmd = append([]migration.PrepCommand{}, a.PrepCmd...)
	out.EventActions = actions.CloneAll(a.EventActions)
	out.ExcludeGlobal.Stages = append([]stage.ID(nil), a.ExcludeGlobal.Stages...)
	return out
}

// normalize replaces nil slices so every list serializes as [] and fills in
// group policies left empty in hand-written files.
func (d *Document) normalize() {
	if d.GlobalPrepCmd == nil {
		d.GlobalPrepCmd = []migration.PrepCommand{}
	}
	if d.GlobalEventActions == nil {
		d.GlobalEventActions = []actions.EventAction{}
	}
	if d.Apps == nil {
		d.Apps = []AppConfig{}
	}
	applyActionDefaults(d.GlobalEventActions)
	for i := range d.Apps {
		app := &d.Apps[i]
		if app.PrepCmd == nil {
			app.PrepCmd = []migration.PrepCommand{}
		}
		if app.EventActions == nil {
			app.EventActions = []actions.EventAction{}
		}
		applyActionDefaults(app.EventActions)
	}
}

func applyActionDefaults(list []actions.EventAction) {
	for i := range list {
		b := &list[i].Action
		if b.StartupCommands.FailurePolicy == "" {
			b.StartupCommands.FailurePolicy = actions.FailFast
		}
		if b.CleanupCommands.FailurePolicy == "" {
			b.CleanupCommands.FailurePolicy = actions.ContinueOnFailure
		}
		if b.StartupCommands.Commands == nil {
			b.StartupCommands.Commands = []actions.Command{}
		}
		if b.CleanupCommands.Commands == nil {
			b.CleanupCommands.Commands = []actions.Command{}
		}
	}
}

// ExcludeGlobal controls which global event actions an app opts out of.
// It is written either as a boolean (all or nothing) or as a list of stage
// ids whose global actions are skipped for the app.
type ExcludeGlobal struct {
	All    bool
	Stages []stage.ID
}

// Excludes reports whether global actions bound to id are skipped.
func (x ExcludeGlobal) Excludes(id stage.ID) bool {
	if x.All {
		return true
	}
	for _, s := range x.Stages {
		if s == id {
			return true
		}
	}
	return false
}

func (x ExcludeGlobal) wire() interface{} {
	if len(x.Stages) > 0 && !x.All {
		return x.Stages
	}
	return x.All
}

// MarshalYAML implements yaml.Marshaler.
func (x ExcludeGlobal) MarshalYAML() (interface{}, error) {
	return x.wire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (x *ExcludeGlobal) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*x = ExcludeGlobal{}
			return nil
		}
		var all bool
		if err := node.Decode(&all); err != nil {
			return fmt.Errorf("exclude_global_event_actions must be a boolean or a list of stages: %w", err)
		}
		*x = ExcludeGlobal{All: all}
		return nil
	case yaml.SequenceNode:
		var ids []stage.ID
		if err := node.Decode(&ids); err != nil {
			return fmt.Errorf("exclude_global_event_actions list: %w", err)
		}
		*x = ExcludeGlobal{Stages: ids}
		return nil
	default:
		return fmt.Errorf("exclude_global_event_actions must be a boolean or a list of stages (line %d)", node.Line)
	}
}

// MarshalJSON implements json.Marshaler.
func (x ExcludeGlobal) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (x *ExcludeGlobal) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*x = ExcludeGlobal{}
	case bool:
		*x = ExcludeGlobal{All: v}
	case []interface{}:
		ids := make([]stage.ID, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("exclude_global_event_actions list entries must be strings, got %T", item)
			}
			ids = append(ids, stage.ID(s))
		}
		*x = ExcludeGlobal{Stages: ids}
	default:
		return fmt.Errorf("exclude_global_event_actions must be a boolean or a list of stages, got %T", raw)
	}
	return nil
}
