package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/config"
	"github.com/streamhook/streamhook/internal/migration"
	"github.com/streamhook/streamhook/internal/stage"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const validDoc = `
schemaVersion: v1.0.0
global_prep_cmd: []
global_event_actions:
  - name: Mute speakers
    action:
      startup_stage: PRE_STREAM_START
      shutdown_stage: POST_STREAM_STOP
      startup_commands:
        failure_policy: FAIL_FAST
        commands:
          - cmd: pactl set-sink-mute 0 1
            elevated: false
            timeout_seconds: 30
            ignore_error: false
            async: false
      cleanup_commands:
        failure_policy: CONTINUE_ON_FAILURE
        commands:
          - cmd: pactl set-sink-mute 0 0
            timeout_seconds: 30
            ignore_error: true
apps:
  - id: "1"
    name: Desktop
    exclude_global_event_actions: [PRE_STREAM_START]
    event_actions:
      - name: Wake display
        action:
          startup_stage: POST_STREAM_START
          startup_commands:
            commands:
              - cmd: xset dpms force on
  - id: 2
    name: Steam Big Picture
    exclude_global_event_actions: true
`

func TestLoad_ValidDocument(t *testing.T) {
	doc, err := config.Load([]byte(validDoc), "valid.yaml")
	require.NoError(t, err)

	assert.Equal(t, "v1.0.0", doc.SchemaVersion)
	assert.Equal(t, "valid.yaml", doc.FilePath)
	require.Len(t, doc.GlobalEventActions, 1)
	assert.Equal(t, stage.PostStreamStop, doc.GlobalEventActions[0].Action.ShutdownStage)

	require.Len(t, doc.Apps, 2)
	desktop, ok := doc.App("1")
	require.True(t, ok)
	assert.Equal(t, config.ExcludeGlobal{Stages: []stage.ID{stage.PreStreamStart}}, desktop.ExcludeGlobal)
	assert.True(t, desktop.ExcludeGlobal.Excludes(stage.PreStreamStart))
	assert.False(t, desktop.ExcludeGlobal.Excludes(stage.PostStreamStop))

	// Omitted group fields are defaulted.
	wake := desktop.EventActions[0].Action
	assert.Equal(t, actions.FailFast, wake.StartupCommands.FailurePolicy)
	assert.Equal(t, actions.ContinueOnFailure, wake.CleanupCommands.FailurePolicy)
	assert.NotNil(t, wake.CleanupCommands.Commands)
	assert.NotNil(t, desktop.PrepCmd)

	steam, ok := doc.App("2")
	require.True(t, ok, "numeric ids are read as strings")
	assert.True(t, steam.ExcludeGlobal.All)
	assert.NotNil(t, steam.EventActions)

	_, ok = doc.App("missing")
	assert.False(t, ok)
}

func TestLoad_AcceptsJSON(t *testing.T) {
	raw := `{"schemaVersion": "1.2.0", "global_event_actions": [` +
		`{"name": "x", "action": {"startup_stage": "STREAM_RESUME", "shutdown_stage": "", ` +
		`"startup_commands": {"failure_policy": "FAIL_FAST", "commands": [{"cmd": "true"}]}, ` +
		`"cleanup_commands": {"failure_policy": "CONTINUE_ON_FAILURE", "commands": []}}}]}`
	doc, err := config.Load([]byte(raw), "doc.json")
	require.NoError(t, err)
	assert.Len(t, doc.GlobalEventActions, 1)
	assert.Empty(t, doc.Apps)
	assert.NotNil(t, doc.Apps)
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "  \n", "cannot be empty"},
		{"missing version", "global_event_actions: []\n", "schema validation"},
		{"unknown key", "schemaVersion: v1.0.0\nglobal_actions: []\n", "schema validation"},
		{"bad version format", "schemaVersion: banana\n", "invalid 'schemaVersion' format"},
		{"wrong major", "schemaVersion: v2.0.0\n", "not compatible"},
		{"bad policy", `schemaVersion: v1.0.0
global_event_actions:
  - name: a
    action:
      startup_stage: PRE_STREAM_START
      startup_commands: {failure_policy: SOMETIMES}
`, "schema validation"},
		{"bad exclusion type", `schemaVersion: v1.0.0
apps:
  - id: "1"
    exclude_global_event_actions: {a: b}
`, "schema validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load([]byte(tt.content), "test.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_LogicalValidation(t *testing.T) {
	raw := `schemaVersion: v1.0.0
global_event_actions:
  - name: ""
    action:
      startup_commands: {commands: [{cmd: x, timeout_seconds: -1}]}
  - name: Wrong slots
    action:
      startup_stage: POST_STREAM_STOP
      shutdown_stage: PRE_STREAM_START
  - name: Unknown
    action:
      startup_stage: WHENEVER
apps:
  - id: "1"
    exclude_global_event_actions: [NOPE]
  - id: "1"
  - id: " "
`
	_, err := config.Load([]byte(raw), "bad.yaml")
	require.Error(t, err)

	var cfgErr *shErrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	var vErr *shErrors.ValidationError
	require.ErrorAs(t, err, &vErr)

	want := []string{
		"global_event_actions[0]: name required",
		"global_event_actions[0]: at least one stage required",
		"global_event_actions[0]: startup_commands[0] timeout_seconds cannot be negative",
		"global_event_actions[1] ('Wrong slots'): startup_stage 'POST_STREAM_STOP' is a cleanup stage",
		"global_event_actions[1] ('Wrong slots'): shutdown_stage 'PRE_STREAM_START' is not a cleanup stage",
		"global_event_actions[2] ('Unknown'): startup_stage 'WHENEVER' is not a known stage",
		"apps[0] ('1'): exclude_global_event_actions names unknown stage 'NOPE'",
		"apps[1] ('1'): duplicate app id",
		"apps[2] (' '): 'id' is required",
	}
	if diff := cmp.Diff(want, vErr.Reasons); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, vErr.Error(), "has 9 validation error(s)")
}

func TestValidateDocument_DuplicateNamesAllowed(t *testing.T) {
	a := actions.NewDefault()
	a.Name = "same"
	a.Action.StartupStage = stage.PreStreamStart
	doc := config.NewDocument()
	doc.GlobalEventActions = []actions.EventAction{a, a.Clone()}

	assert.Empty(t, config.ValidateDocument(doc))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamhook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o600))

	doc, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.FilePath)

	_, err = config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	var cfgErr *shErrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = config.LoadFile("")
	require.Error(t, err)
}

// TestMarshal_RoundTrip writes a loaded document and reads it back.
func TestMarshal_RoundTrip(t *testing.T) {
	doc, err := config.Load([]byte(validDoc), "valid.yaml")
	require.NoError(t, err)

	out, err := config.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "exclude_global_event_actions: true")
	assert.Contains(t, string(out), "async: false")

	again, err := config.Load(out, "again.yaml")
	require.NoError(t, err)
	again.FilePath = doc.FilePath
	if diff := cmp.Diff(doc, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_EmptyDocument(t *testing.T) {
	out, err := config.Marshal(&config.Document{})
	require.NoError(t, err)

	doc, err := config.Load(out, "empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.CurrentSchemaVersion, doc.SchemaVersion)
	assert.Empty(t, doc.GlobalEventActions)
}

func TestExcludeGlobal_Encoding(t *testing.T) {
	tests := []struct {
		name string
		in   config.ExcludeGlobal
		json string
	}{
		{"false", config.ExcludeGlobal{}, `false`},
		{"true", config.ExcludeGlobal{All: true}, `true`},
		{"list", config.ExcludeGlobal{Stages: []stage.ID{stage.PreStreamStart, stage.StreamPause}}, `["PRE_STREAM_START","STREAM_PAUSE"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(b))

			var fromJSON config.ExcludeGlobal
			require.NoError(t, json.Unmarshal(b, &fromJSON))
			assert.Equal(t, tt.in.All, fromJSON.All)
			assert.Equal(t, len(tt.in.Stages), len(fromJSON.Stages))

			y, err := yaml.Marshal(tt.in)
			require.NoError(t, err)
			var fromYAML config.ExcludeGlobal
			require.NoError(t, yaml.Unmarshal(y, &fromYAML))
			assert.Equal(t, tt.in.All, fromYAML.All)
			assert.Equal(t, len(tt.in.Stages), len(fromYAML.Stages))
		})
	}

	var x config.ExcludeGlobal
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &x))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &x))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &x))
	assert.False(t, x.All)
}

func TestMigratePrepCommands(t *testing.T) {
	doc := config.NewDocument()
	doc.GlobalPrepCmd = []migration.PrepCommand{
		{Do: "echo 1", Undo: "echo 2", Elevated: true},
		{Do: "echo 3", Undo: "echo 4"},
	}
	existing := actions.NewDefault()
	existing.Name = "Existing"
	existing.Action.StartupStage = stage.PreStreamStart
	doc.Apps = []config.AppConfig{
		{ID: "1", PrepCmd: []migration.PrepCommand{{Do: "app do", Undo: "app undo"}}},
		{ID: "2", PrepCmd: []migration.PrepCommand{{Do: "kept"}}, EventActions: []actions.EventAction{existing}},
	}

	results := doc.MigratePrepCommands()

	require.Len(t, results, 2)
	assert.Equal(t, config.GlobalScope, results[0].Scope)
	assert.Equal(t, "1", results[1].Scope)
	assert.Equal(t, migration.ConvertedActionName, results[0].Action.Name)

	assert.Empty(t, doc.GlobalPrepCmd)
	require.Len(t, doc.GlobalEventActions, 1)
	assert.Equal(t, migration.Convert([]migration.PrepCommand{
		{Do: "echo 1", Undo: "echo 2", Elevated: true},
		{Do: "echo 3", Undo: "echo 4"},
	}), doc.GlobalEventActions)

	assert.Empty(t, doc.Apps[0].PrepCmd)
	assert.Len(t, doc.Apps[0].EventActions, 1)
	assert.Len(t, doc.Apps[1].PrepCmd, 1, "lists next to existing actions are left alone")
	assert.Len(t, doc.Apps[1].EventActions, 1)

	assert.Empty(t, doc.MigratePrepCommands(), "migration is a no-op once applied")
	assert.Empty(t, config.ValidateDocument(doc))
}

func TestDocumentClone_IsDeep(t *testing.T) {
	doc, err := config.Load([]byte(validDoc), "valid.yaml")
	require.NoError(t, err)

	clone := doc.Clone()
	clone.GlobalEventActions[0].Name = "changed"
	clone.Apps[0].ExcludeGlobal.Stages[0] = stage.StreamPause
	clone.Apps[0].EventActions[0].Action.StartupCommands.Commands[0].Cmd = "changed"

	assert.Equal(t, "Mute speakers", doc.GlobalEventActions[0].Name)
	assert.Equal(t, stage.PreStreamStart, doc.Apps[0].ExcludeGlobal.Stages[0])
	assert.Equal(t, "xset dpms force on", doc.Apps[0].EventActions[0].Action.StartupCommands.Commands[0].Cmd)
}
