package actions_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/stage"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewDefault(t *testing.T) {
	a := actions.NewDefault()

	assert.Empty(t, a.Name)
	assert.Empty(t, a.Action.StartupStage)
	assert.Empty(t, a.Action.ShutdownStage)
	assert.Equal(t, actions.FailFast, a.Action.StartupCommands.FailurePolicy)
	require.Len(t, a.Action.StartupCommands.Commands, 1)
	assert.Equal(t, actions.NewStartupCommand(), a.Action.StartupCommands.Commands[0])
	assert.Equal(t, actions.ContinueOnFailure, a.Action.CleanupCommands.FailurePolicy)
	assert.NotNil(t, a.Action.CleanupCommands.Commands)
	assert.Empty(t, a.Action.CleanupCommands.Commands)
}

func TestCommandDefaults(t *testing.T) {
	startup := actions.NewStartupCommand()
	assert.Equal(t, actions.Command{TimeoutSeconds: 30}, startup)

	cleanup := actions.NewCleanupCommand()
	assert.True(t, cleanup.IgnoreError)
	assert.False(t, cleanup.Elevated)
	assert.False(t, cleanup.Async)
	assert.Equal(t, 30, cleanup.TimeoutSeconds)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(a *actions.EventAction)
		reasons []string
	}{
		{
			name:    "Default action fails both rules",
			mutate:  func(a *actions.EventAction) {},
			reasons: []string{actions.ReasonNameRequired, actions.ReasonStageRequired},
		},
		{
			name: "Whitespace name is blank",
			mutate: func(a *actions.EventAction) {
				a.Name = "   "
				a.Action.StartupStage = stage.PreStreamStart
			},
			reasons: []string{actions.ReasonNameRequired},
		},
		{
			name:    "Name without stages",
			mutate:  func(a *actions.EventAction) { a.Name = "Set resolution" },
			reasons: []string{actions.ReasonStageRequired},
		},
		{
			name: "Shutdown stage alone is enough",
			mutate: func(a *actions.EventAction) {
				a.Name = "Restore"
				a.Action.ShutdownStage = stage.PostStreamStop
			},
		},
		{
			name: "Cleanup stage cannot start an action",
			mutate: func(a *actions.EventAction) {
				a.Name = "Pause"
				a.Action.StartupStage = stage.StreamPause
			},
			reasons: []string{"startup_stage 'STREAM_PAUSE' is a cleanup stage"},
		},
		{
			name: "Shutdown stage must be a cleanup stage",
			mutate: func(a *actions.EventAction) {
				a.Name = "Early"
				a.Action.ShutdownStage = stage.PostStreamStart
			},
			reasons: []string{"shutdown_stage 'POST_STREAM_START' is not a cleanup stage"},
		},
		{
			name: "Unknown stages are reported",
			mutate: func(a *actions.EventAction) {
				a.Name = "Typo"
				a.Action.StartupStage = "PRE_STREM_START"
				a.Action.ShutdownStage = "NEVER"
			},
			reasons: []string{
				"startup_stage 'PRE_STREM_START' is not a known stage",
				"shutdown_stage 'NEVER' is not a known stage",
			},
		},
		{
			name: "Group problems are reported",
			mutate: func(a *actions.EventAction) {
				a.Name = "Broken groups"
				a.Action.StartupStage = stage.PreStreamStart
				a.Action.StartupCommands.Commands[0].TimeoutSeconds = -5
				a.Action.CleanupCommands.FailurePolicy = "SOMETIMES"
			},
			reasons: []string{
				"startup_commands[0] timeout_seconds cannot be negative",
				"cleanup_commands has invalid failure_policy 'SOMETIMES'",
			},
		},
		{
			name: "Startup stage alone is enough",
			mutate: func(a *actions.EventAction) {
				a.Name = "Prepare"
				a.Action.StartupStage = stage.PreDisplayCheck
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := actions.NewDefault()
			tc.mutate(&a)
			assert.Equal(t, tc.reasons, a.Validate())
			assert.Equal(t, len(tc.reasons) == 0, a.IsValid())
		})
	}
}

func TestCommandGroup_RemoveAt(t *testing.T) {
	g := actions.NewGroup(actions.FailFast)
	g.Append(actions.Command{Cmd: "a"})
	g.Append(actions.Command{Cmd: "b"})
	g.Append(actions.Command{Cmd: "c"})

	require.NoError(t, g.RemoveAt(1))
	assert.Equal(t, []actions.Command{{Cmd: "a"}, {Cmd: "c"}}, g.Commands)

	err := g.RemoveAt(2)
	require.Error(t, err)
	assert.True(t, shErrors.IsIndexOutOfRange(err))
	assert.True(t, shErrors.IsIndexOutOfRange(g.RemoveAt(-1)))
	assert.Equal(t, 2, g.Len(), "failed removals must not change the group")
}

func TestCommandGroup_Compact(t *testing.T) {
	g := actions.CommandGroup{
		FailurePolicy: actions.ContinueOnFailure,
		Commands: []actions.Command{
			{Cmd: ""},
			{Cmd: "echo 1", Elevated: true},
			{Cmd: " \t "},
			{Cmd: "echo 2", Async: true},
		},
	}

	compacted := g.Compact()

	assert.Equal(t, actions.ContinueOnFailure, compacted.FailurePolicy)
	assert.Equal(t, []actions.Command{
		{Cmd: "echo 1", Elevated: true},
		{Cmd: "echo 2", Async: true},
	}, compacted.Commands)
	assert.Len(t, g.Commands, 4, "Compact must not modify the receiver")

	empty := actions.CommandGroup{FailurePolicy: actions.FailFast}.Compact()
	assert.NotNil(t, empty.Commands)
}

func TestClone_IsDeep(t *testing.T) {
	orig := actions.NewDefault()
	orig.Name = "orig"
	orig.Action.CleanupCommands.Append(actions.Command{Cmd: "undo"})

	cpy := orig.Clone()
	cpy.Name = "copy"
	cpy.Action.StartupCommands.Commands[0].Cmd = "changed"
	cpy.Action.CleanupCommands.Commands[0].IgnoreError = true

	assert.Equal(t, "orig", orig.Name)
	assert.Empty(t, orig.Action.StartupCommands.Commands[0].Cmd)
	assert.False(t, orig.Action.CleanupCommands.Commands[0].IgnoreError)

	all := actions.CloneAll([]actions.EventAction{orig})
	all[0].Action.CleanupCommands.Commands[0].Cmd = "x"
	assert.Equal(t, "undo", orig.Action.CleanupCommands.Commands[0].Cmd)
	assert.NotNil(t, actions.CloneAll(nil))
}

// TestSerialization_AllFieldsExplicit ensures default-valued fields are written
// out, since the execution engine has no defaults of its own.
func TestSerialization_AllFieldsExplicit(t *testing.T) {
	a := actions.EventAction{
		Name: "only defaults",
		Action: actions.Binding{
			StartupCommands: actions.CommandGroup{
				FailurePolicy: actions.FailFast,
				Commands:      []actions.Command{{Cmd: "run"}},
			},
			CleanupCommands: actions.NewGroup(actions.ContinueOnFailure),
		},
	}

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))

	binding := generic["action"].(map[string]interface{})
	for _, key := range []string{"startup_stage", "shutdown_stage", "startup_commands", "cleanup_commands"} {
		assert.Contains(t, binding, key)
	}
	cmd := binding["startup_commands"].(map[string]interface{})["commands"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"cmd", "elevated", "timeout_seconds", "ignore_error", "async"} {
		assert.Contains(t, cmd, key)
	}

	var back actions.EventAction
	require.NoError(t, json.Unmarshal(raw, &back))
	if diff := cmp.Diff(a, back); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}

	rawYAML, err := yaml.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(rawYAML), "ignore_error: false")
	var backYAML actions.EventAction
	require.NoError(t, yaml.Unmarshal(rawYAML, &backYAML))
	if diff := cmp.Diff(a, backYAML); diff != "" {
		t.Errorf("YAML round trip mismatch (-want +got):\n%s", diff)
	}
}
