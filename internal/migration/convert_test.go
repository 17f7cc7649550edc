package migration_test

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/migration"
	"github.com/streamhook/streamhook/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func cmds(g actions.CommandGroup) []string {
	out := make([]string, 0, len(g.Commands))
	for _, c := range g.Commands {
		out = append(out, c.Cmd)
	}
	return out
}

func TestConvert_Example(t *testing.T) {
	prep := []migration.PrepCommand{
		{Do: "echo 1", Undo: "echo 2", Elevated: true},
		{Do: "echo 3", Undo: "echo 4", Elevated: false},
	}

	result := migration.Convert(prep)

	require.Len(t, result, 1)
	a := result[0]
	assert.Equal(t, "Converted Prep Commands", a.Name)
	assert.Equal(t, stage.PreStreamStart, a.Action.StartupStage)
	assert.Equal(t, stage.PostStreamStop, a.Action.ShutdownStage)

	assert.Equal(t, actions.FailFast, a.Action.StartupCommands.FailurePolicy)
	assert.Equal(t, []actions.Command{
		{Cmd: "echo 1", Elevated: true, TimeoutSeconds: 30},
		{Cmd: "echo 3", Elevated: false, TimeoutSeconds: 30},
	}, a.Action.StartupCommands.Commands)

	assert.Equal(t, actions.ContinueOnFailure, a.Action.CleanupCommands.FailurePolicy)
	assert.Equal(t, []actions.Command{
		{Cmd: "echo 4", Elevated: false, TimeoutSeconds: 30, IgnoreError: true},
		{Cmd: "echo 2", Elevated: true, TimeoutSeconds: 30, IgnoreError: true},
	}, a.Action.CleanupCommands.Commands)
	assert.True(t, a.IsValid())
}

func TestConvert_EmptyInput(t *testing.T) {
	assert.Empty(t, migration.Convert(nil))
	assert.Empty(t, migration.Convert([]migration.PrepCommand{}))
}

func TestConvert_FiltersBlankCommands(t *testing.T) {
	prep := []migration.PrepCommand{
		{Do: "echo setup", Undo: "echo cleanup", Elevated: true},
		{Do: "echo setup2", Undo: ""},
		{Do: "  ", Undo: "echo only-undo"},
	}

	a := migration.Convert(prep)[0]

	assert.Equal(t, []string{"echo setup", "echo setup2"}, cmds(a.Action.StartupCommands))
	assert.Equal(t, []string{"echo only-undo", "echo cleanup"}, cmds(a.Action.CleanupCommands))
}

// TestConvert_AllBlankStillYieldsOneAction covers non-empty input with no
// usable command lines: the action exists but both groups are empty.
func TestConvert_AllBlankStillYieldsOneAction(t *testing.T) {
	result := migration.Convert([]migration.PrepCommand{{}})
	require.Len(t, result, 1)
	assert.Empty(t, result[0].Action.StartupCommands.Commands)
	assert.Empty(t, result[0].Action.CleanupCommands.Commands)
}

// TestConvert_Properties checks the conversion invariants over generated inputs.
func TestConvert_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pick := func(prefix string, i int) string {
		switch rng.Intn(4) {
		case 0:
			return ""
		case 1:
			return "   "
		default:
			return fmt.Sprintf("%s-%d", prefix, i)
		}
	}

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(8)
		prep := make([]migration.PrepCommand, n)
		var wantDo, wantUndo []string
		for i := range prep {
			prep[i] = migration.PrepCommand{Do: pick("do", i), Undo: pick("undo", i), Elevated: rng.Intn(2) == 0}
			if prep[i].Do != "" && prep[i].Do != "   " {
				wantDo = append(wantDo, prep[i].Do)
			}
		}
		for i := n - 1; i >= 0; i-- {
			if prep[i].Undo != "" && prep[i].Undo != "   " {
				wantUndo = append(wantUndo, prep[i].Undo)
			}
		}

		result := migration.Convert(prep)
		require.Len(t, result, 1)
		a := result[0]
		assert.Equal(t, stage.PreStreamStart, a.Action.StartupStage)
		assert.Equal(t, stage.PostStreamStop, a.Action.ShutdownStage)
		assert.Equal(t, len(wantDo), len(a.Action.StartupCommands.Commands))
		assert.Equal(t, len(wantUndo), len(a.Action.CleanupCommands.Commands))
		if len(wantDo) > 0 {
			assert.Equal(t, wantDo, cmds(a.Action.StartupCommands))
		}
		if len(wantUndo) > 0 {
			assert.Equal(t, wantUndo, cmds(a.Action.CleanupCommands))
		}
		for _, c := range a.Action.StartupCommands.Commands {
			assert.False(t, c.IgnoreError)
			assert.False(t, c.Async)
		}
		for _, c := range a.Action.CleanupCommands.Commands {
			assert.True(t, c.IgnoreError)
			assert.False(t, c.Async)
		}

		// Re-running on the same input is structurally identical.
		assert.Equal(t, result, migration.Convert(prep))
	}
}

func TestPrepCommand_DecodeJSON(t *testing.T) {
	raw := `[
		{"do_cmd": "echo setup", "undo_cmd": "echo cleanup", "elevated": true},
		{"do_cmd": "echo setup2", "undo_cmd": ""},
		{"do": "legacy do", "undo": "legacy undo", "elevated": "true"},
		{"do_cmd": null, "elevated": 0}
	]`
	var prep []migration.PrepCommand
	require.NoError(t, json.Unmarshal([]byte(raw), &prep))

	assert.Equal(t, []migration.PrepCommand{
		{Do: "echo setup", Undo: "echo cleanup", Elevated: true},
		{Do: "echo setup2", Undo: "", Elevated: false},
		{Do: "legacy do", Undo: "legacy undo", Elevated: true},
		{},
	}, prep)

	a := migration.Convert(prep[1:2])[0]
	assert.False(t, a.Action.StartupCommands.Commands[0].Elevated, "absent elevated must default to false")
}

func TestPrepCommand_ElevatedLooseValues(t *testing.T) {
	testCases := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`null`, false},
		{`""`, false},
		{`"false"`, true},
		{`"0"`, true},
		{`"yes"`, true},
		{`0`, false},
		{`2`, true},
		{`[]`, true},
		{`{}`, true},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			var p migration.PrepCommand
			require.NoError(t, json.Unmarshal([]byte(`{"do_cmd": "x", "elevated": `+tc.raw+`}`), &p))
			assert.Equal(t, tc.want, p.Elevated)
		})
	}

	var fromYAML []migration.PrepCommand
	require.NoError(t, yaml.Unmarshal([]byte("- do: a\n  elevated: \"no\"\n- do: b\n  elevated: false\n"), &fromYAML))
	assert.True(t, fromYAML[0].Elevated, "any non-empty string counts")
	assert.False(t, fromYAML[1].Elevated)
}

func TestPrepCommand_DecodeYAML(t *testing.T) {
	raw := `
- do_cmd: xrandr --output HDMI-1 --mode 1920x1080
  undo_cmd: xrandr --output HDMI-1 --auto
- do: systemctl stop foo
  undo: systemctl start foo
  elevated: true
`
	var prep []migration.PrepCommand
	require.NoError(t, yaml.Unmarshal([]byte(raw), &prep))
	assert.Equal(t, []migration.PrepCommand{
		{Do: "xrandr --output HDMI-1 --mode 1920x1080", Undo: "xrandr --output HDMI-1 --auto"},
		{Do: "systemctl stop foo", Undo: "systemctl start foo", Elevated: true},
	}, prep)

	out, err := yaml.Marshal(prep)
	require.NoError(t, err)
	assert.Contains(t, string(out), "do_cmd: systemctl stop foo")
	assert.Contains(t, string(out), "elevated: false")
}

func TestSuggested(t *testing.T) {
	prep := []migration.PrepCommand{{Do: "a"}}
	assert.True(t, migration.Suggested(prep, nil))
	assert.False(t, migration.Suggested(nil, nil))
	assert.False(t, migration.Suggested(prep, migration.Convert(prep)))
}
