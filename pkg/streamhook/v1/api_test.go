package v1_test

import (
	"testing"

	"github.com/streamhook/streamhook/internal/logger"
	streamhook "github.com/streamhook/streamhook/pkg/streamhook/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPublicAPI_EndToEnd migrates legacy prep commands, authors a new action
// and resolves the result for a stage.
func TestPublicAPI_EndToEnd(t *testing.T) {
	log := logger.NewDiscardLogger()
	doc, err := streamhook.LoadConfig([]byte(`
schemaVersion: v1.0.0
global_prep_cmd:
  - do_cmd: echo setup
    undo_cmd: echo cleanup
    elevated: true
apps:
  - id: "1"
    name: Desktop
`), "api.yaml")
	require.NoError(t, err)

	seed := streamhook.ConvertPrepCommands(doc.GlobalPrepCmd)
	require.Len(t, seed, 1)

	var committed []streamhook.EventAction
	ed, err := streamhook.NewEditor(log, seed,
		streamhook.WithOwner(streamhook.OwnerFunc(func(s []streamhook.EventAction) { committed = s })))
	require.NoError(t, err)

	ed.BeginCreate()
	require.NoError(t, ed.Update(func(a *streamhook.EventAction) {
		a.Name = "Client joined"
		a.Action.StartupStage = "ADDITIONAL_CLIENT"
		a.Action.StartupCommands.Commands[0].Cmd = "notify-send joined"
	}))
	require.NoError(t, ed.Save())
	require.Len(t, committed, 2)

	doc.GlobalPrepCmd = nil
	doc.GlobalEventActions = committed
	r, err := streamhook.NewResolver(doc, log)
	require.NoError(t, err)

	steps := r.GroupsFor("PRE_STREAM_START", "1")
	require.Len(t, steps, 1)
	assert.Equal(t, "echo setup", steps[0].Group.Commands[0].Cmd)
	assert.True(t, steps[0].Group.Commands[0].Elevated)

	steps = r.Resolve(streamhook.ExecutionContext{AppID: "1", Stage: "ADDITIONAL_CLIENT"})
	require.Len(t, steps, 1)
	assert.Equal(t, "Client joined", steps[0].ActionName)
}

func TestPublicAPI_Stages(t *testing.T) {
	stages := streamhook.Stages()
	require.Len(t, stages, 10)
	assert.Equal(t, streamhook.StageID("PRE_DISPLAY_CHECK"), stages[0].ID)
	assert.Equal(t, "Pre Stream Start", streamhook.StageDisplayName("PRE_STREAM_START"))
	assert.Equal(t, "CUSTOM", streamhook.StageDisplayName("CUSTOM"))

	_, err := streamhook.NewResolver(nil, nil)
	assert.Error(t, err)
}
