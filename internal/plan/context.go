package plan

import (
	"sort"
	"strconv"

	"github.com/streamhook/streamhook/internal/stage"
)

// Environment variables exported to every command run for a stage.
const (
	EnvEventStage       = "STREAMHOOK_EVENT_STAGE"
	EnvEventAppID       = "STREAMHOOK_EVENT_APP_ID"
	EnvEventAppName     = "STREAMHOOK_EVENT_APP_NAME"
	EnvEventClientCount = "STREAMHOOK_EVENT_CLIENT_COUNT"
)

// noAppID is the id a host reports when no app is running.
const noAppID = "-1"

// ExecutionContext describes the session a stage fires in.
type ExecutionContext struct {
	AppID       string
	AppName     string
	ClientCount int
	Stage       stage.ID
	// Env holds extra variables from the host, passed through to commands.
	Env map[string]string
}

// Active reports whether an app session is running. Stages fired without
// one run no actions, global ones included.
func (c ExecutionContext) Active() bool {
	return c.AppID != "" && c.AppID != noAppID
}

// Environ returns the command environment as sorted KEY=value pairs. The
// STREAMHOOK_EVENT_* variables override caller-supplied ones with the same key.
func (c ExecutionContext) Environ() []string {
	vars := make(map[string]string, len(c.Env)+4)
	for k, v := range c.Env {
		vars[k] = v
	}
	vars[EnvEventStage] = string(c.Stage)
	vars[EnvEventAppID] = c.AppID
	vars[EnvEventAppName] = c.AppName
	vars[EnvEventClientCount] = strconv.Itoa(c.ClientCount)

	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
