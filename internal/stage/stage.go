// Package stage is the fixed catalog of streaming-session lifecycle stages at
// which event actions may trigger.
package stage

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies a lifecycle stage, e.g. PRE_STREAM_START.
type ID string

// Category groups stages by the part of the session they belong to.
type Category string

const (
	CategoryStartup Category = "startup"
	CategoryRuntime Category = "runtime"
	CategoryCleanup Category = "cleanup"
)

// Known stage identifiers, in declaration order.
const (
	PreDisplayCheck            ID = "PRE_DISPLAY_CHECK"
	PostDisplayCheck           ID = "POST_DISPLAY_CHECK"
	PreStreamStart             ID = "PRE_STREAM_START"
	PostStreamStart            ID = "POST_STREAM_START"
	AdditionalClient           ID = "ADDITIONAL_CLIENT"
	StreamResume               ID = "STREAM_RESUME"
	StreamPause                ID = "STREAM_PAUSE"
	AdditionalClientDisconnect ID = "ADDITIONAL_CLIENT_DISCONNECT"
	PreStreamStop              ID = "PRE_STREAM_STOP"
	PostStreamStop             ID = "POST_STREAM_STOP"
)

// ErrUnknownStage is wrapped by Parse when the input names no known stage.
var ErrUnknownStage = errors.New("unknown stage")

// Stage describes one lifecycle stage.
type Stage struct {
	ID          ID       `json:"stage" yaml:"stage"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
}

var registry = [...]Stage{
	{PreDisplayCheck, "Pre Display Check", "Before display validation", CategoryStartup},
	{PostDisplayCheck, "Post Display Check", "After display has been validated", CategoryStartup},
	{PreStreamStart, "Pre Stream Start", "Before the stream begins", CategoryStartup},
	{PostStreamStart, "Post Stream Start", "After the stream has started successfully", CategoryRuntime},
	{AdditionalClient, "Additional Client", "When an additional client connects", CategoryRuntime},
	{StreamResume, "Stream Resume", "When stream resumes from pause", CategoryRuntime},
	{StreamPause, "Stream Pause", "When stream is paused", CategoryCleanup},
	{AdditionalClientDisconnect, "Additional Client Disconnect", "When an additional client disconnects", CategoryCleanup},
	{PreStreamStop, "Pre Stream Stop", "Before the stream stops", CategoryCleanup},
	{PostStreamStop, "Post Stream Stop", "After the stream has stopped", CategoryCleanup},
}

var byID = func() map[ID]int {
	m := make(map[ID]int, len(registry))
	for i, s := range registry {
		m[s.ID] = i
	}
	return m
}()

func (id ID) String() string { return string(id) }

// All returns every stage in declaration order. The slice is a fresh copy.
func All() []Stage {
	out := make([]Stage, len(registry))
	copy(out, registry[:])
	return out
}

// StartupStages returns the stages that may start an action: every stage
// whose category is not cleanup, in declaration order.
func StartupStages() []Stage {
	return filter(func(s Stage) bool { return s.Category != CategoryCleanup })
}

// CleanupStages returns the cleanup-category stages in declaration order.
func CleanupStages() []Stage {
	return filter(func(s Stage) bool { return s.Category == CategoryCleanup })
}

func filter(keep func(Stage) bool) []Stage {
	var out []Stage
	for _, s := range registry {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the stage registered under id.
func Lookup(id ID) (Stage, bool) {
	i, ok := byID[id]
	if !ok {
		return Stage{}, false
	}
	return registry[i], true
}

// IsKnown reports whether id names a registered stage.
func IsKnown(id ID) bool {
	_, ok := byID[id]
	return ok
}

// DisplayName returns the human-readable name of the stage, or id itself when
// the stage is unknown. It never fails.
func DisplayName(id string) string {
	if s, ok := Lookup(ID(id)); ok {
		return s.Name
	}
	return id
}

// Parse resolves user input such as "pre_stream_start" to a stage ID.
func Parse(s string) (ID, error) {
	id := ID(strings.ToUpper(strings.TrimSpace(s)))
	if !IsKnown(id) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return id, nil
}
