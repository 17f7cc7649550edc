package actions

import (
	"fmt"
	"strings"

	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
)

// DefaultTimeoutSeconds is the timeout given to every new command.
const DefaultTimeoutSeconds = 30

// FailurePolicy decides what a command group does after a command fails.
type FailurePolicy string

const (
	// FailFast aborts the remaining commands after the first failing command
	// that does not set ignore_error.
	FailFast FailurePolicy = "FAIL_FAST"
	// ContinueOnFailure runs every command regardless of failures.
	ContinueOnFailure FailurePolicy = "CONTINUE_ON_FAILURE"
)

// Valid reports whether p is one of the known policies.
func (p FailurePolicy) Valid() bool {
	return p == FailFast || p == ContinueOnFailure
}

// Command is one executable unit of an event action.
type Command struct {
	Cmd            string `json:"cmd" yaml:"cmd"`
	Elevated       bool   `json:"elevated" yaml:"elevated"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	IgnoreError    bool   `json:"ignore_error" yaml:"ignore_error"`
	Async          bool   `json:"async" yaml:"async"`
}

// NewStartupCommand returns a blank command with startup defaults.
func NewStartupCommand() Command {
	return Command{TimeoutSeconds: DefaultTimeoutSeconds}
}

// NewCleanupCommand returns a blank command with cleanup defaults. Cleanup
// commands are best-effort, so failures are ignored.
func NewCleanupCommand() Command {
	c := NewStartupCommand()
	c.IgnoreError = true
	return c
}

// IsBlank reports whether the command line is empty after trimming.
func (c Command) IsBlank() bool {
	return strings.TrimSpace(c.Cmd) == ""
}

// CommandGroup is an ordered list of commands sharing one failure policy.
type CommandGroup struct {
	FailurePolicy FailurePolicy `json:"failure_policy" yaml:"failure_policy"`
	Commands      []Command     `json:"commands" yaml:"commands"`
}

// NewGroup returns an empty group with the given policy.
func NewGroup(policy FailurePolicy) CommandGroup {
	return CommandGroup{FailurePolicy: policy, Commands: []Command{}}
}

// Len returns the number of commands in the group.
func (g CommandGroup) Len() int { return len(g.Commands) }

// Append adds c at the end of the group.
func (g *CommandGroup) Append(c Command) {
	g.Commands = append(g.Commands, c)
}

// RemoveAt deletes the command at index i.
func (g *CommandGroup) RemoveAt(i int) error {
	if i < 0 || i >= len(g.Commands) {
		return shErrors.NewIndexOutOfRangeError("commands", i, len(g.Commands))
	}
	g.Commands = append(g.Commands[:i], g.Commands[i+1:]...)
	return nil
}

// Compact returns a copy of the group without blank commands. The relative
// order of the remaining commands is kept. It is applied on commit only, never
// while a user is still editing.
func (g CommandGroup) Compact() CommandGroup {
	out := CommandGroup{FailurePolicy: g.FailurePolicy, Commands: make([]Command, 0, len(g.Commands))}
	for _, c := range g.Commands {
		if !c.IsBlank() {
			out.Commands = append(out.Commands, c)
		}
	}
	return out
}

// Clone returns a deep copy of the group.
func (g CommandGroup) Clone() CommandGroup {
	out := CommandGroup{FailurePolicy: g.FailurePolicy, Commands: make([]Command, len(g.Commands))}
	copy(out.Commands, g.Commands)
	return out
}

// problems lists what is wrong with the group, each message prefixed by key.
func (g CommandGroup) problems(key string) []string {
	var out []string
	if !g.FailurePolicy.Valid() {
		out = append(out, fmt.Sprintf("%s has invalid failure_policy '%s'", key, g.FailurePolicy))
	}
	for i, c := range g.Commands {
		if c.TimeoutSeconds < 0 {
			out = append(out, fmt.Sprintf("%s[%d] timeout_seconds cannot be negative", key, i))
		}
	}
	return out
}
