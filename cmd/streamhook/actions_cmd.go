package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/config"
	"github.com/streamhook/streamhook/internal/editor"
	"github.com/streamhook/streamhook/internal/stage"
	"github.com/streamhook/streamhook/internal/store"
	"github.com/streamhook/streamhook/internal/tracing"
)

// scopeFlags selects the action list a subcommand works on.
type scopeFlags struct {
	file  string
	appID string
}

func (s *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "Configuration file, sqlite:PATH or redis:// URL (required)")
	cmd.Flags().StringVar(&s.appID, "app", "", "Edit the actions of this app instead of the global list")
}

func (s *scopeFlags) scope() string {
	if s.appID == "" {
		return config.GlobalScope
	}
	return s.appID
}

func (c *cli) newActionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List, add and delete event actions",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(c.newActionsListCommand(), c.newActionsAddCommand(), c.newActionsDeleteCommand())
	return cmd
}

// openOwner connects an ActionsOwner to the configured store and returns the
// stored list. The returned func releases the store.
func (c *cli) openOwner(ctx context.Context, s scopeFlags) (*store.ActionsOwner, []actions.EventAction, func(), error) {
	st, closeStore, err := c.openStore(ctx, s.file)
	if err != nil {
		return nil, nil, nil, err
	}
	owner := store.NewActionsOwner(ctx, st, s.scope(), c.log)
	current, err := owner.Actions()
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	return owner, current, closeStore, nil
}

func (c *cli) newActionsListCommand() *cobra.Command {
	var (
		s      scopeFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the event actions of a scope",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(s.file); err != nil {
				return err
			}
			if err := checkOutputFormat(output, true); err != nil {
				return err
			}
			_, current, closeStore, err := c.openOwner(cmd.Context(), s)
			if err != nil {
				return err
			}
			defer closeStore()
			if output != "table" {
				return writeStructured(c.stdout, output, current)
			}
			return printActions(c.stdout, current)
		},
	}
	s.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}

func printActions(w io.Writer, list []actions.EventAction) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No event actions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tSTARTUP STAGE\tSHUTDOWN STAGE\tSTARTUP CMDS\tCLEANUP CMDS")
	for i, a := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n", i, a.Name,
			orDash(string(a.Action.StartupStage)), orDash(string(a.Action.ShutdownStage)),
			a.Action.StartupCommands.Len(), a.Action.CleanupCommands.Len())
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type addOptions struct {
	scopeFlags
	name          string
	startupStage  string
	shutdownStage string
	startupCmds   []string
	cleanupCmds   []string
	elevated      bool
	timeout       int
	setTimeout    bool
}

func (c *cli) newActionsAddCommand() *cobra.Command {
	opts := addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event action",
		Example: strings.TrimSpace(`
  streamhook actions add -f config.yaml --name "Mute speakers" \
    --startup-stage PRE_STREAM_START --cmd "pactl set-sink-mute 0 1" \
    --shutdown-stage POST_STREAM_STOP --cleanup-cmd "pactl set-sink-mute 0 0"`),
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(opts.file); err != nil {
				return err
			}
			opts.setTimeout = cmd.Flags().Changed("timeout")
			return c.runActionsAdd(cmd.Context(), opts)
		},
	}
	opts.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&opts.name, "name", "", "Action name")
	flags.StringVar(&opts.startupStage, "startup-stage", "", "Stage running the startup commands")
	flags.StringVar(&opts.shutdownStage, "shutdown-stage", "", "Stage running the cleanup commands")
	flags.StringArrayVar(&opts.startupCmds, "cmd", nil, "Startup command (repeatable)")
	flags.StringArrayVar(&opts.cleanupCmds, "cleanup-cmd", nil, "Cleanup command (repeatable)")
	flags.BoolVar(&opts.elevated, "elevated", false, "Run every command with elevated privileges")
	flags.IntVar(&opts.timeout, "timeout", actions.DefaultTimeoutSeconds, "Timeout in seconds for every command")
	return cmd
}

func parseOptionalStage(flag, value string) (stage.ID, error) {
	if value == "" {
		return "", nil
	}
	id, err := stage.Parse(value)
	if err != nil {
		return "", usageErrorf("--%s: %v", flag, err)
	}
	return id, nil
}

func (c *cli) runActionsAdd(ctx context.Context, opts addOptions) error {
	startup, err := parseOptionalStage("startup-stage", opts.startupStage)
	if err != nil {
		return err
	}
	shutdown, err := parseOptionalStage("shutdown-stage", opts.shutdownStage)
	if err != nil {
		return err
	}

	ctx, span := c.startSpan(ctx, "streamhook.actions.add", attribute.String("scope", opts.scope()))
	defer span.End()

	owner, current, closeStore, err := c.openOwner(ctx, opts.scopeFlags)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	defer closeStore()

	tel, err := startTelemetry(c.log)
	if err != nil {
		return err
	}
	defer tel.stop()

	ed, err := editor.New(c.log, current, editor.WithOwner(owner), editor.WithEventBus(tel.bus))
	if err != nil {
		return err
	}
	ed.BeginCreate()
	if err := stageAddition(ed, opts, startup, shutdown); err != nil {
		_ = ed.Cancel()
		return err
	}
	if staged, ok := ed.Staged(); ok {
		span.SetAttributes(tracing.ActionAttributes("action", staged)...)
	}

	if err := ed.Save(); err != nil {
		_ = ed.Cancel()
		tracing.RecordError(span, err)
		return err
	}
	if err := owner.Err(); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	fmt.Fprintf(c.stdout, "Added action '%s' at index %d\n", opts.name, ed.Len()-1)
	return nil
}

// stageAddition fills the staged action from the command line.
func stageAddition(ed *editor.Editor, opts addOptions, startup, shutdown stage.ID) error {
	err := ed.Update(func(a *actions.EventAction) {
		a.Name = opts.name
		a.Action.StartupStage = startup
		a.Action.ShutdownStage = shutdown
	})
	if err != nil {
		return err
	}

	// The seed already holds one blank startup command.
	for i, line := range opts.startupCmds {
		if i > 0 {
			if err := ed.AddCommand(editor.StartupGroup); err != nil {
				return err
			}
		}
		if err := ed.Update(func(a *actions.EventAction) { a.Action.StartupCommands.Commands[i].Cmd = line }); err != nil {
			return err
		}
	}
	for i, line := range opts.cleanupCmds {
		if err := ed.AddCommand(editor.CleanupGroup); err != nil {
			return err
		}
		if err := ed.Update(func(a *actions.EventAction) { a.Action.CleanupCommands.Commands[i].Cmd = line }); err != nil {
			return err
		}
	}

	return ed.Update(func(a *actions.EventAction) {
		for _, g := range []*actions.CommandGroup{&a.Action.StartupCommands, &a.Action.CleanupCommands} {
			for i := range g.Commands {
				g.Commands[i].Elevated = opts.elevated
				if opts.setTimeout {
					g.Commands[i].TimeoutSeconds = opts.timeout
				}
			}
		}
	})
}

type deleteOptions struct {
	scopeFlags
	index int
	yes   bool
}

func (c *cli) newActionsDeleteCommand() *cobra.Command {
	opts := deleteOptions{index: -1}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an event action after confirmation",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(opts.file); err != nil {
				return err
			}
			if !cmd.Flags().Changed("index") {
				return usageErrorf("--index is required")
			}
			return c.runActionsDelete(cmd.Context(), opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVar(&opts.index, "index", -1, "Index of the action, as shown by 'actions list' (required)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func (c *cli) runActionsDelete(ctx context.Context, opts deleteOptions) error {
	ctx, span := c.startSpan(ctx, "streamhook.actions.delete",
		attribute.String("scope", opts.scope()), attribute.Int("index", opts.index))
	defer span.End()

	owner, current, closeStore, err := c.openOwner(ctx, opts.scopeFlags)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	defer closeStore()

	tel, err := startTelemetry(c.log)
	if err != nil {
		return err
	}
	defer tel.stop()

	ed, err := editor.New(c.log, current,
		editor.WithOwner(owner),
		editor.WithEventBus(tel.bus),
		editor.WithConfirmer(c.confirmer(opts.yes)),
	)
	if err != nil {
		return err
	}

	deleted, err := ed.Delete(opts.index)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	if !deleted {
		fmt.Fprintln(c.stdout, "Aborted.")
		return nil
	}
	if err := owner.Err(); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	fmt.Fprintf(c.stdout, "Deleted action '%s'\n", current[opts.index].Name)
	return nil
}

// confirmer asks on stdin unless assumeYes is set. Anything but y or yes,
// including end of input, refuses.
func (c *cli) confirmer(assumeYes bool) editor.Confirmer {
	reader := bufio.NewReader(c.stdin)
	return editor.ConfirmFunc(func(prompt string) bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(c.stdout, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	})
}
