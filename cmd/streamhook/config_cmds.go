package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/streamhook/streamhook/pkg/streamhook/v1/events"

	"github.com/streamhook/streamhook/internal/config"
	"github.com/streamhook/streamhook/internal/migration"
	"github.com/streamhook/streamhook/internal/plan"
	"github.com/streamhook/streamhook/internal/stage"
	"github.com/streamhook/streamhook/internal/store"
	"github.com/streamhook/streamhook/internal/tracing"
)

func (c *cli) newValidateCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(file); err != nil {
				return err
			}
			return c.runValidate(cmd.Context(), file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the configuration file (required)")
	return cmd
}

func (c *cli) runValidate(ctx context.Context, file string) error {
	_, span := c.startSpan(ctx, "streamhook.validate", attribute.String("config.path", file))
	defer span.End()

	c.log.Infof("Validating configuration: %s", file)
	doc, err := config.LoadFile(file)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	if migration.Suggested(doc.GlobalPrepCmd, doc.GlobalEventActions) {
		c.log.Warnf("global_prep_cmd holds legacy prep commands; run 'streamhook migrate' to convert them")
	}
	for _, app := range doc.Apps {
		if migration.Suggested(app.PrepCmd, app.EventActions) {
			c.log.Warnf("App '%s' holds legacy prep commands; run 'streamhook migrate' to convert them", app.ID)
		}
	}

	fmt.Fprintf(c.stdout, "Configuration '%s' is valid: %d global action(s), %d app(s)\n",
		file, len(doc.GlobalEventActions), len(doc.Apps))
	return nil
}

func (c *cli) newMigrateCommand() *cobra.Command {
	var (
		file  string
		write bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Convert legacy prep commands into event actions",
		Long: `Convert legacy prep commands into event actions.

Every prep-command list without event actions next to it is turned into one
action named "Converted Prep Commands". Without --write the migrated document is
printed; with --write the file is replaced atomically.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(file); err != nil {
				return err
			}
			return c.runMigrate(cmd.Context(), file, write)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file, sqlite:PATH or redis:// URL (required)")
	cmd.Flags().BoolVar(&write, "write", false, "Write the migrated document back to the store")
	return cmd
}

func (c *cli) runMigrate(ctx context.Context, file string, write bool) error {
	ctx, span := c.startSpan(ctx, "streamhook.migrate", attribute.String("config.path", file))
	defer span.End()

	st, closeStore, err := c.openStore(ctx, file)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	defer closeStore()
	doc, err := st.Load(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	tel, err := startTelemetry(c.log)
	if err != nil {
		return err
	}
	defer tel.stop()

	results := doc.MigratePrepCommands()
	for _, r := range results {
		startup := r.Action.Action.StartupCommands.Len()
		cleanup := r.Action.Action.CleanupCommands.Len()
		c.log.Infof("Migrated %s prep commands into action '%s' (%d startup, %d cleanup)", r.Scope, r.Action.Name, startup, cleanup)
		tel.bus.Emit(events.Event{
			Type:       events.PrepCommandsMigrated,
			Timestamp:  time.Now(),
			ActionName: r.Action.Name,
			Index:      migratedIndex(doc, r.Scope),
			Payload:    map[string]interface{}{"scope": r.Scope, "startup": startup, "cleanup": cleanup},
		})
	}
	span.SetAttributes(attribute.Int("migration.lists", len(results)))

	if !write {
		out, err := config.Marshal(doc)
		if err != nil {
			tracing.RecordError(span, err)
			return err
		}
		_, err = c.stdout.Write(out)
		return err
	}

	if len(results) == 0 {
		fmt.Fprintf(c.stdout, "Nothing to migrate in '%s'\n", file)
		return nil
	}
	if err := st.Save(ctx, doc); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	fmt.Fprintf(c.stdout, "Migrated %d prep command list(s) in '%s'\n", len(results), file)
	return nil
}

// migratedIndex is the position of the action just appended to scope.
func migratedIndex(doc *config.Document, scope string) int {
	if scope == config.GlobalScope {
		return len(doc.GlobalEventActions) - 1
	}
	if app, ok := doc.App(scope); ok {
		return len(app.EventActions) - 1
	}
	return -1
}

type planOptions struct {
	file        string
	stage       string
	appID       string
	clientCount int
	vars        map[string]string
	showEnv     bool
	output      string
	watch       bool
}

// planOutput is what `plan` prints for one resolution.
type planOutput struct {
	Stage stage.ID    `json:"stage" yaml:"stage"`
	AppID string      `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	Steps []plan.Step `json:"steps" yaml:"steps"`
	Env   []string    `json:"env,omitempty" yaml:"env,omitempty"`
}

func (c *cli) newPlanCommand() *cobra.Command {
	opts := planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the command groups a stage would run",
		Long: `Show the command groups a stage would run, global actions first.

Without --app only global actions are resolved. With --app the app's
exclusions and actions apply, and an app id of -1 (no running app) resolves
to nothing.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(opts.file); err != nil {
				return err
			}
			if opts.stage == "" {
				return usageErrorf("--stage is required")
			}
			if err := checkOutputFormat(opts.output, false); err != nil {
				return err
			}
			return c.runPlan(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "Configuration file, sqlite:PATH or redis:// URL (required)")
	flags.StringVar(&opts.stage, "stage", "", "Stage to resolve, e.g. PRE_STREAM_START (required)")
	flags.StringVar(&opts.appID, "app", "", "Id of the running app")
	flags.IntVar(&opts.clientCount, "client-count", 1, "Number of connected clients")
	flags.StringToStringVar(&opts.vars, "var", nil, "Extra KEY=VALUE passed to commands")
	flags.BoolVar(&opts.showEnv, "show-env", false, "Include the command environment in the output")
	flags.StringVarP(&opts.output, "output", "o", "yaml", "Output format (yaml, json)")
	flags.BoolVar(&opts.watch, "watch", false, "Re-resolve whenever the file changes")
	return cmd
}

func (c *cli) runPlan(ctx context.Context, opts planOptions) error {
	id, err := stage.Parse(opts.stage)
	if err != nil {
		return &usageError{err: err}
	}

	st, closeStore, err := c.openStore(ctx, opts.file)
	if err != nil {
		return err
	}
	defer closeStore()

	loadCtx, span := c.startSpan(ctx, "streamhook.plan", attribute.String("config.path", opts.file), attribute.String("stage", string(id)))
	doc, err := st.Load(loadCtx)
	if err != nil {
		tracing.RecordError(span, err)
		span.End()
		return err
	}
	err = c.printPlan(doc, id, opts)
	tracing.RecordError(span, err)
	span.End()
	if err != nil || !opts.watch {
		return err
	}

	watcher, ok := st.(store.Watcher)
	if !ok {
		return usageErrorf("--watch is not supported for '%s'", opts.file)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.log.Infof("Watching '%s' for changes (Ctrl-C to stop)", opts.file)
	return watcher.Watch(ctx, func(doc *config.Document) {
		c.log.Infof("Configuration changed, resolving stage %s again", id)
		if err := c.printPlan(doc, id, opts); err != nil {
			c.log.Errorf("Failed to print plan: %v", err)
		}
	})
}

func (c *cli) printPlan(doc *config.Document, id stage.ID, opts planOptions) error {
	resolver := plan.NewResolver(doc, c.log)
	out := planOutput{Stage: id, AppID: opts.appID}

	ec := plan.ExecutionContext{
		AppID:       opts.appID,
		ClientCount: opts.clientCount,
		Stage:       id,
		Env:         opts.vars,
	}
	if opts.appID == "" {
		out.Steps = resolver.GroupsFor(id, "")
	} else {
		if app, ok := doc.App(opts.appID); ok {
			ec.AppName = app.Name
		} else if ec.Active() {
			c.log.Warnf("No app with id '%s'; only global actions apply", opts.appID)
		}
		out.Steps = resolver.Resolve(ec)
	}
	if opts.showEnv {
		out.Env = tracing.RedactEnv(ec.Environ(), redactedKeywords)
	}
	return writeStructured(c.stdout, opts.output, out)
}
