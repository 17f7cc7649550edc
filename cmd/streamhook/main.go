package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"

	"github.com/streamhook/streamhook/internal/logger"
	"github.com/streamhook/streamhook/internal/stage"
	"github.com/streamhook/streamhook/internal/tracing"
)

const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitUsageError      = 2
	DefaultLogLevel     = "info"
	DefaultLogFmt       = "text"
	DefaultEventBusSize = 256
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// redactedKeywords mark environment variables whose values are never printed.
var redactedKeywords = []string{"password", "token", "secret", "apikey", "privatekey", "authorization", "bearer"}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// cli carries the state shared by all subcommands of one invocation.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string

	log    shlog.Logger
	tracer *tracing.OtelTracerProvider
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	root := c.newRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	c.shutdown()
	if err == nil {
		return ExitSuccess
	}

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "Error: %v\n", usageErr)
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", root.Name())
		return ExitUsageError
	}
	c.reportError(err)
	return ExitFailure
}

func (c *cli) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "streamhook",
		Short: "Author, migrate and resolve event actions for streaming sessions",
		Long: strings.TrimSpace(`
streamhook manages event actions: named bindings of commands to the lifecycle
stages of a remote-streaming session. It validates configuration files,
migrates legacy prep commands, edits action lists and shows which commands
a stage would run.`),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&c.logLevel, "log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", DefaultLogFmt, "Log format (text, json)")

	root.AddCommand(
		c.newVersionCommand(),
		c.newStagesCommand(),
		c.newValidateCommand(),
		c.newMigrateCommand(),
		c.newPlanCommand(),
		c.newActionsCommand(),
		c.newHistoryCommand(),
	)
	return root
}

// setup builds the logger and tracer once flags are parsed.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.logFormat != "text" && c.logFormat != "json" {
		return usageErrorf("--log-format must be 'text' or 'json'")
	}
	c.log = logger.NewLogger(c.logLevel, c.logFormat, c.stderr).With("streamhook_version", version)
	c.log.Debugf("Log level: %s", c.logLevel)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		// --var values may carry credentials.
		if f.Value.Type() == "stringToString" {
			c.log.Debugf("Flag --%s set", f.Name)
			return
		}
		c.log.Debugf("Flag --%s=%s", f.Name, f.Value.String())
	})
	c.tracer = tracing.NewProviderFromEnv(cmd.Context(), c.log)
	return nil
}

func (c *cli) shutdown() {
	if c.tracer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.tracer.Shutdown(shutdownCtx); err != nil && c.log != nil {
		c.log.Warnf("Error shutting down tracer provider: %v", err)
	}
}

func (c *cli) reportError(err error) {
	log := c.log
	if log == nil {
		log = logger.NewLogger(DefaultLogLevel, DefaultLogFmt, c.stderr)
	}

	var validationErr *shErrors.ValidationError
	var configErr *shErrors.ConfigError
	var rangeErr *shErrors.IndexOutOfRangeError
	switch {
	case errors.As(err, &validationErr):
		log.Errorf("Validation failed: %s", validationErr.Message)
		for _, reason := range validationErr.Reasons {
			log.Errorf("  - %s", reason)
		}
	case errors.As(err, &configErr):
		log.Errorf("Configuration error:\n%s", configErr.Error())
	case errors.As(err, &rangeErr):
		log.Errorf("No such entry: %s", rangeErr.Error())
	case errors.Is(err, context.Canceled):
		log.Warnf("Cancelled.")
	default:
		log.Errorf("%v", err)
	}
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func requireFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return usageErrorf("--file is required")
	}
	return nil
}

func (c *cli) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(c.stdout)
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "streamhook version %s\n", version)
	fmt.Fprintf(w, "commit: %s\n", commit)
	fmt.Fprintf(w, "built: %s\n", buildDate)
	fmt.Fprintf(w, "go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func (c *cli) newStagesCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List the lifecycle stages actions can bind to",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "table" {
				return writeStructured(c.stdout, output, stage.All())
			}
			return c.printStages()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}

func (c *cli) printStages() error {
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tNAME\tCATEGORY\tSTARTUP\tCLEANUP")
	for _, s := range stage.All() {
		cleanup := s.Category == stage.CategoryCleanup
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Category, yesNo(!cleanup), yesNo(cleanup))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
