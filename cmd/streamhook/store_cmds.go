package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/streamhook/streamhook/internal/store"
	"github.com/streamhook/streamhook/internal/tracing"
)

const sqliteScheme = "sqlite:"

// openStore picks a backend from the --file value:
//
//	sqlite:PATH                   revisioned SQLite database
//	redis://host:port/db?key=K    shared Redis key (rediss:// for TLS)
//	anything else                 YAML file on disk
//
// The returned func releases the backend and is never nil.
func (c *cli) openStore(ctx context.Context, location string) (store.Store, func(), error) {
	switch {
	case strings.HasPrefix(location, sqliteScheme):
		path := strings.TrimPrefix(location, sqliteScheme)
		if path == "" {
			return nil, nil, usageErrorf("sqlite location needs a path, e.g. sqlite:streamhook.db")
		}
		s, err := store.OpenSQLiteStore(ctx, path, c.log)
		if err != nil {
			return nil, nil, err
		}
		return s, c.closer(s.Close), nil
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		s, err := store.OpenRedisStore(ctx, location, c.log)
		if err != nil {
			return nil, nil, err
		}
		return s, c.closer(s.Close), nil
	default:
		return store.NewFileStore(location, c.log), func() {}, nil
	}
}

func (c *cli) closer(closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			c.log.Warnf("Error closing store: %v", err)
		}
	}
}

type historyOptions struct {
	file    string
	limit   int
	restore int64
	output  string
}

func (c *cli) newHistoryCommand() *cobra.Command {
	var opts historyOptions
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or restore saved revisions of a SQLite-backed configuration",
		Long: `List or restore saved revisions of a SQLite-backed configuration.

Every save to a sqlite: location appends a revision. --restore N saves
revision N again as the newest one; nothing is overwritten.`,
		Example: "  streamhook history -f sqlite:streamhook.db --limit 5\n  streamhook history -f sqlite:streamhook.db --restore 3",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(opts.file); err != nil {
				return err
			}
			if !strings.HasPrefix(opts.file, sqliteScheme) {
				return usageErrorf("history needs a sqlite: location, got '%s'", opts.file)
			}
			if err := checkOutputFormat(opts.output, true); err != nil {
				return err
			}
			return c.runHistory(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "SQLite location, e.g. sqlite:streamhook.db (required)")
	flags.IntVar(&opts.limit, "limit", 0, "Show at most this many revisions (0 shows all)")
	flags.Int64Var(&opts.restore, "restore", 0, "Save this revision again as the newest one")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}

func (c *cli) runHistory(ctx context.Context, opts historyOptions) error {
	ctx, span := c.startSpan(ctx, "streamhook.history", attribute.String("config.path", opts.file))
	defer span.End()

	s, err := store.OpenSQLiteStore(ctx, strings.TrimPrefix(opts.file, sqliteScheme), c.log)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	defer c.closer(s.Close)()

	if opts.restore > 0 {
		span.SetAttributes(attribute.Int64("history.restore", opts.restore))
		if err := s.Restore(ctx, opts.restore); err != nil {
			tracing.RecordError(span, err)
			return err
		}
		fmt.Fprintf(c.stdout, "Restored revision %d\n", opts.restore)
		return nil
	}

	revisions, err := s.History(ctx, opts.limit)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	if opts.output != "table" {
		return writeStructured(c.stdout, opts.output, revisions)
	}
	if len(revisions) == 0 {
		fmt.Fprintln(c.stdout, "No revisions.")
		return nil
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tSAVED AT\tGLOBAL ACTIONS\tAPPS")
	for _, r := range revisions {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", r.Number, r.SavedAt.Local().Format(time.DateTime), r.GlobalActions, r.Apps)
	}
	return tw.Flush()
}
