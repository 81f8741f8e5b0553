package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Session string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect journaled session events",
		Long: `Read events from the SQLite journal. Without --session the most
recent rows are shown newest first; with --session the full session is
shown in history order.

Example:
  prism history --journal ./prism.db --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if opts.Journal != "" {
				cfg.Journal = opts.Journal
			}
			if cfg.Journal == "" {
				return WrapExitError(ExitCommandError, "no journal configured", fmt.Errorf("set --journal or the journal config key"))
			}

			j, err := journal.Open(cfg.Journal)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open journal", err)
			}
			defer j.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var records []journal.Record
			if opts.Session != "" {
				records, err = j.BySession(ctx, opts.Session)
			} else {
				records, err = j.Recent(ctx, opts.Limit)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read journal", err)
			}

			if rootOpts.Format == "json" {
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(records)
			}
			w := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(w, "%s  %s #%d  %s  %s\n", r.RecordedAt, r.SessionID, r.Seq, r.Type, r.Payload)
			}
			if len(records) == 0 {
				fmt.Fprintln(w, "no journaled events")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (overrides config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "show a single session in history order")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum rows when listing recent events")
	return cmd
}
