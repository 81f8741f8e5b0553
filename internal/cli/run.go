package cli

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/config"
	"github.com/roach88/prism/internal/crystal"
	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Budget  int
	Inputs  string
	Journal string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full session: steps, crystallize, pipeline",
		Long: `Run a complete workspace session.

The engine performs one step per input value, compacts the resulting
history into a crystal, then runs select → read → compose → export.
Skip and deny outcomes are normal terminations and print their reason.

Example:
  prism run --workspace ./storage --budget 10 --inputs 1,2,3,4,5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Budget, "budget", -1, "session budget (overrides config)")
	cmd.Flags().StringVar(&opts.Inputs, "inputs", "1,2,3,4,5", "comma-separated step inputs")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (overrides config)")
	return cmd
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Budget >= 0 {
		cfg.Budget = opts.Budget
	}
	if opts.Journal != "" {
		cfg.Journal = opts.Journal
	}

	inputs, err := parseInputs(opts.Inputs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --inputs", err)
	}

	sessionID := uuid.NewString()
	slog.Info("session starting", "session", sessionID, "workspace", cfg.Workspace, "budget", cfg.Budget)

	e := engine.New(cfg.Workspace, engine.WithValue(cfg.Value), engine.WithBudget(cfg.Budget))
	for _, input := range inputs {
		state := e.Step(input)
		slog.Debug("step", "input", input, "value", state.Value, "budget", state.Budget)
	}

	crystalPath, err := crystal.Crystallize(e, crystal.Options{
		Dir:          cfg.CrystalsDir,
		MinNewEvents: cfg.MinNewEvents,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "crystallize failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if crystalPath == "" {
		reason := ir.LastReason(e.History(), ir.TypeCrystalSkip)
		syncJournal(cfg, sessionID, e)
		return out.Skip("crystallize", reason)
	}
	slog.Info("crystal written", "path", crystalPath)

	result, err := runPipeline(e, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "pipeline failed", err)
	}
	syncJournal(cfg, sessionID, e)

	if result.Skipped() {
		return out.Skip(result.Stage, result.Reason)
	}
	return out.Success(map[string]any{
		"session": sessionID,
		"crystal": crystalPath,
		"packet":  result.PacketPath,
		"export":  result.ExportPath,
		"value":   e.Value(),
		"budget":  e.Budget(),
	})
}

// syncJournal mirrors the session history into the journal when one is
// configured. Journal faults are logged, not fatal: the workspace run
// already succeeded or skipped on its own terms.
func syncJournal(cfg config.Config, sessionID string, e *engine.Engine) {
	if cfg.Journal == "" {
		return
	}
	j, err := journal.Open(cfg.Journal)
	if err != nil {
		slog.Error("journal open failed", "path", cfg.Journal, "error", err)
		return
	}
	defer func() {
		if err := j.Close(); err != nil {
			slog.Error("journal close failed", "error", err)
		}
	}()

	if err := j.AppendHistory(context.Background(), sessionID, e.History()); err != nil {
		slog.Error("journal append failed", "error", err)
		return
	}
	slog.Debug("history journaled", "session", sessionID, "events", len(e.History()))
}

func parseInputs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	inputs := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, n)
	}
	return inputs, nil
}
