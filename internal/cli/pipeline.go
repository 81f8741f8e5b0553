package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/config"
	"github.com/roach88/prism/internal/crystal"
	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/packet"
)

// PipelineResult reports how far a select → read → compose → export run
// got, and why it stopped if it did.
type PipelineResult struct {
	SelectionPath string `json:"selection_path,omitempty"`
	PacketPath    string `json:"packet_path,omitempty"`
	ExportPath    string `json:"export_path,omitempty"`
	Stage         string `json:"stage,omitempty"`  // stage that skipped, "" on success
	Reason        string `json:"reason,omitempty"` // recorded reason for the skip
}

// Skipped reports whether the pipeline stopped before exporting.
func (r PipelineResult) Skipped() bool { return r.Stage != "" }

// NewPipelineCommand creates the pipeline command.
func NewPipelineCommand(rootOpts *RootOptions) *cobra.Command {
	var budget int

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run select → read → compose → export over a workspace",
		Long: `Run the full derivation pipeline against an existing workspace.

Each stage short-circuits on its own skip/deny outcome; a skip is a
normal termination and the recorded reason is printed.

Example:
  prism pipeline --workspace ./storage --budget 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if cmd.Flags().Changed("budget") {
				cfg.Budget = budget
			}

			e := engine.New(cfg.Workspace, engine.WithBudget(cfg.Budget))
			result, err := runPipeline(e, cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "pipeline failed", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if result.Skipped() {
				return out.Skip(result.Stage, result.Reason)
			}
			return out.Success(result)
		},
	}

	cmd.Flags().IntVar(&budget, "budget", 2, "session budget for compose and export")
	return cmd
}

// runPipeline drives select → read → compose → export. Each stage
// short-circuits on its own skip/deny event; the result surfaces the
// last recorded reason from the event set relevant to the failed stage.
func runPipeline(h engine.Host, cfg config.Config) (PipelineResult, error) {
	var result PipelineResult

	indexRel := engine.JoinRel(cfg.CrystalsDir, "index.json")
	sel, ok := crystal.Select(h, indexRel, crystal.StrategyLatest)
	if !ok {
		result.Stage = "select"
		result.Reason = ir.LastReason(h.History(), ir.TypeCrystalSelectSkip)
		return result, nil
	}
	result.SelectionPath = sel.Path
	slog.Debug("crystal selected", "path", sel.Path, "signature", sel.Signature)

	crystalDoc := crystal.ReadSelected(h, sel.Path, sel.Signature)
	if crystalDoc == nil {
		result.Stage = "read"
		result.Reason = ir.LastReason(h.History(), ir.TypeCrystalReadDeny)
		return result, nil
	}

	packetPath, err := packet.Compose(h, &sel, crystalDoc, packet.ComposeOptions{
		Dir:   cfg.PacketsDir,
		TailN: cfg.TailN,
	})
	if err != nil {
		return result, err
	}
	if packetPath == "" {
		result.Stage = "compose"
		result.Reason = ir.LastReason(h.History(), ir.TypePacketSkip)
		return result, nil
	}
	result.PacketPath = packetPath
	slog.Debug("packet composed", "path", packetPath)

	pkt := packet.Load(h.Root(), packetPath)
	if pkt == nil {
		return result, fmt.Errorf("composed packet %q could not be read back", packetPath)
	}

	exportPath, err := packet.ExportMarkdown(h, pkt, packet.ExportOptions{Dir: cfg.ExportsDir})
	if err != nil {
		return result, err
	}
	if exportPath == "" {
		result.Stage = "export"
		result.Reason = ir.LastReason(h.History(), ir.TypeExportSkip)
		return result, nil
	}
	result.ExportPath = exportPath
	slog.Debug("export written", "path", exportPath)

	return result, nil
}

// loadConfig resolves the effective config from flags.
func loadConfig(rootOpts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if rootOpts.Workspace != "" {
		cfg.Workspace = rootOpts.Workspace
	}
	return cfg, nil
}
