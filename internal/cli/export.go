package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/packet"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var budget int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the latest packet to markdown",
		Long: `Load the most recently written packet from the packet index and
render it to a markdown export.

Example:
  prism export --workspace ./storage`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			indexRel := engine.JoinRel(cfg.PacketsDir, "index.json")
			pkt := packet.LoadLatest(cfg.Workspace, indexRel)
			if pkt == nil {
				return out.Skip("export", ir.ReasonInvalidPacket)
			}

			e := engine.New(cfg.Workspace, engine.WithBudget(budget))
			exportPath, err := packet.ExportMarkdown(e, pkt, packet.ExportOptions{Dir: cfg.ExportsDir})
			if err != nil {
				return WrapExitError(ExitCommandError, "export failed", err)
			}
			if exportPath == "" {
				return out.Skip("export", ir.LastReason(e.History(), ir.TypeExportSkip))
			}
			return out.Success(exportPath)
		},
	}

	cmd.Flags().IntVar(&budget, "budget", 1, "session budget for the export")
	return cmd
}
