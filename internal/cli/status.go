package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/crystal"
	"github.com/roach88/prism/internal/packet"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace index heads",
		Long: `Inspect the crystal and packet indexes of a workspace and print
their heads. Missing or malformed indexes read as empty; this command
never mutates the workspace.

Example:
  prism status --workspace ./storage --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}

			cix, cDropped := crystal.LoadIndex(filepath.Join(cfg.Workspace, cfg.CrystalsDir, "index.json"))
			pix, pDropped := packet.LoadIndex(filepath.Join(cfg.Workspace, cfg.PacketsDir, "index.json"))

			status := map[string]any{
				"workspace": cfg.Workspace,
				"crystals": map[string]any{
					"version":          cix.Version,
					"next_index":       cix.NextIndex,
					"last_event_index": cix.LastEventIndex,
					"count":            len(cix.Crystals),
					"dropped_entries":  cDropped,
				},
				"packets": map[string]any{
					"version":         pix.Version,
					"next_index":      pix.NextIndex,
					"count":           len(pix.Packets),
					"dropped_entries": pDropped,
				},
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(status)
		},
	}
	return cmd
}
