package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Giulio2002/randomx"
)

func NewFlagsCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "flags",
		Short: "Show the engine and its recommended flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := cfg.EngineFlags()
			if err != nil {
				return err
			}
			rec := randomx.RecommendedFlags()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "engine:      %s\n", randomx.EngineName())
			fmt.Fprintf(out, "recommended: %s (%#x)\n", rec, uint32(rec))
			fmt.Fprintf(out, "selected:    %s (%#x)\n", selected, uint32(selected))
			return nil
		},
	}
}
