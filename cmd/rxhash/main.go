package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Giulio2002/randomx"
	"github.com/Giulio2002/randomx/cmd/rxhash/commands"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &commands.Config{}
	var (
		configFile string
		debug      bool
		overrides  commands.Overrides
	)

	rootCmd := &cobra.Command{
		Use:   "rxhash",
		Short: "Compute proof-of-work hashes with the randomx engine",
		Long: `rxhash allocates an engine cache (and optionally a dataset) for a key
and hashes inputs with it. Settings come from an optional YAML profile and
are overridden by command-line flags.`,
		Version:       fmt.Sprintf("%s (engine: %s)", version, randomx.EngineName()),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := commands.LoadConfig(configFile, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			*cfg = *loaded
			overrides.Apply(cmd.Flags(), cfg)

			logger, err := commands.NewLogger(debug)
			if err != nil {
				return err
			}
			cfg.Logger = logger
			randomx.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cfg.Logger != nil {
				_ = cfg.Logger.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "rxhash.yaml", "Profile file path")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	overrides.Register(pf)

	rootCmd.AddCommand(commands.NewFlagsCommand(cfg))
	rootCmd.AddCommand(commands.NewHashCommand(cfg))
	rootCmd.AddCommand(commands.NewBenchCommand(cfg))
	return rootCmd
}
