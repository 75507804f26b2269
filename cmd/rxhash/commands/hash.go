package commands

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func NewHashCommand(cfg *Config) *cobra.Command {
	var (
		numeric  bool
		hexInput bool
	)

	cmd := &cobra.Command{
		Use:   "hash [inputs...]",
		Short: "Hash inputs with the configured key",
		Long: `Hash one or more inputs. Several inputs are hashed through the
pipelined protocol.

Examples:
  rxhash hash --key Key Input
  rxhash hash --key Key --fast "Input" "Input 2" "Input 3"
  rxhash hash --hex 00ff --numeric`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inputs := make([][]byte, len(args))
			for i, a := range args {
				if !hexInput {
					inputs[i] = []byte(a)
					continue
				}
				if inputs[i], err = hex.DecodeString(a); err != nil {
					return fmt.Errorf("input %d: %w", i, err)
				}
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close()) }()

			hashes, err := s.vm.HashBatch(inputs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, h := range hashes {
				if numeric {
					fmt.Fprintf(out, "%d  %s\n", h.Numeric(), args[i])
				} else {
					fmt.Fprintf(out, "%s  %s\n", h, args[i])
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&numeric, "numeric", false, "Print the 64-bit numeric form")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "Inputs are hex encoded")
	return cmd
}
