package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/stackroute/scenario"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario>",
		Short: "Check a scenario file without running it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			if err := s.Validate(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "valid scenario %s\n", s)

			return nil
		},
	}
}
