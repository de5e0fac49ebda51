package main

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [node]",
	Short: "Check that a node can be evaluated",
	Long:  `Checks that every key the node needs is present and allowed, without running any function.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.engine.Validate(cmd.Context(), nodeArg(args), config.Empty()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
