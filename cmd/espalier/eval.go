package main

import (
	"github.com/aretw0/espalier/pkg/config"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval [node]",
	Short: "Evaluate a node",
	Long:  `Evaluates the named node, or the graph root, against the configuration and prints its value.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.engine.Evaluate(cmd.Context(), nodeArg(args), config.Empty())
		if err != nil {
			return err
		}
		return printResult(cmd, v)
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
