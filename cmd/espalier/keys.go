package main

import (
	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys [node]",
	Short: "List the configuration keys a node reads",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		keys, err := s.engine.Keys(cmd.Context(), nodeArg(args), config.Empty())
		if err != nil {
			return err
		}
		return printResult(cmd, keys)
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain [node]",
	Short: "Report the keys a node would need",
	Long:  `Reports the keys the node would read, including ones missing from the configuration, or why they cannot be determined yet.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.engine.Explain(cmd.Context(), nodeArg(args), config.Empty())
		if err != nil {
			return err
		}
		return printResult(cmd, cli.ViewExplanation(e))
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the nodes declared by the graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()
		return printResult(cmd, s.engine.Graph().Names())
	},
}

func init() {
	rootCmd.AddCommand(keysCmd, explainCmd, nodesCmd)
}
