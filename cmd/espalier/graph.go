package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [node]",
	Short: "Print the graph as a Mermaid flowchart",
	Long:  `Prints the declared nodes and their references. With --trace, evaluates the node (or root) and highlights the nodes the evaluation reached.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trace, _ := cmd.Flags().GetBool("trace")

		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		var overlay *graph.Overlay
		if trace {
			overlay, err = graph.Trace(cmd.Context(), s.engine.Graph(), nodeArg(args), s.engine.Config())
			if overlay == nil {
				return err
			}
			if err != nil {
				s.logger.Warn("traced evaluation failed", "node", overlay.Failed, "error", err)
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(s.engine.Graph(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("trace", false, "Highlight the nodes reached by evaluating under the configuration")
}
