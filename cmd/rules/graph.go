package main

import (
	"fmt"

	"github.com/aretw0/rules/internal/presentation/graph"
	"github.com/aretw0/rules/internal/runtime"
	"github.com/aretw0/rules/pkg/loader"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph FILE",
	Short: "Export the expression tree visualization",
	Long: `Loads a rule file and outputs a Mermaid diagram (graph TD) of its tree.
With --run the tree is evaluated first and node statuses are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry(cli.logger)
		if err != nil {
			return err
		}
		tree, err := loader.LoadFile(reg, args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if run, _ := cmd.Flags().GetBool("run"); run {
			flags, _ := cmd.Flags().GetStringArray("var")
			vars, err := parseVars(flags)
			if err != nil {
				return err
			}
			res, err := runtime.NewEvaluator(runtime.WithLogger(cli.logger)).Run(cmd.Context(), tree, vars...)
			if err != nil {
				return err
			}
			overlay = &graph.GraphOverlay{Statuses: res.Statuses}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(tree, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("run", false, "Evaluate the tree and highlight node statuses")
	graphCmd.Flags().StringArray("var", nil, "Input variable for --run as name=type:value (repeatable)")
}
