package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the registered plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry(cli.logger)
		if err != nil {
			return err
		}
		defs := reg.Definitions()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(defs)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tLABEL\tDESCRIPTION")
		for _, def := range defs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.ID, def.Kind, def.Label, def.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.Flags().Bool("json", false, "Print definitions as JSON")
}
