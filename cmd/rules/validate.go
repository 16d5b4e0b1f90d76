package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/rules/internal/runtime"
	"github.com/aretw0/rules/internal/validator"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/loader"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check rule files without evaluating them",
	Long: `Loads every file, refines its context definitions against the --var
values and prints the resolved definitions of each node.

Inputs that no --var and no earlier node provides are reported as warnings;
with --strict they fail the command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags, _ := cmd.Flags().GetStringArray("var")
		vars, err := parseVars(flags)
		if err != nil {
			return err
		}
		reg, err := newRegistry(cli.logger)
		if err != nil {
			return err
		}

		strict, _ := cmd.Flags().GetBool("strict")
		var errs []error
		for _, file := range args {
			if err := validateFile(cmd.OutOrStdout(), reg, file, vars, strict); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All rules are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringArray("var", nil, "Available variable as name=type:value (repeatable)")
	validateCmd.Flags().Bool("strict", false, "Fail on unresolved inputs and type conflicts")
}

func validateFile(w io.Writer, reg *expression.Registry, file string, vars []domain.Variable, strict bool) error {
	tree, err := loader.LoadFile(reg, file)
	if err != nil {
		fmt.Fprintf(w, "%s: ❌ %v\n", file, err)
		return err
	}
	available := runtime.Available(vars)
	tree.RefineContextDefinitions(available)

	fmt.Fprintf(w, "%s (%s)\n", file, tree.ConfigEntityID())
	expression.Walk(tree, func(e expression.Expression, depth int) bool {
		indent := strings.Repeat("  ", depth+1)
		fmt.Fprintf(w, "%s%s [%s]\n", indent, e.Label(), e.PluginID())
		printDefinitions(w, indent+"  ", "<-", e.ContextDefinitions(), e)
		printDefinitions(w, indent+"  ", "->", e.ProvidedDefinitions(), e)
		return true
	})

	issues := validator.ValidateTree(tree, available)
	for _, issue := range issues {
		fmt.Fprintf(w, "  ⚠️  %s\n", issue)
	}
	if strict && len(issues) > 0 {
		fmt.Fprintf(w, "%s: ❌ %d unresolved inputs\n", file, len(issues))
		return fmt.Errorf("%s: %w", file, validator.Validate(tree, available))
	}
	return nil
}

func printDefinitions(w io.Writer, indent, arrow string, defs map[string]*domain.ContextDefinition, e expression.Expression) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	mapper, _ := e.(interface {
		ContextVariableName(string) string
		ProvidedVariableName(string) string
	})
	for _, name := range names {
		def := defs[name]
		variable := name
		if mapper != nil {
			if arrow == "<-" {
				variable = mapper.ContextVariableName(name)
			} else {
				variable = mapper.ProvidedVariableName(name)
			}
		}
		required := ""
		if def.Required() {
			required = ", required"
		}
		fmt.Fprintf(w, "%s%s %s %s (%s%s)\n", indent, name, arrow, variable, def.DataType().Name(), required)
	}
}
