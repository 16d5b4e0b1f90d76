package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/rules/internal/runtime"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/loader"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Evaluate rule files",
	Long: `Loads every file as an expression tree and evaluates them concurrently,
each against its own execution state seeded with the --var values.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags, _ := cmd.Flags().GetStringArray("var")
		asJSON, _ := cmd.Flags().GetBool("json")
		vars, err := parseVars(flags)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, closeStore, err := openStore(ctx, cli.cfg, cli.logger)
		if err != nil {
			return err
		}
		defer closeStore()

		ev := runtime.NewEvaluator(runtime.WithLogger(cli.logger), runtime.WithSaver(store))
		results, err := runFiles(ctx, ev, args, vars)
		if err != nil {
			return err
		}
		return printResults(cmd.OutOrStdout(), results, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArray("var", nil, "Input variable as name=type:value (repeatable)")
	runCmd.Flags().Bool("json", false, "Print results as JSON")
}

type fileResult struct {
	File string `json:"file"`
	*runtime.Result
}

// runFiles evaluates every file concurrently. The first failure cancels the
// evaluations still running.
func runFiles(ctx context.Context, ev *runtime.Evaluator, files []string, vars []domain.Variable) ([]fileResult, error) {
	reg, err := newRegistry(cli.logger)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			tree, err := loader.LoadFile(reg, file)
			if err != nil {
				return err
			}
			res, err := ev.Run(gctx, tree, vars...)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = fileResult{File: file, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printResults(w io.Writer, results []fileResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		verdict := "not passed"
		if r.Outcome.Passed {
			verdict = "passed"
		}
		fmt.Fprintf(w, "%s: %s (%s, %s)\n", r.File, verdict, r.ExecutionID, r.Duration)

		names := make([]string, 0, len(r.Variables))
		for name := range r.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := r.Variables[name]
			fmt.Fprintf(w, "  %s (%s) = %v\n", name, v.TypeName(), v.Value)
		}
	}
	return nil
}
