package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/rules/internal/config"
	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/plugins"
	"github.com/spf13/cobra"
)

// app holds what every subcommand shares once the root pre-run has loaded it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

var cli app

var rootCmd = &cobra.Command{
	Use:           "rules",
	Short:         "Rules evaluates composable expression trees",
	Long:          `Rules loads condition and action trees from YAML or JSON and evaluates them against typed variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cli.cfg = cfg
		cli.logger = logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides RULES_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json, auto); overrides RULES_LOG_FORMAT")
	rootCmd.PersistentFlags().String("store", "", "Auto-save store (none, memory, redis, sqlite); overrides RULES_STORE")
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("store") {
		store, _ := flags.GetString("store")
		cfg.Store = strings.ToLower(store)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRegistry returns a registry holding the composites and built-in plugins.
func newRegistry(logger *slog.Logger) (*expression.Registry, error) {
	reg := expression.NewRegistry(expression.WithRegistryLogger(logger))
	if err := plugins.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
