package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/rules/internal/metrics"
	"github.com/aretw0/rules/internal/runtime"
	rulehttp "github.com/aretw0/rules/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves the plugin catalogue, form descriptions and rule evaluation as a JSON API, with Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cli.cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := openStore(ctx, cli.cfg, cli.logger)
		if err != nil {
			return err
		}
		defer closeStore()

		reg, err := newRegistry(cli.logger)
		if err != nil {
			return err
		}
		collector := metrics.NewCollector()
		ev := runtime.NewEvaluator(
			runtime.WithLogger(cli.logger),
			runtime.WithSaver(store),
			runtime.WithHooks(collector.Hooks()),
		)

		srv := &http.Server{
			Addr: addr,
			Handler: rulehttp.NewHandler(reg, ev,
				rulehttp.WithMetrics(collector),
				rulehttp.WithLogger(cli.logger),
				rulehttp.WithVersion(Version),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			cli.logger.Info("server listening", "addr", srv.Addr, "store", cli.cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server: %w", err)

		case <-ctx.Done():
			cli.logger.Info("shutdown started")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				cli.logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			cli.logger.Info("server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on; overrides RULES_HTTP_ADDR")
}
