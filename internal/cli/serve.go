package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"citizenship-adjudicator/internal/api"
	"citizenship-adjudicator/internal/common/config"
)

var listenAddress string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job API with health and metrics endpoints",
	Long: `Serve starts the HTTP API:
  POST /jobs              submit a case list (JSON array or {"cases": [...]})
  GET  /jobs              list jobs, newest first
  GET  /jobs/{id}         job status with the latest log lines
  POST /jobs/{id}/stop    stop a job after the case in flight
  GET  /health, /ready    liveness and backend readiness
  GET  /metrics           Prometheus metrics

On SIGINT or SIGTERM the server stops accepting requests and running jobs are
stopped before exit.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddress, "addr", "", "listen address (overrides server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddress != "" {
		cfg.Server.Address = listenAddress
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.NewServer(a.orch, a.ready, a.log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if err := a.orch.Shutdown(ctx); err != nil {
		a.zapLog.Error("Jobs did not stop before the shutdown timeout", zap.Error(err))
		return err
	}

	a.zapLog.Info("Adjudicator stopped gracefully")
	return nil
}
