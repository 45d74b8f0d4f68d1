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

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled analysis and expose /metrics",
	Long: `Starts the cron scheduler (when enabled) and an HTTP listener serving
Prometheus metrics, provider health and scheduler status.`,
	RunE: runServe,
}

var (
	servePort     int
	serveHost     string
	serveSchedule string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Server port (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Server host (overrides config)")
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", "Cron schedule (overrides config and enables the scheduler)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	schedule := cfg.Scheduler.Schedule
	enabled := cfg.Scheduler.Enabled
	if serveSchedule != "" {
		schedule, enabled = serveSchedule, true
	}
	if enabled {
		if err := application.Scheduler.Start(schedule); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", application.Metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, application.Gateway.Status())
	})
	mux.HandleFunc("/scheduler", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, application.Scheduler.Status())
	})
	mux.HandleFunc("/scheduler/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := application.Scheduler.RunNow(ctx); err != nil {
				logger.Warn().Err(err).Msg("Manual run failed")
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	})
	if application.AlertHub != nil {
		mux.Handle("/ws/alerts", application.AlertHub)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Bool("scheduler", enabled).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Server shutdown incomplete")
	}
	return application.Scheduler.Stop()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := jsonEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}
