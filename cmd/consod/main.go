package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/config"
	"github.com/bafodej/Consomation-electricite-france/internal/logging"
	"github.com/bafodej/Consomation-electricite-france/internal/pipeline"
	"github.com/bafodej/Consomation-electricite-france/internal/prices"
	"github.com/bafodej/Consomation-electricite-france/internal/store"
	"github.com/bafodej/Consomation-electricite-france/internal/weather"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func main() {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "consod",
		Short: "Scheduled pipeline runs with health, status and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			godotenv.Load()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cfg config.Config) error {
	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	driver, dsn := cfg.DSN()
	if driver == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
		}
	}
	st, err := store.Open(driver, dsn, store.WithLocation(loc), store.WithDataDir(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	wc := weather.NewClient(cfg.Latitude, cfg.Longitude, loc)
	ps := prices.NewSimulatedScraper(cfg.PriceSeed)
	runner := pipeline.NewRunner(st, wc, ps, cfg, loc, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router(st, runner),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("daemon listening", "addr", cfg.ListenAddr, "interval", cfg.Interval.String())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go schedule(ctx, runner, cfg.Interval, log)

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// schedule runs the full pipeline immediately and then at every
// interval tick until the context is cancelled. A failed run is
// logged and the schedule keeps going.
func schedule(ctx context.Context, runner *pipeline.Runner, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	run := func() {
		start := time.Now()
		if err := runner.Run(ctx); err != nil {
			log.Error("pipeline run failed", "error", err)
			return
		}
		log.Info("pipeline run completed", "duration", time.Since(start).String())
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func router(st *store.Store, runner *pipeline.Runner) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := st.Ping(req.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		last := runner.LastRun()
		if last == nil {
			respondJSON(w, http.StatusOK, map[string]string{"status": "never_run"})
			return
		}
		respondJSON(w, http.StatusOK, last)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
