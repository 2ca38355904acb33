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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/httpapi"
	"github.com/lexiqai/transcript-gateway/internal/jobs"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/resilience"
	"github.com/lexiqai/transcript-gateway/internal/stt"
	"github.com/lexiqai/transcript-gateway/internal/transcription"
)

const janitorInterval = time.Minute

// circuitReporter is implemented by remote clients guarded by a circuit breaker.
type circuitReporter interface {
	CircuitState() resilience.CircuitState
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Provider).Msg("Invalid configuration")
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("provider", cfg.Provider).
		Str("model", stt.ModelFor(cfg)).
		Int64("segment_max_bytes", cfg.SegmentMaxBytes).
		Int("concurrency_limit", cfg.ConcurrencyLimit).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Transcript Gateway starting")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := stt.NewClient(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create transcription client")
	}

	orchestrator, err := transcription.New(client, transcription.OptionsFromConfig(cfg)...)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create orchestrator")
	}

	manager := jobs.NewManager(orchestrator,
		jobs.WithRetention(cfg.JobRetentionDuration()),
		jobs.WithLogger(logger),
	)
	go manager.RunJanitor(rootCtx, janitorInterval)

	// Create HTTP server
	mux := http.NewServeMux()
	mux.Handle("/api/", httpapi.New(manager, httpapi.Options{
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	}))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness: the provider circuit must not be open and uploads must be writable
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		client.Name(): func(ctx context.Context) (bool, error) {
			if reporter, ok := client.(circuitReporter); ok {
				if state := reporter.CircuitState(); state == resilience.StateOpen {
					return false, fmt.Errorf("circuit breaker is %s", state)
				}
			}
			return true, nil
		},
		"upload_dir": func(ctx context.Context) (bool, error) {
			dir := cfg.UploadDir
			if dir == "" {
				dir = os.TempDir()
			}
			info, err := os.Stat(dir)
			if err != nil {
				return false, err
			}
			if !info.IsDir() {
				return false, fmt.Errorf("%s is not a directory", dir)
			}
			return true, nil
		},
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Uploads and websocket event streams are long-lived, so only headers are bounded.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/api/transcriptions", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-rootCtx.Done()
	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := manager.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Running jobs did not stop in time")
	}

	logger.Info().Msg("Server exited gracefully")
}
