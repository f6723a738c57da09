package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/attrition/internal/adapters/http/api"
	"github.com/okian/attrition/internal/adapters/http/swagger"
	"github.com/okian/attrition/internal/adapters/resilience"
	"github.com/okian/attrition/internal/adapters/storage"
	app "github.com/okian/attrition/internal/app"
	"github.com/okian/attrition/internal/config"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/pkg/logger"
	"github.com/okian/attrition/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svcOpts := serviceOptions(cfg, loggerInstance)
	if cfg.ModelDBPath != "" {
		reg, err := storage.Open(ctx, cfg.ModelDBPath)
		if err != nil {
			loggerInstance.Error(ctx, "failed to open model registry", logger.String("path", cfg.ModelDBPath), logger.Error(err))
			return
		}
		defer func() {
			if err := reg.Close(); err != nil {
				loggerInstance.Warn(ctx, "closing model registry", logger.Error(err))
			}
		}()
		svcOpts = append(svcOpts, app.WithRegistry(reg))
	}

	svc := app.New(svcOpts...)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, apiOptions(cfg, loggerInstance)...).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	loggerInstance.Info(ctx, "server stopped")
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, l logger.Logger) []app.Option {
	train := classifier.DefaultConfig()
	train.Epochs = cfg.Epochs
	train.BatchSize = cfg.BatchSize
	train.ValidationSplit = cfg.ValidationSplit
	train.HiddenLayers = append([]int(nil), cfg.HiddenLayers...)
	train.LearningRate = cfg.LearningRate
	train.Threshold = cfg.RiskThreshold
	train.Seed = cfg.Seed

	breaker := resilience.New(
		resilience.WithMaxFailures(cfg.BreakerMaxFailures),
		resilience.WithTimeout(time.Duration(cfg.BreakerTimeoutSec)*time.Second),
		resilience.WithLogger(l.Named("breaker")),
	)

	return []app.Option{
		app.WithLogger(l.Named("service")),
		app.WithTrainingConfig(train),
		app.WithNoiseStd(cfg.NoiseStd),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithBreaker(breaker),
	}
}

// apiOptions maps configuration onto API server options.
func apiOptions(cfg *config.Config, l logger.Logger) []api.Option {
	return []api.Option{
		api.WithLogger(l.Named("api")),
		api.WithMaxRankingLimit(cfg.MaxRankingLimit),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithPredictRateLimit(cfg.PredictRatePerSec, cfg.PredictBurst),
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics refreshes the gauges GetStats maintains.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if ranked, ok := stats["rankedCount"].(int); ok {
		metrics.UpdateRankedEmployees(ranked)
	}
	if records, ok := stats["datasetRecords"].(int); ok {
		trainable, _ := stats["trainableRecords"].(int)
		metrics.UpdateDatasetSize(records, trainable)
	}
}
