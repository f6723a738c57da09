package batchrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	service "github.com/okian/attrition/internal/app"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/pkg/logger"
)

// ErrNoData is returned when Config.DataFile is empty.
var ErrNoData = errors.New("no data file")

// Run loads, trains, scores and exports in one pass.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.DataFile == "" {
		return nil, ErrNoData
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("batch")

	log.Info(ctx, "starting attrition batch run",
		logger.String("data", config.DataFile),
		logger.Int("epochs", config.Epochs),
		logger.Int("workers", config.Workers),
		logger.Int("topN", config.TopN),
		logger.Bool("verbose", config.Verbose))

	svc := service.New(serviceOptions(config, log)...)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	// Step 1: Load dataset
	if err := loadDataset(ctx, svc, config.DataFile, stats); err != nil {
		return nil, err
	}

	// Step 2: Train, or fall back to rule scoring
	if config.Epochs > 0 {
		trainStart := time.Now()
		m, err := svc.Train(ctx)
		stats.TrainDuration = time.Since(trainStart)
		switch {
		case err == nil:
			stats.ModelVersion = m.Version
			if n := len(m.History); n > 0 {
				stats.ValAccuracy = m.History[n-1].ValAccuracy
			}
		case ctx.Err() != nil:
			return nil, fmt.Errorf("training: %w", err)
		default:
			log.Warn(ctx, "training failed; scoring with rules", logger.Error(err))
		}
	}

	// Step 3: Score every employee
	res, err := svc.ScoreDataset(ctx)
	stats.Scored = res.Scored
	stats.Failed = res.Failed
	stats.ModelRuns = res.ModelRuns
	stats.RuleRuns = res.RuleRuns
	stats.HighRisk = res.HighRisk
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}

	// Step 4: Verify and display the ranking
	topN := config.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	top, err := svc.TopN(ctx, topN)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	if err := verifyRanking(top); err != nil {
		return nil, fmt.Errorf("ranking verification: %w", err)
	}
	displayTop(top)
	if config.Verbose {
		displayScoreStats(top)
	}

	// Step 5: Export high-risk employees
	if err := exportHighRisk(ctx, svc, config, stats); err != nil {
		return nil, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "batch run completed")
	return stats, nil
}

func serviceOptions(config *Config, l logger.Logger) []service.Option {
	opts := []service.Option{service.WithLogger(l.Named("service"))}
	if config.Workers > 0 {
		opts = append(opts, service.WithWorkerCount(config.Workers))
	}
	if config.Epochs > 0 {
		train := classifier.DefaultConfig()
		train.Epochs = config.Epochs
		opts = append(opts, service.WithTrainingConfig(train))
	}
	return opts
}

func loadDataset(ctx context.Context, svc *service.Service, path string, stats *Stats) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close dataset", logger.Error(err))
		}
	}()

	report, err := svc.LoadDataset(ctx, f)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	stats.Rows = report.Rows
	stats.Loaded = report.Loaded
	stats.Trainable = report.Trainable
	stats.Skipped = report.Skipped
	stats.Duplicates = report.Duplicates
	return nil
}

// exportHighRisk writes the export only after it rendered completely.
func exportHighRisk(ctx context.Context, svc *service.Service, config *Config, stats *Stats) error {
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "high_risk_" + timestamp + ".csv"
	}

	var buf bytes.Buffer
	n, err := svc.ExportHighRisk(ctx, &buf)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, buf.Bytes(), exportPermission); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if config.Verbose {
		displayExport(buf.String())
	}

	stats.Exported = n
	stats.ExportFile = filename
	logger.Get().Info(ctx, "high-risk employees exported", logger.String("filename", filename), logger.Int("rows", n))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var scoredRate, perSecond float64
	if stats.Loaded > 0 {
		scoredRate = float64(stats.Scored) / float64(stats.Loaded) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Scored) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("rows", stats.Rows),
		logger.Int("loaded", stats.Loaded),
		logger.Int("trainable", stats.Trainable),
		logger.Int("skipped", stats.Skipped),
		logger.Int("duplicates", stats.Duplicates),
		logger.String("modelVersion", stats.ModelVersion),
		logger.Float64("valAccuracy", stats.ValAccuracy),
		logger.Int("scored", stats.Scored),
		logger.Int("failed", stats.Failed),
		logger.Int("modelRuns", stats.ModelRuns),
		logger.Int("ruleRuns", stats.RuleRuns),
		logger.Int("highRisk", stats.HighRisk),
		logger.Int("exported", stats.Exported),
		logger.Duration("training", stats.TrainDuration),
		logger.Duration("duration", stats.Duration),
		logger.Float64("scoredRate", scoredRate),
		logger.Float64("scoredPerSecond", perSecond))
}
