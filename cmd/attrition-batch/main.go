package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/attrition/internal/batchrun"
)

// Default configuration constants.
const (
	defaultEpochs     = 50
	defaultRunTimeout = 30 * time.Minute
)

func main() {
	var (
		dataFile   = flag.String("data", "", "CSV file with employee records")
		epochs     = flag.Int("epochs", defaultEpochs, "Training epochs, 0 scores with the rule scorer only")
		topN       = flag.Int("top", batchrun.DefaultTopN, "Number of ranked employees to print")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of scoring workers")
		outputFile = flag.String("out", "", "High-risk export (default: high_risk_TIMESTAMP.csv)")
		logFile    = flag.String("log", "", "Log file for run output (default: attrition_batch_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose output")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *dataFile == "" {
		batchrun.ShowHelp()
		return
	}

	closeLog, err := batchrun.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := &batchrun.Config{
		DataFile:   *dataFile,
		Epochs:     *epochs,
		TopN:       *topN,
		Workers:    *workers,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if _, err := batchrun.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Batch run failed: " + err.Error() + "\n")
		stop()
		cancel()
		_ = closeLog()
		os.Exit(1)
	}
}
