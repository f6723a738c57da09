package batchrun

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/attrition/pkg/logger"
)

// SetupLogging sends structured and plain logs to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (func() error, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "attrition_batch_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	if err := logger.InitWithWriter(multiWriter, false); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file.Close, nil
}

// ShowHelp prints usage information for the batch tool.
func ShowHelp() {
	os.Stdout.WriteString(`Attrition Batch Scorer
======================

Loads an HR dataset, trains the attrition classifier, scores every employee
and writes the high-risk employees to CSV.

Usage:
  go run ./cmd/attrition-batch -data employees.csv [options]

Options:
  -data string
        CSV file with employee records (required)
  -epochs int
        Training epochs, 0 scores with the rule scorer only (default 50)
  -top int
        Number of ranked employees to print (default 10)
  -workers int
        Number of scoring workers (default CPU cores)
  -out string
        High-risk export (default: high_risk_TIMESTAMP.csv)
  -log string
        Log file for run output (default: attrition_batch_TIMESTAMP.log)
  -verbose
        Print score statistics and every exported employee
  -help
        Show this help message

Examples:
  # Train and score with defaults
  go run ./cmd/attrition-batch -data HR-Employee-Attrition.csv

  # Rule scoring only, custom export
  go run ./cmd/attrition-batch -data hr.csv -epochs 0 -out reports/high_risk.csv
`)
}
