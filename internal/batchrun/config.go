package batchrun

import "time"

// Config holds configuration for an offline scoring run.
type Config struct {
	DataFile   string // CSV file with employee records
	Epochs     int    // Training passes; 0 skips training and scores with the rules
	TopN       int    // Number of ranked employees to print
	Workers    int    // Scoring workers
	OutputFile string // High-risk CSV export
	LogFile    string // Log file for run output
	Verbose    bool   // Print score statistics and every exported employee
}

// Stats holds run statistics.
type Stats struct {
	Rows          int
	Loaded        int
	Trainable     int
	Skipped       int
	Duplicates    int
	ModelVersion  string
	ValAccuracy   float64
	Scored        int
	Failed        int
	ModelRuns     int
	RuleRuns      int
	HighRisk      int
	Exported      int
	ExportFile    string
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	TrainDuration time.Duration
}
