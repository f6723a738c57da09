package batchrun

// Defaults used when the Config leaves a field unset.
const (
	DefaultTopN          = 10
	PercentageMultiplier = 100
)

// File permission constants.
const (
	logFilePermission   = 0600
	exportPermission    = 0640
	directoryPermission = 0750
)
