package model

import "time"

// ScoreJob asks a batch worker to assess one employee.
type ScoreJob struct {
	BatchID    string
	Record     EmployeeRecord
	EnqueuedAt time.Time
}
