package domain

import "time"

// RunStatus represents the lifecycle state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IngestionRun is the unit-of-work record for one pipeline execution.
// The terminal status is written exactly once; the counters reflect only
// operations attempted during that run.
type IngestionRun struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      *time.Time
	Status          RunStatus
	ItemsProcessed  int
	MispCreated     int
	OpenCTICreated  int
	VectorUpserted  int
	BundlesArchived int
	Error           string
}

// RunCounters carries the per-destination tallies written at run finalize.
type RunCounters struct {
	ItemsProcessed  int
	MispCreated     int
	OpenCTICreated  int
	VectorUpserted  int
	BundlesArchived int
}

// IsTerminal reports whether the status allows no further transitions.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

func isValidRunStatus(s RunStatus) bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// ValidateRunStatus checks a status value read from storage.
func ValidateRunStatus(s RunStatus) error {
	if !isValidRunStatus(s) {
		return ErrInvalidRunStatus
	}
	return nil
}
