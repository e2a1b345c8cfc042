package database

import (
	"time"

	"gorm.io/gorm"
)

// Run triggers
const (
	TriggerManual   = "manual"
	TriggerAuto     = "auto"
	TriggerSelected = "selected"
	TriggerMessage  = "message"
)

// Run outcomes
const (
	RunStarted   = "started"
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunHalted    = "halted"
	RunEmpty     = "empty"
)

// SyncRun records one sync attempt. It holds run metadata only; case data
// stays with the backend.
type SyncRun struct {
	gorm.Model
	RunID         string     `json:"run_id" gorm:"uniqueIndex;size:36"`
	Generation    uint64     `json:"generation"`
	Trigger       string     `json:"trigger" gorm:"size:16"`
	AdvocateName  string     `json:"advocate_name"`
	PageURL       string     `json:"page_url"`
	CaseCount     int        `json:"case_count"`
	EnrichedCount int        `json:"enriched_count"`
	Status        string     `json:"status" gorm:"size:16"`
	ErrorMessage  string     `json:"error_message"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
