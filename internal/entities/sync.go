package entities

import "time"

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncRun records one full multi-source sync.
type SyncRun struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Status      SyncStatus `gorm:"size:20;index" json:"status"`
	Categories  int        `json:"categories"`
	Fetched     int        `json:"fetched"`
	Saved       int        `json:"saved"`
	Created     int        `json:"created"`
	Failed      int        `json:"failed"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `gorm:"index" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

// Duration returns how long the run took, or 0 while it is still running.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
