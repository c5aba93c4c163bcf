package job

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the tracking record of one queued indexing job
type Job struct {
	ID          int64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Kind        string         `gorm:"not null;index" json:"kind"`
	WorkspaceID string         `gorm:"not null;index" json:"workspace_id"`
	Payload     datatypes.JSON `gorm:"not null" json:"payload"`
	Status      JobStatus      `gorm:"not null;index" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	Error       *string        `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Job) TableName() string {
	return "ai_jobs"
}

// JobRepository defines the interface for job persistence
type JobRepository interface {
	Create(ctx context.Context, kind, workspaceID string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	// UpdateStatus moves a job to status. Moving to running counts an attempt.
	UpdateStatus(ctx context.Context, id int64, status JobStatus, err *string) error
	CountByStatus(ctx context.Context) (map[JobStatus]int64, error)
}
