package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WorkflowTriggerLog records one external trigger delivery for a run.
// Deletion and counting of trigger logs is owned by the trigger-log
// repository, not by the run cascade engine.
type WorkflowTriggerLog struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	TenantID      string         `gorm:"type:uuid;index;not null"`
	AppID         string         `gorm:"type:uuid;not null"`
	WorkflowID    string         `gorm:"type:uuid;not null"`
	WorkflowRunID string         `gorm:"type:uuid;index;not null"`
	Source        string         `gorm:"type:varchar(50)"`
	Payload       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

func (WorkflowTriggerLog) TableName() string {
	return "workflow_trigger_logs"
}

type WorkflowAppLog struct {
	ID            string      `gorm:"type:uuid;primaryKey"`
	TenantID      string      `gorm:"type:uuid;index;not null"`
	AppID         string      `gorm:"type:uuid;index;not null"`
	WorkflowID    string      `gorm:"type:uuid;not null"`
	WorkflowRunID string      `gorm:"type:uuid;index;not null"`
	CreatedFrom   string      `gorm:"type:varchar(50)"`
	CreatedByRole CreatorRole `gorm:"type:varchar(20)"`
	CreatedBy     string      `gorm:"type:uuid"`
	CreatedAt     time.Time
}

func (WorkflowAppLog) TableName() string {
	return "workflow_app_logs"
}

func NewWorkflowAppLog(run *WorkflowRun, createdFrom string) *WorkflowAppLog {
	return &WorkflowAppLog{
		ID:            uuid.NewString(),
		TenantID:      run.TenantID,
		AppID:         run.AppID,
		WorkflowID:    run.WorkflowID,
		WorkflowRunID: run.ID,
		CreatedFrom:   createdFrom,
		CreatedByRole: run.CreatedByRole,
		CreatedBy:     run.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}
}

// WorkflowArchiveLog is the manifest marking that a run's full relational
// row-set has been serialized to cold storage. Its presence is the sole
// eligibility condition for hot-path deletion by the retention engine, so
// it carries the denormalized run columns callers still need afterwards.
type WorkflowArchiveLog struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	TenantID      string `gorm:"type:uuid;index;not null"`
	AppID         string `gorm:"type:uuid;index;not null"`
	WorkflowID    string `gorm:"type:uuid;not null"`
	WorkflowRunID string `gorm:"type:uuid;uniqueIndex;not null"`

	CreatedByRole CreatorRole `gorm:"type:varchar(20)"`
	CreatedBy     string      `gorm:"type:uuid"`

	RunVersion         string            `gorm:"type:varchar(50)"`
	RunStatus          WorkflowRunStatus `gorm:"type:varchar(20)"`
	RunTriggeredFrom   string            `gorm:"type:varchar(50)"`
	RunError           string            `gorm:"type:text"`
	RunElapsedTime     float64           `gorm:"default:0"`
	RunTotalTokens     int64             `gorm:"default:0"`
	RunTotalSteps      int               `gorm:"default:0"`
	RunCreatedAt       time.Time
	RunFinishedAt      *time.Time
	RunExceptionsCount int `gorm:"default:0"`

	CreatedAt time.Time
}

func (WorkflowArchiveLog) TableName() string {
	return "workflow_archive_logs"
}

func NewWorkflowArchiveLog(run *WorkflowRun) *WorkflowArchiveLog {
	return &WorkflowArchiveLog{
		ID:                 uuid.NewString(),
		TenantID:           run.TenantID,
		AppID:              run.AppID,
		WorkflowID:         run.WorkflowID,
		WorkflowRunID:      run.ID,
		CreatedByRole:      run.CreatedByRole,
		CreatedBy:          run.CreatedBy,
		RunVersion:         run.Version,
		RunStatus:          run.Status,
		RunTriggeredFrom:   run.TriggeredFrom,
		RunError:           run.Error,
		RunElapsedTime:     run.ElapsedTime,
		RunTotalTokens:     run.TotalTokens,
		RunTotalSteps:      run.TotalSteps,
		RunCreatedAt:       run.CreatedAt,
		RunFinishedAt:      run.FinishedAt,
		RunExceptionsCount: run.ExceptionsCount,
		CreatedAt:          time.Now().UTC(),
	}
}
