package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowRunStatus string

const (
	WorkflowRunRunning          WorkflowRunStatus = "RUNNING"
	WorkflowRunPaused           WorkflowRunStatus = "PAUSED"
	WorkflowRunSucceeded        WorkflowRunStatus = "SUCCEEDED"
	WorkflowRunFailed           WorkflowRunStatus = "FAILED"
	WorkflowRunStopped          WorkflowRunStatus = "STOPPED"
	WorkflowRunPartialSucceeded WorkflowRunStatus = "PARTIAL_SUCCEEDED"
)

// TerminalRunStatuses are the statuses the execution engine never leaves.
// Only runs in one of these states are eligible for retention.
var TerminalRunStatuses = []WorkflowRunStatus{
	WorkflowRunSucceeded,
	WorkflowRunFailed,
	WorkflowRunStopped,
	WorkflowRunPartialSucceeded,
}

func (s WorkflowRunStatus) IsTerminal() bool {
	switch s {
	case WorkflowRunSucceeded, WorkflowRunFailed, WorkflowRunStopped, WorkflowRunPartialSucceeded:
		return true
	}
	return false
}

// Pausable reports whether a pause may be taken in this status.
// Re-pausing an already-paused run is allowed (stacked pause reasons).
func (s WorkflowRunStatus) Pausable() bool {
	return s == WorkflowRunRunning || s == WorkflowRunPaused
}

type CreatorRole string

const (
	CreatorRoleAccount CreatorRole = "account"
	CreatorRoleEndUser CreatorRole = "end_user"
)

type WorkflowRun struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	TenantID      string `gorm:"type:uuid;index;not null"`
	AppID         string `gorm:"type:uuid;index;not null"`
	WorkflowID    string `gorm:"type:uuid;index;not null"`
	Type          string `gorm:"type:varchar(50);not null"`
	TriggeredFrom string `gorm:"type:varchar(50);not null"`
	Version       string `gorm:"type:varchar(50)"`

	Graph   datatypes.JSON `gorm:"type:jsonb"`
	Inputs  datatypes.JSON `gorm:"type:jsonb"`
	Outputs datatypes.JSON `gorm:"type:jsonb"`

	Status WorkflowRunStatus `gorm:"type:varchar(20);index;default:'RUNNING'"`
	Error  string            `gorm:"type:text"`

	ElapsedTime     float64 `gorm:"default:0"`
	TotalTokens     int64   `gorm:"default:0"`
	TotalSteps      int     `gorm:"default:0"`
	ExceptionsCount int     `gorm:"default:0"`

	CreatedByRole CreatorRole `gorm:"type:varchar(20);not null"`
	CreatedBy     string      `gorm:"type:uuid;not null"`
	CreatedAt     time.Time   `gorm:"index"`
	FinishedAt    *time.Time
}

func (WorkflowRun) TableName() string {
	return "workflow_runs"
}

// --- FACTORY ---
func NewWorkflowRun(tenantID, appID, workflowID, createdBy string, role CreatorRole) *WorkflowRun {
	return &WorkflowRun{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		AppID:         appID,
		WorkflowID:    workflowID,
		Type:          "workflow",
		TriggeredFrom: "app-run",
		Graph:         datatypes.JSON([]byte("{}")),
		Inputs:        datatypes.JSON([]byte("{}")),
		Status:        WorkflowRunRunning,
		CreatedByRole: role,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now().UTC(),
	}
}
