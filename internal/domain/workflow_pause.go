package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PauseReasonType string

const (
	PauseReasonScheduledPause     PauseReasonType = "scheduled_pause"
	PauseReasonHumanInputRequired PauseReasonType = "human_input_required"
)

// WorkflowPause is one durable checkpoint of a paused run. The execution
// state itself lives in the blob store under StateObjectKey; the row only
// carries the pointer. ResumedAt is null while the pause is active, and at
// most one active pause exists per run.
type WorkflowPause struct {
	ID             string     `gorm:"type:uuid;primaryKey"`
	WorkflowID     string     `gorm:"type:uuid;index;not null"`
	WorkflowRunID  string     `gorm:"type:uuid;index;not null"`
	StateObjectKey string     `gorm:"type:varchar(255);not null"`
	ResumedAt      *time.Time `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (WorkflowPause) TableName() string {
	return "workflow_pauses"
}

func NewWorkflowPause(workflowID, workflowRunID, stateObjectKey string) *WorkflowPause {
	return &WorkflowPause{
		ID:             uuid.NewString(),
		WorkflowID:     workflowID,
		WorkflowRunID:  workflowRunID,
		StateObjectKey: stateObjectKey,
		CreatedAt:      time.Now().UTC(),
	}
}

// WorkflowPauseReason records why a pause was taken. A pause may carry zero
// or more reasons; they are history owned by the pause and cascade with it.
type WorkflowPauseReason struct {
	ID      string          `gorm:"type:uuid;primaryKey"`
	PauseID string          `gorm:"type:uuid;index;not null"`
	Type    PauseReasonType `gorm:"type:varchar(50);not null"`
	FormID  string          `gorm:"type:uuid"`
	NodeID  string          `gorm:"type:varchar(255)"`
	Message string          `gorm:"type:text"`
	Payload datatypes.JSON  `gorm:"type:jsonb"`
}

func (WorkflowPauseReason) TableName() string {
	return "workflow_pause_reasons"
}

// PauseReasonSpec is the caller-supplied description of a reason, turned
// into a WorkflowPauseReason row when the pause is created.
type PauseReasonSpec struct {
	Type    PauseReasonType
	FormID  string
	NodeID  string
	Message string
	Payload datatypes.JSON
}

func (s PauseReasonSpec) toRow(pauseID string) WorkflowPauseReason {
	return WorkflowPauseReason{
		ID:      uuid.NewString(),
		PauseID: pauseID,
		Type:    s.Type,
		FormID:  s.FormID,
		NodeID:  s.NodeID,
		Message: s.Message,
		Payload: s.Payload,
	}
}

// PauseReasonRows materializes reason specs for one pause.
func PauseReasonRows(pauseID string, specs []PauseReasonSpec) []WorkflowPauseReason {
	rows := make([]WorkflowPauseReason, 0, len(specs))
	for _, s := range specs {
		rows = append(rows, s.toRow(pauseID))
	}
	return rows
}
