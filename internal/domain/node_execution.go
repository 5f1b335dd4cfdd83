package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NodeExecutionStatus string

const (
	NodeExecutionRunning   NodeExecutionStatus = "RUNNING"
	NodeExecutionSucceeded NodeExecutionStatus = "SUCCEEDED"
	NodeExecutionFailed    NodeExecutionStatus = "FAILED"
	// NodeExecutionPaused is distinct from the owning run's PAUSED status:
	// a paused node execution is preserved when listing executions for a run.
	NodeExecutionPaused NodeExecutionStatus = "PAUSED"
)

type WorkflowNodeExecution struct {
	ID                string `gorm:"type:uuid;primaryKey"`
	TenantID          string `gorm:"type:uuid;index;not null"`
	AppID             string `gorm:"type:uuid;not null"`
	WorkflowID        string `gorm:"type:uuid;not null"`
	WorkflowRunID     string `gorm:"type:uuid;index;not null"`
	Index             int    `gorm:"not null"`
	NodeID            string `gorm:"type:varchar(255);not null"`
	PredecessorNodeID string `gorm:"type:varchar(255)"`
	Title             string `gorm:"type:varchar(255)"`
	Type              string `gorm:"type:varchar(50);not null"`

	Inputs  datatypes.JSON `gorm:"type:jsonb"`
	Outputs datatypes.JSON `gorm:"type:jsonb"`

	Status      NodeExecutionStatus `gorm:"type:varchar(20);index"`
	Error       string              `gorm:"type:text"`
	ElapsedTime float64             `gorm:"default:0"`

	CreatedAt  time.Time
	FinishedAt *time.Time
}

func (WorkflowNodeExecution) TableName() string {
	return "workflow_node_executions"
}

func NewWorkflowNodeExecution(run *WorkflowRun, index int, nodeID, nodeType string) *WorkflowNodeExecution {
	return &WorkflowNodeExecution{
		ID:            uuid.NewString(),
		TenantID:      run.TenantID,
		AppID:         run.AppID,
		WorkflowID:    run.WorkflowID,
		WorkflowRunID: run.ID,
		Index:         index,
		NodeID:        nodeID,
		Type:          nodeType,
		Status:        NodeExecutionRunning,
		CreatedAt:     time.Now().UTC(),
	}
}

// WorkflowNodeExecutionOffload keeps the blob reference for a node
// execution whose inputs or outputs were too large to store inline.
// At most one offload row exists per node execution.
type WorkflowNodeExecutionOffload struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	NodeExecutionID string `gorm:"type:uuid;uniqueIndex;not null"`
	ObjectKey       string `gorm:"type:varchar(255);not null"`
	Size            int64  `gorm:"default:0"`
	CreatedAt       time.Time
}

func (WorkflowNodeExecutionOffload) TableName() string {
	return "workflow_node_execution_offloads"
}
