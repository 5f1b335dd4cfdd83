package dto

import (
	"time"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"
)

type PauseResponse struct {
	ID            string     `json:"id"`
	WorkflowRunID string     `json:"workflow_run_id"`
	ResumedAt     *time.Time `json:"resumed_at,omitempty"`
	Reasons       []string   `json:"reasons"`
}

func NewPauseResponse(pause ports.WorkflowPauseEntity) PauseResponse {
	reasons := make([]string, 0, len(pause.Reasons()))
	for _, reason := range pause.Reasons() {
		reasons = append(reasons, string(reason.Type))
	}
	return PauseResponse{
		ID:            pause.ID(),
		WorkflowRunID: pause.WorkflowRunID(),
		ResumedAt:     pause.ResumedAt(),
		Reasons:       reasons,
	}
}

type RunResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	TenantID  string    `json:"tenant_id"`
	AppID     string    `json:"app_id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRunResponse(run *domain.WorkflowRun) RunResponse {
	return RunResponse{
		ID:        run.ID,
		Status:    string(run.Status),
		TenantID:  run.TenantID,
		AppID:     run.AppID,
		CreatedAt: run.CreatedAt,
	}
}

type RestoreResponse struct {
	RestoredRows int  `json:"restored_rows"`
	DryRun       bool `json:"dry_run"`
}
