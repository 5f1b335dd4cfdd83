package domain

// RunPausedEvent is published to Redis Pub/Sub when a run is checkpointed
// into the PAUSED state.
type RunPausedEvent struct {
	WorkflowRunID string            `json:"workflow_run_id"`
	PauseID       string            `json:"pause_id"`
	ReasonTypes   []PauseReasonType `json:"reason_types"`
}

// RunResumedEvent is published when a paused run goes back to RUNNING.
type RunResumedEvent struct {
	WorkflowRunID string `json:"workflow_run_id"`
	PauseID       string `json:"pause_id"`
}

// RunDeletedEvent is published after the retention engine removes a run's
// hot-path rows.
type RunDeletedEvent struct {
	WorkflowRunID string `json:"workflow_run_id"`
	TenantID      string `json:"tenant_id"`
}
