package ports

import (
	"context"
	"errors"
	"time"

	"flowdeck/internal/domain"

	"gorm.io/gorm"
)

// ErrObjectNotFound is returned by BlobStore implementations when the key
// is absent.
var ErrObjectNotFound = errors.New("object not found")

// ErrArchiveStorageNotConfigured is returned by providers of the cold
// archive store when no backend is configured. Callers treat it as "nothing
// to clean up", not as a failure.
var ErrArchiveStorageNotConfigured = errors.New("archive storage not configured")

// BlobStore is a key/value byte store used for pause-state snapshots,
// offloaded payloads, and archive files. Objects are written once and read
// many times; they stay immutable until the owning row is deleted.
type BlobStore interface {
	// Store writes data under key, overwriting any previous object.
	Store(ctx context.Context, key string, data []byte) error

	// Load returns the object bytes, or ErrObjectNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object; ErrObjectNotFound if it is absent.
	Delete(ctx context.Context, key string) error

	// List returns all keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// WorkflowPauseEntity is the handle returned by pause operations. State is
// loaded lazily from the blob store on first call and cached.
type WorkflowPauseEntity interface {
	ID() string
	WorkflowRunID() string
	ResumedAt() *time.Time
	Reasons() []domain.WorkflowPauseReason
	State(ctx context.Context) ([]byte, error)
}

// RelatedCounts is the tally produced by the cascade delete/count engine.
type RelatedCounts struct {
	NodeExecutions int `json:"node_executions"`
	Offloads       int `json:"offloads"`
	TriggerLogs    int `json:"trigger_logs"`
	AppLogs        int `json:"app_logs"`
	Pauses         int `json:"pauses"`
	PauseReasons   int `json:"pause_reasons"`
	Runs           int `json:"runs"`
}

// NodeExecutionStrategy is injected into the cascade engine because node
// execution rows are owned by their own repository. The second count is the
// number of offload rows removed alongside the executions; offloads have no
// independent deletion path so the pair stays together.
//
// Delete touches rows only. The engine collects offload object keys before
// opening its transaction and hands them back to DeleteOffloadObjects after
// the commit, so a rollback never leaves offload rows pointing at objects
// that are already gone.
type NodeExecutionStrategy interface {
	Count(ctx context.Context, tx *gorm.DB, runs []*domain.WorkflowRun) (executions int, offloads int, err error)
	Delete(ctx context.Context, tx *gorm.DB, runs []*domain.WorkflowRun) (executions int, offloads int, err error)

	// OffloadObjectKeys lists the blob keys referenced by the runs' offload
	// rows.
	OffloadObjectKeys(ctx context.Context, db *gorm.DB, runs []*domain.WorkflowRun) ([]string, error)

	// DeleteOffloadObjects removes the offloaded payload objects,
	// best-effort: missing or failing objects are logged and skipped.
	DeleteOffloadObjects(ctx context.Context, keys []string)
}

// TriggerLogStrategy is the injected counterpart for trigger logs.
type TriggerLogStrategy interface {
	Count(ctx context.Context, tx *gorm.DB, runIDs []string) (int, error)
	Delete(ctx context.Context, tx *gorm.DB, runIDs []string) (int, error)
}

// RunCursor is the keyset cursor for batch walks over workflow runs,
// ordered by (created_at, id).
type RunCursor struct {
	CreatedAt time.Time
	ID        string
}

// WorkflowRunRepository owns the run aggregate: the pause/resume state
// machine and the cascade delete/count engine.
type WorkflowRunRepository interface {
	GetRun(ctx context.Context, runID string) (*domain.WorkflowRun, error)

	// GetPause loads a pause by id, with its reasons.
	GetPause(ctx context.Context, pauseID string) (WorkflowPauseEntity, error)

	// CreatePause snapshots state to the blob store, records the pause and
	// its reasons, and flips the run to PAUSED. The run must currently be
	// RUNNING or PAUSED.
	CreatePause(ctx context.Context, runID, stateOwnerUserID string, state []byte, reasons []domain.PauseReasonSpec) (WorkflowPauseEntity, error)

	// ResumePause stamps resumed_at on the active pause and flips the run
	// back to RUNNING. The presented pause id must match the stored active
	// pause; a mismatch is a corruption signal.
	ResumePause(ctx context.Context, runID string, pause WorkflowPauseEntity) (WorkflowPauseEntity, error)

	// DeletePause removes the state blob (tolerating absence) and then the
	// pause row with its reasons.
	DeletePause(ctx context.Context, pause WorkflowPauseEntity) error

	// DeleteRunsWithRelated removes the runs and every dependent record in
	// one transaction, delegating node executions and trigger logs to the
	// injected strategies.
	DeleteRunsWithRelated(ctx context.Context, runs []*domain.WorkflowRun, nodeExecs NodeExecutionStrategy, triggerLogs TriggerLogStrategy) (RelatedCounts, error)

	// CountRunsWithRelated is the read-only preview of DeleteRunsWithRelated.
	CountRunsWithRelated(ctx context.Context, runs []*domain.WorkflowRun, nodeExecs NodeExecutionStrategy, triggerLogs TriggerLogStrategy) (RelatedCounts, error)

	// GetRunsBatchByTimeRange pages terminal-status runs created within
	// [startFrom, endBefore), ascending by (created_at, id), resuming after
	// lastSeen.
	GetRunsBatchByTimeRange(ctx context.Context, startFrom, endBefore time.Time, lastSeen *RunCursor, batchSize int, tenantIDs []string) ([]*domain.WorkflowRun, error)

	// GetArchivedRunIDs filters runIDs down to those with an archive log.
	GetArchivedRunIDs(ctx context.Context, runIDs []string) (map[string]struct{}, error)
}

// RunEventBus broadcasts run lifecycle events.
type RunEventBus interface {
	PublishRunPaused(ctx context.Context, event domain.RunPausedEvent) error
	PublishRunResumed(ctx context.Context, event domain.RunResumedEvent) error
	PublishRunDeleted(ctx context.Context, event domain.RunDeletedEvent) error
}

// IndexProcessor cleans a dataset's vector/keyword indexes. nodeIDs nil
// means the whole dataset.
type IndexProcessor interface {
	Clean(ctx context.Context, dataset *domain.Dataset, nodeIDs []string, withKeywords, deleteChildChunks bool) error
}
