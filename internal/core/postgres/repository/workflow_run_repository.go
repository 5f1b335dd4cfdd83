package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type workflowRunRepository struct {
	db     *gorm.DB
	store  ports.BlobStore
	logger *logrus.Logger
}

// NewWorkflowRunRepository creates the repository owning the run aggregate.
// The blob store receives pause-state snapshots; relational rows only keep
// the object key.
func NewWorkflowRunRepository(db *gorm.DB, store ports.BlobStore, logger *logrus.Logger) ports.WorkflowRunRepository {
	return &workflowRunRepository{db: db, store: store, logger: logger}
}

// pauseEntity implements ports.WorkflowPauseEntity. The state bytes are
// loaded from the blob store on first use and cached for the lifetime of
// the handle.
type pauseEntity struct {
	pause   domain.WorkflowPause
	reasons []domain.WorkflowPauseReason
	store   ports.BlobStore

	mu     sync.Mutex
	state  []byte
	loaded bool
}

func (e *pauseEntity) ID() string {
	return e.pause.ID
}

func (e *pauseEntity) WorkflowRunID() string {
	return e.pause.WorkflowRunID
}

func (e *pauseEntity) ResumedAt() *time.Time {
	return e.pause.ResumedAt
}

func (e *pauseEntity) Reasons() []domain.WorkflowPauseReason {
	return e.reasons
}

func (e *pauseEntity) State(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.state, nil
	}
	state, err := e.store.Load(ctx, e.pause.StateObjectKey)
	if err != nil {
		return nil, err
	}
	e.state = state
	e.loaded = true
	return e.state, nil
}

func (r *workflowRunRepository) GetRun(ctx context.Context, runID string) (*domain.WorkflowRun, error) {
	var run domain.WorkflowRun
	err := r.db.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWorkflowRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *workflowRunRepository) GetPause(ctx context.Context, pauseID string) (ports.WorkflowPauseEntity, error) {
	var pause domain.WorkflowPause
	err := r.db.WithContext(ctx).Where("id = ?", pauseID).First(&pause).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWorkflowPauseNotFound
	}
	if err != nil {
		return nil, err
	}
	var reasons []domain.WorkflowPauseReason
	if err := r.db.WithContext(ctx).Where("pause_id = ?", pause.ID).Find(&reasons).Error; err != nil {
		return nil, err
	}
	return &pauseEntity{pause: pause, reasons: reasons, store: r.store}, nil
}

func (r *workflowRunRepository) CreatePause(ctx context.Context, runID, stateOwnerUserID string, state []byte, reasons []domain.PauseReasonSpec) (ports.WorkflowPauseEntity, error) {
	run, err := r.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.Pausable() {
		return nil, domain.NewStateError("Only WorkflowRun with RUNNING or PAUSED status can be paused")
	}

	// The blob is written before the relational commit: a failed commit
	// leaves an orphan blob for the reconciliation pass, never a pause row
	// pointing at a missing object.
	stateKey := fmt.Sprintf("workflow-state-%s-%s.json", runID, uuid.NewString())
	if err := r.store.Store(ctx, stateKey, state); err != nil {
		return nil, fmt.Errorf("store pause state: %w", err)
	}

	pause := domain.NewWorkflowPause(run.WorkflowID, run.ID, stateKey)
	reasonRows := domain.PauseReasonRows(pause.ID, reasons)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-pausing an already-paused run retires the previous active
		// pause, keeping at most one active pause per run.
		now := time.Now().UTC()
		if err := tx.Model(&domain.WorkflowPause{}).
			Where("workflow_run_id = ? AND resumed_at IS NULL", run.ID).
			Update("resumed_at", now).Error; err != nil {
			return err
		}

		if err := tx.Create(pause).Error; err != nil {
			return err
		}
		if len(reasonRows) > 0 {
			if err := tx.Create(&reasonRows).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&domain.WorkflowRun{}).
			Where("id = ? AND status IN ?", run.ID, []domain.WorkflowRunStatus{domain.WorkflowRunRunning, domain.WorkflowRunPaused}).
			Update("status", domain.WorkflowRunPaused)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewStateError("Only WorkflowRun with RUNNING or PAUSED status can be paused")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"workflow_run_id": run.ID,
		"pause_id":        pause.ID,
		"state_owner":     stateOwnerUserID,
	}).Info("workflow run paused")

	return &pauseEntity{pause: *pause, reasons: reasonRows, store: r.store}, nil
}

func (r *workflowRunRepository) ResumePause(ctx context.Context, runID string, pause ports.WorkflowPauseEntity) (ports.WorkflowPauseEntity, error) {
	run, err := r.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.WorkflowRunPaused {
		return nil, domain.NewStateError("WorkflowRun is not in PAUSED status")
	}

	var stored domain.WorkflowPause
	err = r.db.WithContext(ctx).
		Where("workflow_run_id = ? AND resumed_at IS NULL", run.ID).
		First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWorkflowPauseNotFound
	}
	if err != nil {
		return nil, err
	}
	if stored.ID != pause.ID() {
		// Statuses look consistent but the caller holds a stale or forged
		// handle; treat as a corruption signal, not a retry case.
		return nil, domain.NewStateError("different id in WorkflowPause and WorkflowPauseEntity")
	}

	resumedAt := time.Now().UTC()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.WorkflowPause{}).
			Where("id = ? AND resumed_at IS NULL", stored.ID).
			Update("resumed_at", resumedAt).Error; err != nil {
			return err
		}

		// Conditional update closes the read-then-write race: only one
		// resume can flip PAUSED to RUNNING.
		result := tx.Model(&domain.WorkflowRun{}).
			Where("id = ? AND status = ?", run.ID, domain.WorkflowRunPaused).
			Update("status", domain.WorkflowRunRunning)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewStateError("WorkflowRun is not in PAUSED status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var reasons []domain.WorkflowPauseReason
	if err := r.db.WithContext(ctx).Where("pause_id = ?", stored.ID).Find(&reasons).Error; err != nil {
		return nil, err
	}

	stored.ResumedAt = &resumedAt
	r.logger.WithFields(logrus.Fields{
		"workflow_run_id": run.ID,
		"pause_id":        stored.ID,
	}).Info("workflow run resumed")

	return &pauseEntity{pause: stored, reasons: reasons, store: r.store}, nil
}

func (r *workflowRunRepository) DeletePause(ctx context.Context, pause ports.WorkflowPauseEntity) error {
	var stored domain.WorkflowPause
	err := r.db.WithContext(ctx).Where("id = ?", pause.ID()).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrWorkflowPauseNotFound
	}
	if err != nil {
		return err
	}

	// Blob first, row second: a crash in between leaves a pause row whose
	// blob is already gone, which the next delete attempt tolerates.
	if err := r.store.Delete(ctx, stored.StateObjectKey); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
		r.logger.WithError(err).WithField("state_object_key", stored.StateObjectKey).
			Warn("failed to delete pause state object")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pause_id = ?", stored.ID).Delete(&domain.WorkflowPauseReason{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", stored.ID).Delete(&domain.WorkflowPause{}).Error
	})
}

func runAndWorkflowIDs(runs []*domain.WorkflowRun) (runIDs, workflowIDs []string) {
	seen := make(map[string]struct{}, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.ID)
		if _, ok := seen[run.WorkflowID]; !ok {
			seen[run.WorkflowID] = struct{}{}
			workflowIDs = append(workflowIDs, run.WorkflowID)
		}
	}
	return runIDs, workflowIDs
}

func (r *workflowRunRepository) DeleteRunsWithRelated(ctx context.Context, runs []*domain.WorkflowRun, nodeExecs ports.NodeExecutionStrategy, triggerLogs ports.TriggerLogStrategy) (ports.RelatedCounts, error) {
	var counts ports.RelatedCounts
	if len(runs) == 0 {
		return counts, nil
	}
	runIDs, workflowIDs := runAndWorkflowIDs(runs)

	// State and offload blobs are collected up front and removed best-effort
	// after the transaction commits; a rollback must not lose blob data.
	var stateKeys []string
	if err := r.db.WithContext(ctx).Model(&domain.WorkflowPause{}).
		Where("workflow_id IN ? AND workflow_run_id IN ?", workflowIDs, runIDs).
		Pluck("state_object_key", &stateKeys).Error; err != nil {
		return counts, err
	}
	offloadKeys, err := nodeExecs.OffloadObjectKeys(ctx, r.db, runs)
	if err != nil {
		return counts, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("workflow_run_id IN ?", runIDs).Delete(&domain.WorkflowAppLog{})
		if result.Error != nil {
			return result.Error
		}
		counts.AppLogs = int(result.RowsAffected)

		pauseIDs := tx.Model(&domain.WorkflowPause{}).
			Select("id").
			Where("workflow_id IN ? AND workflow_run_id IN ?", workflowIDs, runIDs)
		result = tx.Where("pause_id IN (?)", pauseIDs).Delete(&domain.WorkflowPauseReason{})
		if result.Error != nil {
			return result.Error
		}
		counts.PauseReasons = int(result.RowsAffected)

		result = tx.Where("workflow_id IN ? AND workflow_run_id IN ?", workflowIDs, runIDs).
			Delete(&domain.WorkflowPause{})
		if result.Error != nil {
			return result.Error
		}
		counts.Pauses = int(result.RowsAffected)

		executions, offloads, err := nodeExecs.Delete(ctx, tx, runs)
		if err != nil {
			return err
		}
		counts.NodeExecutions = executions
		counts.Offloads = offloads

		logCount, err := triggerLogs.Delete(ctx, tx, runIDs)
		if err != nil {
			return err
		}
		counts.TriggerLogs = logCount

		result = tx.Where("id IN ?", runIDs).Delete(&domain.WorkflowRun{})
		if result.Error != nil {
			return result.Error
		}
		counts.Runs = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return ports.RelatedCounts{}, err
	}

	for _, key := range stateKeys {
		if err := r.store.Delete(ctx, key); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			r.logger.WithError(err).WithField("state_object_key", key).
				Warn("failed to delete pause state object")
		}
	}
	nodeExecs.DeleteOffloadObjects(ctx, offloadKeys)
	return counts, nil
}

func (r *workflowRunRepository) CountRunsWithRelated(ctx context.Context, runs []*domain.WorkflowRun, nodeExecs ports.NodeExecutionStrategy, triggerLogs ports.TriggerLogStrategy) (ports.RelatedCounts, error) {
	var counts ports.RelatedCounts
	if len(runs) == 0 {
		return counts, nil
	}
	runIDs, workflowIDs := runAndWorkflowIDs(runs)
	db := r.db.WithContext(ctx)

	var appLogs int64
	if err := db.Model(&domain.WorkflowAppLog{}).
		Where("workflow_run_id IN ?", runIDs).Count(&appLogs).Error; err != nil {
		return counts, err
	}
	counts.AppLogs = int(appLogs)

	pauseIDs := db.Model(&domain.WorkflowPause{}).
		Select("id").
		Where("workflow_id IN ? AND workflow_run_id IN ?", workflowIDs, runIDs)
	var pauseReasons int64
	if err := db.Model(&domain.WorkflowPauseReason{}).
		Where("pause_id IN (?)", pauseIDs).Count(&pauseReasons).Error; err != nil {
		return counts, err
	}
	counts.PauseReasons = int(pauseReasons)

	var pauses int64
	if err := db.Model(&domain.WorkflowPause{}).
		Where("workflow_id IN ? AND workflow_run_id IN ?", workflowIDs, runIDs).
		Count(&pauses).Error; err != nil {
		return counts, err
	}
	counts.Pauses = int(pauses)

	executions, offloads, err := nodeExecs.Count(ctx, db, runs)
	if err != nil {
		return counts, err
	}
	counts.NodeExecutions = executions
	counts.Offloads = offloads

	logCount, err := triggerLogs.Count(ctx, db, runIDs)
	if err != nil {
		return counts, err
	}
	counts.TriggerLogs = logCount

	counts.Runs = len(runs)
	return counts, nil
}

func (r *workflowRunRepository) GetRunsBatchByTimeRange(ctx context.Context, startFrom, endBefore time.Time, lastSeen *ports.RunCursor, batchSize int, tenantIDs []string) ([]*domain.WorkflowRun, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.WorkflowRun{}).
		Where("status IN ?", domain.TerminalRunStatuses).
		Where("created_at >= ? AND created_at < ?", startFrom, endBefore)
	if len(tenantIDs) > 0 {
		query = query.Where("tenant_id IN ?", tenantIDs)
	}
	if lastSeen != nil {
		// (created_at, id) keyset pagination; id breaks created_at ties.
		query = query.Where("created_at > ? OR (created_at = ? AND id > ?)",
			lastSeen.CreatedAt, lastSeen.CreatedAt, lastSeen.ID)
	}

	var runs []*domain.WorkflowRun
	err := query.Order("created_at ASC").Order("id ASC").Limit(batchSize).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *workflowRunRepository) GetArchivedRunIDs(ctx context.Context, runIDs []string) (map[string]struct{}, error) {
	archived := make(map[string]struct{}, len(runIDs))
	if len(runIDs) == 0 {
		return archived, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.WorkflowArchiveLog{}).
		Where("workflow_run_id IN ?", runIDs).
		Pluck("workflow_run_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		archived[id] = struct{}{}
	}
	return archived, nil
}
