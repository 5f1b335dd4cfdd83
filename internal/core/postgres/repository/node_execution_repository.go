package repository

import (
	"context"
	"errors"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NodeExecutionRepository owns node execution rows and their offloads. Its
// Count/Delete pair is injected into the run cascade engine so the run
// repository never touches these tables directly.
type NodeExecutionRepository struct {
	db     *gorm.DB
	store  ports.BlobStore
	logger *logrus.Logger
}

func NewNodeExecutionRepository(db *gorm.DB, store ports.BlobStore, logger *logrus.Logger) *NodeExecutionRepository {
	return &NodeExecutionRepository{db: db, store: store, logger: logger}
}

func (r *NodeExecutionRepository) executionIDs(tx *gorm.DB, runs []*domain.WorkflowRun) *gorm.DB {
	runIDs := make([]string, 0, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.ID)
	}
	return tx.Model(&domain.WorkflowNodeExecution{}).
		Select("id").
		Where("workflow_run_id IN ?", runIDs)
}

func (r *NodeExecutionRepository) Count(ctx context.Context, tx *gorm.DB, runs []*domain.WorkflowRun) (int, int, error) {
	if len(runs) == 0 {
		return 0, 0, nil
	}
	runIDs := make([]string, 0, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.ID)
	}

	var executions int64
	if err := tx.WithContext(ctx).Model(&domain.WorkflowNodeExecution{}).
		Where("workflow_run_id IN ?", runIDs).Count(&executions).Error; err != nil {
		return 0, 0, err
	}

	var offloads int64
	if err := tx.WithContext(ctx).Model(&domain.WorkflowNodeExecutionOffload{}).
		Where("node_execution_id IN (?)", r.executionIDs(tx, runs)).
		Count(&offloads).Error; err != nil {
		return 0, 0, err
	}
	return int(executions), int(offloads), nil
}

// Delete removes the runs' execution and offload rows inside the caller's
// transaction. It never touches the blob store: the cascade engine calls
// OffloadObjectKeys before the transaction and DeleteOffloadObjects after
// the commit, so a rollback keeps the rows and their objects consistent.
func (r *NodeExecutionRepository) Delete(ctx context.Context, tx *gorm.DB, runs []*domain.WorkflowRun) (int, int, error) {
	if len(runs) == 0 {
		return 0, 0, nil
	}
	runIDs := make([]string, 0, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.ID)
	}

	result := tx.WithContext(ctx).
		Where("node_execution_id IN (?)", r.executionIDs(tx, runs)).
		Delete(&domain.WorkflowNodeExecutionOffload{})
	if result.Error != nil {
		return 0, 0, result.Error
	}
	offloads := int(result.RowsAffected)

	result = tx.WithContext(ctx).
		Where("workflow_run_id IN ?", runIDs).
		Delete(&domain.WorkflowNodeExecution{})
	if result.Error != nil {
		return 0, 0, result.Error
	}
	return int(result.RowsAffected), offloads, nil
}

func (r *NodeExecutionRepository) OffloadObjectKeys(ctx context.Context, db *gorm.DB, runs []*domain.WorkflowRun) ([]string, error) {
	if len(runs) == 0 {
		return nil, nil
	}
	var keys []string
	err := db.WithContext(ctx).Model(&domain.WorkflowNodeExecutionOffload{}).
		Where("node_execution_id IN (?)", r.executionIDs(db, runs)).
		Pluck("object_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteOffloadObjects is best-effort: a missing or failing object is logged
// and skipped, never surfaced to the caller.
func (r *NodeExecutionRepository) DeleteOffloadObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := r.store.Delete(ctx, key); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			r.logger.WithError(err).WithField("object_key", key).
				Warn("failed to delete offloaded payload object")
		}
	}
}

// ListForRun returns a run's node executions ordered by index. Executions
// in PAUSED status are included: they carry the resumption point for a
// paused run and must not be filtered out with other non-terminal rows.
func (r *NodeExecutionRepository) ListForRun(ctx context.Context, runID string) ([]domain.WorkflowNodeExecution, error) {
	var executions []domain.WorkflowNodeExecution
	err := r.db.WithContext(ctx).
		Where("workflow_run_id = ?", runID).
		Order(`"index" ASC`).
		Find(&executions).Error
	if err != nil {
		return nil, err
	}
	return executions, nil
}

// DeleteStaleForRun clears a run's execution rows before a re-run,
// preserving PAUSED executions.
func (r *NodeExecutionRepository) DeleteStaleForRun(ctx context.Context, runID string) (int, error) {
	result := r.db.WithContext(ctx).
		Where("workflow_run_id = ? AND status != ?", runID, domain.NodeExecutionPaused).
		Delete(&domain.WorkflowNodeExecution{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}
