package repository

import (
	"context"

	"flowdeck/internal/domain"

	"gorm.io/gorm"
)

// TriggerLogRepository owns trigger log rows; like node executions, its
// bulk operations are injected into the run cascade engine.
type TriggerLogRepository struct {
	db *gorm.DB
}

func NewTriggerLogRepository(db *gorm.DB) *TriggerLogRepository {
	return &TriggerLogRepository{db: db}
}

func (r *TriggerLogRepository) Count(ctx context.Context, tx *gorm.DB, runIDs []string) (int, error) {
	if len(runIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := tx.WithContext(ctx).Model(&domain.WorkflowTriggerLog{}).
		Where("workflow_run_id IN ?", runIDs).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *TriggerLogRepository) Delete(ctx context.Context, tx *gorm.DB, runIDs []string) (int, error) {
	if len(runIDs) == 0 {
		return 0, nil
	}
	result := tx.WithContext(ctx).
		Where("workflow_run_id IN ?", runIDs).
		Delete(&domain.WorkflowTriggerLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}
