package tasks

import (
	"context"
	"errors"
	"fmt"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const draftVariableBatchSize = 1000

// RemoveAppTask deletes the data a removed app leaves behind: draft
// variables with their offloaded payloads, archive manifests, and cold
// archive files. Each piece is best-effort so one failing family does not
// strand the others.
type RemoveAppTask struct {
	db           *gorm.DB
	store        ports.BlobStore
	archiveStore ports.BlobStore
	logger       *logrus.Logger
}

func NewRemoveAppTask(db *gorm.DB, store ports.BlobStore, archiveStore ports.BlobStore, logger *logrus.Logger) *RemoveAppTask {
	return &RemoveAppTask{db: db, store: store, archiveStore: archiveStore, logger: logger}
}

// Run removes all app-scoped leftovers for one app.
func (t *RemoveAppTask) Run(ctx context.Context, tenantID, appID string) error {
	if _, err := t.DeleteDraftVariables(ctx, appID); err != nil {
		return err
	}
	if _, err := t.DeleteAppArchiveLogs(ctx, tenantID, appID); err != nil {
		return err
	}
	t.DeleteArchivedRunFiles(ctx, tenantID, appID)
	return nil
}

func (t *RemoveAppTask) DeleteDraftVariables(ctx context.Context, appID string) (int, error) {
	return t.DeleteDraftVariablesBatch(ctx, appID, draftVariableBatchSize)
}

// DeleteDraftVariablesBatch removes an app's draft variables in bounded
// batches so one app with millions of rows cannot hold a transaction open
// indefinitely. Returns the number of variable rows deleted.
func (t *RemoveAppTask) DeleteDraftVariablesBatch(ctx context.Context, appID string, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch_size must be positive, got %d", batchSize)
	}

	total := 0
	for {
		var batch []domain.DraftVariable
		err := t.db.WithContext(ctx).
			Where("app_id = ?", appID).
			Limit(batchSize).
			Find(&batch).Error
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			return total, nil
		}

		variableIDs := make([]string, 0, len(batch))
		var fileIDs []string
		for _, variable := range batch {
			variableIDs = append(variableIDs, variable.ID)
			if variable.FileID != nil {
				fileIDs = append(fileIDs, *variable.FileID)
			}
		}

		err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			t.deleteDraftVariableOffloadData(ctx, tx, fileIDs)
			result := tx.Where("id IN ?", variableIDs).Delete(&domain.DraftVariable{})
			if result.Error != nil {
				return result.Error
			}
			total += int(result.RowsAffected)
			return nil
		})
		if err != nil {
			return total, err
		}

		if len(batch) < batchSize {
			return total, nil
		}
	}
}

// deleteDraftVariableOffloadData removes the file rows and blobs behind
// offloaded draft variables. Failures are logged, not raised: the count of
// successfully removed file rows is returned and the caller's batch keeps
// going.
func (t *RemoveAppTask) deleteDraftVariableOffloadData(ctx context.Context, tx *gorm.DB, fileIDs []string) int {
	if len(fileIDs) == 0 {
		return 0
	}

	var files []domain.DraftVariableFile
	if err := tx.Where("id IN ?", fileIDs).Find(&files).Error; err != nil {
		t.logger.WithError(err).Error("Error deleting draft variable offload data:")
		return 0
	}

	uploadFileIDs := make([]string, 0, len(files))
	for _, file := range files {
		uploadFileIDs = append(uploadFileIDs, file.UploadFileID)
	}

	var uploadFiles []domain.UploadFile
	if len(uploadFileIDs) > 0 {
		if err := tx.Where("id IN ?", uploadFileIDs).Find(&uploadFiles).Error; err != nil {
			t.logger.WithError(err).Error("Error deleting draft variable offload data:")
			return 0
		}
	}
	for _, uploadFile := range uploadFiles {
		if err := t.store.Delete(ctx, uploadFile.Key); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			t.logger.WithError(err).WithField("key", uploadFile.Key).
				Warn("failed to delete offloaded draft variable blob")
		}
	}

	if len(uploadFileIDs) > 0 {
		if err := tx.Where("id IN ?", uploadFileIDs).Delete(&domain.UploadFile{}).Error; err != nil {
			t.logger.WithError(err).Error("Error deleting draft variable offload data:")
			return 0
		}
	}
	result := tx.Where("id IN ?", fileIDs).Delete(&domain.DraftVariableFile{})
	if result.Error != nil {
		t.logger.WithError(result.Error).Error("Error deleting draft variable offload data:")
		return 0
	}
	return int(result.RowsAffected)
}

func (t *RemoveAppTask) DeleteAppArchiveLogs(ctx context.Context, tenantID, appID string) (int, error) {
	result := t.db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ?", tenantID, appID).
		Delete(&domain.WorkflowArchiveLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// DeleteArchivedRunFiles removes the app's cold-storage objects. A missing
// archive store or a failed listing is logged and skipped; app removal
// proceeds regardless.
func (t *RemoveAppTask) DeleteArchivedRunFiles(ctx context.Context, tenantID, appID string) {
	if t.archiveStore == nil {
		t.logger.WithField("app_id", appID).
			Info("Archive storage not configured, skipping archive file cleanup")
		return
	}

	prefix := fmt.Sprintf("%s/app_id=%s/", tenantID, appID)
	keys, err := t.archiveStore.List(ctx, prefix)
	if err != nil {
		t.logger.WithError(err).WithField("app_id", appID).
			Error("Failed to list archive files for app")
		return
	}

	deleted := 0
	for _, key := range keys {
		if err := t.archiveStore.Delete(ctx, key); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			t.logger.WithError(err).WithField("key", key).Warn("failed to delete archive object")
			continue
		}
		deleted++
	}
	t.logger.WithFields(logrus.Fields{
		"objects": deleted,
		"app_id":  appID,
	}).Info("Deleted archive objects for app")
}
