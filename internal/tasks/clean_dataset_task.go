package tasks

import (
	"context"
	"errors"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CleanDatasetResult tallies what the dataset cleanup removed.
type CleanDatasetResult struct {
	Documents          int `json:"documents"`
	Segments           int `json:"segments"`
	ProcessRules       int `json:"process_rules"`
	Queries            int `json:"queries"`
	AttachmentBindings int `json:"attachment_bindings"`
	Pipelines          int `json:"pipelines"`
	Workflows          int `json:"workflows"`
}

// CleanDatasetTask removes everything a deleted dataset owns: its index
// collections, documents, segments, process rules, query history, segment
// attachments, and (for pipeline-backed datasets) the pipeline and its
// workflow definition.
type CleanDatasetTask struct {
	db             *gorm.DB
	store          ports.BlobStore
	indexProcessor ports.IndexProcessor
	logger         *logrus.Logger
}

func NewCleanDatasetTask(db *gorm.DB, store ports.BlobStore, indexProcessor ports.IndexProcessor, logger *logrus.Logger) *CleanDatasetTask {
	return &CleanDatasetTask{db: db, store: store, indexProcessor: indexProcessor, logger: logger}
}

// Run cleans up after the dataset row itself has been deleted, so it
// receives the dataset's former attributes instead of loading the row. An
// index cleanup failure is logged and the relational cleanup proceeds: index
// garbage is cheaper than orphaned rows.
func (t *CleanDatasetTask) Run(ctx context.Context, tenantID, datasetID, indexingTechnique, indexStruct, collectionBindingID string, pipelineID *string) (CleanDatasetResult, error) {
	dataset := &domain.Dataset{
		ID:                  datasetID,
		TenantID:            tenantID,
		IndexingTechnique:   indexingTechnique,
		IndexStruct:         indexStruct,
		CollectionBindingID: collectionBindingID,
		PipelineID:          pipelineID,
	}

	if err := t.indexProcessor.Clean(ctx, dataset, nil, true, true); err != nil {
		t.logger.WithError(err).WithField("dataset_id", datasetID).
			Error("Cleaning documents when dataset deleted failed")
	}

	var result CleanDatasetResult
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if result.AttachmentBindings, err = t.deleteSegmentAttachments(ctx, tx, datasetID); err != nil {
			return err
		}

		deleted := tx.Where("dataset_id = ?", datasetID).Delete(&domain.DocumentSegment{})
		if deleted.Error != nil {
			return deleted.Error
		}
		result.Segments = int(deleted.RowsAffected)

		deleted = tx.Where("dataset_id = ?", datasetID).Delete(&domain.Document{})
		if deleted.Error != nil {
			return deleted.Error
		}
		result.Documents = int(deleted.RowsAffected)

		deleted = tx.Where("dataset_id = ?", datasetID).Delete(&domain.DatasetProcessRule{})
		if deleted.Error != nil {
			return deleted.Error
		}
		result.ProcessRules = int(deleted.RowsAffected)

		deleted = tx.Where("dataset_id = ?", datasetID).Delete(&domain.DatasetQuery{})
		if deleted.Error != nil {
			return deleted.Error
		}
		result.Queries = int(deleted.RowsAffected)

		if pipelineID != nil {
			if result.Pipelines, result.Workflows, err = deletePipeline(tx, tenantID, *pipelineID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CleanDatasetResult{}, err
	}

	t.logger.WithFields(logrus.Fields{
		"dataset_id": datasetID,
		"documents":  result.Documents,
		"segments":   result.Segments,
	}).Info("Cleaned dataset when dataset deleted")
	return result, nil
}

// deleteSegmentAttachments removes the binding rows, their upload file rows,
// and the stored blobs. Blob deletion is best-effort; the rows always go.
func (t *CleanDatasetTask) deleteSegmentAttachments(ctx context.Context, tx *gorm.DB, datasetID string) (int, error) {
	var bindings []domain.SegmentAttachmentBinding
	if err := tx.Where("dataset_id = ?", datasetID).Find(&bindings).Error; err != nil {
		return 0, err
	}
	if len(bindings) == 0 {
		return 0, nil
	}

	attachmentIDs := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		attachmentIDs = append(attachmentIDs, binding.AttachmentID)
	}

	var files []domain.UploadFile
	if err := tx.Where("id IN ?", attachmentIDs).Find(&files).Error; err != nil {
		return 0, err
	}
	for _, file := range files {
		if err := t.store.Delete(ctx, file.Key); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			t.logger.WithError(err).WithField("key", file.Key).
				Warn("failed to delete segment attachment blob")
		}
	}

	if err := tx.Where("id IN ?", attachmentIDs).Delete(&domain.UploadFile{}).Error; err != nil {
		return 0, err
	}
	deleted := tx.Where("dataset_id = ?", datasetID).Delete(&domain.SegmentAttachmentBinding{})
	if deleted.Error != nil {
		return 0, deleted.Error
	}
	return int(deleted.RowsAffected), nil
}

func deletePipeline(tx *gorm.DB, tenantID, pipelineID string) (pipelines, workflows int, err error) {
	var pipeline domain.Pipeline
	err = tx.Where("id = ? AND tenant_id = ?", pipelineID, tenantID).First(&pipeline).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	if pipeline.WorkflowID != "" {
		deleted := tx.Where("id = ? AND tenant_id = ?", pipeline.WorkflowID, tenantID).Delete(&domain.Workflow{})
		if deleted.Error != nil {
			return 0, 0, deleted.Error
		}
		workflows = int(deleted.RowsAffected)
	}

	deleted := tx.Where("id = ?", pipeline.ID).Delete(&domain.Pipeline{})
	if deleted.Error != nil {
		return 0, workflows, deleted.Error
	}
	return int(deleted.RowsAffected), workflows, nil
}
