package tasks

import (
	"context"
	"fmt"
	"io"
	"testing"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"
	"flowdeck/internal/infrastructure/storage"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.DraftVariable{},
		&domain.DraftVariableFile{},
		&domain.UploadFile{},
		&domain.WorkflowArchiveLog{},
		&domain.Dataset{},
		&domain.Document{},
		&domain.DocumentSegment{},
		&domain.DatasetProcessRule{},
		&domain.DatasetQuery{},
		&domain.Pipeline{},
		&domain.Workflow{},
		&domain.SegmentAttachmentBinding{},
	))
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func seedDraftVariable(t *testing.T, db *gorm.DB, store ports.BlobStore, appID string, offloaded bool) {
	t.Helper()
	variable := domain.DraftVariable{
		ID:    uuid.NewString(),
		AppID: appID,
		Name:  "var",
		Value: []byte(`"small"`),
	}
	if offloaded {
		key := "draft-" + uuid.NewString()
		require.NoError(t, store.Store(context.Background(), key, []byte("big payload")))
		uploadFile := domain.UploadFile{ID: uuid.NewString(), Key: key}
		require.NoError(t, db.Create(&uploadFile).Error)
		file := domain.DraftVariableFile{ID: uuid.NewString(), AppID: appID, UploadFileID: uploadFile.ID}
		require.NoError(t, db.Create(&file).Error)
		variable.FileID = &file.ID
	}
	require.NoError(t, db.Create(&variable).Error)
}

func TestDeleteDraftVariablesBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a non-positive batch size", func(t *testing.T) {
		task := NewRemoveAppTask(newTestDB(t), storage.NewMemoryStore(), nil, newTestLogger())
		_, err := task.DeleteDraftVariablesBatch(ctx, uuid.NewString(), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch_size must be positive")

		_, err = task.DeleteDraftVariablesBatch(ctx, uuid.NewString(), -5)
		require.Error(t, err)
	})

	t.Run("deletes variables, offload rows and blobs across batches", func(t *testing.T) {
		db := newTestDB(t)
		store := storage.NewMemoryStore()
		task := NewRemoveAppTask(db, store, nil, newTestLogger())
		appID := uuid.NewString()

		for i := 0; i < 5; i++ {
			seedDraftVariable(t, db, store, appID, i%2 == 0)
		}
		seedDraftVariable(t, db, store, uuid.NewString(), true)

		deleted, err := task.DeleteDraftVariablesBatch(ctx, appID, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, deleted)

		var variables int64
		require.NoError(t, db.Model(&domain.DraftVariable{}).Count(&variables).Error)
		assert.EqualValues(t, 1, variables)
		var files int64
		require.NoError(t, db.Model(&domain.DraftVariableFile{}).Count(&files).Error)
		assert.EqualValues(t, 1, files)

		keys, err := store.List(ctx, "draft-")
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("empty app is a zero no-op", func(t *testing.T) {
		task := NewRemoveAppTask(newTestDB(t), storage.NewMemoryStore(), nil, newTestLogger())
		deleted, err := task.DeleteDraftVariablesBatch(ctx, uuid.NewString(), 100)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("missing blob does not fail the batch", func(t *testing.T) {
		db := newTestDB(t)
		store := storage.NewMemoryStore()
		task := NewRemoveAppTask(db, store, nil, newTestLogger())
		appID := uuid.NewString()

		seedDraftVariable(t, db, store, appID, true)
		keys, err := store.List(ctx, "draft-")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.NoError(t, store.Delete(ctx, keys[0]))

		deleted, err := task.DeleteDraftVariablesBatch(ctx, appID, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})
}

func TestDeleteAppArchiveLogs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	task := NewRemoveAppTask(db, storage.NewMemoryStore(), nil, newTestLogger())

	tenantID := uuid.NewString()
	appID := uuid.NewString()
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&domain.WorkflowArchiveLog{
			ID: uuid.NewString(), TenantID: tenantID, AppID: appID,
			WorkflowID: uuid.NewString(), WorkflowRunID: uuid.NewString(),
		}).Error)
	}
	require.NoError(t, db.Create(&domain.WorkflowArchiveLog{
		ID: uuid.NewString(), TenantID: tenantID, AppID: uuid.NewString(),
		WorkflowID: uuid.NewString(), WorkflowRunID: uuid.NewString(),
	}).Error)

	deleted, err := task.DeleteAppArchiveLogs(ctx, tenantID, appID)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	var remaining int64
	require.NoError(t, db.Model(&domain.WorkflowArchiveLog{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
}

func TestDeleteArchivedRunFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only the app's objects", func(t *testing.T) {
		archiveStore := storage.NewMemoryStore()
		task := NewRemoveAppTask(newTestDB(t), storage.NewMemoryStore(), archiveStore, newTestLogger())

		tenantID := uuid.NewString()
		appID := uuid.NewString()
		mine := fmt.Sprintf("%s/app_id=%s/workflow_run_id=%s/runs.jsonl", tenantID, appID, uuid.NewString())
		other := fmt.Sprintf("%s/app_id=%s/workflow_run_id=%s/runs.jsonl", tenantID, uuid.NewString(), uuid.NewString())
		require.NoError(t, archiveStore.Store(ctx, mine, []byte("{}")))
		require.NoError(t, archiveStore.Store(ctx, other, []byte("{}")))

		task.DeleteArchivedRunFiles(ctx, tenantID, appID)

		_, err := archiveStore.Load(ctx, mine)
		assert.ErrorIs(t, err, ports.ErrObjectNotFound)
		_, err = archiveStore.Load(ctx, other)
		assert.NoError(t, err)
	})

	t.Run("missing archive store is skipped", func(t *testing.T) {
		task := NewRemoveAppTask(newTestDB(t), storage.NewMemoryStore(), nil, newTestLogger())
		task.DeleteArchivedRunFiles(ctx, uuid.NewString(), uuid.NewString())
	})
}
