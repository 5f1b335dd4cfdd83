package retention

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/core/postgres/repository"
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
		&domain.WorkflowRun{},
		&domain.WorkflowPause{},
		&domain.WorkflowPauseReason{},
		&domain.WorkflowNodeExecution{},
		&domain.WorkflowNodeExecutionOffload{},
		&domain.WorkflowTriggerLog{},
		&domain.WorkflowAppLog{},
		&domain.WorkflowArchiveLog{},
	))
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type deletionFixture struct {
	db           *gorm.DB
	store        *storage.MemoryStore
	archiveStore *storage.MemoryStore
	runRepo      ports.WorkflowRunRepository
	nodeExecs    ports.NodeExecutionStrategy
	triggerLogs  ports.TriggerLogStrategy
}

func newDeletionFixture(t *testing.T) *deletionFixture {
	db := newTestDB(t)
	store := storage.NewMemoryStore()
	logger := newTestLogger()
	return &deletionFixture{
		db:           db,
		store:        store,
		archiveStore: storage.NewMemoryStore(),
		runRepo:      repository.NewWorkflowRunRepository(db, store, logger),
		nodeExecs:    repository.NewNodeExecutionRepository(db, store, logger),
		triggerLogs:  repository.NewTriggerLogRepository(db),
	}
}

func (f *deletionFixture) newDeleter(t *testing.T, opts ...DeletionOption) *ArchivedWorkflowRunDeletion {
	t.Helper()
	return NewArchivedWorkflowRunDeletion(f.runRepo, f.nodeExecs, f.triggerLogs, newTestLogger(), opts...)
}

func (f *deletionFixture) createArchivedRun(t *testing.T, createdAt time.Time) *domain.WorkflowRun {
	t.Helper()
	run := domain.NewWorkflowRun(uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString(), domain.CreatorRoleAccount)
	run.Status = domain.WorkflowRunSucceeded
	run.CreatedAt = createdAt
	require.NoError(t, f.db.Create(run).Error)
	require.NoError(t, f.db.Create(domain.NewWorkflowArchiveLog(run)).Error)
	return run
}

func TestDeleteByRunID(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("missing run reports a structured failure", func(t *testing.T) {
		f := newDeletionFixture(t)
		deleter := f.newDeleter(t)
		runID := uuid.NewString()

		result := deleter.DeleteByRunID(ctx, runID)
		assert.False(t, result.Success)
		assert.Equal(t, fmt.Sprintf("Workflow run %s not found", runID), result.Error)
	})

	t.Run("unarchived run is refused", func(t *testing.T) {
		f := newDeletionFixture(t)
		deleter := f.newDeleter(t)
		run := domain.NewWorkflowRun(uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString(), domain.CreatorRoleAccount)
		run.Status = domain.WorkflowRunSucceeded
		require.NoError(t, f.db.Create(run).Error)

		result := deleter.DeleteByRunID(ctx, run.ID)
		assert.False(t, result.Success)
		assert.Equal(t, fmt.Sprintf("Workflow run %s is not archived", run.ID), result.Error)

		var remaining int64
		require.NoError(t, f.db.Model(&domain.WorkflowRun{}).Count(&remaining).Error)
		assert.EqualValues(t, 1, remaining)
	})

	t.Run("deletes an archived run and its archive files", func(t *testing.T) {
		f := newDeletionFixture(t)
		run := f.createArchivedRun(t, base)
		require.NoError(t, f.db.Create(domain.NewWorkflowAppLog(run, "service-api")).Error)

		archiveKey := fmt.Sprintf("%s/app_id=%s/workflow_run_id=%s/runs.jsonl", run.TenantID, run.AppID, run.ID)
		require.NoError(t, f.archiveStore.Store(ctx, archiveKey, []byte("{}")))

		deleter := f.newDeleter(t, WithArchiveStore(f.archiveStore))
		result := deleter.DeleteByRunID(ctx, run.ID)
		require.True(t, result.Success, result.Error)
		assert.Equal(t, 1, result.DeletedCounts.Runs)
		assert.Equal(t, 1, result.DeletedCounts.AppLogs)

		_, err := f.archiveStore.Load(ctx, archiveKey)
		assert.ErrorIs(t, err, ports.ErrObjectNotFound)
	})

	t.Run("dry run counts without deleting", func(t *testing.T) {
		f := newDeletionFixture(t)
		run := f.createArchivedRun(t, base)

		deleter := f.newDeleter(t, WithDryRun(true))
		result := deleter.DeleteByRunID(ctx, run.ID)
		require.True(t, result.Success)
		assert.Equal(t, 1, result.DeletedCounts.Runs)

		var remaining int64
		require.NoError(t, f.db.Model(&domain.WorkflowRun{}).Count(&remaining).Error)
		assert.EqualValues(t, 1, remaining)
	})
}

// failingNodeExecStrategy fails deletion for one specific run and delegates
// everything else.
type failingNodeExecStrategy struct {
	inner     ports.NodeExecutionStrategy
	failRunID string
}

func (s *failingNodeExecStrategy) Count(ctx context.Context, tx *gorm.DB, runs []*domain.WorkflowRun) (int, int, error) {
	return s.inner.Count(ctx, tx, runs)
}

func (s *failingNodeExecStrategy) Delete(ctx context.Context, tx *gorm.DB, runs []*domain.WorkflowRun) (int, int, error) {
	for _, run := range runs {
		if run.ID == s.failRunID {
			return 0, 0, errors.New("simulated storage failure")
		}
	}
	return s.inner.Delete(ctx, tx, runs)
}

func (s *failingNodeExecStrategy) OffloadObjectKeys(ctx context.Context, db *gorm.DB, runs []*domain.WorkflowRun) ([]string, error) {
	return s.inner.OffloadObjectKeys(ctx, db, runs)
}

func (s *failingNodeExecStrategy) DeleteOffloadObjects(ctx context.Context, keys []string) {
	s.inner.DeleteOffloadObjects(ctx, keys)
}

func TestDeleteBatch(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("skips unarchived runs", func(t *testing.T) {
		f := newDeletionFixture(t)
		archived := f.createArchivedRun(t, base)
		unarchived := domain.NewWorkflowRun(archived.TenantID, uuid.NewString(), uuid.NewString(), uuid.NewString(), domain.CreatorRoleAccount)
		unarchived.Status = domain.WorkflowRunSucceeded
		unarchived.CreatedAt = base.Add(time.Hour)
		require.NoError(t, f.db.Create(unarchived).Error)

		deleter := f.newDeleter(t)
		results, err := deleter.DeleteBatch(ctx, nil, base.AddDate(0, 0, -1), base.AddDate(0, 0, 1), 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, archived.ID, results[0].RunID)
		assert.True(t, results[0].Success)

		var remaining int64
		require.NoError(t, f.db.Model(&domain.WorkflowRun{}).Count(&remaining).Error)
		assert.EqualValues(t, 1, remaining)
	})

	t.Run("one failing run does not abort or roll back the rest", func(t *testing.T) {
		f := newDeletionFixture(t)
		var runs []*domain.WorkflowRun
		for i := 0; i < 3; i++ {
			runs = append(runs, f.createArchivedRun(t, base.Add(time.Duration(i)*time.Minute)))
		}

		f.nodeExecs = &failingNodeExecStrategy{inner: f.nodeExecs, failRunID: runs[1].ID}
		deleter := f.newDeleter(t)

		results, err := deleter.DeleteBatch(ctx, nil, base.AddDate(0, 0, -1), base.AddDate(0, 0, 1), 10)
		require.NoError(t, err)
		require.Len(t, results, 3)

		outcomes := make(map[string]DeletionResult, len(results))
		for _, result := range results {
			outcomes[result.RunID] = result
		}
		assert.True(t, outcomes[runs[0].ID].Success)
		assert.True(t, outcomes[runs[2].ID].Success)
		assert.False(t, outcomes[runs[1].ID].Success)
		assert.Contains(t, outcomes[runs[1].ID].Error, "simulated storage failure")

		var surviving []domain.WorkflowRun
		require.NoError(t, f.db.Find(&surviving).Error)
		require.Len(t, surviving, 1)
		assert.Equal(t, runs[1].ID, surviving[0].ID)
	})

	t.Run("respects the batch limit", func(t *testing.T) {
		f := newDeletionFixture(t)
		for i := 0; i < 5; i++ {
			f.createArchivedRun(t, base.Add(time.Duration(i)*time.Minute))
		}

		deleter := f.newDeleter(t)
		results, err := deleter.DeleteBatch(ctx, nil, base.AddDate(0, 0, -1), base.AddDate(0, 0, 1), 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		var remaining int64
		require.NoError(t, f.db.Model(&domain.WorkflowRun{}).Count(&remaining).Error)
		assert.EqualValues(t, 3, remaining)
	})

	t.Run("tenant filter bounds the walk", func(t *testing.T) {
		f := newDeletionFixture(t)
		mine := f.createArchivedRun(t, base)
		other := f.createArchivedRun(t, base)

		deleter := f.newDeleter(t)
		results, err := deleter.DeleteBatch(ctx, []string{mine.TenantID}, base.AddDate(0, 0, -1), base.AddDate(0, 0, 1), 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, mine.ID, results[0].RunID)

		var surviving domain.WorkflowRun
		require.NoError(t, f.db.First(&surviving, "id = ?", other.ID).Error)
	})
}
