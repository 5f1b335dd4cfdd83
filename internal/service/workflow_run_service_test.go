package service

import (
	"context"
	"testing"

	"flowdeck/internal/core/postgres/repository"
	"flowdeck/internal/domain"
	"flowdeck/internal/infrastructure/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingEventBus struct {
	paused  []domain.RunPausedEvent
	resumed []domain.RunResumedEvent
	deleted []domain.RunDeletedEvent
}

func (b *recordingEventBus) PublishRunPaused(ctx context.Context, event domain.RunPausedEvent) error {
	b.paused = append(b.paused, event)
	return nil
}

func (b *recordingEventBus) PublishRunResumed(ctx context.Context, event domain.RunResumedEvent) error {
	b.resumed = append(b.resumed, event)
	return nil
}

func (b *recordingEventBus) PublishRunDeleted(ctx context.Context, event domain.RunDeletedEvent) error {
	b.deleted = append(b.deleted, event)
	return nil
}

func newRunTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(
		&domain.WorkflowRun{},
		&domain.WorkflowPause{},
		&domain.WorkflowPauseReason{},
	))
	return db
}

func TestWorkflowRunServicePublishesLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	db := newRunTestDB(t)
	store := storage.NewMemoryStore()
	repo := repository.NewWorkflowRunRepository(db, store, newTestLogger())
	bus := &recordingEventBus{}
	svc := NewWorkflowRunService(repo, bus, newTestLogger())

	run := domain.NewWorkflowRun(uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString(), domain.CreatorRoleAccount)
	require.NoError(t, db.Create(run).Error)

	pause, err := svc.PauseRun(ctx, run.ID, uuid.NewString(), []byte("{}"), []domain.PauseReasonSpec{
		{Type: domain.PauseReasonHumanInputRequired},
	})
	require.NoError(t, err)
	require.Len(t, bus.paused, 1)
	assert.Equal(t, run.ID, bus.paused[0].WorkflowRunID)
	assert.Equal(t, pause.ID(), bus.paused[0].PauseID)
	assert.Equal(t, []domain.PauseReasonType{domain.PauseReasonHumanInputRequired}, bus.paused[0].ReasonTypes)

	_, err = svc.ResumeRun(ctx, run.ID, pause)
	require.NoError(t, err)
	require.Len(t, bus.resumed, 1)
	assert.Equal(t, run.ID, bus.resumed[0].WorkflowRunID)

	require.NoError(t, svc.DeletePause(ctx, pause))
	_, err = svc.GetPause(ctx, pause.ID())
	assert.ErrorIs(t, err, domain.ErrWorkflowPauseNotFound)
}

func TestWorkflowRunServiceDoesNotPublishOnFailure(t *testing.T) {
	ctx := context.Background()
	db := newRunTestDB(t)
	repo := repository.NewWorkflowRunRepository(db, storage.NewMemoryStore(), newTestLogger())
	bus := &recordingEventBus{}
	svc := NewWorkflowRunService(repo, bus, newTestLogger())

	run := domain.NewWorkflowRun(uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString(), domain.CreatorRoleAccount)
	run.Status = domain.WorkflowRunFailed
	require.NoError(t, db.Create(run).Error)

	_, err := svc.PauseRun(ctx, run.ID, uuid.NewString(), []byte("{}"), nil)
	require.Error(t, err)
	assert.Empty(t, bus.paused)
}
