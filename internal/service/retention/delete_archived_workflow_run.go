package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"
	"flowdeck/internal/metrics"

	"github.com/sirupsen/logrus"
)

// fetchBatchSize bounds one repository page while walking eligible runs.
const fetchBatchSize = 100

// DeletionResult reports the outcome for a single run. Failures are data,
// not panics: one bad run never aborts the rest of a batch.
type DeletionResult struct {
	RunID         string              `json:"run_id"`
	Success       bool                `json:"success"`
	Error         string              `json:"error,omitempty"`
	DeletedCounts ports.RelatedCounts `json:"deleted_counts"`
}

func failure(runID, message string) DeletionResult {
	return DeletionResult{RunID: runID, Success: false, Error: message}
}

// ArchivedWorkflowRunDeletion removes hot-path rows for runs that have
// already been exported to cold storage. Only runs with an archive log are
// eligible. In dry-run mode it reports what would be deleted and performs
// no writes.
type ArchivedWorkflowRunDeletion struct {
	runRepo      ports.WorkflowRunRepository
	nodeExecs    ports.NodeExecutionStrategy
	triggerLogs  ports.TriggerLogStrategy
	archiveStore ports.BlobStore
	bus          ports.RunEventBus
	metrics      *metrics.Retention
	dryRun       bool
	logger       *logrus.Logger
}

type DeletionOption func(*ArchivedWorkflowRunDeletion)

func WithDryRun(dryRun bool) DeletionOption {
	return func(d *ArchivedWorkflowRunDeletion) { d.dryRun = dryRun }
}

// WithArchiveStore provides the cold store holding archive files. Without
// it, file cleanup is skipped with an info log.
func WithArchiveStore(store ports.BlobStore) DeletionOption {
	return func(d *ArchivedWorkflowRunDeletion) { d.archiveStore = store }
}

func WithEventBus(bus ports.RunEventBus) DeletionOption {
	return func(d *ArchivedWorkflowRunDeletion) { d.bus = bus }
}

func WithMetrics(m *metrics.Retention) DeletionOption {
	return func(d *ArchivedWorkflowRunDeletion) { d.metrics = m }
}

func NewArchivedWorkflowRunDeletion(
	runRepo ports.WorkflowRunRepository,
	nodeExecs ports.NodeExecutionStrategy,
	triggerLogs ports.TriggerLogStrategy,
	logger *logrus.Logger,
	opts ...DeletionOption,
) *ArchivedWorkflowRunDeletion {
	d := &ArchivedWorkflowRunDeletion{
		runRepo:     runRepo,
		nodeExecs:   nodeExecs,
		triggerLogs: triggerLogs,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ArchivedWorkflowRunDeletion) DryRun() bool {
	return d.dryRun
}

// DeleteByRunID deletes one archived run. Missing or unarchived runs come
// back as structured failures so task runners can report them per run.
func (d *ArchivedWorkflowRunDeletion) DeleteByRunID(ctx context.Context, runID string) DeletionResult {
	run, err := d.runRepo.GetRun(ctx, runID)
	if errors.Is(err, domain.ErrWorkflowRunNotFound) {
		return failure(runID, fmt.Sprintf("Workflow run %s not found", runID))
	}
	if err != nil {
		return failure(runID, err.Error())
	}

	archived, err := d.runRepo.GetArchivedRunIDs(ctx, []string{runID})
	if err != nil {
		return failure(runID, err.Error())
	}
	if _, ok := archived[runID]; !ok {
		return failure(runID, fmt.Sprintf("Workflow run %s is not archived", runID))
	}

	return d.deleteRun(ctx, run)
}

// DeleteBatch walks archived terminal runs created within [startDate,
// endDate) for the given tenants, deleting up to limit of them. Each run's
// outcome is isolated; the returned slice mixes successes and failures.
func (d *ArchivedWorkflowRunDeletion) DeleteBatch(ctx context.Context, tenantIDs []string, startDate, endDate time.Time, limit int) ([]DeletionResult, error) {
	var results []DeletionResult
	var cursor *ports.RunCursor

	for len(results) < limit {
		pageSize := fetchBatchSize
		if remaining := limit - len(results); remaining < pageSize {
			pageSize = remaining
		}

		runs, err := d.runRepo.GetRunsBatchByTimeRange(ctx, startDate, endDate, cursor, pageSize, tenantIDs)
		if err != nil {
			return results, err
		}
		if len(runs) == 0 {
			break
		}

		runIDs := make([]string, 0, len(runs))
		for _, run := range runs {
			runIDs = append(runIDs, run.ID)
		}
		archived, err := d.runRepo.GetArchivedRunIDs(ctx, runIDs)
		if err != nil {
			return results, err
		}

		for _, run := range runs {
			cursor = &ports.RunCursor{CreatedAt: run.CreatedAt, ID: run.ID}
			if _, ok := archived[run.ID]; !ok {
				continue
			}
			results = append(results, d.deleteRun(ctx, run))
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

func (d *ArchivedWorkflowRunDeletion) deleteRun(ctx context.Context, run *domain.WorkflowRun) DeletionResult {
	if d.dryRun {
		counts, err := d.runRepo.CountRunsWithRelated(ctx, []*domain.WorkflowRun{run}, d.nodeExecs, d.triggerLogs)
		if err != nil {
			return failure(run.ID, err.Error())
		}
		d.logger.WithFields(logrus.Fields{
			"workflow_run_id": run.ID,
			"tenant_id":       run.TenantID,
		}).Info("dry run: workflow run would be deleted")
		return DeletionResult{RunID: run.ID, Success: true, DeletedCounts: counts}
	}

	counts, err := d.runRepo.DeleteRunsWithRelated(ctx, []*domain.WorkflowRun{run}, d.nodeExecs, d.triggerLogs)
	if err != nil {
		if d.metrics != nil {
			d.metrics.DeletionFailures.Inc()
		}
		return failure(run.ID, err.Error())
	}

	d.deleteArchiveFiles(ctx, run)

	if d.bus != nil {
		event := domain.RunDeletedEvent{WorkflowRunID: run.ID, TenantID: run.TenantID}
		if err := d.bus.PublishRunDeleted(ctx, event); err != nil {
			d.logger.WithError(err).WithField("workflow_run_id", run.ID).
				Warn("failed to publish run deleted event")
		}
	}
	if d.metrics != nil {
		d.metrics.Observe(counts)
	}

	d.logger.WithFields(logrus.Fields{
		"workflow_run_id": run.ID,
		"tenant_id":       run.TenantID,
		"runs":            counts.Runs,
		"node_executions": counts.NodeExecutions,
	}).Info("deleted archived workflow run")

	return DeletionResult{RunID: run.ID, Success: true, DeletedCounts: counts}
}

// deleteArchiveFiles removes the run's cold-storage objects, best-effort.
// Listing failures are logged and skipped; the relational deletion already
// succeeded and must still be reported as such.
func (d *ArchivedWorkflowRunDeletion) deleteArchiveFiles(ctx context.Context, run *domain.WorkflowRun) {
	if d.archiveStore == nil {
		d.logger.WithField("workflow_run_id", run.ID).
			Info("Archive storage not configured, skipping archive file cleanup")
		return
	}

	prefix := fmt.Sprintf("%s/app_id=%s/workflow_run_id=%s/", run.TenantID, run.AppID, run.ID)
	keys, err := d.archiveStore.List(ctx, prefix)
	if err != nil {
		d.logger.WithError(err).WithField("workflow_run_id", run.ID).
			Error("Failed to list archive files for workflow run")
		return
	}
	deleted := 0
	for _, key := range keys {
		if err := d.archiveStore.Delete(ctx, key); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			d.logger.WithError(err).WithField("key", key).Warn("failed to delete archive object")
			continue
		}
		deleted++
	}
	if deleted > 0 {
		d.logger.WithFields(logrus.Fields{
			"workflow_run_id": run.ID,
			"objects":         deleted,
		}).Info("deleted archive objects for workflow run")
	}
}
