package service

import (
	"context"

	"flowdeck/internal/core/ports"
	"flowdeck/internal/domain"

	"github.com/sirupsen/logrus"
)

// WorkflowRunService is the application surface over the run aggregate:
// pause, resume, pause cleanup, and lookup. Lifecycle events go out on the
// bus after the repository commits.
type WorkflowRunService interface {
	GetRun(ctx context.Context, runID string) (*domain.WorkflowRun, error)
	GetPause(ctx context.Context, pauseID string) (ports.WorkflowPauseEntity, error)
	PauseRun(ctx context.Context, runID, stateOwnerUserID string, state []byte, reasons []domain.PauseReasonSpec) (ports.WorkflowPauseEntity, error)
	ResumeRun(ctx context.Context, runID string, pause ports.WorkflowPauseEntity) (ports.WorkflowPauseEntity, error)
	DeletePause(ctx context.Context, pause ports.WorkflowPauseEntity) error
}

type workflowRunService struct {
	repo   ports.WorkflowRunRepository
	bus    ports.RunEventBus
	logger *logrus.Logger
}

func NewWorkflowRunService(repo ports.WorkflowRunRepository, bus ports.RunEventBus, logger *logrus.Logger) WorkflowRunService {
	return &workflowRunService{repo: repo, bus: bus, logger: logger}
}

func (s *workflowRunService) GetRun(ctx context.Context, runID string) (*domain.WorkflowRun, error) {
	return s.repo.GetRun(ctx, runID)
}

func (s *workflowRunService) GetPause(ctx context.Context, pauseID string) (ports.WorkflowPauseEntity, error) {
	return s.repo.GetPause(ctx, pauseID)
}

func (s *workflowRunService) PauseRun(ctx context.Context, runID, stateOwnerUserID string, state []byte, reasons []domain.PauseReasonSpec) (ports.WorkflowPauseEntity, error) {
	pause, err := s.repo.CreatePause(ctx, runID, stateOwnerUserID, state, reasons)
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		reasonTypes := make([]domain.PauseReasonType, 0, len(reasons))
		for _, reason := range reasons {
			reasonTypes = append(reasonTypes, reason.Type)
		}
		event := domain.RunPausedEvent{
			WorkflowRunID: runID,
			PauseID:       pause.ID(),
			ReasonTypes:   reasonTypes,
		}
		if err := s.bus.PublishRunPaused(ctx, event); err != nil {
			s.logger.WithError(err).WithField("workflow_run_id", runID).
				Warn("failed to publish run paused event")
		}
	}
	return pause, nil
}

func (s *workflowRunService) ResumeRun(ctx context.Context, runID string, pause ports.WorkflowPauseEntity) (ports.WorkflowPauseEntity, error) {
	resumed, err := s.repo.ResumePause(ctx, runID, pause)
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		event := domain.RunResumedEvent{WorkflowRunID: runID, PauseID: resumed.ID()}
		if err := s.bus.PublishRunResumed(ctx, event); err != nil {
			s.logger.WithError(err).WithField("workflow_run_id", runID).
				Warn("failed to publish run resumed event")
		}
	}
	return resumed, nil
}

func (s *workflowRunService) DeletePause(ctx context.Context, pause ports.WorkflowPauseEntity) error {
	return s.repo.DeletePause(ctx, pause)
}
