package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the archived-run deletion on a cron schedule. Each tick
// deletes at most batchLimit runs older than the retention window.
type Scheduler struct {
	cron          *cron.Cron
	deleter       *ArchivedWorkflowRunDeletion
	tenantIDs     []string
	retentionDays int
	batchLimit    int
	logger        *logrus.Logger
}

func NewScheduler(deleter *ArchivedWorkflowRunDeletion, tenantIDs []string, retentionDays, batchLimit int, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		deleter:       deleter,
		tenantIDs:     tenantIDs,
		retentionDays: retentionDays,
		batchLimit:    batchLimit,
		logger:        logger,
	}
}

// Start registers the schedule (cron spec, e.g. "0 3 * * *") and begins
// ticking in the background.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	endDate := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	startDate := time.Unix(0, 0).UTC()

	results, err := s.deleter.DeleteBatch(ctx, s.tenantIDs, startDate, endDate, s.batchLimit)
	if err != nil {
		s.logger.WithError(err).Error("retention batch aborted")
	}

	succeeded, failed := 0, 0
	for _, result := range results {
		if result.Success {
			succeeded++
		} else {
			failed++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"succeeded": succeeded,
		"failed":    failed,
	}).Info("retention batch finished")
}
