package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// StartCalendarSyncScheduler runs SyncCalendars on the given cron schedule
// until ctx is cancelled, so it should be launched in a separate goroutine.
// Overlapping runs are skipped rather than queued.
func (s *Service) StartCalendarSyncScheduler(ctx context.Context, schedule string) error {
	c := cron.New(
		cron.WithLocation(s.opts.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if _, err := c.AddFunc(schedule, func() { s.runCalendarSync(ctx) }); err != nil {
		return errors.Wrapf(err, "invalid sync schedule %q", schedule)
	}

	s.logger.Infof("Calendar sync scheduler started (%s)", schedule)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Calendar sync scheduler stopped")
	return nil
}

func (s *Service) runCalendarSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.SyncCalendars(ctx); err != nil {
		s.logger.WithError(err).Error("Calendar sync failed")
	}
}
