package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/ics"
	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// FeedFetcher downloads the raw ICS payload of a calendar feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// SyncWindow is the range of dates the calendar sync job owns, starting
// today in the service location.
func (s *Service) SyncWindow() timeslot.Range {
	today := s.Today()
	return timeslot.Range{Start: today, End: today.AddDays(s.opts.SyncWindowDays - 1)}
}

// AddCalendarFeed subscribes userID to an ICS feed. The feed is picked up by
// the next sync run.
func (s *Service) AddCalendarFeed(ctx context.Context, userID int64, name, url string) (*models.CalendarFeed, error) {
	feed := &models.CalendarFeed{UserID: userID, Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)}
	if err := s.validateStruct(feed); err != nil {
		return nil, err
	}

	created, err := s.Feeds.Create(ctx, feed)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to add calendar feed for user %d", userID)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"feed_id": created.ID,
	}).Info("Calendar feed added")
	return created, nil
}

// SyncCalendars pulls every registered feed and rewrites the synced busy
// overrides of each feed owner. A user whose feeds fail keeps their previous
// synced rows; other users are still processed.
func (s *Service) SyncCalendars(ctx context.Context) (*models.SyncReport, error) {
	if s.fetcher == nil {
		return nil, errors.New("no calendar fetcher configured")
	}

	feeds, err := s.Feeds.ListFeeds(ctx)
	if err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "listing calendar feeds")
	}

	var userIDs []int64
	byUser := make(map[int64][]*models.CalendarFeed)
	for _, f := range feeds {
		if _, ok := byUser[f.UserID]; !ok {
			userIDs = append(userIDs, f.UserID)
		}
		byUser[f.UserID] = append(byUser[f.UserID], f)
	}

	window := s.SyncWindow()
	report := &models.SyncReport{Users: len(userIDs), Feeds: len(feeds)}

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			s.metrics.SyncRuns.WithLabelValues("cancelled").Inc()
			return report, err
		}

		res := s.syncUser(ctx, userID, byUser[userID], window)
		report.FailedFeeds += res.failedFeeds
		report.BusySlots += res.busySlots
		report.StaleRemoved += int(res.staleRemoved)
	}

	outcome := "ok"
	if report.FailedFeeds > 0 {
		outcome = "partial"
	}
	s.metrics.SyncRuns.WithLabelValues(outcome).Inc()
	s.metrics.SyncFeedFailures.Add(float64(report.FailedFeeds))
	s.metrics.SyncBusySlots.Add(float64(report.BusySlots))

	s.logger.WithFields(logrus.Fields{
		"users":         report.Users,
		"feeds":         report.Feeds,
		"failed_feeds":  report.FailedFeeds,
		"busy_slots":    report.BusySlots,
		"stale_removed": report.StaleRemoved,
		"window":        window.String(),
	}).Info("Calendar sync finished")

	return report, nil
}

type userSyncResult struct {
	failedFeeds  int
	busySlots    int
	staleRemoved int64
}

func (s *Service) syncUser(ctx context.Context, userID int64, feeds []*models.CalendarFeed, window timeslot.Range) userSyncResult {
	var res userSyncResult
	log := s.logger.WithField("user_id", userID)

	from := window.Start.Time(s.opts.Location)
	to := window.End.AddDays(1).Time(s.opts.Location)

	var intervals []models.BusyInterval
	for _, feed := range feeds {
		busy, err := s.loadFeed(ctx, feed, from, to)
		now := s.opts.Now()
		if err != nil {
			res.failedFeeds++
			feed.LastError = err.Error()
			log.WithField("feed_id", feed.ID).WithError(err).Warn("Calendar feed sync failed")
		} else {
			feed.LastError = ""
			feed.LastSyncedAt = &now
			intervals = append(intervals, busy...)
		}
		if err := s.Feeds.UpdateSyncState(ctx, feed); err != nil {
			log.WithField("feed_id", feed.ID).WithError(err).Error("Failed to record feed sync state")
		}
	}

	if res.failedFeeds > 0 {
		return res
	}

	overrides := BusyOverrides(userID, intervals, window, s.opts.Location)
	if err := s.Availability.ReplaceSyncedOverrides(ctx, userID, window, overrides); err != nil {
		res.failedFeeds = len(feeds)
		log.WithError(err).Error("Failed to replace synced overrides")
		return res
	}
	res.busySlots = len(overrides)

	stale, err := s.Availability.DeleteSyncedOverridesOutside(ctx, userID, window)
	if err != nil {
		log.WithError(err).Error("Failed to delete stale synced overrides")
		return res
	}
	res.staleRemoved = stale

	return res
}

func (s *Service) loadFeed(ctx context.Context, feed *models.CalendarFeed, from, to time.Time) ([]models.BusyInterval, error) {
	body, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching feed %d", feed.ID)
	}

	events, err := ics.Parse(body)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing feed %d", feed.ID)
	}

	return ics.Expand(events, from, to), nil
}

// BusyOverrides converts busy intervals into unavailable calendar overrides
// for every slot they touch inside window. A block is busy as soon as any
// part of an interval falls within it.
func BusyOverrides(userID int64, intervals []models.BusyInterval, window timeslot.Range, loc *time.Location) []models.DateOverride {
	seen := set.New[timeslot.Slot](0)
	var slots []timeslot.Slot
	for _, iv := range intervals {
		for _, slot := range timeslot.SlotsOverlapping(iv.Start, iv.End, loc) {
			if window.Contains(slot.Date) && seen.Insert(slot) {
				slots = append(slots, slot)
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })

	out := make([]models.DateOverride, 0, len(slots))
	for _, slot := range slots {
		out = append(out, models.DateOverride{
			UserID:      userID,
			Date:        slot.Date,
			TimeBlock:   slot.Block,
			IsAvailable: false,
			Source:      models.OverrideSourceCalendar,
		})
	}
	return out
}
