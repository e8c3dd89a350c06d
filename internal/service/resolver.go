package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

type patternKey struct {
	dayOfWeek int
	block     timeslot.TimeBlock
}

// ResolveEffectiveAvailability returns one cell per (date, time block) in
// [start, end] for userID, as seen by viewerID. Cells come in date order and
// morning, afternoon, evening within a date.
//
// Precedence per cell: travel, then a date override, then the weekly
// pattern, then unavailable with source "pattern".
func (s *Service) ResolveEffectiveAvailability(ctx context.Context, viewerID, userID int64, start, end timeslot.Date) ([]models.EffectiveCell, error) {
	rng := timeslot.Range{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	if err := s.CanViewAvailability(ctx, viewerID, userID); err != nil {
		return nil, err
	}

	return s.resolve(ctx, userID, rng)
}

// resolve skips the access check. Callers must have established visibility.
func (s *Service) resolve(ctx context.Context, userID int64, rng timeslot.Range) (cells []models.EffectiveCell, err error) {
	defer func(begin time.Time) { s.metrics.ObserveResolve(begin, err) }(time.Now())

	var (
		patterns  []models.WeeklyPatternEntry
		overrides []models.DateOverride
		travel    []models.TravelPeriod
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patterns, err = s.Availability.ListPatterns(gctx, userID)
		return errors.Wrapf(err, "listing weekly patterns of user %d", userID)
	})
	g.Go(func() error {
		var err error
		overrides, err = s.Availability.ListOverrides(gctx, userID, rng)
		return errors.Wrapf(err, "listing date overrides of user %d", userID)
	})
	g.Go(func() error {
		var err error
		travel, err = s.Availability.ListTravel(gctx, userID, rng)
		return errors.Wrapf(err, "listing travel periods of user %d", userID)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return resolveCells(rng, patterns, overrides, travel), nil
}

// resolveCells merges the three layers for rng. It is pure and performs no
// I/O; layer rows outside rng are ignored.
func resolveCells(
	rng timeslot.Range,
	patterns []models.WeeklyPatternEntry,
	overrides []models.DateOverride,
	travel []models.TravelPeriod,
) []models.EffectiveCell {
	travelDates := set.New[timeslot.Date](rng.Days())
	for _, t := range travel {
		from, to := t.StartDate, t.EndDate
		if from.Before(rng.Start) {
			from = rng.Start
		}
		if to.After(rng.End) {
			to = rng.End
		}
		for d := from; !d.After(to); d = d.AddDays(1) {
			travelDates.Insert(d)
		}
	}

	bySlot := make(map[timeslot.Slot]bool, len(overrides))
	for _, o := range overrides {
		bySlot[o.Slot()] = o.IsAvailable
	}

	byWeekday := make(map[patternKey]bool, len(patterns))
	for _, p := range patterns {
		byWeekday[patternKey{p.DayOfWeek, p.TimeBlock}] = p.IsAvailable
	}

	cells := make([]models.EffectiveCell, 0, rng.Days()*len(timeslot.Blocks))
	for _, slot := range rng.Slots() {
		cell := models.EffectiveCell{Date: slot.Date, TimeBlock: slot.Block, Source: models.CellSourcePattern}

		if travelDates.Contains(slot.Date) {
			cell.Source = models.CellSourceTravel
		} else if avail, ok := bySlot[slot]; ok {
			cell.IsAvailable = avail
			cell.Source = models.CellSourceSlot
		} else if avail, ok := byWeekday[patternKey{slot.Date.Weekday(), slot.Block}]; ok {
			cell.IsAvailable = avail
		}

		cells = append(cells, cell)
	}

	return cells
}
