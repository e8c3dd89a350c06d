package service

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// Parser turns free text into structured availability. today anchors
// relative phrases such as "next Friday".
type Parser interface {
	Parse(ctx context.Context, text string, today timeslot.Date) (*models.ParsedAvailability, error)
}

// SetPattern records the recurring availability of userID for one weekday
// (0 = Sunday) and block.
func (s *Service) SetPattern(ctx context.Context, userID int64, dayOfWeek int, block timeslot.TimeBlock, available bool) error {
	entry := models.WeeklyPatternEntry{
		UserID:      userID,
		DayOfWeek:   dayOfWeek,
		TimeBlock:   block,
		IsAvailable: available,
	}
	if err := s.validateStruct(entry); err != nil {
		return err
	}

	if err := s.Availability.UpsertPattern(ctx, entry); err != nil {
		return errors.Wrap(err, "saving weekly pattern")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"day_of_week":  dayOfWeek,
		"time_block":   block,
		"is_available": available,
	}).Debug("Weekly pattern updated")
	return nil
}

// SetOverride records a manual availability value for one date and block.
// It takes precedence over the weekly pattern and over synced calendar rows.
func (s *Service) SetOverride(ctx context.Context, userID int64, date timeslot.Date, block timeslot.TimeBlock, available bool) error {
	o := models.DateOverride{
		UserID:      userID,
		Date:        date,
		TimeBlock:   block,
		IsAvailable: available,
		Source:      models.OverrideSourceManual,
	}
	if date.IsZero() {
		return errors.Wrap(models.BadParameterError, "override date is required")
	}
	if err := s.validateStruct(o); err != nil {
		return err
	}

	if err := s.Availability.UpsertOverride(ctx, o); err != nil {
		return errors.Wrap(err, "saving date override")
	}
	return nil
}

// ClearOverride removes the override for one date and block, letting the
// weekly pattern apply again.
func (s *Service) ClearOverride(ctx context.Context, userID int64, date timeslot.Date, block timeslot.TimeBlock) error {
	if !block.Valid() || date.IsZero() {
		return errors.Wrapf(models.BadParameterError, "invalid slot %s %q", date, block)
	}
	if err := s.Availability.DeleteOverride(ctx, userID, date, block); err != nil {
		return errors.Wrap(err, "deleting date override")
	}
	return nil
}

// AddTravel marks userID unavailable for every block from start to end,
// both included.
func (s *Service) AddTravel(ctx context.Context, userID int64, start, end timeslot.Date, label string) (*models.TravelPeriod, error) {
	rng := timeslot.Range{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return nil, errors.Mark(err, models.BadParameterError)
	}

	period := &models.TravelPeriod{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Label:     strings.TrimSpace(label),
	}
	if err := s.validateStruct(period); err != nil {
		return nil, err
	}

	period, err := s.Availability.CreateTravel(ctx, period)
	if err != nil {
		return nil, errors.Wrap(err, "creating travel period")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"travel_id": period.ID,
		"range":     rng.String(),
	}).Info("Travel period added")
	return period, nil
}

// RemoveTravel deletes one of userID's travel periods.
func (s *Service) RemoveTravel(ctx context.Context, userID, travelID int64) error {
	if err := s.Availability.DeleteTravel(ctx, userID, travelID); err != nil {
		return errors.Wrapf(err, "deleting travel period %d", travelID)
	}
	return nil
}

// ParseAndApply runs text through the configured parser and writes the
// result for userID.
func (s *Service) ParseAndApply(ctx context.Context, userID int64, text string) (*models.ApplyReport, error) {
	if s.parser == nil {
		return nil, errors.New("no availability parser configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.Wrap(models.BadParameterError, "text is empty")
	}

	parsed, err := s.parser.Parse(ctx, text, s.Today())
	if err != nil {
		return nil, err
	}

	return s.ApplyParsedAvailability(ctx, userID, parsed)
}

// ApplyParsedAvailability writes every parsed slot as a manual override and
// every parsed trip as a travel period, as given. The first failing write
// stops the run; earlier writes are kept.
func (s *Service) ApplyParsedAvailability(ctx context.Context, userID int64, parsed *models.ParsedAvailability) (*models.ApplyReport, error) {
	report := &models.ApplyReport{}
	if parsed == nil {
		return report, nil
	}
	report.Summary = parsed.Summary

	for _, slot := range parsed.Slots {
		if err := s.SetOverride(ctx, userID, slot.Date, slot.TimeBlock, slot.IsAvailable); err != nil {
			return report, errors.Wrapf(err, "applying parsed slot %s %s", slot.Date, slot.TimeBlock)
		}
		report.SlotsWritten++
	}

	for _, trip := range parsed.Trips {
		if _, err := s.AddTravel(ctx, userID, trip.StartDate, trip.EndDate, trip.Label); err != nil {
			return report, errors.Wrapf(err, "applying parsed trip %s..%s", trip.StartDate, trip.EndDate)
		}
		report.TripsCreated++
	}

	return report, nil
}

// validateStruct runs the struct tags and marks failures as bad parameters.
func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" "+fe.Tag())
		}
		return errors.Wrapf(models.BadParameterError, "invalid %s", strings.Join(fields, ", "))
	}
	return errors.Wrap(err, "validating input")
}
