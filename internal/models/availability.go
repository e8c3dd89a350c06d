package models

import (
	"time"

	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// OverrideSource tags who wrote a date override
type OverrideSource string

const (
	OverrideSourceManual OverrideSource = "manual"
	// OverrideSourceCalendar rows are owned by the calendar sync job, which
	// replaces them wholesale on every run.
	OverrideSourceCalendar OverrideSource = "gcal"
)

// CellSource names the layer that decided an effective cell
type CellSource string

const (
	CellSourceTravel  CellSource = "travel"
	CellSourceSlot    CellSource = "slot"
	CellSourcePattern CellSource = "pattern"
)

// WeeklyPatternEntry is a recurring availability rule keyed by day of week
// (0 = Sunday) and time block.
type WeeklyPatternEntry struct {
	UserID      int64              `json:"user_id" db:"user_id" validate:"required"`
	DayOfWeek   int                `json:"day_of_week" db:"day_of_week" validate:"min=0,max=6"`
	TimeBlock   timeslot.TimeBlock `json:"time_block" db:"time_block" validate:"required,oneof=morning afternoon evening"`
	IsAvailable bool               `json:"is_available" db:"is_available"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

// DateOverride is a one-off availability value for a specific date and block
type DateOverride struct {
	UserID      int64              `json:"user_id" db:"user_id" validate:"required"`
	Date        timeslot.Date      `json:"date" db:"date"`
	TimeBlock   timeslot.TimeBlock `json:"time_block" db:"time_block" validate:"required,oneof=morning afternoon evening"`
	IsAvailable bool               `json:"is_available" db:"is_available"`
	Source      OverrideSource     `json:"source" db:"source" validate:"required,oneof=manual gcal"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

func (o DateOverride) Slot() timeslot.Slot {
	return timeslot.Slot{Date: o.Date, Block: o.TimeBlock}
}

// TravelPeriod marks the user unavailable for every block of every date in
// [StartDate, EndDate]. Periods may overlap each other.
type TravelPeriod struct {
	ID        int64         `json:"id" db:"id"`
	UserID    int64         `json:"user_id" db:"user_id" validate:"required"`
	StartDate timeslot.Date `json:"start_date" db:"start_date"`
	EndDate   timeslot.Date `json:"end_date" db:"end_date"`
	Label     string        `json:"label,omitempty" db:"label" validate:"max=120"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Covers reports whether d falls inside the period, both ends included.
func (t TravelPeriod) Covers(d timeslot.Date) bool {
	return !d.Before(t.StartDate) && !d.After(t.EndDate)
}

func (t TravelPeriod) Range() timeslot.Range {
	return timeslot.Range{Start: t.StartDate, End: t.EndDate}
}

// EffectiveCell is the resolved availability of one user for one slot. It is
// derived on every query and never stored.
type EffectiveCell struct {
	Date        timeslot.Date      `json:"date"`
	TimeBlock   timeslot.TimeBlock `json:"time_block"`
	IsAvailable bool               `json:"is_available"`
	Source      CellSource         `json:"source"`
}

func (c EffectiveCell) Slot() timeslot.Slot {
	return timeslot.Slot{Date: c.Date, Block: c.TimeBlock}
}

// BusyInterval is a busy span reported by an external calendar
type BusyInterval struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Summary string    `json:"summary,omitempty"`
}
