package models

import "github.com/Kerhoff/FreeSlot/internal/timeslot"

// ParsedAvailability is the structured payload the natural-language parser
// returns for a free-text availability description.
type ParsedAvailability struct {
	Summary string       `json:"summary"`
	Slots   []ParsedSlot `json:"slots"`
	Trips   []ParsedTrip `json:"trips"`
}

type ParsedSlot struct {
	Date        timeslot.Date      `json:"date"`
	TimeBlock   timeslot.TimeBlock `json:"time_block"`
	IsAvailable bool               `json:"is_available"`
}

type ParsedTrip struct {
	StartDate timeslot.Date `json:"start_date"`
	EndDate   timeslot.Date `json:"end_date"`
	Label     string        `json:"label,omitempty"`
}

// ApplyReport counts what ApplyParsedAvailability wrote.
type ApplyReport struct {
	Summary      string `json:"summary"`
	SlotsWritten int    `json:"slots_written"`
	TripsCreated int    `json:"trips_created"`
}
