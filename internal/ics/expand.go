package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// maxOccurrences caps the expansion of a single recurring event.
const maxOccurrences = 5000

type instanceKey struct {
	uid   string
	start int64
}

// Expand returns the busy intervals of events that intersect [from, to).
// Recurring events are expanded with their EXDATEs, and instances replaced
// by a RECURRENCE-ID event are taken from the replacement. Transparent and
// cancelled events block nothing, though a cancelled replacement still
// removes the instance it replaces.
//
// All-day events cover whole dates in from's location.
func Expand(events []Event, from, to time.Time) []models.BusyInterval {
	if !to.After(from) {
		return nil
	}
	loc := from.Location()

	replaced := make(map[instanceKey]bool)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			replaced[instanceKey{ev.UID, ev.RecurrenceID.Unix()}] = true
		}
	}

	var out []models.BusyInterval
	add := func(ev Event, start, end time.Time) {
		if ev.AllDay {
			start, end = wholeDays(start, end, loc)
		}
		if start.Before(to) && end.After(from) {
			out = append(out, models.BusyInterval{Start: start, End: end, Summary: ev.Summary})
		}
	}

	for _, ev := range events {
		if !ev.Busy() {
			continue
		}
		if ev.RRule == "" || ev.RecurrenceID != nil {
			add(ev, ev.Start, ev.End)
			continue
		}

		dur := ev.End.Sub(ev.Start)
		for _, start := range occurrences(ev, from, to) {
			if replaced[instanceKey{ev.UID, start.Unix()}] {
				continue
			}
			add(ev, start, start.Add(dur))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// occurrences lists the starts of ev that may intersect [from, to). The
// window is widened so all-day instances stored at UTC midnight and
// instances that started before from are not missed.
func occurrences(ev Event, from, to time.Time) []time.Time {
	opt, err := rrule.StrToROption(ev.RRule)
	if err != nil {
		return []time.Time{ev.Start}
	}
	opt.Dtstart = ev.Start

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return []time.Time{ev.Start}
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	lookBack := ev.End.Sub(ev.Start)
	if ev.AllDay {
		lookBack += 24 * time.Hour
	}
	starts := set.Between(from.Add(-lookBack), to.Add(24*time.Hour), true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}
	return starts
}

// wholeDays re-anchors an all-day span, stored as UTC midnights, onto the
// same calendar dates in loc.
func wholeDays(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	first := timeslot.DateOf(start.UTC())
	days := int(end.Sub(start).Hours()+12) / 24
	if days < 1 {
		days = 1
	}
	return first.Time(loc), first.AddDays(days).Time(loc)
}
