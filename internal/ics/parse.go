// Package ics reads external iCalendar feeds and turns their events into
// busy intervals.
package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/cockroachdb/errors"
)

const (
	dateLayout     = "20060102"
	utcLayout      = "20060102T150405Z"
	floatingLayout = "20060102T150405"
)

// Event is a VEVENT reduced to what busy-time expansion needs.
type Event struct {
	UID     string
	Summary string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID is set when the event replaces one instance of a
	// recurring series with the same UID.
	RecurrenceID *time.Time

	Transparent bool
	Cancelled   bool
}

// Busy reports whether the event blocks time on its owner's calendar.
func (e Event) Busy() bool {
	return !e.Transparent && !e.Cancelled
}

// Parse reads every VEVENT of an ICS payload. Events without a usable
// DTSTART are skipped.
func Parse(body []byte) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parsing calendar")
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, ok := parseEvent(ve)
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func parseEvent(ve *ical.VEvent) (Event, bool) {
	var ev Event

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyTransp); p != nil {
		ev.Transparent = strings.EqualFold(strings.TrimSpace(p.Value), "TRANSPARENT")
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		ev.Cancelled = strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED")
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, false
	}
	ev.AllDay = isDateValue(dtStart)

	if ev.AllDay {
		start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(dtStart.Value), time.UTC)
		if err != nil {
			return ev, false
		}
		ev.Start = start
		ev.End = start.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(dtEnd.Value), time.UTC); err == nil && end.After(start) {
				ev.End = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return ev, false
		}
		ev.Start = start
		ev.End = start
		if end, err := ve.GetEndAt(); err == nil && end.After(start) {
			ev.End = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = strings.TrimSpace(p.Value)
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := propLocation(p, ev.Start.Location())
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTime(strings.TrimSpace(part), loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseTime(strings.TrimSpace(p.Value), propLocation(p, ev.Start.Location())); err == nil {
			ev.RecurrenceID = &t
		}
	}

	return ev, true
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// propLocation resolves the TZID parameter of p, falling back to def.
func propLocation(p *ical.IANAProperty, def *time.Location) *time.Location {
	if tz, ok := p.ICalParameters["TZID"]; ok && len(tz) > 0 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	if def == nil {
		return time.UTC
	}
	return def
}

// parseTime handles the DATE, UTC DATE-TIME and floating DATE-TIME forms
// used by EXDATE and RECURRENCE-ID.
func parseTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse(utcLayout, v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation(floatingLayout, v, loc)
	default:
		return time.ParseInLocation(dateLayout, v, time.UTC)
	}
}
