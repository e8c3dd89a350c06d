package timeslot

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidRange is returned when a range starts after it ends.
var ErrInvalidRange = errors.New("invalid date range: start date is after end date")

// Range is an inclusive span of calendar dates.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewRange validates and returns the inclusive range [start, end].
func NewRange(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// ParseRange parses two YYYY-MM-DD strings into a validated range.
func ParseRange(start, end string) (Range, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Range{}, err
	}
	return NewRange(s, e)
}

// Week returns the seven-day range starting at start.
func Week(start Date) Range {
	return Range{Start: start, End: start.AddDays(6)}
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.Wrap(ErrInvalidRange, "range bounds must be set")
	}
	if r.Start.After(r.End) {
		return errors.Wrapf(ErrInvalidRange, "%s is after %s", r.Start, r.End)
	}
	return nil
}

// Days is the number of dates in the range, both ends included.
func (r Range) Days() int {
	if r.Start.After(r.End) {
		return 0
	}
	return r.Start.DaysUntil(r.End) + 1
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether the inclusive ranges share at least one date.
func (r Range) Overlaps(o Range) bool {
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

// Dates lists every date in the range in ascending order.
func (r Range) Dates() []Date {
	out := make([]Date, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Slots lists every (date, block) pair, dates ascending then blocks in day order.
func (r Range) Slots() []Slot {
	out := make([]Slot, 0, r.Days()*len(Blocks))
	for _, d := range r.Dates() {
		for _, b := range Blocks {
			out = append(out, Slot{Date: d, Block: b})
		}
	}
	return out
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Slot identifies one time block on one date.
type Slot struct {
	Date  Date      `json:"date"`
	Block TimeBlock `json:"time_block"`
}

// Key renders the slot as "date|time_block".
func (s Slot) Key() string {
	return s.Date.String() + "|" + string(s.Block)
}

// Less orders slots by date, then by block in day order.
func (s Slot) Less(o Slot) bool {
	if c := s.Date.Compare(o.Date); c != 0 {
		return c < 0
	}
	return s.Block.Index() < o.Block.Index()
}

// SlotsOverlapping returns every slot whose block window intersects the
// closed-open interval [start, end) in loc. Touching boundaries do not count,
// so an interval ending at 12:00 leaves the afternoon block free.
func SlotsOverlapping(start, end time.Time, loc *time.Location) []Slot {
	if !end.After(start) {
		return nil
	}
	loc = orUTC(loc)
	first := DateOf(start.In(loc))
	last := DateOf(end.In(loc))

	var out []Slot
	for d := first; !d.After(last); d = d.AddDays(1) {
		for _, b := range Blocks {
			ws, we := b.Window(d, loc)
			if start.Before(we) && end.After(ws) {
				out = append(out, Slot{Date: d, Block: b})
			}
		}
	}
	return out
}
