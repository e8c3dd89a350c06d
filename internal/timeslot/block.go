package timeslot

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// TimeBlock is a fixed sub-division of a calendar day.
type TimeBlock string

const (
	Morning   TimeBlock = "morning"   // 06:00-12:00
	Afternoon TimeBlock = "afternoon" // 12:00-18:00
	Evening   TimeBlock = "evening"   // 18:00-24:00
)

// Blocks lists every time block in day order.
var Blocks = []TimeBlock{Morning, Afternoon, Evening}

var blockStartHour = map[TimeBlock]int{
	Morning:   6,
	Afternoon: 12,
	Evening:   18,
}

const blockHours = 6

// ParseTimeBlock accepts a block name, case-insensitively.
func ParseTimeBlock(s string) (TimeBlock, error) {
	b := TimeBlock(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", errors.Newf("invalid time block %q, expected morning, afternoon or evening", s)
	}
	return b, nil
}

func (b TimeBlock) Valid() bool {
	_, ok := blockStartHour[b]
	return ok
}

// Index is the position of b in Blocks, or -1 for an unknown block.
func (b TimeBlock) Index() int {
	for i, v := range Blocks {
		if v == b {
			return i
		}
	}
	return -1
}

func (b TimeBlock) String() string { return string(b) }

// Window returns the closed-open local interval b covers on d.
// The evening block ends at the following midnight.
func (b TimeBlock) Window(d Date, loc *time.Location) (start, end time.Time) {
	h := blockStartHour[b]
	start = time.Date(d.year, d.month, d.day, h, 0, 0, 0, orUTC(loc))
	end = time.Date(d.year, d.month, d.day, h+blockHours, 0, 0, 0, orUTC(loc))
	return start, end
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
