package models

import (
	"sort"

	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// OverlapSlot is a slot where at least two participants are free.
// AvailableCount always equals len(AvailableUserIDs).
type OverlapSlot struct {
	Date             timeslot.Date      `json:"date"`
	TimeBlock        timeslot.TimeBlock `json:"time_block"`
	AvailableUserIDs []int64            `json:"available_user_ids"`
	AvailableCount   int                `json:"available_count"`
	AvailableNames   []string           `json:"available_names"`
}

func (o OverlapSlot) Slot() timeslot.Slot {
	return timeslot.Slot{Date: o.Date, Block: o.TimeBlock}
}

// FriendOverlapResult is the sparse pairwise result. Degraded is set when one
// or more participants could not be resolved and were left out of the counts.
type FriendOverlapResult struct {
	Slots    []OverlapSlot `json:"slots"`
	Degraded bool          `json:"degraded"`
	Excluded []int64       `json:"excluded_user_ids,omitempty"`
}

// Top returns at most n slots ordered by count descending, then date and
// block ascending. The receiver is left untouched.
func (r *FriendOverlapResult) Top(n int) []OverlapSlot {
	out := make([]OverlapSlot, len(r.Slots))
	copy(out, r.Slots)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvailableCount != out[j].AvailableCount {
			return out[i].AvailableCount > out[j].AvailableCount
		}
		return out[i].Slot().Less(out[j].Slot())
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// GroupOverlay is the dense heatmap result: one count per "date|time_block"
// key in the requested range, zeros included.
type GroupOverlay struct {
	Counts   map[string]int `json:"counts"`
	Members  int            `json:"members"`
	Degraded bool           `json:"degraded"`
	Excluded []int64        `json:"excluded_user_ids,omitempty"`
}

// Count returns the number of free members for a slot.
func (g *GroupOverlay) Count(s timeslot.Slot) int {
	return g.Counts[s.Key()]
}
