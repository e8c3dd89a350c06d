package models

import "time"

// CalendarFeed is an external ICS subscription whose busy events are synced
// into the owner's date overrides
type CalendarFeed struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"user_id" db:"user_id" validate:"required"`
	Name         string     `json:"name" db:"name" validate:"max=64"`
	URL          string     `json:"url" db:"url" validate:"required,http_url"`
	LastSyncedAt *time.Time `json:"last_synced_at" db:"last_synced_at"`
	LastError    string     `json:"last_error" db:"last_error"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// SyncReport summarizes one calendar sync run
type SyncReport struct {
	Users        int `json:"users"`
	Feeds        int `json:"feeds"`
	FailedFeeds  int `json:"failed_feeds"`
	BusySlots    int `json:"busy_slots"`
	StaleRemoved int `json:"stale_removed"`
}
