package repository

import (
	"context"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// UserRepository defines the interface for user data operations.
// Lookups return (nil, nil) when the user does not exist.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

// FriendshipRepository reads the friend graph
type FriendshipRepository interface {
	ListAcceptedFriendIDs(ctx context.Context, userID int64) ([]int64, error)
	AreFriends(ctx context.Context, userID, otherID int64) (bool, error)
}

// GroupRepository reads group rosters
type GroupRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.Group, error)
	GetMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	ShareGroup(ctx context.Context, userID, otherID int64) (bool, error)
}

// AvailabilityRepository is the Availability Store: weekly patterns, date
// overrides and travel periods, each owned by one user.
type AvailabilityRepository interface {
	ListPatterns(ctx context.Context, userID int64) ([]models.WeeklyPatternEntry, error)
	UpsertPattern(ctx context.Context, entry models.WeeklyPatternEntry) error

	ListOverrides(ctx context.Context, userID int64, r timeslot.Range) ([]models.DateOverride, error)
	UpsertOverride(ctx context.Context, override models.DateOverride) error
	DeleteOverride(ctx context.Context, userID int64, date timeslot.Date, block timeslot.TimeBlock) error

	// ReplaceSyncedOverrides deletes every calendar-sourced override of the
	// user inside window and inserts overrides in their place. Manual rows are
	// never modified; an incoming row that collides with one is dropped.
	ReplaceSyncedOverrides(ctx context.Context, userID int64, window timeslot.Range, overrides []models.DateOverride) error
	// DeleteSyncedOverridesOutside removes calendar-sourced rows outside window
	// and returns how many were removed.
	DeleteSyncedOverridesOutside(ctx context.Context, userID int64, window timeslot.Range) (int64, error)

	// ListTravel returns the periods that intersect r.
	ListTravel(ctx context.Context, userID int64, r timeslot.Range) ([]models.TravelPeriod, error)
	CreateTravel(ctx context.Context, period *models.TravelPeriod) (*models.TravelPeriod, error)
	DeleteTravel(ctx context.Context, userID, id int64) error
}

// CalendarFeedRepository lists the ICS subscriptions the sync job polls
type CalendarFeedRepository interface {
	ListFeeds(ctx context.Context) ([]*models.CalendarFeed, error)
	Create(ctx context.Context, feed *models.CalendarFeed) (*models.CalendarFeed, error)
	UpdateSyncState(ctx context.Context, feed *models.CalendarFeed) error
}
