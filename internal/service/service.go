package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/metrics"
	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

const (
	defaultOverlapConcurrency = 8
	defaultSyncWindowDays     = 28
)

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	// Location is the zone time blocks and "today" are evaluated in.
	Location *time.Location
	// OverlapConcurrency bounds the number of resolver calls in flight
	// during one overlap computation.
	OverlapConcurrency int
	// SyncWindowDays is the length of the calendar sync window starting today.
	SyncWindowDays int
	Metrics        *metrics.Metrics
	// Now is used instead of time.Now when set.
	Now func() time.Time
}

// Repositories groups the stores the service reads and writes.
type Repositories struct {
	Users        repository.UserRepository
	Friendships  repository.FriendshipRepository
	Groups       repository.GroupRepository
	Availability repository.AvailabilityRepository
	Feeds        repository.CalendarFeedRepository
}

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application.
type Service struct {
	logger   *logrus.Logger
	validate *validator.Validate
	metrics  *metrics.Metrics
	opts     Options

	Users        repository.UserRepository
	Friendships  repository.FriendshipRepository
	Groups       repository.GroupRepository
	Availability repository.AvailabilityRepository
	Feeds        repository.CalendarFeedRepository

	parser  Parser
	fetcher FeedFetcher
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, opts Options, repos Repositories) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.OverlapConcurrency <= 0 {
		opts.OverlapConcurrency = defaultOverlapConcurrency
	}
	if opts.SyncWindowDays <= 0 {
		opts.SyncWindowDays = defaultSyncWindowDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &Service{
		logger:       logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		metrics:      m,
		opts:         opts,
		Users:        repos.Users,
		Friendships:  repos.Friendships,
		Groups:       repos.Groups,
		Availability: repos.Availability,
		Feeds:        repos.Feeds,
	}
}

// SetParser wires the natural-language availability parser.
func (s *Service) SetParser(p Parser) { s.parser = p }

// SetFeedFetcher wires the ICS fetcher used by the calendar sync job.
func (s *Service) SetFeedFetcher(f FeedFetcher) { s.fetcher = f }

// Location returns the zone the service evaluates dates in.
func (s *Service) Location() *time.Location { return s.opts.Location }

func (s *Service) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// Today is the current date in the service location.
func (s *Service) Today() timeslot.Date { return timeslot.DateOf(s.now()) }

// EnsureUser retrieves an existing user by Telegram ID, or creates a new one
// if not found. If the user already exists but their profile information has
// changed (username, first name, last name), it updates the record.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	user, err := s.Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user (telegram_id=%d): %w", telegramID, err)
	}
	if user == nil {
		tgID := telegramID
		user, err = s.Users.Create(ctx, &models.User{
			TelegramID:       &tgID,
			TelegramUsername: username,
			FirstName:        firstName,
			LastName:         lastName,
			IsActive:         true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create user (telegram_id=%d): %w", telegramID, err)
		}
		s.logger.Infof("Created new user: %s (telegram_id=%d)", user.DisplayName(), telegramID)
		return user, nil
	}

	needsUpdate := false
	if user.TelegramUsername != username {
		user.TelegramUsername = username
		needsUpdate = true
	}
	if user.FirstName != firstName {
		user.FirstName = firstName
		needsUpdate = true
	}
	if user.LastName != lastName {
		user.LastName = lastName
		needsUpdate = true
	}

	if needsUpdate {
		user, err = s.Users.Update(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to update user (telegram_id=%d): %w", telegramID, err)
		}
		s.logger.Infof("Updated user profile: %s (telegram_id=%d)", user.DisplayName(), telegramID)
	}

	return user, nil
}

// GroupMembers returns the roster of a group the viewer belongs to.
func (s *Service) GroupMembers(ctx context.Context, viewerID, groupID int64) (*models.Group, error) {
	group, err := s.Groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", groupID, err)
	}
	if group == nil {
		return nil, models.ErrUnknownGroup
	}

	ids, err := s.Groups.GetMemberIDs(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members for group %d: %w", groupID, err)
	}
	group.MemberIDs = ids

	for _, id := range ids {
		if id == viewerID {
			return group, nil
		}
	}
	return nil, models.ErrAccessDenied
}

// GroupForChat returns the group bound to a Telegram chat, with the same
// membership check as GroupMembers.
func (s *Service) GroupForChat(ctx context.Context, viewerID, chatID int64) (*models.Group, error) {
	group, err := s.Groups.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group for chat %d: %w", chatID, err)
	}
	if group == nil {
		return nil, models.ErrUnknownGroup
	}
	return s.GroupMembers(ctx, viewerID, group.ID)
}
