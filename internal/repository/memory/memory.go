// Package memory is an in-process implementation of the repository
// interfaces. It backs STORE=memory deployments and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

type patternKey struct {
	userID    int64
	dayOfWeek int
	block     timeslot.TimeBlock
}

type overrideKey struct {
	userID int64
	slot   timeslot.Slot
}

// Store holds all tables behind a single lock.
type Store struct {
	mu sync.RWMutex

	nextID int64

	users       map[int64]*models.User
	friendships []models.Friendship
	groups      map[int64]*models.Group
	members     map[int64][]int64
	patterns    map[patternKey]models.WeeklyPatternEntry
	overrides   map[overrideKey]models.DateOverride
	travel      map[int64]models.TravelPeriod
	feeds       map[int64]*models.CalendarFeed

	Users        repository.UserRepository
	Friendships  repository.FriendshipRepository
	Groups       repository.GroupRepository
	Availability repository.AvailabilityRepository
	Feeds        repository.CalendarFeedRepository
}

// New returns an empty store.
func New() *Store {
	s := &Store{
		users:     make(map[int64]*models.User),
		groups:    make(map[int64]*models.Group),
		members:   make(map[int64][]int64),
		patterns:  make(map[patternKey]models.WeeklyPatternEntry),
		overrides: make(map[overrideKey]models.DateOverride),
		travel:    make(map[int64]models.TravelPeriod),
		feeds:     make(map[int64]*models.CalendarFeed),
	}
	s.Users = &userRepository{s}
	s.Friendships = &friendshipRepository{s}
	s.Groups = &groupRepository{s}
	s.Availability = &availabilityRepository{s}
	s.Feeds = &feedRepository{s}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ---------------------------------------------------------------------------
// Seeding helpers for the social graph, which has no write API in the core
// ---------------------------------------------------------------------------

// AddUser stores a user with a fresh ID and returns it.
func (s *Store) AddUser(firstName string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	u := &models.User{ID: s.id(), FirstName: firstName, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return u
}

// Befriend records an accepted friendship between two users.
func (s *Store) Befriend(userID, friendID int64) {
	s.addFriendship(userID, friendID, models.FriendshipAccepted)
}

// RequestFriendship records a pending friendship.
func (s *Store) RequestFriendship(userID, friendID int64) {
	s.addFriendship(userID, friendID, models.FriendshipPending)
}

func (s *Store) addFriendship(userID, friendID int64, status models.FriendshipStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friendships = append(s.friendships, models.Friendship{
		ID: s.id(), UserID: userID, FriendID: friendID, Status: status, CreatedAt: time.Now(),
	})
}

// AddGroup creates a group with the given members.
func (s *Store) AddGroup(name string, chatID *int64, memberIDs ...int64) *models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	g := &models.Group{ID: s.id(), ChatID: chatID, Name: name, CreatedAt: now, UpdatedAt: now}
	s.groups[g.ID] = g
	s.members[g.ID] = append([]int64(nil), memberIDs...)
	return g
}

// AddGroupMember adds userID to an existing group if not already present.
func (s *Store) AddGroupMember(groupID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.members[groupID] {
		if id == userID {
			return
		}
	}
	s.members[groupID] = append(s.members[groupID], userID)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	cp := *user
	cp.ID = r.s.id()
	cp.IsActive = true
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return nil, fmt.Errorf("failed to update user: %w", models.ErrUnknownUser)
	}
	cp := *user
	cp.UpdatedAt = time.Now()
	r.s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

// ---------------------------------------------------------------------------
// Friendships & groups
// ---------------------------------------------------------------------------

type friendshipRepository struct{ s *Store }

func (r *friendshipRepository) ListAcceptedFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []int64
	for _, f := range r.s.friendships {
		if f.Status != models.FriendshipAccepted || (f.UserID != userID && f.FriendID != userID) {
			continue
		}
		ids = append(ids, f.Other(userID))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *friendshipRepository) AreFriends(ctx context.Context, userID, otherID int64) (bool, error) {
	ids, err := r.ListAcceptedFriendIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == otherID {
			return true, nil
		}
	}
	return false, nil
}

type groupRepository struct{ s *Store }

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.MemberIDs = append([]int64(nil), r.s.members[id]...)
	return &cp, nil
}

func (r *groupRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, g := range r.s.groups {
		if g.ChatID != nil && *g.ChatID == chatID {
			cp := *g
			cp.MemberIDs = append([]int64(nil), r.s.members[g.ID]...)
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *groupRepository) GetMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]int64(nil), r.s.members[groupID]...), nil
}

func (r *groupRepository) ShareGroup(ctx context.Context, userID, otherID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ids := range r.s.members {
		var hasUser, hasOther bool
		for _, id := range ids {
			hasUser = hasUser || id == userID
			hasOther = hasOther || id == otherID
		}
		if hasUser && hasOther {
			return true, nil
		}
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// Availability
// ---------------------------------------------------------------------------

type availabilityRepository struct{ s *Store }

func (r *availabilityRepository) ListPatterns(ctx context.Context, userID int64) ([]models.WeeklyPatternEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.WeeklyPatternEntry
	for k, e := range r.s.patterns {
		if k.userID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].TimeBlock.Index() < out[j].TimeBlock.Index()
	})
	return out, nil
}

func (r *availabilityRepository) UpsertPattern(ctx context.Context, entry models.WeeklyPatternEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.UpdatedAt = time.Now()
	r.s.patterns[patternKey{entry.UserID, entry.DayOfWeek, entry.TimeBlock}] = entry
	return nil
}

func (r *availabilityRepository) ListOverrides(ctx context.Context, userID int64, rng timeslot.Range) ([]models.DateOverride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.DateOverride
	for k, o := range r.s.overrides {
		if k.userID == userID && rng.Contains(o.Date) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot().Less(out[j].Slot()) })
	return out, nil
}

func (r *availabilityRepository) UpsertOverride(ctx context.Context, o models.DateOverride) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.UpdatedAt = time.Now()
	r.s.overrides[overrideKey{o.UserID, o.Slot()}] = o
	return nil
}

func (r *availabilityRepository) DeleteOverride(ctx context.Context, userID int64, date timeslot.Date, block timeslot.TimeBlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.overrides, overrideKey{userID, timeslot.Slot{Date: date, Block: block}})
	return nil
}

func (r *availabilityRepository) ReplaceSyncedOverrides(ctx context.Context, userID int64, window timeslot.Range, overrides []models.DateOverride) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, o := range r.s.overrides {
		if k.userID == userID && o.Source == models.OverrideSourceCalendar && window.Contains(o.Date) {
			delete(r.s.overrides, k)
		}
	}
	now := time.Now()
	for _, o := range overrides {
		k := overrideKey{userID, o.Slot()}
		if _, taken := r.s.overrides[k]; taken {
			continue
		}
		o.UserID = userID
		o.Source = models.OverrideSourceCalendar
		o.UpdatedAt = now
		r.s.overrides[k] = o
	}
	return nil
}

func (r *availabilityRepository) DeleteSyncedOverridesOutside(ctx context.Context, userID int64, window timeslot.Range) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for k, o := range r.s.overrides {
		if k.userID == userID && o.Source == models.OverrideSourceCalendar && !window.Contains(o.Date) {
			delete(r.s.overrides, k)
			removed++
		}
	}
	return removed, nil
}

func (r *availabilityRepository) ListTravel(ctx context.Context, userID int64, rng timeslot.Range) ([]models.TravelPeriod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.TravelPeriod
	for _, p := range r.s.travel {
		if p.UserID == userID && p.Range().Overlaps(rng) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *availabilityRepository) CreateTravel(ctx context.Context, period *models.TravelPeriod) (*models.TravelPeriod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *period
	cp.ID = r.s.id()
	cp.CreatedAt = time.Now()
	r.s.travel[cp.ID] = cp
	return &cp, nil
}

func (r *availabilityRepository) DeleteTravel(ctx context.Context, userID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.travel[id]
	if !ok || p.UserID != userID {
		return fmt.Errorf("travel period %d: %w", id, models.NotFoundError)
	}
	delete(r.s.travel, id)
	return nil
}

// ---------------------------------------------------------------------------
// Calendar feeds
// ---------------------------------------------------------------------------

type feedRepository struct{ s *Store }

func (r *feedRepository) Create(ctx context.Context, feed *models.CalendarFeed) (*models.CalendarFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *feed
	cp.ID = r.s.id()
	cp.CreatedAt = time.Now()
	r.s.feeds[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *feedRepository) ListFeeds(ctx context.Context) ([]*models.CalendarFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.CalendarFeed, 0, len(r.s.feeds))
	for _, f := range r.s.feeds {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *feedRepository) UpdateSyncState(ctx context.Context, feed *models.CalendarFeed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.feeds[feed.ID]
	if !ok {
		return fmt.Errorf("calendar feed with ID %d not found", feed.ID)
	}
	f.LastSyncedAt = feed.LastSyncedAt
	f.LastError = feed.LastError
	return nil
}
