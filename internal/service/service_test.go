package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository"
	"github.com/Kerhoff/FreeSlot/internal/repository/memory"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

var (
	mar01 = timeslot.MustParseDate("2026-03-01") // Sunday
	mar05 = timeslot.MustParseDate("2026-03-05")
	mar06 = timeslot.MustParseDate("2026-03-06")
	mar07 = timeslot.MustParseDate("2026-03-07") // Saturday
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
}

func newTestService(store *memory.Store, availability repository.AvailabilityRepository) *Service {
	if availability == nil {
		availability = store.Availability
	}
	return New(quietLogger(), Options{Now: fixedNow, OverlapConcurrency: 2}, Repositories{
		Users:        store.Users,
		Friendships:  store.Friendships,
		Groups:       store.Groups,
		Availability: availability,
		Feeds:        store.Feeds,
	})
}

// flakyAvailability fails or blocks every read of one user.
type flakyAvailability struct {
	repository.AvailabilityRepository
	userID  int64
	started chan struct{}
}

func (f *flakyAvailability) ListPatterns(ctx context.Context, userID int64) ([]models.WeeklyPatternEntry, error) {
	if userID != f.userID {
		return f.AvailabilityRepository.ListPatterns(ctx, userID)
	}
	if f.started != nil {
		close(f.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, errors.New("connection reset by peer")
}

type parserMock struct{ mock.Mock }

func (m *parserMock) Parse(ctx context.Context, text string, today timeslot.Date) (*models.ParsedAvailability, error) {
	args := m.Called(ctx, text, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParsedAvailability), args.Error(1)
}

type fetcherMock struct{ mock.Mock }

func (m *fetcherMock) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type ServiceTestSuite struct {
	suite.Suite

	ctx   context.Context
	store *memory.Store
	svc   *Service

	alice, bob, carol, dave *models.User
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.New()
	suite.alice = suite.store.AddUser("Alice")
	suite.bob = suite.store.AddUser("Bob")
	suite.carol = suite.store.AddUser("Carol")
	suite.dave = suite.store.AddUser("Dave")
	suite.svc = newTestService(suite.store, nil)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (suite *ServiceTestSuite) TestEnsureUser() {
	u, err := suite.svc.EnsureUser(suite.ctx, 4242, "erin", "Erin", "")
	suite.Require().NoError(err)
	suite.Require().NotNil(u.TelegramID)
	suite.Equal(int64(4242), *u.TelegramID)

	again, err := suite.svc.EnsureUser(suite.ctx, 4242, "erin_k", "Erin", "K")
	suite.Require().NoError(err)
	suite.Equal(u.ID, again.ID)
	suite.Equal("Erin K", again.FullName())
	suite.Equal("erin_k", again.TelegramUsername)
}

func (suite *ServiceTestSuite) TestSetPatternValidation() {
	err := suite.svc.SetPattern(suite.ctx, suite.alice.ID, 7, timeslot.Morning, true)
	suite.True(errors.Is(err, models.BadParameterError))

	err = suite.svc.SetPattern(suite.ctx, suite.alice.ID, 6, timeslot.TimeBlock("night"), true)
	suite.True(errors.Is(err, models.BadParameterError))

	suite.NoError(suite.svc.SetPattern(suite.ctx, suite.alice.ID, 6, timeslot.Morning, true))
}

func (suite *ServiceTestSuite) TestAddTravelRejectsReversedRange() {
	_, err := suite.svc.AddTravel(suite.ctx, suite.alice.ID, mar05, mar01, "back to front")
	suite.True(errors.Is(err, models.ErrInvalidRange))
	suite.True(errors.Is(err, models.BadParameterError))
}

func (suite *ServiceTestSuite) TestRemoveTravel() {
	trip, err := suite.svc.AddTravel(suite.ctx, suite.alice.ID, mar01, mar05, "")
	suite.Require().NoError(err)

	err = suite.svc.RemoveTravel(suite.ctx, suite.bob.ID, trip.ID)
	suite.True(errors.Is(err, models.NotFoundError), "only the owner can remove a trip")

	suite.NoError(suite.svc.RemoveTravel(suite.ctx, suite.alice.ID, trip.ID))
	cells, err := suite.svc.ResolveEffectiveAvailability(suite.ctx, suite.alice.ID, suite.alice.ID, mar01, mar01)
	suite.Require().NoError(err)
	suite.Equal(models.CellSourcePattern, cells[0].Source)
}

func (suite *ServiceTestSuite) TestClearOverride() {
	suite.Require().NoError(suite.svc.SetPattern(suite.ctx, suite.alice.ID, 6, timeslot.Evening, false))
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, suite.alice.ID, mar07, timeslot.Evening, true))
	suite.Require().NoError(suite.svc.ClearOverride(suite.ctx, suite.alice.ID, mar07, timeslot.Evening))

	cells, err := suite.svc.ResolveEffectiveAvailability(suite.ctx, suite.alice.ID, suite.alice.ID, mar07, mar07)
	suite.Require().NoError(err)
	suite.False(cells[2].IsAvailable)
	suite.Equal(models.CellSourcePattern, cells[2].Source)

	err = suite.svc.ClearOverride(suite.ctx, suite.alice.ID, mar07, timeslot.TimeBlock("noon"))
	suite.True(errors.Is(err, models.BadParameterError))
}

func (suite *ServiceTestSuite) TestParseAndApply() {
	parser := new(parserMock)
	suite.svc.SetParser(parser)

	parsed := &models.ParsedAvailability{
		Summary: "Free Saturday morning, away 1-5 March",
		Slots:   []models.ParsedSlot{{Date: mar07, TimeBlock: timeslot.Morning, IsAvailable: true}},
		Trips:   []models.ParsedTrip{{StartDate: mar01, EndDate: mar05, Label: "Lisbon"}},
	}
	parser.On("Parse", mock.Anything, "free saturday morning", mar01).Return(parsed, nil).Once()

	report, err := suite.svc.ParseAndApply(suite.ctx, suite.alice.ID, "  free saturday morning ")
	suite.Require().NoError(err)
	suite.Equal(1, report.SlotsWritten)
	suite.Equal(1, report.TripsCreated)
	suite.Equal(parsed.Summary, report.Summary)
	parser.AssertExpectations(suite.T())

	cells, err := suite.svc.ResolveEffectiveAvailability(suite.ctx, suite.alice.ID, suite.alice.ID, mar05, mar07)
	suite.Require().NoError(err)
	suite.Equal(models.CellSourceTravel, cells[0].Source)
	suite.True(cells[6].IsAvailable)
	suite.Equal(models.CellSourceSlot, cells[6].Source)
}

func (suite *ServiceTestSuite) TestParseAndApplyErrors() {
	_, err := suite.svc.ParseAndApply(suite.ctx, suite.alice.ID, "anything")
	suite.Error(err, "no parser configured")

	parser := new(parserMock)
	suite.svc.SetParser(parser)

	_, err = suite.svc.ParseAndApply(suite.ctx, suite.alice.ID, "   ")
	suite.True(errors.Is(err, models.BadParameterError))

	parser.On("Parse", mock.Anything, "gibberish", mar01).Return(nil, models.ErrParserRejected).Once()
	_, err = suite.svc.ParseAndApply(suite.ctx, suite.alice.ID, "gibberish")
	suite.True(errors.Is(err, models.ErrParserRejected))

	report, err := suite.svc.ApplyParsedAvailability(suite.ctx, suite.alice.ID, &models.ParsedAvailability{
		Slots: []models.ParsedSlot{
			{Date: mar06, TimeBlock: timeslot.Morning, IsAvailable: true},
			{Date: mar07, TimeBlock: timeslot.TimeBlock("brunch"), IsAvailable: true},
		},
	})
	suite.True(errors.Is(err, models.BadParameterError))
	suite.Equal(1, report.SlotsWritten)
}

func (suite *ServiceTestSuite) TestGroupForChat() {
	chatID := int64(-100123)
	group := suite.store.AddGroup("climbers", &chatID, suite.alice.ID, suite.bob.ID)

	got, err := suite.svc.GroupForChat(suite.ctx, suite.alice.ID, chatID)
	suite.Require().NoError(err)
	suite.Equal(group.ID, got.ID)
	suite.ElementsMatch([]int64{suite.alice.ID, suite.bob.ID}, got.MemberIDs)

	_, err = suite.svc.GroupForChat(suite.ctx, suite.carol.ID, chatID)
	suite.True(errors.Is(err, models.ErrAccessDenied))

	_, err = suite.svc.GroupForChat(suite.ctx, suite.alice.ID, -1)
	suite.True(errors.Is(err, models.NotFoundError))
}

func (suite *ServiceTestSuite) TestAddCalendarFeed() {
	feed, err := suite.svc.AddCalendarFeed(suite.ctx, suite.alice.ID, " work ", "https://cal.example/alice.ics")
	suite.Require().NoError(err)
	suite.Equal("work", feed.Name)

	feeds, err := suite.store.Feeds.ListFeeds(suite.ctx)
	suite.Require().NoError(err)
	suite.Len(feeds, 1)

	_, err = suite.svc.AddCalendarFeed(suite.ctx, suite.alice.ID, "", "not a url")
	suite.True(errors.Is(err, models.BadParameterError))
}
