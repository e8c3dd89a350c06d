package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository/memory"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

func (suite *ServiceTestSuite) TestFriendOverlapSingleSlot() {
	a, b := suite.alice.ID, suite.bob.ID
	suite.store.Befriend(a, b)
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, a, mar07, timeslot.Morning, true))
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, b, mar07, timeslot.Morning, true))

	result, err := suite.svc.ComputeFriendOverlaps(suite.ctx, a, mar07, mar07)
	suite.Require().NoError(err)
	suite.False(result.Degraded)
	suite.Require().Len(result.Slots, 1)

	slot := result.Slots[0]
	suite.Equal(mar07, slot.Date)
	suite.Equal(timeslot.Morning, slot.TimeBlock)
	suite.Equal([]int64{a, b}, slot.AvailableUserIDs)
	suite.Equal(2, slot.AvailableCount)
	suite.Equal([]string{"Alice", "Bob"}, slot.AvailableNames)
}

func (suite *ServiceTestSuite) TestFriendOverlapIsSparse() {
	a, b, c := suite.alice.ID, suite.bob.ID, suite.carol.ID
	suite.store.Befriend(a, b)
	suite.store.Befriend(c, a)

	// Only Alice is free on the 6th, Alice+Carol in the evening of the 7th,
	// and everybody on the morning of the 7th.
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, a, mar06, timeslot.Morning, true))
	for _, id := range []int64{a, b, c} {
		suite.Require().NoError(suite.svc.SetPattern(suite.ctx, id, 6, timeslot.Morning, true))
	}
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, a, mar07, timeslot.Evening, true))
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, c, mar07, timeslot.Evening, true))

	result, err := suite.svc.ComputeFriendOverlaps(suite.ctx, a, mar06, mar07)
	suite.Require().NoError(err)
	suite.Require().Len(result.Slots, 2)

	suite.Equal(timeslot.Morning, result.Slots[0].TimeBlock)
	suite.Equal([]int64{a, b, c}, result.Slots[0].AvailableUserIDs)
	suite.Equal(timeslot.Evening, result.Slots[1].TimeBlock)
	suite.Equal([]int64{a, c}, result.Slots[1].AvailableUserIDs)

	for _, s := range result.Slots {
		suite.GreaterOrEqual(s.AvailableCount, 2)
		suite.Equal(len(s.AvailableUserIDs), s.AvailableCount)
		suite.Len(s.AvailableNames, s.AvailableCount)
	}

	top := TopOverlaps(result, 1)
	suite.Require().Len(top, 1)
	suite.Equal(3, top[0].AvailableCount)
	suite.Len(TopOverlaps(result, 10), 2)
}

func (suite *ServiceTestSuite) TestFriendOverlapNeedsTwoFreePeople() {
	a, b := suite.alice.ID, suite.bob.ID
	suite.store.Befriend(a, b)
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, b, mar07, timeslot.Morning, true))

	result, err := suite.svc.ComputeFriendOverlaps(suite.ctx, a, mar07, mar07)
	suite.Require().NoError(err)
	suite.Empty(result.Slots, "friends alone do not make an overlap without the requester")
}

func (suite *ServiceTestSuite) TestFriendOverlapWithoutFriends() {
	suite.store.RequestFriendship(suite.alice.ID, suite.bob.ID)

	result, err := suite.svc.ComputeFriendOverlaps(suite.ctx, suite.alice.ID, mar01, mar07)
	suite.Require().NoError(err)
	suite.NotNil(result.Slots)
	suite.Empty(result.Slots)
	suite.False(result.Degraded)
}

func (suite *ServiceTestSuite) TestGroupOverlayIsDense() {
	a, b, c := suite.alice.ID, suite.bob.ID, suite.carol.ID
	suite.store.AddGroup("book club", nil, a, b, c)
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, a, mar07, timeslot.Morning, true))
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, b, mar07, timeslot.Morning, true))
	suite.Require().NoError(suite.svc.SetOverride(suite.ctx, c, mar06, timeslot.Evening, true))

	overlay, err := suite.svc.ComputeGroupOverlayCounts(suite.ctx, a, []int64{a, b, c, b}, mar01, mar07)
	suite.Require().NoError(err)
	suite.Len(overlay.Counts, 21)
	suite.Equal(3, overlay.Members)
	suite.False(overlay.Degraded)

	suite.Equal(2, overlay.Counts["2026-03-07|morning"])
	suite.Equal(1, overlay.Counts["2026-03-06|evening"])
	zero, ok := overlay.Counts["2026-03-01|afternoon"]
	suite.True(ok)
	suite.Zero(zero)
	suite.Equal(1, overlay.Count(timeslot.Slot{Date: mar06, Block: timeslot.Evening}))
}

func (suite *ServiceTestSuite) TestGroupOverlayAccess() {
	a, d := suite.alice.ID, suite.dave.ID
	_, err := suite.svc.ComputeGroupOverlayCounts(suite.ctx, a, []int64{a, d}, mar01, mar07)
	suite.ErrorIs(err, models.ErrAccessDenied)

	g := suite.store.AddGroup("hikers", nil, a, suite.bob.ID)
	overlay, err := suite.svc.ComputeGroupOverlay(suite.ctx, a, g.ID, mar07, mar07)
	suite.Require().NoError(err)
	suite.Equal(2, overlay.Members)
	suite.Len(overlay.Counts, 3)

	_, err = suite.svc.ComputeGroupOverlay(suite.ctx, d, g.ID, mar07, mar07)
	suite.ErrorIs(err, models.ErrAccessDenied)

	_, err = suite.svc.ComputeGroupOverlay(suite.ctx, a, 9999, mar07, mar07)
	suite.ErrorIs(err, models.NotFoundError)
}

func (suite *ServiceTestSuite) TestGroupOverlayWithNoMembers() {
	overlay, err := suite.svc.ComputeGroupOverlayCounts(suite.ctx, suite.alice.ID, nil, mar07, mar07)
	suite.Require().NoError(err)
	suite.Len(overlay.Counts, 3)
	suite.Zero(overlay.Members)
}

func TestOverlapExcludesFailingParticipant(t *testing.T) {
	store := memory.New()
	a := store.AddUser("A")
	b := store.AddUser("B")
	c := store.AddUser("C")
	store.Befriend(a.ID, b.ID)
	store.Befriend(a.ID, c.ID)
	store.AddGroup("trio", nil, a.ID, b.ID, c.ID)

	ctx := context.Background()
	svc := newTestService(store, &flakyAvailability{AvailabilityRepository: store.Availability, userID: c.ID})
	for _, id := range []int64{a.ID, b.ID, c.ID} {
		require.NoError(t, svc.SetOverride(ctx, id, mar07, timeslot.Morning, true))
	}

	result, err := svc.ComputeFriendOverlaps(ctx, a.ID, mar07, mar07)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, []int64{c.ID}, result.Excluded)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, []int64{a.ID, b.ID}, result.Slots[0].AvailableUserIDs)

	overlay, err := svc.ComputeGroupOverlayCounts(ctx, a.ID, []int64{a.ID, b.ID, c.ID}, mar07, mar07)
	require.NoError(t, err)
	assert.True(t, overlay.Degraded)
	assert.Equal(t, []int64{c.ID}, overlay.Excluded)
	assert.Equal(t, 2, overlay.Counts["2026-03-07|morning"])
}

func TestOverlapAbortsOnCancellation(t *testing.T) {
	store := memory.New()
	a := store.AddUser("A")
	b := store.AddUser("B")
	store.Befriend(a.ID, b.ID)

	started := make(chan struct{})
	svc := newTestService(store, &flakyAvailability{AvailabilityRepository: store.Availability, userID: b.ID, started: started})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := svc.ComputeFriendOverlaps(ctx, a.ID, mar01, mar07)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("overlap computation did not stop after cancellation")
	}
}

func TestTopOverlapsOrdering(t *testing.T) {
	d1 := timeslot.MustParseDate("2026-03-01")
	d2 := timeslot.MustParseDate("2026-03-02")
	result := &models.FriendOverlapResult{Slots: []models.OverlapSlot{
		{Date: d1, TimeBlock: timeslot.Evening, AvailableCount: 2},
		{Date: d1, TimeBlock: timeslot.Morning, AvailableCount: 3},
		{Date: d2, TimeBlock: timeslot.Morning, AvailableCount: 3},
		{Date: d2, TimeBlock: timeslot.Afternoon, AvailableCount: 2},
	}}

	top := TopOverlaps(result, 3)
	require.Len(t, top, 3)
	assert.Equal(t, timeslot.Slot{Date: d1, Block: timeslot.Morning}, top[0].Slot())
	assert.Equal(t, timeslot.Slot{Date: d2, Block: timeslot.Morning}, top[1].Slot())
	assert.Equal(t, timeslot.Slot{Date: d1, Block: timeslot.Evening}, top[2].Slot())

	assert.Equal(t, timeslot.Evening, result.Slots[0].TimeBlock, "input order is untouched")
	assert.Nil(t, TopOverlaps(nil, 3))
}
