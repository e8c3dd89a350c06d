package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// minOverlapCount is the number of free participants a slot needs to be
// reported in friends mode.
const minOverlapCount = 2

// participantGrid is the resolved availability of each participant, indexed
// like the participant list. A nil row means the participant was excluded.
type participantGrid struct {
	ids      []int64
	free     []map[timeslot.Slot]bool
	excluded []int64
}

// ComputeFriendOverlaps finds every slot in [start, end] where at least two
// of the requester and their accepted friends are free. Slots come back in
// date and block order. A requester without friends gets an empty result.
//
// A participant whose availability cannot be loaded is left out of the
// counts; the result is then flagged Degraded and lists them in Excluded.
func (s *Service) ComputeFriendOverlaps(ctx context.Context, requesterID int64, start, end timeslot.Date) (*models.FriendOverlapResult, error) {
	rng := timeslot.Range{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	friendIDs, err := s.Friendships.ListAcceptedFriendIDs(ctx, requesterID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing friends of user %d", requesterID)
	}

	result := &models.FriendOverlapResult{Slots: []models.OverlapSlot{}}
	participants := dedupe(append([]int64{requesterID}, friendIDs...))
	if len(participants) < minOverlapCount {
		return result, nil
	}

	grid, err := s.resolveParticipants(ctx, participants, rng)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveOverlap("friends", len(grid.excluded))

	names := s.displayNames(ctx, participants)

	for _, slot := range rng.Slots() {
		var free []int64
		for i, id := range grid.ids {
			if grid.free[i] != nil && grid.free[i][slot] {
				free = append(free, id)
			}
		}
		if len(free) < minOverlapCount {
			continue
		}

		slotNames := make([]string, len(free))
		for i, id := range free {
			slotNames[i] = names[id]
		}
		result.Slots = append(result.Slots, models.OverlapSlot{
			Date:             slot.Date,
			TimeBlock:        slot.Block,
			AvailableUserIDs: free,
			AvailableCount:   len(free),
			AvailableNames:   slotNames,
		})
	}

	result.Degraded = len(grid.excluded) > 0
	result.Excluded = grid.excluded
	return result, nil
}

// TopOverlaps returns at most n slots of result, busiest first.
func TopOverlaps(result *models.FriendOverlapResult, n int) []models.OverlapSlot {
	if result == nil {
		return nil
	}
	return result.Top(n)
}

// ComputeGroupOverlayCounts counts, for every slot in [start, end], how many
// of memberIDs are free. Every slot has an entry, zero included. The viewer
// must be allowed to see each member.
func (s *Service) ComputeGroupOverlayCounts(ctx context.Context, viewerID int64, memberIDs []int64, start, end timeslot.Date) (*models.GroupOverlay, error) {
	rng := timeslot.Range{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	members := dedupe(memberIDs)
	for _, id := range members {
		if err := s.CanViewAvailability(ctx, viewerID, id); err != nil {
			return nil, err
		}
	}

	return s.overlay(ctx, members, rng)
}

// ComputeGroupOverlay is ComputeGroupOverlayCounts over the roster of a
// stored group. The viewer must be a member.
func (s *Service) ComputeGroupOverlay(ctx context.Context, viewerID, groupID int64, start, end timeslot.Date) (*models.GroupOverlay, error) {
	rng := timeslot.Range{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	group, err := s.GroupMembers(ctx, viewerID, groupID)
	if err != nil {
		return nil, err
	}

	return s.overlay(ctx, dedupe(group.MemberIDs), rng)
}

func (s *Service) overlay(ctx context.Context, members []int64, rng timeslot.Range) (*models.GroupOverlay, error) {
	slots := rng.Slots()
	counts := make(map[string]int, len(slots))
	for _, slot := range slots {
		counts[slot.Key()] = 0
	}

	result := &models.GroupOverlay{Counts: counts, Members: len(members)}
	if len(members) == 0 {
		return result, nil
	}

	grid, err := s.resolveParticipants(ctx, members, rng)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveOverlap("group", len(grid.excluded))

	for _, slot := range slots {
		for i := range grid.ids {
			if grid.free[i] != nil && grid.free[i][slot] {
				counts[slot.Key()]++
			}
		}
	}

	result.Degraded = len(grid.excluded) > 0
	result.Excluded = grid.excluded
	return result, nil
}

// resolveParticipants resolves every participant concurrently, bounded by
// the configured concurrency. Individual failures exclude the participant;
// cancellation of ctx aborts the whole call.
func (s *Service) resolveParticipants(ctx context.Context, ids []int64, rng timeslot.Range) (*participantGrid, error) {
	free := make([]map[timeslot.Slot]bool, len(ids))
	failures := make([]error, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.OverlapConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cells, err := s.resolve(ctx, id, rng)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			row := make(map[timeslot.Slot]bool, len(cells))
			for _, c := range cells {
				if c.IsAvailable {
					row[c.Slot()] = true
				}
			}
			free[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	grid := &participantGrid{ids: ids, free: free}
	for i, err := range failures {
		if err == nil {
			continue
		}
		grid.excluded = append(grid.excluded, ids[i])
		s.logger.WithFields(logrus.Fields{
			"user_id": ids[i],
			"range":   rng.String(),
		}).WithError(err).Warn("Excluding participant from overlap")
	}

	return grid, nil
}

// displayNames maps each ID to a display name. Lookup failures fall back to
// a generic name rather than failing the overlap.
func (s *Service) displayNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		names[id] = (&models.User{ID: id}).DisplayName()
	}

	users, err := s.Users.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load display names for overlap")
		return names
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names
}

// dedupe drops repeated IDs, keeping first occurrences in order.
func dedupe(ids []int64) []int64 {
	seen := set.New[int64](len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen.Insert(id) {
			out = append(out, id)
		}
	}
	return out
}
