package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Kerhoff/FreeSlot/internal/models"
)

// CanViewAvailability returns nil when viewerID may read targetID's
// availability: the viewer is the target, an accepted friend, or shares a
// group with the target. Any other relation yields ErrAccessDenied.
func (s *Service) CanViewAvailability(ctx context.Context, viewerID, targetID int64) error {
	if viewerID == targetID {
		return nil
	}

	friends, err := s.Friendships.AreFriends(ctx, viewerID, targetID)
	if err != nil {
		return errors.Wrapf(err, "checking friendship %d -> %d", viewerID, targetID)
	}
	if friends {
		return nil
	}

	shared, err := s.Groups.ShareGroup(ctx, viewerID, targetID)
	if err != nil {
		return errors.Wrapf(err, "checking shared group %d -> %d", viewerID, targetID)
	}
	if shared {
		return nil
	}

	return errors.WithDetailf(models.ErrAccessDenied, "viewer %d, target %d", viewerID, targetID)
}
