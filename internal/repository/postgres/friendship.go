package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository"
)

type friendshipRepository struct {
	db *sql.DB
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(db *sql.DB) repository.FriendshipRepository {
	return &friendshipRepository{db: db}
}

// ListAcceptedFriendIDs returns friends from either side of the relation.
func (r *friendshipRepository) ListAcceptedFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT CASE WHEN user_id = $1 THEN friend_id ELSE user_id END AS other_id
		FROM friendships
		WHERE (user_id = $1 OR friend_id = $1) AND status = $2
		ORDER BY other_id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, models.FriendshipAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to query friendships: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *friendshipRepository) AreFriends(ctx context.Context, userID, otherID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM friendships
			WHERE status = $3
			  AND ((user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1))
		)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, otherID, models.FriendshipAccepted).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}

	return ok, nil
}
