package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository"
)

type groupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sql.DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) scanGroup(row *sql.Row) (*models.Group, error) {
	group := &models.Group{}
	var chatID sql.NullInt64
	err := row.Scan(
		&group.ID,
		&chatID,
		&group.Name,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if chatID.Valid {
		group.ChatID = &chatID.Int64
	}
	return group, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	query := `
		SELECT id, chat_id, name, created_at, updated_at
		FROM groups
		WHERE id = $1`

	group, err := r.scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by ID: %w", err)
	}

	return group, nil
}

func (r *groupRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Group, error) {
	query := `
		SELECT id, chat_id, name, created_at, updated_at
		FROM groups
		WHERE chat_id = $1`

	group, err := r.scanGroup(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by chat ID: %w", err)
	}

	return group, nil
}

func (r *groupRepository) GetMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at ASC, user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *groupRepository) ShareGroup(ctx context.Context, userID, otherID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM group_members a
			INNER JOIN group_members b ON b.group_id = a.group_id
			WHERE a.user_id = $1 AND b.user_id = $2
		)`

	var shared bool
	if err := r.db.QueryRowContext(ctx, query, userID, otherID).Scan(&shared); err != nil {
		return false, fmt.Errorf("failed to check shared group: %w", err)
	}

	return shared, nil
}
