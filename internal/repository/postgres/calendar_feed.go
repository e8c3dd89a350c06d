package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository"
)

type calendarFeedRepository struct {
	db *sql.DB
}

// NewCalendarFeedRepository creates a new calendar feed repository
func NewCalendarFeedRepository(db *sql.DB) repository.CalendarFeedRepository {
	return &calendarFeedRepository{db: db}
}

func (r *calendarFeedRepository) Create(ctx context.Context, feed *models.CalendarFeed) (*models.CalendarFeed, error) {
	query := `
		INSERT INTO calendar_feeds (user_id, name, url, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	feed.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		feed.UserID,
		feed.Name,
		feed.URL,
		feed.CreatedAt,
	).Scan(&feed.ID, &feed.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create calendar feed: %w", err)
	}

	return feed, nil
}

func (r *calendarFeedRepository) ListFeeds(ctx context.Context) ([]*models.CalendarFeed, error) {
	query := `
		SELECT id, user_id, name, url, last_synced_at, last_error, created_at
		FROM calendar_feeds
		ORDER BY user_id ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*models.CalendarFeed
	for rows.Next() {
		feed := &models.CalendarFeed{}
		var lastSynced sql.NullTime
		if err := rows.Scan(
			&feed.ID,
			&feed.UserID,
			&feed.Name,
			&feed.URL,
			&lastSynced,
			&feed.LastError,
			&feed.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan calendar feed: %w", err)
		}
		if lastSynced.Valid {
			feed.LastSyncedAt = &lastSynced.Time
		}
		feeds = append(feeds, feed)
	}

	return feeds, rows.Err()
}

func (r *calendarFeedRepository) UpdateSyncState(ctx context.Context, feed *models.CalendarFeed) error {
	query := `
		UPDATE calendar_feeds
		SET last_synced_at = $2, last_error = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, feed.ID, feed.LastSyncedAt, feed.LastError)
	if err != nil {
		return fmt.Errorf("failed to update calendar feed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("calendar feed with ID %d not found", feed.ID)
	}

	return nil
}
