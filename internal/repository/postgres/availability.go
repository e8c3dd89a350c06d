package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

type availabilityRepository struct {
	db           *sql.DB
	queryBuilder sq.StatementBuilderType
}

// NewAvailabilityRepository creates the Postgres-backed Availability Store
func NewAvailabilityRepository(db *sql.DB) repository.AvailabilityRepository {
	return &availabilityRepository{
		db:           db,
		queryBuilder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ---------------------------------------------------------------------------
// Weekly patterns
// ---------------------------------------------------------------------------

func (r *availabilityRepository) ListPatterns(ctx context.Context, userID int64) ([]models.WeeklyPatternEntry, error) {
	query, args, err := r.queryBuilder.
		Select("user_id", "day_of_week", "time_block", "is_available", "updated_at").
		From("weekly_patterns").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("day_of_week", "time_block").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build pattern query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly patterns: %w", err)
	}
	defer rows.Close()

	var entries []models.WeeklyPatternEntry
	for rows.Next() {
		var e models.WeeklyPatternEntry
		if err := rows.Scan(&e.UserID, &e.DayOfWeek, &e.TimeBlock, &e.IsAvailable, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weekly pattern: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *availabilityRepository) UpsertPattern(ctx context.Context, entry models.WeeklyPatternEntry) error {
	query, args, err := r.queryBuilder.
		Insert("weekly_patterns").
		Columns("user_id", "day_of_week", "time_block", "is_available", "updated_at").
		Values(entry.UserID, entry.DayOfWeek, string(entry.TimeBlock), entry.IsAvailable, time.Now()).
		Suffix(`ON CONFLICT (user_id, day_of_week, time_block)
			DO UPDATE SET is_available = EXCLUDED.is_available, updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build pattern upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert weekly pattern: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Date overrides
// ---------------------------------------------------------------------------

func (r *availabilityRepository) ListOverrides(ctx context.Context, userID int64, rng timeslot.Range) ([]models.DateOverride, error) {
	query, args, err := r.queryBuilder.
		Select("user_id", "date", "time_block", "is_available", "source", "updated_at").
		From("date_overrides").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"date": rng.Start}).
		Where(sq.LtOrEq{"date": rng.End}).
		OrderBy("date", "time_block").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build override query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query date overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.DateOverride
	for rows.Next() {
		var o models.DateOverride
		if err := rows.Scan(&o.UserID, &o.Date, &o.TimeBlock, &o.IsAvailable, &o.Source, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan date override: %w", err)
		}
		overrides = append(overrides, o)
	}

	return overrides, rows.Err()
}

func (r *availabilityRepository) UpsertOverride(ctx context.Context, o models.DateOverride) error {
	query, args, err := r.queryBuilder.
		Insert("date_overrides").
		Columns("user_id", "date", "time_block", "is_available", "source", "updated_at").
		Values(o.UserID, o.Date, string(o.TimeBlock), o.IsAvailable, string(o.Source), time.Now()).
		Suffix(`ON CONFLICT (user_id, date, time_block)
			DO UPDATE SET is_available = EXCLUDED.is_available, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build override upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert date override: %w", err)
	}

	return nil
}

func (r *availabilityRepository) DeleteOverride(ctx context.Context, userID int64, date timeslot.Date, block timeslot.TimeBlock) error {
	query, args, err := r.queryBuilder.
		Delete("date_overrides").
		Where(sq.Eq{"user_id": userID, "date": date, "time_block": string(block)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build override delete: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete date override: %w", err)
	}

	return nil
}

func (r *availabilityRepository) ReplaceSyncedOverrides(ctx context.Context, userID int64, window timeslot.Range, overrides []models.DateOverride) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del, args, err := r.queryBuilder.
		Delete("date_overrides").
		Where(sq.Eq{"user_id": userID, "source": string(models.OverrideSourceCalendar)}).
		Where(sq.GtOrEq{"date": window.Start}).
		Where(sq.LtOrEq{"date": window.End}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build synced override delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("failed to delete synced overrides: %w", err)
	}

	if len(overrides) > 0 {
		now := time.Now()
		insert := r.queryBuilder.
			Insert("date_overrides").
			Columns("user_id", "date", "time_block", "is_available", "source", "updated_at")
		for _, o := range overrides {
			insert = insert.Values(userID, o.Date, string(o.TimeBlock), o.IsAvailable, string(models.OverrideSourceCalendar), now)
		}
		// Rows still present after the delete are manual and win.
		ins, args, err := insert.
			Suffix("ON CONFLICT (user_id, date, time_block) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build synced override insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
			return fmt.Errorf("failed to insert synced overrides: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit synced overrides: %w", err)
	}

	return nil
}

func (r *availabilityRepository) DeleteSyncedOverridesOutside(ctx context.Context, userID int64, window timeslot.Range) (int64, error) {
	query, args, err := r.queryBuilder.
		Delete("date_overrides").
		Where(sq.Eq{"user_id": userID, "source": string(models.OverrideSourceCalendar)}).
		Where(sq.Or{sq.Lt{"date": window.Start}, sq.Gt{"date": window.End}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build stale override delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale synced overrides: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return removed, nil
}

// ---------------------------------------------------------------------------
// Travel periods
// ---------------------------------------------------------------------------

func (r *availabilityRepository) ListTravel(ctx context.Context, userID int64, rng timeslot.Range) ([]models.TravelPeriod, error) {
	query, args, err := r.queryBuilder.
		Select("id", "user_id", "start_date", "end_date", "label", "created_at").
		From("travel_periods").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.LtOrEq{"start_date": rng.End}).
		Where(sq.GtOrEq{"end_date": rng.Start}).
		OrderBy("start_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build travel query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query travel periods: %w", err)
	}
	defer rows.Close()

	var periods []models.TravelPeriod
	for rows.Next() {
		var p models.TravelPeriod
		if err := rows.Scan(&p.ID, &p.UserID, &p.StartDate, &p.EndDate, &p.Label, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan travel period: %w", err)
		}
		periods = append(periods, p)
	}

	return periods, rows.Err()
}

func (r *availabilityRepository) CreateTravel(ctx context.Context, period *models.TravelPeriod) (*models.TravelPeriod, error) {
	period.CreatedAt = time.Now()

	query, args, err := r.queryBuilder.
		Insert("travel_periods").
		Columns("user_id", "start_date", "end_date", "label", "created_at").
		Values(period.UserID, period.StartDate, period.EndDate, period.Label, period.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build travel insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&period.ID); err != nil {
		return nil, fmt.Errorf("failed to create travel period: %w", err)
	}

	return period, nil
}

func (r *availabilityRepository) DeleteTravel(ctx context.Context, userID, id int64) error {
	query, args, err := r.queryBuilder.
		Delete("travel_periods").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build travel delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete travel period: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("travel period %d: %w", id, models.NotFoundError)
	}

	return nil
}
