package portals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/copydash/internal/database"
	"github.com/aristath/copydash/internal/utils"
	"github.com/rs/zerolog"
)

// Repository handles portal database operations
// Database: portals.db (portals, portal_events tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portal repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portals").Logger(),
	}
}

const portalColumns = `id, name, slug, profile_id, strategy_id, is_active, theme_json,
	total_views, successful_copies, last_viewed_at, last_copied_at, created_at, updated_at`

// Create inserts a portal
func (r *Repository) Create(ctx context.Context, p Portal) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO portals (`+portalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Slug, p.ProfileID, p.StrategyID, boolToInt(p.IsActive), string(p.Theme),
		p.TotalViews, p.SuccessfulCopies, nullableUnix(p.LastViewedAt), nullableUnix(p.LastCopiedAt),
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to insert portal: %w", err)
	}
	return nil
}

// Update writes the editable fields of a portal
func (r *Repository) Update(ctx context.Context, p Portal) error {
	result, err := r.db.ExecContext(ctx, `UPDATE portals
		SET name = ?, slug = ?, strategy_id = ?, is_active = ?, theme_json = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Slug, p.StrategyID, boolToInt(p.IsActive), string(p.Theme), p.UpdatedAt.Unix(), p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update portal: %w", err)
	}
	return expectOneRow(result)
}

// GetByID returns a portal by id
func (r *Repository) GetByID(ctx context.Context, id string) (*Portal, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+portalColumns+" FROM portals WHERE id = ?", id)
	return scanPortal(row)
}

// GetBySlug returns a portal by slug
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Portal, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+portalColumns+" FROM portals WHERE slug = ?", slug)
	return scanPortal(row)
}

// List returns portals ordered by creation time, newest first
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Portal, error) {
	query := "SELECT " + portalColumns + " FROM portals"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portals: %w", err)
	}
	defer rows.Close()

	portals := []Portal{}
	for rows.Next() {
		p, err := scanPortal(rows)
		if err != nil {
			return nil, err
		}
		portals = append(portals, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portals: %w", err)
	}

	return portals, nil
}

// Delete removes a portal and, through the foreign key, its events
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM portals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portal: %w", err)
	}
	return expectOneRow(result)
}

// RecordEvent inserts e unless the same viewer already produced the same event type on
// the same day. The matching counter and timestamp move only when the event was new.
func (r *Repository) RecordEvent(ctx context.Context, e Event) (bool, error) {
	var counted bool
	done := utils.MeasureDBQuery("record_portal_event", r.log)

	counter, stamp := "total_views", "last_viewed_at"
	if e.Type == EventCopySuccess {
		counter, stamp = "successful_copies", "last_copied_at"
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO portal_events
			(portal_id, event_type, profile_id, copier_id, occurred_at, event_day)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.PortalID, string(e.Type), e.ProfileID, e.CopierID, e.OccurredAt.Unix(), e.Day(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert portal event: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read inserted rows: %w", err)
		}
		if n == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE portals SET "+counter+" = "+counter+" + 1, "+stamp+" = ? WHERE id = ?",
			e.OccurredAt.Unix(), e.PortalID,
		); err != nil {
			return fmt.Errorf("failed to update portal counters: %w", err)
		}
		counted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	var rows int64
	if counted {
		rows = 1
	}
	done(rows)
	return counted, nil
}

// DailyStats returns per-day counts of a portal from sinceDay (YYYY-MM-DD) on, oldest first
func (r *Repository) DailyStats(ctx context.Context, portalID, sinceDay string) ([]DayStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event_day,
			SUM(CASE WHEN event_type = 'view' THEN 1 ELSE 0 END),
			SUM(CASE WHEN event_type = 'copy_success' THEN 1 ELSE 0 END)
		FROM portal_events
		WHERE portal_id = ? AND event_day >= ?
		GROUP BY event_day
		ORDER BY event_day`, portalID, sinceDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query portal stats: %w", err)
	}
	defer rows.Close()

	var stats []DayStats
	for rows.Next() {
		var d DayStats
		if err := rows.Scan(&d.Day, &d.Views, &d.Copies); err != nil {
			return nil, fmt.Errorf("failed to scan portal stats: %w", err)
		}
		stats = append(stats, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portal stats: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortal(row rowScanner) (*Portal, error) {
	var p Portal
	var isActive int
	var theme string
	var lastViewed, lastCopied sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.ProfileID,
		&p.StrategyID,
		&isActive,
		&theme,
		&p.TotalViews,
		&p.SuccessfulCopies,
		&lastViewed,
		&lastCopied,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portal: %w", err)
	}

	p.IsActive = isActive != 0
	p.Theme = []byte(theme)
	p.LastViewedAt = fromNullableUnix(lastViewed)
	p.LastCopiedAt = fromNullableUnix(lastCopied)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation matches the constraint error text both sqlite drivers produce
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func fromNullableUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
