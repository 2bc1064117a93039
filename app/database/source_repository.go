package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SourceRepository keeps per-source fetch health across restarts.
type SourceRepository struct {
	db  *DB
	now func() time.Time
}

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db, now: time.Now}
}

// Upsert registers a configured source or refreshes its URL and kind.
// Health counters are kept.
func (r *SourceRepository) Upsert(ctx context.Context, name, url, kind string) error {
	now := r.now().UnixNano()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (name, url, kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			kind = excluded.kind,
			updated_at = excluded.updated_at
	`, name, url, kind, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

func (r *SourceRepository) RecordSuccess(ctx context.Context, name string, at time.Time, count int) error {
	return r.record(ctx, name, `
		UPDATE sources
		SET last_fetched_at = ?, last_success_at = ?, consecutive_failures = 0,
		    last_error = '', item_count = ?, updated_at = ?
		WHERE name = ?
	`, at.UnixNano(), at.UnixNano(), count, r.now().UnixNano(), name)
}

func (r *SourceRepository) RecordFailure(ctx context.Context, name string, at time.Time, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return r.record(ctx, name, `
		UPDATE sources
		SET last_fetched_at = ?, consecutive_failures = consecutive_failures + 1,
		    last_error = ?, updated_at = ?
		WHERE name = ?
	`, at.UnixNano(), message, r.now().UnixNano(), name)
}

func (r *SourceRepository) record(ctx context.Context, name, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update source %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source %s: %w", name, ErrNotFound)
	}
	return nil
}

const sourceColumns = `name, url, kind, last_fetched_at, last_success_at, consecutive_failures, last_error, item_count, created_at, updated_at`

func (r *SourceRepository) Get(ctx context.Context, name string) (*SourceStatus, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name)

	status, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *SourceRepository) List(ctx context.Context) ([]SourceStatus, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	statuses := []SourceStatus{}
	for rows.Next() {
		status, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return statuses, nil
}

func scanSource(row scanner) (SourceStatus, error) {
	var (
		status               SourceStatus
		lastFetched, lastOK  sql.NullInt64
		createdAt, updatedAt int64
	)

	err := row.Scan(
		&status.Name, &status.URL, &status.Kind, &lastFetched, &lastOK,
		&status.ConsecutiveFailures, &status.LastError, &status.ItemCount,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status, err
		}
		return status, fmt.Errorf("failed to scan source row: %w", err)
	}

	status.LastFetchedAt = nullTime(lastFetched)
	status.LastSuccessAt = nullTime(lastOK)
	status.CreatedAt = time.Unix(0, createdAt).UTC()
	status.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return status, nil
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
