package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/newsbell/app/feed"
)

const itemColumns = `id, source, sources, title, summary, url, published_at, first_seen_at, category, read, notified`

const insertItemSQL = `
	INSERT INTO items (
		id, source, sources, title, summary, url,
		published_at, first_seen_at, category, read, notified, search_text
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
`

// ItemRepository is the append-mostly history of every item ever ingested.
// Records are never deleted and only the read/notified flags change after insert.
type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check item existence: %w", err)
	}
	return true, nil
}

// Append stores item unless its id is already present.
func (r *ItemRepository) Append(ctx context.Context, item feed.NewsItem) error {
	args, err := insertArgs(item)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, insertItemSQL, args...); err != nil {
		return fmt.Errorf("failed to append item: %w", err)
	}
	return nil
}

// AppendBatch stores items in a single transaction and returns how many were
// new. Either every item is committed or none is.
func (r *ItemRepository) AppendBatch(ctx context.Context, items []feed.NewsItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertItemSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, item := range items {
		args, err := insertArgs(item)
		if err != nil {
			return 0, err
		}

		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to append item %s: %w", item.ID, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return inserted, nil
}

func (r *ItemRepository) MarkRead(ctx context.Context, id string) error {
	return r.setFlag(ctx, "read", id)
}

func (r *ItemRepository) MarkNotified(ctx context.Context, id string) error {
	return r.setFlag(ctx, "notified", id)
}

// setFlag only ever sets a flag to 1. SQLite reports a matched row as changed
// even when the value was already set, so zero rows means the id is unknown.
func (r *ItemRepository) setFlag(ctx context.Context, column, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE items SET `+column+` = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark item %s: %w", column, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *ItemRepository) Get(ctx context.Context, id string) (*feed.NewsItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Query returns items matching filter, newest first.
func (r *ItemRepository) Query(ctx context.Context, filter Filter) ([]feed.NewsItem, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.UnreadOnly {
		conditions = append(conditions, "read = 0")
	}
	if filter.Source != "" {
		conditions = append(conditions, "(source = ? OR EXISTS (SELECT 1 FROM json_each(items.sources) WHERE value = ?))")
		args = append(args, filter.Source, filter.Source)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "first_seen_at >= ?")
		args = append(args, filter.From.UnixNano())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "first_seen_at < ?")
		args = append(args, filter.To.UnixNano())
	}
	if text := strings.TrimSpace(filter.Text); text != "" {
		conditions = append(conditions, "instr(search_text, ?) > 0")
		args = append(args, feed.Fold(text))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY first_seen_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []feed.NewsItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepository) Latest(ctx context.Context, limit int) ([]feed.NewsItem, error) {
	return r.Query(ctx, Filter{Limit: limit})
}

func (r *ItemRepository) Unread(ctx context.Context, limit int) ([]feed.NewsItem, error) {
	return r.Query(ctx, Filter{UnreadOnly: true, Limit: limit})
}

func (r *ItemRepository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN read = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(notified), 0)
		FROM items
	`).Scan(&stats.Total, &stats.Unread, &stats.Notified)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get item stats: %w", err)
	}
	return stats, nil
}

func insertArgs(item feed.NewsItem) ([]any, error) {
	sources := item.Sources
	if len(sources) == 0 {
		sources = []string{item.Source}
	}
	encoded, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", err)
	}

	category := item.Category
	if category == "" {
		category = feed.CategoryUnclassified
	}

	return []any{
		item.ID, item.Source, string(encoded), item.Title, item.Summary, item.URL,
		item.PublishedAt.UnixNano(), item.FirstSeenAt.UnixNano(), category,
		boolToInt(item.Read), boolToInt(item.Notified),
		feed.Fold(item.Title + "\n" + item.Summary),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (feed.NewsItem, error) {
	var (
		item                 feed.NewsItem
		sources              string
		published, firstSeen int64
		read, notified       int
	)

	err := row.Scan(
		&item.ID, &item.Source, &sources, &item.Title, &item.Summary, &item.URL,
		&published, &firstSeen, &item.Category, &read, &notified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("failed to scan item row: %w", err)
	}

	if err := json.Unmarshal([]byte(sources), &item.Sources); err != nil {
		return item, fmt.Errorf("failed to decode sources of %s: %w", item.ID, err)
	}
	item.PublishedAt = time.Unix(0, published).UTC()
	item.FirstSeenAt = time.Unix(0, firstSeen).UTC()
	item.Read = read == 1
	item.Notified = notified == 1

	return item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
