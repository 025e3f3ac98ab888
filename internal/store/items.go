package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/concordhq/concord/internal/survey"
)

// InsertItem adds an item to the pool. The id is externally assigned and
// must be unique; inserting a duplicate id returns an error.
func (s *Store) InsertItem(ctx context.Context, item survey.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, group_key, text_a, text_b, date, usage_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.GroupKey,
		item.TextA,
		item.TextB,
		nullableString(item.Date),
		item.UsageCount,
	)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}
	return nil
}

// EligibleItems returns the point-in-time eligible snapshot for a rater:
// items below the saturation threshold that the rater has never judged,
// ordered by usage_count ASC then created_at ASC. The selector relies on
// this ordering; it does not re-sort.
//
// Eligibility joins against all historical judgments for the rater, not
// just the current session.
//
// Returns an empty slice (not nil) when no item is eligible.
func (s *Store) EligibleItems(ctx context.Context, raterName string) ([]survey.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_key, text_a, text_b, COALESCE(date, ''), usage_count, created_at
		FROM items
		WHERE usage_count < ?
		  AND id NOT IN (
			SELECT item_id FROM judgments WHERE rater_name = ?
		  )
		ORDER BY usage_count ASC, created_at ASC, id ASC
	`, survey.SaturationThreshold, raterName)
	if err != nil {
		return nil, fmt.Errorf("query eligible items: %w", err)
	}
	defer rows.Close()

	items := []survey.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible items: %w", err)
	}

	return items, nil
}

// IncrementUsage performs the blind usage_count += 1 for an item.
// Returns the number of rows updated (0 when the id is unknown).
//
// No compare-and-swap on purpose: SQLite serializes the single-row update,
// so concurrent increments are never lost, and the selector's stale-read
// overshoot is an accepted race.
func (s *Store) IncrementUsage(ctx context.Context, itemID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET usage_count = usage_count + 1 WHERE id = ?
	`, itemID)
	if err != nil {
		return 0, fmt.Errorf("increment usage for %s: %w", itemID, err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment usage for %s: rows affected: %w", itemID, err)
	}
	return updated, nil
}

// ClearItems empties the item pool. Judgments are kept; they reference
// items by external id and survive a pool reload.
func (s *Store) ClearItems(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items`)
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return n, nil
}

// CountItems returns the total number of items in the pool.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// GetItem returns a single item by id.
// Returns sql.ErrNoRows (wrapped) when the id is unknown.
func (s *Store) GetItem(ctx context.Context, itemID string) (survey.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_key, text_a, text_b, COALESCE(date, ''), usage_count, created_at
		FROM items
		WHERE id = ?
	`, itemID)

	var item survey.Item
	var date string
	err := row.Scan(&item.ID, &item.GroupKey, &item.TextA, &item.TextB, &date, &item.UsageCount, &item.CreatedAt)
	if err != nil {
		return survey.Item{}, fmt.Errorf("get item %s: %w", itemID, err)
	}
	item.Date = date
	return item, nil
}

// scanItem reads one item row. The query must select columns in the order
// id, group_key, text_a, text_b, date, usage_count, created_at.
func scanItem(rows *sql.Rows) (survey.Item, error) {
	var item survey.Item
	var date string
	err := rows.Scan(&item.ID, &item.GroupKey, &item.TextA, &item.TextB, &date, &item.UsageCount, &item.CreatedAt)
	if err != nil {
		return survey.Item{}, fmt.Errorf("scan item: %w", err)
	}
	item.Date = date
	return item, nil
}

// nullableString converts an empty string to NULL for storage.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
