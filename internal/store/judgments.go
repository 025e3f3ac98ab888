package store

import (
	"context"
	"fmt"

	"github.com/concordhq/concord/internal/survey"
)

// InsertJudgment appends a judgment and returns its assigned id.
//
// No ON CONFLICT clause: judgments carry no content-level uniqueness, so a
// re-delivered judgment produces a second row. Accepted trade-off of the
// at-least-once delivery protocol.
func (s *Store) InsertJudgment(ctx context.Context, j survey.Judgment) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO judgments (rater_name, text_a, text_b, item_id, score, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		j.RaterName,
		j.TextA,
		j.TextB,
		j.ItemID,
		j.Score,
		j.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert judgment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert judgment: last insert id: %w", err)
	}
	return id, nil
}

// ListJudgments returns judgments, newest first, capped at limit.
// An empty raterName returns judgments for all raters.
func (s *Store) ListJudgments(ctx context.Context, raterName string, limit int) ([]survey.Judgment, error) {
	query := `
		SELECT id, rater_name, text_a, text_b, item_id, score, timestamp, created_at
		FROM judgments
	`
	args := []any{}
	if raterName != "" {
		query += " WHERE rater_name = ?"
		args = append(args, raterName)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query judgments: %w", err)
	}
	defer rows.Close()

	judgments := []survey.Judgment{}
	for rows.Next() {
		var j survey.Judgment
		err := rows.Scan(&j.ID, &j.RaterName, &j.TextA, &j.TextB, &j.ItemID, &j.Score, &j.Timestamp, &j.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan judgment: %w", err)
		}
		judgments = append(judgments, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate judgments: %w", err)
	}

	return judgments, nil
}

// Stats aggregates the collected judgments.
func (s *Store) Stats(ctx context.Context) (survey.Stats, error) {
	var stats survey.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT rater_name),
			COALESCE(AVG(score), 0),
			COUNT(DISTINCT item_id)
		FROM judgments
	`).Scan(&stats.TotalJudgments, &stats.UniqueRaters, &stats.AverageScore, &stats.UniqueItems)
	if err != nil {
		return survey.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}
