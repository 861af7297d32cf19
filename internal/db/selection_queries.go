package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horse.fit/briefing/internal/globaltime"
	"horse.fit/briefing/internal/ranker"
)

// UpsertSelection persists a completed selection with insert-if-absent
// semantics keyed by (user, date). Returns false when a briefing already
// exists for that day; the second writer is silently ignored, never an error.
func (p *Pool) UpsertSelection(ctx context.Context, userID string, day time.Time, mode string, items []ranker.SelectionItem) (bool, error) {
	if p == nil || p.gdb == nil {
		return false, fmt.Errorf("database pool is not initialized")
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin selection tx: %w", err)
	}

	inserted, err := insertSelectionTx(ctx, tx, userID, day, mode, items)
	if err != nil {
		_ = tx.Rollback(ctx)
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return false, fmt.Errorf("commit selection tx: %w", err)
	}
	return inserted, nil
}

func insertSelectionTx(ctx context.Context, tx Tx, userID string, day time.Time, mode string, items []ranker.SelectionItem) (bool, error) {
	const q = `
INSERT INTO briefing.briefings (
	user_id,
	briefing_date,
	mode,
	item_count,
	generated_at
)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, briefing_date) DO NOTHING
RETURNING briefing_id
`

	var briefingID int64
	err := tx.QueryRow(ctx, q, userID, day, mode, len(items), globaltime.UTC()).Scan(&briefingID)
	if err != nil {
		if IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert briefing user_id=%s: %w", userID, err)
	}

	const itemQ = `
INSERT INTO briefing.briefing_items (
	briefing_id,
	rank,
	content_id,
	score,
	reason,
	breakdown
)
VALUES ($1, $2, $3, $4, $5, $6::jsonb)
`

	for _, item := range items {
		breakdownJSON, err := json.Marshal(item.Breakdown)
		if err != nil {
			return false, fmt.Errorf("marshal breakdown content_id=%s: %w", item.Candidate.ID, err)
		}
		if _, err := tx.Exec(ctx, itemQ, briefingID, item.Rank, item.Candidate.ID, item.Score, item.Reason, string(breakdownJSON)); err != nil {
			return false, fmt.Errorf("insert briefing item rank=%d: %w", item.Rank, err)
		}
	}
	return true, nil
}

// GetSelection reads back a persisted briefing for rendering. The boolean is
// false when no briefing exists for that (user, date).
func (p *Pool) GetSelection(ctx context.Context, userID string, day time.Time) ([]ranker.SelectionItem, bool, error) {
	if p == nil || p.gdb == nil {
		return nil, false, fmt.Errorf("database pool is not initialized")
	}

	var briefingID int64
	err := p.QueryRow(ctx, `
SELECT briefing_id
FROM briefing.briefings
WHERE user_id = $1
  AND briefing_date = $2
`, userID, day).Scan(&briefingID)
	if err != nil {
		if IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query briefing user_id=%s: %w", userID, err)
	}

	const q = `
SELECT
	bi.rank,
	bi.content_id,
	bi.score,
	bi.reason,
	bi.breakdown,
	ci.source_id,
	COALESCE(ci.theme, ''),
	ci.published_at,
	ci.title,
	ci.kind
FROM briefing.briefing_items bi
JOIN briefing.content_items ci ON ci.content_id = bi.content_id
WHERE bi.briefing_id = $1
ORDER BY bi.rank
`

	rows, err := p.Query(ctx, q, briefingID)
	if err != nil {
		return nil, false, fmt.Errorf("query briefing items briefing_id=%d: %w", briefingID, err)
	}
	defer rows.Close()

	var items []ranker.SelectionItem
	for rows.Next() {
		var (
			item         ranker.SelectionItem
			kind         string
			breakdownRaw []byte
		)
		if err := rows.Scan(
			&item.Rank,
			&item.Candidate.ID,
			&item.Score,
			&item.Reason,
			&breakdownRaw,
			&item.Candidate.SourceID,
			&item.Candidate.Theme,
			&item.Candidate.PublishedAt,
			&item.Candidate.Title,
			&kind,
		); err != nil {
			return nil, false, fmt.Errorf("scan briefing item: %w", err)
		}
		item.Candidate.Kind = ranker.ContentKind(kind)
		if len(breakdownRaw) > 0 {
			if err := json.Unmarshal(breakdownRaw, &item.Breakdown); err != nil {
				return nil, false, fmt.Errorf("decode breakdown rank=%d: %w", item.Rank, err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate briefing items: %w", err)
	}
	return items, true, nil
}
