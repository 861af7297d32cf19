package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horse.fit/briefing/internal/globaltime"
	"horse.fit/briefing/internal/ranker"
)

// FetchCandidates returns the user's candidate pool for one selection run:
// recent content, already excluding dismissed/consumed/saved items and muted
// sources at the storage layer. Rows come back newest first, which downstream
// stable sorts preserve as the tie-break order.
func (p *Pool) FetchCandidates(ctx context.Context, userID string, lookback time.Duration, limit int) ([]ranker.Candidate, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if limit <= 0 {
		return nil, nil
	}

	cutoff := globaltime.UTC().Add(-lookback)

	const q = `
SELECT
	ci.content_id,
	ci.source_id,
	COALESCE(ci.theme, ''),
	ci.topics,
	ci.published_at,
	ci.title,
	ci.kind,
	COALESCE(ci.duration_seconds, 0),
	ci.has_thumbnail,
	ci.price_gated,
	s.curated,
	s.low_reliability
FROM briefing.content_items ci
JOIN briefing.sources s ON s.source_id = ci.source_id
WHERE ci.published_at >= $2
  AND NOT EXISTS (
	SELECT 1
	FROM briefing.dismissals d
	WHERE d.user_id = $1
	  AND d.content_id = ci.content_id
  )
  AND NOT EXISTS (
	SELECT 1
	FROM briefing.user_mutes m
	WHERE m.user_id = $1
	  AND m.mute_type = 'source'
	  AND m.value = ci.source_id
  )
ORDER BY ci.published_at DESC
LIMIT $3
`

	rows, err := p.Query(ctx, q, userID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates user_id=%s: %w", userID, err)
	}
	defer rows.Close()

	candidates := make([]ranker.Candidate, 0, limit)
	for rows.Next() {
		var (
			c         ranker.Candidate
			kind      string
			topicsRaw []byte
		)
		if err := rows.Scan(
			&c.ID,
			&c.SourceID,
			&c.Theme,
			&topicsRaw,
			&c.PublishedAt,
			&c.Title,
			&kind,
			&c.DurationSec,
			&c.HasThumbnail,
			&c.PriceGated,
			&c.SourceCurated,
			&c.SourceLowReliability,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Kind = ranker.ContentKind(kind)
		if len(topicsRaw) > 0 {
			if err := json.Unmarshal(topicsRaw, &c.Topics); err != nil {
				return nil, fmt.Errorf("decode topics content_id=%s: %w", c.ID, err)
			}
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}
