package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/briefing/internal/globaltime"
)

// ListEligibleUsers returns the ids of all active accounts, ordered for
// deterministic batch iteration.
func (p *Pool) ListEligibleUsers(ctx context.Context) ([]string, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	rows, err := p.Query(ctx, `
SELECT user_id
FROM briefing.user_accounts
WHERE active
ORDER BY user_id
`)
	if err != nil {
		return nil, fmt.Errorf("query eligible users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible users: %w", err)
	}
	return userIDs, nil
}

const featuredWindow = 48 * time.Hour

// FetchFeaturedIDs returns the curated front-page identifiers from the last
// two days. Callers treat this feed as best-effort.
func (p *Pool) FetchFeaturedIDs(ctx context.Context) (map[string]struct{}, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	cutoff := globaltime.UTC().Add(-featuredWindow)
	rows, err := p.Query(ctx, `
SELECT content_id
FROM briefing.featured_items
WHERE featured_at >= $1
`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query featured items: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var contentID string
		if err := rows.Scan(&contentID); err != nil {
			return nil, fmt.Errorf("scan featured id: %w", err)
		}
		ids[contentID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate featured items: %w", err)
	}
	return ids, nil
}
