package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/briefing/internal/globaltime"
	"horse.fit/briefing/internal/ranker"
)

const impressionLookback = 72 * time.Hour

// BuildUserContext assembles the per-run read-only snapshot of a user's
// preferences. Returns ErrNoRows (wrapped) when the user does not exist.
func (p *Pool) BuildUserContext(ctx context.Context, userID string) (*ranker.UserContext, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	uc := &ranker.UserContext{
		UserID:          userID,
		FollowedSources: make(map[string]struct{}),
		ThemeWeights:    make(map[string]float64),
		TopicWeights:    make(map[string]float64),
		MutedSources:    make(map[string]struct{}),
		MutedThemes:     make(map[string]struct{}),
		MutedTopics:     make(map[string]struct{}),
		MutedKinds:      make(map[ranker.ContentKind]struct{}),
		Preferences:     make(map[string]string),
		SourceLeanings:  make(map[string]string),
		LastShownAt:     make(map[string]time.Time),
		SeenIDs:         make(map[string]struct{}),
	}

	var leaning *string
	err := p.QueryRow(ctx, `
SELECT leaning
FROM briefing.user_accounts
WHERE user_id = $1
  AND active
`, userID).Scan(&leaning)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("user %s not found or inactive: %w", userID, err)
		}
		return nil, fmt.Errorf("query user account user_id=%s: %w", userID, err)
	}
	if leaning != nil {
		uc.Leaning = *leaning
	}

	if err := p.loadFollows(ctx, userID, uc); err != nil {
		return nil, err
	}
	if err := p.loadInterests(ctx, userID, uc); err != nil {
		return nil, err
	}
	if err := p.loadMutes(ctx, userID, uc); err != nil {
		return nil, err
	}
	if err := p.loadPreferences(ctx, userID, uc); err != nil {
		return nil, err
	}
	if err := p.loadImpressions(ctx, userID, uc); err != nil {
		return nil, err
	}
	if err := p.loadSourceLeanings(ctx, uc); err != nil {
		return nil, err
	}

	return uc, nil
}

func (p *Pool) loadFollows(ctx context.Context, userID string, uc *ranker.UserContext) error {
	rows, err := p.Query(ctx, `
SELECT source_id
FROM briefing.user_follows
WHERE user_id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("query follows user_id=%s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sourceID string
		if err := rows.Scan(&sourceID); err != nil {
			return fmt.Errorf("scan follow: %w", err)
		}
		uc.FollowedSources[sourceID] = struct{}{}
	}
	return rows.Err()
}

func (p *Pool) loadInterests(ctx context.Context, userID string, uc *ranker.UserContext) error {
	rows, err := p.Query(ctx, `
SELECT theme, weight
FROM briefing.user_interests
WHERE user_id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("query interests user_id=%s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var theme string
		var weight float64
		if err := rows.Scan(&theme, &weight); err != nil {
			return fmt.Errorf("scan interest: %w", err)
		}
		uc.ThemeWeights[theme] = clampWeight(weight)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	topicRows, err := p.Query(ctx, `
SELECT topic, weight
FROM briefing.user_topic_interests
WHERE user_id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("query topic interests user_id=%s: %w", userID, err)
	}
	defer topicRows.Close()

	for topicRows.Next() {
		var topic string
		var weight float64
		if err := topicRows.Scan(&topic, &weight); err != nil {
			return fmt.Errorf("scan topic interest: %w", err)
		}
		uc.TopicWeights[topic] = clampWeight(weight)
	}
	return topicRows.Err()
}

func (p *Pool) loadMutes(ctx context.Context, userID string, uc *ranker.UserContext) error {
	rows, err := p.Query(ctx, `
SELECT mute_type, value
FROM briefing.user_mutes
WHERE user_id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("query mutes user_id=%s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var muteType, value string
		if err := rows.Scan(&muteType, &value); err != nil {
			return fmt.Errorf("scan mute: %w", err)
		}
		switch muteType {
		case "source":
			uc.MutedSources[value] = struct{}{}
		case "theme":
			uc.MutedThemes[value] = struct{}{}
		case "topic":
			uc.MutedTopics[value] = struct{}{}
		case "content_kind":
			uc.MutedKinds[ranker.ContentKind(value)] = struct{}{}
		}
	}
	return rows.Err()
}

func (p *Pool) loadPreferences(ctx context.Context, userID string, uc *ranker.UserContext) error {
	rows, err := p.Query(ctx, `
SELECT pref_key, pref_value
FROM briefing.user_preferences
WHERE user_id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("query preferences user_id=%s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan preference: %w", err)
		}
		uc.Preferences[key] = value
	}
	return rows.Err()
}

func (p *Pool) loadImpressions(ctx context.Context, userID string, uc *ranker.UserContext) error {
	cutoff := globaltime.UTC().Add(-impressionLookback)
	rows, err := p.Query(ctx, `
SELECT content_id, last_shown_at, marked_seen
FROM briefing.impressions
WHERE user_id = $1
  AND (last_shown_at >= $2 OR marked_seen)
`, userID, cutoff)
	if err != nil {
		return fmt.Errorf("query impressions user_id=%s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var contentID string
		var shownAt time.Time
		var seen bool
		if err := rows.Scan(&contentID, &shownAt, &seen); err != nil {
			return fmt.Errorf("scan impression: %w", err)
		}
		uc.LastShownAt[contentID] = shownAt
		if seen {
			uc.SeenIDs[contentID] = struct{}{}
		}
	}
	return rows.Err()
}

func (p *Pool) loadSourceLeanings(ctx context.Context, uc *ranker.UserContext) error {
	rows, err := p.Query(ctx, `
SELECT source_id, leaning
FROM briefing.sources
WHERE leaning IS NOT NULL
`)
	if err != nil {
		return fmt.Errorf("query source leanings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sourceID, leaning string
		if err := rows.Scan(&sourceID, &leaning); err != nil {
			return fmt.Errorf("scan source leaning: %w", err)
		}
		uc.SourceLeanings[sourceID] = leaning
	}
	return rows.Err()
}

// clampWeight caps learned interest weights at the soft maximum.
func clampWeight(weight float64) float64 {
	if weight < 0 {
		return 0
	}
	if weight > 3.0 {
		return 3.0
	}
	return weight
}
