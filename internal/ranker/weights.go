package ranker

import (
	"encoding/json"
	"fmt"
)

// Weights holds every tunable point value and threshold of the selection
// pipeline. Components receive an immutable copy at construction; there is no
// package-level mutable state.
type Weights struct {
	ThemeMatchBonus     float64 `json:"theme_match_bonus"`
	FollowedSourceBonus float64 `json:"followed_source_bonus"`
	StandardSourceBonus float64 `json:"standard_source_bonus"`
	RecencyNumerator    float64 `json:"recency_numerator"`

	TopicMatchBonus     float64 `json:"topic_match_bonus"`
	MaxTopicMatches     int     `json:"max_topic_matches"`
	TopicPrecisionBonus float64 `json:"topic_precision_bonus"`

	BehavioralBase float64 `json:"behavioral_base"`

	QualityCuratedBonus        float64 `json:"quality_curated_bonus"`
	QualityLowReliabilityMalus float64 `json:"quality_low_reliability_malus"`

	VisualBonus float64 `json:"visual_bonus"`

	PrefRecentBonus    float64 `json:"pref_recent_bonus"`
	PrefRecentMaxHours float64 `json:"pref_recent_max_hours"`
	PrefTimelessBonus  float64 `json:"pref_timeless_bonus"`
	PrefTimelessMinHrs float64 `json:"pref_timeless_min_hours"`
	PrefKindBonus      float64 `json:"pref_kind_bonus"`
	PrefDurationBonus  float64 `json:"pref_duration_bonus"`
	ShortDurationSec   int     `json:"short_duration_seconds"`
	LongDurationSec    int     `json:"long_duration_seconds"`

	MuteSourceMalus float64 `json:"mute_source_malus"`
	MuteKindMalus   float64 `json:"mute_kind_malus"`
	MuteThemeMalus  float64 `json:"mute_theme_malus"`
	MuteTopicMalus  float64 `json:"mute_topic_malus"`

	ImpressionHourMalus     float64 `json:"impression_hour_malus"`
	ImpressionDayMalus      float64 `json:"impression_day_malus"`
	ImpressionTwoDayMalus   float64 `json:"impression_two_day_malus"`
	ImpressionThreeDayMalus float64 `json:"impression_three_day_malus"`
	SeenMalus               float64 `json:"seen_malus"`

	SimilarityThreshold float64 `json:"similarity_threshold"`
	RelaxedSharedTokens int     `json:"relaxed_shared_tokens"`
	StrictSharedTokens  int     `json:"strict_shared_tokens"`
	RelaxedWindowHours  float64 `json:"relaxed_window_hours"`
	MinTrendingSources  int     `json:"min_trending_sources"`

	MaxPerSource       int     `json:"max_per_source"`
	MaxPerTheme        int     `json:"max_per_theme"`
	DecayFactor        float64 `json:"decay_factor"`
	DecayDivisor       float64 `json:"decay_divisor"`
	MinDistinctSources int     `json:"min_distinct_sources"`

	ImportantRatio       float64 `json:"important_ratio"`
	TrendingBoost        float64 `json:"trending_boost"`
	FeaturedBoost        float64 `json:"featured_boost"`
	ClusterTrendingBonus float64 `json:"cluster_trending_bonus"`
	ClusterFeaturedBonus float64 `json:"cluster_featured_bonus"`
	ClusterThemeBonus    float64 `json:"cluster_theme_bonus"`
	ClusterTopicBonus    float64 `json:"cluster_topic_bonus"`
	MaxTopicGroups       int     `json:"max_topic_groups"`
	MaxClustersPerTheme  int     `json:"max_clusters_per_theme"`
	MaxClusterArticles   int     `json:"max_cluster_articles"`
}

// DefaultWeights returns the tuned production defaults.
func DefaultWeights() Weights {
	return Weights{
		ThemeMatchBonus:     8,
		FollowedSourceBonus: 6,
		StandardSourceBonus: 2,
		RecencyNumerator:    30,

		TopicMatchBonus:     5,
		MaxTopicMatches:     2,
		TopicPrecisionBonus: 2,

		BehavioralBase: 4,

		QualityCuratedBonus:        3,
		QualityLowReliabilityMalus: 4,

		VisualBonus: 1.5,

		PrefRecentBonus:    3,
		PrefRecentMaxHours: 12,
		PrefTimelessBonus:  3,
		PrefTimelessMinHrs: 7 * 24,
		PrefKindBonus:      2,
		PrefDurationBonus:  2,
		ShortDurationSec:   300,
		LongDurationSec:    900,

		MuteSourceMalus: 50,
		MuteKindMalus:   50,
		MuteThemeMalus:  15,
		MuteTopicMalus:  8,

		ImpressionHourMalus:     20,
		ImpressionDayMalus:      12,
		ImpressionTwoDayMalus:   8,
		ImpressionThreeDayMalus: 4,
		SeenMalus:               30,

		SimilarityThreshold: 0.4,
		RelaxedSharedTokens: 1,
		StrictSharedTokens:  2,
		RelaxedWindowHours:  48,
		MinTrendingSources:  3,

		MaxPerSource:       2,
		MaxPerTheme:        2,
		DecayFactor:        0.75,
		DecayDivisor:       0,
		MinDistinctSources: 3,

		ImportantRatio:       0.4,
		TrendingBoost:        10,
		FeaturedBoost:        8,
		ClusterTrendingBonus: 10,
		ClusterFeaturedBonus: 8,
		ClusterThemeBonus:    5,
		ClusterTopicBonus:    3,
		MaxTopicGroups:       5,
		MaxClustersPerTheme:  2,
		MaxClusterArticles:   3,
	}
}

// ApplyJSON overlays a partial JSON override document onto a copy of w.
// Fields absent from the document keep their current values.
func (w Weights) ApplyJSON(data []byte) (Weights, error) {
	merged := w
	if err := json.Unmarshal(data, &merged); err != nil {
		return Weights{}, fmt.Errorf("decode weights override: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return Weights{}, err
	}
	return merged, nil
}

func (w Weights) Validate() error {
	if w.SimilarityThreshold <= 0 || w.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0,1]")
	}
	if w.MinTrendingSources < 2 {
		return fmt.Errorf("min_trending_sources must be >= 2")
	}
	if w.MaxPerSource < 1 {
		return fmt.Errorf("max_per_source must be >= 1")
	}
	if w.MaxPerTheme < 1 {
		return fmt.Errorf("max_per_theme must be >= 1")
	}
	if w.DecayDivisor == 0 && (w.DecayFactor <= 0 || w.DecayFactor >= 1) {
		return fmt.Errorf("decay_factor must be in (0,1) when decay_divisor is unset")
	}
	if w.DecayDivisor < 0 {
		return fmt.Errorf("decay_divisor must be >= 0")
	}
	if w.ImportantRatio < 0 || w.ImportantRatio > 1 {
		return fmt.Errorf("important_ratio must be in [0,1]")
	}
	if w.MaxTopicMatches < 0 {
		return fmt.Errorf("max_topic_matches must be >= 0")
	}
	if w.MaxClusterArticles < 1 {
		return fmt.Errorf("max_cluster_articles must be >= 1")
	}
	return nil
}
