package ranker

import (
	"math"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func emptyContext() *UserContext {
	return &UserContext{
		FollowedSources: map[string]struct{}{},
		ThemeWeights:    map[string]float64{},
		TopicWeights:    map[string]float64{},
		MutedSources:    map[string]struct{}{},
		MutedThemes:     map[string]struct{}{},
		MutedTopics:     map[string]struct{}{},
		MutedKinds:      map[ContentKind]struct{}{},
		Preferences:     map[string]string{},
		SourceLeanings:  map[string]string{},
		LastShownAt:     map[string]time.Time{},
		SeenIDs:         map[string]struct{}{},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCoreLayer_RecencyDecay(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := CoreLayer{Weights: w}
	uc := emptyContext()

	fresh := Candidate{ID: "a", SourceID: "s1", PublishedAt: testNow}
	dayOld := Candidate{ID: "b", SourceID: "s1", PublishedAt: testNow.Add(-24 * time.Hour)}
	weekOld := Candidate{ID: "c", SourceID: "s1", PublishedAt: testNow.Add(-7 * 24 * time.Hour)}

	scoreFresh, _ := layer.Score(fresh, uc, testNow)
	scoreDay, _ := layer.Score(dayOld, uc, testNow)
	scoreWeek, _ := layer.Score(weekOld, uc, testNow)

	if !almostEqual(scoreFresh, w.StandardSourceBonus+w.RecencyNumerator) {
		t.Fatalf("fresh candidate: got %f want %f", scoreFresh, w.StandardSourceBonus+w.RecencyNumerator)
	}
	if !almostEqual(scoreDay, w.StandardSourceBonus+w.RecencyNumerator/2) {
		t.Fatalf("day-old candidate: got %f want %f", scoreDay, w.StandardSourceBonus+w.RecencyNumerator/2)
	}
	if scoreWeek >= scoreDay || scoreWeek <= w.StandardSourceBonus {
		t.Fatalf("week-old recency should decay but stay positive, got %f", scoreWeek)
	}
}

func TestCoreLayer_FutureDateClampedToZeroAge(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := CoreLayer{Weights: w}

	future := Candidate{ID: "a", SourceID: "s1", PublishedAt: testNow.Add(6 * time.Hour)}
	score, _ := layer.Score(future, emptyContext(), testNow)
	if !almostEqual(score, w.StandardSourceBonus+w.RecencyNumerator) {
		t.Fatalf("future-dated candidate should score as brand new, got %f", score)
	}
}

func TestCoreLayer_FollowedSourceAndTheme(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := CoreLayer{Weights: w}
	uc := emptyContext()
	uc.FollowedSources["s1"] = struct{}{}
	uc.ThemeWeights["politics"] = 1.0

	c := Candidate{ID: "a", SourceID: "s1", Theme: "politics", PublishedAt: testNow}
	score, contributions := layer.Score(c, uc, testNow)

	want := w.ThemeMatchBonus + w.FollowedSourceBonus + w.RecencyNumerator
	if !almostEqual(score, want) {
		t.Fatalf("got %f want %f", score, want)
	}
	if len(contributions) != 3 {
		t.Fatalf("expected 3 contributions, got %d", len(contributions))
	}
}

func TestTopicLayer_CapsMatchesAndAddsPrecisionBonus(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := TopicLayer{Weights: w}
	uc := emptyContext()
	uc.TopicWeights["ai"] = 1.0
	uc.TopicWeights["chips"] = 1.0
	uc.TopicWeights["cloud"] = 1.0
	uc.ThemeWeights["tech"] = 1.0

	c := Candidate{ID: "a", Theme: "tech", Topics: []string{"ai", "chips", "cloud"}}
	score, _ := layer.Score(c, uc, testNow)

	want := float64(w.MaxTopicMatches)*w.TopicMatchBonus + w.TopicPrecisionBonus
	if !almostEqual(score, want) {
		t.Fatalf("got %f want %f (matches capped at %d)", score, want, w.MaxTopicMatches)
	}
}

func TestTopicLayer_NoPrecisionBonusWithoutThemeInterest(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := TopicLayer{Weights: w}
	uc := emptyContext()
	uc.TopicWeights["ai"] = 1.0

	c := Candidate{ID: "a", Theme: "tech", Topics: []string{"ai"}}
	score, _ := layer.Score(c, uc, testNow)
	if !almostEqual(score, w.TopicMatchBonus) {
		t.Fatalf("got %f want %f", score, w.TopicMatchBonus)
	}
}

func TestBehavioralLayer_SignedByThemeWeight(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := BehavioralLayer{Weights: w}
	uc := emptyContext()
	uc.ThemeWeights["sports"] = 1.5
	uc.ThemeWeights["finance"] = 0.5

	up, _ := layer.Score(Candidate{Theme: "sports"}, uc, testNow)
	if !almostEqual(up, w.BehavioralBase*0.5) {
		t.Fatalf("above-neutral weight: got %f want %f", up, w.BehavioralBase*0.5)
	}

	down, _ := layer.Score(Candidate{Theme: "finance"}, uc, testNow)
	if !almostEqual(down, -w.BehavioralBase*0.5) {
		t.Fatalf("below-neutral weight: got %f want %f", down, -w.BehavioralBase*0.5)
	}

	none, contributions := layer.Score(Candidate{Theme: "culture"}, uc, testNow)
	if none != 0 || contributions != nil {
		t.Fatalf("unknown theme should contribute nothing, got %f", none)
	}
}

func TestQualityLayer_CuratedBeatsLowReliability(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := QualityLayer{Weights: w}

	curated, _ := layer.Score(Candidate{SourceCurated: true, SourceLowReliability: true}, nil, testNow)
	if !almostEqual(curated, w.QualityCuratedBonus) {
		t.Fatalf("curated flag should win: got %f want %f", curated, w.QualityCuratedBonus)
	}

	low, _ := layer.Score(Candidate{SourceLowReliability: true}, nil, testNow)
	if !almostEqual(low, -w.QualityLowReliabilityMalus) {
		t.Fatalf("low reliability: got %f want %f", low, -w.QualityLowReliabilityMalus)
	}
}

func TestPreferenceLayer_RecentKindAndDuration(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := PreferenceLayer{Weights: w}
	uc := emptyContext()
	uc.Preferences["recency"] = "recent"
	uc.Preferences["kind"] = "video"
	uc.Preferences["length"] = "short"

	c := Candidate{
		Kind:        KindVideo,
		DurationSec: 120,
		PublishedAt: testNow.Add(-2 * time.Hour),
	}
	score, contributions := layer.Score(c, uc, testNow)

	want := w.PrefRecentBonus + w.PrefKindBonus + w.PrefDurationBonus
	if !almostEqual(score, want) {
		t.Fatalf("got %f want %f", score, want)
	}
	if len(contributions) != 3 {
		t.Fatalf("expected 3 contributions, got %d", len(contributions))
	}
}

func TestPreferenceLayer_TimelessThresholds(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := PreferenceLayer{Weights: w}
	uc := emptyContext()
	uc.Preferences["recency"] = "timeless"

	young := Candidate{PublishedAt: testNow.Add(-24 * time.Hour)}
	if score, _ := layer.Score(young, uc, testNow); score != 0 {
		t.Fatalf("day-old content is not timeless, got %f", score)
	}

	old := Candidate{PublishedAt: testNow.Add(-10 * 24 * time.Hour)}
	if score, _ := layer.Score(old, uc, testNow); !almostEqual(score, w.PrefTimelessBonus) {
		t.Fatalf("got %f want %f", score, w.PrefTimelessBonus)
	}
}

func TestMutingLayer_TopicMalusesAccumulate(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := MutingLayer{Weights: w}
	uc := emptyContext()
	uc.MutedSources["s1"] = struct{}{}
	uc.MutedThemes["politics"] = struct{}{}
	uc.MutedTopics["elections"] = struct{}{}
	uc.MutedTopics["polls"] = struct{}{}

	c := Candidate{SourceID: "s1", Theme: "politics", Topics: []string{"elections", "polls", "economy"}}
	score, _ := layer.Score(c, uc, testNow)

	want := -(w.MuteSourceMalus + w.MuteThemeMalus + 2*w.MuteTopicMalus)
	if !almostEqual(score, want) {
		t.Fatalf("got %f want %f", score, want)
	}
}

func TestImpressionLayer_TiersSoftenWithAge(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := ImpressionLayer{Weights: w}

	cases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"within the hour", 30 * time.Minute, -w.ImpressionHourMalus},
		{"same day", 6 * time.Hour, -w.ImpressionDayMalus},
		{"two days", 36 * time.Hour, -w.ImpressionTwoDayMalus},
		{"three days", 60 * time.Hour, -w.ImpressionThreeDayMalus},
		{"expired", 80 * time.Hour, 0},
	}
	for _, tc := range cases {
		uc := emptyContext()
		uc.LastShownAt["a"] = testNow.Add(-tc.age)
		score, _ := layer.Score(Candidate{ID: "a"}, uc, testNow)
		if !almostEqual(score, tc.want) {
			t.Fatalf("%s: got %f want %f", tc.name, score, tc.want)
		}
	}
}

func TestImpressionLayer_SeenMalusStacksWithImpression(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	layer := ImpressionLayer{Weights: w}
	uc := emptyContext()
	uc.LastShownAt["a"] = testNow.Add(-2 * time.Hour)
	uc.SeenIDs["a"] = struct{}{}

	score, contributions := layer.Score(Candidate{ID: "a"}, uc, testNow)
	want := -(w.ImpressionDayMalus + w.SeenMalus)
	if !almostEqual(score, want) {
		t.Fatalf("got %f want %f", score, want)
	}
	if len(contributions) != 2 {
		t.Fatalf("expected 2 contributions, got %d", len(contributions))
	}
}
