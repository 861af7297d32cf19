package ranker

import (
	"testing"
	"time"
)

func TestNormalizeTitle_EnglishStopWordsAndShortTokens(t *testing.T) {
	t.Parallel()

	tokens := NormalizeTitle("The central bank raises rates for the first time in a decade")
	for _, want := range []string{"central", "bank", "raises", "rates", "first", "time", "decade"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("expected token %q in %v", want, tokens)
		}
	}
	for _, dropped := range []string{"the", "for", "in", "a"} {
		if _, ok := tokens[dropped]; ok {
			t.Fatalf("token %q should have been dropped", dropped)
		}
	}
}

func TestNormalizeTitle_StripsDiacriticsAndFrenchStopWords(t *testing.T) {
	t.Parallel()

	tokens := NormalizeTitle("Macron défend la réforme des retraites devant les députés")
	for _, want := range []string{"macron", "defend", "reforme", "retraites", "devant", "deputes"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("expected token %q in %v", want, tokens)
		}
	}
	if _, ok := tokens["des"]; ok {
		t.Fatalf("french stop-word %q should have been dropped", "des")
	}
}

func TestNormalizeTitle_Empty(t *testing.T) {
	t.Parallel()

	if tokens := NormalizeTitle("   "); tokens != nil {
		t.Fatalf("expected nil tokens for blank title, got %v", tokens)
	}
	if tokens := NormalizeTitle("a of in"); tokens != nil {
		t.Fatalf("expected nil tokens when everything is dropped, got %v", tokens)
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	a := map[string]struct{}{"x": {}, "y": {}, "z": {}}
	b := map[string]struct{}{"y": {}, "z": {}, "w": {}}

	if score := Jaccard(a, a); score != 1 {
		t.Fatalf("identity: got %f want 1", score)
	}
	if Jaccard(a, b) != Jaccard(b, a) {
		t.Fatalf("jaccard must be symmetric")
	}
	if score := Jaccard(a, b); !almostEqual(score, 0.5) {
		t.Fatalf("got %f want 0.5", score)
	}
	if score := Jaccard(a, nil); score != 0 {
		t.Fatalf("empty operand: got %f want 0", score)
	}
}

func TestClusterGreedy_GroupsSameStoryAcrossSources(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{ID: "a", SourceID: "s1", Theme: "politics", Title: "Macron défend la réforme des retraites", PublishedAt: testNow},
		{ID: "b", SourceID: "s2", Theme: "politics", Title: "Réforme des retraites : Macron répond aux syndicats", PublishedAt: testNow.Add(-2 * time.Hour)},
		{ID: "c", SourceID: "s3", Theme: "politics", Title: "Retraites : la réforme de Macron adoptée", PublishedAt: testNow.Add(-5 * time.Hour)},
		{ID: "d", SourceID: "s4", Theme: "sports", Title: "Le PSG remporte le championnat de football", PublishedAt: testNow},
	}

	clusterer := NewClusterer(DefaultWeights())
	clusters := clusterer.Cluster(candidates, StrategyGreedy)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	story := clusters[0]
	if len(story.Candidates) != 3 {
		t.Fatalf("expected 3 articles in the story cluster, got %d", len(story.Candidates))
	}
	if story.SourceCount != 3 {
		t.Fatalf("expected 3 distinct sources, got %d", story.SourceCount)
	}
	if !story.Trending {
		t.Fatalf("3 distinct sources should mark the cluster trending")
	}
	if story.Theme != "politics" {
		t.Fatalf("majority theme: got %q want politics", story.Theme)
	}
	if clusters[1].Trending {
		t.Fatalf("single-article cluster must not be trending")
	}
}

func TestClusterGreedy_TrendingNeedsDistinctSources(t *testing.T) {
	t.Parallel()

	// Three matching articles but only two distinct sources.
	candidates := []Candidate{
		{ID: "a", SourceID: "s1", Title: "Central bank raises interest rates sharply"},
		{ID: "b", SourceID: "s1", Title: "Central bank raises rates again"},
		{ID: "c", SourceID: "s2", Title: "Interest rates raised by central bank"},
	}

	clusterer := NewClusterer(DefaultWeights())
	clusters := clusterer.Cluster(candidates, StrategyGreedy)

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].SourceCount != 2 {
		t.Fatalf("expected 2 distinct sources, got %d", clusters[0].SourceCount)
	}
	if clusters[0].Trending {
		t.Fatalf("2 sources is below the trending threshold of %d", DefaultWeights().MinTrendingSources)
	}
}

func TestClusterUnionFind_StrictMergeIgnoresThemeAndTime(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{ID: "a", SourceID: "s1", Theme: "tech", Title: "Quantum computer breakthrough announced", PublishedAt: testNow},
		{ID: "b", SourceID: "s2", Theme: "science", Title: "Researchers hail quantum computer milestone", PublishedAt: testNow.Add(-100 * time.Hour)},
	}

	clusterer := NewClusterer(DefaultWeights())
	clusters := clusterer.Cluster(candidates, StrategyUnionFind)

	// "quantum" and "computer" shared: strict merge, despite differing
	// themes and a gap beyond the relaxed window.
	if len(clusters) != 1 {
		t.Fatalf("expected strict two-token merge, got %d clusters", len(clusters))
	}
}

func TestClusterUnionFind_RelaxedMergeNeedsThemeAndWindow(t *testing.T) {
	t.Parallel()

	base := Candidate{ID: "a", SourceID: "s1", Theme: "finance", Title: "Inflation slows in March", PublishedAt: testNow}
	sameTheme := Candidate{ID: "b", SourceID: "s2", Theme: "finance", Title: "Inflation forecast revised", PublishedAt: testNow.Add(-10 * time.Hour)}
	otherTheme := Candidate{ID: "c", SourceID: "s3", Theme: "politics", Title: "Inflation dominates the debate", PublishedAt: testNow.Add(-10 * time.Hour)}
	stale := Candidate{ID: "d", SourceID: "s4", Theme: "finance", Title: "Inflation outlook darkens", PublishedAt: testNow.Add(-80 * time.Hour)}

	clusterer := NewClusterer(DefaultWeights())
	clusters := clusterer.Cluster([]Candidate{base, sameTheme, otherTheme, stale}, StrategyUnionFind)

	// Only a+b qualify: one shared token plus same theme within 48h.
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(clusters))
	}
	if len(clusters[0].Candidates) != 2 {
		t.Fatalf("expected relaxed merge of 2 articles, got %d", len(clusters[0].Candidates))
	}
	if clusters[0].Candidates[0].ID != "a" || clusters[0].Candidates[1].ID != "b" {
		t.Fatalf("unexpected merged pair: %q and %q", clusters[0].Candidates[0].ID, clusters[0].Candidates[1].ID)
	}
}

func TestTrendingIDs(t *testing.T) {
	t.Parallel()

	clusters := []TopicCluster{
		{Trending: true, Candidates: []Candidate{{ID: "a"}, {ID: "b"}}},
		{Trending: false, Candidates: []Candidate{{ID: "c"}}},
	}

	ids := TrendingIDs(clusters)
	if len(ids) != 2 {
		t.Fatalf("expected 2 trending ids, got %d", len(ids))
	}
	if _, ok := ids["c"]; ok {
		t.Fatalf("non-trending candidate leaked into trending ids")
	}
}

func TestFeatured_Intersection(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{{ID: "a"}, {ID: "b"}}
	featured := map[string]struct{}{"b": {}, "zz": {}}

	matched := Featured(candidates, featured)
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if _, ok := matched["b"]; !ok {
		t.Fatalf("expected %q to be featured", "b")
	}
	if len(Featured(candidates, nil)) != 0 {
		t.Fatalf("empty featured set must match nothing")
	}
}
