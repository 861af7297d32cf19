package ranker

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fixedLayer struct {
	name   string
	points float64
}

func (l fixedLayer) Name() string { return l.name }

func (l fixedLayer) Score(_ Candidate, _ *UserContext, _ time.Time) (float64, []Contribution) {
	return l.points, []Contribution{{Layer: l.name, Points: l.points, Reason: "fixed"}}
}

type panicLayer struct{}

func (panicLayer) Name() string { return "panic" }

func (panicLayer) Score(c Candidate, _ *UserContext, _ time.Time) (float64, []Contribution) {
	if c.ID == "boom" {
		panic("scoring blew up")
	}
	return 1, nil
}

func TestEngine_SumsLayersAndPreservesOrder(t *testing.T) {
	t.Parallel()

	engine := NewEngine(zerolog.Nop(), fixedLayer{"a", 2}, fixedLayer{"b", -0.5}, fixedLayer{"c", 3})
	candidates := []Candidate{{ID: "x"}, {ID: "y"}, {ID: "z"}}

	scored := engine.ScoreAll(candidates, emptyContext(), testNow)
	if len(scored) != 3 {
		t.Fatalf("expected 3 scored candidates, got %d", len(scored))
	}
	for i, sc := range scored {
		if sc.Candidate.ID != candidates[i].ID {
			t.Fatalf("input order not preserved at %d: got %q", i, sc.Candidate.ID)
		}
		if !almostEqual(sc.Score, 4.5) {
			t.Fatalf("candidate %q: got %f want 4.5", sc.Candidate.ID, sc.Score)
		}
		if len(sc.Breakdown) != 3 {
			t.Fatalf("candidate %q: expected 3 contributions, got %d", sc.Candidate.ID, len(sc.Breakdown))
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	engine := NewEngine(zerolog.Nop(), DefaultLayers(w)...)
	uc := emptyContext()
	uc.ThemeWeights["tech"] = 1.2
	uc.TopicWeights["ai"] = 1.0
	uc.FollowedSources["s2"] = struct{}{}

	candidates := []Candidate{
		{ID: "a", SourceID: "s1", Theme: "tech", Topics: []string{"ai"}, PublishedAt: testNow.Add(-3 * time.Hour), HasThumbnail: true},
		{ID: "b", SourceID: "s2", Theme: "sports", PublishedAt: testNow.Add(-30 * time.Hour)},
	}

	first := engine.ScoreAll(candidates, uc, testNow)
	second := engine.ScoreAll(candidates, uc, testNow)
	for i := range first {
		if first[i].Score != second[i].Score {
			t.Fatalf("candidate %q scored differently across runs: %f vs %f",
				first[i].Candidate.ID, first[i].Score, second[i].Score)
		}
	}
}

func TestEngine_PanicContainedPerCandidate(t *testing.T) {
	t.Parallel()

	engine := NewEngine(zerolog.Nop(), panicLayer{})
	candidates := []Candidate{{ID: "ok-1"}, {ID: "boom"}, {ID: "ok-2"}}

	scored := engine.ScoreAll(candidates, emptyContext(), testNow)
	if len(scored) != 3 {
		t.Fatalf("expected all candidates scored, got %d", len(scored))
	}
	if scored[1].Score != 0 || scored[1].Breakdown != nil {
		t.Fatalf("panicking candidate should get zero score and nil breakdown, got %f", scored[1].Score)
	}
	if scored[0].Score != 1 || scored[2].Score != 1 {
		t.Fatalf("neighbors of a panicking candidate must score normally, got %f and %f",
			scored[0].Score, scored[2].Score)
	}
}
