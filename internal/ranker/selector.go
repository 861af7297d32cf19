package ranker

import (
	"fmt"
	"math"
	"sort"
)

// DiversityState tracks per-source and per-theme running counts. The two-pass
// orchestrator carries one state across selector passes so the second pass
// honors caps already consumed by the first.
type DiversityState struct {
	SourceCounts map[string]int
	ThemeCounts  map[string]int
}

func NewDiversityState() *DiversityState {
	return &DiversityState{
		SourceCounts: make(map[string]int),
		ThemeCounts:  make(map[string]int),
	}
}

func (s *DiversityState) clone() *DiversityState {
	out := NewDiversityState()
	for k, v := range s.SourceCounts {
		out.SourceCounts[k] = v
	}
	for k, v := range s.ThemeCounts {
		out.ThemeCounts[k] = v
	}
	return out
}

// SelectionFlags carries the cluster-derived importance markers used for
// reason derivation and importance boosts.
type SelectionFlags struct {
	Trending map[string]struct{}
	Featured map[string]struct{}
}

func (f SelectionFlags) trending(id string) bool {
	_, ok := f.Trending[id]
	return ok
}

func (f SelectionFlags) featured(id string) bool {
	_, ok := f.Featured[id]
	return ok
}

// ApplyImportanceBoosts returns a copy of scored with trending/featured
// candidates boosted, each boost traced by an importance contribution.
func ApplyImportanceBoosts(scored []ScoredCandidate, flags SelectionFlags, w Weights) []ScoredCandidate {
	boosted := make([]ScoredCandidate, len(scored))
	copy(boosted, scored)
	for i := range boosted {
		id := boosted[i].Candidate.ID
		if flags.trending(id) {
			boosted[i].Score += w.TrendingBoost
			boosted[i].Breakdown = appendContribution(boosted[i].Breakdown, Contribution{
				Layer:  "importance",
				Points: w.TrendingBoost,
				Reason: "part of a trending story",
			})
		}
		if flags.featured(id) {
			boosted[i].Score += w.FeaturedBoost
			boosted[i].Breakdown = appendContribution(boosted[i].Breakdown, Contribution{
				Layer:  "importance",
				Points: w.FeaturedBoost,
				Reason: "editorially featured",
			})
		}
	}
	return boosted
}

// appendContribution copies before appending so boosted candidates never
// share breakdown backing arrays with their unboosted originals.
func appendContribution(breakdown []Contribution, c Contribution) []Contribution {
	out := make([]Contribution, len(breakdown), len(breakdown)+1)
	copy(out, breakdown)
	return append(out, c)
}

// Selector greedily picks the top candidates under per-source and per-theme
// caps, applying a decay penalty to repeated sources.
type Selector struct {
	weights Weights
}

func NewSelector(w Weights) *Selector {
	return &Selector{weights: w}
}

// Select accepts up to limit candidates. The incoming state is mutated with
// the accepted counts so callers can chain passes. When the accepted set does
// not reach the minimum distinct-source count and the pool itself has fewer
// distinct sources than limit, max-per-source is relaxed to 2 and the pass is
// re-run exactly once.
func (s *Selector) Select(scored []ScoredCandidate, limit int, state *DiversityState, flags SelectionFlags, uc *UserContext) []SelectionItem {
	if limit <= 0 || len(scored) == 0 {
		return nil
	}
	if state == nil {
		state = NewDiversityState()
	}

	pool := make([]ScoredCandidate, len(scored))
	copy(pool, scored)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})

	snapshot := state.clone()
	accepted := s.pass(pool, limit, state, s.weights.MaxPerSource)

	if distinctSources(accepted) < s.weights.MinDistinctSources &&
		poolDistinctSources(pool) < limit &&
		s.weights.MaxPerSource < 2 {
		*state = *snapshot.clone()
		accepted = s.pass(pool, limit, state, 2)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})
	for i := range accepted {
		accepted[i].Rank = i + 1
		accepted[i].Reason = s.reasonFor(accepted[i].Candidate, flags, uc)
	}
	return accepted
}

func (s *Selector) pass(pool []ScoredCandidate, limit int, state *DiversityState, maxPerSource int) []SelectionItem {
	accepted := make([]SelectionItem, 0, limit)
	for _, sc := range pool {
		if len(accepted) == limit {
			break
		}

		src := sc.Candidate.SourceID
		if state.SourceCounts[src] >= maxPerSource {
			continue
		}
		theme := sc.Candidate.Theme
		if theme != "" && state.ThemeCounts[theme] >= s.weights.MaxPerTheme {
			continue
		}

		score := sc.Score
		breakdown := sc.Breakdown
		if prior := state.SourceCounts[src]; prior > 0 {
			decayed := s.decay(score, prior)
			breakdown = appendContribution(breakdown, Contribution{
				Layer:  "diversity",
				Points: decayed - score,
				Reason: fmt.Sprintf("repeat pick from %s", src),
			})
			score = decayed
		}

		state.SourceCounts[src]++
		if theme != "" {
			state.ThemeCounts[theme]++
		}
		accepted = append(accepted, SelectionItem{
			Candidate: sc.Candidate,
			Score:     score,
			Breakdown: breakdown,
		})
	}
	return accepted
}

func (s *Selector) decay(score float64, prior int) float64 {
	if s.weights.DecayDivisor > 0 {
		decayed := score
		for i := 0; i < prior; i++ {
			decayed -= decayed / s.weights.DecayDivisor
		}
		return decayed
	}
	return score * math.Pow(s.weights.DecayFactor, float64(prior))
}

// reasonFor derives the user-visible selection label. Priority order is
// load-bearing: trending/featured flag, matched fine-grained topic, matched
// theme, followed source, then the generic fallback.
func (s *Selector) reasonFor(c Candidate, flags SelectionFlags, uc *UserContext) string {
	if flags.trending(c.ID) {
		return "trending across multiple sources"
	}
	if flags.featured(c.ID) {
		return "featured on the front page"
	}
	if uc != nil {
		for _, topic := range c.Topics {
			if uc.InterestedInTopic(topic) {
				return fmt.Sprintf("about %s", topic)
			}
		}
		if uc.InterestedInTheme(c.Theme) {
			return fmt.Sprintf("matches your interest in %s", c.Theme)
		}
		if uc.FollowsSource(c.SourceID) {
			return "from a source you follow"
		}
	}
	return "recommended for you"
}

func distinctSources(items []SelectionItem) int {
	sources := make(map[string]struct{}, len(items))
	for _, item := range items {
		sources[item.Candidate.SourceID] = struct{}{}
	}
	return len(sources)
}

func poolDistinctSources(pool []ScoredCandidate) int {
	sources := make(map[string]struct{}, len(pool))
	for _, sc := range pool {
		sources[sc.Candidate.SourceID] = struct{}{}
	}
	return len(sources)
}
