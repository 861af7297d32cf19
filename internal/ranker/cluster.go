package ranker

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"horse.fit/briefing/internal/langdetect"
)

// Strategy selects which clustering algorithm groups candidates by title
// similarity. Both are kept because downstream callers rely on their distinct
// behaviors: greedy attaches each candidate to the first qualifying cluster,
// union-find merges any pair meeting the strict or relaxed joint conditions.
type Strategy string

const (
	StrategyGreedy    Strategy = "greedy"
	StrategyUnionFind Strategy = "union-find"
)

// TopicCluster groups candidates whose normalized titles overlap. Clusters
// are rebuilt from scratch each run and never persisted.
type TopicCluster struct {
	ID          string
	Candidates  []Candidate
	Theme       string
	SourceCount int
	Trending    bool

	repTokens map[string]struct{}
}

func (tc *TopicCluster) ContainsTopic(uc *UserContext) bool {
	for _, c := range tc.Candidates {
		for _, topic := range c.Topics {
			if uc.InterestedInTopic(topic) {
				return true
			}
		}
	}
	return false
}

var stopWordsEN = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "are": {}, "was": {}, "has": {}, "have": {}, "its": {},
	"his": {}, "her": {}, "their": {}, "will": {}, "after": {}, "over": {},
	"into": {}, "about": {}, "amid": {}, "new": {}, "how": {}, "why": {},
	"what": {}, "when": {}, "who": {}, "says": {}, "say": {}, "said": {},
	"not": {}, "but": {}, "you": {}, "your": {}, "more": {}, "most": {},
}

var stopWordsFR = map[string]struct{}{
	"les": {}, "des": {}, "une": {}, "aux": {}, "est": {}, "sont": {},
	"dans": {}, "pour": {}, "avec": {}, "sur": {}, "par": {}, "pas": {},
	"que": {}, "qui": {}, "quoi": {}, "dont": {}, "mais": {}, "son": {},
	"ses": {}, "leur": {}, "leurs": {}, "cette": {}, "ces": {}, "comment": {},
	"pourquoi": {}, "apres": {}, "avant": {}, "entre": {}, "chez": {},
	"tout": {}, "tous": {}, "toute": {}, "toutes": {}, "plus": {},
}

// NormalizeTitle lowercases the title, strips diacritics, splits on anything
// that is not a letter, and drops short tokens and stop-words. The stop-word
// list follows the detected title language; when detection is inconclusive
// both lists apply.
func NormalizeTitle(title string) map[string]struct{} {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil
	}

	lang := langdetect.DetectISO6391(trimmed)
	folded := stripDiacritics(strings.ToLower(trimmed))

	parts := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	tokens := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if len([]rune(part)) < 3 {
			continue
		}
		if isStopWord(part, lang) {
			continue
		}
		tokens[part] = struct{}{}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func isStopWord(token, lang string) bool {
	switch lang {
	case "en":
		_, ok := stopWordsEN[token]
		return ok
	case "fr":
		_, ok := stopWordsFR[token]
		return ok
	default:
		if _, ok := stopWordsEN[token]; ok {
			return true
		}
		_, ok := stopWordsFR[token]
		return ok
	}
}

func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Jaccard returns |A∩B| / |A∪B|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := sharedTokens(a, b)
	union := len(a) + len(b) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func sharedTokens(a, b map[string]struct{}) int {
	count := 0
	for token := range a {
		if _, ok := b[token]; ok {
			count++
		}
	}
	return count
}

// Clusterer groups candidates into topic clusters and flags trending ones.
type Clusterer struct {
	weights Weights
}

func NewClusterer(w Weights) *Clusterer {
	return &Clusterer{weights: w}
}

// Cluster groups the candidates using the requested strategy. Input order is
// significant for the greedy strategy and preserved inside every cluster.
func (cl *Clusterer) Cluster(candidates []Candidate, strategy Strategy) []TopicCluster {
	var clusters []TopicCluster
	switch strategy {
	case StrategyUnionFind:
		clusters = cl.clusterUnionFind(candidates)
	default:
		clusters = cl.clusterGreedy(candidates)
	}

	for i := range clusters {
		finalizeCluster(&clusters[i], i, cl.weights.MinTrendingSources)
	}
	return clusters
}

// clusterGreedy is a single-pass O(n·k) pass: each candidate joins the first
// existing cluster whose representative (first-item) tokens score at or above
// the similarity threshold, otherwise it seeds a new cluster. Representative
// tokens are never merged.
func (cl *Clusterer) clusterGreedy(candidates []Candidate) []TopicCluster {
	var clusters []TopicCluster
	for _, c := range candidates {
		tokens := NormalizeTitle(c.Title)

		attached := false
		for i := range clusters {
			if Jaccard(tokens, clusters[i].repTokens) >= cl.weights.SimilarityThreshold {
				clusters[i].Candidates = append(clusters[i].Candidates, c)
				attached = true
				break
			}
		}
		if !attached {
			clusters = append(clusters, TopicCluster{
				Candidates: []Candidate{c},
				repTokens:  tokens,
			})
		}
	}
	return clusters
}

// clusterUnionFind merges any candidate pair sharing at least
// StrictSharedTokens keywords, or at least RelaxedSharedTokens keywords when
// the pair also shares a theme and was published within the relaxed window.
func (cl *Clusterer) clusterUnionFind(candidates []Candidate) []TopicCluster {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	tokens := make([]map[string]struct{}, n)
	for i, c := range candidates {
		tokens[i] = NormalizeTitle(c.Title)
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	windowHours := cl.weights.RelaxedWindowHours
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			shared := sharedTokens(tokens[i], tokens[j])
			if shared >= cl.weights.StrictSharedTokens {
				union(i, j)
				continue
			}
			if shared < cl.weights.RelaxedSharedTokens {
				continue
			}
			if candidates[i].Theme == "" || candidates[i].Theme != candidates[j].Theme {
				continue
			}
			gap := candidates[i].PublishedAt.Sub(candidates[j].PublishedAt).Hours()
			if gap < 0 {
				gap = -gap
			}
			if gap <= windowHours {
				union(i, j)
			}
		}
	}

	order := make([]int, 0, n)
	groups := make(map[int][]Candidate, n)
	for i, c := range candidates {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], c)
	}

	clusters := make([]TopicCluster, 0, len(order))
	for _, root := range order {
		clusters = append(clusters, TopicCluster{
			Candidates: groups[root],
			repTokens:  tokens[root],
		})
	}
	return clusters
}

func finalizeCluster(tc *TopicCluster, index, minTrendingSources int) {
	tc.ID = fmt.Sprintf("cluster-%d", index+1)

	sources := make(map[string]struct{}, len(tc.Candidates))
	themeVotes := make(map[string]int, len(tc.Candidates))
	themeOrder := make([]string, 0, len(tc.Candidates))
	for _, c := range tc.Candidates {
		sources[c.SourceID] = struct{}{}
		if c.Theme != "" {
			if _, seen := themeVotes[c.Theme]; !seen {
				themeOrder = append(themeOrder, c.Theme)
			}
			themeVotes[c.Theme]++
		}
	}

	tc.SourceCount = len(sources)
	tc.Trending = tc.SourceCount >= minTrendingSources

	best := 0
	for _, theme := range themeOrder {
		if themeVotes[theme] > best {
			best = themeVotes[theme]
			tc.Theme = theme
		}
	}
}

// TrendingIDs collects the candidate ids of every trending cluster.
func TrendingIDs(clusters []TopicCluster) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, tc := range clusters {
		if !tc.Trending {
			continue
		}
		for _, c := range tc.Candidates {
			ids[c.ID] = struct{}{}
		}
	}
	return ids
}

// Featured returns the candidate ids present in the externally curated
// featured-identifier set. Pure set intersection, no similarity math.
func Featured(candidates []Candidate, featuredIDs map[string]struct{}) map[string]struct{} {
	matched := make(map[string]struct{})
	if len(featuredIDs) == 0 {
		return matched
	}
	for _, c := range candidates {
		if _, ok := featuredIDs[c.ID]; ok {
			matched[c.ID] = struct{}{}
		}
	}
	return matched
}
