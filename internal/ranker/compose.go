package ranker

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

type Mode string

const (
	ModeBalanced Mode = "balanced"
	ModeTopics   Mode = "topics"
)

type ComposeOptions struct {
	Limit               int
	Mode                Mode
	BalancedPerspective bool
}

type ComposeResult struct {
	Items    []SelectionItem
	Clusters []TopicCluster
}

// Composer runs the full selection composition: clustering, importance
// flagging, and either the two-pass balanced split or topic-group selection.
type Composer struct {
	weights   Weights
	selector  *Selector
	clusterer *Clusterer
	logger    zerolog.Logger
}

func NewComposer(w Weights, logger zerolog.Logger) *Composer {
	return &Composer{
		weights:   w,
		selector:  NewSelector(w),
		clusterer: NewClusterer(w),
		logger:    logger,
	}
}

func (cp *Composer) Compose(scored []ScoredCandidate, uc *UserContext, featuredIDs map[string]struct{}, opts ComposeOptions, now time.Time) ComposeResult {
	if opts.Limit <= 0 || len(scored) == 0 {
		return ComposeResult{}
	}

	candidates := make([]Candidate, 0, len(scored))
	for _, sc := range scored {
		candidates = append(candidates, sc.Candidate)
	}

	if opts.Mode == ModeTopics {
		clusters := cp.clusterer.Cluster(candidates, StrategyUnionFind)
		featured := Featured(candidates, featuredIDs)
		items := cp.composeTopicGroups(scored, clusters, featured, uc, opts, now)
		return ComposeResult{Items: items, Clusters: clusters}
	}

	clusters := cp.clusterer.Cluster(candidates, StrategyGreedy)
	featured := Featured(candidates, featuredIDs)
	items := cp.composeBalanced(scored, clusters, featured, uc, opts.Limit)
	return ComposeResult{Items: items, Clusters: clusters}
}

// composeBalanced partitions candidates into an important pool (trending or
// featured, and relevant to the user) and a personalized pool, then runs the
// selector over both with shared diversity counters.
func (cp *Composer) composeBalanced(scored []ScoredCandidate, clusters []TopicCluster, featured map[string]struct{}, uc *UserContext, limit int) []SelectionItem {
	flags := SelectionFlags{
		Trending: TrendingIDs(clusters),
		Featured: featured,
	}
	boosted := ApplyImportanceBoosts(scored, flags, cp.weights)

	var important, personalized []ScoredCandidate
	for _, sc := range boosted {
		id := sc.Candidate.ID
		if (flags.trending(id) || flags.featured(id)) && relevantToUser(sc.Candidate, uc) {
			important = append(important, sc)
		} else {
			personalized = append(personalized, sc)
		}
	}

	importantCap := int(math.Ceil(float64(limit) * cp.weights.ImportantRatio))
	if importantCap > limit {
		importantCap = limit
	}

	state := NewDiversityState()
	items := cp.selector.Select(important, importantCap, state, flags, uc)

	remaining := limit - len(items)
	if remaining > 0 {
		items = append(items, cp.selector.Select(personalized, remaining, state, flags, uc)...)
	}

	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

// composeTopicGroups scores whole clusters, retains the top groups under the
// per-theme cluster cap with a trending guardrail, and lets each retained
// cluster pick its own members preferring source diversity.
func (cp *Composer) composeTopicGroups(scored []ScoredCandidate, clusters []TopicCluster, featured map[string]struct{}, uc *UserContext, opts ComposeOptions, now time.Time) []SelectionItem {
	if len(clusters) == 0 {
		return nil
	}

	flags := SelectionFlags{
		Trending: TrendingIDs(clusters),
		Featured: featured,
	}
	byID := make(map[string]ScoredCandidate, len(scored))
	for _, sc := range scored {
		byID[sc.Candidate.ID] = sc
	}

	ranked := make([]rankedCluster, 0, len(clusters))
	for _, tc := range clusters {
		ranked = append(ranked, rankedCluster{
			cluster: tc,
			score:   cp.clusterScore(tc, featured, uc, now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	maxGroups := cp.weights.MaxTopicGroups
	themeCounts := make(map[string]int)
	retained := make([]TopicCluster, 0, maxGroups)
	for _, rc := range ranked {
		if len(retained) == maxGroups {
			break
		}
		theme := rc.cluster.Theme
		if theme != "" && themeCounts[theme] >= cp.weights.MaxClustersPerTheme {
			continue
		}
		if theme != "" {
			themeCounts[theme]++
		}
		retained = append(retained, rc.cluster)
	}

	retained = cp.ensureTrendingCluster(retained, ranked)

	var items []SelectionItem
	for _, tc := range retained {
		if len(items) >= opts.Limit {
			break
		}
		picks := cp.pickClusterMembers(tc, byID)
		if opts.BalancedPerspective && uc != nil && uc.Leaning != "" {
			if opposing, ok := cp.opposingMember(tc, picks, byID, uc); ok {
				picks = append(picks, opposing)
			}
		}
		for _, pick := range picks {
			if len(items) >= opts.Limit {
				break
			}
			reason := cp.selector.reasonFor(pick.Candidate, flags, uc)
			if pick.opposing {
				reason = "a different perspective on this story"
			}
			items = append(items, SelectionItem{
				Candidate: pick.Candidate,
				Score:     pick.Score,
				Reason:    reason,
				Breakdown: pick.Breakdown,
			})
		}
	}

	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

type rankedCluster struct {
	cluster TopicCluster
	score   float64
}

// ensureTrendingCluster force-swaps the lowest-ranked retained cluster for
// the best trending one when no trending cluster was organically selected.
// At most one swap ever happens.
func (cp *Composer) ensureTrendingCluster(retained []TopicCluster, ranked []rankedCluster) []TopicCluster {
	if len(retained) == 0 {
		return retained
	}
	for _, tc := range retained {
		if tc.Trending {
			return retained
		}
	}
	for _, rc := range ranked {
		if rc.cluster.Trending {
			cp.logger.Debug().
				Str("cluster_id", rc.cluster.ID).
				Msg("forcing trending cluster into topic groups")
			retained[len(retained)-1] = rc.cluster
			return retained
		}
	}
	return retained
}

type clusterPick struct {
	ScoredCandidate
	opposing bool
}

// pickClusterMembers selects 1 to MaxClusterArticles member articles by score
// descending, preferring distinct sources within the cluster and filling from
// repeat sources only when necessary.
func (cp *Composer) pickClusterMembers(tc TopicCluster, byID map[string]ScoredCandidate) []clusterPick {
	members := make([]ScoredCandidate, 0, len(tc.Candidates))
	for _, c := range tc.Candidates {
		if sc, ok := byID[c.ID]; ok {
			members = append(members, sc)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Score > members[j].Score
	})

	target := cp.weights.MaxClusterArticles
	if len(members) < target {
		target = len(members)
	}

	picks := make([]clusterPick, 0, target)
	usedSources := make(map[string]struct{}, target)
	pickedIDs := make(map[string]struct{}, target)
	for _, m := range members {
		if len(picks) == target {
			break
		}
		if _, used := usedSources[m.Candidate.SourceID]; used {
			continue
		}
		usedSources[m.Candidate.SourceID] = struct{}{}
		pickedIDs[m.Candidate.ID] = struct{}{}
		picks = append(picks, clusterPick{ScoredCandidate: m})
	}
	for _, m := range members {
		if len(picks) == target {
			break
		}
		if _, picked := pickedIDs[m.Candidate.ID]; picked {
			continue
		}
		pickedIDs[m.Candidate.ID] = struct{}{}
		picks = append(picks, clusterPick{ScoredCandidate: m})
	}
	return picks
}

// opposingMember widens a cluster's picks with one article from a source
// whose declared leaning opposes the user's.
func (cp *Composer) opposingMember(tc TopicCluster, picks []clusterPick, byID map[string]ScoredCandidate, uc *UserContext) (clusterPick, bool) {
	picked := make(map[string]struct{}, len(picks))
	for _, p := range picks {
		picked[p.Candidate.ID] = struct{}{}
	}
	for _, c := range tc.Candidates {
		if _, already := picked[c.ID]; already {
			continue
		}
		if !opposesLeaning(uc.SourceLeanings[c.SourceID], uc.Leaning) {
			continue
		}
		if sc, ok := byID[c.ID]; ok {
			return clusterPick{ScoredCandidate: sc, opposing: true}, true
		}
	}
	return clusterPick{}, false
}

func opposesLeaning(sourceLeaning, userLeaning string) bool {
	if sourceLeaning == "" || userLeaning == "" {
		return false
	}
	return (sourceLeaning == "left" && userLeaning == "right") ||
		(sourceLeaning == "right" && userLeaning == "left")
}

// clusterScore ranks a cluster for topic-group selection: importance bonuses
// plus the recency of its freshest member.
func (cp *Composer) clusterScore(tc TopicCluster, featured map[string]struct{}, uc *UserContext, now time.Time) float64 {
	var score float64
	if tc.Trending {
		score += cp.weights.ClusterTrendingBonus
	}
	for _, c := range tc.Candidates {
		if _, ok := featured[c.ID]; ok {
			score += cp.weights.ClusterFeaturedBonus
			break
		}
	}
	if uc != nil {
		if uc.InterestedInTheme(tc.Theme) {
			score += cp.weights.ClusterThemeBonus
		}
		if tc.ContainsTopic(uc) {
			score += cp.weights.ClusterTopicBonus
		}
	}

	best := 0.0
	for _, c := range tc.Candidates {
		hoursOld := now.Sub(c.PublishedAt).Hours()
		if hoursOld < 0 {
			hoursOld = 0
		}
		recency := cp.weights.RecencyNumerator / (hoursOld/24 + 1)
		if recency > best {
			best = recency
		}
	}
	return score + best
}

func relevantToUser(c Candidate, uc *UserContext) bool {
	if uc == nil {
		return false
	}
	if uc.InterestedInTheme(c.Theme) {
		return true
	}
	for _, topic := range c.Topics {
		if uc.InterestedInTopic(topic) {
			return true
		}
	}
	return uc.FollowsSource(c.SourceID)
}
