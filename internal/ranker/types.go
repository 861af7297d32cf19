package ranker

import "time"

type ContentKind string

const (
	KindArticle ContentKind = "article"
	KindVideo   ContentKind = "video"
	KindAudio   ContentKind = "audio"
)

// Candidate is one content item eligible for selection. The pipeline never
// mutates candidates, only annotates derived scores keyed by ID.
type Candidate struct {
	ID           string
	SourceID     string
	Theme        string
	Topics       []string
	PublishedAt  time.Time
	Title        string
	Kind         ContentKind
	DurationSec  int
	HasThumbnail bool
	PriceGated   bool

	// Source quality flags, annotated at fetch time from the source catalog.
	SourceCurated        bool
	SourceLowReliability bool
}

// UserContext is the per-run snapshot of a user's preferences. Built once per
// selection run and read-only during scoring.
type UserContext struct {
	UserID          string
	FollowedSources map[string]struct{}
	ThemeWeights    map[string]float64
	TopicWeights    map[string]float64
	MutedSources    map[string]struct{}
	MutedThemes     map[string]struct{}
	MutedTopics     map[string]struct{}
	MutedKinds      map[ContentKind]struct{}
	Preferences     map[string]string
	Leaning         string
	SourceLeanings  map[string]string
	LastShownAt     map[string]time.Time
	SeenIDs         map[string]struct{}
}

func (uc *UserContext) FollowsSource(sourceID string) bool {
	_, ok := uc.FollowedSources[sourceID]
	return ok
}

func (uc *UserContext) InterestedInTheme(theme string) bool {
	if theme == "" {
		return false
	}
	_, ok := uc.ThemeWeights[theme]
	return ok
}

func (uc *UserContext) InterestedInTopic(topic string) bool {
	if topic == "" {
		return false
	}
	_, ok := uc.TopicWeights[topic]
	return ok
}

func (uc *UserContext) Preference(key string) string {
	return uc.Preferences[key]
}

// Contribution is one layer's signed point delta with its user-facing
// explanation. Every nonzero score change maps to exactly one contribution.
type Contribution struct {
	Layer  string  `json:"layer"`
	Points float64 `json:"points"`
	Reason string  `json:"reason"`
}

// ScoredCandidate pairs a candidate with its additive score and ordered
// breakdown.
type ScoredCandidate struct {
	Candidate Candidate
	Score     float64
	Breakdown []Contribution
}

// SelectionItem is one ranked entry of a completed selection. Rank order and
// the reason string are part of the observable contract; downstream renders
// them verbatim.
type SelectionItem struct {
	Candidate Candidate      `json:"candidate"`
	Rank      int            `json:"rank"`
	Score     float64        `json:"score"`
	Reason    string         `json:"reason"`
	Breakdown []Contribution `json:"breakdown"`
}
