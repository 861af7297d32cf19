package ranker

import (
	"fmt"
	"time"
)

// CoreLayer awards the baseline relevance signals: theme interest, source
// affinity, and a continuous recency decay that never reaches zero.
type CoreLayer struct {
	Weights Weights
}

func (CoreLayer) Name() string { return "core" }

func (l CoreLayer) Score(c Candidate, uc *UserContext, now time.Time) (float64, []Contribution) {
	var total float64
	var contributions []Contribution

	if uc.InterestedInTheme(c.Theme) {
		total += l.Weights.ThemeMatchBonus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: l.Weights.ThemeMatchBonus,
			Reason: fmt.Sprintf("matches your interest in %s", c.Theme),
		})
	}

	if uc.FollowsSource(c.SourceID) {
		total += l.Weights.FollowedSourceBonus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: l.Weights.FollowedSourceBonus,
			Reason: "from a source you follow",
		})
	} else {
		total += l.Weights.StandardSourceBonus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: l.Weights.StandardSourceBonus,
			Reason: "standard source",
		})
	}

	hoursOld := now.Sub(c.PublishedAt).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	recency := l.Weights.RecencyNumerator / (hoursOld/24 + 1)
	total += recency
	contributions = append(contributions, Contribution{
		Layer:  l.Name(),
		Points: recency,
		Reason: fmt.Sprintf("published %.0f hours ago", hoursOld),
	})

	return total, contributions
}

// TopicLayer awards points per matched fine-grained topic, capped, plus a
// precision bonus when the candidate's theme is also a declared interest.
type TopicLayer struct {
	Weights Weights
}

func (TopicLayer) Name() string { return "topic" }

func (l TopicLayer) Score(c Candidate, uc *UserContext, _ time.Time) (float64, []Contribution) {
	var total float64
	var contributions []Contribution

	matches := 0
	for _, topic := range c.Topics {
		if !uc.InterestedInTopic(topic) {
			continue
		}
		if matches >= l.Weights.MaxTopicMatches {
			break
		}
		matches++
		total += l.Weights.TopicMatchBonus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: l.Weights.TopicMatchBonus,
			Reason: fmt.Sprintf("covers %s, a topic you care about", topic),
		})
	}

	if matches > 0 && uc.InterestedInTheme(c.Theme) {
		total += l.Weights.TopicPrecisionBonus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: l.Weights.TopicPrecisionBonus,
			Reason: fmt.Sprintf("topic and theme both match %s", c.Theme),
		})
	}

	return total, contributions
}

// BehavioralLayer scales with the user's learned theme weight: above-neutral
// weights add points, below-neutral weights subtract them. Neutral (1.0) or
// absent themes contribute nothing.
type BehavioralLayer struct {
	Weights Weights
}

func (BehavioralLayer) Name() string { return "behavioral" }

func (l BehavioralLayer) Score(c Candidate, uc *UserContext, _ time.Time) (float64, []Contribution) {
	weight, ok := uc.ThemeWeights[c.Theme]
	if !ok {
		return 0, nil
	}

	switch {
	case weight > 1.0:
		points := l.Weights.BehavioralBase * (weight - 1.0)
		return points, []Contribution{{
			Layer:  l.Name(),
			Points: points,
			Reason: fmt.Sprintf("you often read %s content", c.Theme),
		}}
	case weight < 1.0:
		points := -l.Weights.BehavioralBase * (1.0 - weight)
		return points, []Contribution{{
			Layer:  l.Name(),
			Points: points,
			Reason: fmt.Sprintf("you rarely engage with %s content", c.Theme),
		}}
	default:
		return 0, nil
	}
}

// QualityLayer rewards curated, high-reliability sources and penalizes
// low-reliability ones. Source quality flags are annotated on the candidate
// at fetch time.
type QualityLayer struct {
	Weights Weights
}

func (QualityLayer) Name() string { return "quality" }

func (l QualityLayer) Score(c Candidate, _ *UserContext, _ time.Time) (float64, []Contribution) {
	if c.SourceCurated {
		return l.Weights.QualityCuratedBonus, []Contribution{{
			Layer:  l.Name(),
			Points: l.Weights.QualityCuratedBonus,
			Reason: "curated, high-reliability source",
		}}
	}
	if c.SourceLowReliability {
		return -l.Weights.QualityLowReliabilityMalus, []Contribution{{
			Layer:  l.Name(),
			Points: -l.Weights.QualityLowReliabilityMalus,
			Reason: "source has low reliability",
		}}
	}
	return 0, nil
}

// VisualLayer awards a fixed bonus when a thumbnail is present.
type VisualLayer struct {
	Weights Weights
}

func (VisualLayer) Name() string { return "visual" }

func (l VisualLayer) Score(c Candidate, _ *UserContext, _ time.Time) (float64, []Contribution) {
	if !c.HasThumbnail {
		return 0, nil
	}
	return l.Weights.VisualBonus, []Contribution{{
		Layer:  l.Name(),
		Points: l.Weights.VisualBonus,
		Reason: "has a preview image",
	}}
}

// PreferenceLayer applies the user's declared static preferences: recency
// taste, preferred content kind, and preferred duration.
type PreferenceLayer struct {
	Weights Weights
}

func (PreferenceLayer) Name() string { return "preference" }

func (l PreferenceLayer) Score(c Candidate, uc *UserContext, now time.Time) (float64, []Contribution) {
	var total float64
	var contributions []Contribution

	hoursOld := now.Sub(c.PublishedAt).Hours()
	switch uc.Preference("recency") {
	case "recent":
		if hoursOld >= 0 && hoursOld <= l.Weights.PrefRecentMaxHours {
			total += l.Weights.PrefRecentBonus
			contributions = append(contributions, Contribution{
				Layer:  l.Name(),
				Points: l.Weights.PrefRecentBonus,
				Reason: "fresh content, matching your preference",
			})
		}
	case "timeless":
		if hoursOld >= l.Weights.PrefTimelessMinHrs {
			total += l.Weights.PrefTimelessBonus
			contributions = append(contributions, Contribution{
				Layer:  l.Name(),
				Points: l.Weights.PrefTimelessBonus,
				Reason: "evergreen content, matching your preference",
			})
		}
	}

	if preferred := uc.Preference("kind"); preferred != "" && preferred == string(c.Kind) {
		total += l.Weights.PrefKindBonus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: l.Weights.PrefKindBonus,
			Reason: fmt.Sprintf("%s format, matching your preference", c.Kind),
		})
	}

	if c.DurationSec > 0 {
		switch uc.Preference("length") {
		case "short":
			if c.DurationSec <= l.Weights.ShortDurationSec {
				total += l.Weights.PrefDurationBonus
				contributions = append(contributions, Contribution{
					Layer:  l.Name(),
					Points: l.Weights.PrefDurationBonus,
					Reason: "short enough for a quick read",
				})
			}
		case "long":
			if c.DurationSec >= l.Weights.LongDurationSec {
				total += l.Weights.PrefDurationBonus
				contributions = append(contributions, Contribution{
					Layer:  l.Name(),
					Points: l.Weights.PrefDurationBonus,
					Reason: "long-form, matching your preference",
				})
			}
		}
	}

	return total, contributions
}

// MutingLayer applies negative adjustments for muted sources, content kinds,
// themes, and topics. Topic maluses are cumulative across matches.
type MutingLayer struct {
	Weights Weights
}

func (MutingLayer) Name() string { return "muting" }

func (l MutingLayer) Score(c Candidate, uc *UserContext, _ time.Time) (float64, []Contribution) {
	var total float64
	var contributions []Contribution

	if _, muted := uc.MutedSources[c.SourceID]; muted {
		total -= l.Weights.MuteSourceMalus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: -l.Weights.MuteSourceMalus,
			Reason: "you muted this source",
		})
	}
	if _, muted := uc.MutedKinds[c.Kind]; muted {
		total -= l.Weights.MuteKindMalus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: -l.Weights.MuteKindMalus,
			Reason: fmt.Sprintf("you muted %s content", c.Kind),
		})
	}
	if _, muted := uc.MutedThemes[c.Theme]; muted {
		total -= l.Weights.MuteThemeMalus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: -l.Weights.MuteThemeMalus,
			Reason: fmt.Sprintf("you muted the %s theme", c.Theme),
		})
	}
	for _, topic := range c.Topics {
		if _, muted := uc.MutedTopics[topic]; muted {
			total -= l.Weights.MuteTopicMalus
			contributions = append(contributions, Contribution{
				Layer:  l.Name(),
				Points: -l.Weights.MuteTopicMalus,
				Reason: fmt.Sprintf("you muted the %s topic", topic),
			})
		}
	}

	return total, contributions
}

// ImpressionLayer demotes content the user has already been shown, with
// tiers that soften as the impression ages, plus a stronger permanent malus
// for items explicitly marked as seen.
type ImpressionLayer struct {
	Weights Weights
}

func (ImpressionLayer) Name() string { return "impression" }

func (l ImpressionLayer) Score(c Candidate, uc *UserContext, now time.Time) (float64, []Contribution) {
	var total float64
	var contributions []Contribution

	if shownAt, ok := uc.LastShownAt[c.ID]; ok {
		age := now.Sub(shownAt)
		var malus float64
		switch {
		case age < time.Hour:
			malus = l.Weights.ImpressionHourMalus
		case age < 24*time.Hour:
			malus = l.Weights.ImpressionDayMalus
		case age < 48*time.Hour:
			malus = l.Weights.ImpressionTwoDayMalus
		case age < 72*time.Hour:
			malus = l.Weights.ImpressionThreeDayMalus
		}
		if malus > 0 {
			total -= malus
			contributions = append(contributions, Contribution{
				Layer:  l.Name(),
				Points: -malus,
				Reason: "recently shown to you",
			})
		}
	}

	if _, seen := uc.SeenIDs[c.ID]; seen {
		total -= l.Weights.SeenMalus
		contributions = append(contributions, Contribution{
			Layer:  l.Name(),
			Points: -l.Weights.SeenMalus,
			Reason: "you marked this as already seen",
		})
	}

	return total, contributions
}
