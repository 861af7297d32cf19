package ranker

import (
	"time"

	"github.com/rs/zerolog"
)

// Layer is one independent scoring signal. Score returns the layer's signed
// point delta for the candidate plus the contributions explaining it. Layers
// add and subtract independently of one another; the engine's layer order
// only affects the ordering of the reason list, never the numeric total.
type Layer interface {
	Name() string
	Score(c Candidate, uc *UserContext, now time.Time) (float64, []Contribution)
}

// Engine sums contributions from a fixed, caller-specified list of layers
// into one score per candidate.
type Engine struct {
	layers []Layer
	logger zerolog.Logger
}

func NewEngine(logger zerolog.Logger, layers ...Layer) *Engine {
	return &Engine{
		layers: layers,
		logger: logger,
	}
}

// DefaultLayers returns the production layer stack in its canonical order.
func DefaultLayers(w Weights) []Layer {
	return []Layer{
		CoreLayer{Weights: w},
		TopicLayer{Weights: w},
		BehavioralLayer{Weights: w},
		QualityLayer{Weights: w},
		VisualLayer{Weights: w},
		PreferenceLayer{Weights: w},
		MutingLayer{Weights: w},
		ImpressionLayer{Weights: w},
	}
}

// ScoreAll scores every candidate, preserving input order. A panic while
// scoring one candidate is contained: that candidate gets score 0 with an
// empty breakdown and processing continues.
func (e *Engine) ScoreAll(candidates []Candidate, uc *UserContext, now time.Time) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, e.scoreOne(c, uc, now))
	}
	return scored
}

func (e *Engine) scoreOne(c Candidate, uc *UserContext, now time.Time) (result ScoredCandidate) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().
				Str("candidate_id", c.ID).
				Interface("panic", r).
				Msg("candidate scoring failed; assigning zero score")
			result = ScoredCandidate{Candidate: c, Score: 0, Breakdown: nil}
		}
	}()

	var total float64
	var breakdown []Contribution
	for _, layer := range e.layers {
		points, contributions := layer.Score(c, uc, now)
		total += points
		breakdown = append(breakdown, contributions...)
	}
	return ScoredCandidate{Candidate: c, Score: total, Breakdown: breakdown}
}
