package briefing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/briefing/internal/globaltime"
	"horse.fit/briefing/internal/ranker"
)

// CandidateSource fetches a bounded candidate pool for one user. The storage
// layer already excludes dismissed/consumed/saved items and muted sources.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, userID string, lookback time.Duration, limit int) ([]ranker.Candidate, error)
}

// ContextSource builds the per-run user snapshot.
type ContextSource interface {
	BuildUserContext(ctx context.Context, userID string) (*ranker.UserContext, error)
}

// FeaturedSource supplies curated front-page identifiers, best-effort.
type FeaturedSource interface {
	FetchFeaturedIDs(ctx context.Context) (map[string]struct{}, error)
}

// SelectionSink persists and reads back completed selections with
// insert-if-absent semantics keyed by (user, date).
type SelectionSink interface {
	UpsertSelection(ctx context.Context, userID string, day time.Time, mode string, items []ranker.SelectionItem) (bool, error)
	GetSelection(ctx context.Context, userID string, day time.Time) ([]ranker.SelectionItem, bool, error)
}

// Store is the full narrow contract the service consumes. *db.Pool satisfies
// it in production.
type Store interface {
	CandidateSource
	ContextSource
	FeaturedSource
	SelectionSink
}

type Options struct {
	Limit               int
	Mode                ranker.Mode
	BalancedPerspective bool
	Persist             bool
}

type Result struct {
	UserID     string
	Date       time.Time
	Items      []ranker.SelectionItem
	Candidates int
	Clusters   int
	Persisted  bool
}

// Service runs the scoring-and-selection pipeline for one user.
type Service struct {
	store          Store
	engine         *ranker.Engine
	composer       *ranker.Composer
	defaultLimit   int
	lookback       time.Duration
	candidateLimit int
	logger         zerolog.Logger
}

func NewService(store Store, w ranker.Weights, defaultLimit int, lookback time.Duration, candidateLimit int, logger zerolog.Logger) *Service {
	return &Service{
		store:          store,
		engine:         ranker.NewEngine(logger, ranker.DefaultLayers(w)...),
		composer:       ranker.NewComposer(w, logger),
		defaultLimit:   defaultLimit,
		lookback:       lookback,
		candidateLimit: candidateLimit,
		logger:         logger,
	}
}

// Generate scores, clusters, and selects the user's briefing for today.
// A pool smaller than the requested size is not an error; the result simply
// carries fewer items.
func (s *Service) Generate(ctx context.Context, userID string, opts Options) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("briefing service is not initialized")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	mode := opts.Mode
	if mode == "" {
		mode = ranker.ModeBalanced
	}

	uc, err := s.store.BuildUserContext(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("build user context user_id=%s: %w", userID, err)
	}

	candidates, err := s.store.FetchCandidates(ctx, userID, s.lookback, s.candidateLimit)
	if err != nil {
		return Result{}, fmt.Errorf("fetch candidates user_id=%s: %w", userID, err)
	}

	now := globaltime.UTC()
	day := utcDay(now)
	result := Result{UserID: userID, Date: day, Candidates: len(candidates)}
	if len(candidates) == 0 {
		s.logger.Info().Str("user_id", userID).Msg("empty candidate pool; nothing to select")
		return result, nil
	}

	featured, err := s.store.FetchFeaturedIDs(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("featured feed unavailable; continuing without")
		featured = map[string]struct{}{}
	}

	scored := s.engine.ScoreAll(candidates, uc, now)
	composed := s.composer.Compose(scored, uc, featured, ranker.ComposeOptions{
		Limit:               limit,
		Mode:                mode,
		BalancedPerspective: opts.BalancedPerspective,
	}, now)

	result.Items = composed.Items
	result.Clusters = len(composed.Clusters)

	if opts.Persist {
		inserted, err := s.store.UpsertSelection(ctx, userID, day, string(mode), composed.Items)
		if err != nil {
			return result, fmt.Errorf("persist selection user_id=%s: %w", userID, err)
		}
		result.Persisted = inserted
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("candidates", len(candidates)).
		Int("clusters", result.Clusters).
		Int("selected", len(result.Items)).
		Bool("persisted", result.Persisted).
		Msg("briefing generated")

	return result, nil
}

// Read returns a previously persisted briefing for the given day.
func (s *Service) Read(ctx context.Context, userID string, day time.Time) ([]ranker.SelectionItem, bool, error) {
	if s == nil || s.store == nil {
		return nil, false, fmt.Errorf("briefing service is not initialized")
	}
	return s.store.GetSelection(ctx, userID, utcDay(day))
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
