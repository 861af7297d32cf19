package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/briefing/internal/briefing"
)

// UserLister enumerates the accounts eligible for batch generation.
type UserLister interface {
	ListEligibleUsers(ctx context.Context) ([]string, error)
}

// Generator produces one user's briefing.
type Generator interface {
	Generate(ctx context.Context, userID string, opts briefing.Options) (briefing.Result, error)
}

type RunResult struct {
	Users     int
	Generated int
	Skipped   int
	Failed    int
	Elapsed   time.Duration
}

// Driver runs per-user generation under a bounded worker pool. One user's
// failure never aborts the others; failures are logged and counted.
type Driver struct {
	users       UserLister
	generator   Generator
	concurrency int
	logger      zerolog.Logger
}

func NewDriver(users UserLister, generator Generator, concurrency int, logger zerolog.Logger) *Driver {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Driver{
		users:       users,
		generator:   generator,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (d *Driver) Run(ctx context.Context, opts briefing.Options) (RunResult, error) {
	if d == nil || d.users == nil || d.generator == nil {
		return RunResult{}, fmt.Errorf("batch driver is not initialized")
	}

	started := time.Now()
	userIDs, err := d.users.ListEligibleUsers(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("list eligible users: %w", err)
	}

	var generated, skipped, failed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency)
	for _, userID := range userIDs {
		userID := userID
		group.Go(func() error {
			result, err := d.generator.Generate(groupCtx, userID, opts)
			if err != nil {
				failed.Add(1)
				d.logger.Error().Err(err).Str("user_id", userID).Msg("briefing generation failed")
				return nil
			}
			if opts.Persist && !result.Persisted {
				skipped.Add(1)
				return nil
			}
			generated.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		Users:     len(userIDs),
		Generated: int(generated.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
		Elapsed:   time.Since(started),
	}

	d.logger.Info().
		Int("users", result.Users).
		Int("generated", result.Generated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("batch run complete")

	return result, nil
}
