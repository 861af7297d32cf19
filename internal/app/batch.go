package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/briefing/internal/batch"
	"horse.fit/briefing/internal/briefing"
	"horse.fit/briefing/internal/cli"
	"horse.fit/briefing/internal/ranker"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 0, "Selection size per user; 0 uses the configured default")
	mode := fs.String("mode", string(ranker.ModeBalanced), "Composition mode: balanced or topics")
	concurrency := fs.Int("concurrency", 0, "Worker pool size; 0 uses the configured default")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "batch does not accept positional arguments")
		return 2
	}

	composeMode := ranker.Mode(*mode)
	if composeMode != ranker.ModeBalanced && composeMode != ranker.ModeTopics {
		fmt.Fprintf(os.Stderr, "unknown mode %q: must be balanced or topics\n", *mode)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := connect(ctx, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.pool.Close()

	workers := *concurrency
	if workers <= 0 {
		workers = rt.cfg.BatchConcurrency
	}

	service := briefing.NewService(
		rt.pool,
		rt.weights,
		rt.cfg.SelectionSize,
		time.Duration(rt.cfg.CandidateLookbackHrs)*time.Hour,
		rt.cfg.CandidateLimit,
		rt.logger,
	)
	driver := batch.NewDriver(rt.pool, service, workers, rt.logger)

	result, err := driver.Run(ctx, briefing.Options{
		Limit:   *limit,
		Mode:    composeMode,
		Persist: true,
	})
	if err != nil {
		rt.logger.Error().Err(err).Msg("batch run failed")
		return 1
	}

	fmt.Printf("Batch complete: %d users, %d generated, %d skipped, %d failed in %s\n",
		result.Users, result.Generated, result.Skipped, result.Failed, result.Elapsed.Round(time.Millisecond))
	if result.Failed > 0 {
		return 1
	}
	return 0
}
