package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/briefing/internal/briefing"
	"horse.fit/briefing/internal/cli"
	"horse.fit/briefing/internal/ranker"
)

func runSelect(args []string) int {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	userID := fs.String("user", "", "User identifier (required)")
	limit := fs.Int("limit", 0, "Selection size; 0 uses the configured default")
	mode := fs.String("mode", string(ranker.ModeBalanced), "Composition mode: balanced or topics")
	perspective := fs.Bool("perspective", false, "Widen topic groups with an opposing-leaning pick")
	persist := fs.Bool("persist", true, "Persist the selection for today")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "select does not accept positional arguments")
		return 2
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		return 2
	}

	composeMode := ranker.Mode(*mode)
	if composeMode != ranker.ModeBalanced && composeMode != ranker.ModeTopics {
		fmt.Fprintf(os.Stderr, "unknown mode %q: must be balanced or topics\n", *mode)
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
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

	service := briefing.NewService(
		rt.pool,
		rt.weights,
		rt.cfg.SelectionSize,
		time.Duration(rt.cfg.CandidateLookbackHrs)*time.Hour,
		rt.cfg.CandidateLimit,
		rt.logger,
	)

	result, err := service.Generate(ctx, *userID, briefing.Options{
		Limit:               *limit,
		Mode:                composeMode,
		BalancedPerspective: *perspective,
		Persist:             *persist,
	})
	if err != nil {
		rt.logger.Error().Err(err).Str("user_id", *userID).Msg("briefing generation failed")
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	fmt.Printf("Briefing for %s on %s (%d candidates, %d clusters, persisted=%t)\n",
		result.UserID, result.Date.Format("2006-01-02"), result.Candidates, result.Clusters, result.Persisted)
	if len(result.Items) == 0 {
		fmt.Println("No items selected.")
		return 0
	}
	if err := writeSelectionTable(result.Items); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
