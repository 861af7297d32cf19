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
)

func runShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	userID := fs.String("user", "", "User identifier (required)")
	date := fs.String("date", "", "Briefing date as YYYY-MM-DD (required)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "show does not accept positional arguments")
		return 2
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		return 2
	}
	day, err := parseUTCDate(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--date: %v\n", err)
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

	items, found, err := service.Read(ctx, *userID, day)
	if err != nil {
		rt.logger.Error().Err(err).Str("user_id", *userID).Msg("briefing read failed")
		return 1
	}
	if !found {
		fmt.Fprintf(os.Stderr, "no briefing for %s on %s\n", *userID, day.Format("2006-01-02"))
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(items); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	fmt.Printf("Briefing for %s on %s (%d items)\n", *userID, day.Format("2006-01-02"), len(items))
	if err := writeSelectionTable(items); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
