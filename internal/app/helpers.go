package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/briefing/internal/cli"
	"horse.fit/briefing/internal/config"
	"horse.fit/briefing/internal/db"
	"horse.fit/briefing/internal/logging"
	"horse.fit/briefing/internal/ranker"
	weightschema "horse.fit/briefing/schema"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *db.Pool
	weights ranker.Weights
}

// connect loads env + config, builds the logger, resolves the effective
// weights, and opens the database pool.
func connect(ctx context.Context, envLoader *cli.EnvLoader) (*runtime, error) {
	if _, err := envLoader.Load(); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	weights, err := loadWeights(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		weights: weights,
	}, nil
}

// loadWeights returns the defaults overlaid with the optional, schema-
// validated override file.
func loadWeights(cfg *config.Config) (ranker.Weights, error) {
	weights := ranker.DefaultWeights()

	path := strings.TrimSpace(cfg.WeightsFile)
	if path == "" {
		return weights, nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return ranker.Weights{}, fmt.Errorf("read weights file %s: %w", path, err)
	}
	normalized, err := weightschema.ValidateWeightsOverride(payload)
	if err != nil {
		return ranker.Weights{}, fmt.Errorf("validate weights file %s: %w", path, err)
	}
	merged, err := weights.ApplyJSON(normalized)
	if err != nil {
		return ranker.Weights{}, fmt.Errorf("apply weights file %s: %w", path, err)
	}
	return merged, nil
}

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func parseUTCDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	day, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be YYYY-MM-DD")
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeSelectionTable(items []ranker.SelectionItem) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tSOURCE\tREASON\tTITLE")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\t%s\n",
			item.Rank,
			item.Score,
			item.Candidate.SourceID,
			item.Reason,
			truncate(item.Candidate.Title, 60),
		)
	}
	return w.Flush()
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
