package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"BRIEFING_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"BRIEFING_DB_MAX_CONNS" default:"8"`

	SelectionSize        int    `envconfig:"BRIEFING_SELECTION_SIZE" default:"10"`
	CandidateLookbackHrs int    `envconfig:"BRIEFING_CANDIDATE_LOOKBACK_HOURS" default:"72"`
	CandidateLimit       int    `envconfig:"BRIEFING_CANDIDATE_LIMIT" default:"300"`
	BatchConcurrency     int    `envconfig:"BRIEFING_BATCH_CONCURRENCY" default:"10"`
	WeightsFile          string `envconfig:"BRIEFING_WEIGHTS_FILE" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("BRIEFING_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("BRIEFING_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("BRIEFING_DB_MIN_CONNS (%d) cannot exceed BRIEFING_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.SelectionSize < 1 {
		return fmt.Errorf("BRIEFING_SELECTION_SIZE must be >= 1")
	}
	if c.CandidateLookbackHrs < 1 {
		return fmt.Errorf("BRIEFING_CANDIDATE_LOOKBACK_HOURS must be >= 1")
	}
	if c.CandidateLimit < 1 {
		return fmt.Errorf("BRIEFING_CANDIDATE_LIMIT must be >= 1")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BRIEFING_BATCH_CONCURRENCY must be >= 1")
	}
	return nil
}
