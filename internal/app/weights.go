package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/briefing/internal/cli"
	"horse.fit/briefing/internal/config"
)

// runWeights prints the effective scoring weights: the defaults overlaid
// with the configured override file, after schema validation. It does not
// touch the database.
func runWeights(args []string) int {
	fs := flag.NewFlagSet("weights", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "weights does not accept positional arguments")
		return 2
	}

	if _, err := envLoader.Load(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		return 1
	}
	weights, err := loadWeights(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := weights.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "effective weights are invalid: %v\n", err)
		return 1
	}

	if err := printJSON(weights); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
