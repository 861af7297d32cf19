package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/briefing/internal/briefing"
	"horse.fit/briefing/internal/cli"
	"horse.fit/briefing/internal/httpapi"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Listen host")
	port := fs.Int("port", 8080, "Listen port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "serve does not accept positional arguments")
		return 2
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rt, err := connect(startCtx, envLoader)
	cancel()
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
	server := httpapi.NewServer(service, rt.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(*host, *port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error().Err(err).Msg("HTTP server failed")
			return 1
		}
	case sig := <-stop:
		rt.logger.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error().Err(err).Msg("graceful shutdown failed")
			return 1
		}
	}
	return 0
}
