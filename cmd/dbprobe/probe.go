package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/fgeck/dbprobe/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errInterrupted = errors.New("interrupted")

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Database Connection Tester %s\n%s\n", Version, runner.Separator)

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var interrupted atomic.Bool
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		interrupted.Store(true)
		cancel()

		// A second signal skips the graceful shutdown.
		<-sigChan
		_, _ = fmt.Fprintln(out, "\n\nTest interrupted by user")
		os.Exit(0)
	}()

	runnerSvc := runner.New(log.Logger, out, noColor())

	if len(args) == 1 {
		_, err = runnerSvc.RunSpecific(ctx, *cfg, args[0])
		if errors.Is(err, models.ErrUnknownBackend) {
			return nil
		}
	} else {
		_, err = runnerSvc.RunAll(ctx, *cfg)
	}

	if interrupted.Load() {
		return errInterrupted
	}
	return err
}
