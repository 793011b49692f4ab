// Package runner orchestrates database probe runs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/fgeck/dbprobe/internal/services/inspect"
	"github.com/fgeck/dbprobe/internal/services/mongo"
	"github.com/fgeck/dbprobe/internal/services/mysql"
	"github.com/fgeck/dbprobe/internal/services/postgres"
	"github.com/fgeck/dbprobe/internal/services/redis"
	"github.com/fgeck/dbprobe/internal/services/retry"
	"github.com/fgeck/dbprobe/internal/services/telegram"
	"github.com/fgeck/dbprobe/internal/services/wol"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrChecksFailed is returned by RunAll when at least one backend failed.
var ErrChecksFailed = errors.New("some database connections failed")

// Service defines the interface for the probe runner.
type Service interface {
	RunAll(ctx context.Context, cfg models.Config) (*models.RunSummary, error)
	RunSpecific(ctx context.Context, cfg models.Config, name string) (bool, error)
}

// Services bundles the collaborators used by the runner.
type Services struct {
	MongoDB    mongo.Service
	MySQL      mysql.Service
	PostgreSQL postgres.Service
	Redis      redis.Service
	WOL        wol.Service
	Inspect    inspect.Service
	Telegram   telegram.Service
}

// Impl implements the runner Service interface.
type Impl struct {
	svc      Services
	retrier  func(models.RetrySettings) retry.Service
	report   *Reporter
	logger   zerolog.Logger
	hostname func() (string, error)
}

// New creates a new runner writing its report to out.
func New(logger zerolog.Logger, out io.Writer, noColor bool) *Impl {
	return NewWithServices(logger, NewReporter(out, noColor), Services{
		MongoDB:    mongo.New(logger),
		MySQL:      mysql.New(logger),
		PostgreSQL: postgres.New(logger),
		Redis:      redis.New(logger),
		WOL:        wol.New(logger),
		Inspect:    inspect.New(logger),
		Telegram:   telegram.New(logger),
	})
}

// NewWithServices creates a new runner with custom services (for testing).
func NewWithServices(logger zerolog.Logger, report *Reporter, svc Services) *Impl {
	return &Impl{
		svc: svc,
		retrier: func(settings models.RetrySettings) retry.Service {
			return retry.New(logger, settings)
		},
		report:   report,
		logger:   logger,
		hostname: os.Hostname,
	}
}

// RunAll probes every backend, prints the summary and returns ErrChecksFailed
// unless all of them succeeded.
func (s *Impl) RunAll(ctx context.Context, cfg models.Config) (*models.RunSummary, error) {
	start := time.Now()

	s.logger.Info().
		Bool("parallel", cfg.Parallel).
		Int("max_attempts", cfg.Retry.MaxAttempts).
		Dur("retry_delay", cfg.Retry.Delay).
		Msg("starting probe run")

	s.wake(ctx, cfg.WOL)

	s.report.Section("Testing database connections...")

	backends := models.AllBackends()
	results := make([]*models.ProbeResult, len(backends))
	retrier := s.retrier(cfg.Retry)

	if cfg.Parallel {
		var g errgroup.Group
		for i, backend := range backends {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%s check panicked: %v", backend.DisplayName(), r)
					}
				}()
				results[i] = s.probeWithRetry(ctx, retrier, cfg, backend)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, backend := range backends {
			results[i] = s.probeWithRetry(ctx, retrier, cfg, backend)
		}
	}

	summary := &models.RunSummary{
		Results:  results,
		Duration: time.Since(start),
	}

	s.report.Summary(summary)

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	failed := summary.Failed()
	var inspections map[models.Backend]*models.InspectResult
	if len(failed) > 0 && cfg.Inspect != nil && cfg.Inspect.Enabled {
		inspections = s.inspect(ctx, *cfg.Inspect, failed)
	}
	s.report.Tips(failed, inspections)

	if cfg.Telegram != nil {
		s.sendNotification(ctx, *cfg.Telegram, start, *summary)
	}

	s.report.Verdict(summary.AllPassed())

	s.logger.Info().
		Int("passed", summary.SuccessCount()).
		Int("total", summary.Total()).
		Dur("duration", summary.Duration).
		Msg("probe run completed")

	if !summary.AllPassed() {
		return summary, ErrChecksFailed
	}
	return summary, nil
}

// RunSpecific probes a single backend named by the user. Unknown names are
// rejected with models.ErrUnknownBackend before any connection is attempted.
func (s *Impl) RunSpecific(ctx context.Context, cfg models.Config, name string) (bool, error) {
	backend, err := models.ParseBackend(name)
	if err != nil {
		s.report.UnknownBackend(name)
		return false, fmt.Errorf("%w: %s", err, name)
	}

	s.wake(ctx, cfg.WOL)

	s.report.Section(fmt.Sprintf("Testing %s connection...", name))
	cfg.Parallel = false

	result := s.probeWithRetry(ctx, s.retrier(cfg.Retry), cfg, backend)

	s.logger.Info().
		Str("backend", string(backend)).
		Bool("success", result.Success).
		Int("attempts", result.Attempts).
		Msg("probe completed")

	if ctx.Err() != nil {
		return result.Success, ctx.Err()
	}
	return result.Success, nil
}

// probeWithRetry runs backend's probe through retrier. Sequential runs
// announce each attempt before connecting; concurrent runs print one block
// per attempt so output from different backends does not interleave.
func (s *Impl) probeWithRetry(ctx context.Context, retrier retry.Service, cfg models.Config, backend models.Backend) *models.ProbeResult {
	return retrier.Do(ctx, backend, func(ctx context.Context) *models.ProbeResult {
		if !cfg.Parallel {
			s.report.Start(backend)
		}
		res := s.probe(ctx, cfg, backend)
		if res == nil {
			return nil
		}
		res.Backend = backend
		if cfg.Parallel {
			s.report.Attempt(res)
		} else {
			s.report.Outcome(res)
		}
		return res
	})
}

func (s *Impl) probe(ctx context.Context, cfg models.Config, backend models.Backend) *models.ProbeResult {
	switch backend {
	case models.BackendMongoDB:
		return s.svc.MongoDB.Probe(ctx, cfg.MongoDB)
	case models.BackendMySQL:
		return s.svc.MySQL.Probe(ctx, cfg.MySQL)
	case models.BackendPostgreSQL:
		return s.svc.PostgreSQL.Probe(ctx, cfg.PostgreSQL)
	case models.BackendRedis:
		return s.svc.Redis.Probe(ctx, cfg.Redis)
	}
	return models.NewFailedResult(backend, fmt.Errorf("%w: %s", models.ErrUnknownBackend, backend))
}

func (s *Impl) wake(ctx context.Context, cfg *models.WOLConfig) {
	if cfg == nil {
		return
	}

	result, err := s.svc.WOL.Wake(ctx, *cfg)
	if err == nil {
		err = result.Error
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Wake-on-LAN failed, probing anyway")
		return
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Bool("target_ready", result.TargetReady).
		Dur("wait_duration", result.WaitDuration).
		Msg("WOL completed")
}

func (s *Impl) inspect(ctx context.Context, cfg models.InspectConfig, failed []models.Backend) map[models.Backend]*models.InspectResult {
	inspections := make(map[models.Backend]*models.InspectResult, len(failed))
	for _, backend := range failed {
		result, err := s.svc.Inspect.Inspect(ctx, cfg, backend)
		if err != nil {
			result = &models.InspectResult{Backend: backend, Error: err}
		}
		if result.Error != nil {
			s.logger.Warn().Err(result.Error).Str("backend", string(backend)).Msg("container inspection failed")
		}
		inspections[backend] = result
	}
	return inspections
}

func (s *Impl) sendNotification(ctx context.Context, cfg models.TelegramConfig, start time.Time, summary models.RunSummary) {
	host, err := s.hostname()
	if err != nil {
		host = "unknown"
	}

	result, err := s.svc.Telegram.SendNotification(ctx, cfg, models.TelegramMessage{
		Host:      host,
		StartTime: start,
		Summary:   summary,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
