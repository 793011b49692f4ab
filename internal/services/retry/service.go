// Package retry re-runs failing probes with a flat delay between attempts.
package retry

import (
	"context"
	"fmt"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/fgeck/dbprobe/internal/models"
	"github.com/rs/zerolog"
)

// ProbeFunc runs a single probe attempt.
type ProbeFunc func(ctx context.Context) *models.ProbeResult

// Service defines the interface for retrying probes.
type Service interface {
	Do(ctx context.Context, backend models.Backend, probe ProbeFunc) *models.ProbeResult
}

// Impl implements the retry Service interface on top of a failsafe retry policy.
type Impl struct {
	settings models.RetrySettings
	logger   zerolog.Logger
}

// New creates a new retrier. MaxAttempts below 1 is treated as a single attempt.
func New(logger zerolog.Logger, settings models.RetrySettings) *Impl {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 1
	}
	if settings.Delay < 0 {
		settings.Delay = 0
	}
	return &Impl{
		settings: settings,
		logger:   logger,
	}
}

// Do invokes probe until it succeeds or the attempts are exhausted and
// returns the last result with Attempts set.
func (s *Impl) Do(ctx context.Context, backend models.Backend, probe ProbeFunc) *models.ProbeResult {
	attempts := 0
	name := backend.DisplayName()

	policy := retrypolicy.NewBuilder[*models.ProbeResult]().
		HandleIf(func(r *models.ProbeResult, err error) bool {
			return err != nil || r == nil || !r.Success
		}).
		WithMaxAttempts(s.settings.MaxAttempts).
		WithDelay(s.settings.Delay).
		ReturnLastFailure().
		OnRetryScheduled(func(failsafe.ExecutionScheduledEvent[*models.ProbeResult]) {
			s.logger.Warn().
				Str("backend", string(backend)).
				Dur("delay", s.settings.Delay).
				Msgf("Retry %d/%d for %s...", attempts, s.settings.MaxAttempts-1, name)
		}).
		Build()

	result, err := failsafe.With[*models.ProbeResult](policy).
		WithContext(ctx).
		Get(func() (*models.ProbeResult, error) {
			attempts++
			r := probe(ctx)
			if r == nil {
				return nil, fmt.Errorf("%s probe returned no result", name)
			}
			return r, nil
		})

	if result == nil {
		if err == nil {
			err = fmt.Errorf("%s probe returned no result", name)
		}
		result = models.NewFailedResult(backend, err)
	}
	result.Backend = backend
	result.Attempts = attempts

	return result
}
