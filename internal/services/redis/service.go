// Package redis provides the Redis connectivity probe.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// MarkerPrefix prefixes every marker key written by the probe.
	MarkerPrefix = "dbprobe:marker:"
	markerValue  = "dbprobe"
	// markerTTL expires the marker even if the DEL never reaches the server.
	markerTTL      = time.Minute
	cleanupTimeout = 5 * time.Second
	unknownVersion = "unknown"
)

// Service defines the interface for the Redis probe.
type Service interface {
	Probe(ctx context.Context, cfg models.RedisConfig) *models.ProbeResult
}

// Impl implements the Redis Service interface.
type Impl struct {
	newClient func(opts *goredis.Options) *goredis.Client
	newKey    func() string
	logger    zerolog.Logger
}

var setLoggerOnce sync.Once

// driverLogger routes go-redis internal messages through zerolog instead of stderr.
type driverLogger struct {
	logger zerolog.Logger
}

func (l driverLogger) Printf(_ context.Context, format string, v ...interface{}) {
	l.logger.Debug().Str("component", "go-redis").Msgf(format, v...)
}

// New creates a new Redis probe.
func New(logger zerolog.Logger) *Impl {
	setLoggerOnce.Do(func() {
		goredis.SetLogger(driverLogger{logger: logger})
	})
	return &Impl{
		newClient: goredis.NewClient,
		newKey:    func() string { return MarkerPrefix + uuid.NewString() },
		logger:    logger,
	}
}

// Options builds go-redis client options for cfg.
func Options(cfg models.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:          cfg.Addr(),
		Username:      cfg.Username,
		Password:      cfg.Password,
		DB:            cfg.DB,
		DialTimeout:   cfg.Timeout,
		ReadTimeout:   cfg.Timeout,
		WriteTimeout:  cfg.Timeout,
		MaxRetries:    -1, // retries are handled one level up
		DialerRetries: 1,
		PoolSize:      1,
	}
}

// Probe connects, writes, reads and deletes a marker key, reads the server
// version, and disconnects.
func (s *Impl) Probe(ctx context.Context, cfg models.RedisConfig) *models.ProbeResult {
	s.logger.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("testing Redis connection")

	start := time.Now()
	result := s.probe(ctx, cfg)
	result.Duration = time.Since(start)

	if result.Error != nil {
		s.logger.Error().Err(result.Error).Dur("duration", result.Duration).Msg("Redis: connection failed")
		return result
	}

	s.logger.Info().
		Str("version", result.Version).
		Dur("duration", result.Duration).
		Msg("Redis: connected successfully")

	return result
}

func (s *Impl) probe(ctx context.Context, cfg models.RedisConfig) *models.ProbeResult {
	client := s.newClient(Options(cfg))
	defer func() {
		if err := client.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close Redis client")
		}
	}()

	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := client.Ping(opCtx).Err(); err != nil {
		return models.NewFailedResult(models.BackendRedis, fmt.Errorf("connecting: %w", err))
	}

	if err := s.roundTrip(opCtx, client); err != nil {
		return models.NewFailedResult(models.BackendRedis, err)
	}

	version := s.serverVersion(opCtx, client)

	return &models.ProbeResult{
		Backend: models.BackendRedis,
		Success: true,
		Version: version,
		Message: fmt.Sprintf("Version: %s, test key set and retrieved", version),
	}
}

// roundTrip writes a marker key, reads it back and always deletes it.
func (s *Impl) roundTrip(ctx context.Context, client *goredis.Client) (err error) {
	key := s.newKey()

	if err := client.Set(ctx, key, markerValue, markerTTL).Err(); err != nil {
		return fmt.Errorf("writing marker key: %w", err)
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()

		if delErr := client.Del(cleanupCtx, key).Err(); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("failed to delete marker key")
			if err == nil {
				err = fmt.Errorf("deleting marker key: %w", delErr)
			}
		}
	}()

	value, err := client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("reading marker key: %w", err)
	}
	if value != markerValue {
		return fmt.Errorf("marker key mismatch: got %q", value)
	}

	s.logger.Debug().Str("key", key).Msg("marker key set and retrieved")
	return nil
}

func (s *Impl) serverVersion(ctx context.Context, client *goredis.Client) string {
	info, err := client.Info(ctx, "server").Result()
	if err != nil {
		s.logger.Debug().Err(err).Msg("INFO server not available")
		return unknownVersion
	}
	if v := ParseVersion(info); v != "" {
		return v
	}
	return unknownVersion
}

// ParseVersion extracts redis_version from an INFO reply.
func ParseVersion(info string) string {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "redis_version:"); ok {
			return v
		}
	}
	return ""
}
