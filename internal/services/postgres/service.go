// Package postgres provides the PostgreSQL connectivity probe.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// closeTimeout bounds connection teardown once the probe is finished.
const closeTimeout = 5 * time.Second

const versionQuery = "SELECT version(), now()"

// Service defines the interface for the PostgreSQL probe.
type Service interface {
	Probe(ctx context.Context, cfg models.PostgresConfig) *models.ProbeResult
}

// Conn is the subset of *pgx.Conn used by the probe.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// Connector opens PostgreSQL connections.
type Connector interface {
	Connect(ctx context.Context, cfg models.PostgresConfig) (Conn, error)
}

// DefaultConnector connects with pgx.
type DefaultConnector struct{}

// Connect opens a single pgx connection bounded by cfg.Timeout.
func (c *DefaultConnector) Connect(ctx context.Context, cfg models.PostgresConfig) (Conn, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	connCfg.ConnectTimeout = cfg.Timeout

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Impl implements the PostgreSQL Service interface.
type Impl struct {
	connector Connector
	logger    zerolog.Logger
}

// New creates a new PostgreSQL probe.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		connector: &DefaultConnector{},
		logger:    logger,
	}
}

// NewWithConnector creates a new PostgreSQL probe with a custom connector (for testing).
func NewWithConnector(logger zerolog.Logger, connector Connector) *Impl {
	return &Impl{
		connector: connector,
		logger:    logger,
	}
}

// Probe connects, reads the server version and time, and disconnects.
func (s *Impl) Probe(ctx context.Context, cfg models.PostgresConfig) *models.ProbeResult {
	s.logger.Info().
		Str("addr", cfg.Addr()).
		Str("database", cfg.Database).
		Str("user", cfg.Username).
		Msg("testing PostgreSQL connection")

	start := time.Now()
	result := s.probe(ctx, cfg)
	result.Duration = time.Since(start)

	if result.Error != nil {
		s.logger.Error().Err(result.Error).Dur("duration", result.Duration).Msg("PostgreSQL: connection failed")
		return result
	}

	s.logger.Info().
		Str("version", result.Version).
		Time("server_time", result.ServerTime).
		Dur("duration", result.Duration).
		Msg("PostgreSQL: connected successfully")

	return result
}

func (s *Impl) probe(ctx context.Context, cfg models.PostgresConfig) *models.ProbeResult {
	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	conn, err := s.connector.Connect(opCtx, cfg)
	if err != nil {
		return models.NewFailedResult(models.BackendPostgreSQL, fmt.Errorf("connecting: %w", err))
	}
	defer s.close(ctx, conn)

	var version string
	var now time.Time
	if err := conn.QueryRow(opCtx, versionQuery).Scan(&version, &now); err != nil {
		return models.NewFailedResult(models.BackendPostgreSQL, fmt.Errorf("querying version: %w", err))
	}

	short := ShortVersion(version)
	return &models.ProbeResult{
		Backend:    models.BackendPostgreSQL,
		Success:    true,
		Version:    short,
		ServerTime: now,
		Message:    fmt.Sprintf("Version: %s, current time: %s", short, now.Format(time.RFC3339)),
	}
}

func (s *Impl) close(ctx context.Context, conn Conn) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	if err := conn.Close(closeCtx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close PostgreSQL connection")
	}
}

// ShortVersion trims "PostgreSQL 16.2 on x86_64-pc-linux-gnu, ..." to "PostgreSQL 16.2".
func ShortVersion(version string) string {
	fields := strings.Fields(version)
	if len(fields) < 2 {
		return version
	}
	return fields[0] + " " + fields[1]
}
