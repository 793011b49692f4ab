// Package mysql provides the MySQL connectivity probe.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

const versionQuery = "SELECT VERSION(), NOW()"

// Service defines the interface for the MySQL probe.
type Service interface {
	Probe(ctx context.Context, cfg models.MySQLConfig) *models.ProbeResult
}

// Opener opens database handles, allowing a sqlmock handle in tests.
type Opener interface {
	Open(dsn string) (*sql.DB, error)
}

// DefaultOpener opens handles with the go-sql-driver/mysql driver.
type DefaultOpener struct{}

// Open returns a handle for dsn. No connection is made until first use.
func (o *DefaultOpener) Open(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

// Impl implements the MySQL Service interface.
type Impl struct {
	opener Opener
	logger zerolog.Logger
}

// New creates a new MySQL probe.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		opener: &DefaultOpener{},
		logger: logger,
	}
}

// NewWithOpener creates a new MySQL probe with a custom opener (for testing).
func NewWithOpener(logger zerolog.Logger, opener Opener) *Impl {
	return &Impl{
		opener: opener,
		logger: logger,
	}
}

// DSN builds the driver connection string for cfg.
func DSN(cfg models.MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Addr()
	mc.DBName = cfg.Database
	mc.Timeout = cfg.Timeout
	mc.ReadTimeout = cfg.Timeout
	mc.WriteTimeout = cfg.Timeout
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Probe connects, reads the server version and time, and disconnects.
func (s *Impl) Probe(ctx context.Context, cfg models.MySQLConfig) *models.ProbeResult {
	s.logger.Info().
		Str("addr", cfg.Addr()).
		Str("user", cfg.Username).
		Msg("testing MySQL connection")

	start := time.Now()
	result := s.probe(ctx, cfg)
	result.Duration = time.Since(start)

	if result.Error != nil {
		s.logger.Error().Err(result.Error).Dur("duration", result.Duration).Msg("MySQL: connection failed")
		return result
	}

	s.logger.Info().
		Str("version", result.Version).
		Time("server_time", result.ServerTime).
		Dur("duration", result.Duration).
		Msg("MySQL: connected successfully")

	return result
}

func (s *Impl) probe(ctx context.Context, cfg models.MySQLConfig) *models.ProbeResult {
	db, err := s.opener.Open(DSN(cfg))
	if err != nil {
		return models.NewFailedResult(models.BackendMySQL, fmt.Errorf("opening connection: %w", err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close MySQL connection")
		}
	}()
	db.SetMaxOpenConns(1)

	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := db.PingContext(opCtx); err != nil {
		return models.NewFailedResult(models.BackendMySQL, fmt.Errorf("connecting: %w", err))
	}

	var version string
	var now time.Time
	if err := db.QueryRowContext(opCtx, versionQuery).Scan(&version, &now); err != nil {
		return models.NewFailedResult(models.BackendMySQL, fmt.Errorf("querying version: %w", err))
	}

	return &models.ProbeResult{
		Backend:    models.BackendMySQL,
		Success:    true,
		Version:    version,
		ServerTime: now,
		Message:    fmt.Sprintf("Version: %s, current time: %s", version, now.Format(time.RFC3339)),
	}
}
