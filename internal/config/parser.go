// Package config provides configuration file parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. DBPROBE_MYSQL_HOST.
const EnvPrefix = "DBPROBE"

// Default retry behaviour.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultTimeout     = 5 * time.Second
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser with the built-in defaults
// for local development containers.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("mongodb.host", "localhost")
	v.SetDefault("mongodb.port", models.BackendMongoDB.DefaultPort())
	v.SetDefault("mongodb.username", "root")
	v.SetDefault("mongodb.password", "password")
	v.SetDefault("mongodb.database", "test")
	v.SetDefault("mongodb.timeout", DefaultTimeout)

	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", models.BackendMySQL.DefaultPort())
	v.SetDefault("mysql.username", "root")
	v.SetDefault("mysql.password", "password")
	v.SetDefault("mysql.database", "")
	v.SetDefault("mysql.timeout", DefaultTimeout)

	v.SetDefault("postgresql.host", "localhost")
	v.SetDefault("postgresql.port", models.BackendPostgreSQL.DefaultPort())
	v.SetDefault("postgresql.username", "admin")
	v.SetDefault("postgresql.password", "password")
	v.SetDefault("postgresql.database", "postgres")
	v.SetDefault("postgresql.sslmode", "disable")
	v.SetDefault("postgresql.timeout", DefaultTimeout)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", models.BackendRedis.DefaultPort())
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "password")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", DefaultTimeout)

	v.SetDefault("retry.max_attempts", DefaultMaxAttempts)
	v.SetDefault("retry.delay", DefaultRetryDelay)
	v.SetDefault("parallel", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Parser{v: v}
}

// LoadFile loads configuration from a file path. An empty path means
// defaults and environment variables only.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	if path == "" {
		return p.parse()
	}

	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{
		MongoDB: models.MongoConfig{
			Host:     p.v.GetString("mongodb.host"),
			Port:     p.v.GetInt("mongodb.port"),
			Username: p.expandEnv(p.v.GetString("mongodb.username")),
			Password: p.expandEnv(p.v.GetString("mongodb.password")),
			Database: p.v.GetString("mongodb.database"),
			Timeout:  p.v.GetDuration("mongodb.timeout"),
		},
		MySQL: models.MySQLConfig{
			Host:     p.v.GetString("mysql.host"),
			Port:     p.v.GetInt("mysql.port"),
			Username: p.expandEnv(p.v.GetString("mysql.username")),
			Password: p.expandEnv(p.v.GetString("mysql.password")),
			Database: p.v.GetString("mysql.database"),
			Timeout:  p.v.GetDuration("mysql.timeout"),
		},
		PostgreSQL: models.PostgresConfig{
			Host:     p.v.GetString("postgresql.host"),
			Port:     p.v.GetInt("postgresql.port"),
			Username: p.expandEnv(p.v.GetString("postgresql.username")),
			Password: p.expandEnv(p.v.GetString("postgresql.password")),
			Database: p.v.GetString("postgresql.database"),
			SSLMode:  p.v.GetString("postgresql.sslmode"),
			Timeout:  p.v.GetDuration("postgresql.timeout"),
		},
		Redis: models.RedisConfig{
			Host:     p.v.GetString("redis.host"),
			Port:     p.v.GetInt("redis.port"),
			Username: p.expandEnv(p.v.GetString("redis.username")),
			Password: p.expandEnv(p.v.GetString("redis.password")),
			DB:       p.v.GetInt("redis.db"),
			Timeout:  p.v.GetDuration("redis.timeout"),
		},
		Retry: models.RetrySettings{
			MaxAttempts: p.v.GetInt("retry.max_attempts"),
			Delay:       p.v.GetDuration("retry.delay"),
		},
		Parallel: p.v.GetBool("parallel"),
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.PostgreSQL.SSLMode] {
		return nil, fmt.Errorf("postgresql.sslmode must be one of: disable, allow, prefer, require, verify-ca, verify-full")
	}

	// Parse optional WOL config.
	if p.v.IsSet("wol") || p.v.IsSet("wol.mac_address") { //nolint:nestif // config parsing with defaults
		cfg.WOL = &models.WOLConfig{
			MACAddress:    p.v.GetString("wol.mac_address"),
			BroadcastIP:   p.v.GetString("wol.broadcast_ip"),
			WaitAddr:      p.v.GetString("wol.wait_addr"),
			Timeout:       p.v.GetDuration("wol.timeout"),
			PollInterval:  p.v.GetDuration("wol.poll_interval"),
			StabilizeWait: p.v.GetDuration("wol.stabilize_wait"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, fmt.Errorf("wol.mac_address is required when wol is configured")
		}

		// Set defaults.
		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = 3 * time.Minute
		}
		if cfg.WOL.PollInterval == 0 {
			cfg.WOL.PollInterval = 5 * time.Second
		}
		if cfg.WOL.StabilizeWait == 0 {
			cfg.WOL.StabilizeWait = 10 * time.Second
		}
	}

	// Parse optional inspection config.
	if p.v.IsSet("inspect") || p.v.IsSet("inspect.enabled") { //nolint:nestif // config parsing with defaults
		cfg.Inspect = &models.InspectConfig{
			Enabled: p.v.GetBool("inspect.enabled"),
		}

		if p.v.IsSet("inspect.ssh") || p.v.IsSet("inspect.ssh.host") {
			cfg.Inspect.SSH = &models.SSHConfig{
				Host:     p.v.GetString("inspect.ssh.host"),
				Port:     p.v.GetInt("inspect.ssh.port"),
				Username: p.v.GetString("inspect.ssh.username"),
				KeyPath:  p.expandEnv(p.v.GetString("inspect.ssh.key_path")),
			}

			if cfg.Inspect.SSH.Host == "" {
				return nil, fmt.Errorf("inspect.ssh.host is required when inspect.ssh is configured")
			}
			if cfg.Inspect.SSH.Port == 0 {
				cfg.Inspect.SSH.Port = 22
			}
			if cfg.Inspect.SSH.Username == "" {
				cfg.Inspect.SSH.Username = "root"
			}
			if cfg.Inspect.SSH.KeyPath == "" {
				return nil, fmt.Errorf("inspect.ssh.key_path is required when inspect.ssh is configured")
			}
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") || p.v.IsSet("telegram.bot_token") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []error

	check := func(name, host string, port int, timeout time.Duration) {
		if host == "" {
			errs = append(errs, fmt.Errorf("%s.host is required", name))
		}
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s.port must be between 1 and 65535, got %d", name, port))
		}
		if timeout <= 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must be positive", name))
		}
	}

	check("mongodb", cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Timeout)
	check("mysql", cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.Timeout)
	check("postgresql", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Timeout)
	check("redis", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Timeout)

	if cfg.MongoDB.Database == "" {
		errs = append(errs, fmt.Errorf("mongodb.database is required"))
	}
	if cfg.PostgreSQL.Database == "" {
		errs = append(errs, fmt.Errorf("postgresql.database is required"))
	}
	if cfg.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative"))
	}

	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1"))
	}
	if cfg.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative"))
	}

	return errors.Join(errs...)
}
