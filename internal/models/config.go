// Package models contains the data structures used throughout dbprobe.
package models

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds the complete configuration for a probe run.
// It is built once at startup and never mutated afterwards.
type Config struct {
	MongoDB    MongoConfig
	MySQL      MySQLConfig
	PostgreSQL PostgresConfig
	Redis      RedisConfig
	Retry      RetrySettings
	Parallel   bool            // run probes concurrently in run-all mode
	WOL        *WOLConfig      // nil if not configured
	Inspect    *InspectConfig  // nil if not configured
	Telegram   *TelegramConfig // nil if not configured
}

// RetrySettings controls how often a failing probe is re-run.
type RetrySettings struct {
	MaxAttempts int
	Delay       time.Duration // flat, no backoff
}

// MongoConfig holds MongoDB connection parameters.
type MongoConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string // database holding the marker collection
	Timeout  time.Duration
}

// URI returns the mongodb:// connection string.
func (c MongoConfig) URI() string {
	u := url.URL{Scheme: "mongodb", Host: c.Addr(), Path: "/"}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// Addr returns host:port.
func (c MongoConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MySQLConfig holds MySQL connection parameters.
type MySQLConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string // optional
	Timeout  time.Duration
}

// Addr returns host:port.
func (c MySQLConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
	Timeout  time.Duration
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Addr(),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Addr returns host:port.
func (c PostgresConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     int
	Username string // optional, ACL user
	Password string
	DB       int
	Timeout  time.Duration
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
