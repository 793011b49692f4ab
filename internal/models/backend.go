package models

import (
	"errors"
	"strings"
)

// Backend identifies one of the supported database backends.
type Backend string

// Supported backends.
const (
	BackendMongoDB    Backend = "mongodb"
	BackendMySQL      Backend = "mysql"
	BackendPostgreSQL Backend = "postgresql"
	BackendRedis      Backend = "redis"
)

// ErrUnknownBackend is returned for names that do not map to a backend.
var ErrUnknownBackend = errors.New("unknown database")

// AllBackends returns the backends in run-all order.
func AllBackends() []Backend {
	return []Backend{BackendMySQL, BackendPostgreSQL, BackendMongoDB, BackendRedis}
}

// AvailableNames lists the names accepted on the command line.
func AvailableNames() []string {
	return []string{"mongodb", "mysql", "postgresql", "redis"}
}

// ParseBackend maps a user supplied name to a Backend.
// Matching is case-insensitive and "postgres" is accepted for PostgreSQL.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mongodb":
		return BackendMongoDB, nil
	case "mysql":
		return BackendMySQL, nil
	case "postgresql", "postgres":
		return BackendPostgreSQL, nil
	case "redis":
		return BackendRedis, nil
	}
	return "", ErrUnknownBackend
}

// DisplayName returns the human readable product name.
func (b Backend) DisplayName() string {
	switch b {
	case BackendMongoDB:
		return "MongoDB"
	case BackendMySQL:
		return "MySQL"
	case BackendPostgreSQL:
		return "PostgreSQL"
	case BackendRedis:
		return "Redis"
	}
	return string(b)
}

// DefaultPort returns the well-known port of the backend.
func (b Backend) DefaultPort() int {
	switch b {
	case BackendMongoDB:
		return 27017
	case BackendMySQL:
		return 3306
	case BackendPostgreSQL:
		return 5432
	case BackendRedis:
		return 6379
	}
	return 0
}

// ContainerFilter is the substring used to find the backend's container.
func (b Backend) ContainerFilter() string {
	switch b {
	case BackendMongoDB:
		return "mongo"
	case BackendPostgreSQL:
		return "postgres"
	}
	return string(b)
}
