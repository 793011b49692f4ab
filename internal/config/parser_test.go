package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadFile_Defaults(t *testing.T) {
	parser := NewParser()
	cfg, err := parser.LoadFile("")

	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.MongoDB.Host)
	assert.Equal(t, 27017, cfg.MongoDB.Port)
	assert.Equal(t, "root", cfg.MongoDB.Username)
	assert.Equal(t, "password", cfg.MongoDB.Password)
	assert.Equal(t, "test", cfg.MongoDB.Database)
	assert.Equal(t, 5*time.Second, cfg.MongoDB.Timeout)

	assert.Equal(t, "127.0.0.1", cfg.MySQL.Host)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, "root", cfg.MySQL.Username)

	assert.Equal(t, "localhost", cfg.PostgreSQL.Host)
	assert.Equal(t, 5432, cfg.PostgreSQL.Port)
	assert.Equal(t, "admin", cfg.PostgreSQL.Username)
	assert.Equal(t, "postgres", cfg.PostgreSQL.Database)
	assert.Equal(t, "disable", cfg.PostgreSQL.SSLMode)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "password", cfg.Redis.Password)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.Delay)
	assert.False(t, cfg.Parallel)

	assert.Nil(t, cfg.WOL)
	assert.Nil(t, cfg.Inspect)
	assert.Nil(t, cfg.Telegram)

	assert.NoError(t, Validate(cfg))
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
mongodb:
  host: "mongo.local"
  port: 27018
  username: "admin"
  password: "mongopass"
  database: "probes"
  timeout: 3s

mysql:
  host: "mysql.local"
  port: 3307
  username: "probe"
  password: "mysqlpass"
  database: "app"
  timeout: 2s

postgresql:
  host: "pg.local"
  port: 5433
  username: "pguser"
  password: "pgpass"
  database: "app"
  sslmode: "require"

redis:
  host: "redis.local"
  port: 6380
  password: "redispass"
  db: 2

retry:
  max_attempts: 5
  delay: 500ms

parallel: true

wol:
  mac_address: "AA:BB:CC:DD:EE:FF"
  broadcast_ip: "192.168.1.255"
  wait_addr: "192.168.1.50:5432"
  timeout: 2m
  poll_interval: 3s
  stabilize_wait: 15s

inspect:
  enabled: true
  ssh:
    host: "192.168.1.50"
    port: 2222
    username: "docker"
    key_path: "/home/user/.ssh/id_ed25519"

telegram:
  bot_token: "123456:ABC"
  chat_id: "-100123456789"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)

	assert.Equal(t, models.MongoConfig{
		Host:     "mongo.local",
		Port:     27018,
		Username: "admin",
		Password: "mongopass",
		Database: "probes",
		Timeout:  3 * time.Second,
	}, cfg.MongoDB)

	assert.Equal(t, "mysql.local", cfg.MySQL.Host)
	assert.Equal(t, 3307, cfg.MySQL.Port)
	assert.Equal(t, "app", cfg.MySQL.Database)
	assert.Equal(t, 2*time.Second, cfg.MySQL.Timeout)

	assert.Equal(t, "pg.local", cfg.PostgreSQL.Host)
	assert.Equal(t, "require", cfg.PostgreSQL.SSLMode)
	assert.Equal(t, 5*time.Second, cfg.PostgreSQL.Timeout)

	assert.Equal(t, "redis.local", cfg.Redis.Host)
	assert.Equal(t, 2, cfg.Redis.DB)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.Delay)
	assert.True(t, cfg.Parallel)

	require.NotNil(t, cfg.WOL)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.WOL.MACAddress)
	assert.Equal(t, "192.168.1.255", cfg.WOL.BroadcastIP)
	assert.Equal(t, "192.168.1.50:5432", cfg.WOL.WaitAddr)
	assert.Equal(t, 2*time.Minute, cfg.WOL.Timeout)
	assert.Equal(t, 3*time.Second, cfg.WOL.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.WOL.StabilizeWait)

	require.NotNil(t, cfg.Inspect)
	assert.True(t, cfg.Inspect.Enabled)
	require.NotNil(t, cfg.Inspect.SSH)
	assert.Equal(t, "192.168.1.50", cfg.Inspect.SSH.Host)
	assert.Equal(t, 2222, cfg.Inspect.SSH.Port)
	assert.Equal(t, "docker", cfg.Inspect.SSH.Username)
	assert.Equal(t, "/home/user/.ssh/id_ed25519", cfg.Inspect.SSH.KeyPath)

	require.NotNil(t, cfg.Telegram)
	assert.Equal(t, "123456:ABC", cfg.Telegram.BotToken)
	assert.Equal(t, "-100123456789", cfg.Telegram.ChatID)

	assert.NoError(t, Validate(cfg))
}

func TestParser_LoadReader_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "env_secret")
	t.Setenv("TEST_REDIS_PASSWORD", "env_redis")

	yaml := `
postgresql:
  password: "${TEST_PG_PASSWORD}"
redis:
  password: "$TEST_REDIS_PASSWORD"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "env_secret", cfg.PostgreSQL.Password)
	assert.Equal(t, "env_redis", cfg.Redis.Password)
}

func TestParser_EnvOverride(t *testing.T) {
	t.Setenv("DBPROBE_MYSQL_HOST", "mysql.from.env")
	t.Setenv("DBPROBE_REDIS_PORT", "6390")
	t.Setenv("DBPROBE_RETRY_MAX_ATTEMPTS", "1")

	yaml := `
mysql:
  host: "mysql.from.file"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "mysql.from.env", cfg.MySQL.Host)
	assert.Equal(t, 6390, cfg.Redis.Port)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
}

func TestParser_LoadReader_WOLDefaults(t *testing.T) {
	yaml := `
wol:
  mac_address: "AA:BB:CC:DD:EE:FF"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	require.NotNil(t, cfg.WOL)
	assert.Equal(t, "255.255.255.255", cfg.WOL.BroadcastIP)
	assert.Equal(t, 3*time.Minute, cfg.WOL.Timeout)
	assert.Equal(t, 5*time.Second, cfg.WOL.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.WOL.StabilizeWait)
}

func TestParser_LoadReader_WOLMissingMAC(t *testing.T) {
	yaml := `
wol:
  broadcast_ip: "192.168.1.255"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wol.mac_address is required")
}

func TestParser_LoadReader_InspectSSHDefaults(t *testing.T) {
	yaml := `
inspect:
  enabled: true
  ssh:
    host: "docker.local"
    key_path: "/keys/id"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	require.NotNil(t, cfg.Inspect.SSH)
	assert.Equal(t, 22, cfg.Inspect.SSH.Port)
	assert.Equal(t, "root", cfg.Inspect.SSH.Username)
}

func TestParser_LoadReader_InspectSSHMissingKey(t *testing.T) {
	yaml := `
inspect:
  ssh:
    host: "docker.local"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "inspect.ssh.key_path is required")
}

func TestParser_LoadReader_TelegramMissingChatID(t *testing.T) {
	yaml := `
telegram:
  bot_token: "123456:ABC"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.chat_id is required")
}

func TestParser_LoadReader_InvalidSSLMode(t *testing.T) {
	yaml := `
postgresql:
  sslmode: "sometimes"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "postgresql.sslmode must be one of")
}

func TestParser_LoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "dbprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  host: cache.local\n"), 0o600))

	parser := NewParser()
	cfg, err := parser.LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "cache.local", cfg.Redis.Host)
}

func TestParser_LoadFile_NotFound(t *testing.T) {
	parser := NewParser()
	_, err := parser.LoadFile("/nonexistent/dbprobe.yaml")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate_Nil(t *testing.T) {
	err := Validate(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidate_Errors(t *testing.T) {
	cfg, err := NewParser().LoadFile("")
	require.NoError(t, err)

	cfg.MySQL.Host = ""
	cfg.Redis.Port = 70000
	cfg.MongoDB.Timeout = 0
	cfg.Retry.MaxAttempts = 0

	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql.host is required")
	assert.Contains(t, err.Error(), "redis.port must be between 1 and 65535")
	assert.Contains(t, err.Error(), "mongodb.timeout must be positive")
	assert.Contains(t, err.Error(), "retry.max_attempts must be at least 1")
}
