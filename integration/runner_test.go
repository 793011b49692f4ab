//go:build integration

package integration

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/fgeck/dbprobe/internal/services/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll_Integration(t *testing.T) {
	cfg := models.Config{
		MySQL:      getMySQLConfig(t),
		PostgreSQL: getPostgresConfig(t),
		MongoDB:    getMongoConfig(t),
		Redis:      getRedisConfig(t),
		Retry:      models.RetrySettings{MaxAttempts: 2, Delay: 500 * time.Millisecond},
	}

	var out bytes.Buffer
	summary, err := runner.New(testLogger(), &out, true).RunAll(context.Background(), cfg)

	require.NoError(t, err, out.String())
	assert.True(t, summary.AllPassed())
	assert.Contains(t, out.String(), "Success Rate: 4/4 (100%)")
}

func TestRunSpecific_Integration(t *testing.T) {
	cfg := models.Config{
		PostgreSQL: getPostgresConfig(t),
		Retry:      models.RetrySettings{MaxAttempts: 1},
	}

	var out bytes.Buffer
	ok, err := runner.New(testLogger(), &out, true).RunSpecific(context.Background(), cfg, "postgres")

	require.NoError(t, err)
	assert.True(t, ok)
}
