//go:build e2e

package e2e

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/fgeck/dbprobe/internal/services/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTelegramConfig(t *testing.T) models.TelegramConfig {
	t.Helper()

	botToken := os.Getenv("TEST_TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		t.Skip("TEST_TELEGRAM_BOT_TOKEN not set")
	}

	chatID := os.Getenv("TEST_TELEGRAM_CHAT_ID")
	if chatID == "" {
		t.Skip("TEST_TELEGRAM_CHAT_ID not set")
	}

	return models.TelegramConfig{
		BotToken: botToken,
		ChatID:   chatID,
	}
}

func TestTelegramSendPassedSummary_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	svc := telegram.New(testLogger())

	msg := models.TelegramMessage{
		Host:      "e2e-test-host",
		StartTime: time.Now().Add(-2 * time.Second),
		Summary: models.RunSummary{
			Duration: 1850 * time.Millisecond,
			Results: []*models.ProbeResult{
				{Backend: models.BackendMySQL, Success: true, Version: "8.0.36", Attempts: 1},
				{Backend: models.BackendPostgreSQL, Success: true, Version: "PostgreSQL 16.2", Attempts: 1},
				{Backend: models.BackendMongoDB, Success: true, Version: "7.0.5", Attempts: 1},
				{Backend: models.BackendRedis, Success: true, Version: "7.2.4", Attempts: 1},
			},
		},
	}

	result, err := svc.SendNotification(context.Background(), cfg, msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.NoError(t, result.Error)
}

func TestTelegramSendFailedSummary_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	svc := telegram.New(testLogger())

	msg := models.TelegramMessage{
		Host:      "e2e-test-host",
		StartTime: time.Now().Add(-10 * time.Second),
		Summary: models.RunSummary{
			Duration: 8200 * time.Millisecond,
			Results: []*models.ProbeResult{
				{Backend: models.BackendMySQL, Success: true, Version: "8.0.36", Attempts: 1},
				models.NewFailedResult(models.BackendRedis, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused <e2e>")),
			},
		},
	}

	result, err := svc.SendNotification(context.Background(), cfg, msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.NoError(t, result.Error)
}

func TestTelegramInvalidToken_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)
	cfg.BotToken = "invalid:token"

	svc := telegram.New(testLogger())

	result, err := svc.SendNotification(context.Background(), cfg, models.TelegramMessage{Host: "e2e-test-host"})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.Error(t, result.Error)
}
