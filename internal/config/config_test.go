package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/taskhub
auth:
  jwt_secret: secret
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "noreply@example.com", cfg.Email.FromEmail)
	assert.Equal(t, FailureLog, cfg.Notifications.OnCreateFailure)
	assert.Equal(t, 60*time.Second, cfg.Scheduler.SweepInterval)
	assert.Equal(t, "0 8 * * *", cfg.Scheduler.DailySummaryCron)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 20, cfg.API.PageSize)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 15*time.Minute, cfg.Telegram.LinkTTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
auth:
  jwt_secret: from-file
`)
	t.Setenv("TASKHUB_JWT_SECRET", "from-env")
	t.Setenv("TASKHUB_PORT", "7000")
	t.Setenv("TASKHUB_DATABASE_URL", "postgres://env/db")
	t.Setenv("TASKHUB_TELEGRAM_WEBHOOK_SECRET", "hook")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
	assert.Equal(t, "hook", cfg.Telegram.WebhookSecret)
}

func TestLoad_BadPort(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: s\n")
	t.Setenv("TASKHUB_PORT", "eighty")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: s
notifications:
  on_create_failure: retry
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "on_create_failure")
}

func TestLoad_SchedulerCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: s
scheduler:
  enabled: false
  timezone: Europe/Berlin
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}
