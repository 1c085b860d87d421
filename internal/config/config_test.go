package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, "sqlite", cfg.StateDriver)
	assert.Equal(t, "remote", cfg.NoticeChannel)
	assert.Equal(t, 60*time.Second, cfg.NoticeInterval)
	assert.Equal(t, 2*time.Hour, cfg.NoticeSuppression)
	assert.Equal(t, []string{"segunda", "terca", "quarta", "quinta", "sexta", "sabado"}, cfg.NoticeDays)
	assert.Equal(t, 5*time.Second, cfg.NotificationLifetime)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://painel.example.com/api")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("NOTICE_DAYS", "segunda,sexta")
	t.Setenv("NOTICE_CHANNEL", "local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://painel.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.Equal(t, []string{"segunda", "sexta"}, cfg.NoticeDays)
	assert.Equal(t, "local", cfg.NoticeChannel)
}

func TestLoadRejectsPostgresWithoutURL(t *testing.T) {
	t.Setenv("STATE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsUnknownChannel(t *testing.T) {
	t.Setenv("NOTICE_CHANNEL", "sms")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTICE_CHANNEL")
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := Config{Timezone: "Nowhere/Invalid"}
	assert.Equal(t, time.Local, cfg.Location())
}
