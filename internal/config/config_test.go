package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("TICKET_STORE", "")
	t.Setenv("TICKET_VALIDATION_MODE", "")
	t.Setenv("SMTP_ALLOW_PLAINTEXT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreBolt, cfg.Store.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 150, cfg.AI.MaxTokens)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, time.Second, cfg.AI.BackoffUnit)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "Support Desk", cfg.SMTP.SenderName)
	assert.False(t, cfg.SMTP.AllowPlaintext)
	assert.True(t, cfg.Tickets.Strict())
	assert.Equal(t, int64(10<<20), cfg.Tickets.MaxAttachmentBytes)
}

func TestLoad_PostgresWhenDSNSet(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/support")
	t.Setenv("TICKET_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TICKET_VALIDATION_MODE", "relaxed")
	t.Setenv("AI_BACKOFF_UNIT", "250ms")
	t.Setenv("AI_TEMPERATURE", "0.2")
	t.Setenv("NOTIFICATION_EMAIL", "ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Tickets.Strict())
	assert.Equal(t, 250*time.Millisecond, cfg.AI.BackoffUnit)
	assert.InDelta(t, 0.2, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, "ops@example.com", cfg.Notification.RecipientEmail)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "redis db", key: "REDIS_DB", val: "x"},
		{name: "store driver", key: "TICKET_STORE", val: "mongo"},
		{name: "validation mode", key: "TICKET_VALIDATION_MODE", val: "lenient"},
		{name: "smtp port", key: "SMTP_PORT", val: "smtp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestAppConfig(t *testing.T) {
	app := AppConfig{Host: "127.0.0.1", Port: "9000", RequestTimeoutSeconds: 5}
	assert.Equal(t, "127.0.0.1:9000", app.Addr())
	assert.Equal(t, 5*time.Second, app.RequestTimeout())
	assert.Equal(t, 4<<20, app.BodyLimit())

	app.RequestTimeoutSeconds = 0
	assert.Zero(t, app.RequestTimeout())
}
