package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/pkg/config"
)

const sample = `
app:
  name: mailbite
  server:
    auth:
      enabled: true
mail:
  default_timeout_seconds: 30
  helo: relay.local
modules:
  dispatch:
    consumer:
      concurrency: 4
      timeout_ms: 1500
cors:
  origins: "https://a.test, ,https://b.test"
  methods:
    - GET
    - POST
masking: "smtp_pass:***,password:xxx,broken"
`

func TestNewViperFromBytes(t *testing.T) {
	t.Run("empty type", func(t *testing.T) {
		_, err := config.NewViperFromBytes(" ", []byte(sample))
		assert.ErrorIs(t, err, config.ErrConfigType)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := config.NewViperFromBytes("yaml", []byte("a: [b"))
		assert.Error(t, err)
	})

	t.Run("typed getters", func(t *testing.T) {
		// Arrange
		cfg, err := config.NewViperFromBytes("yaml", []byte(sample))
		require.NoError(t, err)

		// Act & Assert
		assert.Equal(t, "mailbite", cfg.GetString("app.name"))
		assert.True(t, cfg.GetBool("app.server.auth.enabled"))
		assert.Equal(t, 4, cfg.GetInt("modules.dispatch.consumer.concurrency"))
		assert.Equal(t, 30*time.Second, cfg.GetSecond("mail.default_timeout_seconds"))
		assert.Equal(t, 1500*time.Millisecond, cfg.GetMillisecond("modules.dispatch.consumer.timeout_ms"))
		assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.GetArray("cors.origins"))
		assert.Equal(t, []string{"GET", "POST"}, cfg.GetArray("cors.methods"))
		assert.Equal(t, map[string]string{"smtp_pass": "***", "password": "xxx"}, cfg.GetMap("masking"))
		assert.True(t, cfg.IsSet("mail.helo"))
		assert.False(t, cfg.IsSet("mail.missing"))
		assert.NoError(t, cfg.Close())
	})

	t.Run("environment overrides file", func(t *testing.T) {
		// Arrange
		t.Setenv("MAILBITE_MAIL_HELO", "override.local")
		cfg, err := config.NewViperFromBytes("yaml", []byte(sample))
		require.NoError(t, err)

		// Act & Assert
		assert.Equal(t, "override.local", cfg.GetString("mail.helo"))
	})
}

func TestNewViper(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("reads file", func(t *testing.T) {
		// Arrange
		file := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(file, []byte(sample), 0o600))

		// Act
		cfg, err := config.NewViper(file)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "relay.local", cfg.GetString("mail.helo"))
	})
}
