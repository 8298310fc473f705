package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromPathDefaults(t *testing.T) {
	cfg, err := LoadFromPath("")
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "bg", cfg.Locale.Language)
	assert.Equal(t, "@hourly", cfg.Jobs.OverdueSchedule)
}

func TestLoadFromPathYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoicer.yaml")
	yamlDoc := `
server:
  port: 8088
logging:
  level: debug
  format: text
pdf:
  font_dir: /usr/share/fonts/dejavu
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DATABASE_URL", "postgres://invoicer@localhost/invoicer?sslmode=disable")
	t.Setenv("CLIENT_URL", "https://app.example.bg")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "/usr/share/fonts/dejavu", cfg.PDF.FontDir)
	assert.Equal(t, []string{"https://app.example.bg"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.UseMemoryStore())
}

func TestValidateRejectsUnknownLanguage(t *testing.T) {
	cfg := Default()
	cfg.Locale.Language = "de"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromPathMissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
