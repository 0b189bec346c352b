package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/servicebook.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, uint8(0), cfg.Reviews.MaxRating)
	assert.Equal(t, "/metrics", cfg.Monitoring.MetricsPath)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Outbox.ClaimTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/sb.db
reviews:
  max_rating: 5
outbox:
  poll_interval: 2s
`), 0o600))

	t.Setenv("SERVICEBOOK_SERVER_PORT", "9191")
	t.Setenv("SERVICEBOOK_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SERVICEBOOK_RATE_LIMIT_BURST", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/tmp/sb.db", cfg.Database.Path)
	assert.Equal(t, uint8(5), cfg.Reviews.MaxRating)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Driver = "postgres"
	assert.Error(t, cfg.Validate())
	cfg.Database.Host, cfg.Database.User, cfg.Database.Name = "db", "app", "servicebook"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Outbox.BatchSize = 0
	assert.Error(t, cfg.Validate())
}
