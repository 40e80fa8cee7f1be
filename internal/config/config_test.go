package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "KZT", cfg.Currency)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
}

func TestLoadLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
currency: RUB
log_level: debug
store:
  driver: redis
  redis_addr: redis:6379
  ttl: 2h
`), 0o600))

	t.Setenv("INSIGHTS_CURRENCY", "USD")
	t.Setenv("INSIGHTS_STORE__REDIS_DB", "3")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "7000"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port, "flag beats file")
	assert.Equal(t, "USD", cfg.Currency, "env beats file")
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("INSIGHTS_STORE__DRIVER", "postgres")
	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", Config{LogLevel: "Debug"}.Level().String())
	assert.Equal(t, "INFO", Config{LogLevel: "chatty"}.Level().String())
}

func TestLoadImportHosts(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.ImportHosts, "imports are off by default")

	t.Setenv("INSIGHTS_IMPORT_HOSTS", "ads.example.com,.cdn.example.net")
	t.Setenv("INSIGHTS_CORS_ORIGINS", "https://a.example,https://b.example")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example.com", ".cdn.example.net"}, cfg.ImportHosts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--import-hosts", "reports.example.org"}))
	cfg, err = Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.example.org"}, cfg.ImportHosts)
}
