package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Search.ResultLimit)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.Retry.MaxDelay)
	assert.False(t, cfg.OpenRouter.Enabled)
	assert.Equal(t, 2, cfg.Queue.Workers)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/receitas")
	t.Setenv("APP_CACHE_TTL", "5m")
	t.Setenv("APP_SEARCH_RESULT_LIMIT", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/receitas", cfg.Store.DSN)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 5, cfg.Search.ResultLimit)
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_RETRY_MAX_ATTEMPTS=5\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("APP_RETRY_MAX_ATTEMPTS") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_STORE_DRIVER":       "mongo",
		"APP_CACHE_BACKEND":      "memcached",
		"APP_RETRY_MAX_ATTEMPTS": "0",
		"APP_OPENROUTER_ENABLED": "true",
		"APP_QUEUE_WORKERS":      "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "sk-o...cdef", MaskSecret("sk-or-1234567890abcdef"))
}
