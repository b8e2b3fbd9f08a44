package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifecompass/backend/pkg/types"
)

func newTestManager(t *testing.T, yaml string) *Manager {
	t.Helper()
	dir := t.TempDir()
	opts := []Option{WithEnvFile(filepath.Join(dir, "missing.env"))}
	if yaml != "" {
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		opts = append(opts, WithConfigFile(path))
	} else {
		opts = append(opts, WithConfigFile(filepath.Join(dir, "absent.yaml")))
	}
	return NewManager(opts...)
}

func TestManagerDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	m := newTestManager(t, "")
	require.NoError(t, m.Load())
	cfg := m.Get()

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Providers.OpenAI.BaseURL)
	assert.Equal(t, "http://localhost:11434", cfg.Providers.Ollama.URL)
	assert.Equal(t, "llama2", cfg.Providers.Ollama.Model)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(30), cfg.RateLimit.Requests)
	assert.Equal(t, 168*time.Hour, cfg.Auth.JWTExpiration)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.NoError(t, m.Validate())
}

func TestManagerLegacyEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("PRIMARY_AI_PROVIDER", "openai")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("MOCK_AI_PROVIDER", "true")
	t.Setenv("LIFECOMPASS_LOGGING_LEVEL", "debug")

	m := newTestManager(t, "")
	require.NoError(t, m.Load())
	cfg := m.Get()

	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "openai", cfg.Providers.Primary)
	assert.Equal(t, "http://ollama:11434", cfg.Providers.Ollama.URL)
	assert.True(t, cfg.Providers.Stub.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestManagerConfigFile(t *testing.T) {
	m := newTestManager(t, `
server:
  port: 9001
database:
  enabled: true
  host: db.internal
auth:
  jwt_secret: a-long-and-random-secret
providers:
  anthropic:
    api_key: ant-key
    model: claude-3-haiku-20240307
`)
	require.NoError(t, m.Load())
	cfg := m.Get()

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "ant-key", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.Providers.Anthropic.Model)
	assert.NoError(t, m.Validate())
}

func TestManagerDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("XAI_API_KEY=xai-from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("XAI_API_KEY") })

	m := NewManager(WithEnvFile(envPath), WithConfigFile(filepath.Join(dir, "absent.yaml")))
	require.NoError(t, m.Load())

	assert.Equal(t, "xai-from-dotenv", m.Get().Providers.XAI.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *types.Config {
		return &types.Config{
			Server:    types.ServerConfig{Port: 8000},
			RateLimit: types.RateLimitConfig{Requests: 10, Window: time.Minute},
		}
	}

	t.Run("ChatOnlyNeedsNoSecret", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	t.Run("PlaceholderSecretRejected", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.JWTSecret = InsecureJWTSecret
		assert.ErrorContains(t, Validate(cfg), "jwt secret")

		cfg.Database = types.DatabaseConfig{Enabled: true, Host: "localhost"}
		cfg.Auth.JWTExpiration = time.Hour
		assert.ErrorContains(t, Validate(cfg), "jwt secret")
	})

	t.Run("PlaceholderSecretFromEnvironment", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", InsecureJWTSecret)
		m := newTestManager(t, "")
		require.NoError(t, m.Load())
		assert.ErrorContains(t, m.Validate(), "jwt secret")
	})

	t.Run("InvalidPort", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 70000
		assert.Error(t, Validate(cfg))
	})

	t.Run("DatabaseRequiresSecret", func(t *testing.T) {
		cfg := valid()
		cfg.Database = types.DatabaseConfig{Enabled: true, Host: "localhost"}
		cfg.Auth.JWTExpiration = time.Hour
		assert.ErrorContains(t, Validate(cfg), "jwt secret")

		cfg.Auth.JWTSecret = "s3cr3t-value"
		assert.NoError(t, Validate(cfg))
	})

	t.Run("RateLimitWindow", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.Window = 0
		assert.Error(t, Validate(cfg))

		cfg.RateLimit.Requests = 0
		assert.NoError(t, Validate(cfg))
	})

	t.Run("NotLoaded", func(t *testing.T) {
		assert.Error(t, NewManager().Validate())
	})
}
