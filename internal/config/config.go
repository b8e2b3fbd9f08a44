// Package config provides configuration management for the LifeCompass backend
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lifecompass/backend/pkg/types"
)

// EnvPrefix prefixes environment overrides of structured keys (LIFECOMPASS_SERVER_PORT)
const EnvPrefix = "LIFECOMPASS"

// InsecureJWTSecret is the placeholder secret shipped in old sample env files.
// Tokens signed with it are forgeable, so it is never accepted.
const InsecureJWTSecret = "your-secret-key"

// legacyEnv maps configuration keys to the flat variable names
// deployments already use for provider credentials.
var legacyEnv = map[string]string{
	"providers.primary":             "PRIMARY_AI_PROVIDER",
	"providers.google.api_key":      "GOOGLE_API_KEY",
	"providers.google.model":        "GOOGLE_MODEL",
	"providers.openai.api_key":      "OPENAI_API_KEY",
	"providers.openai.model":        "OPENAI_MODEL",
	"providers.openai.base_url":     "OPENAI_BASE_URL",
	"providers.anthropic.api_key":   "ANTHROPIC_API_KEY",
	"providers.anthropic.model":     "ANTHROPIC_MODEL",
	"providers.huggingface.api_key": "HUGGINGFACE_API_KEY",
	"providers.huggingface.model":   "HUGGINGFACE_MODEL",
	"providers.openrouter.api_key":  "OPENROUTER_API_KEY",
	"providers.openrouter.model":    "OPENROUTER_MODEL",
	"providers.xai.api_key":         "XAI_API_KEY",
	"providers.xai.model":           "XAI_MODEL",
	"providers.ollama.url":          "OLLAMA_URL",
	"providers.ollama.model":        "OLLAMA_MODEL",
	"providers.stub.enabled":        "MOCK_AI_PROVIDER",
	"auth.jwt_secret":               "JWT_SECRET_KEY",
	"server.port":                   "PORT",
}

// Manager handles configuration loading and management
type Manager struct {
	mu      sync.RWMutex
	config  *types.Config
	viper   *viper.Viper
	envFile string
}

// Option customises a Manager
type Option func(*Manager)

// WithConfigFile reads configuration from an explicit file instead of searching ./configs and .
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.viper.SetConfigFile(path)
	}
}

// WithEnvFile loads a dotenv file other than ./.env
func WithEnvFile(path string) Option {
	return func(m *Manager) {
		m.envFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		viper:   viper.New(),
		envFile: ".env",
	}
	m.viper.SetConfigName("config")
	m.viper.SetConfigType("yaml")
	m.viper.AddConfigPath("./configs")
	m.viper.AddConfigPath(".")
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load loads configuration from defaults, the config file, .env and the environment
func (m *Manager) Load() error {
	// Variables already present in the environment win over the dotenv file.
	if err := godotenv.Load(m.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", m.envFile, err)
	}

	m.setDefaults()

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	for key, env := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := m.viper.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Defaults and environment are enough to run.
	}

	config, err := m.unmarshal()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return nil
}

func (m *Manager) unmarshal() (*types.Config, error) {
	config := &types.Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// CORS origins may arrive as one comma separated variable.
	if len(config.CORS.AllowedOrigins) == 1 && strings.Contains(config.CORS.AllowedOrigins[0], ",") {
		config.CORS.AllowedOrigins = splitList(config.CORS.AllowedOrigins[0])
	}
	return config, nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	m.viper.SetDefault("server.host", "0.0.0.0")
	m.viper.SetDefault("server.port", 8000)
	m.viper.SetDefault("server.mode", "release")
	m.viper.SetDefault("server.read_timeout", "30s")
	m.viper.SetDefault("server.write_timeout", "90s")
	m.viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	m.viper.SetDefault("database.enabled", false)
	m.viper.SetDefault("database.host", "localhost")
	m.viper.SetDefault("database.port", 5432)
	m.viper.SetDefault("database.username", "lifecompass")
	m.viper.SetDefault("database.password", "")
	m.viper.SetDefault("database.database", "lifecompass")
	m.viper.SetDefault("database.ssl_mode", "disable")
	m.viper.SetDefault("database.max_open_conns", 25)
	m.viper.SetDefault("database.max_idle_conns", 5)
	m.viper.SetDefault("database.admin_email", "")
	m.viper.SetDefault("database.admin_password", "")

	// Redis defaults
	m.viper.SetDefault("redis.enabled", false)
	m.viper.SetDefault("redis.host", "localhost")
	m.viper.SetDefault("redis.port", 6379)
	m.viper.SetDefault("redis.password", "")
	m.viper.SetDefault("redis.database", 0)

	// Auth defaults
	m.viper.SetDefault("auth.jwt_secret", "")
	m.viper.SetDefault("auth.jwt_expiration", "168h")

	// Logging defaults
	m.viper.SetDefault("logging.level", "info")
	m.viper.SetDefault("logging.format", "json")
	m.viper.SetDefault("logging.output", "stdout")

	m.viper.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	m.viper.SetDefault("rate_limit.requests", 30)
	m.viper.SetDefault("rate_limit.window", "1m")

	// Provider defaults
	m.viper.SetDefault("providers.primary", "")
	m.viper.SetDefault("providers.google.model", "gemini-1.5-flash")
	m.viper.SetDefault("providers.openai.model", "gpt-3.5-turbo")
	m.viper.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	m.viper.SetDefault("providers.anthropic.model", "claude-3-sonnet-20240229")
	m.viper.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com/v1")
	m.viper.SetDefault("providers.huggingface.model", "microsoft/DialoGPT-medium")
	m.viper.SetDefault("providers.huggingface.base_url", "https://api-inference.huggingface.co/models")
	m.viper.SetDefault("providers.openrouter.model", "google/gemini-flash-1.5")
	m.viper.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	m.viper.SetDefault("providers.xai.model", "grok-3-latest")
	m.viper.SetDefault("providers.xai.base_url", "https://api.x.ai/v1")
	m.viper.SetDefault("providers.ollama.url", "http://localhost:11434")
	m.viper.SetDefault("providers.ollama.model", "llama2")
	m.viper.SetDefault("providers.stub.enabled", false)
	m.viper.SetDefault("providers.stub.reply", "Career Compass is running in offline mode.")
}

// Get returns the current configuration
func (m *Manager) Get() *types.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile returns the path of the file that was read, or "" when the
// configuration came from defaults and the environment only
func (m *Manager) ConfigFile() string {
	return m.viper.ConfigFileUsed()
}

// Watch reloads the configuration whenever the config file changes.
// Provider credentials are read once at startup, so only settings
// consulted per request (logging level, rate limits) take effect live.
func (m *Manager) Watch(callback func(*types.Config)) {
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		config, err := m.unmarshal()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.config = config
		m.mu.Unlock()
		if callback != nil {
			callback(config)
		}
	})
	m.viper.WatchConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.Get()
	if config == nil {
		return fmt.Errorf("configuration not loaded")
	}
	return Validate(config)
}

// Validate checks a configuration for values the server cannot run with
func Validate(config *types.Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Auth.JWTSecret == InsecureJWTSecret {
		return fmt.Errorf("jwt secret must be set to a secure value")
	}

	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		// Accounts only exist with a database, and so do signed tokens.
		if !UsableJWTSecret(config.Auth.JWTSecret) {
			return fmt.Errorf("jwt secret must be set to a secure value")
		}
		if config.Auth.JWTExpiration <= 0 {
			return fmt.Errorf("jwt expiration must be positive")
		}
	}

	if config.RateLimit.Requests < 0 {
		return fmt.Errorf("rate limit requests cannot be negative")
	}
	if config.RateLimit.Requests > 0 && config.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	return nil
}

// UsableJWTSecret reports whether secret may sign tokens
func UsableJWTSecret(secret string) bool {
	return secret != "" && secret != InsecureJWTSecret
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Global configuration manager instance
var defaultManager *Manager

// InitDefault initializes the default configuration manager
func InitDefault(opts ...Option) error {
	defaultManager = NewManager(opts...)
	return defaultManager.Load()
}

// Default returns the default configuration manager
func Default() *Manager {
	return defaultManager
}

// Get returns the current configuration from the default manager
func Get() *types.Config {
	if defaultManager == nil {
		return nil
	}
	return defaultManager.Get()
}
