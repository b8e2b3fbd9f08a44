package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// ConfigManager holds the settings that may change while the server runs:
// the log level and the AI endpoint rate limit. Everything else is fixed at
// startup.
type ConfigManager struct {
	config     types.Config
	logger     *utils.Logger
	mu         sync.RWMutex
	watchers   []ConfigWatcher
	lastUpdate time.Time
}

// ConfigWatcher defines interface for configuration change observers
type ConfigWatcher interface {
	OnConfigChange(oldConfig, newConfig *types.Config) error
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(config *types.Config, logger *utils.Logger) *ConfigManager {
	return &ConfigManager{
		config:     *config,
		logger:     logger,
		lastUpdate: time.Now(),
	}
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() *types.Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	c := cm.config
	c.CORS.AllowedOrigins = append([]string(nil), cm.config.CORS.AllowedOrigins...)
	return &c
}

// RateLimit returns the current bounds of the AI endpoints
func (cm *ConfigManager) RateLimit() (int64, time.Duration) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.RateLimit.Requests, cm.config.RateLimit.Window
}

// UpdateConfig applies updates keyed by dotted setting name. Either every
// update is applied or none is.
func (cm *ConfigManager) UpdateConfig(updates map[string]interface{}) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	next := cm.config
	for key, value := range updates {
		if err := applyUpdate(&next, key, value); err != nil {
			cm.logger.WithField("key", key).
				WithField("error", err.Error()).
				Error("Failed to apply configuration update")
			return fmt.Errorf("failed to update config key %s: %w", key, err)
		}
	}

	cm.commit(next)
	cm.logger.WithField("updates", len(updates)).Info("Configuration updated successfully")
	return nil
}

// Reload adopts the runtime adjustable settings of a freshly loaded
// configuration, typically after the config file changed on disk
func (cm *ConfigManager) Reload(loaded *types.Config) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	next := cm.config
	next.Logging = loaded.Logging
	next.RateLimit = loaded.RateLimit
	cm.commit(next)
	cm.logger.Info("Configuration reloaded")
}

// commit swaps in next and notifies watchers; cm.mu must be held
func (cm *ConfigManager) commit(next types.Config) {
	old := cm.config
	cm.config = next
	cm.lastUpdate = time.Now()

	for _, watcher := range cm.watchers {
		if err := watcher.OnConfigChange(&old, &next); err != nil {
			cm.logger.WithField("error", err.Error()).
				Warn("Configuration watcher failed to handle change")
		}
	}
}

// applyUpdate applies a single configuration update
func applyUpdate(cfg *types.Config, key string, value interface{}) error {
	switch key {
	case "logging.level":
		level, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid value type for logging.level: expected string")
		}
		if _, err := logrus.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid logging level: %s", level)
		}
		cfg.Logging.Level = level
	case "rate_limit.requests":
		n, ok := value.(float64)
		if !ok || n < 0 {
			return fmt.Errorf("invalid value for rate_limit.requests: expected a non-negative number")
		}
		cfg.RateLimit.Requests = int64(n)
	case "rate_limit.window":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid value type for rate_limit.window: expected string")
		}
		window, err := time.ParseDuration(s)
		if err != nil || window <= 0 {
			return fmt.Errorf("invalid duration for rate_limit.window: %q", s)
		}
		cfg.RateLimit.Window = window
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// GetLastUpdateTime returns the time of the last configuration update
func (cm *ConfigManager) GetLastUpdateTime() time.Time {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.lastUpdate
}

// GetConfigSummary returns the configuration with secrets masked
func (cm *ConfigManager) GetConfigSummary() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	c := cm.config
	p := c.Providers
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host": c.Server.Host,
			"port": c.Server.Port,
			"mode": c.Server.Mode,
		},
		"database": map[string]interface{}{
			"enabled":  c.Database.Enabled,
			"host":     c.Database.Host,
			"port":     c.Database.Port,
			"database": c.Database.Database,
		},
		"redis": map[string]interface{}{
			"enabled": c.Redis.Enabled,
			"host":    c.Redis.Host,
			"port":    c.Redis.Port,
		},
		"auth": map[string]interface{}{
			"jwt_expiration": c.Auth.JWTExpiration.String(),
		},
		"logging": map[string]interface{}{
			"level":  c.Logging.Level,
			"format": c.Logging.Format,
		},
		"rate_limit": map[string]interface{}{
			"requests": c.RateLimit.Requests,
			"window":   c.RateLimit.Window.String(),
		},
		"providers": map[string]interface{}{
			"primary":     p.Primary,
			"google":      maskKey(p.Google.APIKey),
			"openai":      maskKey(p.OpenAI.APIKey),
			"anthropic":   maskKey(p.Anthropic.APIKey),
			"huggingface": maskKey(p.HuggingFace.APIKey),
			"openrouter":  maskKey(p.OpenRouter.APIKey),
			"xai":         maskKey(p.XAI.APIKey),
			"ollama":      p.Ollama.URL,
			"stub":        p.Stub.Enabled,
		},
		"last_update": cm.lastUpdate.Format(time.RFC3339),
		"watchers":    len(cm.watchers),
	}
}

// maskKey hides a provider key; unset keys stay empty
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	return utils.MaskSecret(key)
}

// LogLevelWatcher applies logging level changes to the live logger
type LogLevelWatcher struct {
	logger *utils.Logger
}

// NewLogLevelWatcher creates a watcher for logger
func NewLogLevelWatcher(logger *utils.Logger) *LogLevelWatcher {
	return &LogLevelWatcher{logger: logger}
}

// OnConfigChange sets the new level when it differs
func (w *LogLevelWatcher) OnConfigChange(oldConfig, newConfig *types.Config) error {
	if oldConfig.Logging.Level == newConfig.Logging.Level {
		return nil
	}
	level, err := logrus.ParseLevel(newConfig.Logging.Level)
	if err != nil {
		return err
	}
	w.logger.SetLevel(level)
	w.logger.WithField("level", level.String()).Info("Log level changed")
	return nil
}
