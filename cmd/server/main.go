// Package main provides the entry point for the LifeCompass backend server
package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/internal/config"
	"github.com/lifecompass/backend/internal/gateway"
	"github.com/lifecompass/backend/internal/providers"
	"github.com/lifecompass/backend/internal/router"
	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

const startupTimeout = 15 * time.Second

func main() {
	// Initialize configuration
	if err := config.InitDefault(); err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	cfg := config.Get()
	if cfg == nil {
		log.Fatal("Configuration is nil")
	}

	configManager := config.Default()
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger := utils.NewLogger(&cfg.Logging)
	gin.SetMode(cfg.Server.Mode)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	deps, err := connect(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize dependencies")
	}

	gw := gateway.New(cfg, deps, logger)

	if path := configManager.ConfigFile(); path != "" {
		logger.WithField("file", path).Info("Watching configuration file")
		configManager.Watch(func(c *types.Config) {
			gw.ConfigManager().Reload(c)
		})
	}

	if err := gw.Run(); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Server exited")
}

// connect opens the optional stores and builds the provider router
func connect(ctx context.Context, cfg *types.Config, logger *utils.Logger) (gateway.Dependencies, error) {
	var deps gateway.Dependencies

	if cfg.Database.Enabled {
		db, err := storage.NewDatabase(&cfg.Database, logger)
		if err != nil {
			return deps, err
		}
		if err := db.AutoMigrate(); err != nil {
			return deps, err
		}
		if err := db.SeedAdmin(ctx); err != nil {
			return deps, err
		}
		deps.DB = db
	} else {
		logger.Info("Database disabled, running AI endpoints only")
	}

	if cfg.Redis.Enabled {
		redis, err := storage.NewRedisClient(ctx, &cfg.Redis, logger)
		if err != nil {
			// the AI endpoints run unthrottled without Redis
			logger.WithError(err).Warn("Redis unavailable, rate limiting disabled")
		} else {
			deps.Redis = redis
		}
	}

	registry := providers.NewRegistryFromConfig(ctx, &cfg.Providers, logger)
	deps.Router = router.New(registry, logger)
	return deps, nil
}
