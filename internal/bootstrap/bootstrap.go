// Package bootstrap provides application initialization for stashy CLI
// commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/stashyhq/stashy/internal/config"
	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/store"
)

// Result contains the result of bootstrapping the application.
type Result struct {
	Config         *config.Config
	ConfigFilePath string

	// Store is nil when no DSN is configured; the server then runs
	// without the persisted tweet library.
	Store store.Store
}

// Bootstrap loads environment, configuration and the tweet store.
// It should be called before any command that needs access to them.
func Bootstrap(ctx context.Context, configPath string) (*Result, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	configFilePath := configPath
	if configFilePath == "" {
		configFilePath = filepath.Join(wd, "config.yaml")
	}

	cfg, err := config.Load(configFilePath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	tweetStore, err := store.New(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tweet store: %w", err)
	}
	if tweetStore != nil {
		dsn, _ := config.ParseDSN(cfg.Store.DSN)
		if dsn != nil {
			log.Infof("%s-backed tweet store enabled", dsn.Backend)
		}
	}

	return &Result{
		Config:         cfg,
		ConfigFilePath: configFilePath,
		Store:          tweetStore,
	}, nil
}
