package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OmChillure/modern-chat/internal/chat"
	"github.com/OmChillure/modern-chat/internal/config"
	"github.com/OmChillure/modern-chat/internal/services"
)

// memoryQuota mirrors the per-origin limit of browser local storage.
const memoryQuota = 5 << 20

type kvStore interface {
	chat.KV
	io.Closer
}

func openStorage(cfg config.StorageConfig) (kvStore, error) {
	switch cfg.Driver {
	case config.DriverBolt, config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating storage directory: %w", err)
		}
	}

	switch cfg.Driver {
	case config.DriverBolt:
		db, err := services.NewBoltDB(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		db, err := services.NewSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverMemory:
		return services.NewMemory(memoryQuota), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
