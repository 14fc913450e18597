package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stopbank/crestline/internal/config"
	"github.com/stopbank/crestline/internal/database"
	"github.com/stopbank/crestline/internal/storage"
)

// initStorage builds the configured backend through the factory and
// brings it up. A failure here aborts the run before any feature is
// touched.
func initStorage(storageCfg config.StorageConfig, outputDir string) (storage.Backend, error) {
	SqliteDumpPath = filepath.Join(
		filepath.Dir(config.GetString("db.path")),
		fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")),
	)

	backend, err := storage.NewBackend(storageCfg, storage.FactoryDeps{
		LogManager:     SlogManager,
		DBLog:          subsystemLog,
		ConfigSnapshot: config.Snapshot,
		SQLiteDumpPath: SqliteDumpPath,
		OutputDir:      outputDir,
		APIServerURL:   config.GetString("api.serverUrl"),
		APIKey:         config.GetString("api.apiKey"),
	})
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("backend init: %w", err)
	}

	Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend, nil
}

// runDump copies a sqlite database into a timestamped snapshot using
// VACUUM INTO, which compacts the pages along the way. A directory
// argument snapshots every .db file inside it.
func runDump(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		paths, err := database.GetBackupDBPaths(path)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no .db files in %s", path)
		}
		for _, p := range paths {
			if err := dumpOne(p); err != nil {
				return err
			}
		}
		return nil
	}
	return dumpOne(path)
}

func dumpOne(path string) error {
	db, err := database.GetSqliteDBStandalone(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	snapshot := fmt.Sprintf("%s_%s.db",
		strings.TrimSuffix(path, filepath.Ext(path)),
		SessionStartTime.Format("20060102_150405"),
	)

	start := time.Now()
	if err := database.DumpMemoryDBToDisk(db, snapshot); err != nil {
		return err
	}

	Logger.Info("Database snapshot written",
		"source", path, "snapshot", snapshot,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}
