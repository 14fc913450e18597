// internal/storage/factory.go
package storage

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stopbank/crestline/internal/config"
	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/storage/memory"
	pgstorage "github.com/stopbank/crestline/internal/storage/postgres"
	sqlitestorage "github.com/stopbank/crestline/internal/storage/sqlite"
	wsstorage "github.com/stopbank/crestline/internal/storage/websocket"
)

// FactoryDeps carries the cross-cutting dependencies backends need but
// configuration alone cannot provide.
type FactoryDeps struct {
	LogManager     *logging.SlogManager
	DBLog          zerolog.Logger // subsystem logger for the database manager
	ConfigSnapshot func() map[string]any
	SQLiteDumpPath string // session-stamped target for periodic DB dumps
	OutputDir      string // export directory for the memory backend
	APIServerURL   string // fallback for deriving the websocket URL
	APIKey         string // fallback websocket secret
}

// NewBackend creates a storage backend based on configuration. An
// unrecognized type falls back to the memory backend so a typo in the
// config never loses a run.
func NewBackend(cfg config.StorageConfig, deps FactoryDeps) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return pgstorage.New(pgstorage.Dependencies{
			LogManager:     deps.LogManager,
			Log:            deps.DBLog,
			ConfigSnapshot: deps.ConfigSnapshot,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     deps.SQLiteDumpPath,
		}, deps.LogManager, deps.ConfigSnapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "websocket":
		wsURL := cfg.Websocket.URL
		if wsURL == "" {
			wsURL = httpToWS(deps.APIServerURL) + "/api"
		}
		secret := cfg.Websocket.Secret
		if secret == "" {
			secret = deps.APIKey
		}
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
		}), nil

	default:
		return memory.New(memory.Config{
			OutputDir:      deps.OutputDir,
			CompressOutput: cfg.Memory.CompressOutput,
		}), nil
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
