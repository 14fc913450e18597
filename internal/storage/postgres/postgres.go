// Package pgstorage implements the storage.Backend interface on
// PostgreSQL. It wraps the GORM backend via composition: the only
// Postgres-specific concern is the connection, which the database
// manager owns. Queueing, migration and the writer goroutine live in
// gormstorage.
package pgstorage

import (
	"github.com/rs/zerolog"

	"github.com/stopbank/crestline/internal/database"
	"github.com/stopbank/crestline/internal/logging"
	gormstorage "github.com/stopbank/crestline/internal/storage/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	LogManager     *logging.SlogManager
	Log            zerolog.Logger
	ConfigSnapshot func() map[string]any
}

// Backend wraps the GORM backend with a managed Postgres connection.
// When Postgres is unreachable the manager falls back to the shared
// in-memory SQLite database, so a dead server degrades the run instead
// of aborting it.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend. The connection is made
// lazily in Init so construction never blocks.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects through the database manager (Postgres first, SQLite
// fallback) and initializes the embedded GORM backend (migration +
// writer goroutine).
func (b *Backend) Init() error {
	b.manager = database.NewManager(b.deps.Log)
	if err := b.manager.Connect(); err != nil {
		return err
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:              b.manager.DB,
		LogManager:      b.deps.LogManager,
		ConfigSnapshot:  b.deps.ConfigSnapshot,
		IsDatabaseValid: func() bool { return b.manager.IsValid },
	})
	return b.Backend.Init()
}

// Close stops the embedded GORM backend, dumps the fallback database
// to disk if one was used, and releases the connection. Safe to call
// when Init failed.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.manager.ShouldSaveLocal {
		if err := b.manager.DumpMemoryToDisk(); err != nil {
			b.deps.Log.Error().Err(err).Msg("Failed to dump fallback DB to disk")
		}
	}
	return b.manager.Close()
}
