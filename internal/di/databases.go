package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/copydash/internal/config"
	"github.com/aristath/copydash/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens portals.db and sessions.db and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. portals.db - Shareable strategy pages and their view/copy events
	portalsDB, err := openDatabase(cfg.DataDir, "portals", database.ProfileStandard)
	if err != nil {
		return nil, err
	}
	container.PortalsDB = portalsDB

	// 2. sessions.db - Server-side sessions, disposable
	sessionsDB, err := openDatabase(cfg.DataDir, "sessions", database.ProfileCache)
	if err != nil {
		portalsDB.Close()
		return nil, err
	}
	container.SessionsDB = sessionsDB

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}

func openDatabase(dataDir, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database: %w", name, err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
	}
	return db, nil
}
