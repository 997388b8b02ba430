package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/copydash/internal/database"
	"github.com/rs/zerolog"
)

// DatabaseMaintenanceJob checks integrity and WAL size of every database and
// truncates WAL files that grew past walFrameLimit
type DatabaseMaintenanceJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

const walFrameLimit = 1000

// NewDatabaseMaintenanceJob creates a maintenance job over dbs; nil entries are skipped
func NewDatabaseMaintenanceJob(log zerolog.Logger, dbs ...*database.DB) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		log:       log.With().Str("job", "database_maintenance").Logger(),
		databases: dbs,
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance pass. Integrity failures are returned;
// WAL problems are only logged.
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database integrity check failed")
			return fmt.Errorf("database %s failed health check: %w", db.Name(), err)
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, walFrames, checkpointed int
		if err := db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &walFrames, &checkpointed); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to check WAL checkpoint")
			checked++
			continue
		}

		if walFrames > walFrameLimit {
			j.log.Warn().
				Str("database", db.Name()).
				Int("wal_frames", walFrames).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large, truncating")
			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL truncate failed")
			}
		} else {
			j.log.Debug().Str("database", db.Name()).Int("wal_frames", walFrames).Msg("WAL checkpoint status OK")
		}

		checked++
	}

	j.log.Info().Int("checked", checked).Msg("Database maintenance completed")
	return nil
}
