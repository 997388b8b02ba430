package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob deletes expired sessions
type CleanupJob struct {
	manager *Manager
	log     zerolog.Logger
}

// NewCleanupJob creates a session cleanup job
func NewCleanupJob(manager *Manager, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		manager: manager,
		log:     log.With().Str("job", "session_cleanup").Logger(),
	}
}

// Run executes the cleanup
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.manager.CleanupExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Session cleanup failed")
		return err
	}
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Removed expired sessions")
	}
	return nil
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "session_cleanup"
}
