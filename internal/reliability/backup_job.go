package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob uploads a fresh backup and then rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "r2_backup").Logger(),
	}
}

// Run executes one backup cycle. A failed rotation does not fail the job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	if _, err := j.service.CreateAndUpload(ctx); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "r2_backup"
}
