package di

import (
	"fmt"

	"github.com/aristath/copydash/internal/config"
	"github.com/aristath/copydash/internal/modules/positions"
	"github.com/aristath/copydash/internal/reliability"
	"github.com/aristath/copydash/internal/scheduler"
	"github.com/aristath/copydash/internal/session"
	"github.com/rs/zerolog"
)

// Job schedules (cron with seconds field)
const (
	CachePruneSchedule          = "0 * * * * *"
	SessionCleanupSchedule      = "@hourly"
	DatabaseMaintenanceSchedule = "0 30 2 * * *"
)

// RegisterJobs creates the background jobs and registers them with sched
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		CachePrune:          positions.NewPruneJob(container.SummaryCache, cfg.Positions.CacheIdle, log),
		SessionCleanup:      session.NewCleanupJob(container.Sessions, log),
		DatabaseMaintenance: scheduler.NewDatabaseMaintenanceJob(log, container.PortalsDB, container.SessionsDB),
	}

	schedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{CachePruneSchedule, instances.CachePrune},
		{SessionCleanupSchedule, instances.SessionCleanup},
		{DatabaseMaintenanceSchedule, instances.DatabaseMaintenance},
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		schedules = append(schedules, struct {
			schedule string
			job      scheduler.Job
		}{cfg.Backup.Schedule, instances.Backup})
	}

	for _, s := range schedules {
		if err := sched.AddJob(s.schedule, s.job); err != nil {
			return nil, err
		}
	}

	return instances, nil
}
