// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/database"
	"github.com/aristath/copydash/internal/modules/copying"
	"github.com/aristath/copydash/internal/modules/dashboard"
	"github.com/aristath/copydash/internal/modules/portals"
	"github.com/aristath/copydash/internal/modules/positions"
	"github.com/aristath/copydash/internal/reliability"
	"github.com/aristath/copydash/internal/scheduler"
	"github.com/aristath/copydash/internal/session"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server for access to services.
type Container struct {
	// Databases
	PortalsDB  *database.DB // portals.db: portals and their events
	SessionsDB *database.DB // sessions.db: server-side sessions

	// Clients
	CopyTradeClient *copytrade.Client
	R2Client        *reliability.R2Client // nil when backups are not configured

	// Repositories
	PortalRepo   *portals.Repository
	SessionStore *session.Store

	// Services
	Sessions         *session.Manager
	SummaryCache     *positions.SummaryCache
	Aggregator       *positions.Aggregator
	PositionsService *positions.Service
	DashboardService *dashboard.Service
	CopyingService   *copying.Service
	PortalService    *portals.Service
	BackupService    *reliability.BackupService // nil when backups are not configured
}

// JobInstances holds the scheduled jobs for manual triggering
type JobInstances struct {
	CachePrune          scheduler.Job
	SessionCleanup      scheduler.Job
	DatabaseMaintenance scheduler.Job
	Backup              scheduler.Job // nil when backups are not configured
}

// Close closes every database the container opened
func (c *Container) Close() error {
	var firstErr error
	for _, db := range []*database.DB{c.PortalsDB, c.SessionsDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
