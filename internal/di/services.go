package di

import (
	"fmt"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/aristath/copydash/internal/config"
	"github.com/aristath/copydash/internal/database"
	"github.com/aristath/copydash/internal/modules/copying"
	"github.com/aristath/copydash/internal/modules/dashboard"
	"github.com/aristath/copydash/internal/modules/portals"
	"github.com/aristath/copydash/internal/modules/positions"
	"github.com/aristath/copydash/internal/reliability"
	"github.com/aristath/copydash/internal/session"
	"github.com/rs/zerolog"
)

// InitializeRepositories builds the database-backed repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container.PortalsDB == nil || container.SessionsDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	container.PortalRepo = portals.NewRepository(container.PortalsDB.Conn(), log)
	container.SessionStore = session.NewStore(container.SessionsDB.Conn(), log)
	return nil
}

// InitializeServices builds the upstream client and every service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.CopyTradeClient = copytrade.NewClient(
		copytrade.WithAPIURL(cfg.CopyTrade.APIURL),
		copytrade.WithIdentityURL(cfg.CopyTrade.IdentityURL),
		copytrade.WithClientID(cfg.CopyTrade.ClientID),
		copytrade.WithTenant(cfg.CopyTrade.TenantID),
		copytrade.WithWhiteLabel(cfg.CopyTrade.WhiteLabel),
		copytrade.WithTimeout(cfg.CopyTrade.Timeout),
		copytrade.WithRateLimit(cfg.CopyTrade.RateLimit),
		copytrade.WithLogger(log),
	)

	container.Sessions = session.NewManager(
		container.SessionStore,
		cfg.SecretKey,
		cfg.SessionLifetime,
		cfg.SecureCookies(),
		log,
	)

	// Positions: one process-wide cache shared by the summary endpoint and the stream
	container.SummaryCache = positions.NewSummaryCache(cfg.Positions.CacheTTL)
	container.Aggregator = positions.NewAggregator(
		positions.NewCopierCounter(container.CopyTradeClient),
		container.SummaryCache,
		positions.Config{
			MaxWorkers:   cfg.Positions.MaxWorkers,
			FetchTimeout: cfg.Positions.FetchTimeout,
		},
		log,
	)
	container.PositionsService = positions.NewService(container.Aggregator, container.CopyTradeClient, log)

	container.DashboardService = dashboard.NewService(container.CopyTradeClient, log)
	container.CopyingService = copying.NewService(container.CopyTradeClient, log)
	container.PortalService = portals.NewService(container.PortalRepo, log)

	if cfg.Backup.Enabled() {
		r2Client, err := reliability.NewR2Client(
			cfg.Backup.R2AccountID,
			cfg.Backup.R2AccessKeyID,
			cfg.Backup.R2SecretAccessKey,
			cfg.Backup.R2Bucket,
			log,
		)
		if err != nil {
			return fmt.Errorf("failed to create r2 client: %w", err)
		}
		container.R2Client = r2Client
		container.BackupService = reliability.NewBackupService(
			r2Client,
			[]*database.DB{container.PortalsDB, container.SessionsDB},
			cfg.DataDir,
			log,
		)
	} else {
		log.Info().Msg("R2 credentials not set, backups disabled")
	}

	return nil
}
