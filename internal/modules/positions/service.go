package positions

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/rs/zerolog"
)

// AccountSource resolves a token owner's profile and lists its copier accounts
type AccountSource interface {
	ProfileID(ctx context.Context, token string) (string, error)
	ProfileCopiers(ctx context.Context, token, profileID string) ([]copytrade.Copier, error)
}

// Service serves summaries for an authenticated token
type Service struct {
	aggregator *Aggregator
	source     AccountSource
	log        zerolog.Logger
}

// NewService creates a positions service
func NewService(aggregator *Aggregator, source AccountSource, log zerolog.Logger) *Service {
	return &Service{
		aggregator: aggregator,
		source:     source,
		log:        log.With().Str("service", "positions").Logger(),
	}
}

// Summary returns the summary of the token owner's profile together with the
// resolved profile id. A known profileID skips the userinfo lookup, and a fresh
// cache entry skips listing the accounts.
func (s *Service) Summary(ctx context.Context, token, profileID string) (Summary, string, error) {
	if profileID == "" {
		id, err := s.source.ProfileID(ctx, token)
		if err != nil {
			return Summary{}, "", fmt.Errorf("failed to resolve profile: %w", err)
		}
		profileID = id
	}

	if summary, ok := s.aggregator.Cached(profileID); ok {
		return summary, profileID, nil
	}

	copiers, err := s.source.ProfileCopiers(ctx, token, profileID)
	if err != nil {
		return Summary{}, profileID, fmt.Errorf("failed to list accounts: %w", err)
	}

	return s.aggregator.ProfileSummary(ctx, profileID, token, AccountsFromCopiers(copiers)), profileID, nil
}

// CacheSize returns the number of cached profiles
func (s *Service) CacheSize() int {
	return s.aggregator.Cache().Len()
}

// RefreshInterval is how often a live view should ask for a new summary
func (s *Service) RefreshInterval() time.Duration {
	return s.aggregator.Cache().TTL()
}
