package positions

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxWorkers   = 8
	DefaultFetchTimeout = 2 * time.Second
)

// Config tunes the fan-out of one aggregation
type Config struct {
	MaxWorkers   int           // Concurrency ceiling for per-account fetches
	FetchTimeout time.Duration // Deadline of each per-account fetch
}

// Aggregator computes and caches profile summaries
type Aggregator struct {
	counter      PositionCounter
	cache        *SummaryCache
	maxWorkers   int
	fetchTimeout time.Duration
	log          zerolog.Logger
}

// NewAggregator creates an aggregator that stores results in cache
func NewAggregator(counter PositionCounter, cache *SummaryCache, cfg Config, log zerolog.Logger) *Aggregator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Aggregator{
		counter:      counter,
		cache:        cache,
		maxWorkers:   cfg.MaxWorkers,
		fetchTimeout: cfg.FetchTimeout,
		log:          log.With().Str("component", "positions_aggregator").Logger(),
	}
}

// Cache returns the summary cache the aggregator writes to
func (a *Aggregator) Cache() *SummaryCache {
	return a.cache
}

// Cached returns the profile's fresh summary, marked as a cache hit
func (a *Aggregator) Cached(profileID string) (Summary, bool) {
	summary, ok := a.cache.Get(profileID)
	if !ok {
		return Summary{}, false
	}
	summary.CacheHit = true
	return summary, true
}

// ProfileSummary returns the ranked open-positions summary of a profile.
// A fresh cached summary is returned without any upstream call. Otherwise every
// account is fetched concurrently; failed fetches count as zero and never abort
// the summary. The result, empty or not, replaces the profile's cache entry.
func (a *Aggregator) ProfileSummary(ctx context.Context, profileID, token string, accounts []Account) Summary {
	if profileID == "" {
		return Summary{Accounts: []AccountSummary{}, GeneratedAt: a.cache.Now()}
	}

	if summary, ok := a.Cached(profileID); ok {
		a.log.Debug().Str("profile_id", profileID).Msg("Positions summary served from cache")
		return summary
	}

	start := time.Now()
	results := a.fetchAll(ctx, token, accounts)
	summary := buildSummary(accounts, results, a.cache.Now())

	a.cache.Put(profileID, summary)

	a.log.Info().
		Str("profile_id", profileID).
		Int("accounts_checked", summary.AccountsChecked).
		Int("accounts_with_positions", summary.TotalAccounts).
		Int("open_positions", summary.TotalOpenPositions).
		Int("failed", summary.FailedAccounts).
		Dur("duration_ms", time.Since(start)).
		Msg("Positions summary computed")

	return summary
}

// fetchAll runs one fetch per account with at most maxWorkers in flight.
// Results keep the input order.
func (a *Aggregator) fetchAll(ctx context.Context, token string, accounts []Account) []FetchResult {
	results := make([]FetchResult, len(accounts))
	if len(accounts) == 0 {
		return results
	}

	// Fetches are bounded by their own timeout only; a caller going away
	// does not cut short fetches that are already running.
	base := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(a.maxWorkers)

	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			results[i] = a.fetchOne(base, token, account.ID)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Aggregator) fetchOne(ctx context.Context, token, accountID string) FetchResult {
	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	count, err := a.counter.OpenPositionCount(fetchCtx, token, accountID)
	result := FetchResult{AccountID: accountID, Count: count, Err: err}
	if err != nil {
		a.log.Debug().
			Err(err).
			Str("account_id", accountID).
			Str("kind", string(result.Kind())).
			Msg("Open positions fetch failed, counting as zero")
	}
	return result
}

// buildSummary folds per-account results into a ranked summary stamped with now
func buildSummary(accounts []Account, results []FetchResult, now time.Time) Summary {
	summary := Summary{
		Accounts:        make([]AccountSummary, 0, len(accounts)),
		AccountsChecked: len(accounts),
		GeneratedAt:     now,
	}

	for i, account := range accounts {
		if results[i].Err != nil {
			summary.FailedAccounts++
		}
		count := results[i].OpenCount()
		if count == 0 {
			continue
		}
		summary.Accounts = append(summary.Accounts, AccountSummary{
			AccountID:         account.ID,
			DisplayName:       account.DisplayName,
			ServerLabel:       account.ServerLabel,
			Username:          account.Username,
			OpenPositionCount: count,
		})
		summary.TotalOpenPositions += count
	}

	sort.SliceStable(summary.Accounts, func(i, j int) bool {
		return summary.Accounts[i].OpenPositionCount > summary.Accounts[j].OpenPositionCount
	})
	summary.TotalAccounts = len(summary.Accounts)

	return summary
}
