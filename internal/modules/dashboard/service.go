package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const inceptionLayout = "January 02, 2006"

// DefaultClosedRange is how far back closed trades are listed when no range is given
const DefaultClosedRange = 30 * 24 * time.Hour

// Service builds dashboard views from upstream data
type Service struct {
	upstream Upstream
	log      zerolog.Logger
}

// NewService creates a dashboard service
func NewService(upstream Upstream, log zerolog.Logger) *Service {
	return &Service{
		upstream: upstream,
		log:      log.With().Str("service", "dashboard").Logger(),
	}
}

// ProfileInfo returns the profile name and account counts.
// Failed count fetches count as zero; a failed profile lookup is an error.
func (s *Service) ProfileInfo(ctx context.Context, token string) (*ProfileInfo, error) {
	profileID, err := s.upstream.ProfileID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	profile, err := s.upstream.Profile(ctx, token, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	info := &ProfileInfo{Name: profile.Name}
	if info.Name == "" {
		info.Name = "User"
	}

	if strategies, err := s.upstream.ProfileStrategies(ctx, token, profileID); err == nil {
		info.StrategiesCount = len(strategies)
	} else {
		s.log.Debug().Err(err).Msg("Strategies count unavailable")
	}
	if copiers, err := s.upstream.ProfileCopiers(ctx, token, profileID); err == nil {
		info.CopiersCount = len(copiers)
	} else {
		s.log.Debug().Err(err).Msg("Copiers count unavailable")
	}

	return info, nil
}

// Accounts lists the profile's copier accounts; any failure yields an empty list
func (s *Service) Accounts(ctx context.Context, token string) []AccountEntry {
	entries := []AccountEntry{}

	profileID, err := s.upstream.ProfileID(ctx, token)
	if err != nil {
		s.log.Debug().Err(err).Msg("Accounts unavailable: no profile")
		return entries
	}
	copiers, err := s.upstream.ProfileCopiers(ctx, token, profileID)
	if err != nil {
		s.log.Debug().Err(err).Msg("Accounts unavailable")
		return entries
	}

	for _, c := range copiers {
		entries = append(entries, AccountEntry{
			ID:       c.ID.String(),
			Name:     c.Name,
			Server:   c.ServerCode(),
			Username: c.Username(),
			Enabled:  c.Enabled(),
			Type:     "copier",
		})
	}
	return entries
}

// TopStrategy returns the first discover entry with its fee and stats merged in.
// An upstream 401 sets Unauthorized; a transport or decode failure names the
// result "Connection Error".
func (s *Service) TopStrategy(ctx context.Context, token string) TopStrategy {
	result := defaultTopStrategy()

	items, err := s.upstream.DiscoverStrategies(ctx, token)
	switch {
	case copytrade.IsUnauthorized(err):
		result.Unauthorized = true
		return result
	case copytrade.StatusOf(err) != 0:
		s.log.Warn().Err(err).Msg("Discover request rejected")
		return result
	case err != nil:
		s.log.Warn().Err(err).Msg("Discover request failed")
		result.Name = "Connection Error"
		return result
	}

	if len(items) == 0 {
		return result
	}

	top := items[0]
	result.ReturnVal = top.Value * 100
	if top.Strategy.Name != "" {
		result.Name = top.Strategy.Name
	}
	result.Copiers = top.Strategy.NumCopiers

	strategyID := top.Strategy.ID.String()
	if strategyID == "" {
		return result
	}
	result.StrategyID = &strategyID

	if err := s.mergeStrategyDetail(ctx, token, strategyID, &result); err != nil {
		s.log.Warn().Err(err).Str("strategy_id", strategyID).Msg("Strategy detail unavailable")
	}
	return result
}

// mergeStrategyDetail copies fee and stats into result. A rejected request
// skips its part; any other failure leaves result untouched.
func (s *Service) mergeStrategyDetail(ctx context.Context, token, strategyID string, result *TopStrategy) error {
	detail := *result

	strategy, err := s.upstream.Strategy(ctx, token, strategyID)
	switch {
	case err == nil:
		detail.PerformanceFee = 0
		if strategy.Fee != nil {
			detail.PerformanceFee = *strategy.Fee * 100
		}
	case copytrade.StatusOf(err) == 0:
		return err
	}

	stats, err := s.upstream.StrategyStats(ctx, token, strategyID)
	switch {
	case err == nil:
		if err := applyStrategyStats(&detail, stats); err != nil {
			return err
		}
	case copytrade.StatusOf(err) == 0:
		return err
	}

	*result = detail
	return nil
}

func applyStrategyStats(detail *TopStrategy, stats *copytrade.StrategyStats) error {
	if stats.Inception != "" {
		inception, err := parseInception(stats.Inception)
		if err != nil {
			return err
		}
		formatted := inception.Format(inceptionLayout)
		detail.InceptionDate = &formatted
	}

	trades := stats.Trades.Inception
	detail.TotalTrades = trades.Total
	detail.MinPerMonth = trades.MinPerMonth
	detail.MaxPerMonth = trades.MaxPerMonth
	detail.Wins = trades.Wins
	detail.Losses = trades.Losses
	detail.WinRate = 0
	if trades.Total > 0 {
		detail.WinRate = float64(trades.Wins) / float64(trades.Total) * 100
	}

	profit := stats.Profitability.Inception
	detail.RealisedPnl = profit.RealisedPnl
	detail.UnrealisedPnl = profit.UnrealisedPnl
	detail.MaxDrawdown = math.Abs(profit.MaxDrawdown) * 100

	detail.Balance = stats.Status.Balance
	detail.Credit = stats.Status.Credit
	detail.Leverage = 0
	if stats.Status.Leverage != nil {
		detail.Leverage = *stats.Status.Leverage
	}
	detail.Equity = detail.Balance + detail.UnrealisedPnl

	detail.CopiersYearProfit = stats.CopiersProfit.Year
	detail.CopiersMonthProfit = stats.CopiersProfit.Month
	detail.CopiersTotalBalance = stats.CopiersBalance.Balance

	detail.CurrencyCode = stats.CurrencyCode
	if detail.CurrencyCode == "" {
		detail.CurrencyCode = "USD"
	}
	return nil
}

func parseInception(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised inception date %q", value)
}

// Overview gathers the main dashboard blocks concurrently
func (s *Service) Overview(ctx context.Context, token string) Overview {
	var (
		overview Overview
		g        errgroup.Group
	)

	g.Go(func() error {
		info, err := s.ProfileInfo(ctx, token)
		if err != nil {
			s.log.Warn().Err(err).Msg("Profile info unavailable")
		}
		overview.ProfileInfo = info
		return nil
	})
	g.Go(func() error {
		overview.Accounts = s.Accounts(ctx, token)
		return nil
	})
	g.Go(func() error {
		overview.Strategy = s.TopStrategy(ctx, token)
		return nil
	})
	_ = g.Wait()

	overview.FeeDisplay = FeeDisplay(overview.Strategy.PerformanceFee)
	overview.InceptionDisplay = InceptionDisplay(overview.Strategy.InceptionDate)
	return overview
}

// CopiersWithStats lists the copier accounts with their live figures.
// A failed stats call leaves that account's Stats nil.
func (s *Service) CopiersWithStats(ctx context.Context, token string) (string, []CopierWithStats, error) {
	profileID, err := s.upstream.ProfileID(ctx, token)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	profileName := "User"
	if profile, err := s.upstream.Profile(ctx, token, profileID); err == nil && profile.Name != "" {
		profileName = profile.Name
	}

	copiers, err := s.upstream.ProfileCopiers(ctx, token, profileID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list copiers: %w", err)
	}

	out := make([]CopierWithStats, len(copiers))
	var g errgroup.Group
	g.SetLimit(4)
	for i, c := range copiers {
		i, c := i, c
		out[i] = CopierWithStats{
			ID:       c.ID.String(),
			Name:     c.Name,
			Enabled:  c.Enabled(),
			Server:   c.ServerCode(),
			Username: c.Username(),
		}
		g.Go(func() error {
			stats, err := s.upstream.CopierStats(ctx, token, c.ID.String())
			if err != nil {
				s.log.Debug().Err(err).Str("copier_id", c.ID.String()).Msg("Copier stats unavailable")
				return nil
			}
			out[i].Stats = accountStats(stats)
			return nil
		})
	}
	_ = g.Wait()

	return profileName, out, nil
}

func accountStats(stats *copytrade.CopierStats) *AccountStats {
	profit := stats.Profitability.Inception
	latest := profit.RealisedReturn
	if n := len(profit.History); n > 0 {
		latest = profit.History[n-1].AccountReturn
	}

	currency := stats.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	return &AccountStats{
		Balance:     stats.Status.Balance,
		Equity:      stats.Status.Balance + profit.UnrealisedPnl,
		Leverage:    stats.Status.Leverage,
		ReturnPct:   latest * 100,
		DrawdownPct: profit.MaxDrawdown * 100,
		Currency:    currency,
	}
}

// ErrUnknownOwner is returned for a signal owner other than copier or strategy
var ErrUnknownOwner = errors.New("unknown signal owner")

// OpenSignals lists the open positions of a copier or strategy
func (s *Service) OpenSignals(ctx context.Context, token string, owner SignalOwner, id string) ([]copytrade.Signal, error) {
	switch owner {
	case OwnerCopier:
		return s.upstream.CopierOpenSignals(ctx, token, id)
	case OwnerStrategy:
		return s.upstream.StrategyOpenSignals(ctx, token, id)
	}
	return nil, ErrUnknownOwner
}

// ClosedTrades lists the trades closed between start and end with their statistics
func (s *Service) ClosedTrades(ctx context.Context, token string, owner SignalOwner, id string, start, end time.Time) (*ClosedTrades, error) {
	var (
		signals []copytrade.Signal
		err     error
	)
	switch owner {
	case OwnerCopier:
		signals, err = s.upstream.CopierClosedSignals(ctx, token, id, start, end)
	case OwnerStrategy:
		signals, err = s.upstream.StrategyClosedSignals(ctx, token, id, start, end)
	default:
		return nil, ErrUnknownOwner
	}
	if err != nil {
		return nil, err
	}

	return &ClosedTrades{
		Signals: signals,
		Stats:   ComputeClosedTradesStats(signals),
	}, nil
}
