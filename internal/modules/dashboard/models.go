// Package dashboard reshapes platform data into the views of the trader dashboard.
package dashboard

import (
	"context"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
)

// Upstream is the slice of the copytrade client the dashboard reads from
type Upstream interface {
	ProfileID(ctx context.Context, token string) (string, error)
	Profile(ctx context.Context, token, profileID string) (*copytrade.Profile, error)
	ProfileStrategies(ctx context.Context, token, profileID string) ([]copytrade.Strategy, error)
	ProfileCopiers(ctx context.Context, token, profileID string) ([]copytrade.Copier, error)
	DiscoverStrategies(ctx context.Context, token string) ([]copytrade.DiscoverItem, error)
	Strategy(ctx context.Context, token, strategyID string) (*copytrade.Strategy, error)
	StrategyStats(ctx context.Context, token, strategyID string) (*copytrade.StrategyStats, error)
	CopierStats(ctx context.Context, token, copierID string) (*copytrade.CopierStats, error)
	CopierOpenSignals(ctx context.Context, token, copierID string) ([]copytrade.Signal, error)
	StrategyOpenSignals(ctx context.Context, token, strategyID string) ([]copytrade.Signal, error)
	CopierClosedSignals(ctx context.Context, token, copierID string, start, end time.Time) ([]copytrade.Signal, error)
	StrategyClosedSignals(ctx context.Context, token, strategyID string, start, end time.Time) ([]copytrade.Signal, error)
}

// ProfileInfo is the header block of the dashboard
type ProfileInfo struct {
	Name            string `json:"name"`
	StrategiesCount int    `json:"strategies_count"`
	CopiersCount    int    `json:"copiers_count"`
}

// AccountEntry is one row of the accounts list
type AccountEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Server   string `json:"server"`
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
	Type     string `json:"type"`
}

// TopStrategy is the #1 strategy of the discover ranking with its details merged in
type TopStrategy struct {
	Name                string  `json:"name"`
	Copiers             int     `json:"copiers"`
	ReturnVal           float64 `json:"return_val"`
	StrategyID          *string `json:"strategy_id"`
	InceptionDate       *string `json:"inception_date"`
	PerformanceFee      float64 `json:"performance_fee"`
	TotalTrades         int     `json:"total_trades"`
	MinPerMonth         float64 `json:"min_per_month"`
	MaxPerMonth         float64 `json:"max_per_month"`
	Wins                int     `json:"wins"`
	Losses              int     `json:"losses"`
	WinRate             float64 `json:"win_rate"`
	RealisedPnl         float64 `json:"realised_pnl"`
	UnrealisedPnl       float64 `json:"unrealised_pnl"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	Balance             float64 `json:"balance"`
	Equity              float64 `json:"equity"`
	Credit              float64 `json:"credit"`
	Leverage            float64 `json:"leverage"`
	CopiersYearProfit   float64 `json:"copiers_year_profit"`
	CopiersMonthProfit  float64 `json:"copiers_month_profit"`
	CopiersTotalBalance float64 `json:"copiers_total_balance"`
	CurrencyCode        string  `json:"currency_code"`
	Unauthorized        bool    `json:"unauthorized"`
}

// defaultTopStrategy is shown when nothing better is known
func defaultTopStrategy() TopStrategy {
	return TopStrategy{Name: "Unknown", CurrencyCode: "USD"}
}

// AccountStats are the live figures of one copier account
type AccountStats struct {
	Balance     float64  `json:"balance"`
	Equity      float64  `json:"equity"`
	Leverage    *float64 `json:"leverage"`
	ReturnPct   float64  `json:"return_pct"`
	DrawdownPct float64  `json:"drawdown_pct"`
	Currency    string   `json:"currency"`
}

// CopierWithStats is an account row of the accounts page.
// Stats is nil when the stats call failed.
type CopierWithStats struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Enabled  bool          `json:"enabled"`
	Server   string        `json:"server"`
	Username string        `json:"username"`
	Stats    *AccountStats `json:"stats"`
}

// ClosedTradesStats summarises a list of closed trades
type ClosedTradesStats struct {
	TradesCount      int     `json:"trades_count"`
	WinsCount        int     `json:"wins_count"`
	LossesCount      int     `json:"losses_count"`
	WinRatePct       float64 `json:"win_rate_pct"`
	TotalRealisedPnl float64 `json:"total_realised_pnl"`
	AvgRealisedPnl   float64 `json:"avg_realised_pnl"`
	MostCommonSymbol *string `json:"most_common_symbol"`
	BiggestWin       float64 `json:"biggest_win"`
	BiggestLoss      float64 `json:"biggest_loss"`
}

// ClosedTrades is a closed signal list with its statistics
type ClosedTrades struct {
	Signals []copytrade.Signal `json:"signals"`
	Stats   ClosedTradesStats  `json:"stats"`
}

// SignalOwner says whose signals are asked for
type SignalOwner string

const (
	OwnerCopier   SignalOwner = "copier"
	OwnerStrategy SignalOwner = "strategy"
)

// Overview is the main dashboard payload
type Overview struct {
	ProfileInfo      *ProfileInfo   `json:"profile_info"`
	Accounts         []AccountEntry `json:"accounts"`
	Strategy         TopStrategy    `json:"strategy"`
	FeeDisplay       string         `json:"fee_display"`
	InceptionDisplay string         `json:"inception_display"`
}
