// Package positions builds per-profile summaries of which trading accounts
// currently hold open positions.
package positions

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
)

// Account is one trading account of a profile
type Account struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ServerLabel string `json:"server_label"`
	Username    string `json:"username"`
}

// AccountSummary is an account together with its open position count
type AccountSummary struct {
	AccountID         string `json:"account_id"`
	DisplayName       string `json:"display_name"`
	ServerLabel       string `json:"server_label"`
	Username          string `json:"username"`
	OpenPositionCount int    `json:"open_position_count"`
}

// Summary is the ranked open-positions view of one profile.
// Accounts holds only accounts with at least one open position, highest count first.
type Summary struct {
	Accounts           []AccountSummary `json:"accounts"`
	TotalAccounts      int              `json:"total_accounts_with_positions"`
	AccountsChecked    int              `json:"accounts_checked"`
	TotalOpenPositions int              `json:"total_open_positions"`
	FailedAccounts     int              `json:"failed_accounts"`
	CacheHit           bool             `json:"cache_hit"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// clone returns a deep copy so cached summaries are never shared with callers
func (s Summary) clone() Summary {
	out := s
	out.Accounts = make([]AccountSummary, len(s.Accounts))
	copy(out.Accounts, s.Accounts)
	return out
}

// FetchErrorKind classifies a failed per-account fetch
type FetchErrorKind string

const (
	FetchTimeout   FetchErrorKind = "timeout"
	FetchHTTP      FetchErrorKind = "http_error"
	FetchMalformed FetchErrorKind = "malformed_response"
	FetchTransport FetchErrorKind = "transport"
)

// FetchResult is the outcome of one account's open positions fetch
type FetchResult struct {
	AccountID string
	Count     int
	Err       error
}

// OpenCount folds the result to a count: a failed fetch counts as zero open positions
func (r FetchResult) OpenCount() int {
	if r.Err != nil || r.Count < 0 {
		return 0
	}
	return r.Count
}

// Kind classifies Err; it is empty for successful fetches
func (r FetchResult) Kind() FetchErrorKind {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, context.DeadlineExceeded):
		return FetchTimeout
	case errors.Is(r.Err, copytrade.ErrMalformedResponse):
		return FetchMalformed
	case copytrade.StatusOf(r.Err) != 0:
		return FetchHTTP
	default:
		return FetchTransport
	}
}

// PositionCounter counts the open positions of one account
type PositionCounter interface {
	OpenPositionCount(ctx context.Context, token, accountID string) (int, error)
}

// SignalLister is the slice of the copytrade client used by CopierCounter
type SignalLister interface {
	CopierOpenSignals(ctx context.Context, token, copierID string) ([]copytrade.Signal, error)
}

// CopierCounter counts open positions through the copier open-signals endpoint
type CopierCounter struct {
	client SignalLister
}

// NewCopierCounter adapts a signal lister to PositionCounter
func NewCopierCounter(client SignalLister) *CopierCounter {
	return &CopierCounter{client: client}
}

// OpenPositionCount returns the length of the copier's open signal list
func (c *CopierCounter) OpenPositionCount(ctx context.Context, token, accountID string) (int, error) {
	signals, err := c.client.CopierOpenSignals(ctx, token, accountID)
	if err != nil {
		return 0, err
	}
	return len(signals), nil
}

// AccountsFromCopiers maps upstream copiers to aggregator accounts
func AccountsFromCopiers(copiers []copytrade.Copier) []Account {
	accounts := make([]Account, 0, len(copiers))
	for _, c := range copiers {
		accounts = append(accounts, Account{
			ID:          c.ID.String(),
			DisplayName: c.Name,
			ServerLabel: c.ServerCode(),
			Username:    c.Username(),
		})
	}
	return accounts
}
