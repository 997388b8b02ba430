package copytrade

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Profile fetches a profile by id
func (c *Client) Profile(ctx context.Context, token, profileID string) (*Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/profiles/"+url.PathEscape(profileID), nil), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileStrategies lists the strategies owned by a profile
func (c *Client) ProfileStrategies(ctx context.Context, token, profileID string) ([]Strategy, error) {
	var strategies []Strategy
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/profiles/"+url.PathEscape(profileID)+"/strategies", nil), &strategies); err != nil {
		return nil, err
	}
	return strategies, nil
}

// ProfileCopiers lists the copier accounts owned by a profile
func (c *Client) ProfileCopiers(ctx context.Context, token, profileID string) ([]Copier, error) {
	var copiers []Copier
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/profiles/"+url.PathEscape(profileID)+"/copiers", nil), &copiers); err != nil {
		return nil, err
	}
	return copiers, nil
}

// DiscoverStrategies returns the ranked discover list for the configured white label
func (c *Client) DiscoverStrategies(ctx context.Context, token string) ([]DiscoverItem, error) {
	var items []DiscoverItem
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/discover/Strategies", c.wlQuery()), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Strategy fetches strategy details (fee)
func (c *Client) Strategy(ctx context.Context, token, strategyID string) (*Strategy, error) {
	var s Strategy
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/strategies/"+url.PathEscape(strategyID), nil), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StrategyStats fetches strategy statistics for the configured white label
func (c *Client) StrategyStats(ctx context.Context, token, strategyID string) (*StrategyStats, error) {
	var stats StrategyStats
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/strategies/"+url.PathEscape(strategyID)+"/stats", c.wlQuery()), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CopierStats fetches copier account statistics
func (c *Client) CopierStats(ctx context.Context, token, copierID string) (*CopierStats, error) {
	var stats CopierStats
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/copiers/"+url.PathEscape(copierID)+"/stats", nil), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CopierStrategies lists the strategies a copier follows
func (c *Client) CopierStrategies(ctx context.Context, token, copierID string) ([]Strategy, error) {
	var strategies []Strategy
	if err := c.getJSON(ctx, token, c.apiEndpoint("/api/copiers/"+url.PathEscape(copierID)+"/strategies", nil), &strategies); err != nil {
		return nil, err
	}
	return strategies, nil
}

// CopierOpenSignals lists the open positions of a copier account.
// A 200 response without a JSON array is ErrMalformedResponse.
func (c *Client) CopierOpenSignals(ctx context.Context, token, copierID string) ([]Signal, error) {
	return c.openSignals(ctx, token, "/api/copiers/"+url.PathEscape(copierID)+"/signals/open")
}

// StrategyOpenSignals lists the open positions of a strategy account
func (c *Client) StrategyOpenSignals(ctx context.Context, token, strategyID string) ([]Signal, error) {
	return c.openSignals(ctx, token, "/api/strategies/"+url.PathEscape(strategyID)+"/signals/open")
}

// CopierClosedSignals lists trades a copier closed between start and end
func (c *Client) CopierClosedSignals(ctx context.Context, token, copierID string, start, end time.Time) ([]Signal, error) {
	return c.closedSignals(ctx, token, "/api/copiers/"+url.PathEscape(copierID)+"/signals/closed", start, end)
}

// StrategyClosedSignals lists trades a strategy closed between start and end
func (c *Client) StrategyClosedSignals(ctx context.Context, token, strategyID string, start, end time.Time) ([]Signal, error) {
	return c.closedSignals(ctx, token, "/api/strategies/"+url.PathEscape(strategyID)+"/signals/closed", start, end)
}

func (c *Client) openSignals(ctx context.Context, token, path string) ([]Signal, error) {
	var signals []Signal
	if err := c.getJSON(ctx, token, c.apiEndpoint(path, nil), &signals); err != nil {
		return nil, err
	}
	if signals == nil {
		return nil, fmt.Errorf("%w: %s: expected a JSON array", ErrMalformedResponse, path)
	}
	return signals, nil
}

func (c *Client) closedSignals(ctx context.Context, token, path string, start, end time.Time) ([]Signal, error) {
	q := url.Values{}
	q.Set("startDate", start.UTC().Format(time.RFC3339))
	q.Set("endDate", end.UTC().Format(time.RFC3339))

	var signals []Signal
	if err := c.getJSON(ctx, token, c.apiEndpoint(path, q), &signals); err != nil {
		return nil, err
	}
	if signals == nil {
		signals = []Signal{}
	}
	return signals, nil
}

func copySettingsPath(copierID, strategyID string) string {
	return "/api/copiers/" + url.PathEscape(copierID) + "/strategies/" + url.PathEscape(strategyID) + "/copy-settings"
}

// CopySettings fetches the copy settings of a (copier, strategy) pair.
// When the copier is not copying the strategy the error satisfies IsNotFound.
func (c *Client) CopySettings(ctx context.Context, token, copierID, strategyID string) (*CopySettings, error) {
	var settings CopySettings
	if err := c.getJSON(ctx, token, c.apiEndpoint(copySettingsPath(copierID, strategyID), nil), &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// CreateCopySettings starts copying (POST, accepts 200 and 201)
func (c *Client) CreateCopySettings(ctx context.Context, token, copierID, strategyID string, settings CopySettings) (*CopySettings, error) {
	out := settings
	if _, err := c.doJSON(ctx, http.MethodPost, c.apiEndpoint(copySettingsPath(copierID, strategyID), nil), token, settings, &out, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCopySettings changes existing copy settings (PUT, accepts 200)
func (c *Client) UpdateCopySettings(ctx context.Context, token, copierID, strategyID string, settings CopySettings) (*CopySettings, error) {
	out := settings
	if _, err := c.doJSON(ctx, http.MethodPut, c.apiEndpoint(copySettingsPath(copierID, strategyID), nil), token, settings, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCopySettings stops copying (DELETE, accepts 200 and 204)
func (c *Client) DeleteCopySettings(ctx context.Context, token, copierID, strategyID string, mode DeleteMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid delete mode %q", mode)
	}
	q := url.Values{"mode": {string(mode)}}
	_, err := c.doJSON(ctx, http.MethodDelete, c.apiEndpoint(copySettingsPath(copierID, strategyID), q), token, nil, nil, http.StatusOK, http.StatusNoContent)
	return err
}
