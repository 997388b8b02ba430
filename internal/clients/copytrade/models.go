package copytrade

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an upstream identifier. The platform sends ids as strings or numbers;
// both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string, number or null
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// TokenResponse is the token endpoint response
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	IDToken          string `json:"id_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Profile is a platform user profile
type Profile struct {
	ID   ID     `json:"Id"`
	Name string `json:"Name"`
}

// Connection is the trading server login of a copier account
type Connection struct {
	ServerCode string `json:"ServerCode"`
	Username   string `json:"Username"`
}

// Copier is a trading account that copies strategies
type Copier struct {
	ID         ID          `json:"Id"`
	Name       string      `json:"Name"`
	IsEnabled  *bool       `json:"IsEnabled"`
	Connection *Connection `json:"Connection"`
}

// Enabled reports IsEnabled, defaulting to true when absent
func (c Copier) Enabled() bool {
	return c.IsEnabled == nil || *c.IsEnabled
}

// ServerCode returns the connection server code or "N/A"
func (c Copier) ServerCode() string {
	if c.Connection == nil || c.Connection.ServerCode == "" {
		return "N/A"
	}
	return c.Connection.ServerCode
}

// Username returns the connection username or "N/A"
func (c Copier) Username() string {
	if c.Connection == nil || c.Connection.Username == "" {
		return "N/A"
	}
	return c.Connection.Username
}

// Strategy is a signal provider account
type Strategy struct {
	ID         ID       `json:"Id"`
	Name       string   `json:"Name"`
	NumCopiers int      `json:"NumCopiers"`
	Fee        *float64 `json:"Fee"`
}

// DiscoverItem is one ranked entry of the discover endpoint
type DiscoverItem struct {
	Value    float64  `json:"Value"`
	Strategy Strategy `json:"Strategy"`
}

// TradeCounts summarises trade activity over a period
type TradeCounts struct {
	Total       int     `json:"Total"`
	MinPerMonth float64 `json:"MinPerMonth"`
	MaxPerMonth float64 `json:"MaxPerMonth"`
	Wins        int     `json:"Wins"`
	Losses      int     `json:"Losses"`
}

// ReturnPoint is one entry of a return history
type ReturnPoint struct {
	AccountReturn float64 `json:"AccountReturn"`
}

// Profitability holds P&L figures over a period
type Profitability struct {
	RealisedPnl    float64       `json:"RealisedPnl"`
	UnrealisedPnl  float64       `json:"UnrealisedPnl"`
	RealisedReturn float64       `json:"RealisedReturn"`
	MaxDrawdown    float64       `json:"MaxDrawdown"`
	History        []ReturnPoint `json:"History"`
}

// AccountStatus is the live state of a trading account
type AccountStatus struct {
	Balance  float64  `json:"Balance"`
	Credit   float64  `json:"Credit"`
	Leverage *float64 `json:"Leverage"`
}

// StrategyStats is the stats payload of a strategy
type StrategyStats struct {
	Inception string `json:"Inception"`
	Trades    struct {
		Inception TradeCounts `json:"Inception"`
	} `json:"Trades"`
	Profitability struct {
		Inception Profitability `json:"Inception"`
	} `json:"Profitability"`
	Status        AccountStatus `json:"Status"`
	CopiersProfit struct {
		Year  float64 `json:"Year"`
		Month float64 `json:"Month"`
	} `json:"CopiersProfit"`
	CopiersBalance struct {
		Balance float64 `json:"Balance"`
	} `json:"CopiersBalance"`
	CurrencyCode string `json:"CurrencyCode"`
}

// CopierStats is the stats payload of a copier account
type CopierStats struct {
	Status        AccountStatus `json:"Status"`
	Profitability struct {
		Inception Profitability `json:"Inception"`
	} `json:"Profitability"`
	CurrencyCode string `json:"CurrencyCode"`
}

// Signal is an open or closed trade. Only the fields used for statistics are
// decoded; Raw keeps the full upstream object for pass-through.
type Signal struct {
	Instrument     string
	RealisedProfit float64
	Raw            json.RawMessage
}

// UnmarshalJSON decodes the statistics fields and keeps the raw payload
func (s *Signal) UnmarshalJSON(data []byte) error {
	var fields struct {
		Instrument     string  `json:"Instrument"`
		RealisedProfit float64 `json:"RealisedProfit"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	s.Instrument = fields.Instrument
	s.RealisedProfit = fields.RealisedProfit
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the upstream payload when present
func (s Signal) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(struct {
		Instrument     string  `json:"Instrument"`
		RealisedProfit float64 `json:"RealisedProfit"`
	}{s.Instrument, s.RealisedProfit})
}

// CopySettings controls how a copier mirrors a strategy
type CopySettings struct {
	TradeSizeType          string  `json:"tradeSizeType"`
	TradeSizeValue         float64 `json:"tradeSizeValue"`
	IsOpenExistingTrades   bool    `json:"isOpenExistingTrades"`
	IsRoundUpToMinimumSize bool    `json:"isRoundUpToMinimumSize"`
}

// DeleteMode decides what happens to open copied trades when copying stops
type DeleteMode string

const (
	DeleteModeMirror DeleteMode = "Mirror" // keep mirroring closes from the strategy
	DeleteModeClose  DeleteMode = "Close"  // close copied trades now
	DeleteModeManual DeleteMode = "Manual" // leave copied trades to the account owner
)

// Valid reports whether m is a known mode
func (m DeleteMode) Valid() bool {
	switch m {
	case DeleteModeMirror, DeleteModeClose, DeleteModeManual:
		return true
	}
	return false
}
