package dashboard

import (
	"context"
	"time"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/stretchr/testify/mock"
)

type mockUpstream struct {
	mock.Mock
}

func (m *mockUpstream) ProfileID(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockUpstream) Profile(ctx context.Context, token, profileID string) (*copytrade.Profile, error) {
	args := m.Called(ctx, token, profileID)
	p, _ := args.Get(0).(*copytrade.Profile)
	return p, args.Error(1)
}

func (m *mockUpstream) ProfileStrategies(ctx context.Context, token, profileID string) ([]copytrade.Strategy, error) {
	args := m.Called(ctx, token, profileID)
	s, _ := args.Get(0).([]copytrade.Strategy)
	return s, args.Error(1)
}

func (m *mockUpstream) ProfileCopiers(ctx context.Context, token, profileID string) ([]copytrade.Copier, error) {
	args := m.Called(ctx, token, profileID)
	c, _ := args.Get(0).([]copytrade.Copier)
	return c, args.Error(1)
}

func (m *mockUpstream) DiscoverStrategies(ctx context.Context, token string) ([]copytrade.DiscoverItem, error) {
	args := m.Called(ctx, token)
	items, _ := args.Get(0).([]copytrade.DiscoverItem)
	return items, args.Error(1)
}

func (m *mockUpstream) Strategy(ctx context.Context, token, strategyID string) (*copytrade.Strategy, error) {
	args := m.Called(ctx, token, strategyID)
	s, _ := args.Get(0).(*copytrade.Strategy)
	return s, args.Error(1)
}

func (m *mockUpstream) StrategyStats(ctx context.Context, token, strategyID string) (*copytrade.StrategyStats, error) {
	args := m.Called(ctx, token, strategyID)
	s, _ := args.Get(0).(*copytrade.StrategyStats)
	return s, args.Error(1)
}

func (m *mockUpstream) CopierStats(ctx context.Context, token, copierID string) (*copytrade.CopierStats, error) {
	args := m.Called(ctx, token, copierID)
	s, _ := args.Get(0).(*copytrade.CopierStats)
	return s, args.Error(1)
}

func (m *mockUpstream) CopierOpenSignals(ctx context.Context, token, copierID string) ([]copytrade.Signal, error) {
	args := m.Called(ctx, token, copierID)
	s, _ := args.Get(0).([]copytrade.Signal)
	return s, args.Error(1)
}

func (m *mockUpstream) StrategyOpenSignals(ctx context.Context, token, strategyID string) ([]copytrade.Signal, error) {
	args := m.Called(ctx, token, strategyID)
	s, _ := args.Get(0).([]copytrade.Signal)
	return s, args.Error(1)
}

func (m *mockUpstream) CopierClosedSignals(ctx context.Context, token, copierID string, start, end time.Time) ([]copytrade.Signal, error) {
	args := m.Called(ctx, token, copierID, start, end)
	s, _ := args.Get(0).([]copytrade.Signal)
	return s, args.Error(1)
}

func (m *mockUpstream) StrategyClosedSignals(ctx context.Context, token, strategyID string, start, end time.Time) ([]copytrade.Signal, error) {
	args := m.Called(ctx, token, strategyID, start, end)
	s, _ := args.Get(0).([]copytrade.Signal)
	return s, args.Error(1)
}
