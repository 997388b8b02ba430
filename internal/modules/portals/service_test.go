package portals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func setupService(t *testing.T) (*Service, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)}
	seq := 0
	ids := func() string {
		seq++
		return fmt.Sprintf("%08x-1111-2222-3333-444444444444", seq)
	}
	svc := NewService(setupRepository(t), zerolog.New(nil).Level(zerolog.Disabled), WithClock(clock.Now), WithIDGenerator(ids))
	return svc, clock
}

func TestService_CreateDefaults(t *testing.T) {
	svc, clock := setupService(t)

	p, err := svc.Create(context.Background(), CreateRequest{Name: "Gold & FX Fund", StrategyID: "s1", ProfileID: "p1"})
	require.NoError(t, err)

	assert.Equal(t, "gold-fx-fund-00000001", p.Slug)
	assert.True(t, p.IsActive)
	assert.Equal(t, "{}", string(p.Theme))
	assert.Equal(t, clock.now, p.CreatedAt)

	stored, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Slug, stored.Slug)
}

func TestService_CreateLongNameFitsSlug(t *testing.T) {
	svc, _ := setupService(t)

	p, err := svc.Create(context.Background(), CreateRequest{Name: strings.Repeat("strategy ", 20), StrategyID: "s1"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(p.Slug), 64)
	assert.True(t, strings.HasSuffix(p.Slug, "-00000001"))
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := setupService(t)
	inactive := false

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing name", CreateRequest{StrategyID: "s1"}, ErrInvalidPortal},
		{"missing strategy", CreateRequest{Name: "A"}, ErrInvalidPortal},
		{"bad slug", CreateRequest{Name: "A", StrategyID: "s1", Slug: "Not Valid"}, ErrInvalidSlug},
		{"theme array", CreateRequest{Name: "A", StrategyID: "s1", Theme: json.RawMessage(`[1]`)}, ErrInvalidTheme},
		{"theme garbage", CreateRequest{Name: "A", StrategyID: "s1", Theme: json.RawMessage(`{`), IsActive: &inactive}, ErrInvalidTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_CreateSlugTaken(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Name: "A", StrategyID: "s1", Slug: "alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "B", StrategyID: "s1", Slug: "alpha"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestService_UpdatePartial(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "Alpha", StrategyID: "s1", Slug: "alpha", Theme: json.RawMessage(`{"a": 1}`)})
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour)
	inactive := false
	updated, err := svc.Update(ctx, p.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	assert.False(t, updated.IsActive)
	assert.Equal(t, "Alpha", updated.Name)
	assert.Equal(t, `{"a":1}`, string(updated.Theme))
	assert.Equal(t, clock.now, updated.UpdatedAt)

	_, err = svc.Update(ctx, p.ID, UpdateRequest{Theme: json.RawMessage(`"x"`)})
	assert.ErrorIs(t, err, ErrInvalidTheme)

	_, err = svc.Update(ctx, "missing", UpdateRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_InactiveHiddenFromPublic(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	inactive := false

	_, err := svc.Create(ctx, CreateRequest{Name: "Alpha", StrategyID: "s1", Slug: "alpha", IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, "alpha")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.RecordView(ctx, "alpha", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_RecordViewAndCopy(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "Alpha", StrategyID: "s1", Slug: "alpha"})
	require.NoError(t, err)

	counted, err := svc.RecordView(ctx, "alpha", "viewer")
	require.NoError(t, err)
	assert.True(t, counted)
	counted, err = svc.RecordView(ctx, "alpha", "viewer")
	require.NoError(t, err)
	assert.False(t, counted)

	counted, err = svc.RecordCopy(ctx, "alpha", "viewer", "7")
	require.NoError(t, err)
	assert.True(t, counted)

	clock.now = clock.now.Add(24 * time.Hour)
	counted, err = svc.RecordView(ctx, "alpha", "viewer")
	require.NoError(t, err)
	assert.True(t, counted)

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.TotalViews)
	assert.Equal(t, int64(1), stored.SuccessfulCopies)
}

func TestService_StatsFillsMissingDays(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "Alpha", StrategyID: "s1", Slug: "alpha"})
	require.NoError(t, err)

	clock.now = time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	_, err = svc.RecordView(ctx, "alpha", "a")
	require.NoError(t, err)
	clock.now = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	_, err = svc.RecordView(ctx, "alpha", "a")
	require.NoError(t, err)
	_, err = svc.RecordCopy(ctx, "alpha", "a", "7")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, []DayStats{
		{Day: "2026-03-07"},
		{Day: "2026-03-08", Views: 1},
		{Day: "2026-03-09"},
		{Day: "2026-03-10", Views: 1, Copies: 1},
	}, stats)

	stats, err = svc.Stats(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, stats, DefaultStatsDays)

	_, err = svc.Stats(ctx, "missing", 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Name: "Alpha", StrategyID: "s1"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
