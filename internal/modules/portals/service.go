package portals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/copydash/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStatsDays is the window Stats covers when none is given
const DefaultStatsDays = 30

// Store is the persistence port of the portal service
type Store interface {
	Create(ctx context.Context, p Portal) error
	Update(ctx context.Context, p Portal) error
	GetByID(ctx context.Context, id string) (*Portal, error)
	GetBySlug(ctx context.Context, slug string) (*Portal, error)
	List(ctx context.Context, activeOnly bool) ([]Portal, error)
	Delete(ctx context.Context, id string) error
	RecordEvent(ctx context.Context, e Event) (bool, error)
	DailyStats(ctx context.Context, portalID, sinceDay string) ([]DayStats, error)
}

// Service manages portals
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides portal id generation
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a portal service
func NewService(store Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
		log:   log.With().Str("service", "portals").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new portal. Without a slug one is derived from the name plus
// the first 8 characters of the portal id.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Portal, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPortal)
	}
	if req.StrategyID == "" {
		return nil, fmt.Errorf("%w: strategy_id is required", ErrInvalidPortal)
	}

	theme, err := normalizeTheme(req.Theme)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	slug := req.Slug
	if slug == "" {
		slug = defaultSlug(name, id)
	}
	if !utils.ValidSlug(slug) {
		return nil, ErrInvalidSlug
	}

	now := s.now().UTC().Truncate(time.Second)
	p := Portal{
		ID:         id,
		Name:       name,
		Slug:       slug,
		ProfileID:  req.ProfileID,
		StrategyID: req.StrategyID,
		IsActive:   req.IsActive == nil || *req.IsActive,
		Theme:      theme,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().Str("portal_id", p.ID).Str("slug", p.Slug).Msg("Portal created")
	return &p, nil
}

// Update applies the set fields of req
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Portal, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidPortal)
		}
		p.Name = name
	}
	if req.Slug != nil {
		if !utils.ValidSlug(*req.Slug) {
			return nil, ErrInvalidSlug
		}
		p.Slug = *req.Slug
	}
	if req.StrategyID != nil {
		if *req.StrategyID == "" {
			return nil, fmt.Errorf("%w: strategy_id is required", ErrInvalidPortal)
		}
		p.StrategyID = *req.StrategyID
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.Theme != nil {
		theme, err := normalizeTheme(req.Theme)
		if err != nil {
			return nil, err
		}
		p.Theme = theme
	}

	p.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := s.store.Update(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a portal by id, active or not
func (s *Service) Get(ctx context.Context, id string) (*Portal, error) {
	return s.store.GetByID(ctx, id)
}

// GetBySlug returns an active portal; inactive portals are reported as ErrNotFound
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Portal, error) {
	p, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns all portals, or only the active ones
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Portal, error) {
	return s.store.List(ctx, activeOnly)
}

// Delete removes a portal and its events
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("portal_id", id).Msg("Portal deleted")
	return nil
}

// RecordView counts a page view, once per viewer per day
func (s *Service) RecordView(ctx context.Context, slug, profileID string) (bool, error) {
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	return s.store.RecordEvent(ctx, Event{
		PortalID:   p.ID,
		Type:       EventView,
		ProfileID:  profileID,
		OccurredAt: s.now(),
	})
}

// RecordCopy counts a successful copy started from a portal, once per viewer per day
func (s *Service) RecordCopy(ctx context.Context, slug, profileID, copierID string) (bool, error) {
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	return s.store.RecordEvent(ctx, Event{
		PortalID:   p.ID,
		Type:       EventCopySuccess,
		ProfileID:  profileID,
		CopierID:   copierID,
		OccurredAt: s.now(),
	})
}

// Stats returns one entry per day for the last days days, today included, oldest first.
// Days without events are zero.
func (s *Service) Stats(ctx context.Context, id string, days int) ([]DayStats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	first := today.AddDate(0, 0, -(days - 1))

	counted, err := s.store.DailyStats(ctx, id, first.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]DayStats, len(counted))
	for _, d := range counted {
		byDay[d.Day] = d
	}

	stats := make([]DayStats, 0, days)
	for day := first; !day.After(today); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		d, ok := byDay[key]
		if !ok {
			d = DayStats{Day: key}
		}
		stats = append(stats, d)
	}
	return stats, nil
}

func defaultSlug(name, id string) string {
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	suffix = strings.ToLower(suffix)

	base := utils.Truncate(utils.Slugify(name), utils.MaxSlugLength-len(suffix)-1)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// normalizeTheme accepts a JSON object and returns it compacted; empty input means {}
func normalizeTheme(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
		return nil, ErrInvalidTheme
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, ErrInvalidTheme
	}
	return buf.Bytes(), nil
}
