// Package portals manages shareable strategy pages and their view and copy counters.
package portals

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for unknown portals and, on public paths, inactive ones
	ErrNotFound = errors.New("portal not found")
	// ErrSlugTaken is returned when another portal already uses the slug
	ErrSlugTaken = errors.New("portal slug already taken")
	// ErrInvalidTheme is returned when theme_json is not a JSON object
	ErrInvalidTheme = errors.New("theme must be a JSON object")
	// ErrInvalidSlug is returned for slugs outside [a-z0-9-] or longer than 64 chars
	ErrInvalidSlug = errors.New("slug must be 1-64 chars of a-z, 0-9 and dashes")
	// ErrInvalidPortal is returned when a required field is missing
	ErrInvalidPortal = errors.New("invalid portal")
)

// Portal is a public page promoting one strategy
type Portal struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	ProfileID        string          `json:"profile_id"`
	StrategyID       string          `json:"strategy_id"`
	IsActive         bool            `json:"is_active"`
	Theme            json.RawMessage `json:"theme"`
	TotalViews       int64           `json:"total_views"`
	SuccessfulCopies int64           `json:"successful_copies"`
	LastViewedAt     *time.Time      `json:"last_viewed_at"`
	LastCopiedAt     *time.Time      `json:"last_copied_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EventType is the kind of portal event
type EventType string

const (
	EventView        EventType = "view"
	EventCopySuccess EventType = "copy_success"
)

// Event is one deduplicated view or copy
type Event struct {
	PortalID   string
	Type       EventType
	ProfileID  string // "" for anonymous viewers
	CopierID   string
	OccurredAt time.Time
}

// Day returns the UTC calendar day the event is deduplicated on
func (e Event) Day() string {
	return e.OccurredAt.UTC().Format("2006-01-02")
}

// DayStats holds the counted events of one day
type DayStats struct {
	Day    string `json:"day"`
	Views  int64  `json:"views"`
	Copies int64  `json:"copies"`
}

// CreateRequest holds the fields of a new portal
type CreateRequest struct {
	Name       string          `json:"name"`
	Slug       string          `json:"slug"`
	ProfileID  string          `json:"profile_id"`
	StrategyID string          `json:"strategy_id"`
	IsActive   *bool           `json:"is_active"`
	Theme      json.RawMessage `json:"theme"`
}

// UpdateRequest changes only the fields that are set
type UpdateRequest struct {
	Name       *string         `json:"name"`
	Slug       *string         `json:"slug"`
	StrategyID *string         `json:"strategy_id"`
	IsActive   *bool           `json:"is_active"`
	Theme      json.RawMessage `json:"theme"`
}
