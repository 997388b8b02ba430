// Package copying starts and stops copy relationships between copier accounts and strategies.
package copying

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyLinked is returned by Link when the copier already copies the strategy
	ErrAlreadyLinked = errors.New("copier already copies this strategy")
	// ErrInvalidSettings is returned for copy settings the platform would reject
	ErrInvalidSettings = errors.New("invalid copy settings")
	// ErrInvalidMode is returned for an unknown stop-copy mode
	ErrInvalidMode = errors.New("invalid stop mode")
)

// Upstream is the copy-settings slice of the copytrade client
type Upstream interface {
	CopySettings(ctx context.Context, token, copierID, strategyID string) (*copytrade.CopySettings, error)
	CreateCopySettings(ctx context.Context, token, copierID, strategyID string, settings copytrade.CopySettings) (*copytrade.CopySettings, error)
	UpdateCopySettings(ctx context.Context, token, copierID, strategyID string, settings copytrade.CopySettings) (*copytrade.CopySettings, error)
	DeleteCopySettings(ctx context.Context, token, copierID, strategyID string, mode copytrade.DeleteMode) error
	CopierStrategies(ctx context.Context, token, copierID string) ([]copytrade.Strategy, error)
}

// Status says whether a copier copies a strategy, and how
type Status struct {
	Copying  bool                    `json:"copying"`
	Settings *copytrade.CopySettings `json:"settings"`
}

// Service issues copy commands
type Service struct {
	upstream Upstream
	log      zerolog.Logger
}

// NewService creates a copying service
func NewService(upstream Upstream, log zerolog.Logger) *Service {
	return &Service{
		upstream: upstream,
		log:      log.With().Str("service", "copying").Logger(),
	}
}

// Validate checks settings before they are sent upstream
func Validate(settings copytrade.CopySettings) error {
	if settings.TradeSizeType == "" {
		return fmt.Errorf("%w: tradeSizeType is required", ErrInvalidSettings)
	}
	if settings.TradeSizeValue <= 0 {
		return fmt.Errorf("%w: tradeSizeValue must be greater than 0", ErrInvalidSettings)
	}
	return nil
}

// Status reports the copy settings of a pair; a 404 upstream means not copying
func (s *Service) Status(ctx context.Context, token, copierID, strategyID string) (*Status, error) {
	settings, err := s.upstream.CopySettings(ctx, token, copierID, strategyID)
	if copytrade.IsNotFound(err) {
		return &Status{Copying: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get copy settings: %w", err)
	}
	return &Status{Copying: true, Settings: settings}, nil
}

// Copy starts copying or updates the existing settings. created reports which happened.
func (s *Service) Copy(ctx context.Context, token, copierID, strategyID string, settings copytrade.CopySettings) (result *copytrade.CopySettings, created bool, err error) {
	if err := Validate(settings); err != nil {
		return nil, false, err
	}

	status, err := s.Status(ctx, token, copierID, strategyID)
	if err != nil {
		return nil, false, err
	}

	if status.Copying {
		result, err = s.upstream.UpdateCopySettings(ctx, token, copierID, strategyID, settings)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update copy settings: %w", err)
		}
	} else {
		result, err = s.upstream.CreateCopySettings(ctx, token, copierID, strategyID, settings)
		if err != nil {
			return nil, false, fmt.Errorf("failed to create copy settings: %w", err)
		}
		created = true
	}

	s.log.Info().
		Str("copier_id", copierID).
		Str("strategy_id", strategyID).
		Bool("created", created).
		Msg("Copy settings applied")
	return result, created, nil
}

// Link starts copying; it never changes an existing relationship
func (s *Service) Link(ctx context.Context, token, copierID, strategyID string, settings copytrade.CopySettings) (*copytrade.CopySettings, error) {
	if err := Validate(settings); err != nil {
		return nil, err
	}

	status, err := s.Status(ctx, token, copierID, strategyID)
	if err != nil {
		return nil, err
	}
	if status.Copying {
		return nil, ErrAlreadyLinked
	}

	result, err := s.upstream.CreateCopySettings(ctx, token, copierID, strategyID, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to link: %w", err)
	}

	s.log.Info().Str("copier_id", copierID).Str("strategy_id", strategyID).Msg("Copier linked")
	return result, nil
}

// StopCopy stops copying. An empty mode means Mirror.
func (s *Service) StopCopy(ctx context.Context, token, copierID, strategyID string, mode copytrade.DeleteMode) (copytrade.DeleteMode, error) {
	if mode == "" {
		mode = copytrade.DeleteModeMirror
	}
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if err := s.upstream.DeleteCopySettings(ctx, token, copierID, strategyID, mode); err != nil {
		return "", fmt.Errorf("failed to stop copying: %w", err)
	}

	s.log.Info().
		Str("copier_id", copierID).
		Str("strategy_id", strategyID).
		Str("mode", string(mode)).
		Msg("Copying stopped")
	return mode, nil
}

// Unlink stops copying and leaves the copied trades open
func (s *Service) Unlink(ctx context.Context, token, copierID, strategyID string) error {
	_, err := s.StopCopy(ctx, token, copierID, strategyID, copytrade.DeleteModeManual)
	return err
}

// CopierStrategies lists the strategies a copier follows
func (s *Service) CopierStrategies(ctx context.Context, token, copierID string) ([]copytrade.Strategy, error) {
	strategies, err := s.upstream.CopierStrategies(ctx, token, copierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list copier strategies: %w", err)
	}
	if strategies == nil {
		strategies = []copytrade.Strategy{}
	}
	return strategies, nil
}
