package player

import (
	"context"
	"log/slog"
	"strings"

	"galactic-server/internal/shared/errors"
)

type Service struct {
	repo   *Repository
	logger *slog.Logger
}

func NewService(repo *Repository, logger *slog.Logger) *Service {
	logger.Debug("Initializing player service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetPlayerByID(ctx context.Context, id string) (*Player, error) {
	return s.repo.GetPlayerByID(ctx, id)
}

// EnsurePlayer returns the player, creating the account the first time an
// authenticated user shows up.
func (s *Service) EnsurePlayer(ctx context.Context, id, name string) (*Player, error) {
	p, err := s.repo.GetPlayerByID(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, errors.ErrorTypeNotFound) {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	p = &Player{ID: id, Name: name}
	if err := s.repo.CreatePlayer(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("New player registered", "component", "player_service", "player_id", id)
	return p, nil
}

// PreviousUnlocks is how often the player already finished technology, zero
// for unknown players.
func (s *Service) PreviousUnlocks(ctx context.Context, id, technology string) (int, error) {
	if technology == "" {
		return 0, nil
	}
	p, err := s.repo.GetPlayerByID(ctx, id)
	if errors.Is(err, errors.ErrorTypeNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return p.Technologies[technology], nil
}
