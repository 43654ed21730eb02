package spatial

import (
	"context"
	"log/slog"
	"math"

	"galactic-server/internal/fleet"
	"galactic-server/internal/system"
)

type Service struct {
	repo    *Repository
	systems *system.Repository
	fleets  *fleet.Repository
	logger  *slog.Logger
}

func NewService(repo *Repository, systems *system.Repository, fleets *fleet.Repository, logger *slog.Logger) *Service {
	logger.Debug("Initializing spatial service")

	return &Service{
		repo:    repo,
		systems: systems,
		fleets:  fleets,
		logger:  logger,
	}
}

// GetMap returns the galaxy map of gameID. Members see their own fleets,
// admins see every fleet.
func (s *Service) GetMap(ctx context.Context, gameID, userID string, admin bool) (*Map, error) {
	var empireID string
	if !admin {
		var err error
		if empireID, err = s.repo.MemberEmpire(ctx, gameID, userID); err != nil {
			return nil, err
		}
	}

	systems, err := s.systems.ListByGames(ctx, []string{gameID})
	if err != nil {
		return nil, err
	}
	fleets, err := s.fleets.ListByGames(ctx, []string{gameID})
	if err != nil {
		return nil, err
	}

	m := &Map{
		GameID: gameID,
		Nodes:  make([]Node, 0, len(systems)),
		Fleets: []*fleet.Fleet{},
	}
	for _, sys := range systems {
		m.Nodes = append(m.Nodes, Node{
			ID:      sys.ID,
			Name:    sys.Name,
			Type:    sys.Type,
			X:       sys.X,
			Y:       sys.Y,
			Cluster: sys.Cluster,
			Owner:   sys.Owner,
			Upgrade: sys.Upgrade,
			Links:   sys.Links,
		})
	}
	m.Bounds = bounds(m.Nodes)
	for _, f := range fleets {
		if admin || (empireID != "" && f.EmpireID == empireID) {
			m.Fleets = append(m.Fleets, f)
		}
	}

	s.logger.Debug("Map built",
		"component", "spatial_service",
		"game_id", gameID,
		"nodes", len(m.Nodes),
		"fleets", len(m.Fleets))
	return m, nil
}

func bounds(nodes []Node) Bounds {
	if len(nodes) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, n := range nodes {
		b.MinX = min(b.MinX, n.X)
		b.MinY = min(b.MinY, n.Y)
		b.MaxX = max(b.MaxX, n.X)
		b.MaxY = max(b.MaxY, n.Y)
	}
	return b
}
