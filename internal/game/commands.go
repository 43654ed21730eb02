package game

import (
	"context"

	"galactic-server/internal/economy"
	"galactic-server/internal/effect"
	"galactic-server/internal/empire"
	"galactic-server/internal/job"
	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/system"
)

// Actor is the caller of a command. Admins may act on any empire.
type Actor struct {
	UserID string
	Admin  bool
}

func (s *Service) loadEmpire(ctx context.Context, actor Actor, gameID, empireID string) (*empire.Empire, error) {
	e, err := s.store.Empires.GetByID(ctx, gameID, empireID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && e.UserID != actor.UserID {
		return nil, apperrors.Forbidden("empire belongs to another player")
	}
	return e, nil
}

// CreateJob validates and queues a job for an empire, charging its cost.
func (s *Service) CreateJob(ctx context.Context, actor Actor, gameID, empireID string, req job.Request) (*job.Job, error) {
	logger := s.logger.With("component", "game_service", "operation", "create_job",
		"game_id", gameID, "empire_id", empireID, "type", req.Type)

	var created *job.Job
	err := s.withLock(ctx, gameID, func() error {
		g, err := s.store.Games.GetGameByID(ctx, gameID)
		if err != nil {
			return err
		}
		if !g.Started {
			return apperrors.Validationf("game %s has not started", gameID)
		}
		e, err := s.loadEmpire(ctx, actor, gameID, empireID)
		if err != nil {
			return err
		}

		scope := job.Scope{Empire: e}
		if req.System != "" {
			if scope.System, err = s.store.Systems.GetByID(ctx, gameID, req.System); err != nil {
				return err
			}
			if scope.Fleets, err = s.store.Fleets.ListAt(ctx, gameID, req.System); err != nil {
				return err
			}
		}
		if scope.Queued, err = s.store.Jobs.List(ctx, job.Filter{GameIDs: []string{gameID}, EmpireID: e.ID}); err != nil {
			return err
		}
		if scope.PreviousUnlocks, err = s.players.PreviousUnlocks(ctx, e.UserID, req.Technology); err != nil {
			return err
		}

		vars, err := e.Variables(s.reg)
		if err != nil {
			return err
		}
		j, err := s.resolver.Create(req, scope, vars)
		if err != nil {
			return err
		}

		err = s.store.db.WithTx(ctx, func(tx *database.Tx) error {
			if err := s.store.Jobs.Create(ctx, j, tx); err != nil {
				return err
			}
			return s.store.Empires.Save(ctx, e, tx)
		})
		if err != nil {
			return err
		}
		created = j
		return nil
	})
	if err != nil {
		logger.Debug("Job rejected", "error", err)
		return nil, err
	}

	logger.Info("Job created", "job_id", created.ID, "total", created.Total)
	return created, nil
}

// ListJobs returns an empire's queued jobs, oldest first.
func (s *Service) ListJobs(ctx context.Context, actor Actor, gameID, empireID string) ([]*job.Job, error) {
	e, err := s.loadEmpire(ctx, actor, gameID, empireID)
	if err != nil {
		return nil, err
	}
	return s.store.Jobs.List(ctx, job.Filter{GameIDs: []string{gameID}, EmpireID: e.ID})
}

// GetEmpire returns an empire to its owner.
func (s *Service) GetEmpire(ctx context.Context, actor Actor, gameID, empireID string) (*empire.Empire, error) {
	return s.loadEmpire(ctx, actor, gameID, empireID)
}

// CancelJob removes an unfinished job and refunds its cost.
func (s *Service) CancelJob(ctx context.Context, actor Actor, gameID, empireID, jobID string) error {
	logger := s.logger.With("component", "game_service", "operation", "cancel_job",
		"game_id", gameID, "empire_id", empireID, "job_id", jobID)

	err := s.withLock(ctx, gameID, func() error {
		e, err := s.loadEmpire(ctx, actor, gameID, empireID)
		if err != nil {
			return err
		}
		j, err := s.store.Jobs.GetByID(ctx, gameID, jobID)
		if err != nil {
			return err
		}
		if j.EmpireID != e.ID {
			return apperrors.NotFoundf("job %s not found", jobID)
		}
		if !job.Cancel(j, e) {
			return apperrors.Validationf("job %s is already finished", jobID)
		}

		return s.store.db.WithTx(ctx, func(tx *database.Tx) error {
			if err := s.store.Jobs.Delete(ctx, j.ID, tx); err != nil {
				return err
			}
			return s.store.Empires.Save(ctx, e, tx)
		})
	})
	if err != nil {
		logger.Debug("Cancel rejected", "error", err)
		return err
	}
	logger.Info("Job cancelled")
	return nil
}

// Aggregate computes one of the economy aggregates for an empire.
func (s *Service) Aggregate(ctx context.Context, actor Actor, gameID, empireID, id string, params map[string]string) (*economy.Aggregate, error) {
	e, err := s.loadEmpire(ctx, actor, gameID, empireID)
	if err != nil {
		return nil, err
	}
	systems, err := s.store.Systems.ListByOwner(ctx, gameID, e.ID)
	if err != nil {
		return nil, err
	}
	if target := params["system"]; target != "" && !containsSystem(systems, target) {
		sys, err := s.store.Systems.GetByID(ctx, gameID, target)
		if err != nil {
			return nil, err
		}
		systems = append(systems, sys)
	}
	unlocks, err := s.players.PreviousUnlocks(ctx, e.UserID, params["technology"])
	if err != nil {
		return nil, err
	}

	return economy.ComputeAggregate(s.reg, id, economy.Input{
		Empire:          e,
		Systems:         systems,
		PreviousUnlocks: unlocks,
		Params:          params,
	})
}

// ExplainVariable breaks an empire variable down by effect source.
func (s *Service) ExplainVariable(ctx context.Context, actor Actor, gameID, empireID, variable string) (effect.Explanation, error) {
	e, err := s.loadEmpire(ctx, actor, gameID, empireID)
	if err != nil {
		return effect.Explanation{}, err
	}
	return effect.ExplainEmpire(s.reg, variable, e.Technologies, e.Traits)
}

func containsSystem(systems []*system.System, id string) bool {
	for _, sys := range systems {
		if sys.ID == id {
			return true
		}
	}
	return false
}
