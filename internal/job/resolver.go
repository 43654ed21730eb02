package job

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"time"

	"galactic-server/internal/catalog"
	"galactic-server/internal/effect"
	"galactic-server/internal/empire"
	"galactic-server/internal/fleet"
	"galactic-server/internal/random"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/system"
	"galactic-server/internal/technology"

	"github.com/google/uuid"
)

// Scope is the state a new job is checked against.
type Scope struct {
	Empire *empire.Empire
	// System is the target system; nil for research.
	System *system.System
	// Fleets are the fleets parked at System.
	Fleets []*fleet.Fleet
	// Queued are the empire's unfinished jobs.
	Queued []*Job
	// PreviousUnlocks counts how often the user researched the requested
	// technology in earlier games.
	PreviousUnlocks int
}

type Resolver struct {
	reg    *catalog.Registry
	logger *slog.Logger
}

func NewResolver(reg *catalog.Registry, logger *slog.Logger) *Resolver {
	return &Resolver{reg: reg, logger: logger}
}

// Create validates req, charges its cost to the empire and returns the new
// job. Nothing is charged when validation fails.
func (r *Resolver) Create(req Request, scope Scope, vars effect.Table) (*Job, error) {
	e := scope.Empire
	j := &Job{
		ID:        uuid.NewString(),
		GameID:    e.GameID,
		EmpireID:  e.ID,
		Type:      req.Type,
		System:    req.System,
		CreatedAt: time.Now().UnixNano(),
	}

	var total float64
	switch req.Type {
	case TypeBuilding:
		if req.Building == "" {
			return nil, apperrors.Validation("building job needs a building")
		}
		s, err := requireSystem(req, scope)
		if err != nil {
			return nil, err
		}
		if err := system.CheckBuilding(r.reg, s, e.ID, req.Building, queuedOn(scope.Queued, s.ID)); err != nil {
			return nil, err
		}
		j.Building = req.Building
		j.Cost = vars.Resources(catalog.BuildingKey(req.Building, catalog.FieldCost))
		total = vars.Get(catalog.BuildingKey(req.Building, catalog.FieldBuildTime))

	case TypeDistrict:
		if req.District == "" {
			return nil, apperrors.Validation("district job needs a district")
		}
		s, err := requireSystem(req, scope)
		if err != nil {
			return nil, err
		}
		ofType := 0
		for _, q := range scope.Queued {
			if q.Type == TypeDistrict && q.System == s.ID && q.District == req.District {
				ofType++
			}
		}
		if err := system.CheckDistrict(r.reg, s, e.ID, req.District, queuedOn(scope.Queued, s.ID), ofType); err != nil {
			return nil, err
		}
		j.District = req.District
		j.Cost = vars.Resources(catalog.DistrictKey(req.District, catalog.FieldCost))
		total = vars.Get(catalog.DistrictKey(req.District, catalog.FieldBuildTime))

	case TypeUpgrade:
		s, err := requireSystem(req, scope)
		if err != nil {
			return nil, err
		}
		for _, q := range scope.Queued {
			if q.Type == TypeUpgrade && q.System == s.ID {
				return nil, apperrors.Validationf("system %s is already being upgraded", s.ID)
			}
		}
		next, err := system.CheckUpgrade(r.reg, s, e.ID)
		if err != nil {
			return nil, err
		}
		if ship := system.RequiredShip(next.ID); ship != "" && !fleet.AnyHas(scope.Fleets, e.ID, s.ID, ship) {
			return nil, apperrors.Validationf("a %s ship must be at system %s", ship, s.ID)
		}
		j.Upgrade = next.ID
		j.Cost = vars.Resources(catalog.SystemKey(next.ID, catalog.FieldCost))
		total = vars.Get(catalog.SystemKey(next.ID, catalog.FieldUpgradeTime))

	case TypeTechnology:
		if req.Technology == "" {
			return nil, apperrors.Validation("technology job needs a technology")
		}
		for _, q := range scope.Queued {
			if q.Type == TypeTechnology && q.Technology == req.Technology {
				return nil, apperrors.Validationf("technology %q is already being researched", req.Technology)
			}
		}
		t, err := technology.CanUnlock(r.reg, req.Technology, e.Technologies)
		if err != nil {
			return nil, err
		}
		j.System = ""
		j.Technology = req.Technology
		j.Cost.Set(catalog.Research, technology.Cost(vars, t, scope.PreviousUnlocks))
		total = technology.ResearchTime(vars, t)

	default:
		return nil, apperrors.Validationf("unknown job type %q", req.Type)
	}

	j.Cost = j.Cost.Round()
	j.Total = max(math.Round(total), 1)

	if err := e.Pay(j.Cost); err != nil {
		return nil, err
	}
	return j, nil
}

func requireSystem(req Request, scope Scope) (*system.System, error) {
	if req.System == "" {
		return nil, apperrors.Validationf("%s job needs a system", req.Type)
	}
	if scope.System == nil || scope.System.ID != req.System {
		return nil, apperrors.NotFoundf("system %s not found", req.System)
	}
	return scope.System, nil
}

// queuedOn counts queued jobs that will take capacity on systemID.
func queuedOn(queued []*Job, systemID string) int {
	n := 0
	for _, q := range queued {
		if q.System == systemID && (q.Type == TypeBuilding || q.Type == TypeDistrict) {
			n++
		}
	}
	return n
}

// Cancel refunds an unfinished job's cost. It reports whether anything was
// refunded.
func Cancel(j *Job, e *empire.Empire) bool {
	if j.Done() {
		return false
	}
	e.Add(j.Cost)
	return true
}

// Step advances the oldest job of every queue by one period. It returns the
// jobs that progressed and, among them, those that are now finished.
func Step(jobs []*Job) (progressed, finished []*Job) {
	ordered := slices.Clone(jobs)
	slices.SortStableFunc(ordered, func(a, b *Job) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	seen := make(map[string]bool)
	for _, j := range ordered {
		q := j.EmpireID + "/" + j.Queue()
		if seen[q] {
			continue
		}
		seen[q] = true

		j.Progress++
		progressed = append(progressed, j)
		if j.Done() {
			finished = append(finished, j)
		}
	}
	return progressed, finished
}

// Complete applies a finished job to its empire and system. On error
// nothing has changed and the caller refunds the job.
func (r *Resolver) Complete(j *Job, e *empire.Empire, s *system.System, vars effect.Table, src random.Source) error {
	switch j.Type {
	case TypeBuilding:
		if s == nil {
			return apperrors.NotFoundf("system %s not found", j.System)
		}
		return system.AddBuilding(r.reg, s, e.ID, j.Building)
	case TypeDistrict:
		if s == nil {
			return apperrors.NotFoundf("system %s not found", j.System)
		}
		return system.AddDistrict(r.reg, s, e.ID, j.District)
	case TypeUpgrade:
		if s == nil {
			return apperrors.NotFoundf("system %s not found", j.System)
		}
		// the tier paid for must still be the next one
		next, err := system.CheckUpgrade(r.reg, s, e.ID)
		if err != nil {
			return err
		}
		if next.ID != j.Upgrade {
			return apperrors.Validationf("system %s is no longer ready for %s", s.ID, j.Upgrade)
		}
		return system.Advance(r.reg, s, vars, src, e.ID)
	case TypeTechnology:
		return e.UnlockTechnology(r.reg, j.Technology)
	}
	return apperrors.Validationf("unknown job type %q", j.Type)
}

// Finish completes every finished job, refunding the ones that can no longer
// be applied. It reports how many completed.
func (r *Resolver) Finish(finished []*Job, e *empire.Empire, systems map[string]*system.System, vars effect.Table, src random.Source) int {
	logger := r.logger.With("component", "job_resolver", "operation", "finish", "empire_id", e.ID)

	completed := 0
	for _, j := range finished {
		if err := r.Complete(j, e, systems[j.System], vars, src); err != nil {
			e.Add(j.Cost)
			logger.Warn("Job could not be completed, refunded",
				"job_id", j.ID,
				"type", j.Type,
				"system_id", j.System,
				"error", err)
			continue
		}
		completed++
		logger.Debug("Job completed", "job_id", j.ID, "type", j.Type)
	}
	return completed
}
