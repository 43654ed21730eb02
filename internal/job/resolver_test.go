package job

import (
	"io"
	"log/slog"
	"testing"

	"galactic-server/internal/catalog"
	"galactic-server/internal/effect"
	"galactic-server/internal/empire"
	"galactic-server/internal/fleet"
	"galactic-server/internal/random"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/system"
)

type fixture struct {
	reg      *catalog.Registry
	resolver *Resolver
	vars     effect.Table
	empire   *empire.Empire
	system   *system.System
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := catalog.MustDefault()
	e := &empire.Empire{
		ID:        "e1",
		GameID:    "g1",
		Resources: catalog.Resources(map[string]float64{"minerals": 1000, "energy": 1000, "fuel": 100, "credits": 1000, "research": 1000}),
	}
	s := system.New("s1", "g1", "Vega", "regular", 20)
	s.Upgrade = catalog.Colonized
	s.Owner = e.ID
	s.DistrictSlots["mining"] = 2

	return &fixture{
		reg:      reg,
		resolver: NewResolver(reg, slog.New(slog.NewTextHandler(io.Discard, nil))),
		vars:     effect.Table(reg.Baseline()),
		empire:   e,
		system:   s,
	}
}

func (f *fixture) scope() Scope {
	return Scope{Empire: f.empire, System: f.system}
}

func TestCreate_UpgradeNeedsEveryResource(t *testing.T) {
	f := newFixture(t)
	before := f.empire.Resources

	_, err := f.resolver.Create(Request{Type: TypeUpgrade, System: "s1"}, f.scope(), f.vars)
	if !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error without alloys, got %v", err)
	}
	if f.empire.Resources != before {
		t.Fatalf("resources changed: %v", f.empire.Resources)
	}

	f.empire.Resources.Set(catalog.Alloys, 100)
	j, err := f.resolver.Create(Request{Type: TypeUpgrade, System: "s1"}, f.scope(), f.vars)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.empire.Resources.Get(catalog.Alloys) != 0 || f.empire.Resources.Get(catalog.Minerals) != 900 {
		t.Fatalf("cost not charged: %v", f.empire.Resources)
	}
	if j.Total < 1 {
		t.Fatalf("total = %v", j.Total)
	}
}

func TestCreate_ExploreNeedsScienceShip(t *testing.T) {
	f := newFixture(t)
	target := system.New("s2", "g1", "Rigel", "mining", 12)
	scope := Scope{Empire: f.empire, System: target}

	if _, err := f.resolver.Create(Request{Type: TypeUpgrade, System: "s2"}, scope, f.vars); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected missing ship error, got %v", err)
	}

	scope.Fleets = []*fleet.Fleet{{EmpireID: "e1", Location: "s2", Ships: map[string]int{"science": 1}}}
	j, err := f.resolver.Create(Request{Type: TypeUpgrade, System: "s2"}, scope, f.vars)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if j.Cost.Get(catalog.Fuel) != 10 {
		t.Fatalf("explore cost = %v", j.Cost)
	}
}

func TestCreate_MissingFields(t *testing.T) {
	f := newFixture(t)
	for _, req := range []Request{
		{Type: TypeBuilding, System: "s1"},
		{Type: TypeDistrict, System: "s1"},
		{Type: TypeBuilding, Building: "mine"},
		{Type: TypeTechnology},
		{Type: "ship"},
	} {
		if _, err := f.resolver.Create(req, f.scope(), f.vars); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
			t.Errorf("%+v: expected validation error, got %v", req, err)
		}
	}
}

func TestCreate_DistrictSlotsIncludeQueue(t *testing.T) {
	f := newFixture(t)
	scope := f.scope()

	for i := 0; i < 2; i++ {
		j, err := f.resolver.Create(Request{Type: TypeDistrict, System: "s1", District: "mining"}, scope, f.vars)
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		scope.Queued = append(scope.Queued, j)
	}
	if _, err := f.resolver.Create(Request{Type: TypeDistrict, System: "s1", District: "mining"}, scope, f.vars); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected slot error, got %v", err)
	}
}

func TestCreate_Technology(t *testing.T) {
	f := newFixture(t)
	scope := f.scope()
	scope.System = nil

	if _, err := f.resolver.Create(Request{Type: TypeTechnology, Technology: "improved_production_2"}, scope, f.vars); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected prerequisite error, got %v", err)
	}

	j, err := f.resolver.Create(Request{Type: TypeTechnology, Technology: "improved_production_1"}, scope, f.vars)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tech, _ := f.reg.Technology("improved_production_1")
	if j.Cost.Get(catalog.Research) != tech.Cost || f.empire.Resources.Get(catalog.Research) != 1000-tech.Cost {
		t.Fatalf("research cost %v, remaining %v", j.Cost, f.empire.Resources)
	}
	if j.Queue() != researchQueue {
		t.Fatalf("queue = %s", j.Queue())
	}

	scope.Queued = []*Job{j}
	if _, err := f.resolver.Create(Request{Type: TypeTechnology, Technology: "improved_production_1"}, scope, f.vars); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected duplicate research error, got %v", err)
	}
}

func TestCancel_Refunds(t *testing.T) {
	f := newFixture(t)
	j, err := f.resolver.Create(Request{Type: TypeBuilding, System: "s1", Building: "mine"}, f.scope(), f.vars)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !Cancel(j, f.empire) {
		t.Fatalf("Cancel did not refund")
	}
	if f.empire.Resources.Get(catalog.Minerals) != 1000 {
		t.Fatalf("minerals = %v", f.empire.Resources.Get(catalog.Minerals))
	}

	j.Progress = j.Total
	if Cancel(j, f.empire) {
		t.Fatalf("finished job refunded")
	}
}

func TestStep_OnlyOldestPerQueue(t *testing.T) {
	jobs := []*Job{
		{ID: "b", EmpireID: "e1", Type: TypeBuilding, System: "s1", Total: 2, CreatedAt: 2},
		{ID: "a", EmpireID: "e1", Type: TypeBuilding, System: "s1", Total: 1, CreatedAt: 1},
		{ID: "c", EmpireID: "e1", Type: TypeDistrict, System: "s2", Total: 3, CreatedAt: 3},
		{ID: "d", EmpireID: "e1", Type: TypeTechnology, Technology: "x", Total: 1, CreatedAt: 4},
		{ID: "e", EmpireID: "e1", Type: TypeTechnology, Technology: "y", Total: 1, CreatedAt: 5},
	}

	progressed, finished := Step(jobs)
	if len(progressed) != 3 {
		t.Fatalf("progressed %d jobs, want 3", len(progressed))
	}
	if jobs[0].Progress != 0 || jobs[4].Progress != 0 {
		t.Fatalf("younger jobs advanced")
	}
	if len(finished) != 2 || finished[0].ID != "a" || finished[1].ID != "d" {
		t.Fatalf("finished = %v", finished)
	}
}

func TestFinish_RefundsFailedCompletion(t *testing.T) {
	f := newFixture(t)
	f.system.Capacity = 0
	j := &Job{ID: "j", Type: TypeBuilding, System: "s1", Building: "mine", Total: 1, Progress: 1,
		Cost: catalog.Resources(map[string]float64{"minerals": 50})}

	done := f.resolver.Finish([]*Job{j}, f.empire, map[string]*system.System{"s1": f.system}, f.vars, random.New(1))
	if done != 0 {
		t.Fatalf("completed = %d", done)
	}
	if f.empire.Resources.Get(catalog.Minerals) != 1050 {
		t.Fatalf("refund missing: %v", f.empire.Resources)
	}
	if len(f.system.Buildings) != 0 {
		t.Fatalf("building added despite failure")
	}
}

func TestFinish_UnlocksTechnology(t *testing.T) {
	f := newFixture(t)
	j := &Job{ID: "j", Type: TypeTechnology, Technology: "improved_production_1", Total: 1, Progress: 1}

	if done := f.resolver.Finish([]*Job{j}, f.empire, nil, f.vars, random.New(1)); done != 1 {
		t.Fatalf("completed = %d", done)
	}
	if !f.empire.HasTechnology("improved_production_1") {
		t.Fatalf("technology not unlocked")
	}
}

func TestFinish_StaleUpgradeIsRefunded(t *testing.T) {
	f := newFixture(t)
	rival := &empire.Empire{
		ID:        "e2",
		GameID:    "g1",
		Resources: catalog.Resources(map[string]float64{"fuel": 100}),
	}
	target := system.New("s2", "g1", "Rigel", "mining", 12)
	fleets := []*fleet.Fleet{
		{EmpireID: "e1", Location: "s2", Ships: map[string]int{"science": 1}},
		{EmpireID: "e2", Location: "s2", Ships: map[string]int{"science": 1}},
	}

	mine, err := f.resolver.Create(Request{Type: TypeUpgrade, System: "s2"}, Scope{Empire: f.empire, System: target, Fleets: fleets}, f.vars)
	if err != nil {
		t.Fatalf("Create e1: %v", err)
	}
	theirs, err := f.resolver.Create(Request{Type: TypeUpgrade, System: "s2"}, Scope{Empire: rival, System: target, Fleets: fleets}, f.vars)
	if err != nil {
		t.Fatalf("Create e2: %v", err)
	}
	if theirs.Upgrade != catalog.Explored {
		t.Fatalf("job upgrade = %q, want %q", theirs.Upgrade, catalog.Explored)
	}
	paid := rival.Resources.Get(catalog.Fuel)

	systems := map[string]*system.System{"s2": target}
	mine.Progress, theirs.Progress = mine.Total, theirs.Total
	if done := f.resolver.Finish([]*Job{mine}, f.empire, systems, f.vars, random.New(1)); done != 1 {
		t.Fatalf("e1 completed = %d", done)
	}
	if done := f.resolver.Finish([]*Job{theirs}, rival, systems, f.vars, random.New(1)); done != 0 {
		t.Fatalf("e2 completed = %d", done)
	}

	if target.Upgrade != catalog.Explored || target.Owner != "e1" || target.Population != 0 {
		t.Fatalf("system = %s owner %s population %v", target.Upgrade, target.Owner, target.Population)
	}
	if got := rival.Resources.Get(catalog.Fuel); got != paid+theirs.Cost.Get(catalog.Fuel) {
		t.Fatalf("e2 fuel = %v, want refund of %v", got, theirs.Cost)
	}
}
