package economy

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"galactic-server/internal/catalog"
	"galactic-server/internal/effect"
	"galactic-server/internal/empire"
	"galactic-server/internal/random"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/system"
	"galactic-server/internal/technology"
)

func newSimulator() *Simulator {
	return NewSimulator(catalog.MustDefault(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func colony(id, owner string, pop float64, buildings ...string) *system.System {
	s := system.New(id, "g1", id, "regular", 20)
	s.Upgrade = catalog.Colonized
	s.Owner = owner
	s.Population = pop
	s.Buildings = buildings
	return s
}

func TestSettle_ItemShortfallOnlySkipsThatItem(t *testing.T) {
	sim := newSimulator()
	vars := effect.Table(sim.reg.Baseline())
	vars[catalog.BuildingKey("power_plant", catalog.FieldUpkeep, "minerals")] = 60

	e := &empire.Empire{ID: "e1", Resources: catalog.Resources(map[string]float64{
		"minerals": 50, "energy": 100, "fuel": 100, "food": 100,
	})}
	s := colony("s1", "e1", 2, "power_plant", "farm")
	e.SetPopulation(2)

	report := sim.settle(vars, e, []*system.System{s})

	if got := e.Resources.Get(catalog.Minerals); got != 0 {
		t.Fatalf("minerals = %v, want 0", got)
	}
	// tier upkeep and the farm's upkeep, no power plant output
	if got := e.Resources.Get(catalog.Energy); got != 98 {
		t.Fatalf("energy = %v, want 98", got)
	}
	if got := e.Resources.Get(catalog.Food); math.Abs(got-105.8) > 1e-9 {
		t.Fatalf("food = %v, want 105.8", got)
	}
	if report.UnpaidItems != 1 || len(report.UnpaidSystems) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if !report.Growth || math.Abs(s.Population-2.1) > 1e-9 || e.Population() != s.Population {
		t.Fatalf("population system %v empire %v", s.Population, e.Population())
	}
}

func TestSettle_TierUpkeepIsAllOrNothing(t *testing.T) {
	sim := newSimulator()
	vars := effect.Table(sim.reg.Baseline())

	e := &empire.Empire{ID: "e1", Resources: catalog.Resources(map[string]float64{
		"energy": 5, "food": 100, "minerals": 100,
	})}
	s := colony("s1", "e1", 2, "farm")
	e.SetPopulation(2)

	report := sim.settle(vars, e, []*system.System{s})

	if len(report.UnpaidSystems) != 1 || report.UnpaidSystems[0] != "s1" {
		t.Fatalf("unpaid systems = %v", report.UnpaidSystems)
	}
	// colonized upkeep needs fuel too, so not even the energy is taken
	if e.Resources.Get(catalog.Energy) != 5 {
		t.Fatalf("energy = %v, want 5", e.Resources.Get(catalog.Energy))
	}
	if s.Population != 2 {
		t.Fatalf("unpaid system grew to %v", s.Population)
	}
}

func TestSettle_FoodShortfallClampsAndStopsGrowth(t *testing.T) {
	sim := newSimulator()
	vars := effect.Table(sim.reg.Baseline())

	e := &empire.Empire{ID: "e1", Resources: catalog.Resources(map[string]float64{
		"energy": 10, "fuel": 10, "food": 0.5,
	})}
	s := colony("s1", "e1", 40)
	e.SetPopulation(40)

	report := sim.settle(vars, e, []*system.System{s})
	if report.FoodPaid || report.Growth {
		t.Fatalf("report = %+v", report)
	}
	if e.Resources.Get(catalog.Food) != 0 || s.Population != 40 {
		t.Fatalf("food %v population %v", e.Resources.Get(catalog.Food), s.Population)
	}
	// 40 unemployed at 0.1 credits each, from an empty treasury
	if report.UnemployedPaid || e.Resources.Get(catalog.Credits) != 0 {
		t.Fatalf("credits = %v", e.Resources.Get(catalog.Credits))
	}
}

func TestTick_NoResourceGoesNegative(t *testing.T) {
	sim := newSimulator()
	src := random.New(42)
	buildings := []string{"exchange", "power_plant", "mine", "farm", "research_lab", "foundry", "factory", "shipyard"}

	for round := 0; round < 50; round++ {
		e := &empire.Empire{ID: "e1"}
		for _, r := range catalog.AllResources() {
			if r != catalog.Population {
				e.Resources.Set(r, float64(src.IntN(6)))
			}
		}

		var owned []*system.System
		pop := 0.0
		for i := 0; i < 1+src.IntN(4); i++ {
			s := colony("s", "e1", float64(src.IntN(12)))
			s.Upgrade = []catalog.Upgrade{catalog.Explored, catalog.Colonized, catalog.Upgraded, catalog.Developed}[src.IntN(4)]
			for j := 0; j < src.IntN(5); j++ {
				s.Buildings = append(s.Buildings, random.Choice(src, buildings))
			}
			s.Districts["mining"] = src.IntN(3)
			s.Districts["city"] = src.IntN(3)
			pop += s.Population
			owned = append(owned, s)
		}
		e.SetPopulation(pop)

		for tick := 0; tick < 5; tick++ {
			if _, _, err := sim.Tick(e, owned); err != nil {
				t.Fatalf("Tick: %v", err)
			}
			for _, r := range catalog.AllResources() {
				if v := e.Resources.Get(r); v < 0 {
					t.Fatalf("round %d tick %d: %s = %v", round, tick, r, v)
				}
			}
		}
	}
}

func TestPeriodicAggregateMatchesTick(t *testing.T) {
	sim := newSimulator()
	reg := sim.reg

	e := &empire.Empire{ID: "e1"}
	for _, r := range catalog.AllResources() {
		e.Resources.Set(r, 10000)
	}
	hw := system.New("s1", "g1", "Sol", "regular", 20)
	if err := system.SettleHomeworld(reg, hw, effect.Table(reg.Baseline()), random.New(3), "e1"); err != nil {
		t.Fatalf("SettleHomeworld: %v", err)
	}
	e.SetPopulation(hw.Population)
	systems := []*system.System{hw}

	expected := make(map[catalog.Resource]float64)
	for _, r := range catalog.AllResources() {
		if r == catalog.Population {
			continue
		}
		agg, err := ComputeAggregate(reg, AggregatePeriodicResources, Input{
			Empire: e, Systems: systems, Params: map[string]string{"resource": r.String()},
		})
		if err != nil {
			t.Fatalf("aggregate %s: %v", r, err)
		}
		expected[r] = e.Resources.Get(r) + agg.Total
	}

	if _, _, err := sim.Tick(e, systems); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	for r, want := range expected {
		if got := e.Resources.Get(r); math.Abs(got-want) > 1e-6 {
			t.Errorf("%s = %v, aggregate predicted %v", r, got, want)
		}
	}
}

func TestComputeAggregate(t *testing.T) {
	reg := catalog.MustDefault()
	vars := effect.Table(reg.Baseline())
	e := &empire.Empire{ID: "e1"}
	s := colony("s1", "e1", 10)

	tech, _ := reg.Technology("improved_production_1")
	agg, err := ComputeAggregate(reg, AggregateTechnologyCost, Input{
		Empire: e, PreviousUnlocks: 2, Params: map[string]string{"technology": tech.ID},
	})
	if err != nil {
		t.Fatalf("technology.cost: %v", err)
	}
	if agg.Total != technology.Cost(vars, tech, 2) || agg.Version != AggregateVersion {
		t.Fatalf("technology.cost = %+v", agg)
	}

	agg, err = ComputeAggregate(reg, AggregateUpgradeCost, Input{
		Empire: e, Systems: []*system.System{s}, Params: map[string]string{"system": "s1"},
	})
	if err != nil {
		t.Fatalf("system.upgrade.cost: %v", err)
	}
	want := 100*vars.Get(catalog.ResourceKey(catalog.Minerals, catalog.FieldCreditValue)) +
		100*vars.Get(catalog.ResourceKey(catalog.Alloys, catalog.FieldCreditValue))
	if len(agg.Items) != 2 || math.Abs(agg.Total-want) > 1e-9 {
		t.Fatalf("system.upgrade.cost = %+v, want total %v", agg, want)
	}

	agg, err = ComputeAggregate(reg, AggregatePopGrowth, Input{Empire: e, Systems: []*system.System{s}})
	if err != nil {
		t.Fatalf("empire.pop.growth: %v", err)
	}
	if math.Abs(agg.Total-0.5) > 1e-9 {
		t.Fatalf("empire.pop.growth total = %v, want 0.5", agg.Total)
	}

	if _, err := ComputeAggregate(reg, "fleet.speed", Input{Empire: e}); !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := ComputeAggregate(reg, AggregatePeriodicResources, Input{Empire: e, Params: map[string]string{"resource": "gold"}}); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputeAggregate_TechnologyCostItems(t *testing.T) {
	reg := catalog.MustDefault()
	tech, _ := reg.Technology("improved_production_1")

	agg, err := ComputeAggregate(reg, AggregateTechnologyCost, Input{
		Empire: &empire.Empire{ID: "e1"}, PreviousUnlocks: 25, Params: map[string]string{"technology": tech.ID},
	})
	if err != nil {
		t.Fatalf("technology.cost: %v", err)
	}

	var base, repeats *Item
	for i, it := range agg.Items {
		switch it.Variable {
		case BaseCostItem:
			base = &agg.Items[i]
		case catalog.VarTechCostMultiplier:
			repeats = &agg.Items[i]
		default:
			if !reg.HasVariable(it.Variable) {
				t.Fatalf("item %q is not a known variable", it.Variable)
			}
		}
	}
	if base == nil || base.Subtotal != tech.Cost {
		t.Fatalf("base cost item = %+v", base)
	}
	if repeats == nil || repeats.Count != technology.MaxRepeatDiscounts {
		t.Fatalf("repeat item = %+v, want count %d", repeats, technology.MaxRepeatDiscounts)
	}
}
