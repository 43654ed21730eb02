// Package economy advances empires by one period: upkeep, production and
// population growth.
package economy

import (
	"log/slog"

	"galactic-server/internal/catalog"
	"galactic-server/internal/effect"
	"galactic-server/internal/empire"
	"galactic-server/internal/system"
)

// Report summarises what an empire could not pay during one tick.
type Report struct {
	EmpireID       string
	FoodPaid       bool
	UnemployedPaid bool
	// UnpaidSystems lists systems whose tier upkeep could not be paid.
	UnpaidSystems []string
	// UnpaidItems counts buildings and district types that did not produce.
	UnpaidItems int
	Growth      bool
}

type Simulator struct {
	reg    *catalog.Registry
	logger *slog.Logger
}

func NewSimulator(reg *catalog.Registry, logger *slog.Logger) *Simulator {
	return &Simulator{reg: reg, logger: logger}
}

// Tick advances e and the systems it owns by one period. The variable table
// is computed fresh from the empire's technologies and traits.
func (s *Simulator) Tick(e *empire.Empire, owned []*system.System) (Report, effect.Table, error) {
	vars, err := e.Variables(s.reg)
	if err != nil {
		return Report{EmpireID: e.ID}, nil, err
	}
	report := s.settle(vars, e, owned)

	if !report.FoodPaid || len(report.UnpaidSystems) > 0 || report.UnpaidItems > 0 {
		s.logger.Debug("Empire could not pay all upkeep",
			"component", "economy",
			"operation", "tick",
			"empire_id", e.ID,
			"food_paid", report.FoodPaid,
			"unpaid_systems", len(report.UnpaidSystems),
			"unpaid_items", report.UnpaidItems)
	}
	return report, vars, nil
}

func (s *Simulator) settle(vars effect.Table, e *empire.Empire, owned []*system.System) Report {
	report := Report{EmpireID: e.ID}

	// population food upkeep
	var food catalog.ResourceMap
	food.Set(catalog.Food, vars.Get(catalog.VarFoodConsumption)*e.Population())
	report.FoodPaid = e.Deduct(food)

	paid := make([]*system.System, 0, len(owned))
	totalJobs := 0
	for _, sys := range owned {
		totalJobs += sys.Jobs()

		if sys.Upgrade.Rank() < 0 {
			continue
		}
		// tier upkeep is all or nothing
		if !e.TryDeduct(vars.Resources(catalog.SystemKey(sys.Upgrade, catalog.FieldUpkeep))) {
			report.UnpaidSystems = append(report.UnpaidSystems, sys.ID)
			continue
		}
		paid = append(paid, sys)

		report.UnpaidItems += s.produce(vars, e, sys)
	}

	unemployed := e.Population() - float64(totalJobs)
	report.UnemployedPaid = true
	if unemployed > 0 {
		var credits catalog.ResourceMap
		credits.Set(catalog.Credits, vars.Get(catalog.VarUnemployedConsumption)*unemployed)
		report.UnemployedPaid = e.Deduct(credits)
	}

	if e.Resources.Get(catalog.Food) > 0 {
		report.Growth = true
		for _, sys := range paid {
			sys.Population *= vars.Get(catalog.SystemKey(sys.Upgrade, catalog.FieldPopGrowth))
		}
	}

	population := 0.0
	for _, sys := range owned {
		population += sys.Population
	}
	e.SetPopulation(population)

	return report
}

// produce runs the districts and buildings of one system, each paying its
// own upkeep scaled by how many of its jobs are filled. It returns how many
// items could not pay.
func (s *Simulator) produce(vars effect.Table, e *empire.Empire, sys *system.System) int {
	coverage := Coverage(sys)
	unpaid := 0

	run := func(prefix func(field string) string, scale float64) {
		if scale <= 0 {
			return
		}
		upkeep := vars.Resources(prefix(catalog.FieldUpkeep)).Scale(scale)
		if !e.Deduct(upkeep) {
			unpaid++
			return
		}
		e.Add(vars.Resources(prefix(catalog.FieldProduction)).Scale(scale))
	}

	for _, d := range s.reg.Districts() {
		count := sys.Districts[d.ID]
		if count == 0 {
			continue
		}
		run(func(field string) string { return catalog.DistrictKey(d.ID, field) }, float64(count)*coverage)
	}
	for _, b := range sys.Buildings {
		run(func(field string) string { return catalog.BuildingKey(b, field) }, coverage)
	}
	return unpaid
}

// Coverage is the share of a system's jobs its population fills, in [0, 1].
func Coverage(sys *system.System) float64 {
	jobs := sys.Jobs()
	if jobs == 0 {
		return 0
	}
	return min(max(sys.Population/float64(jobs), 0), 1)
}
