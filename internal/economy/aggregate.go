package economy

import (
	"cmp"
	"math"
	"slices"

	"galactic-server/internal/catalog"
	"galactic-server/internal/effect"
	"galactic-server/internal/empire"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/system"
	"galactic-server/internal/technology"
)

// AggregateVersion changes whenever the shape or meaning of an aggregate
// changes, so cached client views can be invalidated.
const AggregateVersion = 1

const (
	AggregatePeriodicResources = "resources.periodic"
	AggregatePopGrowth         = "empire.pop.growth"
	AggregateTechnologyCost    = "technology.cost"
	AggregateTechnologyTime    = "technology.time"
	AggregateUpgradeCost       = "system.upgrade.cost"
)

// Item is one contribution to an aggregate.
type Item struct {
	Variable string  `json:"variable"`
	Count    float64 `json:"count"`
	Subtotal float64 `json:"subtotal"`
}

type Aggregate struct {
	ID      string  `json:"id"`
	Version int     `json:"version"`
	Total   float64 `json:"total"`
	Items   []Item  `json:"items"`
}

// Input is the state an aggregate is computed over. Params carries the
// aggregate's argument: "resource", "technology" or "system".
type Input struct {
	Empire          *empire.Empire
	Systems         []*system.System
	PreviousUnlocks int
	Params          map[string]string
}

// ComputeAggregate evaluates the named aggregate for an empire.
func ComputeAggregate(reg *catalog.Registry, id string, in Input) (*Aggregate, error) {
	vars, err := in.Empire.Variables(reg)
	if err != nil {
		return nil, err
	}

	var items []Item
	var total float64
	switch id {
	case AggregatePeriodicResources:
		res, err := catalog.ParseResource(in.Params["resource"])
		if err != nil {
			return nil, apperrors.WrapValidation("invalid resource parameter", err)
		}
		items = periodic(reg, vars, in.Empire, owned(in), res)
		for _, it := range items {
			total += it.Subtotal
		}

	case AggregatePopGrowth:
		for _, s := range owned(in) {
			if s.Population <= 0 {
				continue
			}
			growth := vars.Get(catalog.SystemKey(s.Upgrade, catalog.FieldPopGrowth))
			items = append(items, Item{
				Variable: catalog.SystemKey(s.Upgrade, catalog.FieldPopGrowth),
				Count:    s.Population,
				Subtotal: s.Population * (growth - 1),
			})
		}
		items = merge(items)
		for _, it := range items {
			total += it.Subtotal
		}

	case AggregateTechnologyCost, AggregateTechnologyTime:
		t, err := reg.Technology(in.Params["technology"])
		if err != nil {
			return nil, err
		}
		if id == AggregateTechnologyCost {
			items = costFactors(vars, t, in.PreviousUnlocks)
			total = technology.Cost(vars, t, in.PreviousUnlocks)
		} else {
			items = timeFactors(vars, t)
			total = technology.ResearchTime(vars, t)
		}

	case AggregateUpgradeCost:
		s := find(in.Systems, in.Params["system"])
		if s == nil {
			return nil, apperrors.NotFoundf("system %s not found", in.Params["system"])
		}
		next, err := system.CheckUpgrade(reg, s, in.Empire.ID)
		if err != nil {
			return nil, err
		}
		cost := vars.Resources(catalog.SystemKey(next.ID, catalog.FieldCost)).Round()
		for _, res := range catalog.AllResources() {
			amount := cost.Get(res)
			if amount == 0 {
				continue
			}
			value := amount * vars.Get(catalog.ResourceKey(res, catalog.FieldCreditValue))
			items = append(items, Item{
				Variable: catalog.SystemKey(next.ID, catalog.FieldCost, res.String()),
				Count:    amount,
				Subtotal: value,
			})
			total += value
		}

	default:
		return nil, apperrors.NotFoundf("aggregate %s not found", id)
	}

	if items == nil {
		items = []Item{}
	}
	return &Aggregate{ID: id, Version: AggregateVersion, Total: total, Items: items}, nil
}

// periodic lists the expected per-tick change of res, assuming every upkeep
// is paid.
func periodic(reg *catalog.Registry, vars effect.Table, e *empire.Empire, systems []*system.System, res catalog.Resource) []Item {
	var items []Item
	add := func(variable string, count, sign float64) {
		v := vars.Get(variable)
		if v == 0 || count == 0 {
			return
		}
		items = append(items, Item{Variable: variable, Count: count, Subtotal: sign * v * count})
	}
	field := func(key func(field ...string) string, f string) string {
		return key(f, res.String())
	}

	totalJobs := 0
	for _, s := range systems {
		totalJobs += s.Jobs()
		if s.Upgrade.Rank() < 0 {
			continue
		}
		add(catalog.SystemKey(s.Upgrade, catalog.FieldUpkeep, res.String()), 1, -1)

		coverage := Coverage(s)
		for _, d := range reg.Districts() {
			n := float64(s.Districts[d.ID]) * coverage
			key := func(f ...string) string { return catalog.DistrictKey(d.ID, f...) }
			add(field(key, catalog.FieldProduction), n, 1)
			add(field(key, catalog.FieldUpkeep), n, -1)
		}
		for _, b := range s.Buildings {
			key := func(f ...string) string { return catalog.BuildingKey(b, f...) }
			add(field(key, catalog.FieldProduction), coverage, 1)
			add(field(key, catalog.FieldUpkeep), coverage, -1)
		}
	}

	switch res {
	case catalog.Food:
		add(catalog.VarFoodConsumption, e.Population(), -1)
	case catalog.Credits:
		add(catalog.VarUnemployedConsumption, max(e.Population()-float64(totalJobs), 0), -1)
	}
	return merge(items)
}

// BaseCostItem labels the catalog cost of a technology in a cost breakdown;
// it is not a variable.
const BaseCostItem = "base cost"

func costFactors(vars effect.Table, t *catalog.Technology, previousUnlocks int) []Item {
	items := []Item{
		{Variable: BaseCostItem, Count: 1, Subtotal: t.Cost},
		{Variable: catalog.VarTechDifficulty, Count: 1, Subtotal: vars.Get(catalog.VarTechDifficulty)},
	}
	if repeats := min(max(previousUnlocks, 0), technology.MaxRepeatDiscounts); repeats > 0 {
		m := vars.Get(catalog.VarTechCostMultiplier)
		items = append(items, Item{Variable: catalog.VarTechCostMultiplier, Count: float64(repeats), Subtotal: math.Pow(m, float64(repeats))})
	}
	for _, tag := range t.Tags {
		key := catalog.TechnologyTagKey(tag, catalog.FieldCostMultiplier)
		items = append(items, Item{Variable: key, Count: 1, Subtotal: vars.Get(key)})
	}
	return items
}

func timeFactors(vars effect.Table, t *catalog.Technology) []Item {
	items := []Item{{Variable: catalog.VarResearchTime, Count: 1, Subtotal: vars.Get(catalog.VarResearchTime)}}
	for _, tag := range t.Tags {
		key := catalog.TechnologyTagKey(tag, catalog.FieldTimeMultiplier)
		items = append(items, Item{Variable: key, Count: 1, Subtotal: vars.Get(key)})
	}
	return items
}

// merge folds items sharing a variable and sorts them by variable.
func merge(items []Item) []Item {
	byVar := make(map[string]int)
	var out []Item
	for _, it := range items {
		if i, ok := byVar[it.Variable]; ok {
			out[i].Count += it.Count
			out[i].Subtotal += it.Subtotal
			continue
		}
		byVar[it.Variable] = len(out)
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b Item) int { return cmp.Compare(a.Variable, b.Variable) })
	return out
}

func owned(in Input) []*system.System {
	var out []*system.System
	for _, s := range in.Systems {
		if s.OwnedBy(in.Empire.ID) {
			out = append(out, s)
		}
	}
	return out
}

func find(systems []*system.System, id string) *system.System {
	for _, s := range systems {
		if s.ID == id {
			return s
		}
	}
	return nil
}
