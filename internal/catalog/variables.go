package catalog

import "strings"

// Variable key segments.
const (
	FieldBuildTime          = "build_time"
	FieldCost               = "cost"
	FieldUpkeep             = "upkeep"
	FieldProduction         = "production"
	FieldChance             = "chance"
	FieldUpgradeTime        = "upgrade_time"
	FieldPopGrowth          = "pop_growth"
	FieldCapacityMultiplier = "capacity_multiplier"
	FieldDistrictPercentage = "district_percentage"
	FieldCreditValue        = "credit_value"
	FieldStarting           = "starting"
	FieldHealth             = "health"
	FieldSpeed              = "speed"
	FieldCostMultiplier     = "cost_multiplier"
	FieldTimeMultiplier     = "time_multiplier"
)

// Empire-wide variables read by the simulator and the job resolver.
const (
	VarFoodConsumption       = "empire.pop.consumption.food"
	VarUnemployedConsumption = "empire.pop.consumption.credits.unemployed"
	VarColonists             = "empire.pop.colonists"
	VarTechDifficulty        = "empire.technologies.difficulty"
	VarTechCostMultiplier    = "empire.technologies.cost_multiplier"
	VarResearchTime          = "empire.technologies.research_time"
	VarMaxTraitPoints        = "empire.traits.max_points"
)

// Key joins variable path segments.
func Key(parts ...string) string {
	return strings.Join(parts, ".")
}

func BuildingKey(id string, field ...string) string {
	return Key(append([]string{"buildings", id}, field...)...)
}

func DistrictKey(id string, field ...string) string {
	return Key(append([]string{"districts", id}, field...)...)
}

func SystemKey(tier Upgrade, field ...string) string {
	return Key(append([]string{"systems", string(tier)}, field...)...)
}

func SystemTypeKey(id string, field ...string) string {
	return Key(append([]string{"system_types", id}, field...)...)
}

func ShipKey(id string, field ...string) string {
	return Key(append([]string{"ships", id}, field...)...)
}

func TechnologyTagKey(tag, field string) string {
	return Key("technologies", tag, field)
}

func ResourceKey(res Resource, field string) string {
	return Key("resources", res.String(), field)
}

func (r *Registry) generateBaseline() map[string]float64 {
	vars := make(map[string]float64)

	putMap := func(prefix string, m ResourceMap) {
		for _, res := range AllResources() {
			vars[Key(prefix, res.String())] = m[res]
		}
	}

	for _, res := range AllResources() {
		info := r.resources[res]
		vars[ResourceKey(res, FieldCreditValue)] = info.CreditValue
		vars[ResourceKey(res, FieldStarting)] = info.Starting
	}

	for _, t := range r.doc.SystemTypes {
		vars[SystemTypeKey(t.ID, FieldChance)] = t.Chance
		vars[SystemTypeKey(t.ID, FieldDistrictPercentage)] = t.DistrictPercentage
	}

	for _, b := range r.doc.Buildings {
		vars[BuildingKey(b.ID, FieldBuildTime)] = b.BuildTime
		putMap(BuildingKey(b.ID, FieldCost), b.Cost)
		putMap(BuildingKey(b.ID, FieldUpkeep), b.Upkeep)
		putMap(BuildingKey(b.ID, FieldProduction), b.Production)
	}

	for _, d := range r.doc.Districts {
		vars[DistrictKey(d.ID, FieldBuildTime)] = d.BuildTime
		putMap(DistrictKey(d.ID, FieldCost), d.Cost)
		putMap(DistrictKey(d.ID, FieldUpkeep), d.Upkeep)
		putMap(DistrictKey(d.ID, FieldProduction), d.Production)
		for _, t := range r.doc.SystemTypes {
			vars[DistrictKey(d.ID, FieldChance, t.ID)] = d.ChanceFor(t.ID)
		}
	}

	for _, u := range r.doc.SystemUpgrades {
		vars[SystemKey(u.ID, FieldUpgradeTime)] = u.UpgradeTime
		vars[SystemKey(u.ID, FieldPopGrowth)] = u.PopGrowth
		vars[SystemKey(u.ID, FieldCapacityMultiplier)] = u.CapacityMultiplier
		putMap(SystemKey(u.ID, FieldCost), u.Cost)
		putMap(SystemKey(u.ID, FieldUpkeep), u.Upkeep)
	}

	for _, s := range r.doc.ShipTypes {
		vars[ShipKey(s.ID, FieldBuildTime)] = s.BuildTime
		vars[ShipKey(s.ID, FieldHealth)] = s.Health
		vars[ShipKey(s.ID, FieldSpeed)] = s.Speed
		putMap(ShipKey(s.ID, FieldCost), s.Cost)
		putMap(ShipKey(s.ID, FieldUpkeep), s.Upkeep)
	}

	for name, value := range r.doc.Empire.Variables {
		vars[name] = value
	}
	vars[VarMaxTraitPoints] = float64(r.doc.Empire.MaxTraitPoints)

	for _, tag := range r.doc.Empire.TechnologyTags {
		vars[TechnologyTagKey(tag, FieldCostMultiplier)] = 1
		vars[TechnologyTagKey(tag, FieldTimeMultiplier)] = 1
	}

	return vars
}
