package catalog

// Upgrade is the ordinal lifecycle tier of a system.
type Upgrade string

const (
	Unexplored Upgrade = "unexplored"
	Explored   Upgrade = "explored"
	Colonized  Upgrade = "colonized"
	Upgraded   Upgrade = "upgraded"
	Developed  Upgrade = "developed"
)

var upgradeRanks = map[Upgrade]int{
	Unexplored: 0,
	Explored:   1,
	Colonized:  2,
	Upgraded:   3,
	Developed:  4,
}

// Rank returns the ordinal position of u, or -1 for unknown tiers.
func (u Upgrade) Rank() int {
	if r, ok := upgradeRanks[u]; ok {
		return r
	}
	return -1
}

// Claimable reports whether any empire may act on a system in this tier.
func (u Upgrade) Claimable() bool {
	return u == Unexplored || u == Explored
}

// Effect modifies one variable. Nil fields take their neutral default
// (base 0, multiplier 1, bonus 0).
type Effect struct {
	Variable   string   `yaml:"variable" json:"variable"`
	Base       *float64 `yaml:"base,omitempty" json:"base,omitempty"`
	Multiplier *float64 `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
	Bonus      *float64 `yaml:"bonus,omitempty" json:"bonus,omitempty"`
}

// EffectSource is anything contributing effects to the variable table.
type EffectSource struct {
	ID      string   `yaml:"id" json:"id"`
	Effects []Effect `yaml:"effects" json:"effects"`
}

type Technology struct {
	EffectSource `yaml:",inline"`
	Tags         []string `yaml:"tags" json:"tags"`
	Cost         float64  `yaml:"cost" json:"cost"`
	Requires     []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	Precedes     []string `yaml:"precedes,omitempty" json:"precedes,omitempty"`
}

type Trait struct {
	EffectSource `yaml:",inline"`
	Cost         int      `yaml:"cost" json:"cost"`
	Conflicts    []string `yaml:"conflicts,omitempty" json:"conflicts,omitempty"`
}

type ResourceInfo struct {
	ID          string  `yaml:"id"`
	CreditValue float64 `yaml:"credit_value"`
	Starting    float64 `yaml:"starting"`
}

type Building struct {
	ID         string      `yaml:"id"`
	BuildTime  float64     `yaml:"build_time"`
	Cost       ResourceMap `yaml:"cost"`
	Upkeep     ResourceMap `yaml:"upkeep"`
	Production ResourceMap `yaml:"production"`
}

type District struct {
	ID         string      `yaml:"id"`
	BuildTime  float64     `yaml:"build_time"`
	Cost       ResourceMap `yaml:"cost"`
	Upkeep     ResourceMap `yaml:"upkeep"`
	Production ResourceMap `yaml:"production"`
	// Chance is keyed by system type, with "default" as the fallback.
	Chance map[string]float64 `yaml:"chance"`
}

// ChanceFor resolves chance[systemType] ?? chance.default ?? 0.
func (d *District) ChanceFor(systemType string) float64 {
	if c, ok := d.Chance[systemType]; ok {
		return c
	}
	if c, ok := d.Chance["default"]; ok {
		return c
	}
	return 0
}

type SystemType struct {
	ID                 string  `yaml:"id"`
	Chance             float64 `yaml:"chance"`
	Capacity           []int   `yaml:"capacity_range"`
	DistrictPercentage float64 `yaml:"district_percentage"`
	Colonizable        bool    `yaml:"colonizable"`
}

type SystemUpgrade struct {
	ID                 Upgrade     `yaml:"id"`
	Next               Upgrade     `yaml:"next,omitempty"`
	UpgradeTime        float64     `yaml:"upgrade_time"`
	PopGrowth          float64     `yaml:"pop_growth"`
	CapacityMultiplier float64     `yaml:"capacity_multiplier"`
	Cost               ResourceMap `yaml:"cost"`
	Upkeep             ResourceMap `yaml:"upkeep"`
}

type ShipType struct {
	ID        string      `yaml:"id"`
	BuildTime float64     `yaml:"build_time"`
	Health    float64     `yaml:"health"`
	Speed     float64     `yaml:"speed"`
	Cost      ResourceMap `yaml:"cost"`
	Upkeep    ResourceMap `yaml:"upkeep"`
}

// EmpireSettings holds empire-wide baseline variables and rules.
type EmpireSettings struct {
	MaxTraitPoints int                `yaml:"max_trait_points"`
	Variables      map[string]float64 `yaml:"variables"`
	TechnologyTags []string           `yaml:"technology_tags"`
}

// Homeworld describes the starting system every empire receives.
type Homeworld struct {
	Upgrade     Upgrade        `yaml:"upgrade"`
	MinCapacity int            `yaml:"min_capacity"`
	Population  float64        `yaml:"population"`
	Buildings   []string       `yaml:"buildings"`
	Districts   map[string]int `yaml:"districts"`
}
