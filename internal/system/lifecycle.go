package system

import (
	"math"

	"galactic-server/internal/catalog"
	"galactic-server/internal/random"
	apperrors "galactic-server/internal/shared/errors"
)

// Variables is the read side of an empire's variable table.
type Variables interface {
	Get(variable string) float64
}

// Ship types a fleet must bring along to enter a tier.
const (
	ShipScience = "science"
	ShipColony  = "colony"
)

// RequiredShip returns the ship type needed at the system to move into tier,
// or "" when none is needed.
func RequiredShip(tier catalog.Upgrade) string {
	switch tier {
	case catalog.Explored:
		return ShipScience
	case catalog.Colonized:
		return ShipColony
	}
	return ""
}

// CheckClaim allows any empire to act on a system while it is unexplored or
// explored, and only its owner afterwards.
func CheckClaim(s *System, empireID string) error {
	if s.Upgrade.Claimable() || s.OwnedBy(empireID) {
		return nil
	}
	return apperrors.Validationf("system %s belongs to another empire", s.ID)
}

// CheckUpgrade validates moving s one tier up for empireID and returns the
// target tier.
func CheckUpgrade(reg *catalog.Registry, s *System, empireID string) (*catalog.SystemUpgrade, error) {
	current, err := reg.Upgrade(s.Upgrade)
	if err != nil {
		return nil, err
	}
	if current.Next == "" {
		return nil, apperrors.Validationf("system %s is already %s", s.ID, s.Upgrade)
	}
	if err := CheckClaim(s, empireID); err != nil {
		return nil, err
	}

	if current.Next == catalog.Colonized {
		st, err := reg.SystemType(s.Type)
		if err != nil {
			return nil, err
		}
		if !st.Colonizable {
			return nil, apperrors.Validationf("%s systems cannot be colonized", s.Type)
		}
	}
	return reg.Upgrade(current.Next)
}

// Advance moves s one tier up: exploring draws district slots, colonizing
// seeds population and claims the system, and later tiers grow capacity.
func Advance(reg *catalog.Registry, s *System, vars Variables, src random.Source, empireID string) error {
	next, err := CheckUpgrade(reg, s, empireID)
	if err != nil {
		return err
	}

	switch next.ID {
	case catalog.Explored:
		Explore(reg, s, vars, src, empireID)
	case catalog.Colonized:
		Colonize(s, vars, empireID)
	default:
		multiplier := vars.Get(catalog.SystemKey(next.ID, catalog.FieldCapacityMultiplier))
		s.Capacity = int(math.Round(float64(s.Capacity) * multiplier))
		s.Upgrade = next.ID
	}
	return nil
}

// Explore marks s explored by empireID and draws its district slots.
func Explore(reg *catalog.Registry, s *System, vars Variables, src random.Source, empireID string) {
	s.Upgrade = catalog.Explored
	s.Owner = empireID

	districts := reg.Districts()
	n := int(math.Round(vars.Get(catalog.SystemTypeKey(s.Type, catalog.FieldDistrictPercentage)) * float64(s.Capacity)))
	for range n {
		i := random.WeightedIndex(src, len(districts), func(i int) float64 {
			return vars.Get(catalog.DistrictKey(districts[i].ID, catalog.FieldChance, s.Type))
		})
		if i < 0 {
			return
		}
		s.DistrictSlots[districts[i].ID]++
	}
}

func Colonize(s *System, vars Variables, empireID string) {
	s.Upgrade = catalog.Colonized
	s.Owner = empireID
	s.Population = vars.Get(catalog.VarColonists)
}

// CheckBuilding validates adding building to s for empireID, with queued
// building and district jobs already holding part of the capacity.
func CheckBuilding(reg *catalog.Registry, s *System, empireID, building string, queued int) error {
	if _, err := reg.Building(building); err != nil {
		return err
	}
	if err := checkDeveloper(s, empireID); err != nil {
		return err
	}
	if s.Free()-queued <= 0 {
		return apperrors.Validationf("system %s has no free capacity", s.ID)
	}
	return nil
}

// CheckDistrict is CheckBuilding for districts; queuedOfType counts queued
// districts of the same type against the slot limit.
func CheckDistrict(reg *catalog.Registry, s *System, empireID, district string, queued, queuedOfType int) error {
	if _, err := reg.District(district); err != nil {
		return err
	}
	if err := checkDeveloper(s, empireID); err != nil {
		return err
	}
	if s.Free()-queued <= 0 {
		return apperrors.Validationf("system %s has no free capacity", s.ID)
	}
	if s.Districts[district]+queuedOfType >= s.DistrictSlots[district] {
		return apperrors.Validationf("system %s has no free %s district slot", s.ID, district)
	}
	return nil
}

func checkDeveloper(s *System, empireID string) error {
	if !s.OwnedBy(empireID) {
		return apperrors.Validationf("system %s is not owned by this empire", s.ID)
	}
	if s.Upgrade.Rank() < catalog.Colonized.Rank() {
		return apperrors.Validationf("system %s must be colonized first", s.ID)
	}
	return nil
}

// AddBuilding completes a building on s.
func AddBuilding(reg *catalog.Registry, s *System, empireID, building string) error {
	if err := CheckBuilding(reg, s, empireID, building, 0); err != nil {
		return err
	}
	s.Buildings = append(s.Buildings, building)
	return nil
}

// AddDistrict completes a district on s.
func AddDistrict(reg *catalog.Registry, s *System, empireID, district string) error {
	if err := CheckDistrict(reg, s, empireID, district, 0, 0); err != nil {
		return err
	}
	s.Districts[district]++
	return nil
}

// SettleHomeworld turns s into empireID's capital: explored, colonized and
// raised to the catalog's homeworld tier, then seeded with its starting
// population, buildings and districts.
func SettleHomeworld(reg *catalog.Registry, s *System, vars Variables, src random.Source, empireID string) error {
	hw := reg.Homeworld()
	s.Capacity = max(s.Capacity, hw.MinCapacity)

	for s.Upgrade.Rank() < hw.Upgrade.Rank() {
		if err := Advance(reg, s, vars, src, empireID); err != nil {
			return err
		}
	}

	s.Population = hw.Population
	s.Buildings = append(s.Buildings, hw.Buildings...)
	for d, n := range hw.Districts {
		s.Districts[d] += n
		s.DistrictSlots[d] = max(s.DistrictSlots[d], s.Districts[d])
	}
	if s.Jobs() > s.Capacity {
		return apperrors.Validationf("homeworld needs %d capacity, system %s has %d", s.Jobs(), s.ID, s.Capacity)
	}
	return nil
}
