// Package technology resolves which unlocked technologies are in force and
// what researching one costs.
package technology

import (
	"math"
	"slices"

	"galactic-server/internal/catalog"
	apperrors "galactic-server/internal/shared/errors"
)

// MaxRepeatDiscounts caps how many previous unlocks reduce a cost.
const MaxRepeatDiscounts = 10

// Variables is the read side of an empire's variable table.
type Variables interface {
	Get(variable string) float64
}

// Effective drops every technology superseded by another unlocked one, that
// is, any technology whose precedes list names an unlocked id. Order is kept.
func Effective(techs []*catalog.Technology) []*catalog.Technology {
	unlocked := make(map[string]bool, len(techs))
	for _, t := range techs {
		unlocked[t.ID] = true
	}

	out := make([]*catalog.Technology, 0, len(techs))
	for _, t := range techs {
		superseded := slices.ContainsFunc(t.Precedes, func(id string) bool { return unlocked[id] })
		if !superseded {
			out = append(out, t)
		}
	}
	return out
}

// Resolve looks up unlocked technology ids in the registry.
func Resolve(reg *catalog.Registry, ids []string) ([]*catalog.Technology, error) {
	out := make([]*catalog.Technology, 0, len(ids))
	for _, id := range ids {
		t, err := reg.Technology(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// CanUnlock checks id against the unlocked list without changing it.
func CanUnlock(reg *catalog.Registry, id string, unlocked []string) (*catalog.Technology, error) {
	t, err := reg.Technology(id)
	if err != nil {
		return nil, err
	}
	if slices.Contains(unlocked, id) {
		return nil, apperrors.Validationf("technology %q is already unlocked", id)
	}
	for _, req := range t.Requires {
		if !slices.Contains(unlocked, req) {
			return nil, apperrors.Validationf("technology %q requires %q", id, req)
		}
	}
	return t, nil
}

// Unlock appends id to unlocked once its prerequisites are met.
func Unlock(reg *catalog.Registry, id string, unlocked []string) ([]string, error) {
	if _, err := CanUnlock(reg, id, unlocked); err != nil {
		return unlocked, err
	}
	return append(unlocked, id), nil
}

// Cost is the research cost of t for an empire whose user has already
// unlocked it previousUnlocks times in earlier games.
func Cost(vars Variables, t *catalog.Technology, previousUnlocks int) float64 {
	cost := t.Cost * vars.Get(catalog.VarTechDifficulty)

	repeats := min(max(previousUnlocks, 0), MaxRepeatDiscounts)
	cost *= math.Pow(vars.Get(catalog.VarTechCostMultiplier), float64(repeats))

	for _, tag := range t.Tags {
		cost *= vars.Get(catalog.TechnologyTagKey(tag, catalog.FieldCostMultiplier))
	}
	return math.Round(cost)
}

// ResearchTime is the number of periods needed to research t, at least one.
func ResearchTime(vars Variables, t *catalog.Technology) float64 {
	periods := vars.Get(catalog.VarResearchTime)
	for _, tag := range t.Tags {
		periods *= vars.Get(catalog.TechnologyTagKey(tag, catalog.FieldTimeMultiplier))
	}
	return max(math.Round(periods), 1)
}
