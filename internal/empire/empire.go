package empire

import (
	"slices"
	"strings"

	"galactic-server/internal/catalog"
	"galactic-server/internal/effect"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/technology"

	"github.com/google/uuid"
)

// ValidateTraits checks a trait pick: every trait exists, none repeats, no
// two conflict and the total cost fits the trait point budget.
func ValidateTraits(reg *catalog.Registry, traits []string) error {
	points := 0
	for i, id := range traits {
		t, err := reg.Trait(id)
		if err != nil {
			return err
		}
		if slices.Contains(traits[:i], id) {
			return apperrors.Validationf("trait %q chosen twice", id)
		}
		for _, other := range traits {
			if slices.Contains(t.Conflicts, other) {
				return apperrors.Validationf("trait %q conflicts with %q", id, other)
			}
		}
		points += t.Cost
	}

	if limit := reg.Empire().MaxTraitPoints; points > limit {
		return apperrors.Validationf("traits cost %d points, at most %d allowed", points, limit)
	}
	return nil
}

// New creates an empire with validated traits and the starting stock those
// traits yield.
func New(reg *catalog.Registry, gameID, userID string, req CreateRequest) (*Empire, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("empire name is required")
	}
	if err := ValidateTraits(reg, req.Traits); err != nil {
		return nil, err
	}

	e := &Empire{
		ID:           uuid.NewString(),
		GameID:       gameID,
		UserID:       userID,
		Name:         name,
		Color:        req.Color,
		Technologies: []string{},
		Traits:       slices.Clone(req.Traits),
		Version:      1,
	}
	if e.Traits == nil {
		e.Traits = []string{}
	}

	vars, err := e.Variables(reg)
	if err != nil {
		return nil, err
	}
	for _, res := range catalog.AllResources() {
		e.Resources[res] = vars.Get(catalog.ResourceKey(res, catalog.FieldStarting))
	}
	return e, nil
}

// Variables computes the empire's current variable table.
func (e *Empire) Variables(reg *catalog.Registry) (effect.Table, error) {
	return effect.Compute(reg, e.Technologies, e.Traits)
}

func (e *Empire) HasTechnology(id string) bool {
	return slices.Contains(e.Technologies, id)
}

func (e *Empire) UnlockTechnology(reg *catalog.Registry, id string) error {
	unlocked, err := technology.Unlock(reg, id, e.Technologies)
	if err != nil {
		return err
	}
	e.Technologies = unlocked
	return nil
}

// Pay removes cost all at once, or nothing when any resource is short.
func (e *Empire) Pay(cost catalog.ResourceMap) error {
	if missing := e.Resources.Missing(cost); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, r := range missing {
			names[i] = r.String()
		}
		return apperrors.Validationf("not enough %s", strings.Join(names, ", "))
	}
	e.subtract(cost)
	return nil
}

// TryDeduct is Pay without the error: it reports whether cost was removed.
func (e *Empire) TryDeduct(cost catalog.ResourceMap) bool {
	if !e.Resources.Covers(cost) {
		return false
	}
	e.subtract(cost)
	return true
}

// Deduct removes amounts resource by resource. A short resource is zeroed
// and Deduct reports false; the other resources are still charged.
func (e *Empire) Deduct(amounts catalog.ResourceMap) bool {
	paid := true
	for i, amount := range amounts {
		if amount <= 0 {
			continue
		}
		if e.Resources[i] < amount {
			e.Resources[i] = 0
			paid = false
			continue
		}
		e.Resources[i] -= amount
	}
	return paid
}

// Add credits amounts to the stock.
func (e *Empire) Add(amounts catalog.ResourceMap) {
	e.Resources = e.Resources.Plus(amounts)
}

func (e *Empire) subtract(cost catalog.ResourceMap) {
	for i, c := range cost {
		if c > 0 {
			e.Resources[i] -= c
		}
	}
}
