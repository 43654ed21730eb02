package effect

import (
	"galactic-server/internal/catalog"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/technology"
)

// Explanation attributes the final value of one variable to the sources that
// changed it.
type Explanation struct {
	Variable string                 `json:"variable"`
	Initial  float64                `json:"initial"`
	Sources  []catalog.EffectSource `json:"sources"`
	Final    float64                `json:"final"`
}

// Explain recomputes variable from initial using only the effects that target
// it. Sources without such effects are left out of the result, and the
// remaining ones carry only their matching effects.
func Explain(variable string, initial float64, sources []catalog.EffectSource) Explanation {
	var affecting []catalog.EffectSource
	for _, src := range sources {
		var matching []catalog.Effect
		for _, e := range src.Effects {
			if e.Variable == variable {
				matching = append(matching, e)
			}
		}
		if len(matching) > 0 {
			affecting = append(affecting, catalog.EffectSource{ID: src.ID, Effects: matching})
		}
	}

	vars := map[string]float64{variable: initial}
	ApplySources(vars, affecting)

	return Explanation{
		Variable: variable,
		Initial:  initial,
		Sources:  affecting,
		Final:    vars[variable],
	}
}

// ExplainEmpire explains variable for an empire with the given unlocked
// technologies and traits, starting from the catalog baseline.
func ExplainEmpire(reg *catalog.Registry, variable string, techIDs, traitIDs []string) (Explanation, error) {
	if !reg.HasVariable(variable) {
		return Explanation{}, apperrors.NotFoundf("variable %q not found", variable)
	}
	sources, err := empireSources(reg, techIDs, traitIDs)
	if err != nil {
		return Explanation{}, err
	}
	return Explain(variable, reg.Baseline()[variable], sources), nil
}

func empireSources(reg *catalog.Registry, techIDs, traitIDs []string) ([]catalog.EffectSource, error) {
	techs, err := technology.Resolve(reg, techIDs)
	if err != nil {
		return nil, err
	}
	traits := make([]*catalog.Trait, 0, len(traitIDs))
	for _, id := range traitIDs {
		t, err := reg.Trait(id)
		if err != nil {
			return nil, err
		}
		traits = append(traits, t)
	}
	return append(TechnologySources(techs), TraitSources(traits)...), nil
}

// Compute builds a fresh variable table for an empire: the catalog baseline
// with every effective technology and every trait applied in one pass.
func Compute(reg *catalog.Registry, techIDs, traitIDs []string) (Table, error) {
	sources, err := empireSources(reg, techIDs, traitIDs)
	if err != nil {
		return nil, err
	}
	vars := Table(reg.Baseline())
	ApplySources(vars, sources)
	return vars, nil
}
