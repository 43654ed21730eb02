// Package effect computes an empire's variable table from the catalog
// baseline and the effects of its technologies and traits.
//
// Effects are applied in three passes over the whole effect list: every
// base is added first, then every multiplier is applied, then every bonus is
// added. A bonus is therefore never scaled, and a base added by one source is
// scaled by the multipliers of all sources.
package effect

import (
	"galactic-server/internal/catalog"
	"galactic-server/internal/technology"
)

// Table is a variable table keyed by dotted variable names.
type Table map[string]float64

// Get returns the value of v, or 0 when v is not in the table.
func (t Table) Get(v string) float64 {
	return t[v]
}

// Resources reads prefix.<resource> for every resource, e.g.
// Resources("buildings.mine.upkeep").
func (t Table) Resources(prefix string) catalog.ResourceMap {
	var m catalog.ResourceMap
	for _, res := range catalog.AllResources() {
		m[res] = t[catalog.Key(prefix, res.String())]
	}
	return m
}

// Apply runs the three effect passes over vars in place. Effects on
// variables missing from vars are ignored.
func Apply(vars map[string]float64, effects []catalog.Effect) {
	for _, e := range effects {
		if e.Base == nil {
			continue
		}
		if _, ok := vars[e.Variable]; ok {
			vars[e.Variable] += *e.Base
		}
	}
	for _, e := range effects {
		if e.Multiplier == nil {
			continue
		}
		if _, ok := vars[e.Variable]; ok {
			vars[e.Variable] *= *e.Multiplier
		}
	}
	for _, e := range effects {
		if e.Bonus == nil {
			continue
		}
		if _, ok := vars[e.Variable]; ok {
			vars[e.Variable] += *e.Bonus
		}
	}
}

// Flatten concatenates the effects of sources in order.
func Flatten(sources []catalog.EffectSource) []catalog.Effect {
	var out []catalog.Effect
	for _, s := range sources {
		out = append(out, s.Effects...)
	}
	return out
}

// ApplySources applies the effects of every source as one effect list, so the
// pass ordering holds across sources.
func ApplySources(vars map[string]float64, sources []catalog.EffectSource) {
	Apply(vars, Flatten(sources))
}

// TechnologySources returns the effect sources of the effective technologies.
func TechnologySources(techs []*catalog.Technology) []catalog.EffectSource {
	effective := technology.Effective(techs)
	out := make([]catalog.EffectSource, len(effective))
	for i, t := range effective {
		out[i] = t.EffectSource
	}
	return out
}

func TraitSources(traits []*catalog.Trait) []catalog.EffectSource {
	out := make([]catalog.EffectSource, len(traits))
	for i, t := range traits {
		out[i] = t.EffectSource
	}
	return out
}
