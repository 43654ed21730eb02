package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resource is the closed set of empire resources.
type Resource uint8

const (
	Credits Resource = iota
	Energy
	Minerals
	Food
	Fuel
	Research
	Alloys
	ConsumerGoods
	Population

	NumResources int = iota
)

var resourceNames = [NumResources]string{
	Credits:       "credits",
	Energy:        "energy",
	Minerals:      "minerals",
	Food:          "food",
	Fuel:          "fuel",
	Research:      "research",
	Alloys:        "alloys",
	ConsumerGoods: "consumer_goods",
	Population:    "population",
}

// AllResources lists every resource in declaration order.
func AllResources() []Resource {
	out := make([]Resource, NumResources)
	for i := range out {
		out[i] = Resource(i)
	}
	return out
}

func (r Resource) String() string {
	if int(r) < NumResources {
		return resourceNames[r]
	}
	return fmt.Sprintf("resource(%d)", r)
}

// ParseResource maps a resource name to its enum value.
func ParseResource(name string) (Resource, error) {
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", name)
}

// ResourceMap holds a quantity per resource; absent entries are zero.
type ResourceMap [NumResources]float64

// Resources builds a map from name/amount pairs; it panics on unknown names and
// is meant for literals in tests and static tables.
func Resources(pairs map[string]float64) ResourceMap {
	var m ResourceMap
	for name, v := range pairs {
		r, err := ParseResource(name)
		if err != nil {
			panic(err)
		}
		m[r] = v
	}
	return m
}

func (m ResourceMap) Get(r Resource) float64 { return m[r] }

func (m *ResourceMap) Set(r Resource, v float64) { m[r] = v }

// Scale returns m with every entry multiplied by f.
func (m ResourceMap) Scale(f float64) ResourceMap {
	for i := range m {
		m[i] *= f
	}
	return m
}

// Plus returns the entrywise sum.
func (m ResourceMap) Plus(o ResourceMap) ResourceMap {
	for i := range m {
		m[i] += o[i]
	}
	return m
}

// Round returns m with entries rounded to the nearest integer.
func (m ResourceMap) Round() ResourceMap {
	for i := range m {
		m[i] = math.Round(m[i])
	}
	return m
}

// Covers reports whether m holds at least cost of every resource.
func (m ResourceMap) Covers(cost ResourceMap) bool {
	for i, c := range cost {
		if c > 0 && m[i] < c {
			return false
		}
	}
	return true
}

// Missing lists the resources for which m falls short of cost.
func (m ResourceMap) Missing(cost ResourceMap) []Resource {
	var out []Resource
	for i, c := range cost {
		if c > 0 && m[i] < c {
			out = append(out, Resource(i))
		}
	}
	return out
}

// Named returns the non-zero entries keyed by resource name.
func (m ResourceMap) Named() map[string]float64 {
	out := make(map[string]float64)
	for i, v := range m {
		if v != 0 {
			out[resourceNames[i]] = v
		}
	}
	return out
}

func (m ResourceMap) String() string {
	var parts []string
	for i, v := range m {
		if v != 0 {
			parts = append(parts, fmt.Sprintf("%s=%g", resourceNames[i], v))
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (m ResourceMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Named())
}

func (m *ResourceMap) UnmarshalJSON(data []byte) error {
	var named map[string]float64
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	return m.fromNamed(named)
}

func (m *ResourceMap) UnmarshalYAML(value *yaml.Node) error {
	var named map[string]float64
	if err := value.Decode(&named); err != nil {
		return err
	}
	return m.fromNamed(named)
}

func (m *ResourceMap) fromNamed(named map[string]float64) error {
	*m = ResourceMap{}
	for name, v := range named {
		r, err := ParseResource(name)
		if err != nil {
			return err
		}
		m[r] = v
	}
	return nil
}
