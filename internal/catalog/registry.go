// Package catalog holds the static game data: resources, buildings,
// districts, system types and upgrades, ships, technologies and traits.
//
// A Registry is loaded once, validated against the embedded JSON schema and
// then shared read-only by every other component.
package catalog

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"sync"

	apperrors "galactic-server/internal/shared/errors"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml data/catalog.schema.json
var dataFS embed.FS

const schemaURL = "https://galactic-server.local/schemas/catalog.schema.json"

type document struct {
	Resources      []ResourceInfo  `yaml:"resources"`
	Buildings      []Building      `yaml:"buildings"`
	Districts      []District      `yaml:"districts"`
	SystemTypes    []SystemType    `yaml:"system_types"`
	SystemUpgrades []SystemUpgrade `yaml:"system_upgrades"`
	ShipTypes      []ShipType      `yaml:"ship_types"`
	Technologies   []Technology    `yaml:"technologies"`
	Traits         []Trait         `yaml:"traits"`
	Empire         EmpireSettings  `yaml:"empire"`
	Homeworld      Homeworld       `yaml:"homeworld"`
}

// Registry is the immutable catalog. All accessors are safe for concurrent use.
type Registry struct {
	doc document

	resources    [NumResources]ResourceInfo
	buildings    map[string]*Building
	districts    map[string]*District
	systemTypes  map[string]*SystemType
	upgrades     map[Upgrade]*SystemUpgrade
	shipTypes    map[string]*ShipType
	technologies map[string]*Technology
	traits       map[string]*Trait

	baseline map[string]float64
	digest   string
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
})

// Default returns the registry built from the embedded data files.
func Default() (*Registry, error) {
	return defaultRegistry()
}

// MustDefault is Default for tests and static initialisation.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads every *.yaml file at the root of fsys, merges their top-level
// keys into one document and validates it. The schema is always the embedded
// one, so an override directory only needs the data files.
func Load(fsys fs.FS) (*Registry, error) {
	logger := slog.With("component", "catalog", "operation", "load")

	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list catalog files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	slices.Sort(files)

	merged := make(map[string]any)
	contents := make([][]byte, 0, len(files))
	hash := sha256.New()

	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		hash.Write([]byte(path.Base(name)))
		hash.Write(data)

		var generic map[string]any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for key, value := range generic {
			if _, dup := merged[key]; dup {
				return nil, fmt.Errorf("%s: key %q defined in more than one file", name, key)
			}
			merged[key] = value
		}
		contents = append(contents, data)
	}

	if err := validateSchema(merged); err != nil {
		return nil, err
	}

	var doc document
	for i, data := range contents {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", files[i], err)
		}
	}

	r, err := build(doc)
	if err != nil {
		return nil, err
	}
	r.digest = hex.EncodeToString(hash.Sum(nil))[:16]

	logger.Debug("Catalog loaded",
		"files", len(files),
		"technologies", len(r.technologies),
		"variables", len(r.baseline),
		"digest", r.digest)
	return r, nil
}

func validateSchema(merged map[string]any) error {
	schemaData, err := dataFS.ReadFile("data/catalog.schema.json")
	if err != nil {
		return fmt.Errorf("read catalog schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaData)); err != nil {
		return fmt.Errorf("add catalog schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	// the validator expects encoding/json shapes, not yaml's
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("catalog does not match schema: %w", err)
	}
	return nil
}

func build(doc document) (*Registry, error) {
	r := &Registry{
		doc:          doc,
		buildings:    make(map[string]*Building),
		districts:    make(map[string]*District),
		systemTypes:  make(map[string]*SystemType),
		upgrades:     make(map[Upgrade]*SystemUpgrade),
		shipTypes:    make(map[string]*ShipType),
		technologies: make(map[string]*Technology),
		traits:       make(map[string]*Trait),
	}

	seen := make(map[Resource]bool)
	for _, info := range doc.Resources {
		res, err := ParseResource(info.ID)
		if err != nil {
			return nil, err
		}
		if seen[res] {
			return nil, fmt.Errorf("resource %q listed twice", info.ID)
		}
		seen[res] = true
		r.resources[res] = info
	}
	for _, res := range AllResources() {
		if !seen[res] {
			return nil, fmt.Errorf("resource %q missing from catalog", res)
		}
	}

	if err := index(r.buildings, r.doc.Buildings, func(b *Building) string { return b.ID }); err != nil {
		return nil, err
	}
	if err := index(r.districts, r.doc.Districts, func(d *District) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := index(r.systemTypes, r.doc.SystemTypes, func(t *SystemType) string { return t.ID }); err != nil {
		return nil, err
	}
	if err := index(r.shipTypes, r.doc.ShipTypes, func(s *ShipType) string { return s.ID }); err != nil {
		return nil, err
	}
	if err := index(r.technologies, r.doc.Technologies, func(t *Technology) string { return t.ID }); err != nil {
		return nil, err
	}
	if err := index(r.traits, r.doc.Traits, func(t *Trait) string { return t.ID }); err != nil {
		return nil, err
	}

	for i := range r.doc.SystemUpgrades {
		u := &r.doc.SystemUpgrades[i]
		if u.ID.Rank() != i {
			return nil, fmt.Errorf("system upgrade %q out of order", u.ID)
		}
		if i+1 < len(r.doc.SystemUpgrades) && u.Next != r.doc.SystemUpgrades[i+1].ID {
			return nil, fmt.Errorf("system upgrade %q must be followed by %q", u.ID, r.doc.SystemUpgrades[i+1].ID)
		}
		r.upgrades[u.ID] = u
	}
	if last := r.doc.SystemUpgrades[len(r.doc.SystemUpgrades)-1]; last.Next != "" {
		return nil, fmt.Errorf("system upgrade %q is terminal and cannot have a next tier", last.ID)
	}

	for _, t := range r.doc.SystemTypes {
		if t.Capacity[0] > t.Capacity[1] {
			return nil, fmt.Errorf("system type %q: capacity range %v is inverted", t.ID, t.Capacity)
		}
	}

	for _, d := range r.doc.Districts {
		for systemType := range d.Chance {
			if _, ok := r.systemTypes[systemType]; !ok && systemType != "default" {
				return nil, fmt.Errorf("district %q: unknown system type %q in chance", d.ID, systemType)
			}
		}
	}

	tags := make(map[string]bool)
	for _, tag := range r.doc.Empire.TechnologyTags {
		tags[tag] = true
	}
	for _, t := range r.doc.Technologies {
		for _, tag := range t.Tags {
			if !tags[tag] {
				return nil, fmt.Errorf("technology %q: unknown tag %q", t.ID, tag)
			}
		}
		for _, ref := range slices.Concat(t.Requires, t.Precedes) {
			if _, ok := r.technologies[ref]; !ok {
				return nil, fmt.Errorf("technology %q: unknown technology %q", t.ID, ref)
			}
		}
	}
	for _, t := range r.doc.Traits {
		for _, ref := range t.Conflicts {
			if _, ok := r.traits[ref]; !ok {
				return nil, fmt.Errorf("trait %q: unknown conflicting trait %q", t.ID, ref)
			}
		}
	}

	hw := r.doc.Homeworld
	if hw.Upgrade.Rank() < Colonized.Rank() {
		return nil, fmt.Errorf("homeworld tier %q must be at least %q", hw.Upgrade, Colonized)
	}
	for _, b := range hw.Buildings {
		if _, ok := r.buildings[b]; !ok {
			return nil, fmt.Errorf("homeworld: unknown building %q", b)
		}
	}
	for d := range hw.Districts {
		if _, ok := r.districts[d]; !ok {
			return nil, fmt.Errorf("homeworld: unknown district %q", d)
		}
	}

	r.baseline = r.generateBaseline()

	for _, src := range r.EffectSources() {
		for _, e := range src.Effects {
			if _, ok := r.baseline[e.Variable]; !ok {
				return nil, fmt.Errorf("%s: effect targets unknown variable %q", src.ID, e.Variable)
			}
			if e.Multiplier != nil && *e.Multiplier < 0 {
				return nil, fmt.Errorf("%s: negative multiplier on %q", src.ID, e.Variable)
			}
		}
	}

	return r, nil
}

func index[T any](dst map[string]*T, items []T, id func(*T) string) error {
	for i := range items {
		item := &items[i]
		key := id(item)
		if _, dup := dst[key]; dup {
			return fmt.Errorf("duplicate catalog id %q", key)
		}
		dst[key] = item
	}
	return nil
}

// Digest identifies the catalog content; it changes whenever a data file does.
func (r *Registry) Digest() string { return r.digest }

func (r *Registry) Resource(res Resource) ResourceInfo { return r.resources[res] }

// StartingResources is the stock every new empire receives.
func (r *Registry) StartingResources() ResourceMap {
	var m ResourceMap
	for i, info := range r.resources {
		m[i] = info.Starting
	}
	return m
}

func (r *Registry) Building(id string) (*Building, error) {
	if b, ok := r.buildings[id]; ok {
		return b, nil
	}
	return nil, apperrors.NotFoundf("building %q not found", id)
}

func (r *Registry) Buildings() []*Building { return pointers(r.doc.Buildings) }

func (r *Registry) District(id string) (*District, error) {
	if d, ok := r.districts[id]; ok {
		return d, nil
	}
	return nil, apperrors.NotFoundf("district %q not found", id)
}

func (r *Registry) Districts() []*District { return pointers(r.doc.Districts) }

func (r *Registry) SystemType(id string) (*SystemType, error) {
	if t, ok := r.systemTypes[id]; ok {
		return t, nil
	}
	return nil, apperrors.NotFoundf("system type %q not found", id)
}

func (r *Registry) SystemTypes() []*SystemType { return pointers(r.doc.SystemTypes) }

func (r *Registry) Upgrade(id Upgrade) (*SystemUpgrade, error) {
	if u, ok := r.upgrades[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFoundf("system upgrade %q not found", id)
}

// Upgrades lists the tiers in lifecycle order.
func (r *Registry) Upgrades() []*SystemUpgrade { return pointers(r.doc.SystemUpgrades) }

func (r *Registry) ShipType(id string) (*ShipType, error) {
	if s, ok := r.shipTypes[id]; ok {
		return s, nil
	}
	return nil, apperrors.NotFoundf("ship type %q not found", id)
}

func (r *Registry) ShipTypes() []*ShipType { return pointers(r.doc.ShipTypes) }

func (r *Registry) Technology(id string) (*Technology, error) {
	if t, ok := r.technologies[id]; ok {
		return t, nil
	}
	return nil, apperrors.NotFoundf("technology %q not found", id)
}

func (r *Registry) Technologies() []*Technology { return pointers(r.doc.Technologies) }

func (r *Registry) Trait(id string) (*Trait, error) {
	if t, ok := r.traits[id]; ok {
		return t, nil
	}
	return nil, apperrors.NotFoundf("trait %q not found", id)
}

func (r *Registry) Traits() []*Trait { return pointers(r.doc.Traits) }

func (r *Registry) Empire() EmpireSettings { return r.doc.Empire }

func (r *Registry) Homeworld() Homeworld { return r.doc.Homeworld }

// EffectSources lists every technology and trait as a plain effect source.
func (r *Registry) EffectSources() []EffectSource {
	out := make([]EffectSource, 0, len(r.doc.Technologies)+len(r.doc.Traits))
	for _, t := range r.doc.Technologies {
		out = append(out, t.EffectSource)
	}
	for _, t := range r.doc.Traits {
		out = append(out, t.EffectSource)
	}
	return out
}

// Baseline returns a fresh copy of the unmodified variable table.
func (r *Registry) Baseline() map[string]float64 {
	out := make(map[string]float64, len(r.baseline))
	for k, v := range r.baseline {
		out[k] = v
	}
	return out
}

// HasVariable reports whether v belongs to the closed variable set.
func (r *Registry) HasVariable(v string) bool {
	_, ok := r.baseline[v]
	return ok
}

func pointers[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
