package catalogs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/structure"
)

// RealmCatalog is the hand-laid part of a realm: where structures stand and
// where footpaths run.
type RealmCatalog struct {
	Layout   RealmLayout
	Provider *structure.Provider
	Paths    []atlas.CartesianBound
	Spawn    atlas.Tile
	Digest   string
}

// RealmLayout is the on-disk form of realm.yaml. The json tags only feed
// cmd/schemagen.
type RealmLayout struct {
	// Spawn is where avatars without a stored position appear.
	Spawn      [2]int         `yaml:"spawn" json:"spawn" jsonschema:"description=Spawn tile as [x y]"`
	Structures []PlacementDef `yaml:"structures" json:"structures,omitempty" jsonschema:"description=Structure placements by top-left tile"`
	Paths      []PathDef      `yaml:"paths" json:"paths,omitempty" jsonschema:"description=Footpath rectangles"`
}

type PlacementDef struct {
	Structure string `yaml:"structure" json:"structure" jsonschema:"description=Id of a structures/*.json file,pattern=^[a-z0-9_]+$"`
	X         int    `yaml:"x" json:"x"`
	Y         int    `yaml:"y" json:"y"`
}

// PathDef is an inclusive tile rectangle; both axes need Max > Min.
type PathDef struct {
	Name string `yaml:"name" json:"name"`
	Min  [2]int `yaml:"min" json:"min" jsonschema:"description=Inclusive min corner as [x y]"`
	Max  [2]int `yaml:"max" json:"max" jsonschema:"description=Inclusive max corner as [x y]"`
}

func (p PathDef) Bound() (atlas.CartesianBound, error) {
	return atlas.NewBound(
		atlas.Of(float64(p.Max[0]), float64(p.Max[1])),
		atlas.Of(float64(p.Max[0]), float64(p.Min[1])),
		atlas.Of(float64(p.Min[0]), float64(p.Max[1])),
		atlas.Of(float64(p.Min[0]), float64(p.Min[1])),
	)
}

func loadRealm(path string, structs StructureCatalog, out *RealmCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			out.Provider = structure.NewProvider()
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := yaml.Unmarshal(raw, &out.Layout); err != nil {
		return fmt.Errorf("realm.yaml: %w", err)
	}
	return out.build(structs)
}

func (r *RealmCatalog) build(structs StructureCatalog) error {
	placed := make([]structure.Placed, 0, len(r.Layout.Structures))
	for i, p := range r.Layout.Structures {
		s, ok := structs.ByID[p.Structure]
		if !ok {
			return fmt.Errorf("realm.yaml: structures[%d]: unknown structure %q", i, p.Structure)
		}
		placed = append(placed, structure.Placed{TopLeft: atlas.T(p.X, p.Y), Structure: s})
	}
	r.Provider = structure.NewProvider(placed...)
	if err := r.Provider.Validate(); err != nil {
		return fmt.Errorf("realm.yaml: %w", err)
	}

	r.Paths = r.Paths[:0]
	for i, p := range r.Layout.Paths {
		b, err := p.Bound()
		if err != nil {
			return fmt.Errorf("realm.yaml: paths[%d] %q: %w", i, p.Name, err)
		}
		r.Paths = append(r.Paths, b)
	}

	r.Spawn = atlas.T(r.Layout.Spawn[0], r.Layout.Spawn[1])
	hit, err := r.Provider.Intersecting(r.Spawn)
	if err != nil {
		return fmt.Errorf("realm.yaml: spawn: %w", err)
	}
	if hit != nil {
		if _, ok := hit.TileAt(r.Spawn); ok {
			return fmt.Errorf("realm.yaml: spawn %s is inside %s", r.Spawn, hit)
		}
	}
	return nil
}
