package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/structure"
)

//go:embed structure.schema.json
var structureSchemaJSON string

type Catalogs struct {
	Structures StructureCatalog
	Realm      RealmCatalog
}

type StructureCatalog struct {
	ByID   map[string]*structure.Structure
	Defs   map[string]StructureDef
	Digest string
}

// StructureDef is the on-disk form of one structures/*.json file.
type StructureDef struct {
	ID          string           `json:"id" jsonschema:"title=Structure id,description=Identifier referenced by realm.yaml placements,pattern=^[a-z0-9_]+$,minLength=1,required"`
	Sheet       string           `json:"sheet" jsonschema:"title=Sprite sheet,description=Sheet the matrix indexes into,pattern=^[A-Z0-9_]+$,minLength=1,required"`
	Matrix      [][]*int         `json:"matrix" jsonschema:"description=Sheet cell indexes with row 0 as the visual bottom row; null is an empty cell,minItems=1,required"`
	Annotations map[string][]int `json:"annotations,omitempty" jsonschema:"description=Sheet cell indexes grouped by annotation kind"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadStructures(filepath.Join(configDir, "structures"), &c.Structures); err != nil {
		return nil, err
	}
	if err := loadRealm(filepath.Join(configDir, "realm.yaml"), c.Structures, &c.Realm); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func compileStructureSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("structure.schema.json", structureSchemaJSON)
}

func loadStructures(dir string, out *StructureCatalog) error {
	out.ByID = map[string]*structure.Structure{}
	out.Defs = map[string]StructureDef{}

	schema, err := compileStructureSchema()
	if err != nil {
		return fmt.Errorf("structure schema: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		def, s, err := parseStructure(schema, b)
		if err != nil {
			return fmt.Errorf("structure %s: %w", filepath.Base(p), err)
		}
		if _, dup := out.ByID[def.ID]; dup {
			return fmt.Errorf("structure %s: duplicate id %q", filepath.Base(p), def.ID)
		}
		out.Defs[def.ID] = def
		out.ByID[def.ID] = s
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

func parseStructure(schema *jsonschema.Schema, raw []byte) (StructureDef, *structure.Structure, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return StructureDef{}, nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return StructureDef{}, nil, err
	}

	var def StructureDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return StructureDef{}, nil, err
	}

	kinds := make(map[structure.Kind][]atlas.TileID, len(def.Annotations))
	for k, cells := range def.Annotations {
		ids := make([]atlas.TileID, 0, len(cells))
		for _, n := range cells {
			ids = append(ids, atlas.SheetTile(def.Sheet, n))
		}
		kinds[structure.Kind(k)] = ids
	}
	ann, err := structure.NewAnnotations(kinds)
	if err != nil {
		return StructureDef{}, nil, err
	}
	s, err := structure.New(def.ID, def.Sheet, def.Matrix, ann)
	if err != nil {
		return StructureDef{}, nil, err
	}
	return def, s, nil
}
