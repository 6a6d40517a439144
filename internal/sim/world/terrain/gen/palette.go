package gen

import (
	"fmt"

	"tilerealm.dev/internal/sim/world/atlas"
)

const (
	sheetNature        = "NATURE_"
	sheetNatureSupport = "NATURE_SUPPORT_"
)

func nature(name string) atlas.TileID  { return atlas.TileID(sheetNature + name) }
func support(name string) atlas.TileID { return atlas.TileID(sheetNatureSupport + name) }

// PathTile is drawn on footpath tiles in place of the biome tile.
var PathTile = nature("GRASS_VARIANT_2")

// Palette holds the signature pool of every category plus the plain-grass
// pool vegetated categories blend in. Duplicate entries weight a pool.
type Palette struct {
	Pools map[Category][]atlas.TileID
	Grass []atlas.TileID
	// Grass tiles mixed into each vegetated pool.
	GrassBlend int
	Path       atlas.TileID
}

func DefaultPalette() Palette {
	grass := []atlas.TileID{
		nature("GRASS_VARIANT_1"),
		nature("GRASS_PLAIN"),
		nature("GRASS_VARIANT_5"),
		nature("GRASS_VARIANT_6"),
		support("GRASS_VARIANT_1_FLIPPED"),
		support("GRASS_VARIANT_2_FLIPPED"),
		support("GRASS_VARIANT_3_FLIPPED"),
		support("GRASS_VARIANT_4_FLIPPED"),
		support("GRASS_VARIANT_5_FLIPPED"),
		support("GRASS_VARIANT_6_FLIPPED"),
		support("GRASS_VARIANT_7_FLIPPED"),
		support("GRASS_VARIANT_8_FLIPPED"),
		support("GRASS_VARIANT_9_FLIPPED"),
		support("SHRUB_ON_TIDY_GRASS"),
	}
	water := []atlas.TileID{
		support("WATER_STILL"),
		support("WATER_CURRENTS_VARIANT_1"),
		support("WATER_CURRENTS_VARIANT_2"),
		support("WATER_CURRENTS_VARIANT_3"),
		support("WATER_CURRENTS_VARIANT_4"),
	}
	return Palette{
		Pools: map[Category][]atlas.TileID{
			DeepWater: {
				support("WATER_STILL"),
				support("WATER_STILL"),
				support("WATER_STILL"),
				support("WATER_CURRENTS_VARIANT_1"),
			},
			Water: water,
			Beach: {
				support("SAND_PLAIN"),
				support("SAND_PATCHY_VARIANT_1"),
				support("SAND_PATCHY_VARIANT_2"),
				support("SAND_PATCHY_VARIANT_3"),
				support("SAND_PATCHY_VARIANT_4"),
			},
			Grass: grass,
			Bush: {
				nature("BUSH_VARIANT_1"),
			},
			Shrub: {
				nature("SHRUB_ON_GRASS"),
				nature("SHRUB_DARK_ON_GRASS"),
				support("SHRUB_DARK_ON_TIDY_GRASS"),
			},
			Vine: {
				nature("VINE_ON_GRASS_VARIANT_1"),
				nature("VINE_ON_GRASS_VARIANT_2"),
				nature("VINE_ON_GRASS_VARIANT_3"),
				support("VINE_ON_PATCHY_GRASS_VARIANT_1_FLIPPED"),
				support("VINE_ON_PATCHY_GRASS_VARIANT_2_FLIPPED"),
				support("VINE_ON_PATCH_GRASS_VARIANT_3"),
				support("VINE_ON_PATCH_GRASS_VARIANT_3_FLIPPED"),
				support("VINE_ON_PATCHY_GRASS_VARIANT_1"),
				support("VINE_ON_PATCHY_GRASS_VARIANT_2"),
			},
			Forest: {
				nature("TREE_ON_GRASS"),
				support("TREE_ON_PATCHY_GRASS"),
				support("TREE_ON_PATCHY_GRASS_FLIPPED"),
				support("TREE_ON_GRASS_FLIPPED"),
			},
			Snow: {
				nature("SNOWY_SHRUB_ON_SNOW_VARIANT_1"),
				nature("SNOWY_SHRUB_ON_SNOW_VARIANT_2"),
				support("SNOWY_PLAIN_GRASS"),
				support("SNOWY_PATCHY_GRASS"),
				support("SNOWY_SHRUB_ON_SNOW_VARIANT_1_FLIPPED"),
				support("SNOWY_SHRUB_ON_SNOW_VARIANT_2_FLIPPED"),
				support("SNOWY_PATCHY_GRASS_VARIANT_2"),
				support("SNOWY_PATCHY_GRASS_VARIANT_3"),
			},
			SnowRock: {
				nature("SNOW_CAPPED_ROCK"),
			},
		},
		Grass:      grass,
		GrassBlend: 4,
		Path:       PathTile,
	}
}

func (p Palette) Validate() error {
	for _, c := range Categories() {
		if len(p.Pools[c]) == 0 {
			return fmt.Errorf("palette: category %s has an empty pool", c)
		}
	}
	if p.GrassBlend < 0 {
		return fmt.Errorf("palette: grass blend must be >= 0, got %d", p.GrassBlend)
	}
	if p.GrassBlend > len(p.Grass) {
		return fmt.Errorf("palette: grass blend %d exceeds grass pool of %d", p.GrassBlend, len(p.Grass))
	}
	if p.Path == "" {
		return fmt.Errorf("palette: path tile is empty")
	}
	return nil
}
