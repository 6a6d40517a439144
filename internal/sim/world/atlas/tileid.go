package atlas

import "strconv"

// TileID names a tile image on one of the renderer's sprite sheets, e.g.
// "NATURE_GRASS_PLAIN" or "RUBYTOWN_64".
type TileID string

// SheetTile builds the id of the n-th cell of an indexed sheet.
func SheetTile(sheet string, n int) TileID {
	return TileID(sheet + "_" + strconv.Itoa(n))
}
