package world

import (
	"math"

	"tilerealm.dev/internal/sim/world/atlas"
)

// Avatar tracks one player's position in pixel space and the tile it stands
// on. Local avatars move in pixels via SetWorld; remote avatars arrive as
// tiles from the position store via SetTile.
type Avatar struct {
	ID   string
	Name string

	tileSize int
	placed   bool
	world    atlas.Coordinate
	tile     atlas.Tile

	onTile  []func(prev, next atlas.Tile)
	onWorld []func(prev, next atlas.Coordinate)
}

func NewAvatar(id, name string, tileSize int) *Avatar {
	return &Avatar{ID: id, Name: name, tileSize: tileSize}
}

// WorldToTile floors a pixel coordinate onto the tile grid.
func WorldToTile(c atlas.Coordinate, tileSize int) atlas.Tile {
	ts := float64(tileSize)
	return atlas.Tile{X: int(math.Floor(c.X / ts)), Y: int(math.Floor(c.Y / ts))}
}

// TileToWorld is the pixel centre of a tile.
func TileToWorld(t atlas.Tile, tileSize int) atlas.Coordinate {
	ts := float64(tileSize)
	return atlas.Of(float64(t.X)*ts+ts/2, float64(t.Y)*ts+ts/2)
}

// OnTileChange registers fn to run whenever the avatar enters a new tile,
// including its first placement.
func (a *Avatar) OnTileChange(fn func(prev, next atlas.Tile)) {
	a.onTile = append(a.onTile, fn)
}

func (a *Avatar) OnWorldChange(fn func(prev, next atlas.Coordinate)) {
	a.onWorld = append(a.onWorld, fn)
}

func (a *Avatar) Placed() bool { return a.placed }

func (a *Avatar) World() (atlas.Coordinate, bool) { return a.world, a.placed }

func (a *Avatar) Tile() (atlas.Tile, bool) { return a.tile, a.placed }

// SetWorld moves the avatar to a pixel coordinate. Callbacks only fire for
// values that actually changed.
func (a *Avatar) SetWorld(c atlas.Coordinate) {
	c = atlas.Of(c.X, c.Y)
	first := !a.placed
	prevWorld, prevTile := a.world, a.tile
	a.world = c
	a.tile = WorldToTile(c, a.tileSize)
	a.placed = true

	if first || prevWorld != c {
		for _, fn := range a.onWorld {
			fn(prevWorld, c)
		}
	}
	if first || prevTile != a.tile {
		for _, fn := range a.onTile {
			fn(prevTile, a.tile)
		}
	}
}

// SetTile snaps the avatar to the centre of t.
func (a *Avatar) SetTile(t atlas.Tile) {
	if a.placed && a.tile == t {
		return
	}
	a.SetWorld(TileToWorld(t, a.tileSize))
}

// ViewportBound is the tile-space rectangle of height × width tiles centred on
// the avatar's exact position.
func (a *Avatar) ViewportBound(height, width float64) (atlas.CartesianBound, error) {
	if !a.placed {
		return atlas.CartesianBound{}, ErrNoAvatar
	}
	ts := float64(a.tileSize)
	centre := atlas.Of(a.world.X/ts, a.world.Y/ts)
	return atlas.FromMidPointAdvanced(centre, height/2, width/2)
}
