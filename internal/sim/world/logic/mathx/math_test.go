package mathx

import "testing"

func TestFloorDivAndMod(t *testing.T) {
	cases := []struct {
		a, b     int
		div, mod int
	}{
		{a: 0, b: 16, div: 0, mod: 0},
		{a: 15, b: 16, div: 0, mod: 15},
		{a: 16, b: 16, div: 1, mod: 0},
		{a: -1, b: 16, div: -1, mod: 15},
		{a: -16, b: 16, div: -1, mod: 0},
		{a: -17, b: 16, div: -2, mod: 15},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.div {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.div)
		}
		if got := Mod(c.a, c.b); got != c.mod {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.mod)
		}
	}
}

func TestCantorPairSigned_KnownValues(t *testing.T) {
	cases := []struct {
		x, y int
		want uint64
	}{
		{0, 0, 0},
		{-1, 0, 1},  // fold: (1,0) -> 1
		{0, -1, 2},  // fold: (0,1) -> 2
		{1, 0, 3},   // fold: (2,0) -> 3
		{-1, -1, 4}, // fold: (1,1) -> 4
	}
	for _, c := range cases {
		if got := CantorPairSigned(c.x, c.y); got != c.want {
			t.Fatalf("CantorPairSigned(%d,%d)=%d want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestCantorPairSigned_InjectiveOverPlayRange(t *testing.T) {
	const r = 64
	seen := make(map[uint64][2]int, (2*r+1)*(2*r+1))
	for x := -r; x <= r; x++ {
		for y := -r; y <= r; y++ {
			k := CantorPairSigned(x, y)
			if prev, ok := seen[k]; ok {
				t.Fatalf("collision: (%d,%d) and (%d,%d) -> %d", prev[0], prev[1], x, y, k)
			}
			seen[k] = [2]int{x, y}
		}
	}
}

func TestCantorPairSigned_InjectiveAtExtentCorners(t *testing.T) {
	m := MaxCantorExtent
	pts := [][2]int{{m, m}, {-m, -m}, {m, -m}, {-m, m}, {m - 1, m}, {m, m - 1}, {0, m}, {m, 0}}
	seen := map[uint64][2]int{}
	for _, p := range pts {
		if !InCantorRange(p[0], p[1]) {
			t.Fatalf("expected %v in range", p)
		}
		k := CantorPairSigned(p[0], p[1])
		if prev, ok := seen[k]; ok {
			t.Fatalf("collision at extent: %v and %v", prev, p)
		}
		seen[k] = p
	}
	if InCantorRange(m+1, 0) {
		t.Fatalf("expected %d outside range", m+1)
	}
}

func TestHash2Deterministic(t *testing.T) {
	if Hash2(7, 3, -4) != Hash2(7, 3, -4) {
		t.Fatalf("hash not deterministic")
	}
	if Hash2(7, 3, -4) == Hash2(8, 3, -4) {
		t.Fatalf("seed should change hash")
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(200, 0, 160); got != 160 {
		t.Fatalf("Clamp high=%v", got)
	}
	if got := Clamp(-3, 0, 160); got != 0 {
		t.Fatalf("Clamp low=%v", got)
	}
	if got := Clamp(42.5, 0, 160); got != 42.5 {
		t.Fatalf("Clamp mid=%v", got)
	}
}
