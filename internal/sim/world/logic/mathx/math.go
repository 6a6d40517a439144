package mathx

import "math"

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Mix64 exposes the splitmix64 finaliser for callers that need to derive a
// stream of values from one hash.
func Mix64(z uint64) uint64 { return mix64(z) }

func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// MaxCantorExtent bounds |x| and |y| for CantorPairSigned. Inside it the folded
// operands are at most 2^31, so (a+b)(a+b+1)/2 + b fits in a uint64 and the
// pairing is a bijection. Outside it distinct inputs may alias.
const MaxCantorExtent = 1 << 30

// CantorPair maps two naturals to one natural.
func CantorPair(a, b uint64) uint64 {
	s := a + b
	// Halve before multiplying so s(s+1) never overflows.
	if s%2 == 0 {
		return (s/2)*(s+1) + b
	}
	return s*((s+1)/2) + b
}

// CantorPairSigned folds each signed operand onto the naturals (0,-1,1,-2,2...
// -> 0,1,2,3,4...) and pairs the results.
func CantorPairSigned(x, y int) uint64 {
	return CantorPair(fold(x), fold(y))
}

// InCantorRange reports whether (x, y) can be paired without aliasing.
func InCantorRange(x, y int) bool {
	return AbsInt(x) <= MaxCantorExtent && AbsInt(y) <= MaxCantorExtent
}

func fold(v int) uint64 {
	if v >= 0 {
		return 2 * uint64(v)
	}
	return 2*uint64(-v) - 1
}
