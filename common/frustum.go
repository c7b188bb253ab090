package common

// Clip-space boundary planes. A homogeneous point p is inside the WebGPU clip volume
// when -w <= x <= w, -w <= y <= w and 0 <= z <= w.
const (
	ClipLeft   = 0
	ClipRight  = 1
	ClipBottom = 2
	ClipTop    = 3
	ClipNear   = 4
	ClipFar    = 5
)

// Outcode returns a bit mask of the clip planes the homogeneous point p lies outside of.
// Bit i is set when p is outside plane i (see the Clip* constants).
//
// Parameters:
//   - p: clip-space position (x, y, z, w)
//
// Returns:
//   - uint8: the outcode, zero when p is inside the clip volume
func Outcode(p [4]float32) uint8 {
	var code uint8
	x, y, z, w := p[0], p[1], p[2], p[3]
	if x < -w {
		code |= 1 << ClipLeft
	}
	if x > w {
		code |= 1 << ClipRight
	}
	if y < -w {
		code |= 1 << ClipBottom
	}
	if y > w {
		code |= 1 << ClipTop
	}
	if z < 0 {
		code |= 1 << ClipNear
	}
	if z > w {
		code |= 1 << ClipFar
	}
	return code
}

// TriangleOutside reports whether all three vertices lie outside the same clip plane,
// in which case the triangle cannot cover any part of the viewport.
//
// Parameters:
//   - tri: the three clip-space vertex positions
//
// Returns:
//   - bool: true if the triangle can be trivially rejected
func TriangleOutside(tri [3][4]float32) bool {
	return Outcode(tri[0])&Outcode(tri[1])&Outcode(tri[2]) != 0
}
