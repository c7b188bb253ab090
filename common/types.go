// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/chewxy/math32"
)

// normalizedEpsilon is the tolerance on |q|^2 - 1 under which a quaternion counts as unit length.
const normalizedEpsilon = 2e-4

// Vec3 is a 3-component float32 vector.
type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Quat is a rotation quaternion stored as (x, y, z, w).
type Quat struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
	W float32 `yaml:"w"`
}

// IdentityQuat returns the no-rotation quaternion.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle builds a unit quaternion rotating angle radians about axis.
// The axis does not need to be normalized; a zero axis yields identity.
//
// Parameters:
//   - axis: the rotation axis
//   - angle: rotation angle in radians
//
// Returns:
//   - Quat: the rotation
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	l := math32.Sqrt(axis.X*axis.X + axis.Y*axis.Y + axis.Z*axis.Z)
	if l == 0 {
		return IdentityQuat()
	}
	s, c := math32.Sincos(angle / 2)
	s /= l
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: c}
}

// Length returns the Euclidean norm of q.
func (q Quat) Length() float32 {
	return math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// IsNormalized reports whether q has unit length within a small tolerance.
func (q Quat) IsNormalized() bool {
	return math32.Abs(q.X*q.X+q.Y*q.Y+q.Z*q.Z+q.W*q.W-1) <= normalizedEpsilon
}

// Normalize returns q scaled to unit length. A zero quaternion is returned unchanged.
func (q Quat) Normalize() Quat {
	l := q.Length()
	if l == 0 {
		return q
	}
	inv := 1 / l
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Mul returns the Hamilton product q * o (apply o first, then q).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Rotate applies the rotation q to v. q is assumed to be unit length.
func (q Quat) Rotate(v Vec3) Vec3 {
	// t = 2 * cross(q.xyz, v); v' = v + w*t + cross(q.xyz, t)
	tx := 2 * (q.Y*v.Z - q.Z*v.Y)
	ty := 2 * (q.Z*v.X - q.X*v.Z)
	tz := 2 * (q.X*v.Y - q.Y*v.X)
	return Vec3{
		X: v.X + q.W*tx + (q.Y*tz - q.Z*ty),
		Y: v.Y + q.W*ty + (q.Z*tx - q.X*tz),
		Z: v.Z + q.W*tz + (q.X*ty - q.Y*tx),
	}
}

// Pose is a rigid placement of a view in world space.
type Pose struct {
	Position    Vec3 `yaml:"position"`
	Orientation Quat `yaml:"orientation"`
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: IdentityQuat()}
}

// Fov holds the four half-angles of an asymmetric field of view, in radians.
// Left and Down are measured towards negative X and Y and are usually negative.
type Fov struct {
	Left  float32 `yaml:"left"`
	Right float32 `yaml:"right"`
	Down  float32 `yaml:"down"`
	Up    float32 `yaml:"up"`
}

// SymmetricFov returns a Fov with the given horizontal and vertical full angles.
func SymmetricFov(horizontal, vertical float32) Fov {
	return Fov{Left: -horizontal / 2, Right: horizontal / 2, Down: -vertical / 2, Up: vertical / 2}
}
