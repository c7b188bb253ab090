package common

import (
	"github.com/chewxy/math32"
)

// Near and far plane distances used when building per-view projection matrices.
const (
	ViewNear float32 = 0.1
	ViewFar  float32 = 100.0
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (OpenGL/WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// MulVec4 transforms a column vector by a 4x4 column-major matrix.
// Result: m * v
//
// Parameters:
//   - m: matrix (16 elements, column-major)
//   - v: homogeneous column vector
//
// Returns:
//   - [4]float32: the transformed vector
func MulVec4(m []float32, v [4]float32) [4]float32 {
	var out [4]float32
	for row := 0; row < 4; row++ {
		out[row] = m[row]*v[0] + m[4+row]*v[1] + m[8+row]*v[2] + m[12+row]*v[3]
	}
	return out
}

// Sub4 subtracts two 4x4 matrices element-wise: out = a - b.
func Sub4(out, a, b []float32) {
	for i := 0; i < 16; i++ {
		out[i] = a[i] - b[i]
	}
}

// SubVec4 subtracts two homogeneous vectors component-wise.
func SubVec4(a, b [4]float32) [4]float32 {
	return [4]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// RotationY writes a rotation of angle radians about the +Y axis into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - angle: rotation angle in radians, counter-clockwise looking down -Y
func RotationY(out []float32, angle float32) {
	s, c := math32.Sincos(angle)
	Identity(out)
	out[0] = c
	out[2] = -s
	out[8] = s
	out[10] = c
}

// Translation writes a translation matrix into out.
func Translation(out []float32, x, y, z float32) {
	Identity(out)
	out[12], out[13], out[14] = x, y, z
}

// FromRotationTranslation builds a rigid transform (rotation followed by translation)
// from a unit quaternion and a translation vector. Column-major.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - q: unit rotation quaternion
//   - t: translation
func FromRotationTranslation(out []float32, q Quat, t Vec3) {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	out[0] = 1 - (yy + zz)
	out[1] = xy + wz
	out[2] = xz - wy
	out[3] = 0

	out[4] = xy - wz
	out[5] = 1 - (xx + zz)
	out[6] = yz + wx
	out[7] = 0

	out[8] = xz + wy
	out[9] = yz - wx
	out[10] = 1 - (xx + yy)
	out[11] = 0

	out[12] = t.X
	out[13] = t.Y
	out[14] = t.Z
	out[15] = 1
}

// ProjectionFromFov builds an asymmetric right-handed projection from four field-of-view
// half angles, mapping depth into the WebGPU [0, 1] clip range.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fov: left/right/down/up angles in radians (left and down are usually negative)
//   - near: near plane distance (> 0)
//   - far: far plane distance (> near)
func ProjectionFromFov(out []float32, fov Fov, near, far float32) {
	tanLeft := math32.Tan(fov.Left)
	tanRight := math32.Tan(fov.Right)
	tanDown := math32.Tan(fov.Down)
	tanUp := math32.Tan(fov.Up)

	tanWidth := tanRight - tanLeft
	tanHeight := tanUp - tanDown

	for i := range out[:16] {
		out[i] = 0
	}
	out[0] = 2 / tanWidth
	out[5] = 2 / tanHeight
	out[8] = (tanRight + tanLeft) / tanWidth
	out[9] = (tanUp + tanDown) / tanHeight
	out[10] = -far / (far - near)
	out[11] = -1
	out[14] = -(far * near) / (far - near)
}

// MatrixFromView computes the clip-from-world matrix for one view: the FOV projection
// multiplied by the inverse of the view's pose. A zero-length orientation is treated as
// identity and a non-unit orientation is normalized before use.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - pose: the view's position and orientation in world space
//   - fov: the view's field of view
func MatrixFromView(out []float32, pose Pose, fov Fov) {
	q := pose.Orientation
	if q.Length() == 0 {
		q = IdentityQuat()
	}
	if !q.IsNormalized() {
		q = q.Normalize()
	}

	var world, viewM, proj [16]float32
	FromRotationTranslation(world[:], q, pose.Position)
	if !Invert4(viewM[:], world[:]) {
		Identity(viewM[:])
	}
	ProjectionFromFov(proj[:], fov, ViewNear, ViewFar)
	Mul4(out, proj[:], viewM[:])
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the Laplace
// expansion (cofactor) method. If the matrix is singular (determinant ≈ 0) the
// output is left unchanged and the function returns false.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(out, m []float32) bool {
	// 2x2 sub-determinants of the upper-left and lower-right quadrants.
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}

	invDet := 1.0 / det

	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet

	return true
}
