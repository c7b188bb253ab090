package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

func assertMatInDelta(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], eps, "element %d", i)
	}
}

func TestMulVec4Identity(t *testing.T) {
	var m [16]float32
	Identity(m[:])
	v := [4]float32{1, -2, 3, 1}
	assert.Equal(t, v, MulVec4(m[:], v))
}

func TestMul4Translation(t *testing.T) {
	var a, b, out [16]float32
	Translation(a[:], 1, 2, 3)
	Translation(b[:], -1, 0, 4)
	Mul4(out[:], a[:], b[:])

	got := MulVec4(out[:], [4]float32{0, 0, 0, 1})
	assert.Equal(t, [4]float32{0, 2, 7, 1}, got)
}

func TestRotationY(t *testing.T) {
	tests := []struct {
		name  string
		angle float32
		in    [4]float32
		want  [4]float32
	}{
		{"quarter turn maps +X to -Z", math32.Pi / 2, [4]float32{1, 0, 0, 1}, [4]float32{0, 0, -1, 1}},
		{"quarter turn maps +Z to +X", math32.Pi / 2, [4]float32{0, 0, 1, 1}, [4]float32{1, 0, 0, 1}},
		{"half turn mirrors X and Z", math32.Pi, [4]float32{1, -1, 0.5, 1}, [4]float32{-1, -1, -0.5, 1}},
		{"Y is unchanged", 1.234, [4]float32{0, 7, 0, 1}, [4]float32{0, 7, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m [16]float32
			RotationY(m[:], tt.angle)
			got := MulVec4(m[:], tt.in)
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], eps)
			}
		})
	}
}

func TestSub4(t *testing.T) {
	var a, b, out [16]float32
	Identity(a[:])
	Translation(b[:], 1, 2, 3)
	Sub4(out[:], b[:], a[:])

	want := [16]float32{}
	want[12], want[13], want[14] = 1, 2, 3
	assert.Equal(t, want, out)
	assert.Equal(t, [4]float32{1, 1, 1, 0}, SubVec4([4]float32{2, 3, 4, 1}, [4]float32{1, 2, 3, 1}))
}

func TestInvert4RoundTrip(t *testing.T) {
	var m, inv, prod, id [16]float32
	FromRotationTranslation(m[:], QuatFromAxisAngle(Vec3{X: 1, Y: 1}, 0.7), Vec3{X: 3, Y: -2, Z: 5})
	require.True(t, Invert4(inv[:], m[:]))
	Mul4(prod[:], m[:], inv[:])
	Identity(id[:])
	assertMatInDelta(t, id[:], prod[:])
}

func TestInvert4Singular(t *testing.T) {
	var zero, out [16]float32
	out[0] = 42
	assert.False(t, Invert4(out[:], zero[:]))
	assert.Equal(t, float32(42), out[0])
}

func TestFromRotationTranslationMatchesQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0.2, Y: 1, Z: -0.4}, 1.1)
	tr := Vec3{X: 0.5, Y: 1.5, Z: -2}
	var m [16]float32
	FromRotationTranslation(m[:], q, tr)

	v := Vec3{X: 1, Y: 2, Z: 3}
	want := q.Rotate(v).Add(tr)
	got := MulVec4(m[:], [4]float32{v.X, v.Y, v.Z, 1})
	assert.InDelta(t, want.X, got[0], eps)
	assert.InDelta(t, want.Y, got[1], eps)
	assert.InDelta(t, want.Z, got[2], eps)
	assert.Equal(t, float32(1), got[3])
}

func TestProjectionFromFovDepthRange(t *testing.T) {
	var p [16]float32
	ProjectionFromFov(p[:], SymmetricFov(math32.Pi/2, math32.Pi/2), ViewNear, ViewFar)

	near := MulVec4(p[:], [4]float32{0, 0, -ViewNear, 1})
	far := MulVec4(p[:], [4]float32{0, 0, -ViewFar, 1})
	assert.InDelta(t, 0, near[2]/near[3], eps)
	assert.InDelta(t, 1, far[2]/far[3], eps)

	// 90 degree symmetric fov: tan(45) = 1, so a11 = a22 = 1 and no skew.
	assert.InDelta(t, 1, p[0], eps)
	assert.InDelta(t, 1, p[5], eps)
	assert.InDelta(t, 0, p[8], eps)
	assert.InDelta(t, 0, p[9], eps)
	assert.Equal(t, float32(-1), p[11])
	assert.Equal(t, float32(0), p[15])
}

func TestProjectionFromFovAsymmetric(t *testing.T) {
	fov := Fov{Left: -0.9, Right: 0.6, Down: -0.8, Up: 0.7}
	var p [16]float32
	ProjectionFromFov(p[:], fov, ViewNear, ViewFar)

	tl, tr := math32.Tan(fov.Left), math32.Tan(fov.Right)
	td, tu := math32.Tan(fov.Down), math32.Tan(fov.Up)
	assert.InDelta(t, 2/(tr-tl), p[0], eps)
	assert.InDelta(t, 2/(tu-td), p[5], eps)
	assert.InDelta(t, (tr+tl)/(tr-tl), p[8], eps)
	assert.InDelta(t, (tu+td)/(tu-td), p[9], eps)
	assert.InDelta(t, -ViewFar/(ViewFar-ViewNear), p[10], eps)
	assert.InDelta(t, -(ViewFar*ViewNear)/(ViewFar-ViewNear), p[14], eps)
}

func TestMatrixFromViewOrientationFallbacks(t *testing.T) {
	fov := SymmetricFov(1.2, 1.0)

	var want [16]float32
	MatrixFromView(want[:], Pose{Position: Vec3{Z: 2}, Orientation: IdentityQuat()}, fov)

	t.Run("zero quaternion is identity", func(t *testing.T) {
		var got [16]float32
		MatrixFromView(got[:], Pose{Position: Vec3{Z: 2}}, fov)
		assertMatInDelta(t, want[:], got[:])
	})

	t.Run("non-unit quaternion is normalized", func(t *testing.T) {
		var got [16]float32
		MatrixFromView(got[:], Pose{Position: Vec3{Z: 2}, Orientation: Quat{W: 5}}, fov)
		assertMatInDelta(t, want[:], got[:])
	})
}

func TestMatrixFromViewPointInFront(t *testing.T) {
	var m [16]float32
	MatrixFromView(m[:], IdentityPose(), SymmetricFov(math32.Pi/2, math32.Pi/2))

	// A point straight ahead projects to the center of the view.
	clip := MulVec4(m[:], [4]float32{0, 0, -5, 1})
	assert.InDelta(t, 0, clip[0]/clip[3], eps)
	assert.InDelta(t, 0, clip[1]/clip[3], eps)
	assert.Greater(t, clip[3], float32(0))
}

func TestQuat(t *testing.T) {
	assert.True(t, IdentityQuat().IsNormalized())
	assert.False(t, Quat{W: 2}.IsNormalized())
	assert.InDelta(t, 1, Quat{X: 3, W: 4}.Normalize().Length(), eps)
	assert.Equal(t, Quat{}, Quat{}.Normalize())
	assert.Equal(t, IdentityQuat(), QuatFromAxisAngle(Vec3{}, 1))

	a := QuatFromAxisAngle(Vec3{Y: 1}, 0.3)
	b := QuatFromAxisAngle(Vec3{Y: 1}, 0.4)
	ab := a.Mul(b)
	want := QuatFromAxisAngle(Vec3{Y: 1}, 0.7)
	assert.InDelta(t, want.Y, ab.Y, eps)
	assert.InDelta(t, want.W, ab.W, eps)
}

func TestTriangleOutside(t *testing.T) {
	inside := [3][4]float32{{-1, -1, 0, 1}, {0, 1, 0, 1}, {1, -1, 0, 1}}
	assert.False(t, TriangleOutside(inside))

	right := [3][4]float32{{2, -1, 0, 1}, {3, 1, 0, 1}, {4, -1, 0, 1}}
	assert.True(t, TriangleOutside(right))

	straddling := [3][4]float32{{-3, 0, 0, 1}, {3, 0, 0, 1}, {0, 3, 0, 1}}
	assert.False(t, TriangleOutside(straddling))

	assert.Equal(t, uint8(1<<ClipNear), Outcode([4]float32{0, 0, -0.5, 1}))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 4, Coalesce(0, 0, 4, 5))
	assert.Equal(t, "", Coalesce[string]())
}
