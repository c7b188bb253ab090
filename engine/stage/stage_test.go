package stage

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-multiview/common"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPosition(t *testing.T) {
	tests := []struct {
		vertex uint32
		want   [4]float32
	}{
		{0, [4]float32{-1, -1, 0, 1}},
		{1, [4]float32{0, 1, 0, 1}},
		{2, [4]float32{1, -1, 0, 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectPosition(tt.vertex), "vertex %d", tt.vertex)
	}
}

func TestVertexIdentityRoundTrip(t *testing.T) {
	u := view.IdentityPair()
	for _, inv := range Invocations(TriangleVertexCount, view.ViewCount) {
		assert.Equal(t, ObjectPosition(inv.Vertex), Vertex(inv.Vertex, inv.View, &u), "%+v", inv)
	}
}

func TestVertexLinearityAcrossViews(t *testing.T) {
	var u view.UniformData
	common.MatrixFromView(u.Matrices[0][:], common.Pose{Position: common.Vec3{X: -0.03, Z: 2}, Orientation: common.IdentityQuat()}, common.SymmetricFov(1.5, 1.3))
	common.MatrixFromView(u.Matrices[1][:], common.Pose{Position: common.Vec3{X: 0.03, Z: 2}, Orientation: common.QuatFromAxisAngle(common.Vec3{Y: 1}, 0.1)}, common.Fov{Left: -0.7, Right: 0.9, Down: -0.8, Up: 0.75})
	require.NotEqual(t, u.Matrices[0], u.Matrices[1])

	var diff [16]float32
	common.Sub4(diff[:], u.Matrices[1][:], u.Matrices[0][:])

	for vi := range uint32(TriangleVertexCount) {
		got := common.SubVec4(Vertex(vi, 1, &u), Vertex(vi, 0, &u))
		want := common.MulVec4(diff[:], ObjectPosition(vi))
		for c := range 4 {
			assert.InDelta(t, want[c], got[c], 1e-5, "vertex %d component %d", vi, c)
		}
	}
}

func TestVertexSameObjectPointPerView(t *testing.T) {
	u := view.MirrorPair()
	for vi := range uint32(TriangleVertexCount) {
		v0 := Vertex(vi, 0, &u)
		v1 := Vertex(vi, 1, &u)
		// The half turn about Y negates x and z of the shared object point.
		assert.InDelta(t, -v0[0], v1[0], 1e-6)
		assert.Equal(t, v0[1], v1[1])
		assert.Equal(t, v0[3], v1[3])
	}
}

func TestFragmentIsConstantRed(t *testing.T) {
	for range 4 {
		assert.Equal(t, FragmentColor{1, 0, 0, 1}, Fragment())
	}
}

func TestInvocationsNeverExceedDrawCount(t *testing.T) {
	invs := Invocations(TriangleVertexCount, view.ViewCount)
	require.Len(t, invs, TriangleVertexCount*view.ViewCount)

	seen := map[Invocation]bool{}
	for _, inv := range invs {
		assert.Less(t, inv.Vertex, uint32(TriangleVertexCount))
		assert.NotEqual(t, uint32(3), inv.Vertex)
		assert.Less(t, inv.View, uint32(view.ViewCount))
		seen[inv] = true
	}
	assert.Len(t, seen, len(invs))
}

func TestRunVertexStage(t *testing.T) {
	u := view.MirrorPair()
	out, err := RunVertexStage(&u, TriangleVertexCount, view.ViewCount)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[0], 3)

	assert.Equal(t, [4]float32{-1, -1, 0, 1}, out[0][0])
	assert.InDelta(t, 1, out[1][0][0], 1e-6)
	assert.InDelta(t, -1, out[1][2][0], 1e-6)
	assert.InDelta(t, 0, out[1][1][0], 1e-6)
	assert.Equal(t, float32(1), out[1][1][1])
}

func TestRunVertexStageRejectsTooManyViews(t *testing.T) {
	u := view.IdentityPair()
	_, err := RunVertexStage(&u, TriangleVertexCount, 3)
	assert.ErrorIs(t, err, ErrViewIndexOutOfRange)
}

func TestObjectPositionIsIndependentOfUniform(t *testing.T) {
	var u view.UniformData
	common.RotationY(u.Matrices[0][:], math.Pi/3)
	common.Identity(u.Matrices[1][:])
	for vi := range uint32(TriangleVertexCount) {
		assert.Equal(t, ObjectPosition(vi), Vertex(vi, 1, &u))
	}
}
