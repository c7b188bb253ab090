package view

import (
	"github.com/Carmen-Shannon/oxy-multiview/common"
)

// IdentityPair returns uniform data with both views set to the identity matrix.
// The triangle then lands in clip space unmodified in both layers.
func IdentityPair() UniformData {
	var u UniformData
	for i := range ViewCount {
		common.Identity(u.Matrices[i][:])
	}
	return u
}

// MirrorPair returns uniform data with view 0 set to identity and view 1 set to a
// half turn about +Y, so view 1 shows the triangle mirrored across the X axis.
// The half turn is written out exactly (cos = -1, sin = 0) so z stays at 0 and
// nothing is depth clipped.
func MirrorPair() UniformData {
	var u UniformData
	common.Identity(u.Matrices[0][:])
	common.Identity(u.Matrices[1][:])
	u.Matrices[1][0] = -1
	u.Matrices[1][10] = -1
	return u
}
