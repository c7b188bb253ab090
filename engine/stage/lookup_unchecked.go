//go:build !multiview_debug

package stage

import (
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
)

// ValidationEnabled reports whether view lookups are bounds-checked in this build.
const ValidationEnabled = false

// lookupMatrix returns the matrix for viewIndex without validating it. The caller
// guarantees viewIndex < view.ViewCount.
func lookupMatrix(u *view.UniformData, viewIndex uint32) *[16]float32 {
	return &u.Matrices[viewIndex]
}
