//go:build multiview_debug

package stage

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
)

// ValidationEnabled reports whether view lookups are bounds-checked in this build.
const ValidationEnabled = true

// lookupMatrix returns the matrix for viewIndex, panicking with ErrViewIndexOutOfRange
// when the index does not address a matrix in u.
func lookupMatrix(u *view.UniformData, viewIndex uint32) *[16]float32 {
	if viewIndex >= uint32(len(u.Matrices)) {
		panic(fmt.Errorf("%w: view index %d, matrix count %d", ErrViewIndexOutOfRange, viewIndex, len(u.Matrices)))
	}
	return &u.Matrices[viewIndex]
}
