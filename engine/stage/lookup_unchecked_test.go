//go:build !multiview_debug

package stage

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/stretchr/testify/assert"
)

func TestUncheckedLookup(t *testing.T) {
	assert.False(t, ValidationEnabled)
	u := view.MirrorPair()
	assert.Same(t, &u.Matrices[1], lookupMatrix(&u, 1))
}
