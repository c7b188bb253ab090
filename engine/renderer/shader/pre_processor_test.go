package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBuiltinMode(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(MultiviewSource, ViewModeBuiltin)
	require.NoError(t, err)

	assert.Contains(t, out, "struct ViewTransforms")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> transforms: ViewTransforms;")
	assert.Contains(t, out, "    @builtin(view_index) view_index: u32,\n    @builtin(vertex_index) vertex_index: u32")
	assert.NotContains(t, out, "@mv:")
	assert.NotContains(t, out, "const view_index")

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, AnnotationTypeViewIndex, decls[1].Type)
}

func TestProcessLayerMode(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(MultiviewSource, ViewModeLayer(1))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "const view_index: u32 = 1u;\n"))
	assert.NotContains(t, out, "@builtin(view_index)")
	assert.Contains(t, out, "transforms.matrices[view_index]")
	assert.Len(t, pp.Declarations(), 2)
}

func TestProcessWithoutViewIndexSite(t *testing.T) {
	src := "//@mv:include view_transforms\nfn f() {}\n"
	out, err := NewPreProcessor().Process(src, ViewModeLayer(0))
	require.NoError(t, err)
	assert.NotContains(t, out, "const view_index")
}

func TestProcessRejectsDuplicateViewIndex(t *testing.T) {
	src := "//@mv:view_index\n//@mv:view_index\n"
	_, err := NewPreProcessor().Process(src, ViewModeBuiltin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestProcessResetsDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process(MultiviewSource, ViewModeBuiltin)
	require.NoError(t, err)
	_, err = pp.Process("fn f() {}", ViewModeBuiltin)
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestViewMode(t *testing.T) {
	layer, ok := ViewModeBuiltin.Layer()
	assert.False(t, ok)
	assert.Zero(t, layer)
	assert.Equal(t, "builtin", ViewModeBuiltin.String())

	layer, ok = ViewModeLayer(1).Layer()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), layer)
	assert.Equal(t, "layer(1)", ViewModeLayer(1).String())
}
