package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShaderVertex(t *testing.T) {
	s := NewShader("multiview_vs", ShaderTypeVertex, MultiviewSource)

	assert.Equal(t, "multiview_vs", s.Key())
	assert.Equal(t, ShaderTypeVertex, s.ShaderType())
	assert.Equal(t, "vs_main", s.EntryPoint())
	assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)
	assert.Equal(t, "multiview_vs", s.Module().Label)

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 1)
	entry := desc.Entries[0]
	assert.Equal(t, uint32(0), entry.Binding)
	assert.Equal(t, wgpu.ShaderStageVertex, entry.Visibility)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entry.Buffer.Type)
	assert.Equal(t, uint64(128), entry.Buffer.MinBindingSize)
	assert.Len(t, s.BindGroupLayoutDescriptors(), 1)

	assert.Equal(t, "transforms", s.BindGroupVarName(0, 0))
	assert.Empty(t, s.BindGroupVarName(1, 0))
	binding, ok := s.BindGroupFromVarName(0, "transforms")
	assert.True(t, ok)
	assert.Equal(t, 0, binding)
	_, ok = s.BindGroupFromVarName(0, "missing")
	assert.False(t, ok)

	assert.Len(t, s.Declarations(), 2)
}

func TestNewShaderFragment(t *testing.T) {
	s := NewShader("multiview_fs", ShaderTypeFragment, MultiviewSource)
	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Equal(t, wgpu.ShaderStageFragment, s.BindGroupLayoutDescriptor(0).Entries[0].Visibility)
}

func TestShaderVariants(t *testing.T) {
	s := NewShader("multiview_vs", ShaderTypeVertex, MultiviewSource)

	builtin, err := s.Variant(ViewModeBuiltin)
	require.NoError(t, err)
	assert.Equal(t, s.Source(), builtin)

	mod, err := s.VariantModule(ViewModeLayer(1))
	require.NoError(t, err)
	assert.Equal(t, "multiview_vs/layer(1)", mod.Label)
	assert.Contains(t, mod.WGSLDescriptor.Code, "const view_index: u32 = 1u;")

	// Variants do not disturb the canonical declarations.
	assert.Len(t, s.Declarations(), 2)
}

func TestNewShaderPanics(t *testing.T) {
	assert.Panics(t, func() { NewShader("empty", ShaderTypeVertex, "") })
	assert.Panics(t, func() { NewShader("bad", ShaderTypeVertex, "//@mv:include nothing\n") })
	assert.Panics(t, func() { NewShader("no_entry", ShaderTypeVertex, "fn f() {}\n") })
	assert.Panics(t, func() {
		NewShader("texture", ShaderTypeFragment, "@group(0) @binding(0) var tex: texture_2d<f32>;\n@fragment fn fs_main() {}\n")
	})
	assert.Panics(t, func() { NewShaderFromPath("missing", ShaderTypeVertex, filepath.Join(t.TempDir(), "none.wgsl")) })
}

func TestNewShaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multiview.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(MultiviewSource), 0o600))
	s := NewShaderFromPath("file_vs", ShaderTypeVertex, path)
	assert.Equal(t, "vs_main", s.EntryPoint())
}

func TestResolveTypeLayout(t *testing.T) {
	known := map[string]wgslTypeLayout{"ViewTransforms": {128, 16}}
	tests := []struct {
		typeName string
		want     wgslTypeLayout
		ok       bool
	}{
		{"f32", wgslTypeLayout{4, 4}, true},
		{"mat4x4<f32>", wgslTypeLayout{64, 16}, true},
		{"array<mat4x4<f32>, 2>", wgslTypeLayout{128, 16}, true},
		{"array<vec3<f32>, 3>", wgslTypeLayout{48, 16}, true},
		{"ViewTransforms", wgslTypeLayout{128, 16}, true},
		{"array<ViewTransforms, 2>", wgslTypeLayout{256, 16}, true},
		{"array<f32>", wgslTypeLayout{}, false},
		{"Unknown", wgslTypeLayout{}, false},
	}
	for _, tt := range tests {
		got, ok := resolveTypeLayout(tt.typeName, known)
		assert.Equal(t, tt.ok, ok, tt.typeName)
		assert.Equal(t, tt.want, got, tt.typeName)
	}
}

func TestComputeStructSizes(t *testing.T) {
	src := stripComments(`
struct Inner { a: vec3<f32>, b: f32, }
/* nested /* block */ comment */
struct Outer {
    inner: Inner, // trailing
    m: mat4x4<f32>,
    c: u32,
}
`)
	sizes := computeStructSizes(parseStructBlocks(src))
	assert.Equal(t, wgslTypeLayout{16, 16}, sizes["Inner"])
	assert.Equal(t, wgslTypeLayout{96, 16}, sizes["Outer"])
}
