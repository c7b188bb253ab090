package shader

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processed(t *testing.T, mode ViewMode) string {
	t.Helper()
	src, err := NewPreProcessor().Process(MultiviewSource, mode)
	require.NoError(t, err)
	return src
}

func TestValidateReflectsMultiviewShader(t *testing.T) {
	r, err := Validate(processed(t, ViewModeBuiltin))
	require.NoError(t, err)

	b, ok := r.Binding(0, 0)
	require.True(t, ok)
	assert.Equal(t, BindingReflection{Name: "transforms", Group: 0, Binding: 0, Uniform: true, Size: 128}, b)

	vs, ok := r.EntryPoint(ShaderTypeVertex)
	require.True(t, ok)
	assert.Equal(t, "vs_main", vs.Name)
	assert.ElementsMatch(t, []string{"view_index", "vertex_index"}, vs.BuiltinInputs)
	assert.Equal(t, []string{"position"}, vs.BuiltinOutputs)
	assert.Contains(t, vs.Globals, "transforms")

	fs, ok := r.EntryPoint(ShaderTypeFragment)
	require.True(t, ok)
	assert.Equal(t, "fs_main", fs.Name)
	assert.Equal(t, []uint32{0}, fs.Locations)
	assert.Empty(t, fs.Globals)

	assert.NoError(t, CheckBindingContract(r, ViewModeBuiltin))
}

func TestRegexAndNagaAgreeOnBindingSize(t *testing.T) {
	s := NewShader("multiview_vs", ShaderTypeVertex, MultiviewSource)
	r, err := Validate(s.Source())
	require.NoError(t, err)
	b, ok := r.Binding(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(b.Size), s.BindGroupLayoutDescriptor(0).Entries[0].Buffer.MinBindingSize)
}

func TestValidateLayerVariants(t *testing.T) {
	for layer := range uint32(2) {
		mode := ViewModeLayer(layer)
		r, err := Validate(processed(t, mode))
		require.NoError(t, err, "layer %d", layer)

		vs, ok := r.EntryPoint(ShaderTypeVertex)
		require.True(t, ok)
		assert.Equal(t, []string{"vertex_index"}, vs.BuiltinInputs)
		assert.NoError(t, CheckBindingContract(r, mode))
		assert.ErrorIs(t, CheckBindingContract(r, ViewModeBuiltin), ErrBindingLayoutMismatch)
	}
}

func TestValidateRejectsBrokenSource(t *testing.T) {
	_, err := Validate("@vertex fn vs_main( -> {")
	assert.Error(t, err)

	_, err = Validate("@fragment fn fs_main() -> @location(0) vec4<f32> { return undefined_name; }")
	assert.Error(t, err)
}

func TestCheckBindingContractMismatches(t *testing.T) {
	base := processed(t, ViewModeBuiltin)
	tests := []struct {
		name    string
		mutate  func(string) string
		message string
	}{
		{
			name: "wrong binding",
			mutate: func(s string) string {
				return strings.Replace(s, "@group(0) @binding(0)", "@group(0) @binding(1)", 1)
			},
			message: "want group 0 binding 0",
		},
		{
			name: "storage address space",
			mutate: func(s string) string {
				return strings.Replace(s, "var<uniform>", "var<storage, read>", 1)
			},
			message: "uniform address space",
		},
		{
			name: "single matrix",
			mutate: func(s string) string {
				return strings.Replace(s, "array<mat4x4<f32>, 2>", "array<mat4x4<f32>, 1>", 1)
			},
			message: "64 bytes",
		},
		{
			name: "extra binding",
			mutate: func(s string) string {
				return s + "\n@group(0) @binding(1) var<uniform> extra: vec4<f32>;\n"
			},
			message: "found 2",
		},
		{
			name: "fragment location",
			mutate: func(s string) string {
				return strings.Replace(s, "-> @location(0) vec4<f32>", "-> @location(1) vec4<f32>", 1)
			},
			message: "location 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Validate(tt.mutate(base))
			require.NoError(t, err)
			err = CheckBindingContract(r, ViewModeBuiltin)
			require.ErrorIs(t, err, ErrBindingLayoutMismatch)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCompileSPIRV(t *testing.T) {
	out, err := CompileSPIRV(processed(t, ViewModeBuiltin))
	require.NoError(t, err)
	require.Greater(t, len(out), 20)
	assert.Zero(t, len(out)%4)
	assert.Equal(t, uint32(0x07230203), binary.LittleEndian.Uint32(out))

	_, err = CompileSPIRV("not wgsl")
	assert.Error(t, err)
}

func TestCompileGLSL(t *testing.T) {
	src := processed(t, ViewModeBuiltin)

	vs, exts, err := CompileGLSL(src, "vs_main")
	require.NoError(t, err)
	assert.Contains(t, vs, "gl_ViewIndex")
	assert.Contains(t, vs, "#extension GL_EXT_multiview")
	assert.Contains(t, exts, "GL_EXT_multiview")

	fs, _, err := CompileGLSL(src, "fs_main")
	require.NoError(t, err)
	assert.NotContains(t, fs, "gl_ViewIndex")

	layered, layeredExts, err := CompileGLSL(processed(t, ViewModeLayer(0)), "vs_main")
	require.NoError(t, err)
	assert.NotContains(t, layered, "gl_ViewIndex")
	assert.NotContains(t, layeredExts, "GL_EXT_multiview")
}

func TestGLSLExtensions(t *testing.T) {
	out := "#version 450 core\n#extension GL_EXT_multiview : require\n  #extension GL_ARB_shading_language_420pack: enable\nvoid main() {}\n"
	assert.Equal(t,
		[]string{"GL_EXT_multiview", "GL_ARB_shading_language_420pack", "GL_EXT_other"},
		glslExtensions(out, []string{"GL_EXT_multiview", "GL_EXT_other"}))
	assert.Empty(t, glslExtensions("void main() {}", nil))
}
