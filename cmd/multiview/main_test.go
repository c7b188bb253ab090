package main

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderWritesBothViews(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "render", "--out", dir, "--width", "16", "--height", "16", "--mirror", "--frames", "2", "--log-level", "warn")
	require.NoError(t, err)

	paths := strings.Fields(out)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "side_by_side.png"), paths[2])

	for _, name := range []string{"view0.png", "view1.png"} {
		f, err := os.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 16, img.Bounds().Dx())
		assert.Equal(t, color.RGBAModel.Convert(color.RGBA{R: 255, A: 255}), color.RGBAModel.Convert(img.At(8, 8)), name)
	}
}

func TestRenderRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "render", "--out", t.TempDir(), "--msaa", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msaa sample count 2")

	_, err = execute(t, "render", "--log-format", "xml")
	assert.ErrorContains(t, err, "--log-format")
}

func TestRenderUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "multiview.yaml")
	doc := "window: {width: 8, height: 8}\nrenderer: {msaa: 4}\nrig: {preset: identity}\nout_dir: " + filepath.Join(dir, "frames") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))

	out, err := execute(t, "--config", cfgPath, "render")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "frames", "view1.png"))
}

func TestValidateBuiltinShader(t *testing.T) {
	dir := t.TempDir()
	spv := filepath.Join(dir, "multiview.spv")
	out, err := execute(t, "validate", "--spirv", spv, "--glsl", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "entry vs_main (vertex)")
	assert.Contains(t, out, "view_index")
	assert.Contains(t, out, "@group(0) @binding(0)")
	assert.Contains(t, out, "size=128")
	assert.Contains(t, out, "binding layout: ok")
	assert.FileExists(t, spv)
	assert.FileExists(t, filepath.Join(dir, "vs_main.vert"))
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "vs_main.vert") {
			assert.Contains(t, line, "GL_EXT_multiview")
		}
	}
	assert.FileExists(t, filepath.Join(dir, "fs_main.frag"))
}

func TestValidateRejectsSingleMatrixShader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.wgsl")
	const src = `
struct Transform {
    m: mat4x4<f32>,
}
@group(0) @binding(0) var<uniform> t: Transform;

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    return t.m * vec4<f32>(f32(vi), 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	out, err := execute(t, "validate", "--shader", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binding layout mismatch")
	assert.Contains(t, out, "size=64")
}
