package raster

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-multiview/common"
	"github.com/Carmen-Shannon/oxy-multiview/engine/stage"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 64

var (
	red        = color.RGBA{R: 255, A: 255}
	green      = color.RGBA{G: 255, A: 255}
	clearColor = [4]float32{0, 1, 0, 1}
)

func newTestTarget(t *testing.T, options ...TargetBuilderOption) Target {
	t.Helper()
	options = append([]TargetBuilderOption{WithWorkers(4), WithBandHeight(8)}, options...)
	tg := NewTarget(size, size, options...)
	t.Cleanup(tg.Release)
	return tg
}

func drawFrame(t *testing.T, tg Target, u view.UniformData) {
	t.Helper()
	tg.Clear(clearColor)
	require.NoError(t, tg.Draw(&u, stage.TriangleVertexCount, view.ViewCount))
	tg.Resolve()
}

func countColor(img *image.RGBA, c color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestDrawMirrorPairEndToEnd(t *testing.T) {
	tg := newTestTarget(t)
	drawFrame(t, tg, view.MirrorPair())

	l0, l1 := tg.Layer(0), tg.Layer(1)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c0 := l0.RGBAAt(x, y)
			assert.True(t, c0 == red || c0 == green, "layer 0 pixel (%d,%d) = %v", x, y, c0)
			assert.Equal(t, c0, l1.RGBAAt(size-1-x, y), "pixel (%d,%d)", x, y)
		}
	}

	redCount := countColor(l0, red)
	assert.Greater(t, redCount, 0)
	assert.Equal(t, redCount, countColor(l1, red))

	// Apex at top center, base along the bottom edge.
	assert.Equal(t, red, l0.RGBAAt(32, 48))
	assert.Equal(t, red, l0.RGBAAt(0, size-1))
	assert.Equal(t, green, l0.RGBAAt(2, 2))
	assert.Equal(t, green, l0.RGBAAt(size-3, 2))
	assert.Equal(t, red, l1.RGBAAt(32, 48))
}

func TestDrawShiftedViewsAreMirrored(t *testing.T) {
	var u view.UniformData
	common.Translation(u.Matrices[0][:], 0.5, 0, 0)
	mirror := view.MirrorPair().Matrices[1]
	common.Mul4(u.Matrices[1][:], mirror[:], u.Matrices[0][:])

	tg := newTestTarget(t)
	drawFrame(t, tg, u)

	l0, l1 := tg.Layer(0), tg.Layer(1)
	assert.Equal(t, red, l0.RGBAAt(56, 50))
	assert.Equal(t, green, l1.RGBAAt(56, 50))
	assert.Equal(t, red, l1.RGBAAt(7, 50))
	assert.Equal(t, green, l0.RGBAAt(7, 50))

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			assert.Equal(t, l0.RGBAAt(x, y), l1.RGBAAt(size-1-x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestDrawIdentityPairLayersMatch(t *testing.T) {
	tg := newTestTarget(t)
	drawFrame(t, tg, view.IdentityPair())
	assert.Equal(t, tg.Layer(0).Pix, tg.Layer(1).Pix)
}

func TestDrawMSAAResolvesEdges(t *testing.T) {
	tg := newTestTarget(t, WithSampleCount(4))
	require.Equal(t, 4, tg.SampleCount())
	drawFrame(t, tg, view.IdentityPair())

	l0 := tg.Layer(0)
	assert.Equal(t, red, l0.RGBAAt(32, 48))
	assert.Equal(t, green, l0.RGBAAt(2, 2))

	mixed := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := l0.RGBAAt(x, y)
			if c != red && c != green {
				mixed++
				assert.Equal(t, uint8(0), c.B)
				assert.Equal(t, uint8(255), c.A)
			}
		}
	}
	assert.Greater(t, mixed, 0)
}

func TestDrawRejectsClippedTriangles(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m []float32)
	}{
		{"behind near plane", func(m []float32) { common.Translation(m, 0, 0, -0.5) }},
		{"beyond far plane", func(m []float32) { common.Translation(m, 0, 0, 1.5) }},
		{"negative w", func(m []float32) { common.Identity(m); m[15] = -1 }},
		{"outside right", func(m []float32) { common.Translation(m, 3, 0, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u view.UniformData
			tt.setup(u.Matrices[0][:])
			tt.setup(u.Matrices[1][:])

			tg := newTestTarget(t)
			drawFrame(t, tg, u)
			assert.Equal(t, size*size, countColor(tg.Layer(0), green))
			assert.Equal(t, size*size, countColor(tg.Layer(1), green))
		})
	}
}

func TestDrawRejectsTooManyViews(t *testing.T) {
	tg := newTestTarget(t)
	u := view.IdentityPair()
	assert.Error(t, tg.Draw(&u, stage.TriangleVertexCount, 3))
}

func TestDrawTriangleShadesOncePerCoveredPixel(t *testing.T) {
	tg := newTestTarget(t)
	tg.Clear(clearColor)

	var calls atomic.Int64
	tri := [3]stage.ClipPosition{
		stage.ObjectPosition(0),
		stage.ObjectPosition(1),
		stage.ObjectPosition(2),
	}
	tg.DrawTriangle(1, tri, func() stage.FragmentColor {
		calls.Add(1)
		return stage.Fragment()
	})
	tg.Resolve()

	assert.Equal(t, int64(countColor(tg.Layer(1), red)), calls.Load())
	assert.Equal(t, size*size, countColor(tg.Layer(0), green))
	assert.Panics(t, func() { tg.DrawTriangle(2, tri, stage.Fragment) })
}

func TestResolveEncoding(t *testing.T) {
	grey := [4]float32{0.5, 0.5, 0.5, 1}

	srgb := newTestTarget(t)
	srgb.Clear(grey)
	srgb.Resolve()
	assert.Equal(t, color.RGBA{R: 188, G: 188, B: 188, A: 255}, srgb.Layer(0).RGBAAt(0, 0))

	linear := newTestTarget(t, WithSRGB(false))
	linear.Clear(grey)
	linear.Resolve()
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, linear.Layer(0).RGBAAt(0, 0))
}

func TestResize(t *testing.T) {
	tg := newTestTarget(t)
	tg.Resize(32, 16)
	assert.Equal(t, 32, tg.Width())
	assert.Equal(t, 16, tg.Height())
	assert.Equal(t, image.Rect(0, 0, 32, 16), tg.Layer(0).Bounds())

	tg.Resize(0, 10)
	assert.Equal(t, 32, tg.Width())
}

func TestSideBySide(t *testing.T) {
	tg := newTestTarget(t)
	drawFrame(t, tg, view.MirrorPair())

	img := tg.SideBySide(2)
	require.Equal(t, image.Rect(0, 0, 2*size*2, size*2), img.Bounds())
	assert.Equal(t, tg.Layer(0).RGBAAt(32, 48), img.RGBAAt(64, 96))
	assert.Equal(t, tg.Layer(1).RGBAAt(2, 2), img.RGBAAt(2*size+4, 4))

	assert.Equal(t, image.Rect(0, 0, 2*size, size), tg.SideBySide(0).Bounds())
}

func TestWritePNGs(t *testing.T) {
	tg := newTestTarget(t)
	drawFrame(t, tg, view.MirrorPair())

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := tg.WritePNGs(dir, 1)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "view0.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "side_by_side.png"), paths[2])

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, size, size), img.Bounds())
	r, g, _, _ := img.At(32, 48).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)
}

func TestNewTargetPanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() { NewTarget(0, 10) })
	assert.Panics(t, func() { NewTarget(10, 10, WithSampleCount(2)) })
}
