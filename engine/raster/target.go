// Package raster is a software rasterizer for layered (multiview) color targets. Each
// layer receives the vertex stage output of one view, rasterized and shaded on a
// worker pool with one task per layer and row band.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-multiview/common"
	"github.com/Carmen-Shannon/oxy-multiview/engine/stage"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/chewxy/math32"
)

// samplePositions holds the sub-pixel sample offsets for each supported sample count.
// The 4x pattern is the standard one used by Vulkan, D3D and Metal.
var samplePositions = map[int][][2]float32{
	1: {{0.5, 0.5}},
	4: {{0.375, 0.125}, {0.875, 0.375}, {0.125, 0.625}, {0.625, 0.875}},
}

type targetImpl struct {
	mu *sync.Mutex

	width   int
	height  int
	layers  int
	samples int
	srgb    bool

	bandHeight int
	workers    int
	pool       worker.DynamicWorkerPool

	// color holds linear RGBA per sample: [layer][(y*width+x)*samples+s].
	color    [][][4]float32
	resolved []*image.RGBA
}

// Target is a layered multisampled color target. Layer i holds view i. Colors are
// accumulated in linear space per sample and resolved to 8-bit images on Resolve.
type Target interface {
	// Width returns the width of each layer in pixels.
	Width() int

	// Height returns the height of each layer in pixels.
	Height() int

	// LayerCount returns the number of view layers.
	LayerCount() int

	// SampleCount returns the number of samples per pixel (1 or 4).
	SampleCount() int

	// Resize reallocates every layer at the new size. Contents are cleared to transparent black.
	//
	// Parameters:
	//   - width, height: new layer size in pixels
	Resize(width, height int)

	// Clear sets every sample of every layer to c.
	//
	// Parameters:
	//   - c: linear RGBA clear color
	Clear(c [4]float32)

	// Draw runs the vertex stage for vertexCount vertices across viewCount views,
	// assembles a triangle list per view and rasterizes each view into its own layer,
	// shading covered fragments with the fragment stage.
	//
	// Parameters:
	//   - u: the uniform block shared by every invocation
	//   - vertexCount: vertices per view
	//   - viewCount: number of views, must not exceed LayerCount
	//
	// Returns:
	//   - error: an error if the views do not fit the target or a raster task failed
	Draw(u *view.UniformData, vertexCount, viewCount uint32) error

	// DrawTriangle rasterizes one clip-space triangle into a single layer.
	//
	// Parameters:
	//   - layer: destination layer index
	//   - tri: clip-space vertex positions
	//   - shade: fragment function evaluated once per covered pixel
	DrawTriangle(layer int, tri [3]stage.ClipPosition, shade func() stage.FragmentColor)

	// Resolve averages the samples of every pixel and encodes the result into the
	// 8-bit layer images returned by Layer.
	Resolve()

	// Layer returns the resolved image of layer i. Call Resolve first to pick up
	// the latest draws.
	//
	// Parameters:
	//   - i: layer index
	//
	// Returns:
	//   - *image.RGBA: the resolved layer image
	Layer(i int) *image.RGBA

	// SideBySide composes the resolved layers left to right into one image.
	//
	// Parameters:
	//   - scale: integer upscale factor, values below 1 are treated as 1
	//
	// Returns:
	//   - *image.RGBA: the composite
	SideBySide(scale int) *image.RGBA

	// WritePNGs writes view<i>.png for each layer and side_by_side.png into dir.
	//
	// Parameters:
	//   - dir: output directory, created if missing
	//   - scale: upscale factor for the composite image
	//
	// Returns:
	//   - []string: the written file paths
	//   - error: an error if any file could not be written
	WritePNGs(dir string, scale int) ([]string, error)

	// Release stops the target's worker pool.
	Release()
}

var _ Target = &targetImpl{}

// NewTarget creates a layered target of the given size with one layer per view,
// single sampling, sRGB encoding on resolve and a worker per CPU.
//
// Parameters:
//   - width, height: layer size in pixels (must be positive)
//   - options: functional options to configure the target
//
// Returns:
//   - Target: the newly created target
func NewTarget(width, height int, options ...TargetBuilderOption) Target {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("raster target size must be positive, got %dx%d", width, height))
	}
	t := &targetImpl{
		mu:         &sync.Mutex{},
		width:      width,
		height:     height,
		layers:     view.ViewCount,
		samples:    1,
		srgb:       true,
		bandHeight: 32,
		workers:    runtime.NumCPU(),
	}
	for _, option := range options {
		option(t)
	}
	if _, ok := samplePositions[t.samples]; !ok {
		panic(fmt.Sprintf("unsupported raster sample count %d", t.samples))
	}
	if t.bandHeight < 1 {
		t.bandHeight = 1
	}
	t.pool = worker.NewDynamicWorkerPool(t.workers, 256, 1*time.Second)
	t.allocate()
	return t
}

func (t *targetImpl) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

func (t *targetImpl) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.height
}

func (t *targetImpl) LayerCount() int {
	return t.layers
}

func (t *targetImpl) SampleCount() int {
	return t.samples
}

func (t *targetImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.width, t.height = width, height
	t.allocate()
}

func (t *targetImpl) Clear(c [4]float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, layer := range t.color {
		for i := range layer {
			layer[i] = c
		}
	}
}

func (t *targetImpl) Draw(u *view.UniformData, vertexCount, viewCount uint32) error {
	if int(viewCount) > t.layers {
		return fmt.Errorf("draw requests %d views but target has %d layers", viewCount, t.layers)
	}
	clip, err := stage.RunVertexStage(u, vertexCount, viewCount)
	if err != nil {
		return fmt.Errorf("failed to run vertex stage: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	perLayer := make([][]triangleSetup, viewCount)
	for v := range clip {
		for i := 0; i+2 < len(clip[v]); i += 3 {
			s, ok := t.setupTriangle([3]stage.ClipPosition{clip[v][i], clip[v][i+1], clip[v][i+2]})
			if ok {
				perLayer[v] = append(perLayer[v], s)
			}
		}
	}
	return t.rasterize(perLayer, stage.Fragment)
}

func (t *targetImpl) DrawTriangle(layer int, tri [3]stage.ClipPosition, shade func() stage.FragmentColor) {
	if layer < 0 || layer >= t.layers {
		panic(fmt.Sprintf("raster layer %d out of range, target has %d layers", layer, t.layers))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.setupTriangle(tri)
	if !ok {
		return
	}
	perLayer := make([][]triangleSetup, layer+1)
	perLayer[layer] = []triangleSetup{s}
	if err := t.rasterize(perLayer, shade); err != nil {
		panic(err)
	}
}

func (t *targetImpl) Resolve() {
	t.mu.Lock()
	defer t.mu.Unlock()
	inv := 1 / float32(t.samples)
	for l, layer := range t.color {
		img := t.resolved[l]
		for y := 0; y < t.height; y++ {
			for x := 0; x < t.width; x++ {
				base := (y*t.width + x) * t.samples
				var sum [4]float32
				for s := 0; s < t.samples; s++ {
					c := layer[base+s]
					sum[0] += c[0]
					sum[1] += c[1]
					sum[2] += c[2]
					sum[3] += c[3]
				}
				img.SetRGBA(x, y, t.encode([4]float32{sum[0] * inv, sum[1] * inv, sum[2] * inv, sum[3] * inv}))
			}
		}
	}
}

func (t *targetImpl) Layer(i int) *image.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolved[i]
}

func (t *targetImpl) Release() {
	t.pool.Stop()
}

// allocate (re)creates the sample and resolve storage. Caller must hold the mutex.
func (t *targetImpl) allocate() {
	t.color = make([][][4]float32, t.layers)
	t.resolved = make([]*image.RGBA, t.layers)
	for l := range t.layers {
		t.color[l] = make([][4]float32, t.width*t.height*t.samples)
		t.resolved[l] = image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	}
}

// encode converts a linear color to 8-bit, applying the sRGB transfer function to
// the color channels when the target is sRGB.
func (t *targetImpl) encode(c [4]float32) color.RGBA {
	if t.srgb {
		c[0], c[1], c[2] = linearToSRGB(c[0]), linearToSRGB(c[1]), linearToSRGB(c[2])
	}
	return color.RGBA{R: quantize(c[0]), G: quantize(c[1]), B: quantize(c[2]), A: quantize(c[3])}
}

func linearToSRGB(c float32) float32 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math32.Pow(c, 1/2.4) - 0.055
}

func quantize(c float32) uint8 {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return uint8(c*255 + 0.5)
}

// triangleSetup is a triangle in screen space ready for coverage testing. Vertices
// hold pixel x, pixel y and NDC depth, wound so that area is positive.
type triangleSetup struct {
	v          [3][3]float32
	area       float32
	minX, maxX int
	minY, maxY int
}

// setupTriangle performs the perspective divide and viewport transform. Triangles
// that are degenerate, entirely outside one clip plane or have a vertex at or behind
// the eye (w <= 0) are rejected. Caller must hold the mutex.
func (t *targetImpl) setupTriangle(tri [3]stage.ClipPosition) (triangleSetup, bool) {
	var s triangleSetup
	if common.TriangleOutside(tri) {
		return s, false
	}
	w, h := float32(t.width), float32(t.height)
	for i, p := range tri {
		if p[3] <= 0 {
			return s, false
		}
		inv := 1 / p[3]
		s.v[i] = [3]float32{
			(p[0]*inv + 1) * 0.5 * w,
			(1 - p[1]*inv) * 0.5 * h,
			p[2] * inv,
		}
	}

	s.area = edgeFunction(s.v[0], s.v[1], s.v[2][0], s.v[2][1])
	if s.area == 0 {
		return s, false
	}
	if s.area < 0 {
		s.v[0], s.v[2] = s.v[2], s.v[0]
		s.area = -s.area
	}

	s.minX = clampInt(int(math32.Floor(min(s.v[0][0], s.v[1][0], s.v[2][0]))), 0, t.width)
	s.maxX = clampInt(int(math32.Ceil(max(s.v[0][0], s.v[1][0], s.v[2][0]))), 0, t.width)
	s.minY = clampInt(int(math32.Floor(min(s.v[0][1], s.v[1][1], s.v[2][1]))), 0, t.height)
	s.maxY = clampInt(int(math32.Ceil(max(s.v[0][1], s.v[1][1], s.v[2][1]))), 0, t.height)
	return s, true
}

// rasterize fans the triangles of every layer out to the worker pool, one task per
// layer and row band, and blocks until all tasks finish. Bands never overlap so tasks
// write disjoint samples. Caller must hold the mutex.
func (t *targetImpl) rasterize(perLayer [][]triangleSetup, shade func() stage.FragmentColor) error {
	type band struct {
		layer  int
		y0, y1 int
	}
	var bands []band
	for l, tris := range perLayer {
		if len(tris) == 0 {
			continue
		}
		for y := 0; y < t.height; y += t.bandHeight {
			bands = append(bands, band{layer: l, y0: y, y1: min(y+t.bandHeight, t.height)})
		}
	}

	errs := make([]error, len(bands))
	var wg sync.WaitGroup
	for id, b := range bands {
		wg.Add(1)
		t.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						errs[id] = fmt.Errorf("raster task %d (layer %d rows %d-%d): %v", id, b.layer, b.y0, b.y1, r)
					}
				}()
				for i := range perLayer[b.layer] {
					t.rasterizeBand(b.layer, &perLayer[b.layer][i], b.y0, b.y1, shade)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// rasterizeBand tests every sample of the triangle's bounding box within rows
// [y0, y1) and shades the pixels with at least one covered sample. Samples whose
// interpolated depth falls outside [0, 1] are clipped.
func (t *targetImpl) rasterizeBand(layer int, s *triangleSetup, y0, y1 int, shade func() stage.FragmentColor) {
	y0 = max(y0, s.minY)
	y1 = min(y1, s.maxY)
	positions := samplePositions[t.samples]
	invArea := 1 / s.area
	dst := t.color[layer]
	covered := make([]bool, t.samples)

	for y := y0; y < y1; y++ {
		for x := s.minX; x < s.maxX; x++ {
			hit := false
			for si, pos := range positions {
				px := float32(x) + pos[0]
				py := float32(y) + pos[1]
				w0 := edgeFunction(s.v[1], s.v[2], px, py)
				w1 := edgeFunction(s.v[2], s.v[0], px, py)
				w2 := edgeFunction(s.v[0], s.v[1], px, py)
				covered[si] = false
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				z := (w0*s.v[0][2] + w1*s.v[1][2] + w2*s.v[2][2]) * invArea
				if z < 0 || z > 1 {
					continue
				}
				covered[si] = true
				hit = true
			}
			if !hit {
				continue
			}
			c := shade()
			base := (y*t.width + x) * t.samples
			for si, ok := range covered {
				if ok {
					dst[base+si] = c
				}
			}
		}
	}
}

// edgeFunction computes the signed area of the parallelogram spanned by a->b and a->p.
func edgeFunction(a, b [3]float32, px, py float32) float32 {
	return (px-a[0])*(b[1]-a[1]) - (py-a[1])*(b[0]-a[0])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
