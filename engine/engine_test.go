package engine

import (
	"context"
	"image/color"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 24

func newTestRenderer(t *testing.T, register bool) renderer.Renderer {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil,
		renderer.WithSize(testSize, testSize),
		renderer.WithRasterWorkers(2),
	)
	t.Cleanup(r.Release)
	if register {
		p := pipeline.NewPipeline(DefaultPipelineKey,
			pipeline.WithVertexShader(shader.NewShader("multiview_vs", shader.ShaderTypeVertex, shader.MultiviewSource)),
			pipeline.WithFragmentShader(shader.NewShader("multiview_fs", shader.ShaderTypeFragment, shader.MultiviewSource)),
		)
		require.NoError(t, r.RegisterPipelines(p))
	}
	return r
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	assert.Panics(t, func() { NewEngine() })
}

func TestRunHeadlessStopsAfterFrameBudget(t *testing.T) {
	r := newTestRenderer(t, true)
	var rendered int
	e := NewEngine(WithRenderer(r), WithMaxFrames(3), WithTickRate(240))
	e.SetRenderCallback(func(float32) { rendered++ })

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, e.Frames())
	assert.Equal(t, 3, rendered)

	red := color.RGBA{R: 255, A: 255}
	for i := range view.ViewCount {
		assert.Equal(t, red, r.Target().Layer(i).RGBAAt(testSize/2, testSize/2))
	}
}

func TestRunReturnsFrameError(t *testing.T) {
	e := NewEngine(WithRenderer(newTestRenderer(t, false)))
	err := e.Run(context.Background())
	assert.ErrorIs(t, err, renderer.ErrUniformNotBound)
	assert.Zero(t, e.Frames())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e := NewEngine(WithRenderer(newTestRenderer(t, true)), WithRenderFrameLimit(500))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, e.Run(ctx))
	assert.Positive(t, e.Frames())
	e.Quit()
}

func TestRunRecoversRenderPanic(t *testing.T) {
	e := NewEngine(WithRenderer(newTestRenderer(t, true)))
	e.SetRenderCallback(func(float32) { panic("boom") })

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, e.Frames())
}

func TestRenderFrameWritesCurrentRig(t *testing.T) {
	r := newTestRenderer(t, true)
	e := NewEngine(WithRenderer(r))
	require.NoError(t, e.RenderFrame())

	mirror := view.NewRig(view.WithFixedMatrices(view.MirrorPair()))
	e.SetRig(mirror)
	e.SetRig(nil)
	assert.Same(t, mirror, e.Rig())

	require.NoError(t, e.RenderFrame())
	want := view.MirrorPair()
	got, err := view.UnmarshalUniformData(r.UniformProvider().Data(0))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 2, e.Frames())
}

func TestTogglePauseAndRates(t *testing.T) {
	e := NewEngine(WithRenderer(newTestRenderer(t, false)), WithTickRate(0)).(*engine)
	assert.Equal(t, time.Second/60, e.engineTickRate)

	e.SetTickRate(120)
	assert.Equal(t, time.Second/120, e.engineTickRate)

	e.SetRenderFrameLimit(50)
	assert.Equal(t, int64(20*time.Millisecond), e.renderFrameLimit.Load())
	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.renderFrameLimit.Load())

	assert.True(t, e.TogglePause())
	assert.False(t, e.TogglePause())
}
