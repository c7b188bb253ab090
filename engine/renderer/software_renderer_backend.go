package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-multiview/engine/raster"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

type softwareRendererBackendImpl struct {
	mu *sync.Mutex

	target      raster.Target
	sampleCount MSAASampleCount
	clearColor  [4]float32
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend(width, height int, sampleCount MSAASampleCount, workers int) *softwareRendererBackendImpl {
	opts := []raster.TargetBuilderOption{
		raster.WithSampleCount(int(sampleCount)),
		raster.WithLayers(view.ViewCount),
	}
	if workers > 0 {
		opts = append(opts, raster.WithWorkers(workers))
	}
	return &softwareRendererBackendImpl{
		mu:          &sync.Mutex{},
		target:      raster.NewTarget(width, height, opts...),
		sampleCount: sampleCount,
	}
}

// Target returns the layered target the backend renders into.
func (b *softwareRendererBackendImpl) Target() raster.Target {
	return b.target
}

func (b *softwareRendererBackendImpl) ConfigureSurface(width, height int) {
	b.target.Resize(width, height)
}

func (b *softwareRendererBackendImpl) SetPresentMode(PresentMode) {}

func (b *softwareRendererBackendImpl) SetClearColor(c [4]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = c
}

func (b *softwareRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.SampleCount() != uint32(b.sampleCount) {
		return fmt.Errorf("pipeline %s has sample count %d, target has %d", p.PipelineKey(), p.SampleCount(), b.sampleCount)
	}
	if p.ViewCount() > uint32(b.target.LayerCount()) {
		return fmt.Errorf("pipeline %s draws %d views, target has %d layers", p.PipelineKey(), p.ViewCount(), b.target.LayerCount())
	}
	return nil
}

func (b *softwareRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	for _, entry := range descriptor.Entries {
		if entry.Buffer.Type != wgpu.BufferBindingTypeUniform {
			return fmt.Errorf("%s: binding %d is not a uniform buffer", provider.Label(), entry.Binding)
		}
		if provider.Size(int(entry.Binding)) != entry.Buffer.MinBindingSize {
			provider.SetSize(int(entry.Binding), entry.Buffer.MinBindingSize)
		}
	}
	return nil
}

// WriteBuffers is a no-op: the host copies the Renderer staged are what the rasterizer reads.
func (b *softwareRendererBackendImpl) WriteBuffers([]bind_group_provider.BufferWrite) {}

func (b *softwareRendererBackendImpl) DrawFrame(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error {
	u, err := view.UnmarshalUniformData(provider.Data(0))
	if err != nil {
		return fmt.Errorf("%s: %w", provider.Label(), err)
	}

	b.mu.Lock()
	clearColor := b.clearColor
	b.mu.Unlock()

	b.target.Clear(clearColor)
	if err := b.target.Draw(&u, p.VertexCount(), p.ViewCount()); err != nil {
		return fmt.Errorf("pipeline %s: %w", p.PipelineKey(), err)
	}
	b.target.Resolve()
	return nil
}

func (b *softwareRendererBackendImpl) Present() {}

func (b *softwareRendererBackendImpl) Release() {
	b.target.Release()
}
