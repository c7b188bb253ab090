package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-multiview/engine/raster"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-multiview/engine/stage"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
)

var (
	// ErrDrawContract is returned when a draw would not issue exactly view.ViewCount views
	// of stage.TriangleVertexCount vertices.
	ErrDrawContract = errors.New("renderer: draw contract violated")

	// ErrUniformNotBound is returned when a frame is drawn before every byte of the view
	// transform uniform has been written.
	ErrUniformNotBound = errors.New("renderer: view transform uniform not bound")
)

// uniformBinding is the binding index of the view transform uniform within group 0.
const uniformBinding = 0

// defaultClearColor is opaque green.
var defaultClearColor = [4]float32{0, 1, 0, 1}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	uniform       bind_group_provider.BindGroupProvider

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           [4]float32
	width, height        int
	rasterWorkers        int
	skipShaderValidation bool
}

// Renderer defines the host side of the multiview draw.
//
// Pipelines are registered once. Every frame the host writes the per-view transforms with
// WriteUniform, as late as possible, then calls DrawFrame, which checks the draw contract
// (view.ViewCount views, stage.TriangleVertexCount vertices, uniform bound) before the
// backend records and submits the frame. Present displays it.
type Renderer interface {
	// BackendType returns the backend the renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines validates each pipeline, checks its shaders against the binding
	// layout with naga, creates the backend objects, and caches it by PipelineKey. The first
	// registration also creates the view transform uniform from the pipeline's group 0
	// layout. Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if validation or creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// UniformProvider returns the provider of the view transform uniform, or nil before the
	// first pipeline is registered.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the uniform provider
	UniformProvider() bind_group_provider.BindGroupProvider

	// WriteUniform uploads the per-view transforms to group 0 binding 0.
	//
	// Parameters:
	//   - u: the transforms to upload
	//
	// Returns:
	//   - error: ErrUniformNotBound if no pipeline has been registered yet
	WriteUniform(u *view.UniformData) error

	// WriteBuffers stages buffer writes into the providers' host copies and uploads them.
	//
	// Parameters:
	//   - writes: the writes to apply
	//
	// Returns:
	//   - error: the first write that does not fit its binding; nothing is staged or uploaded then
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// DrawFrame checks the draw contract for the cached pipeline and draws every view.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered pipeline
	//
	// Returns:
	//   - error: ErrDrawContract or ErrUniformNotBound when the contract does not hold,
	//     or a backend error
	DrawFrame(pipelineKey string) error

	// Present presents the last drawn frame.
	Present()

	// Resize configures the underlying backend to handle a new surface size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the linear RGBA color each frame is cleared to.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c [4]float32)

	// Target returns the layered target of the software backend, or nil for other backends.
	//
	// Returns:
	//   - raster.Target: the target the views are rendered into
	Target() raster.Target

	// Release releases the pipelines, the uniform, and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend.
//
// The WGPU backend presents to surface, which is typically a window.Window, and panics if
// surface is nil. The software backend ignores the surface descriptor and takes its size
// from surface when given, otherwise from WithSize.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - surface: the presentation surface, may be nil for the software backend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		clearColor:    defaultClearColor,
		width:         512,
		height:        512,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAAOff
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}
	if msaa != MSAAOff && msaa != MSAA4x {
		panic(fmt.Sprintf("renderer: unsupported MSAA sample count %d", msaa))
	}
	if surface != nil {
		r.width, r.height = surface.Width(), surface.Height()
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.width, r.height, msaa, r.rasterWorkers)
	case BackendTypeWGPU:
		if surface == nil {
			panic("renderer: the wgpu backend requires a surface")
		}
		r.backend = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	default:
		panic(fmt.Sprintf("renderer: unknown backend %s", backendType))
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.SetClearColor(r.clearColor)
	r.backend.ConfigureSurface(r.width, r.height)

	slog.Debug("renderer created", "backend", backendType.String(), "width", r.width, "height", r.height, "msaa", uint32(msaa))
	return r
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SetClearColor(c [4]float32) {
	r.backend.SetClearColor(c)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelineCache)
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrDrawContract, err)
		}
		if !r.skipShaderValidation {
			if err := checkShaders(p); err != nil {
				return fmt.Errorf("pipeline %s: %w", key, err)
			}
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("pipeline %s: %w", key, err)
		}
		if err := r.initUniform(p); err != nil {
			p.Release()
			return err
		}
		r.pipelineCache[key] = p
		slog.Debug("registered pipeline", "pipeline", key, "views", p.ViewCount(), "vertices", p.VertexCount(), "samples", p.SampleCount())
	}
	return nil
}

// checkShaders validates the canonical source of both stages with naga and checks it
// against the binding layout of the multiview draw.
func checkShaders(p pipeline.Pipeline) error {
	checked := make(map[string]bool, 2)
	for _, st := range []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment} {
		s := p.Shader(st)
		if checked[s.Source()] {
			continue
		}
		checked[s.Source()] = true
		refl, err := shader.Validate(s.Source())
		if err != nil {
			return fmt.Errorf("%s shader %s: %w", st, s.Key(), err)
		}
		if err := shader.CheckBindingContract(refl, shader.ViewModeBuiltin); err != nil {
			return fmt.Errorf("%s shader %s: %w", st, s.Key(), err)
		}
	}
	return nil
}

// initUniform creates the view transform provider from the group 0 layout of p. Later
// pipelines reuse it and must declare a uniform of the same size.
func (r *renderer) initUniform(p pipeline.Pipeline) error {
	desc, ok := p.BindGroupLayoutDescriptors()[0]
	if !ok {
		return fmt.Errorf("pipeline %s: %w: no bind group 0", p.PipelineKey(), shader.ErrBindingLayoutMismatch)
	}
	if r.uniform != nil {
		for _, entry := range desc.Entries {
			if entry.Binding == uniformBinding && entry.Buffer.MinBindingSize != r.uniform.Size(uniformBinding) {
				return fmt.Errorf("pipeline %s: %w: uniform is %d bytes, registered uniform is %d", p.PipelineKey(), shader.ErrBindingLayoutMismatch, entry.Buffer.MinBindingSize, r.uniform.Size(uniformBinding))
			}
		}
		return nil
	}

	provider := bind_group_provider.NewBindGroupProvider("View Transforms", bind_group_provider.WithLayoutDescriptor(desc))
	if err := r.backend.InitBindGroup(provider, desc); err != nil {
		provider.Release()
		return fmt.Errorf("pipeline %s: uniform bind group: %w", p.PipelineKey(), err)
	}
	r.uniform = provider
	return nil
}

func (r *renderer) UniformProvider() bind_group_provider.BindGroupProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uniform
}

func (r *renderer) WriteUniform(u *view.UniformData) error {
	provider := r.UniformProvider()
	if provider == nil {
		return fmt.Errorf("%w: no pipeline registered", ErrUniformNotBound)
	}
	return r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: provider,
		Binding:  uniformBinding,
		Offset:   0,
		Data:     u.Marshal(),
	}})
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Check the whole batch first; a rejected batch stages nothing.
	for _, w := range writes {
		if err := w.Check(); err != nil {
			return err
		}
	}
	for _, w := range writes {
		if err := w.Stage(); err != nil {
			return err
		}
	}
	r.backend.WriteBuffers(writes)
	return nil
}

func (r *renderer) DrawFrame(pipelineKey string) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	provider := r.uniform
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	if err := checkDrawContract(p, provider); err != nil {
		return err
	}
	return r.backend.DrawFrame(p, provider)
}

// checkDrawContract verifies the draw issues view.ViewCount views of
// stage.TriangleVertexCount vertices with a fully written uniform bound at group 0.
func checkDrawContract(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error {
	if p.ViewCount() != view.ViewCount {
		return fmt.Errorf("%w: pipeline %s draws %d views, want %d", ErrDrawContract, p.PipelineKey(), p.ViewCount(), view.ViewCount)
	}
	if p.VertexCount() != stage.TriangleVertexCount {
		return fmt.Errorf("%w: pipeline %s draws %d vertices, want %d", ErrDrawContract, p.PipelineKey(), p.VertexCount(), stage.TriangleVertexCount)
	}
	if provider == nil || !provider.Complete(uniformBinding) {
		return ErrUniformNotBound
	}
	var u view.UniformData
	if provider.Size(uniformBinding) != uint64(u.Size()) {
		return fmt.Errorf("%w: uniform is %d bytes, want %d", ErrUniformNotBound, provider.Size(uniformBinding), u.Size())
	}
	return nil
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Target() raster.Target {
	if sb, ok := r.backend.(*softwareRendererBackendImpl); ok {
		return sb.Target()
	}
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	if r.uniform != nil {
		r.uniform.Release()
		r.uniform = nil
	}
	r.backend.Release()
}
