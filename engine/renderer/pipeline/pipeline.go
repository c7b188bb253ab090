package pipeline

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-multiview/engine/stage"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the render state of the multiview draw and the GPU pipelines created for it.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// renderPipelines holds one GPU pipeline per view for layered rendering, or a single
	// pipeline when the backend renders all views in one multiview pass
	renderPipelines []*wgpu.RenderPipeline

	viewCount   uint32
	vertexCount uint32
	sampleCount uint32
	colorFormat wgpu.TextureFormat
	cullMode    wgpu.CullMode
	topology    wgpu.PrimitiveTopology
	frontFace   wgpu.FrontFace
	writeMask   wgpu.ColorWriteMask
}

// Pipeline defines the interface for the multiview render pipeline: the vertex and fragment
// shaders, the number of views drawn per submission, the vertex count of the draw, and the
// color target and rasterizer state.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// ViewCount returns the number of views drawn per submission.
	//
	// Returns:
	//   - uint32: the view count
	ViewCount() uint32

	// VertexCount returns the number of vertices issued per view.
	//
	// Returns:
	//   - uint32: the vertex count
	VertexCount() uint32

	// SampleCount returns the multisample count of the color target.
	//
	// Returns:
	//   - uint32: 1 or 4
	SampleCount() uint32

	// ColorFormat returns the format of the color target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the color target format
	ColorFormat() wgpu.TextureFormat

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// PrimitiveState builds the wgpu primitive state from the pipeline configuration.
	//
	// Returns:
	//   - wgpu.PrimitiveState: topology, front face, and cull mode
	PrimitiveState() wgpu.PrimitiveState

	// MultisampleState builds the wgpu multisample state with all samples enabled.
	//
	// Returns:
	//   - wgpu.MultisampleState: the sample count and mask
	MultisampleState() wgpu.MultisampleState

	// ColorTargets builds the single color target state of the pipeline.
	//
	// Returns:
	//   - []wgpu.ColorTargetState: one target with the color format and write mask
	ColorTargets() []wgpu.ColorTargetState

	// BindGroupLayoutDescriptors merges the bind group layouts of the vertex and fragment
	// shaders. Bindings declared by both stages get the union of their visibilities.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: merged descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Validate checks the pipeline against the multiview draw: both shaders set, view.ViewCount
	// views, stage.TriangleVertexCount vertices, and a sample count of 1 or 4.
	//
	// Returns:
	//   - error: nil if the pipeline can be drawn
	Validate() error

	// RenderPipeline returns the GPU pipeline for a view, or nil if not created.
	// With a single pipeline every view maps to it.
	//
	// Parameters:
	//   - viewIndex: the view index
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline for the view
	RenderPipeline(viewIndex int) *wgpu.RenderPipeline

	// SetRenderPipelines sets the GPU pipelines created for this pipeline.
	//
	// Parameters:
	//   - pipelines: one pipeline per view, or a single multiview pipeline
	SetRenderPipelines(pipelines []*wgpu.RenderPipeline)

	// Release releases the GPU pipelines.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new multiview Pipeline with the given key and options applied.
// Defaults: view.ViewCount views, stage.TriangleVertexCount vertices, no multisampling,
// an RGBA8 sRGB color target, triangle list topology, counter-clockwise front faces,
// and no culling.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
		viewCount:   view.ViewCount,
		vertexCount: stage.TriangleVertexCount,
		sampleCount: 1,
		colorFormat: wgpu.TextureFormatRGBA8UnormSrgb,
		cullMode:    wgpu.CullModeNone,
		topology:    wgpu.PrimitiveTopologyTriangleList,
		frontFace:   wgpu.FrontFaceCCW,
		writeMask:   wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) ViewCount() uint32 {
	return p.viewCount
}

func (p *pipeline) VertexCount() uint32 {
	return p.vertexCount
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) PrimitiveState() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  p.topology,
		FrontFace: p.frontFace,
		CullMode:  p.cullMode,
	}
}

func (p *pipeline) MultisampleState() wgpu.MultisampleState {
	return wgpu.MultisampleState{
		Count: p.sampleCount,
		Mask:  0xFFFFFFFF,
	}
}

func (p *pipeline) ColorTargets() []wgpu.ColorTargetState {
	return []wgpu.ColorTargetState{{
		Format:    p.colorFormat,
		WriteMask: p.writeMask,
	}}
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader} {
		if s == nil {
			continue
		}
		for group, desc := range s.BindGroupLayoutDescriptors() {
			if merged[group] == nil {
				merged[group] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, entry := range desc.Entries {
				if existing, ok := merged[group][entry.Binding]; ok {
					existing.Visibility |= entry.Visibility
					merged[group][entry.Binding] = existing
					continue
				}
				merged[group][entry.Binding] = entry
			}
		}
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(merged))
	for group, entries := range merged {
		desc := wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s/group%d", p.pipelineKey, group)}
		for _, entry := range entries {
			desc.Entries = append(desc.Entries, entry)
		}
		sort.Slice(desc.Entries, func(i, j int) bool {
			return desc.Entries[i].Binding < desc.Entries[j].Binding
		})
		result[group] = desc
	}
	return result
}

func (p *pipeline) Validate() error {
	if p.vertexShader == nil || p.fragmentShader == nil {
		return fmt.Errorf("pipeline %s: vertex and fragment shaders are required", p.pipelineKey)
	}
	if p.viewCount != view.ViewCount {
		return fmt.Errorf("pipeline %s: view count %d, want %d", p.pipelineKey, p.viewCount, view.ViewCount)
	}
	if p.vertexCount != stage.TriangleVertexCount {
		return fmt.Errorf("pipeline %s: vertex count %d, want %d", p.pipelineKey, p.vertexCount, stage.TriangleVertexCount)
	}
	if p.sampleCount != 1 && p.sampleCount != 4 {
		return fmt.Errorf("pipeline %s: sample count %d, want 1 or 4", p.pipelineKey, p.sampleCount)
	}
	return nil
}

func (p *pipeline) RenderPipeline(viewIndex int) *wgpu.RenderPipeline {
	switch {
	case len(p.renderPipelines) == 1:
		return p.renderPipelines[0]
	case viewIndex >= 0 && viewIndex < len(p.renderPipelines):
		return p.renderPipelines[viewIndex]
	default:
		return nil
	}
}

func (p *pipeline) SetRenderPipelines(pipelines []*wgpu.RenderPipeline) {
	p.renderPipelines = pipelines
}

func (p *pipeline) Release() {
	for _, rp := range p.renderPipelines {
		if rp != nil {
			rp.Release()
		}
	}
	p.renderPipelines = nil
}
