package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend. It needs a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU rasterizer, which renders every view into its
	// own layer of an offscreen target.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType maps a backend name to its RendererBackendType.
//
// Parameters:
//   - name: "wgpu" or "software", case insensitive
//
// Returns:
//   - RendererBackendType: the backend type
//   - error: an error if the name is unknown
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(name) {
	case "wgpu":
		return BackendTypeWGPU, nil
	case "software":
		return BackendTypeSoftware, nil
	default:
		return 0, fmt.Errorf("unknown renderer backend %q", name)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a present mode name to its PresentMode.
//
// Parameters:
//   - name: "vsync" or "uncapped", case insensitive
//
// Returns:
//   - PresentMode: the present mode
//   - error: an error if the name is unknown
func ParsePresentMode(name string) (PresentMode, error) {
	switch strings.ToLower(name) {
	case "vsync":
		return PresentModeVSync, nil
	case "uncapped":
		return PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("unknown present mode %q", name)
	}
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4, which are the only counts the multiview
// pipeline accepts.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. The multisampled target is resolved
	// into the presented image and its samples are discarded.
	MSAA4x MSAASampleCount = 4
)

// Surface is the presentation target of the WGPU backend. window.Window satisfies it.
type Surface interface {
	Width() int
	Height() int
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// RendererBackend is the interface every backend implements. The Renderer checks the
// draw contract before calling into it, so backends may assume a validated pipeline and
// a fully written uniform.
type RendererBackend interface {
	// ConfigureSurface sizes the color targets. This is required when the surface size
	// changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets how frames are delivered to the display. Takes effect on the
	// next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the linear RGBA color every frame is cleared to.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c [4]float32)

	// RegisterRenderPipeline creates the backend objects that draw pipeline p.
	//
	// Parameters:
	//   - p: the pipeline to create
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitBindGroup creates the buffers and bind group described by descriptor and stores
	// them on provider.
	//
	// Parameters:
	//   - provider: the provider to store the created resources on
	//   - descriptor: the bind group layout of the group
	//
	// Returns:
	//   - error: an error if the resources could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers uploads staged buffer writes. The Renderer has already applied them to
	// the providers' host copies.
	//
	// Parameters:
	//   - writes: the writes to upload
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// DrawFrame clears the color target and draws every view of p with provider bound
	// at group 0, then submits the work.
	//
	// Parameters:
	//   - p: the registered pipeline
	//   - provider: the provider holding the view transform uniform
	//
	// Returns:
	//   - error: an error if the frame could not be recorded or submitted
	DrawFrame(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error

	// Present displays the last submitted frame.
	Present()

	// Release frees every backend resource.
	Release()
}
