package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindingSize declares the byte size of a binding so writes can be staged before any
// GPU resources exist.
//
// Parameters:
//   - binding: the binding index
//   - size: the size in bytes
//
// Returns:
//   - BindGroupProviderOption: a function that sizes the binding
func WithBindingSize(binding int, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.setSize(binding, size)
	}
}

// WithLayoutDescriptor sizes every buffer binding of a layout descriptor from its MinBindingSize.
//
// Parameters:
//   - desc: the bind group layout descriptor
//
// Returns:
//   - BindGroupProviderOption: a function that sizes the descriptor's bindings
func WithLayoutDescriptor(desc wgpu.BindGroupLayoutDescriptor) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for _, entry := range desc.Entries {
			if entry.Buffer.Type == wgpu.BufferBindingTypeUndefined {
				continue
			}
			p.setSize(int(entry.Binding), entry.Buffer.MinBindingSize)
		}
	}
}

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
