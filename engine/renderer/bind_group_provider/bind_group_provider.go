package bind_group_provider

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed.
	// They are populated by the Renderer during initialization, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized with the Renderer.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer

	// sizes holds the declared byte size of each binding, usually the layout's MinBindingSize.
	sizes map[int]uint64
	// data holds a host copy of every byte written to each binding. Software backends
	// read the uniform from here and the draw contract checks it for completeness.
	data map[int][]byte
	// written tracks how many bytes of each binding have been covered by writes since the
	// binding was sized.
	written map[int][]bool
}

// BindGroupProvider defines the interface for the GPU binding resources of a bind group.
// The multiview pipeline holds a single provider for group 0, whose binding 0 is the
// per-view transform uniform.
//
// Usage pattern:
//  1. The Renderer creates a provider and sizes its bindings from the pipeline's layout
//  2. GPU backends create the buffer, layout, and bind group and store them via the setters
//  3. Per frame, the host stages a BufferWrite which updates both the GPU buffer and the host copy
//  4. The draw sets BindGroup() at group 0 before issuing vertices
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider and forgets the host copies.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the GPU buffer for a binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns a map of all GPU buffers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: a map of buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// Size returns the declared byte size of a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size, or 0 if the binding has not been sized
	Size(binding int) uint64

	// SetSize declares the byte size of a binding and resets its host copy to zeroes.
	//
	// Parameters:
	//   - binding: the binding index
	//   - size: the size in bytes
	SetSize(binding int, size uint64)

	// Write copies data into the host copy of a binding at offset.
	//
	// Parameters:
	//   - binding: the binding index
	//   - offset: the byte offset within the binding
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the binding is not sized or the write runs past its end
	Write(binding int, offset uint64, data []byte) error

	// CheckWrite reports whether a write of n bytes at offset would fit the binding,
	// without touching the host copy.
	//
	// Parameters:
	//   - binding: the binding index
	//   - offset: the byte offset within the binding
	//   - n: the write length in bytes
	//
	// Returns:
	//   - error: the error Write would return for the same range, nil if it fits
	CheckWrite(binding int, offset uint64, n int) error

	// Data returns a copy of the host bytes of a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - []byte: the bytes, or nil if the binding has not been sized
	Data(binding int) []byte

	// Complete reports whether every byte of a sized binding has been written at least once.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - bool: true if the binding is sized and fully written
	Complete(binding int) bool

	// SetBindGroup sets the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer sets the GPU buffer of a binding after GPU initialization.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetBuffers sets multiple buffers at once after GPU initialization.
	//
	// Parameters:
	//   - buffers: a map of buffers keyed by binding index
	SetBuffers(buffers map[int]*wgpu.Buffer)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided label and options.
//
// Parameters:
//   - label: the debug label, used as a prefix for GPU resource labels
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:      &sync.Mutex{},
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
		sizes:   make(map[int]uint64),
		data:    make(map[int][]byte),
		written: make(map[int][]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) Size(binding int) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sizes[binding]
}

func (p *bindGroupProvider) SetSize(binding int, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setSize(binding, size)
}

func (p *bindGroupProvider) setSize(binding int, size uint64) {
	p.sizes[binding] = size
	p.data[binding] = make([]byte, size)
	p.written[binding] = make([]bool, size)
}

func (p *bindGroupProvider) Write(binding int, offset uint64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkWrite(binding, offset, len(data)); err != nil {
		return err
	}
	end := offset + uint64(len(data))
	copy(p.data[binding][offset:end], data)
	for i := offset; i < end; i++ {
		p.written[binding][i] = true
	}
	return nil
}

func (p *bindGroupProvider) CheckWrite(binding int, offset uint64, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkWrite(binding, offset, n)
}

// checkWrite compares lengths against the space left after offset so a huge offset
// cannot wrap the end of the range. Caller must hold the mutex.
func (p *bindGroupProvider) checkWrite(binding int, offset uint64, n int) error {
	size, ok := p.sizes[binding]
	if !ok {
		return fmt.Errorf("%s: binding %d has no declared size", p.label, binding)
	}
	if n < 0 || offset > size || uint64(n) > size-offset {
		return fmt.Errorf("%s: write of %d bytes at offset %d overruns binding %d (%d bytes)", p.label, n, offset, binding, size)
	}
	return nil
}

func (p *bindGroupProvider) Data(binding int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data[binding] == nil {
		return nil
	}
	return append([]byte(nil), p.data[binding]...)
}

func (p *bindGroupProvider) Complete(binding int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	mask, ok := p.written[binding]
	if !ok || len(mask) == 0 {
		return false
	}
	for _, w := range mask {
		if !w {
			return false
		}
	}
	return true
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetBuffers(buffers map[int]*wgpu.Buffer) {
	p.buffers = buffers
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.sizes)
	clear(p.data)
	clear(p.written)
}
