package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindGroupProviderLabel(t *testing.T) {
	p := NewBindGroupProvider("view transforms")
	assert.Equal(t, "view transforms", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
	assert.Nil(t, p.Buffer(0))
	assert.Empty(t, p.Buffers())
}

func TestWriteRequiresSize(t *testing.T) {
	p := NewBindGroupProvider("unsized")
	err := p.Write(0, 0, []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no declared size")
	assert.Nil(t, p.Data(0))
	assert.False(t, p.Complete(0))
}

func TestWriteTracksCompleteness(t *testing.T) {
	p := NewBindGroupProvider("uniform", WithBindingSize(0, 8))
	assert.Equal(t, uint64(8), p.Size(0))
	assert.Equal(t, make([]byte, 8), p.Data(0))
	assert.False(t, p.Complete(0))

	require.NoError(t, p.Write(0, 4, []byte{5, 6, 7, 8}))
	assert.False(t, p.Complete(0))
	require.NoError(t, p.Write(0, 0, []byte{1, 2, 3, 4}))
	assert.True(t, p.Complete(0))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, p.Data(0))

	err := p.Write(0, 6, []byte{0, 0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overruns binding 0")

	// Data is a copy.
	d := p.Data(0)
	d[0] = 99
	assert.Equal(t, byte(1), p.Data(0)[0])

	// Resizing forgets earlier writes.
	p.SetSize(0, 4)
	assert.False(t, p.Complete(0))
	assert.Equal(t, make([]byte, 4), p.Data(0))
}

func TestWithLayoutDescriptor(t *testing.T) {
	desc := wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 128}},
			{Binding: 1, Visibility: wgpu.ShaderStageFragment},
		},
	}
	p := NewBindGroupProvider("layout", WithLayoutDescriptor(desc))
	assert.Equal(t, uint64(128), p.Size(0))
	assert.Equal(t, uint64(0), p.Size(1))
}

func TestBufferWriteStage(t *testing.T) {
	p := NewBindGroupProvider("uniform", WithBindingSize(0, 4))
	require.NoError(t, BufferWrite{Provider: p, Binding: 0, Data: []byte{1, 2, 3, 4}}.Stage())
	assert.True(t, p.Complete(0))

	assert.Error(t, BufferWrite{Binding: 0, Data: []byte{1}}.Stage())
	assert.Error(t, BufferWrite{Provider: p, Binding: 3, Data: []byte{1}}.Stage())
}

func TestReleaseForgetsHostCopies(t *testing.T) {
	p := NewBindGroupProvider("uniform", WithBindingSize(0, 4))
	require.NoError(t, p.Write(0, 0, []byte{1, 2, 3, 4}))
	p.Release()
	assert.Equal(t, uint64(0), p.Size(0))
	assert.Nil(t, p.Data(0))
	assert.False(t, p.Complete(0))
}

func TestWriteRejectsWrappingOffset(t *testing.T) {
	p := NewBindGroupProvider("uniform", WithBindingSize(0, 8))
	require.NoError(t, p.Write(0, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	// offset + len wraps to 2, which is inside the binding.
	huge := ^uint64(0) - 1
	err := p.Write(0, huge, []byte{9, 9, 9, 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overruns binding 0")
	assert.Error(t, p.CheckWrite(0, 9, 0))
	assert.NoError(t, p.CheckWrite(0, 8, 0))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, p.Data(0))
}

func TestBufferWriteCheckLeavesHostCopy(t *testing.T) {
	p := NewBindGroupProvider("uniform", WithBindingSize(0, 4))
	require.NoError(t, BufferWrite{Provider: p, Binding: 0, Data: []byte{1, 2}}.Check())
	assert.Equal(t, make([]byte, 4), p.Data(0))
	assert.False(t, p.Complete(0))

	assert.Error(t, BufferWrite{Provider: p, Binding: 0, Offset: 3, Data: []byte{1, 2}}.Check())
	assert.Error(t, BufferWrite{Data: []byte{1}}.Check())
}
