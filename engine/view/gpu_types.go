package view

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
)

// ViewCount is the number of view layers every draw renders into. The uniform matrix
// array and the render target layer count are both sized by it.
const ViewCount = 2

// matrixSize is the byte size of one mat4x4<f32>.
const matrixSize = 64

// UniformDataSource is the canonical WGSL definition of the ViewTransforms struct.
// Matches UniformData layout exactly (128 bytes).
//
//go:embed assets/view_transforms.wgsl
var UniformDataSource string

// UniformData is the GPU-aligned representation of the per-view transform uniform.
// Matches the WGSL ViewTransforms struct layout exactly (see UniformDataSource).
// Size: 128 bytes, two contiguous column-major mat4x4<f32>.
type UniformData struct {
	Matrices [ViewCount][16]float32 // offset 0: view 0, offset 64: view 1
}

// Size returns the size of the UniformData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (u *UniformData) Size() int {
	return ViewCount * matrixSize
}

// Marshal serializes the UniformData struct into a byte buffer suitable for GPU upload.
// Matrices are written in view order, each column-major, little-endian.
//
// Returns:
//   - []byte: the serialized byte buffer
func (u *UniformData) Marshal() []byte {
	buf := make([]byte, u.Size())
	for v := range ViewCount {
		for i := range 16 {
			binary.LittleEndian.PutUint32(buf[v*matrixSize+i*4:], math.Float32bits(u.Matrices[v][i]))
		}
	}
	return buf
}

// UnmarshalUniformData decodes a 128-byte uniform buffer back into UniformData.
//
// Parameters:
//   - data: the raw buffer contents
//
// Returns:
//   - UniformData: the decoded matrices
//   - error: an error if data is not exactly 128 bytes
func UnmarshalUniformData(data []byte) (UniformData, error) {
	var u UniformData
	if len(data) != u.Size() {
		return u, fmt.Errorf("uniform data must be %d bytes, got %d", u.Size(), len(data))
	}
	for v := range ViewCount {
		for i := range 16 {
			u.Matrices[v][i] = math.Float32frombits(binary.LittleEndian.Uint32(data[v*matrixSize+i*4:]))
		}
	}
	return u, nil
}
