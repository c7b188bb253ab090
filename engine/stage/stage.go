// Package stage is the CPU reference of the two shader stages in
// engine/renderer/shader/assets/multiview.wgsl. It evaluates exactly what the GPU
// evaluates per invocation so the software backend and tests can check the pipeline
// without a device.
package stage

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-multiview/common"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
)

// TriangleVertexCount is the number of vertices the procedural triangle is drawn with.
const TriangleVertexCount = 3

// ErrViewIndexOutOfRange is the precondition failure raised by checked builds when a
// view index does not address a matrix in the uniform block.
var ErrViewIndexOutOfRange = errors.New("view index out of range")

// ClipPosition is the homogeneous position produced by the vertex stage.
type ClipPosition = [4]float32

// FragmentColor is the RGBA color produced by the fragment stage.
type FragmentColor = [4]float32

// Invocation identifies one vertex stage evaluation within a multiview draw.
type Invocation struct {
	Vertex uint32
	View   uint32
}

// ObjectPosition derives the object-space position of a vertex from its index alone.
// Indices 0, 1 and 2 yield (-1,-1), (0,1) and (1,-1) at z = 0, w = 1.
//
// Parameters:
//   - vertexIndex: the built-in vertex index
//
// Returns:
//   - [4]float32: the homogeneous object-space position
func ObjectPosition(vertexIndex uint32) [4]float32 {
	i := int32(vertexIndex)
	x := float32(i - 1)
	y := float32((i&1)*2 - 1)
	return [4]float32{x, y, 0, 1}
}

// Vertex evaluates the vertex stage for one invocation: the procedural position
// transformed by the matrix selected by viewIndex.
//
// Parameters:
//   - vertexIndex: the built-in vertex index
//   - viewIndex: the built-in view index, must be < view.ViewCount
//   - u: the uniform block shared by every invocation of the draw
//
// Returns:
//   - ClipPosition: matrices[viewIndex] * position
func Vertex(vertexIndex, viewIndex uint32, u *view.UniformData) ClipPosition {
	m := lookupMatrix(u, viewIndex)
	return common.MulVec4(m[:], ObjectPosition(vertexIndex))
}

// Fragment evaluates the fragment stage. Every covered fragment in every view is
// opaque red.
//
// Returns:
//   - FragmentColor: (1, 0, 0, 1)
func Fragment() FragmentColor {
	return FragmentColor{1, 0, 0, 1}
}

// Invocations enumerates the (vertex, view) pairs a draw of vertexCount vertices with
// viewCount view instances executes. Vertex indices are always < vertexCount and view
// indices are always < viewCount.
//
// Parameters:
//   - vertexCount: vertices per draw
//   - viewCount: view instances per draw
//
// Returns:
//   - []Invocation: view-major list of invocations
func Invocations(vertexCount, viewCount uint32) []Invocation {
	out := make([]Invocation, 0, vertexCount*viewCount)
	for v := range viewCount {
		for i := range vertexCount {
			out = append(out, Invocation{Vertex: i, View: v})
		}
	}
	return out
}

// RunVertexStage runs the vertex stage for every invocation of a draw and groups the
// results per view.
//
// Parameters:
//   - u: the uniform block
//   - vertexCount: vertices per draw
//   - viewCount: view instances per draw, must not exceed view.ViewCount
//
// Returns:
//   - [][]ClipPosition: clip positions indexed by [view][vertex]
//   - error: an error if viewCount does not fit the uniform block
func RunVertexStage(u *view.UniformData, vertexCount, viewCount uint32) ([][]ClipPosition, error) {
	if viewCount > uint32(len(u.Matrices)) {
		return nil, fmt.Errorf("%w: %d views requested, uniform holds %d matrices", ErrViewIndexOutOfRange, viewCount, len(u.Matrices))
	}

	out := make([][]ClipPosition, viewCount)
	for v := range out {
		out[v] = make([]ClipPosition, vertexCount)
	}
	for _, inv := range Invocations(vertexCount, viewCount) {
		out[inv.View][inv.Vertex] = Vertex(inv.Vertex, inv.View, u)
	}
	return out, nil
}
