// Package mesh provides vertex deduplication for indexed triangle meshes.
package mesh

// Strides of the flat attribute arrays.
const (
	PositionStride = 3
	TexCoordStride = 2
	NormalStride   = 3
)

// NoIndex marks an attribute that is not referenced by a face corner
// (for example "f 1//1" has no texture coordinate).
const NoIndex = -1

// IndexTriple references one position, texture coordinate and normal.
// Indices are 0-based vertex indices, not flat-array offsets.
type IndexTriple struct {
	Position int
	TexCoord int
	Normal   int
}

// Key returns the deduplication key of the triple.
func (t IndexTriple) Key() VertexKey {
	return VertexKey(t)
}

// VertexKey identifies a distinct attribute combination. Two face corners
// share a compacted vertex only if their keys are equal.
type VertexKey IndexTriple

// RawMesh is a parsed mesh with flat attribute arrays and one index
// triple per face corner, in face order.
type RawMesh struct {
	Positions []float32 // stride 3
	TexCoords []float32 // stride 2
	Normals   []float32 // stride 3
	Triples   []IndexTriple
}

// PositionCount returns the number of positions in the mesh.
func (m *RawMesh) PositionCount() int { return len(m.Positions) / PositionStride }

// TexCoordCount returns the number of texture coordinates in the mesh.
func (m *RawMesh) TexCoordCount() int { return len(m.TexCoords) / TexCoordStride }

// NormalCount returns the number of normals in the mesh.
func (m *RawMesh) NormalCount() int { return len(m.Normals) / NormalStride }

// CompactedMesh holds deduplicated vertex data ready for GPU upload.
// Vertices, UVs and Normals are parallel arrays with one record per
// unique vertex key; Indices has one entry per original face corner.
type CompactedMesh struct {
	Vertices []float32
	UVs      []float32
	Normals  []float32
	Indices  []uint32
}

// VertexCount returns the number of unique vertices.
func (c *CompactedMesh) VertexCount() int {
	return len(c.Vertices) / PositionStride
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Size returns the extent of the box on each axis.
func (b Bounds) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}
