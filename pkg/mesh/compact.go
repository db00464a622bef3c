package mesh

import (
	"fmt"
	gomath "math"
)

// Compact deduplicates the face corners of raw. Each distinct vertex key
// gets the next compact index in order of first occurrence, and its
// attributes are appended to the output arrays at that moment.
//
// A texture coordinate or normal index of NoIndex yields zeroed components.
// Any other index outside its array fails the whole conversion.
func Compact(raw *RawMesh) (*CompactedMesh, error) {
	n := len(raw.Triples)
	if uint64(n) > gomath.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyVertices, n)
	}

	out := &CompactedMesh{
		Vertices: make([]float32, 0, n*PositionStride),
		UVs:      make([]float32, 0, n*TexCoordStride),
		Normals:  make([]float32, 0, n*NormalStride),
		Indices:  make([]uint32, 0, n),
	}

	assigned := make(map[VertexKey]uint32, n)
	var next uint32

	for i, t := range raw.Triples {
		key := t.Key()
		if idx, ok := assigned[key]; ok {
			out.Indices = append(out.Indices, idx)
			continue
		}

		if err := checkTriple(raw, t, i); err != nil {
			return nil, err
		}

		assigned[key] = next
		out.Vertices = appendRecord(out.Vertices, raw.Positions, t.Position, PositionStride)
		out.UVs = appendRecord(out.UVs, raw.TexCoords, t.TexCoord, TexCoordStride)
		out.Normals = appendRecord(out.Normals, raw.Normals, t.Normal, NormalStride)
		out.Indices = append(out.Indices, next)
		next++
	}

	return out, nil
}

// appendRecord appends the stride components of record idx, or zeros for NoIndex.
func appendRecord(dst, src []float32, idx, stride int) []float32 {
	if idx == NoIndex {
		for i := 0; i < stride; i++ {
			dst = append(dst, 0)
		}
		return dst
	}
	off := idx * stride
	return append(dst, src[off:off+stride]...)
}

// checkTriple validates a first-seen triple. Repeated keys were already
// validated on their first occurrence.
func checkTriple(raw *RawMesh, t IndexTriple, occurrence int) error {
	if t.Position < 0 || t.Position >= raw.PositionCount() {
		return &OutOfRangeError{Array: "positions", Index: t.Position, Len: raw.PositionCount(), Occurrence: occurrence}
	}
	if t.TexCoord != NoIndex && (t.TexCoord < 0 || t.TexCoord >= raw.TexCoordCount()) {
		return &OutOfRangeError{Array: "texcoords", Index: t.TexCoord, Len: raw.TexCoordCount(), Occurrence: occurrence}
	}
	if t.Normal != NoIndex && (t.Normal < 0 || t.Normal >= raw.NormalCount()) {
		return &OutOfRangeError{Array: "normals", Index: t.Normal, Len: raw.NormalCount(), Occurrence: occurrence}
	}
	return nil
}

// Validate checks that the parallel arrays agree on the vertex count and
// that every index references an existing vertex.
func (c *CompactedMesh) Validate() error {
	if len(c.Vertices)%PositionStride != 0 {
		return fmt.Errorf("%w: %d vertex floats is not a multiple of %d", ErrInvalidCompacted, len(c.Vertices), PositionStride)
	}
	count := c.VertexCount()
	if len(c.UVs) != count*TexCoordStride {
		return fmt.Errorf("%w: %d uv floats for %d vertices", ErrInvalidCompacted, len(c.UVs), count)
	}
	if len(c.Normals) != count*NormalStride {
		return fmt.Errorf("%w: %d normal floats for %d vertices", ErrInvalidCompacted, len(c.Normals), count)
	}
	for i, idx := range c.Indices {
		if int(idx) >= count {
			return fmt.Errorf("%w: index %d at %d references %d vertices", ErrInvalidCompacted, idx, i, count)
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the unique vertices.
// An empty mesh has a zero box.
func (c *CompactedMesh) Bounds() Bounds {
	if len(c.Vertices) < PositionStride {
		return Bounds{}
	}

	b := Bounds{
		Min: [3]float32{c.Vertices[0], c.Vertices[1], c.Vertices[2]},
		Max: [3]float32{c.Vertices[0], c.Vertices[1], c.Vertices[2]},
	}
	for i := PositionStride; i+PositionStride <= len(c.Vertices); i += PositionStride {
		for axis := 0; axis < 3; axis++ {
			v := c.Vertices[i+axis]
			if v < b.Min[axis] {
				b.Min[axis] = v
			}
			if v > b.Max[axis] {
				b.Max[axis] = v
			}
		}
	}
	return b
}
