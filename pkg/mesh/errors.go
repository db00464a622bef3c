package mesh

import (
	"errors"
	"fmt"
)

// Deduplication errors.
var (
	ErrOutOfRange       = errors.New("index out of range")
	ErrTooManyVertices  = errors.New("too many face vertices for 32-bit indices")
	ErrInvalidCompacted = errors.New("invalid compacted mesh")
)

// OutOfRangeError reports a face corner that references an attribute
// outside its array.
type OutOfRangeError struct {
	Array      string // "positions", "texcoords" or "normals"
	Index      int
	Len        int // number of records in the array
	Occurrence int // position of the triple in the input sequence
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0,%d) at face vertex %d",
		e.Array, e.Index, e.Len, e.Occurrence)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }
