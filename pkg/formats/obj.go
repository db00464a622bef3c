// Package formats provides parsers for mesh interchange formats.
package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/obj2bin/pkg/encoding"
	"github.com/Faultbox/obj2bin/pkg/mesh"
)

// OBJ format errors.
var (
	ErrMalformedOBJ   = errors.New("malformed OBJ")
	ErrOBJIndexRange  = errors.New("OBJ index out of range")
	ErrOBJZeroIndex   = errors.New("OBJ indices are 1-based, got 0")
	ErrShapeNotFound  = errors.New("shape not found")
	ErrDegenerateFace = errors.New("face has fewer than 3 vertices")
)

// maxOBJLine bounds the length of a single OBJ line.
const maxOBJLine = 16 * 1024 * 1024

// ParseError reports a malformed OBJ statement with its location.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// OBJShape is a named group of triangulated faces.
type OBJShape struct {
	Name    string
	Triples []mesh.IndexTriple // three per triangle
}

// TriangleCount returns the number of triangles in the shape.
func (s *OBJShape) TriangleCount() int {
	return len(s.Triples) / 3
}

// OBJ represents a parsed Wavefront OBJ file. Attribute arrays are flat
// and shared by all shapes; indices are already 0-based.
type OBJ struct {
	Positions    []float32 // stride 3
	TexCoords    []float32 // stride 2
	Normals      []float32 // stride 3
	Shapes       []OBJShape
	MaterialLibs []string

	// Ignored counts statements that do not contribute to the vertex
	// buffer (usemtl, s, l, ...), by keyword.
	Ignored map[string]int
}

// OBJOptions controls OBJ parsing.
type OBJOptions struct {
	// Charset is the encoding of object, group and material names.
	// Empty means UTF-8.
	Charset string
}

// RawMesh returns the mesh of the shape at index i.
func (o *OBJ) RawMesh(i int) (*mesh.RawMesh, error) {
	if i < 0 || i >= len(o.Shapes) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrShapeNotFound, i, len(o.Shapes))
	}
	return &mesh.RawMesh{
		Positions: o.Positions,
		TexCoords: o.TexCoords,
		Normals:   o.Normals,
		Triples:   o.Shapes[i].Triples,
	}, nil
}

// objParser holds state while reading an OBJ stream.
type objParser struct {
	obj     *OBJ
	names   *encoding.Decoder
	current OBJShape
	line    int
	corners []mesh.IndexTriple
}

// ParseOBJ parses an OBJ file from r.
func ParseOBJ(r io.Reader, opts OBJOptions) (*OBJ, error) {
	names, err := encoding.NewDecoder(opts.Charset)
	if err != nil {
		return nil, err
	}

	p := &objParser{obj: &OBJ{}, names: names}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOBJLine)
	for scanner.Scan() {
		p.line++
		text := scanner.Text()
		if err := p.parseLine(text); err != nil {
			return nil, &ParseError{Line: p.line, Text: strings.TrimSpace(text), Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: p.line + 1, Err: fmt.Errorf("%w: %v", ErrMalformedOBJ, err)}
	}

	p.flushShape()
	return p.obj, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string, opts OBJOptions) (*OBJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f, opts)
}

func (p *objParser) parseLine(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	keyword, args := fields[0], fields[1:]
	switch keyword {
	case "v":
		return p.parseVector(&p.obj.Positions, args, 3, 3)
	case "vt":
		return p.parseVector(&p.obj.TexCoords, args, 1, 2)
	case "vn":
		return p.parseVector(&p.obj.Normals, args, 3, 3)
	case "f":
		return p.parseFace(args)
	case "o", "g":
		p.startShape(strings.Join(args, " "))
	case "mtllib":
		for _, lib := range args {
			p.obj.MaterialLibs = append(p.obj.MaterialLibs, p.names.DecodeString(lib))
		}
	default:
		if p.obj.Ignored == nil {
			p.obj.Ignored = make(map[string]int)
		}
		p.obj.Ignored[keyword]++
	}
	return nil
}

// parseVector appends want components from args to dst. Missing trailing
// components (down to required) are zero; extra components are ignored.
func (p *objParser) parseVector(dst *[]float32, args []string, required, want int) error {
	if len(args) < required {
		return fmt.Errorf("%w: expected %d components, found %d", ErrMalformedOBJ, required, len(args))
	}
	for i := 0; i < want; i++ {
		if i >= len(args) {
			*dst = append(*dst, 0)
			continue
		}
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return fmt.Errorf("%w: invalid number %q", ErrMalformedOBJ, args[i])
		}
		*dst = append(*dst, float32(f))
	}
	return nil
}

// parseFace resolves the corners of a polygon and fan-triangulates it.
func (p *objParser) parseFace(args []string) error {
	if len(args) < 3 {
		return ErrDegenerateFace
	}

	p.corners = p.corners[:0]
	for _, arg := range args {
		t, err := p.parseCorner(arg)
		if err != nil {
			return err
		}
		p.corners = append(p.corners, t)
	}

	for i := 1; i+1 < len(p.corners); i++ {
		p.current.Triples = append(p.current.Triples, p.corners[0], p.corners[i], p.corners[i+1])
	}
	return nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn".
func (p *objParser) parseCorner(s string) (mesh.IndexTriple, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 || parts[0] == "" {
		return mesh.IndexTriple{}, fmt.Errorf("%w: invalid face vertex %q", ErrMalformedOBJ, s)
	}

	t := mesh.IndexTriple{TexCoord: mesh.NoIndex, Normal: mesh.NoIndex}

	var err error
	if t.Position, err = resolveIndex(parts[0], len(p.obj.Positions)/mesh.PositionStride); err != nil {
		return t, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if t.TexCoord, err = resolveIndex(parts[1], len(p.obj.TexCoords)/mesh.TexCoordStride); err != nil {
			return t, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if t.Normal, err = resolveIndex(parts[2], len(p.obj.Normals)/mesh.NormalStride); err != nil {
			return t, err
		}
	}
	return t, nil
}

// resolveIndex converts a 1-based or negative (relative) OBJ index into a
// 0-based index into an array of count records.
func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid index %q", ErrMalformedOBJ, s)
	}

	switch {
	case i > 0:
		i--
	case i < 0:
		i += count
	default:
		return 0, ErrOBJZeroIndex
	}

	if i < 0 || i >= count {
		return 0, fmt.Errorf("%w: %s with %d defined", ErrOBJIndexRange, s, count)
	}
	return i, nil
}

// startShape begins a new shape, or renames the current one if it has
// no faces yet.
func (p *objParser) startShape(name string) {
	name = p.names.DecodeString(name)
	if len(p.current.Triples) == 0 {
		p.current.Name = name
		return
	}
	p.flushShape()
	p.current = OBJShape{Name: name}
}

func (p *objParser) flushShape() {
	if len(p.current.Triples) == 0 {
		return
	}
	p.obj.Shapes = append(p.obj.Shapes, p.current)
	p.current = OBJShape{}
}
