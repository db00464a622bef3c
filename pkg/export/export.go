// Package export writes compacted meshes as vertex buffer artifacts: one
// file per stream (vertices, uvs, normals, indices) in binary or ASCII form.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/obj2bin/pkg/mesh"
)

// Export errors.
var (
	ErrUnknownEncoding    = errors.New("unknown encoding")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrInvalidOptions     = errors.New("invalid export options")
)

// Encoding selects the artifact representation.
type Encoding int

// Supported encodings.
const (
	Binary Encoding = iota // packed little-endian 32-bit values
	ASCII                  // whitespace-delimited decimal text
)

// String returns the config name of the encoding.
func (e Encoding) String() string {
	switch e {
	case Binary:
		return "binary"
	case ASCII:
		return "ascii"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Ext returns the file extension of artifacts in this encoding.
func (e Encoding) Ext() string {
	if e == ASCII {
		return ".txt"
	}
	return ".bin"
}

// ParseEncoding parses "binary" or "ascii", case-insensitively.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "bin", "":
		return Binary, nil
	case "ascii", "text", "txt":
		return ASCII, nil
	default:
		return Binary, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// Stream describes one output artifact.
type Stream struct {
	Name   string // vertices, uvs, normals, indices
	Suffix string // appended to the base name
	Fields int    // ASCII tokens per line
}

// The four streams of a compacted mesh, in export order.
var (
	StreamVertices = Stream{Name: "vertices", Suffix: "_vert", Fields: mesh.PositionStride}
	StreamUVs      = Stream{Name: "uvs", Suffix: "_uv", Fields: mesh.TexCoordStride}
	StreamNormals  = Stream{Name: "normals", Suffix: "_norm", Fields: mesh.NormalStride}
	StreamIndices  = Stream{Name: "indices", Suffix: "_idxs", Fields: DefaultIndexFields}
)

// DefaultIndexFields groups ASCII indices three per line. Indices are one
// field per record; the grouping keeps output identical to existing
// tooling that expects triangles per line.
const DefaultIndexFields = 3

// Streams returns the streams in export order.
func Streams() []Stream {
	return []Stream{StreamVertices, StreamUVs, StreamNormals, StreamIndices}
}

// Options controls how artifacts are written.
type Options struct {
	Encoding    Encoding
	Compression Compression
	// Parallel writes the four artifacts concurrently.
	Parallel bool
	// IndexFields overrides the ASCII grouping of the index stream.
	// Zero means DefaultIndexFields.
	IndexFields int
	// Atomic writes each artifact to a temporary file and renames it into
	// place, so a failed write never leaves a truncated artifact.
	Atomic bool
}

// DefaultOptions returns binary, uncompressed, sequential, atomic export.
func DefaultOptions() Options {
	return Options{
		Encoding:    Binary,
		Compression: CompressionNone,
		IndexFields: DefaultIndexFields,
		Atomic:      true,
	}
}

// Artifact is a successfully written output file.
type Artifact struct {
	Stream Stream
	Path   string
	Bytes  int64 // size on disk
}

// IOError reports a failure to create or write one artifact.
type IOError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("writing %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Exporter writes compacted meshes with fixed options.
type Exporter struct {
	opts Options
}

// New returns an exporter for opts.
func New(opts Options) (*Exporter, error) {
	if opts.Encoding != Binary && opts.Encoding != ASCII {
		return nil, fmt.Errorf("%w: %w: %v", ErrInvalidOptions, ErrUnknownEncoding, opts.Encoding)
	}
	if opts.Compression == "" {
		opts.Compression = CompressionNone
	}
	if _, err := ParseCompression(string(opts.Compression)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if opts.IndexFields < 0 {
		return nil, fmt.Errorf("%w: index fields %d", ErrInvalidOptions, opts.IndexFields)
	}
	if opts.IndexFields == 0 {
		opts.IndexFields = DefaultIndexFields
	}
	return &Exporter{opts: opts}, nil
}

// Options returns the effective options.
func (e *Exporter) Options() Options { return e.opts }

// BasePath returns the artifact path prefix for input: the input path
// without its extension, placed in outDir when outDir is not empty.
func BasePath(input, outDir string) string {
	dir := filepath.Dir(input)
	if outDir != "" {
		dir = outDir
	}
	name := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name)))
}

// Path returns the artifact path of stream s for base.
func (e *Exporter) Path(base string, s Stream) string {
	return base + s.Suffix + e.opts.Encoding.Ext() + e.opts.Compression.Ext()
}

// job is one stream bound to its data.
type job struct {
	stream Stream
	encode func(w io.Writer) error
}

func (e *Exporter) jobs(m *mesh.CompactedMesh) []job {
	indices := StreamIndices
	indices.Fields = e.opts.IndexFields

	if e.opts.Encoding == ASCII {
		return []job{
			{StreamVertices, func(w io.Writer) error { return WriteASCIIFloats(w, m.Vertices, StreamVertices.Fields) }},
			{StreamUVs, func(w io.Writer) error { return WriteASCIIFloats(w, m.UVs, StreamUVs.Fields) }},
			{StreamNormals, func(w io.Writer) error { return WriteASCIIFloats(w, m.Normals, StreamNormals.Fields) }},
			{indices, func(w io.Writer) error { return WriteASCIIUint32s(w, m.Indices, indices.Fields) }},
		}
	}
	return []job{
		{StreamVertices, func(w io.Writer) error { return WriteBinaryFloats(w, m.Vertices) }},
		{StreamUVs, func(w io.Writer) error { return WriteBinaryFloats(w, m.UVs) }},
		{StreamNormals, func(w io.Writer) error { return WriteBinaryFloats(w, m.Normals) }},
		{indices, func(w io.Writer) error { return WriteBinaryUint32s(w, m.Indices) }},
	}
}

// Export writes the four artifacts of m next to base. Every artifact is
// attempted; failures are returned joined, one IOError per artifact, along
// with the artifacts that were written.
func (e *Exporter) Export(ctx context.Context, m *mesh.CompactedMesh, base string) ([]Artifact, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	jobs := e.jobs(m)
	results := make([]Artifact, len(jobs))
	errs := make([]error, len(jobs))

	run := func(i int) {
		j := jobs[i]
		path := e.Path(base, j.stream)
		if err := ctx.Err(); err != nil {
			errs[i] = &IOError{Artifact: j.stream.Name, Path: path, Err: err}
			return
		}
		n, err := e.writeArtifact(path, j.encode)
		if err != nil {
			errs[i] = &IOError{Artifact: j.stream.Name, Path: path, Err: err}
			return
		}
		results[i] = Artifact{Stream: j.stream, Path: path, Bytes: n}
	}

	if e.opts.Parallel {
		var g errgroup.Group
		g.SetLimit(len(jobs))
		for i := range jobs {
			i := i
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range jobs {
			run(i)
		}
	}

	written := make([]Artifact, 0, len(jobs))
	for i, a := range results {
		if errs[i] == nil {
			written = append(written, a)
		}
	}
	return written, errors.Join(errs...)
}

// writeArtifact creates path and fills it through encode, returning the
// number of bytes stored.
func (e *Exporter) writeArtifact(path string, encode func(io.Writer) error) (int64, error) {
	if !e.opts.Atomic {
		f, err := os.Create(path)
		if err != nil {
			return 0, err
		}
		n, err := e.fill(f, encode)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return n, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0644)

	n, err := e.fill(tmp, encode)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}

// fill runs encode through the configured compressor into f.
func (e *Exporter) fill(f io.Writer, encode func(io.Writer) error) (int64, error) {
	cw := &countingWriter{w: f}
	zw, err := e.opts.Compression.NewWriter(cw)
	if err != nil {
		return 0, err
	}
	if err := encode(zw); err != nil {
		_ = zw.Close()
		return cw.n, err
	}
	if err := zw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
