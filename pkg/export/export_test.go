package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/obj2bin/pkg/mesh"
)

func testMesh() *mesh.CompactedMesh {
	return &mesh.CompactedMesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		UVs:      []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
}

func newExporter(t *testing.T, opts Options) *Exporter {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestWriteASCIIFloats_UVPairs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteASCIIFloats(&buf, []float32{0.1, 0.2, 0.3, 0.4}, 2))
	assert.Equal(t, "0.100000 0.200000\n0.300000 0.400000\n", buf.String())
}

func TestWriteASCIIFloats_PartialRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteASCIIFloats(&buf, []float32{1, -2.5, 3, 4}, 3))
	assert.Equal(t, "1.000000 -2.500000 3.000000\n4.000000 ", buf.String())
}

func TestWriteASCIIFloats_NonFinite(t *testing.T) {
	var buf bytes.Buffer
	values := []float32{float32(gomath.NaN()), float32(gomath.Inf(1)), float32(gomath.Inf(-1))}
	require.NoError(t, WriteASCIIFloats(&buf, values, 3))
	assert.Equal(t, "nan inf -inf\n", buf.String())
}

func TestWriteASCIIUint32s(t *testing.T) {
	tests := []struct {
		fields int
		want   string
	}{
		{3, "0 1 2\n0 2 3\n"},
		{1, "0\n1\n2\n0\n2\n3\n"},
		{4, "0 1 2 0\n2 3 "},
		{0, "0\n1\n2\n0\n2\n3\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteASCIIUint32s(&buf, []uint32{0, 1, 2, 0, 2, 3}, tt.fields))
		assert.Equal(t, tt.want, buf.String(), "fields=%d", tt.fields)
	}
}

func TestWriteBinary_LittleEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBinaryFloats(&buf, []float32{1.5, -2}))
	require.Equal(t, 8, buf.Len())
	assert.Equal(t, gomath.Float32bits(1.5), binary.LittleEndian.Uint32(buf.Bytes()[0:4]))
	assert.Equal(t, gomath.Float32bits(-2), binary.LittleEndian.Uint32(buf.Bytes()[4:8]))

	buf.Reset()
	require.NoError(t, WriteBinaryUint32s(&buf, []uint32{1, 0xDEADBEEF}))
	assert.Equal(t, []byte{1, 0, 0, 0, 0xEF, 0xBE, 0xAD, 0xDE}, buf.Bytes())
}

func TestBasePath(t *testing.T) {
	assert.Equal(t, filepath.Join("models", "cube"), BasePath(filepath.Join("models", "cube.obj"), ""))
	assert.Equal(t, filepath.Join("out", "cube"), BasePath(filepath.Join("models", "cube.obj"), "out"))
	assert.Equal(t, filepath.Join(".", "mesh.v2"), BasePath("mesh.v2.obj", ""))
}

func TestExporter_Path(t *testing.T) {
	tests := []struct {
		opts Options
		want string
	}{
		{Options{Encoding: Binary}, "cube_vert.bin"},
		{Options{Encoding: ASCII}, "cube_vert.txt"},
		{Options{Encoding: Binary, Compression: CompressionZstd}, "cube_vert.bin.zst"},
		{Options{Encoding: ASCII, Compression: CompressionLZ4}, "cube_vert.txt.lz4"},
	}
	for _, tt := range tests {
		e := newExporter(t, tt.opts)
		assert.Equal(t, tt.want, e.Path("cube", StreamVertices))
	}
}

func TestExport_Binary(t *testing.T) {
	base := filepath.Join(t.TempDir(), "quad")
	m := testMesh()

	artifacts, err := newExporter(t, DefaultOptions()).Export(context.Background(), m, base)
	require.NoError(t, err)
	require.Len(t, artifacts, 4)

	wantSizes := map[string]int64{
		"vertices": int64(len(m.Vertices) * 4),
		"uvs":      int64(len(m.UVs) * 4),
		"normals":  int64(len(m.Normals) * 4),
		"indices":  int64(len(m.Indices) * 4),
	}
	for _, a := range artifacts {
		info, err := os.Stat(a.Path)
		require.NoError(t, err)
		assert.Equal(t, wantSizes[a.Stream.Name], info.Size(), a.Stream.Name)
		assert.Equal(t, info.Size(), a.Bytes)
	}

	data, err := os.ReadFile(base + "_idxs.bin")
	require.NoError(t, err)
	got := make([]uint32, len(data)/4)
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, got))
	assert.Equal(t, m.Indices, got)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(base), ".*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExport_ASCII(t *testing.T) {
	base := filepath.Join(t.TempDir(), "quad")
	opts := DefaultOptions()
	opts.Encoding = ASCII

	_, err := newExporter(t, opts).Export(context.Background(), testMesh(), base)
	require.NoError(t, err)

	uv, err := os.ReadFile(base + "_uv.txt")
	require.NoError(t, err)
	assert.Equal(t, "0.000000 0.000000\n1.000000 0.000000\n1.000000 1.000000\n0.000000 1.000000\n", string(uv))

	idx, err := os.ReadFile(base + "_idxs.txt")
	require.NoError(t, err)
	assert.Equal(t, "0 1 2\n0 2 3\n", string(idx))
}

func TestExport_IndexFieldsOverride(t *testing.T) {
	base := filepath.Join(t.TempDir(), "quad")
	opts := DefaultOptions()
	opts.Encoding = ASCII
	opts.IndexFields = 1

	_, err := newExporter(t, opts).Export(context.Background(), testMesh(), base)
	require.NoError(t, err)

	idx, err := os.ReadFile(base + "_idxs.txt")
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n0\n2\n3\n", string(idx))
}

func TestExport_EmptyMesh(t *testing.T) {
	for _, enc := range []Encoding{Binary, ASCII} {
		t.Run(enc.String(), func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "empty")
			opts := DefaultOptions()
			opts.Encoding = enc

			artifacts, err := newExporter(t, opts).Export(context.Background(), &mesh.CompactedMesh{}, base)
			require.NoError(t, err)
			require.Len(t, artifacts, 4)
			for _, a := range artifacts {
				info, err := os.Stat(a.Path)
				require.NoError(t, err)
				assert.Zero(t, info.Size())
			}
		})
	}
}

func TestExport_ParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	m := testMesh()

	seq := DefaultOptions()
	par := DefaultOptions()
	par.Parallel = true

	_, err := newExporter(t, seq).Export(context.Background(), m, filepath.Join(dir, "seq"))
	require.NoError(t, err)
	artifacts, err := newExporter(t, par).Export(context.Background(), m, filepath.Join(dir, "par"))
	require.NoError(t, err)
	require.Len(t, artifacts, 4)

	for i, s := range Streams() {
		assert.Equal(t, s.Name, artifacts[i].Stream.Name)
		a, err := os.ReadFile(filepath.Join(dir, "seq"+s.Suffix+".bin"))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dir, "par"+s.Suffix+".bin"))
		require.NoError(t, err)
		assert.Equal(t, a, b, s.Name)
	}
}

func TestExport_Idempotent(t *testing.T) {
	base := filepath.Join(t.TempDir(), "quad")
	e := newExporter(t, DefaultOptions())

	_, err := e.Export(context.Background(), testMesh(), base)
	require.NoError(t, err)
	first, err := os.ReadFile(base + "_vert.bin")
	require.NoError(t, err)

	_, err = e.Export(context.Background(), testMesh(), base)
	require.NoError(t, err)
	second, err := os.ReadFile(base + "_vert.bin")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExport_Compressed(t *testing.T) {
	m := testMesh()
	var want bytes.Buffer
	require.NoError(t, WriteBinaryFloats(&want, m.Vertices))

	tests := []struct {
		compression Compression
		open        func(io.Reader) (io.Reader, error)
	}{
		{CompressionZstd, func(r io.Reader) (io.Reader, error) { return zstd.NewReader(r) }},
		{CompressionLZ4, func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil }},
	}

	for _, tt := range tests {
		t.Run(string(tt.compression), func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "quad")
			opts := DefaultOptions()
			opts.Compression = tt.compression

			_, err := newExporter(t, opts).Export(context.Background(), m, base)
			require.NoError(t, err)

			f, err := os.Open(base + "_vert.bin" + tt.compression.Ext())
			require.NoError(t, err)
			defer f.Close()

			r, err := tt.open(f)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, want.Bytes(), got)
		})
	}
}

func TestExport_UnwritableDestination(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		base := filepath.Join(t.TempDir(), "missing", "quad")
		opts := DefaultOptions()
		opts.Atomic = atomic

		artifacts, err := newExporter(t, opts).Export(context.Background(), testMesh(), base)
		require.Error(t, err)
		assert.Empty(t, artifacts)
		assert.True(t, errors.Is(err, os.ErrNotExist))

		// Every stream is attempted and reported.
		joined, ok := err.(interface{ Unwrap() []error })
		require.True(t, ok)
		require.Len(t, joined.Unwrap(), 4)
		for i, e := range joined.Unwrap() {
			var ioErr *IOError
			require.ErrorAs(t, e, &ioErr)
			assert.Equal(t, Streams()[i].Name, ioErr.Artifact)
			assert.Contains(t, ioErr.Error(), ioErr.Path)
		}
	}
}

func TestExport_InvalidMesh(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bad")
	bad := &mesh.CompactedMesh{Vertices: make([]float32, 3), Indices: []uint32{0}}

	_, err := newExporter(t, DefaultOptions()).Export(context.Background(), bad, base)
	assert.ErrorIs(t, err, mesh.ErrInvalidCompacted)

	_, statErr := os.Stat(base + "_vert.bin")
	assert.True(t, os.IsNotExist(statErr))
}

func TestExport_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newExporter(t, DefaultOptions()).Export(ctx, testMesh(), filepath.Join(t.TempDir(), "quad"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Encoding: Encoding(7)})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(Options{Compression: "brotli"})
	assert.ErrorIs(t, err, ErrUnknownCompression)

	_, err = New(Options{IndexFields: -1})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	e, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultIndexFields, e.Options().IndexFields)
	assert.Equal(t, CompressionNone, e.Options().Compression)
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"ascii", ASCII, false},
		{"ASCII", ASCII, false},
		{"binary", Binary, false},
		{"", Binary, false},
		{"hex", Binary, true},
	}
	for _, tt := range tests {
		got, err := ParseEncoding(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownEncoding, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	c, err = ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	_, err = ParseCompression("gzip")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}
