// Package convert runs the OBJ to vertex buffer pipeline:
// parse, deduplicate, export.
package convert

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/obj2bin/internal/logger"
	"github.com/Faultbox/obj2bin/pkg/export"
	"github.com/Faultbox/obj2bin/pkg/formats"
	"github.com/Faultbox/obj2bin/pkg/mesh"
)

// ErrEmptyMesh is returned when the input parses but has no faces.
var ErrEmptyMesh = errors.New("no shapes found in OBJ file")

// Options describes one conversion.
type Options struct {
	Input   string // path to the OBJ file
	OutDir  string // empty writes next to the input
	Charset string // encoding of names in the OBJ file
	Shape   int    // index of the shape to convert
	Export  export.Options
}

// Result summarizes a successful conversion.
type Result struct {
	ShapeName   string
	FaceCorners int // index triples read
	Vertices    int // unique vertices written
	Bounds      mesh.Bounds
	Artifacts   []export.Artifact
}

// Run converts opts.Input into four artifacts. Nothing is written unless
// parsing and deduplication succeed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	exporter, err := export.New(opts.Export)
	if err != nil {
		return nil, err
	}

	done := logger.Stage("load")
	obj, err := formats.ParseOBJFile(opts.Input, formats.OBJOptions{Charset: opts.Charset})
	if err != nil {
		return nil, err
	}
	done(
		zap.Int("positions", len(obj.Positions)/mesh.PositionStride),
		zap.Int("texcoords", len(obj.TexCoords)/mesh.TexCoordStride),
		zap.Int("normals", len(obj.Normals)/mesh.NormalStride),
		zap.Int("shapes", len(obj.Shapes)),
	)
	for keyword, n := range obj.Ignored {
		logger.Debug("ignored OBJ statements", zap.String("keyword", keyword), zap.Int("count", n))
	}

	if len(obj.Shapes) == 0 {
		return nil, ErrEmptyMesh
	}
	raw, err := obj.RawMesh(opts.Shape)
	if err != nil {
		return nil, err
	}
	shape := obj.Shapes[opts.Shape]
	if len(obj.Shapes) > 1 {
		logger.Warn("OBJ has several shapes, converting one",
			zap.Int("shapes", len(obj.Shapes)),
			zap.Int("shape", opts.Shape),
			zap.String("name", shape.Name))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = logger.Stage("process")
	compacted, err := mesh.Compact(raw)
	if err != nil {
		return nil, fmt.Errorf("compacting shape %q: %w", shape.Name, err)
	}
	done(
		zap.Int("face_vertices", len(raw.Triples)),
		zap.Int("unique_vertices", compacted.VertexCount()),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opt := exporter.Options()
	logger.Info("exporting",
		zap.Stringer("encoding", opt.Encoding),
		zap.String("compression", string(opt.Compression)),
		zap.Bool("parallel", opt.Parallel))

	done = logger.Stage("export")
	artifacts, err := exporter.Export(ctx, compacted, export.BasePath(opts.Input, opts.OutDir))
	for _, a := range artifacts {
		logger.Debug("wrote artifact", zap.String("stream", a.Stream.Name), zap.String("path", a.Path), zap.Int64("bytes", a.Bytes))
	}
	if err != nil {
		return nil, err
	}
	done(zap.Int("artifacts", len(artifacts)))

	return &Result{
		ShapeName:   shape.Name,
		FaceCorners: len(raw.Triples),
		Vertices:    compacted.VertexCount(),
		Bounds:      compacted.Bounds(),
		Artifacts:   artifacts,
	}, nil
}
