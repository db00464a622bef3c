// obj2bin converts a Wavefront OBJ mesh into deduplicated vertex buffer
// artifacts (positions, uvs, normals, indices) ready for GPU upload.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/obj2bin/internal/config"
	"github.com/Faultbox/obj2bin/internal/convert"
	"github.com/Faultbox/obj2bin/internal/logger"
	"github.com/Faultbox/obj2bin/pkg/export"
	"github.com/Faultbox/obj2bin/pkg/formats"
	"github.com/Faultbox/obj2bin/pkg/mesh"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1 // input could not be converted or written
	exitUsage   = 2 // bad arguments or configuration
)

func main() {
	os.Exit(run())
}

func run() int {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return exitUsage
	}

	if path := config.SaveConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			return exitFailure
		}
		fmt.Printf("Config written to %s\n", path)
		return exitOK
	}

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		return exitUsage
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := convert.Run(ctx, convert.Options{
		Input:   args[0],
		OutDir:  cfg.Output.Dir,
		Charset: cfg.Input.Charset,
		Shape:   cfg.Input.Shape,
		Export:  cfg.ExportOptions(),
	})
	if err != nil {
		logger.Error("conversion failed", zap.String("input", args[0]), zap.String("kind", classify(err)), zap.Error(err))
		return exitFailure
	}

	logger.Info("converted",
		zap.String("input", args[0]),
		zap.String("shape", res.ShapeName),
		zap.Int("face_vertices", res.FaceCorners),
		zap.Int("unique_vertices", res.Vertices),
		zap.Float32s("bounds_min", res.Bounds.Min[:]),
		zap.Float32s("bounds_max", res.Bounds.Max[:]))
	for _, a := range res.Artifacts {
		fmt.Printf("Wrote: %s (%d bytes)\n", a.Path, a.Bytes)
	}
	return exitOK
}

// classify names the failure class of err for logs.
func classify(err error) string {
	var (
		perr  *formats.ParseError
		oor   *mesh.OutOfRangeError
		ioErr *export.IOError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, convert.ErrEmptyMesh):
		return "empty"
	case errors.As(err, &perr):
		return "parse"
	case errors.As(err, &oor):
		return "range"
	case errors.As(err, &ioErr):
		return "io"
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return "input"
	default:
		return "other"
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `obj2bin - OBJ to vertex buffer converter

Usage:
  obj2bin [options] <file.obj> [ascii]

Writes <name>_vert, <name>_uv, <name>_norm and <name>_idxs next to the
input (.bin by default, .txt when "ascii" is given or -ascii is set).

Options:
  -ascii               Write ASCII text artifacts
  -out <dir>           Output directory
  -compress <algo>     none, zstd or lz4
  -parallel            Write artifacts concurrently
  -index-fields <n>    ASCII indices per line (default 3)
  -charset <name>      Charset of object/group names (utf-8, euc-kr, ...)
  -shape <n>           Shape to convert (default 0)
  -config <file>       Config file (default ./obj2bin.yaml)
  -save-config <file>  Write the effective config and exit
  -log-file <file>     Also log to a rotated file
  -debug               Enable debug logging

Examples:
  obj2bin models/cube.obj
  obj2bin models/cube.obj ascii
  obj2bin -compress zstd -out build/ models/cube.obj`)
}
