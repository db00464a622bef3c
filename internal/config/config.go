// Package config handles converter configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/obj2bin/internal/logger"
	"github.com/Faultbox/obj2bin/pkg/encoding"
	"github.com/Faultbox/obj2bin/pkg/export"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all converter settings.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig holds OBJ reading settings.
type InputConfig struct {
	Charset string `yaml:"charset"` // Encoding of object/group names
	Shape   int    `yaml:"shape"`   // Index of the shape to convert
}

// OutputConfig holds artifact writing settings.
type OutputConfig struct {
	Encoding    string `yaml:"encoding"`     // binary or ascii
	Dir         string `yaml:"dir"`          // Empty writes next to the input
	Compression string `yaml:"compression"`  // none, zstd or lz4
	Parallel    bool   `yaml:"parallel"`     // Write the four artifacts concurrently
	IndexFields int    `yaml:"index_fields"` // ASCII indices per line
	Atomic      bool   `yaml:"atomic"`       // Temp file + rename per artifact
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Charset: encoding.UTF8,
			Shape:   0,
		},
		Output: OutputConfig{
			Encoding:    export.Binary.String(),
			Dir:         "",
			Compression: string(export.CompressionNone),
			Parallel:    false,
			IndexFields: export.DefaultIndexFields,
			Atomic:      true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	if !encoding.Supported(c.Input.Charset) {
		return fmt.Errorf("%w: input.charset %q", ErrInvalidConfig, c.Input.Charset)
	}
	if c.Input.Shape < 0 {
		return fmt.Errorf("%w: input.shape %d", ErrInvalidConfig, c.Input.Shape)
	}
	if _, err := export.ParseEncoding(c.Output.Encoding); err != nil {
		return fmt.Errorf("%w: output.encoding: %w", ErrInvalidConfig, err)
	}
	if _, err := export.ParseCompression(c.Output.Compression); err != nil {
		return fmt.Errorf("%w: output.compression: %w", ErrInvalidConfig, err)
	}
	if c.Output.IndexFields < 1 {
		return fmt.Errorf("%w: output.index_fields must be positive, got %d", ErrInvalidConfig, c.Output.IndexFields)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}

// ExportOptions converts the output section to exporter options.
// The config must be valid.
func (c *Config) ExportOptions() export.Options {
	enc, _ := export.ParseEncoding(c.Output.Encoding)
	comp, _ := export.ParseCompression(c.Output.Compression)
	return export.Options{
		Encoding:    enc,
		Compression: comp,
		Parallel:    c.Output.Parallel,
		IndexFields: c.Output.IndexFields,
		Atomic:      c.Output.Atomic,
	}
}
