package config

import (
	"flag"
	"strings"
)

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagASCII       = flag.Bool("ascii", false, "Write ASCII text artifacts instead of binary")
	flagOut         = flag.String("out", "", "Output directory (default: next to the input)")
	flagCompress    = flag.String("compress", "", "Artifact compression: none, zstd, lz4")
	flagParallel    = flag.Bool("parallel", false, "Write artifacts concurrently")
	flagIndexFields = flag.Int("index-fields", 0, "ASCII indices per line")
	flagCharset     = flag.String("charset", "", "Charset of OBJ object/group names")
	flagShape       = flag.Int("shape", -1, "Index of the shape to convert")
	flagLogFile     = flag.String("log-file", "", "Also log to this file (rotated)")
	flagSaveConfig  = flag.String("save-config", "", "Write the effective config to this path and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments. The first is the input path;
// a second argument equal to "ascii" (any case) selects ASCII output.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveConfigPath returns the path given via --save-config.
func SaveConfigPath() string {
	return *flagSaveConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if args := flag.Args(); len(args) > 1 {
		// Positional form: any value other than "ascii" means binary.
		cfg.Output.Encoding = "binary"
		if strings.EqualFold(args[1], "ascii") {
			cfg.Output.Encoding = "ascii"
		}
	}
	if *flagASCII {
		cfg.Output.Encoding = "ascii"
	}
	if *flagOut != "" {
		cfg.Output.Dir = *flagOut
	}
	if *flagCompress != "" {
		cfg.Output.Compression = *flagCompress
	}
	if *flagParallel {
		cfg.Output.Parallel = true
	}
	if *flagIndexFields > 0 {
		cfg.Output.IndexFields = *flagIndexFields
	}
	if *flagCharset != "" {
		cfg.Input.Charset = *flagCharset
	}
	if *flagShape >= 0 {
		cfg.Input.Shape = *flagShape
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
