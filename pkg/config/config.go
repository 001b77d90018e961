package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel validation errors.
var (
	ErrMissingInput    = errors.New("input path is required")
	ErrMissingOutput   = errors.New("output path is required")
	ErrInvalidLength   = errors.New("identifier length must be positive")
	ErrInvalidMaxSize  = errors.New("invalid max input size")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidSampling = errors.New("sample ratio must be within [0, 1]")
)

// Config holds all configuration for one pyfuscate run.
type Config struct {
	Input     string          `mapstructure:"input"`
	Output    string          `mapstructure:"output"`
	Rename    RenameConfig    `mapstructure:"rename"`
	Transform TransformConfig `mapstructure:"transform"`
	Python    PythonConfig    `mapstructure:"python"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// RenameConfig controls identifier renaming.
type RenameConfig struct {
	Prefix string `mapstructure:"prefix"`
	Length int    `mapstructure:"length"`
	Seed   int64  `mapstructure:"seed"`

	// SeedGenerated is set by Load when no seed was configured and one was
	// drawn at random.
	SeedGenerated bool `mapstructure:"-"`

	// Builtins renames builtin functions and exceptions when true.
	Builtins bool `mapstructure:"builtins"`
	// Imports renames imported modules and aliases when true.
	Imports   bool `mapstructure:"imports"`
	Functions bool `mapstructure:"functions"`
	Classes   bool `mapstructure:"classes"`
}

// PreserveBuiltins reports whether builtin names stay untouched.
func (rc RenameConfig) PreserveBuiltins() bool {
	return !rc.Builtins
}

// PreserveImports reports whether imported names stay untouched.
func (rc RenameConfig) PreserveImports() bool {
	return !rc.Imports
}

// TransformConfig carries toggles for passes beyond renaming.
type TransformConfig struct {
	FoldConstants    bool `mapstructure:"fold_constants"`
	RemoveDeadCode   bool `mapstructure:"remove_dead_code"`
	ObfuscateStrings bool `mapstructure:"obfuscate_strings"`
	RemoveDocs       bool `mapstructure:"remove_docs"`
}

// PythonConfig configures the interpreter boundary.
type PythonConfig struct {
	Command      string `mapstructure:"command"`
	TempDir      string `mapstructure:"temp_dir"`
	MaxInputSize string `mapstructure:"max_input_size"`
	KeepTemp     bool   `mapstructure:"keep_temp"`
}

// MaxInputBytes parses MaxInputSize. Zero means unlimited.
func (pc PythonConfig) MaxInputBytes() (uint64, error) {
	trimmed := strings.TrimSpace(pc.MaxInputSize)
	if trimmed == "" || trimmed == "0" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxSize, pc.MaxInputSize, err)
	}

	return size, nil
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SlogLevel parses Level.
func (lc LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(lc.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lc.Level)
	}

	return level, nil
}

// TelemetryConfig holds OpenTelemetry export settings. An empty endpoint
// disables export.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// Default returns the built-in configuration without consulting files,
// environment or flags.
func Default() *Config {
	return &Config{
		Rename: RenameConfig{
			Prefix:    DefaultPrefix,
			Length:    DefaultLength,
			Builtins:  DefaultBuiltins,
			Imports:   DefaultImports,
			Functions: DefaultFunctions,
			Classes:   DefaultClasses,
		},
		Transform: TransformConfig{
			FoldConstants:    DefaultFoldConstants,
			RemoveDeadCode:   DefaultRemoveDeadCode,
			ObfuscateStrings: DefaultObfuscateStrings,
			RemoveDocs:       DefaultRemoveDocs,
		},
		Python: PythonConfig{
			Command:      DefaultPythonCommand,
			TempDir:      DefaultTempDir,
			MaxInputSize: DefaultMaxInputSize,
			KeepTemp:     DefaultKeepTemp,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
			JSON:  DefaultLogJSON,
		},
		Telemetry: TelemetryConfig{
			SampleRatio: DefaultSampleRatio,
		},
	}
}

// Validate checks everything a full file-to-file run needs: the settings
// checked by ValidateSettings plus non-empty input and output paths.
func (c *Config) Validate() error {
	if c.Input == "" {
		return ErrMissingInput
	}

	if c.Output == "" {
		return ErrMissingOutput
	}

	return c.ValidateSettings()
}

// ValidateSettings checks value ranges without requiring input or output.
func (c *Config) ValidateSettings() error {
	if c.Rename.Length <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLength, c.Rename.Length)
	}

	_, err := c.Python.MaxInputBytes()
	if err != nil {
		return err
	}

	_, err = c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampling, c.Telemetry.SampleRatio)
	}

	return nil
}

// EnabledUnimplemented lists transform toggles that are switched on but have
// no pass behind them.
func (tc TransformConfig) EnabledUnimplemented() []string {
	var names []string

	if tc.FoldConstants {
		names = append(names, "fold_constants")
	}

	if tc.RemoveDeadCode {
		names = append(names, "remove_dead_code")
	}

	if tc.ObfuscateStrings {
		names = append(names, "obfuscate_strings")
	}

	if tc.RemoveDocs {
		names = append(names, "remove_docs")
	}

	return names
}
