// Package config loads and validates pyfuscate configuration from defaults,
// an optional YAML file, PYFUSCATE_* environment variables and CLI flags.
package config

// Rename defaults.
const (
	DefaultLength    = 8
	DefaultPrefix    = "v"
	DefaultBuiltins  = false
	DefaultImports   = false
	DefaultFunctions = false
	DefaultClasses   = false
)

// Transform toggle defaults. These passes are configurable but not executed.
const (
	DefaultFoldConstants    = false
	DefaultRemoveDeadCode   = false
	DefaultObfuscateStrings = false
	DefaultRemoveDocs       = false
)

// Boundary defaults.
const (
	DefaultPythonCommand = "python3"
	DefaultTempDir       = ""
	DefaultKeepTemp      = false
	DefaultMaxInputSize  = "4MB"
)

// Logging and telemetry defaults.
const (
	DefaultLogLevel    = "info"
	DefaultLogJSON     = false
	DefaultSampleRatio = 1.0
)
