package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".pyfuscate"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for pyfuscate settings.
const envPrefix = "PYFUSCATE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// seedKey is looked up separately so an unset seed can be drawn at random.
const seedKey = "rename.seed"

// FlagKeys maps CLI flag names to configuration keys. Load binds every flag
// of the given set that appears here.
//
//nolint:gochecknoglobals // Immutable lookup table.
var FlagKeys = map[string]string{
	"input":             "input",
	"output":            "output",
	"length":            "rename.length",
	"prefix":            "rename.prefix",
	"seed":              seedKey,
	"rename-builtins":   "rename.builtins",
	"rename-imports":    "rename.imports",
	"rename-functions":  "rename.functions",
	"rename-classes":    "rename.classes",
	"fold-constants":    "transform.fold_constants",
	"remove-dead-code":  "transform.remove_dead_code",
	"obfuscate-strings": "transform.obfuscate_strings",
	"remove-docs":       "transform.remove_docs",
	"python":            "python.command",
	"temp-dir":          "python.temp_dir",
	"keep-temp":         "python.keep_temp",
	"max-input-size":    "python.max_input_size",
	"log-level":         "logging.level",
	"log-json":          "logging.json",
	"otlp-endpoint":     "telemetry.otlp_endpoint",
}

// Load builds the configuration from defaults, the config file, environment
// variables and flags, in increasing precedence.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise .pyfuscate.yaml is searched in CWD and $HOME; a missing file is
// not an error. Input and output are not required here; see Config.Validate.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	bindErr := bindFlags(viperCfg, flags)
	if bindErr != nil {
		return nil, bindErr
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	// Seed has no default: zero is a valid seed.
	if !viperCfg.IsSet(seedKey) {
		cfg.Rename.Seed = rand.Int64() //nolint:gosec // Seeds are not secrets.
		cfg.Rename.SeedGenerated = true
	}

	validateErr := cfg.ValidateSettings()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func bindFlags(viperCfg *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	var bindErr error

	flags.VisitAll(func(flag *pflag.Flag) {
		key, ok := FlagKeys[flag.Name]
		if !ok || bindErr != nil {
			return
		}

		err := viperCfg.BindPFlag(key, flag)
		if err != nil {
			bindErr = fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	})

	return bindErr
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input", "")
	viperCfg.SetDefault("output", "")

	viperCfg.SetDefault("rename.length", DefaultLength)
	viperCfg.SetDefault("rename.prefix", DefaultPrefix)
	viperCfg.SetDefault("rename.builtins", DefaultBuiltins)
	viperCfg.SetDefault("rename.imports", DefaultImports)
	viperCfg.SetDefault("rename.functions", DefaultFunctions)
	viperCfg.SetDefault("rename.classes", DefaultClasses)

	viperCfg.SetDefault("transform.fold_constants", DefaultFoldConstants)
	viperCfg.SetDefault("transform.remove_dead_code", DefaultRemoveDeadCode)
	viperCfg.SetDefault("transform.obfuscate_strings", DefaultObfuscateStrings)
	viperCfg.SetDefault("transform.remove_docs", DefaultRemoveDocs)

	viperCfg.SetDefault("python.command", DefaultPythonCommand)
	viperCfg.SetDefault("python.temp_dir", DefaultTempDir)
	viperCfg.SetDefault("python.keep_temp", DefaultKeepTemp)
	viperCfg.SetDefault("python.max_input_size", DefaultMaxInputSize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
}
