package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".firstglance"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for firstglance settings.
const envPrefix = "FIRSTGLANCE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// envFile is loaded into the process environment before settings are read.
const envFile = ".env"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	v, err := NewViper(configPath)
	if err != nil {
		return nil, err
	}

	return Decode(v)
}

// NewViper prepares a viper instance with defaults, environment binding and
// the config file (if any) read in. Callers may bind flags on it before
// calling Decode.
func NewViper(configPath string) (*viper.Viper, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load(envFile)

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

	return viperCfg, nil
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config

	unmarshalErr := v.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("filter.exclude_substrings", DefaultFilterExcludeSubstrings())
	viperCfg.SetDefault("filter.exclude_prefixes", []string{})
	viperCfg.SetDefault("filter.skip_vendor", DefaultFilterSkipVendor)
	viperCfg.SetDefault("filter.include_regexp", DefaultFilterIncludeRegexp)
	viperCfg.SetDefault("filter.languages", []string{})

	viperCfg.SetDefault("history.ref", DefaultHistoryRef)
	viperCfg.SetDefault("history.first_parent", DefaultHistoryFirstParent)
	viperCfg.SetDefault("history.since", DefaultHistorySince)
	viperCfg.SetDefault("history.limit", DefaultHistoryLimit)
	viperCfg.SetDefault("history.tree_cache_size", DefaultHistoryTreeCacheSize)

	viperCfg.SetDefault("graph.baseline", DefaultGraphBaseline)
	viperCfg.SetDefault("graph.increment", DefaultGraphIncrement)
	viperCfg.SetDefault("graph.max_commit_files", DefaultGraphMaxCommitFiles)

	viperCfg.SetDefault("centrality.strategy", DefaultCentralityStrategy)
	viperCfg.SetDefault("centrality.workers", DefaultCentralityWorkers)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.top", DefaultOutputTop)
	viperCfg.SetDefault("output.file", DefaultOutputFile)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("metrics.file", DefaultMetricsFile)
}
