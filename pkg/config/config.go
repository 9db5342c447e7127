// Package config loads tsq settings from a YAML file and TSQ_ environment
// variables.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// DefaultMaxIterations bounds the optimizer when the file does not.
const DefaultMaxIterations = 100

type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		Output string `mapstructure:"output"`
	} `mapstructure:"log"`

	Output struct {
		Format  string `mapstructure:"format"`
		MaxRows int    `mapstructure:"max_rows"`
		Color   bool   `mapstructure:"color"`
	} `mapstructure:"output"`

	Optimizer struct {
		Enabled       bool `mapstructure:"enabled"`
		MaxIterations int  `mapstructure:"max_iterations"`
	} `mapstructure:"optimizer"`

	// Tables maps table names to TSV files.
	Tables map[string]string `mapstructure:"tables"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "WARN")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.format", "tsv")
	v.SetDefault("output.max_rows", 0)
	v.SetDefault("output.color", true)
	v.SetDefault("optimizer.enabled", true)
	v.SetDefault("optimizer.max_iterations", DefaultMaxIterations)
}

// Load reads path, when not empty, over the defaults. Environment variables
// such as TSQ_LOG_LEVEL or TSQ_OPTIMIZER_ENABLED override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TSQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if cfg.Optimizer.MaxIterations < 0 {
		return nil, errors.Newf("optimizer.max_iterations must not be negative, got %d", cfg.Optimizer.MaxIterations)
	}
	if cfg.Tables == nil {
		cfg.Tables = make(map[string]string)
	}
	return &cfg, nil
}
