// Package config loads the benchmark CLI's configuration from built-in
// defaults, a YAML file, and environment variables; environment variables
// override the file, and the file overrides the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = ".kernelcache"
	configType      = "yaml"
	envPrefix       = "KERNELCACHE"
	envKeySeparator = "_"
)

// Defaults for the cache's sizing parameters, chosen to exercise eviction
// and parallel fill without requiring a real training set.
const (
	DefaultN            = 2000
	DefaultSizeMB       = 64.0
	DefaultElementSize  = 8
	DefaultWorkers      = 4
	DefaultLogLevel     = "info"
	DefaultOTLPEndpoint = ""
	DefaultMetricsAddr  = ":9464"
)

// Config holds everything the benchmark CLI needs: the cache's own sizing
// knobs plus the ambient logging/telemetry settings.
type Config struct {
	N           int32   `mapstructure:"n"`
	SizeMB      float64 `mapstructure:"size_mb"`
	Regression  bool    `mapstructure:"regression"`
	ElementSize int     `mapstructure:"element_size"`
	Workers     int     `mapstructure:"workers"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`

	ServiceVersion string `mapstructure:"service_version"`
}

// Validate rejects a non-positive n, element_size or size_mb and a negative
// workers count, surfacing the error before any work starts. A negative
// workers count is rejected here even though the cache's own New() accepts
// it and runs serially.
func (c *Config) Validate() error {
	if c.N <= 0 {
		return errors.New("config: n must be positive")
	}
	if c.ElementSize <= 0 {
		return errors.New("config: element_size must be positive")
	}
	if c.SizeMB <= 0 {
		return errors.New("config: size_mb must be positive")
	}
	if c.Workers < 0 {
		return errors.New("config: workers must not be negative")
	}
	return nil
}

// Load reads configuration from file, env vars, and defaults. If path is
// non-empty it names an explicit config file; otherwise the config file is
// searched for in the working directory and $HOME. If that search finds no
// config file, it is not an error: defaults and the environment carry the
// run. An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("n", DefaultN)
	v.SetDefault("size_mb", DefaultSizeMB)
	v.SetDefault("regression", false)
	v.SetDefault("element_size", DefaultElementSize)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_json", false)
	v.SetDefault("otlp_endpoint", DefaultOTLPEndpoint)
	v.SetDefault("metrics_addr", DefaultMetricsAddr)
	v.SetDefault("service_version", "dev")
}
