package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Datasets == nil {
		cfg.Datasets = map[string]DatasetConfig{}
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	for name, ds := range cfg.Datasets {
		src := &ds.Source
		src.URL = expandEnvVar(src.URL)
		src.Path = expandEnvVar(src.Path)
		src.Host = expandEnvVar(src.Host)
		src.User = expandEnvVar(src.User)
		src.Password = expandEnvVar(src.Password)
		src.Database = expandEnvVar(src.Database)

		if len(src.Headers) > 0 {
			headers := make(map[string]string, len(src.Headers))
			for k, v := range src.Headers {
				headers[k] = expandEnvVar(v)
			}
			src.Headers = headers
		}
		cfg.Datasets[name] = ds
	}

	cfg.Server.Listen = expandEnvVar(cfg.Server.Listen)
	cfg.Server.APIKey = expandEnvVar(cfg.Server.APIKey)

	cfg.Publish.Redis.Addr = expandEnvVar(cfg.Publish.Redis.Addr)
	cfg.Publish.Redis.Password = expandEnvVar(cfg.Publish.Redis.Password)

	// Substitute in logging config
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}
