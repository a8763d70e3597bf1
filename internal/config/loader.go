package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentci/recorder/internal/logger"
)

// EnvConfigPath is the environment variable naming the config file.
const EnvConfigPath = "AGENTCI_CONFIG_PATH"

// Load reads configuration from the given path, falling back to the
// AGENTCI_CONFIG_PATH environment variable when path is empty. Missing
// files, parse errors, and absent policy keys all degrade to defaults;
// configuration faults never stop the recorder.
func Load(path string) *Config {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return DefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug().Str("path", path).Err(err).Msg("Failed to read config, using defaults")
		return DefaultConfig()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Debug().Str("path", path).Err(err).Msg("Failed to parse config, using defaults")
		return DefaultConfig()
	}

	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Settings.LogLevel == "" {
		cfg.Settings.LogLevel = "info"
	}
	if len(cfg.Policy.Sensitive.BlockEnv) == 0 {
		cfg.Policy.Sensitive.BlockEnv = DefaultBlockEnv()
	}
}
