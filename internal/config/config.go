// Package config loads recorder configuration. The recorder consumes the
// config file, it does not own it: any load failure degrades to defaults.
package config

// Config represents the recorder configuration file
type Config struct {
	Version  string   `yaml:"version,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
	Policy   Policy   `yaml:"policy,omitempty"`
}

// Settings contains global configuration settings
type Settings struct {
	LogLevel string `yaml:"log_level,omitempty"`
	LogFile  string `yaml:"log_file,omitempty"`
}

// Policy contains sensitive-data policy configuration
type Policy struct {
	Sensitive Sensitive `yaml:"sensitive,omitempty"`
}

// Sensitive lists the values whose access is recorded as sensitive_access
type Sensitive struct {
	// BlockEnv names environment variables whose reads are recorded
	BlockEnv []string `yaml:"block_env,omitempty"`
	// BlockFileGlobs are glob patterns over resolved paths whose reads
	// are recorded
	BlockFileGlobs []string `yaml:"block_file_globs,omitempty"`
}

// DefaultBlockEnv is the fallback block-list used when no configuration is
// available.
func DefaultBlockEnv() []string {
	return []string{"AWS_SECRET_ACCESS_KEY", "AWS_ACCESS_KEY_ID"}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Settings: Settings{
			LogLevel: "info",
		},
		Policy: Policy{
			Sensitive: Sensitive{
				BlockEnv: DefaultBlockEnv(),
			},
		},
	}
}
