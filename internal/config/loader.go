// Package config loads the YAML configuration of the relaychat binaries.
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "RELAYCHAT_"
	// EnvConfig names the variable holding the default config file path.
	EnvConfig = EnvPrefix + "CONFIG"
)

// LoadConfig reads a YAML configuration file and unmarshals it into the specified type.
func LoadConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// LoadServerConfig reads a server configuration file and applies defaults.
// An empty path yields the defaults. Validation is left to the caller so
// that command-line overrides can be applied first.
func LoadServerConfig(path string) (*Server, error) {
	cfg := &Server{}
	if path != "" {
		loaded, err := LoadConfig[Server](path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Debug().Str("com", "config-loader").Str("path", path).Msg("loaded server configuration")
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadClientConfig reads a client configuration file and applies defaults.
// An empty path yields the defaults.
func LoadClientConfig(path string) (*Client, error) {
	cfg := &Client{}
	if path != "" {
		loaded, err := LoadConfig[Client](path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Debug().Str("com", "config-loader").Str("path", path).Msg("loaded client configuration")
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// DefaultPath returns the config path named by the environment, if any.
func DefaultPath() string {
	return os.Getenv(EnvConfig)
}
