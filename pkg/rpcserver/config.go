package rpcserver

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is the RPC server's YAML configuration surface, matching
// micheleriva/quotient's config.go shape minus its Raft section (non-goal:
// strict-consistency replication is not implemented anywhere in this
// repository).
type Config struct {
	Server struct {
		Port        int    `yaml:"port"`
		Concurrency int    `yaml:"concurrency"`
		APIKey      string `yaml:"api_key"`
	} `yaml:"server"`
}

const (
	DefaultConfigFilename = "mappy.server.yaml"
	defaultServerPort     = 8765
)

// DefaultConfig returns a Config with sane defaults, used when no config
// file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = defaultServerPort
	cfg.Server.Concurrency = runtime.NumCPU()
	return cfg
}

// LoadConfigFile reads and merges a YAML config file over DefaultConfig,
// matching micheleriva/quotient's ParseConfigFile/mergeConfigs pattern.
func LoadConfigFile(filename string) (*Config, error) {
	if filename == "" {
		filename = DefaultConfigFilename
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open config file: %w", err)
	}
	defer file.Close()

	user := &Config{}
	if err := yaml.NewDecoder(file).Decode(user); err != nil {
		return nil, fmt.Errorf("could not decode config file: %w", err)
	}

	merged := *DefaultConfig()
	if user.Server.Port != 0 {
		merged.Server.Port = user.Server.Port
	}
	if user.Server.Concurrency != 0 {
		merged.Server.Concurrency = user.Server.Concurrency
	}
	if user.Server.APIKey != "" {
		merged.Server.APIKey = user.Server.APIKey
	}
	return &merged, nil
}
