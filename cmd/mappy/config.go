package main

import (
	"encoding/json"
	"os"

	"github.com/tailscale/hujson"

	"github.com/mappydb/mappy"
)

// cliConfig is the JSONC (JSON-with-comments) config file format loaded
// before flag overrides, filling the gap the teacher leaves (it has no
// config-file loading at all) with a library from the rest of the
// example pack.
type cliConfig struct {
	Capacity          uint64  `json:"capacity"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	HasherFamily      string  `json:"hasher_family"`
	HasherSeed        uint64  `json:"hasher_seed"`
	BitPacked         bool    `json:"bit_packed"`
	EnableDeletion    bool    `json:"enable_deletion"`
}

func loadCLIConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{
		Capacity:          1024,
		FalsePositiveRate: 0.01,
		HasherFamily:      "murmur",
		BitPacked:         true,
		EnableDeletion:    true,
	}
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cliConfig) hasherFamily() mappy.HasherFamily {
	switch c.HasherFamily {
	case "fnv":
		return mappy.FamilyFNV
	case "sha256":
		return mappy.FamilySHA256
	default:
		return mappy.FamilyMurmur
	}
}

func (c *cliConfig) engineConfig() mappy.Config {
	cfg := mappy.DefaultConfig()
	cfg.Capacity = c.Capacity
	cfg.FalsePositiveRate = c.FalsePositiveRate
	cfg.HasherFamily = c.hasherFamily()
	cfg.HasherSeed = c.HasherSeed
	cfg.BitPacked = c.BitPacked
	cfg.EnableDeletion = c.EnableDeletion
	return cfg
}
