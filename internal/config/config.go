// Package config loads the node's runtime configuration (spec.md §6) via
// github.com/spf13/viper, the configuration library the rest of the
// retrieved corpus reaches for (go-ethereum-family and Synnergy forks both
// carry it). Adapted from the teacher, which had no configuration layer of
// its own — dummy validators and ports were hard-coded in cmd/empower1d/
// main.go — so this package is new, grounded in viper's standard
// "defaults, then file, then env" layering.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of node parameters spec.md §6 names.
type Config struct {
	ChainID        string `mapstructure:"chain_id"`
	BlockTimeMs    uint64 `mapstructure:"block_time_ms"`
	IsLeader       bool   `mapstructure:"is_leader"`
	P2PPort        int    `mapstructure:"p2p_port"`
	APIPort        int    `mapstructure:"api_port"`
	DataDir        string `mapstructure:"data_dir"`
	KeyFile        string `mapstructure:"key_file"`
	BlockGasLimit  uint64 `mapstructure:"block_gas_limit"`
	MinGasPrice    string `mapstructure:"min_gas_price"`
	BaseFeePerGas  string `mapstructure:"base_fee_per_gas"`
	BlockReward    string `mapstructure:"block_reward"`
	InitialSupply  string `mapstructure:"initial_supply"`
	SupplyCap      string `mapstructure:"supply_cap"`
	MempoolCap     int    `mapstructure:"mempool_capacity"`
	MaxTxPerMinute int    `mapstructure:"max_tx_per_minute"`
	GenesisFile    string `mapstructure:"genesis_file"`

	// ProposerPublicKey/ProposerAlgorithm identify the single leader's
	// signing key so followers can verify block signatures (spec.md §4.8).
	// A leader node's own identity always matches this value; it is
	// configured out-of-band rather than discovered, since spec.md's
	// single-leader model has no validator-set gossip protocol.
	ProposerPublicKey string `mapstructure:"proposer_public_key"`
	ProposerAlgorithm string `mapstructure:"proposer_algorithm"`

	PruneRetentionBlocks   uint64 `mapstructure:"prune_retention_blocks"`
	SnapshotIntervalBlocks uint64 `mapstructure:"snapshot_interval_blocks"`
}

func defaults() map[string]any {
	return map[string]any{
		"chain_id":                 "forge-mini",
		"block_time_ms":            500,
		"is_leader":                false,
		"p2p_port":                 7071,
		"api_port":                 8080,
		"data_dir":                 ".data",
		"key_file":                 ".keys/ed25519.json",
		"block_gas_limit":          30_000_000,
		"min_gas_price":            "1000000000",
		"base_fee_per_gas":         "1000000000",
		"block_reward":             "5000000000000000000",
		"initial_supply":           "1000000000000000000000000000",
		"supply_cap":               "2000000000000000000000000000",
		"mempool_capacity":         5000,
		"max_tx_per_minute":        60,
		"genesis_file":             "./genesis.json",
		"proposer_algorithm":       "ed25519",
		"prune_retention_blocks":   100_000,
		"snapshot_interval_blocks": 1000,
	}
}

// Load reads configuration from path (if non-empty and present), layered
// over defaults, with FORGE_-prefixed environment variable overrides —
// viper's standard precedence, same as the rest of the corpus's viper
// usage.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults() {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file surfaces as fs.ErrNotExist with an explicit
			// SetConfigFile path, or ConfigFileNotFoundError on search paths;
			// either way the defaults carry the node.
			_, viperNotFound := err.(viper.ConfigFileNotFoundError)
			if !viperNotFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %q: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return &cfg, nil
}
