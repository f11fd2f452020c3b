// Package config loads the sequencer application's full configuration
// (rollup constants, sequencer tunables, HTTP API and logging) from a YAML
// file, environment overrides and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/dramarereg/aztec-sequencer/server/api"
	"github.com/dramarereg/aztec-sequencer/x/sequencer"
)

// Config holds the complete application configuration.
type Config struct {
	Rollup    RollupConfig      `mapstructure:"rollup"    yaml:"rollup"`
	Sequencer sequencer.Config  `mapstructure:"sequencer" yaml:"sequencer"`
	API       api.Config        `mapstructure:"api"       yaml:"api"`
	Log       LogConfig         `mapstructure:"log"       yaml:"log"`
}

// RollupConfig carries the immutable RollupConstants in wire-friendly form.
type RollupConfig struct {
	SlotDurationMs         int64  `mapstructure:"slot_duration_ms"          yaml:"slot_duration_ms"`
	EthereumSlotDurationMs int64  `mapstructure:"ethereum_slot_duration_ms" yaml:"ethereum_slot_duration_ms"`
	L1GenesisTimeUnix      int64  `mapstructure:"l1_genesis_time_unix"      yaml:"l1_genesis_time_unix"`
}

// Constants converts RollupConfig into a sequencer.RollupConstants value.
func (c RollupConfig) Constants() sequencer.RollupConstants {
	return sequencer.RollupConstants{
		SlotDuration:         time.Duration(c.SlotDurationMs) * time.Millisecond,
		EthereumSlotDuration: time.Duration(c.EthereumSlotDurationMs) * time.Millisecond,
		L1GenesisTime:        timeFromUnix(c.L1GenesisTimeUnix),
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// Load reads configuration from configPath, applies defaults, and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rollup.slot_duration_ms", 24_000)
	v.SetDefault("rollup.ethereum_slot_duration_ms", 12_000)
	v.SetDefault("rollup.l1_genesis_time_unix", 0)

	def := sequencer.DefaultConfig()
	v.SetDefault("sequencer.polling_interval_ms", def.PollingIntervalMs)
	v.SetDefault("sequencer.max_txs_per_block", def.MaxTxsPerBlock)
	v.SetDefault("sequencer.min_txs_per_block", def.MinTxsPerBlock)
	v.SetDefault("sequencer.max_block_size_bytes", def.MaxBlockSizeInBytes)
	v.SetDefault("sequencer.enforce_time_table", def.EnforceTimeTable)
	v.SetDefault("sequencer.enforce_fees", def.EnforceFees)
	v.SetDefault("sequencer.max_l1_tx_inclusion_time_into_slot_sec", 4)

	apiDef := api.DefaultConfig(time.Duration(def.PollingIntervalMs) * time.Millisecond)
	v.SetDefault("api.listen_addr", apiDef.ListenAddr)
	v.SetDefault("api.read_header_timeout", apiDef.ReadHeaderTimeout)
	v.SetDefault("api.read_timeout", apiDef.ReadTimeout)
	v.SetDefault("api.write_timeout", apiDef.WriteTimeout)
	v.SetDefault("api.idle_timeout", apiDef.IdleTimeout)
	v.SetDefault("api.max_header_bytes", apiDef.MaxHeaderBytes)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Rollup.SlotDurationMs <= 0 {
		return fmt.Errorf("rollup.slot_duration_ms must be positive")
	}
	if c.Rollup.EthereumSlotDurationMs <= 0 {
		return fmt.Errorf("rollup.ethereum_slot_duration_ms must be positive")
	}
	if c.Sequencer.MaxTxsPerBlock <= 0 {
		return fmt.Errorf("sequencer.max_txs_per_block must be positive")
	}
	if c.Sequencer.MinTxsPerBlock < 0 {
		return fmt.Errorf("sequencer.min_txs_per_block must not be negative")
	}
	if c.Sequencer.Coinbase == (common.Address{}) {
		return fmt.Errorf("sequencer.coinbase must be set")
	}
	return nil
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
