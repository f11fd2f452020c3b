package sequencer

import (
	"github.com/ethereum/go-ethereum/common"
)

// Config holds the tunables enumerated in spec.md §3. Fields are plain
// values; partial updates go through ConfigUpdate, whose pointer fields let
// UpdateConfig distinguish "not supplied" from "set to the zero value".
type Config struct {
	PollingIntervalMs int64 `mapstructure:"polling_interval_ms" yaml:"polling_interval_ms"`

	MaxTxsPerBlock int `mapstructure:"max_txs_per_block" yaml:"max_txs_per_block"`
	MinTxsPerBlock int `mapstructure:"min_txs_per_block" yaml:"min_txs_per_block"`

	MaxBlockSizeInBytes int `mapstructure:"max_block_size_bytes" yaml:"max_block_size_bytes"`
	MaxBlockDaGas       int `mapstructure:"max_block_da_gas" yaml:"max_block_da_gas"`
	MaxBlockL2Gas       int `mapstructure:"max_block_l2_gas" yaml:"max_block_l2_gas"`

	Coinbase    common.Address `mapstructure:"coinbase" yaml:"coinbase"`
	FeeRecipient common.Address `mapstructure:"fee_recipient" yaml:"fee_recipient"`

	AllowedInSetup []common.Address `mapstructure:"allowed_in_setup" yaml:"allowed_in_setup"`
	EnforceFees    bool             `mapstructure:"enforce_fees" yaml:"enforce_fees"`
	EnforceTimeTable bool           `mapstructure:"enforce_time_table" yaml:"enforce_time_table"`

	MaxL1TxInclusionTimeIntoSlotSec int64 `mapstructure:"max_l1_tx_inclusion_time_into_slot_sec" yaml:"max_l1_tx_inclusion_time_into_slot_sec"` //nolint:lll

	GovernanceProposerPayload []byte `mapstructure:"governance_proposer_payload" yaml:"governance_proposer_payload"`
}

// DefaultConfig returns the defaults named in spec.md §3.
func DefaultConfig() Config {
	return Config{
		PollingIntervalMs:   1000,
		MaxTxsPerBlock:      32,
		MinTxsPerBlock:      1,
		MaxBlockSizeInBytes: 1 << 20,
		EnforceTimeTable:    true,
	}
}

// ConfigUpdate is a partial Config; nil slice fields and nil pointers are
// left untouched by Merge, while a non-nil empty slice replaces the current
// value. Scalars use pointers so the zero value can be explicitly set.
type ConfigUpdate struct {
	PollingIntervalMs *int64

	MaxTxsPerBlock *int
	MinTxsPerBlock *int

	MaxBlockSizeInBytes *int
	MaxBlockDaGas       *int
	MaxBlockL2Gas       *int

	Coinbase     *common.Address
	FeeRecipient *common.Address

	AllowedInSetup   []common.Address
	EnforceFees      *bool
	EnforceTimeTable *bool

	MaxL1TxInclusionTimeIntoSlotSec *int64

	GovernanceProposerPayload []byte
}

// Merge applies non-nil fields of u onto a copy of cfg and returns the
// result. cfg itself is never mutated.
func (cfg Config) Merge(u ConfigUpdate) Config {
	out := cfg
	if u.PollingIntervalMs != nil {
		out.PollingIntervalMs = *u.PollingIntervalMs
	}
	if u.MaxTxsPerBlock != nil {
		out.MaxTxsPerBlock = *u.MaxTxsPerBlock
	}
	if u.MinTxsPerBlock != nil {
		out.MinTxsPerBlock = *u.MinTxsPerBlock
	}
	if u.MaxBlockSizeInBytes != nil {
		out.MaxBlockSizeInBytes = *u.MaxBlockSizeInBytes
	}
	if u.MaxBlockDaGas != nil {
		out.MaxBlockDaGas = *u.MaxBlockDaGas
	}
	if u.MaxBlockL2Gas != nil {
		out.MaxBlockL2Gas = *u.MaxBlockL2Gas
	}
	if u.Coinbase != nil {
		out.Coinbase = *u.Coinbase
	}
	if u.FeeRecipient != nil {
		out.FeeRecipient = *u.FeeRecipient
	}
	if u.AllowedInSetup != nil {
		out.AllowedInSetup = append([]common.Address(nil), u.AllowedInSetup...)
	}
	if u.EnforceFees != nil {
		out.EnforceFees = *u.EnforceFees
	}
	if u.EnforceTimeTable != nil {
		out.EnforceTimeTable = *u.EnforceTimeTable
	}
	if u.MaxL1TxInclusionTimeIntoSlotSec != nil {
		out.MaxL1TxInclusionTimeIntoSlotSec = *u.MaxL1TxInclusionTimeIntoSlotSec
	}
	if u.GovernanceProposerPayload != nil {
		out.GovernanceProposerPayload = append([]byte(nil), u.GovernanceProposerPayload...)
	}
	return out
}
