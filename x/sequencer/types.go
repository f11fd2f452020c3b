package sequencer

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// GenesisArchiveRoot is the sentinel archive root used when no L2 block has
// been built yet.
var GenesisArchiveRoot = common.Hash{}

// SlotId identifies an L2 slot. Zero is a sentinel meaning "no slot
// relevant", used for transitions into Idle/Stopped/Synchronizing.
type SlotId uint64

// IsZero reports whether id is the "no slot relevant" sentinel.
func (id SlotId) IsZero() bool { return id == 0 }

// Phase is a closed tagged enum identifying the sequencer's current state.
type Phase int

const (
	PhaseStopped Phase = iota
	PhaseIdle
	PhaseSynchronizing
	PhaseProposerCheck
	PhaseInitializingProposal
	PhaseCreatingBlock
	PhaseCollectingAttestations
	PhasePublishingBlock
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseIdle:
		return "idle"
	case PhaseSynchronizing:
		return "synchronizing"
	case PhaseProposerCheck:
		return "proposer-check"
	case PhaseInitializingProposal:
		return "initializing-proposal"
	case PhaseCreatingBlock:
		return "creating-block"
	case PhaseCollectingAttestations:
		return "collecting-attestations"
	case PhasePublishingBlock:
		return "publishing-block"
	default:
		return "unknown"
	}
}

// restricted reports whether p has a deadline shorter than the full slot
// duration (i.e. it participates in the TimeTable gate).
func (p Phase) restricted() bool {
	switch p {
	case PhaseInitializingProposal, PhaseCreatingBlock, PhaseCollectingAttestations, PhasePublishingBlock:
		return true
	default:
		return false
	}
}

// RollupConstants are immutable once constructed.
type RollupConstants struct {
	// SlotDuration is the L2 slot length.
	SlotDuration time.Duration
	// EthereumSlotDuration is the L1 slot length.
	EthereumSlotDuration time.Duration
	// L1GenesisTime is the unix time of L2 slot 0.
	L1GenesisTime time.Time
}

// ProposalHeader is the partial block header constructed before building,
// and the final header produced by the assembler.
type ProposalHeader struct {
	ParentArchive  common.Hash
	BlockNumber    uint64
	Slot           SlotId
	Globals        GlobalVariables
	TxsHash        common.Hash
	OutHash        common.Hash
	ArchiveRoot    common.Hash
	StateReference common.Hash
}

// GlobalVariables is the header's immutable-per-block environment, produced
// by the external global-variable builder.
type GlobalVariables struct {
	BlockNumber uint64
	Coinbase    common.Address
	FeeRecipient common.Address
	Timestamp   time.Time
	Slot        SlotId
}

// BlockProposal is produced by the validator client and broadcast before
// attestation collection.
type BlockProposal struct {
	Header      ProposalHeader
	ArchiveRoot common.Hash
	TxHashes    []common.Hash
}

// Attestation is a single committee member's signature over a block
// proposal.
type Attestation struct {
	Signer    common.Address
	Signature []byte
}

// EpochProofQuote is a signed bid, priced in basis points, to prove a
// specific prior epoch.
type EpochProofQuote struct {
	EpochToProve   uint64
	ValidUntilSlot SlotId
	BasisPointFee  uint32
	Payload        []byte
}

// Block is the completed L2 block produced by the block-builder.
type Block struct {
	Header   ProposalHeader
	TxHashes []common.Hash
	NumTxs   int
	NumMsgs  int
	SizeBytes int
}

// VoteKind distinguishes the two vote payload kinds cast every tick.
type VoteKind int

const (
	VoteGovernance VoteKind = iota
	VoteSlashing
)

func (k VoteKind) String() string {
	if k == VoteGovernance {
		return "governance"
	}
	return "slashing"
}

// Status is the externally observable snapshot returned by status().
type Status struct {
	Phase          Phase
	UptimeSeconds  float64
	TicksProcessed uint64
	LastError      string
	Flushing       bool
}
