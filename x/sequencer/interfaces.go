package sequencer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Publisher is the L1-facing collaborator: transaction signing, gas and
// nonce management live on the other side of this interface.
type Publisher interface {
	CanProposeAtNextEthBlock(ctx context.Context, tipArchive common.Hash) (slot SlotId, blockNumber uint64, err error)
	ValidateBlockForSubmission(ctx context.Context, header ProposalHeader) error
	ProposeL2Block(ctx context.Context, block Block, attestations []Attestation, txHashes []common.Hash, quote *EpochProofQuote) (published bool, err error)
	GetCurrentEpochCommittee(ctx context.Context) ([]common.Address, error)
	GetClaimableEpoch(ctx context.Context) (epoch uint64, ok bool, err error)
	ValidateProofQuote(ctx context.Context, quote EpochProofQuote) (ok bool, err error)
	ClaimEpochProofRight(ctx context.Context, quote EpochProofQuote) (bool, error)
	CastVote(ctx context.Context, slot SlotId, ts time.Time, kind VoteKind) error
	RegisterSlashPayloadGetter(fn func() []byte)
	SetGovernancePayload(payload []byte)
	GetSenderAddress() common.Address
	Interrupt()
	Restart(ctx context.Context) error
}

// ValidatorClient is the committee-facing P2P layer.
type ValidatorClient interface {
	CreateBlockProposal(ctx context.Context, header ProposalHeader, archiveRoot common.Hash, txHashes []common.Hash) (*BlockProposal, error)
	BroadcastBlockProposal(ctx context.Context, proposal BlockProposal) error
	CollectAttestations(ctx context.Context, proposal BlockProposal, threshold int) ([]Attestation, error)
	RegisterBlockBuilder(fn func(ctx context.Context, txs TxIterator, globals GlobalVariables, historicalHeader ProposalHeader) (Block, error))
	Stop(ctx context.Context) error
}

// TxIterator lazily iterates the pending pool; implementations must be safe
// against concurrent additions.
type TxIterator interface {
	Next(ctx context.Context) (tx PooledTx, ok bool, err error)
}

// PooledTx is the minimal view of a pooled transaction the assembler needs.
type PooledTx struct {
	Hash common.Hash
	Size int
}

// TxPool is the transaction pool collaborator (P2P).
type TxPool interface {
	GetPendingTxCount(ctx context.Context) (int, error)
	IteratePendingTxs(ctx context.Context) (TxIterator, error)
	DeleteTxs(ctx context.Context, hashes []common.Hash) error
	GetEpochProofQuotes(ctx context.Context, epoch uint64) ([]EpochProofQuote, error)
	GetStatus(ctx context.Context) (string, error)
}

// WorldStateStatus reports the current authenticated-state view.
type WorldStateStatus struct {
	Hash        common.Hash
	BlockNumber uint64
}

// WorldStateFork is a scoped, independently closable snapshot of the
// authenticated state database.
type WorldStateFork interface {
	Close(ctx context.Context) error
}

// WorldState is the authenticated state database collaborator.
type WorldState interface {
	Status(ctx context.Context) (WorldStateStatus, error)
	SyncImmediate(ctx context.Context, blockNumber uint64) error
	Fork(ctx context.Context) (WorldStateFork, error)
}

// L2Tip describes the local view of the L2 chain head; nil signals genesis.
type L2Tip struct {
	BlockNumber uint64
	Archive     common.Hash
}

// L2BlockSource is the local L2 chain view.
type L2BlockSource interface {
	GetLatestBlock(ctx context.Context) (*L2Tip, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetL2Tips(ctx context.Context) (L2Tip, error)
}

// L1ToL2MessageSource is the L1->L2 inbox message source.
type L1ToL2MessageSource interface {
	GetL1ToL2Messages(ctx context.Context, blockNumber uint64) ([]L1ToL2Message, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
}

// L1ToL2Message is an opaque inbox message carried into the next block.
type L1ToL2Message struct {
	Index   uint64
	Content []byte
}

// P2PClient reports the local p2p view's sync progress.
type P2PClient interface {
	SyncedBlockNumber(ctx context.Context) (uint64, error)
}

// ProcessLimits bounds a single public-processor invocation.
type ProcessLimits struct {
	Deadline        time.Time
	MaxTransactions int
	MaxBlockSize    int
}

// TxValidators is the set of validator options forwarded from
// SequencerConfig to the public processor.
type TxValidators struct {
	AllowedInSetup []common.Address
	EnforceFees    bool
}

// ProcessedTx and FailedTx are the two outcomes of a single tx going
// through the public processor.
type ProcessedTx struct {
	Hash common.Hash
	Size int
}

type FailedTx struct {
	Hash common.Hash
	Err  error
}

// PublicProcessor runs pooled transactions against a forked world state
// under a deadline.
type PublicProcessor interface {
	Process(ctx context.Context, txs TxIterator, limits ProcessLimits, validators TxValidators) (ok []ProcessedTx, failed []FailedTx, err error)
}

// PublicProcessorFactory creates a PublicProcessor bound to one fork.
type PublicProcessorFactory interface {
	Create(fork WorldStateFork, historicalHeader ProposalHeader, globals GlobalVariables, enableTracing bool) PublicProcessor
}

// BlockBuilder inserts processed transactions into the rollup tree.
type BlockBuilder interface {
	StartNewBlock(ctx context.Context, globals GlobalVariables, l1ToL2Messages []L1ToL2Message) error
	AddTxs(ctx context.Context, txs []ProcessedTx) error
	SetBlockCompleted(ctx context.Context) (Block, error)
}

// BlockBuilderFactory creates a BlockBuilder bound to one fork.
type BlockBuilderFactory interface {
	Create(fork WorldStateFork) BlockBuilder
}

// GlobalVariableBuilder produces the header's per-block environment.
type GlobalVariableBuilder interface {
	BuildGlobalVariables(ctx context.Context, blockNumber uint64, coinbase, feeRecipient common.Address, slot SlotId) (GlobalVariables, error)
}

// Slasher exposes the governance/slashing vote payload producer.
type Slasher interface {
	GetSlashPayload(ctx context.Context) ([]byte, error)
	Stop(ctx context.Context) error
}

// DateProvider is the sole time source; tests substitute it to simulate
// slot timing.
type DateProvider interface {
	Now() time.Time
}

// systemDateProvider is the production DateProvider, backed by time.Now.
type systemDateProvider struct{}

func (systemDateProvider) Now() time.Time { return time.Now() }

// SystemDateProvider is the default DateProvider used outside of tests.
var SystemDateProvider DateProvider = systemDateProvider{}
