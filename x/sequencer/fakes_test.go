package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// fakeClock is an injectable DateProvider, mirroring the period-runner
// tests' mutex-guarded now func.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// queuedClock returns each time in times in order on successive Now()
// calls, then repeats the last entry. Used to simulate wall-clock advance
// between a tick's sequential phase transitions without real sleeps.
type queuedClock struct {
	mu    sync.Mutex
	times []time.Time
	i     int
}

func newQueuedClock(times ...time.Time) *queuedClock {
	return &queuedClock{times: times}
}

func (c *queuedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.i >= len(c.times) {
		return c.times[len(c.times)-1]
	}
	t := c.times[c.i]
	c.i++
	return t
}

// immediateTimerFactory runs AfterFunc callbacks synchronously so tests
// don't need to sleep past the 5-second fork-close grace.
type immediateTimerFactory struct{}

func (immediateTimerFactory) AfterFunc(_ time.Duration, fn func()) Timer {
	fn()
	return immediateTimer{}
}

type immediateTimer struct{}

func (immediateTimer) Stop() bool { return true }

// fakeFork is a no-op closable world-state fork; Closed latches true.
type fakeFork struct {
	mu     sync.Mutex
	closed bool
	err    error
}

func (f *fakeFork) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.err
}

func (f *fakeFork) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeWorldState tracks synced block numbers and hands out fakeForks.
type fakeWorldState struct {
	mu     sync.Mutex
	status WorldStateStatus
	forks  []*fakeFork
	synced uint64
}

func (w *fakeWorldState) Status(context.Context) (WorldStateStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status, nil
}

func (w *fakeWorldState) SyncImmediate(_ context.Context, blockNumber uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.synced = blockNumber
	return nil
}

func (w *fakeWorldState) Fork(context.Context) (WorldStateFork, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f := &fakeFork{}
	w.forks = append(w.forks, f)
	return f, nil
}

// fakeTxIterator iterates a fixed slice.
type fakeTxIterator struct {
	txs []PooledTx
	i   int
}

func (it *fakeTxIterator) Next(context.Context) (PooledTx, bool, error) {
	if it.i >= len(it.txs) {
		return PooledTx{}, false, nil
	}
	tx := it.txs[it.i]
	it.i++
	return tx, true, nil
}

// fakeTxPool is an in-memory pool with a fixed set of pending hashes and
// epoch-proof quotes; DeleteTxs removes hashes and records calls.
type fakeTxPool struct {
	mu           sync.Mutex
	pending      []PooledTx
	deletedCalls [][]common.Hash
	quotes       map[uint64][]EpochProofQuote
}

func (p *fakeTxPool) GetPendingTxCount(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending), nil
}

func (p *fakeTxPool) IteratePendingTxs(context.Context) (TxIterator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]PooledTx(nil), p.pending...)
	return &fakeTxIterator{txs: cp}, nil
}

func (p *fakeTxPool) DeleteTxs(_ context.Context, hashes []common.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletedCalls = append(p.deletedCalls, hashes)
	remove := make(map[common.Hash]bool, len(hashes))
	for _, h := range hashes {
		remove[h] = true
	}
	var kept []PooledTx
	for _, tx := range p.pending {
		if !remove[tx.Hash] {
			kept = append(kept, tx)
		}
	}
	p.pending = kept
	return nil
}

func (p *fakeTxPool) GetEpochProofQuotes(_ context.Context, epoch uint64) ([]EpochProofQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quotes[epoch], nil
}

func (p *fakeTxPool) GetStatus(context.Context) (string, error) { return "ready", nil }

// fakeProcessor returns a canned (ok, failed) split regardless of input,
// optionally after a configurable delay (used to simulate a too-slow build).
type fakeProcessor struct {
	ok     []ProcessedTx
	failed []FailedTx
	delay  time.Duration
	err    error
}

func (p *fakeProcessor) Process(ctx context.Context, _ TxIterator, _ ProcessLimits, _ TxValidators) ([]ProcessedTx, []FailedTx, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
		}
	}
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.ok, p.failed, nil
}

type fakeProcessorFactory struct {
	processor *fakeProcessor
}

func (f *fakeProcessorFactory) Create(WorldStateFork, ProposalHeader, GlobalVariables, bool) PublicProcessor {
	return f.processor
}

// fakeBuilder records AddTxs calls and returns a canned block.
type fakeBuilder struct {
	mu      sync.Mutex
	started bool
	added   []ProcessedTx
	block   Block
}

func (b *fakeBuilder) StartNewBlock(context.Context, GlobalVariables, []L1ToL2Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	return nil
}

func (b *fakeBuilder) AddTxs(_ context.Context, txs []ProcessedTx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added = append(b.added, txs...)
	return nil
}

func (b *fakeBuilder) SetBlockCompleted(context.Context) (Block, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	blk := b.block
	blk.NumTxs = len(b.added)
	hashes := make([]common.Hash, len(b.added))
	for i, tx := range b.added {
		hashes[i] = tx.Hash
	}
	blk.TxHashes = hashes
	return blk, nil
}

type fakeBuilderFactory struct {
	builder *fakeBuilder
}

func (f *fakeBuilderFactory) Create(WorldStateFork) BlockBuilder { return f.builder }

// fakeL2BlockSource reports a fixed tip (nil for genesis).
type fakeL2BlockSource struct {
	tip *L2Tip
}

func (s *fakeL2BlockSource) GetLatestBlock(context.Context) (*L2Tip, error) { return s.tip, nil }
func (s *fakeL2BlockSource) GetBlockNumber(context.Context) (uint64, error) {
	if s.tip == nil {
		return 0, nil
	}
	return s.tip.BlockNumber, nil
}
func (s *fakeL2BlockSource) GetL2Tips(context.Context) (L2Tip, error) {
	if s.tip == nil {
		return L2Tip{Archive: GenesisArchiveRoot}, nil
	}
	return *s.tip, nil
}

// fakeL1ToL2 reports a fixed message batch and block number.
type fakeL1ToL2 struct {
	messages    []L1ToL2Message
	blockNumber uint64
}

func (s *fakeL1ToL2) GetL1ToL2Messages(context.Context, uint64) ([]L1ToL2Message, error) {
	return s.messages, nil
}
func (s *fakeL1ToL2) GetBlockNumber(context.Context) (uint64, error) { return s.blockNumber, nil }

// fakeP2PClient reports a fixed synced block number.
type fakeP2PClient struct {
	syncedBlockNumber uint64
}

func (s *fakeP2PClient) SyncedBlockNumber(context.Context) (uint64, error) {
	return s.syncedBlockNumber, nil
}

// fakeGlobalBuilder returns a GlobalVariables built from its args.
type fakeGlobalBuilder struct{}

func (fakeGlobalBuilder) BuildGlobalVariables(_ context.Context, blockNumber uint64, coinbase, feeRecipient common.Address, slot SlotId) (GlobalVariables, error) {
	return GlobalVariables{
		BlockNumber:  blockNumber,
		Coinbase:     coinbase,
		FeeRecipient: feeRecipient,
		Slot:         slot,
	}, nil
}

// fakeValidatorClient drives proposal creation, broadcast and attestation
// collection from canned responses.
type fakeValidatorClient struct {
	mu             sync.Mutex
	proposal       *BlockProposal
	attestations   []Attestation
	broadcastCalls int
	collectCalls   int
	stopCalls      int
	collectErr     error
}

func (v *fakeValidatorClient) CreateBlockProposal(_ context.Context, header ProposalHeader, archiveRoot common.Hash, txHashes []common.Hash) (*BlockProposal, error) {
	if v.proposal != nil {
		return v.proposal, nil
	}
	return &BlockProposal{Header: header, ArchiveRoot: archiveRoot, TxHashes: txHashes}, nil
}

func (v *fakeValidatorClient) BroadcastBlockProposal(context.Context, BlockProposal) error {
	v.mu.Lock()
	v.broadcastCalls++
	v.mu.Unlock()
	return nil
}

func (v *fakeValidatorClient) CollectAttestations(context.Context, BlockProposal, int) ([]Attestation, error) {
	v.mu.Lock()
	v.collectCalls++
	v.mu.Unlock()
	if v.collectErr != nil {
		return nil, v.collectErr
	}
	return v.attestations, nil
}

func (v *fakeValidatorClient) RegisterBlockBuilder(func(context.Context, TxIterator, GlobalVariables, ProposalHeader) (Block, error)) {
}

func (v *fakeValidatorClient) Stop(context.Context) error {
	v.mu.Lock()
	v.stopCalls++
	v.mu.Unlock()
	return nil
}

// fakePublisher is the catch-all L1-facing fake, with every method
// independently overridable via function fields defaulting to permissive
// behavior.
type fakePublisher struct {
	mu sync.Mutex

	slot            SlotId
	blockNumber     uint64
	proposeErr      error
	validateErr     error
	published       bool
	committee       []common.Address
	claimableEpoch  uint64
	claimableOk     bool
	claimFails      bool
	quoteValid      map[uint64]bool
	proposeCalls    []proposeCall
	validateCalls   int
	interruptCalled bool
	restartCalls    int
	castVoteCalls   []VoteKind
	governance      []byte
	slashGetter     func() []byte
}

type proposeCall struct {
	Block        Block
	Attestations []Attestation
	TxHashes     []common.Hash
	Quote        *EpochProofQuote
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		published:   true,
		claimableOk: false,
		quoteValid:  map[uint64]bool{},
	}
}

func (p *fakePublisher) CanProposeAtNextEthBlock(context.Context, common.Hash) (SlotId, uint64, error) {
	return p.slot, p.blockNumber, nil
}

func (p *fakePublisher) ValidateBlockForSubmission(_ context.Context, _ ProposalHeader) error {
	p.mu.Lock()
	p.validateCalls++
	p.mu.Unlock()
	return p.validateErr
}

func (p *fakePublisher) ProposeL2Block(_ context.Context, block Block, attestations []Attestation, txHashes []common.Hash, quote *EpochProofQuote) (bool, error) {
	p.mu.Lock()
	p.proposeCalls = append(p.proposeCalls, proposeCall{block, attestations, txHashes, quote})
	p.mu.Unlock()
	if p.proposeErr != nil {
		return false, p.proposeErr
	}
	return p.published, nil
}

func (p *fakePublisher) GetCurrentEpochCommittee(context.Context) ([]common.Address, error) {
	return p.committee, nil
}

func (p *fakePublisher) GetClaimableEpoch(context.Context) (uint64, bool, error) {
	return p.claimableEpoch, p.claimableOk, nil
}

func (p *fakePublisher) ValidateProofQuote(_ context.Context, q EpochProofQuote) (bool, error) {
	return p.quoteValid[uint64(q.BasisPointFee)], nil
}

func (p *fakePublisher) ClaimEpochProofRight(context.Context, EpochProofQuote) (bool, error) {
	if p.claimFails {
		return false, nil
	}
	return true, nil
}

func (p *fakePublisher) CastVote(_ context.Context, _ SlotId, _ time.Time, kind VoteKind) error {
	p.mu.Lock()
	p.castVoteCalls = append(p.castVoteCalls, kind)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) RegisterSlashPayloadGetter(fn func() []byte) {
	p.mu.Lock()
	p.slashGetter = fn
	p.mu.Unlock()
}

func (p *fakePublisher) SetGovernancePayload(payload []byte) {
	p.mu.Lock()
	p.governance = payload
	p.mu.Unlock()
}

func (p *fakePublisher) GetSenderAddress() common.Address { return common.Address{} }

func (p *fakePublisher) Interrupt() {
	p.mu.Lock()
	p.interruptCalled = true
	p.mu.Unlock()
}

func (p *fakePublisher) Restart(context.Context) error {
	p.mu.Lock()
	p.restartCalls++
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) proposeCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proposeCalls)
}

func (p *fakePublisher) lastPropose() proposeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proposeCalls[len(p.proposeCalls)-1]
}

// fakeSlasher returns a canned payload.
type fakeSlasher struct {
	payload   []byte
	stopCalls int
}

func (s *fakeSlasher) GetSlashPayload(context.Context) ([]byte, error) { return s.payload, nil }
func (s *fakeSlasher) Stop(context.Context) error {
	s.stopCalls++
	return nil
}

func testConstants(slotSec, l1SlotSec int, genesis time.Time) RollupConstants {
	return RollupConstants{
		SlotDuration:         time.Duration(slotSec) * time.Second,
		EthereumSlotDuration: time.Duration(l1SlotSec) * time.Second,
		L1GenesisTime:        genesis,
	}
}

func hashOf(b byte) common.Hash {
	var h common.Hash
	h[31] = b
	return h
}
