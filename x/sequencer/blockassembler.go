package sequencer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// forkCloseGrace is the delay before a build's world-state forks are
// closed, so a tx interrupted by the processing deadline is not dropped
// onto an already-closed fork (spec.md §4.E step 11).
const forkCloseGrace = 5 * time.Second

// BuildOptions tunes a single buildBlock invocation.
type BuildOptions struct {
	ValidateOnly bool
}

// BuildResult is the outcome of a successful buildBlock call.
type BuildResult struct {
	Block                    Block
	PublicProcessorDuration  time.Duration
	NumMsgs                  int
	NumTxs                   int
	BlockBuildingTimerStart  time.Time
	BlockBuilderTreeInsertMs float64
}

// BlockAssembler forks world-state, runs the public processor under a
// deadline, drops failed txs from the pool, inserts into the rollup tree
// and returns a completed block (spec.md §4.E).
type BlockAssembler struct {
	worldState       WorldState
	l1ToL2           L1ToL2MessageSource
	txPool           TxPool
	processorFactory PublicProcessorFactory
	builderFactory   BlockBuilderFactory
	now              DateProvider
	timers           TimerFactory

	cfg   func() Config
	table func() TimeTable

	log zerolog.Logger
}

// TimerFactory creates a Timer that executes a function after a duration.
// Grounded on the supervisor's deadline-timer abstraction: production code
// wraps time.AfterFunc, tests substitute a fake that fires synchronously.
type TimerFactory interface {
	AfterFunc(duration time.Duration, fn func()) Timer
}

// Timer is the handle returned by TimerFactory.AfterFunc.
type Timer interface {
	Stop() bool
}

// SystemTimerFactory is the production TimerFactory, backed by time.AfterFunc.
type SystemTimerFactory struct{}

func (SystemTimerFactory) AfterFunc(duration time.Duration, fn func()) Timer {
	return &systemTimer{timer: time.AfterFunc(duration, fn)}
}

type systemTimer struct{ timer *time.Timer }

func (t *systemTimer) Stop() bool { return t.timer.Stop() }

// NewBlockAssembler constructs a BlockAssembler. cfg and table are read on
// every build so a concurrent updateConfig is picked up for the next tick
// without racing the in-flight one (snapshot semantics, spec.md §9).
func NewBlockAssembler(
	worldState WorldState,
	l1ToL2 L1ToL2MessageSource,
	txPool TxPool,
	processorFactory PublicProcessorFactory,
	builderFactory BlockBuilderFactory,
	now DateProvider,
	timers TimerFactory,
	cfg func() Config,
	table func() TimeTable,
	log zerolog.Logger,
) *BlockAssembler {
	return &BlockAssembler{
		worldState:       worldState,
		l1ToL2:           l1ToL2,
		txPool:           txPool,
		processorFactory: processorFactory,
		builderFactory:   builderFactory,
		now:              now,
		timers:           timers,
		cfg:              cfg,
		table:            table,
		log:              log.With().Str("component", "block-assembler").Logger(),
	}
}

// BuildBlock runs the full assembly pipeline for one block.
func (a *BlockAssembler) BuildBlock(
	ctx context.Context,
	slotStart time.Time,
	blockNumber uint64,
	globals GlobalVariables,
	historicalHeader ProposalHeader,
	flushing bool,
	opts BuildOptions,
) (BuildResult, error) {
	cfg := a.cfg()
	table := a.table()
	log := loggerWithTickID(ctx, a.log)

	messages, err := a.l1ToL2.GetL1ToL2Messages(ctx, blockNumber)
	if err != nil {
		return BuildResult{}, err
	}

	if err := a.worldState.SyncImmediate(ctx, blockNumber-1); err != nil {
		return BuildResult{}, err
	}

	processorFork, err := a.worldState.Fork(ctx)
	if err != nil {
		return BuildResult{}, err
	}
	builderFork, err := a.worldState.Fork(ctx)
	if err != nil {
		a.closeForkWithGrace(log, processorFork)
		return BuildResult{}, err
	}
	defer func() {
		a.closeForkWithGrace(log, processorFork)
		a.closeForkWithGrace(log, builderFork)
	}()

	processor := a.processorFactory.Create(processorFork, historicalHeader, globals, false)
	builder := a.builderFactory.Create(builderFork)

	if err := builder.StartNewBlock(ctx, globals, messages); err != nil {
		return BuildResult{}, err
	}

	limits := ProcessLimits{
		MaxTransactions: cfg.MaxTxsPerBlock,
		MaxBlockSize:    cfg.MaxBlockSizeInBytes,
	}
	if cfg.EnforceTimeTable {
		deadline := slotStart.Add(time.Duration((table.deadlineFor(PhaseCreatingBlock) + table.ProcessTxTimeSeconds()) * float64(time.Second)))
		limits.Deadline = deadline
	}

	txs, err := a.txPool.IteratePendingTxs(ctx)
	if err != nil {
		return BuildResult{}, err
	}

	validators := TxValidators{
		AllowedInSetup: cfg.AllowedInSetup,
		EnforceFees:    cfg.EnforceFees,
	}

	processStart := a.now.Now()
	processedTxs, failedTxs, err := processor.Process(ctx, txs, limits, validators)
	processDuration := a.now.Now().Sub(processStart)
	if err != nil {
		return BuildResult{}, err
	}

	if len(failedTxs) > 0 {
		hashes := make([]common.Hash, len(failedTxs))
		for i, f := range failedTxs {
			hashes[i] = f.Hash
		}
		if err := a.txPool.DeleteTxs(ctx, hashes); err != nil {
			log.Error().Err(err).Int("count", len(hashes)).Msg("failed to delete failed txs from pool")
		}
	}

	if !opts.ValidateOnly && !flushing && len(processedTxs) < cfg.MinTxsPerBlock {
		return BuildResult{}, newTooFewTxs(len(processedTxs), cfg.MinTxsPerBlock)
	}

	insertStart := a.now.Now()
	if err := builder.AddTxs(ctx, processedTxs); err != nil {
		return BuildResult{}, err
	}
	insertDuration := a.now.Now().Sub(insertStart)

	block, err := builder.SetBlockCompleted(ctx)
	if err != nil {
		return BuildResult{}, err
	}

	return BuildResult{
		Block:                    block,
		PublicProcessorDuration:  processDuration,
		NumMsgs:                  len(messages),
		NumTxs:                   len(processedTxs),
		BlockBuildingTimerStart:  processStart,
		BlockBuilderTreeInsertMs: float64(insertDuration.Microseconds()) / 1000,
	}, nil
}

// closeForkWithGrace schedules fork.Close after forkCloseGrace. Close
// failures are logged and otherwise ignored: a fork's natural lifetime
// ends here regardless of outcome.
func (a *BlockAssembler) closeForkWithGrace(log zerolog.Logger, fork WorldStateFork) {
	a.timers.AfterFunc(forkCloseGrace, func() {
		if err := fork.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("world state fork close failed")
		}
	})
}
