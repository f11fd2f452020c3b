package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Dependencies bundles every external collaborator the Sequencer needs,
// matching the minimum surface enumerated in spec.md §6.
type Dependencies struct {
	Publisher             Publisher
	ValidatorClient       ValidatorClient // may be nil until registered
	TxPool                TxPool
	WorldState            WorldState
	L2BlockSource         L2BlockSource
	L1ToL2MessageSource   L1ToL2MessageSource
	P2PClient             P2PClient
	PublicProcessorFactory PublicProcessorFactory
	BlockBuilderFactory   BlockBuilderFactory
	GlobalVariableBuilder GlobalVariableBuilder
	Slasher               Slasher // may be nil
	Now                   DateProvider
	Timers                TimerFactory
}

// Sequencer is the top-level rollup block-proposer loop: it owns the
// phase state machine, the polling driver, and wires every §4 component
// together (spec.md §4.I).
type Sequencer struct {
	mu sync.RWMutex

	deps Dependencies
	cfg  Config

	constants RollupConstants
	table     TimeTable

	sm       *StateMachine
	worker   *WorkLoop
	metrics  *Metrics

	startedAt time.Time
	ticks     uint64
	lastErr   string

	pollCancel context.CancelFunc
	pollDone   chan struct{}

	log zerolog.Logger
}

// New constructs a Sequencer in the Stopped phase. TimeTable derivation
// runs immediately; a misconfigured cfg/constants pair fails construction
// with a *ConfigError.
func New(constants RollupConstants, cfg Config, deps Dependencies, log zerolog.Logger) (*Sequencer, error) {
	log = log.With().Str("component", "sequencer").Logger()

	if deps.Now == nil {
		deps.Now = SystemDateProvider
	}
	if deps.Timers == nil {
		deps.Timers = SystemTimerFactory{}
	}

	table, err := NewTimeTable(constants, time.Duration(cfg.MaxL1TxInclusionTimeIntoSlotSec)*time.Second, cfg.EnforceTimeTable)
	if err != nil {
		return nil, err
	}

	s := &Sequencer{
		deps:      deps,
		cfg:       cfg,
		constants: constants,
		table:     table,
		log:       log,
	}

	s.metrics = NewMetrics(deps.Now)
	s.sm = NewStateMachine(constants, table, cfg.EnforceTimeTable, deps.Now, log)
	s.sm.SetOnTransition(s.metrics.StateTransitionBuffer)

	s.rebuildWorker()

	return s, nil
}

func (s *Sequencer) rebuildWorker() {
	syncGate := NewSyncGate(s.deps.WorldState, s.deps.L2BlockSource, s.deps.P2PClient, s.deps.L1ToL2MessageSource, s.log)
	proposerCheck := NewProposerCheck(s.deps.Publisher, s.log)
	assembler := NewBlockAssembler(
		s.deps.WorldState,
		s.deps.L1ToL2MessageSource,
		s.deps.TxPool,
		s.deps.PublicProcessorFactory,
		s.deps.BlockBuilderFactory,
		s.deps.Now,
		s.deps.Timers,
		s.Config,
		s.TimeTable,
		s.log,
	)
	attestations := NewAttestationCollector(s.deps.Publisher, s.deps.ValidatorClient, s.sm, s.log)
	proofQuotes := NewProofQuoteBidder(s.deps.Publisher, s.deps.TxPool, s.log)

	s.worker = NewWorkLoop(
		s.sm,
		syncGate,
		proposerCheck,
		assembler,
		attestations,
		proofQuotes,
		s.deps.Publisher,
		s.deps.L2BlockSource,
		s.deps.TxPool,
		s.deps.GlobalVariableBuilder,
		s.deps.Now,
		s.metrics,
		s.Config,
		s.Constants,
		s.log,
	)
}

// Config returns a snapshot of the current configuration.
func (s *Sequencer) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// TimeTable returns a snapshot of the current TimeTable.
func (s *Sequencer) TimeTable() TimeTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Constants returns the immutable rollup constants.
func (s *Sequencer) Constants() RollupConstants {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.constants
}

// Start constructs the polling loop, force-sets Idle, and begins polling
// at the configured interval (spec.md §4.I).
func (s *Sequencer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.pollCancel != nil {
		s.mu.Unlock()
		return nil
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s.pollCancel = cancel
	s.pollDone = make(chan struct{})
	s.startedAt = s.deps.Now.Now()
	s.mu.Unlock()

	if err := s.sm.Set(PhaseIdle, 0, true); err != nil {
		return err
	}

	interval := time.Duration(s.Config().PollingIntervalMs) * time.Millisecond
	go s.pollLoop(pollCtx, interval)

	s.log.Info().Dur("interval", interval).Msg("sequencer started")
	return nil
}

func (s *Sequencer) pollLoop(ctx context.Context, interval time.Duration) {
	defer close(s.pollDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Sequencer) runTick(ctx context.Context) {
	if err := s.worker.Tick(ctx); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
	}
	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()
}

// Stop stops the validator client, stops polling, stops the slasher,
// signals the publisher to interrupt in-flight calls, and force-sets
// Stopped. Idempotent: stop(); stop() behaves like a single stop().
func (s *Sequencer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.pollCancel
	done := s.pollDone
	s.pollCancel = nil
	s.pollDone = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	var errs []error
	if s.deps.ValidatorClient != nil {
		if err := s.deps.ValidatorClient.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop validator client: %w", err))
		}
	}
	if s.deps.Slasher != nil {
		if err := s.deps.Slasher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop slasher: %w", err))
		}
	}

	s.deps.Publisher.Interrupt()

	if err := s.sm.Set(PhaseStopped, 0, true); err != nil {
		errs = append(errs, err)
	}

	s.log.Info().Msg("sequencer stopped")

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Restart re-arms the publisher, resumes polling, and force-sets Idle.
func (s *Sequencer) Restart(ctx context.Context) error {
	if err := s.deps.Publisher.Restart(ctx); err != nil {
		return fmt.Errorf("restart publisher: %w", err)
	}
	return s.Start(ctx)
}

// Flush arms the flushing flag: the next tick builds even with too few
// pending txs, and the flag is cleared whether or not the build succeeds.
func (s *Sequencer) Flush() {
	s.worker.SetFlushing(true)
}

// Status returns the current externally observable snapshot.
func (s *Sequencer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := 0.0
	if !s.startedAt.IsZero() {
		uptime = s.deps.Now.Now().Sub(s.startedAt).Seconds()
	}

	return Status{
		Phase:          s.sm.Current(),
		UptimeSeconds:  uptime,
		TicksProcessed: s.ticks,
		LastError:      s.lastErr,
		Flushing:       s.worker.IsFlushing(),
	}
}

// UpdateConfig merges non-nil fields of u onto the current config,
// forwards the governance payload and slash-payload getter to the
// publisher, and recomputes the TimeTable. If TimeTable derivation fails,
// the previous config and table remain active (spec.md §9).
func (s *Sequencer) UpdateConfig(u ConfigUpdate) error {
	s.mu.Lock()
	newCfg := s.cfg.Merge(u)
	s.mu.Unlock()

	newTable, err := NewTimeTable(
		s.Constants(),
		time.Duration(newCfg.MaxL1TxInclusionTimeIntoSlotSec)*time.Second,
		newCfg.EnforceTimeTable,
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = newCfg
	s.table = newTable
	s.mu.Unlock()

	s.sm.UpdateTable(newTable, s.Constants(), newCfg.EnforceTimeTable)

	if u.GovernanceProposerPayload != nil {
		s.deps.Publisher.SetGovernancePayload(newCfg.GovernanceProposerPayload)
	}
	if s.deps.Slasher != nil {
		s.deps.Publisher.RegisterSlashPayloadGetter(func() []byte {
			payload, err := s.deps.Slasher.GetSlashPayload(context.Background())
			if err != nil {
				s.log.Warn().Err(err).Msg("get slash payload failed")
				return nil
			}
			return payload
		})
	}

	s.log.Info().Msg("configuration updated")
	return nil
}
