package sequencer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// SyncGate reports whether the local views of world-state, the p2p layer
// and the L1->L2 message source have caught up with the L2 chain tip
// (spec.md §4.C).
type SyncGate struct {
	worldState    WorldState
	l2BlockSource L2BlockSource
	p2pClient     P2PClient
	l1ToL2        L1ToL2MessageSource
	log           zerolog.Logger
}

// NewSyncGate constructs a SyncGate.
func NewSyncGate(worldState WorldState, l2BlockSource L2BlockSource, p2pClient P2PClient, l1ToL2 L1ToL2MessageSource, log zerolog.Logger) *SyncGate {
	return &SyncGate{
		worldState:    worldState,
		l2BlockSource: l2BlockSource,
		p2pClient:     p2pClient,
		l1ToL2:        l1ToL2,
		log:           log.With().Str("component", "sync-gate").Logger(),
	}
}

// Synced returns true iff all three local views have caught up with the
// L2 block source's latest tip.
func (g *SyncGate) Synced(ctx context.Context) (bool, error) {
	log := loggerWithTickID(ctx, g.log)

	tip, err := g.l2BlockSource.GetL2Tips(ctx)
	if err != nil {
		return false, fmt.Errorf("sync gate: get l2 tips: %w", err)
	}

	wsStatus, err := g.worldState.Status(ctx)
	if err != nil {
		return false, fmt.Errorf("sync gate: world state status: %w", err)
	}

	if tip.Archive != GenesisArchiveRoot && wsStatus.Hash != tip.Archive {
		log.Debug().
			Str("world_state_hash", wsStatus.Hash.Hex()).
			Str("tip_archive", tip.Archive.Hex()).
			Msg("world state not synced to tip")
		return false, nil
	}

	p2pBlockNumber, err := g.p2pClient.SyncedBlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("sync gate: p2p synced block number: %w", err)
	}
	if p2pBlockNumber < tip.BlockNumber {
		log.Debug().
			Uint64("p2p_block_number", p2pBlockNumber).
			Uint64("tip_block_number", tip.BlockNumber).
			Msg("p2p client not synced to tip")
		return false, nil
	}

	l1ToL2BlockNumber, err := g.l1ToL2.GetBlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("sync gate: l1-to-l2 message source block number: %w", err)
	}
	if l1ToL2BlockNumber < tip.BlockNumber {
		log.Debug().
			Uint64("l1_to_l2_block_number", l1ToL2BlockNumber).
			Uint64("tip_block_number", tip.BlockNumber).
			Msg("l1-to-l2 message source not synced to tip")
		return false, nil
	}

	return true, nil
}
