package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dramarereg/aztec-sequencer/cmd/sequencer/config"
	"github.com/dramarereg/aztec-sequencer/x/sequencer"
)

// buildDependencies resolves the concrete collaborators the sequencer
// drives: the L1 publisher contract binding, the validator client, the
// tx pool, world-state, and the rest of x/sequencer.Dependencies.
//
// Those adapters talk to systems this module does not own (an L1 RPC
// endpoint, the rollup's world-state store, the p2p/validator network) and
// are deliberately out of scope here, matching the sequencer's own
// boundary: it keeps no persistent state and speaks no wire protocol of
// its own. A deployment wires real implementations in before calling
// NewApp; this function is the seam where that wiring happens.
func buildDependencies(_ context.Context, _ *config.Config, log zerolog.Logger) (sequencer.Dependencies, error) {
	log.Error().Msg("no collaborator adapters registered for this build")
	return sequencer.Dependencies{}, fmt.Errorf("buildDependencies: no Publisher/TxPool/WorldState/... adapters wired; " +
		"provide a deployment-specific implementation of x/sequencer.Dependencies before starting the sequencer")
}
