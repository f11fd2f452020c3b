package sequencer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// CollectAttestationsResult is the outcome of AttestationCollector.Collect.
type CollectAttestationsResult struct {
	Attestations []Attestation
	None         bool // true when no attestations were solicited (empty committee, or the validator returned no proposal)
}

// AttestationCollector asks the publisher for the current committee,
// builds a proposal, broadcasts it, and waits for quorum (spec.md §4.F).
type AttestationCollector struct {
	publisher Publisher
	validator ValidatorClient
	sm        *StateMachine
	log       zerolog.Logger
}

// NewAttestationCollector constructs an AttestationCollector. validator may
// be nil; a nil validator with a non-empty committee is a NoValidator
// configuration error surfaced as a *PublisherRejectedError.
func NewAttestationCollector(publisher Publisher, validator ValidatorClient, sm *StateMachine, log zerolog.Logger) *AttestationCollector {
	return &AttestationCollector{
		publisher: publisher,
		validator: validator,
		sm:        sm,
		log:       log.With().Str("component", "attestation-collector").Logger(),
	}
}

// Collect runs the full collection sequence for a freshly built block.
func (c *AttestationCollector) Collect(ctx context.Context, slot SlotId, header ProposalHeader, archiveRoot common.Hash, txHashes []common.Hash) (CollectAttestationsResult, error) {
	log := loggerWithTickID(ctx, c.log)

	committee, err := c.publisher.GetCurrentEpochCommittee(ctx)
	if err != nil {
		return CollectAttestationsResult{}, err
	}
	if len(committee) == 0 {
		return CollectAttestationsResult{None: true}, nil
	}

	if c.validator == nil {
		return CollectAttestationsResult{}, newPublisherRejected("no validator client configured but committee is non-empty")
	}

	if err := tracedTransition(ctx, PhaseCollectingAttestations, slot, func() error {
		return c.sm.Set(PhaseCollectingAttestations, slot, false)
	}); err != nil {
		return CollectAttestationsResult{}, err
	}

	proposal, err := c.validator.CreateBlockProposal(ctx, header, archiveRoot, txHashes)
	if err != nil {
		return CollectAttestationsResult{}, err
	}
	if proposal == nil {
		log.Warn().Msg("validator returned no block proposal")
		return CollectAttestationsResult{None: true}, nil
	}

	if err := c.validator.BroadcastBlockProposal(ctx, *proposal); err != nil {
		return CollectAttestationsResult{}, err
	}

	threshold := quorumThreshold(len(committee))
	attestations, err := c.validator.CollectAttestations(ctx, *proposal, threshold)
	if err != nil {
		return CollectAttestationsResult{}, err
	}

	ordered := orderByCommittee(attestations, committee)
	return CollectAttestationsResult{Attestations: ordered}, nil
}

// quorumThreshold is ⌊n·2/3⌋+1.
func quorumThreshold(n int) int {
	return (n*2)/3 + 1
}

// orderByCommittee reorders attestations to match committee order, as
// required by the rollup contract, dropping signers not present in the
// committee.
func orderByCommittee(attestations []Attestation, committee []common.Address) []Attestation {
	bySigner := make(map[common.Address]Attestation, len(attestations))
	for _, a := range attestations {
		bySigner[a.Signer] = a
	}

	ordered := make([]Attestation, 0, len(attestations))
	for _, signer := range committee {
		if a, ok := bySigner[signer]; ok {
			ordered = append(ordered, a)
		}
	}

	return ordered
}
