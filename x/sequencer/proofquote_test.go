package sequencer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestProofQuoteBidderPicksLowestValidFee(t *testing.T) {
	t.Parallel()

	pub := newFakePublisher()
	pub.claimableOk = true
	pub.claimableEpoch = 7
	pub.quoteValid = map[uint64]bool{100: true, 50: true} // fee 75 invalid

	pool := &fakeTxPool{quotes: map[uint64][]EpochProofQuote{
		7: {
			{EpochToProve: 7, ValidUntilSlot: 100, BasisPointFee: 100},
			{EpochToProve: 7, ValidUntilSlot: 100, BasisPointFee: 50},
			{EpochToProve: 7, ValidUntilSlot: 100, BasisPointFee: 75},
		},
	}}

	bidder := NewProofQuoteBidder(pub, pool, zerolog.Nop())
	quote, err := bidder.SelectQuote(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, quote)
	require.Equal(t, uint32(50), quote.BasisPointFee)
}

func TestProofQuoteBidderFiltersExpiredAndWrongEpoch(t *testing.T) {
	t.Parallel()

	pub := newFakePublisher()
	pub.claimableOk = true
	pub.claimableEpoch = 7
	pub.quoteValid = map[uint64]bool{10: true, 20: true}

	pool := &fakeTxPool{quotes: map[uint64][]EpochProofQuote{
		7: {
			{EpochToProve: 7, ValidUntilSlot: 5, BasisPointFee: 10},  // expired
			{EpochToProve: 6, ValidUntilSlot: 100, BasisPointFee: 20}, // wrong epoch
		},
	}}

	bidder := NewProofQuoteBidder(pub, pool, zerolog.Nop())
	quote, err := bidder.SelectQuote(context.Background(), 10)
	require.NoError(t, err)
	require.Nil(t, quote)
}

func TestProofQuoteBidderNoClaimableEpoch(t *testing.T) {
	t.Parallel()

	pub := newFakePublisher()
	pool := &fakeTxPool{}

	bidder := NewProofQuoteBidder(pub, pool, zerolog.Nop())
	quote, err := bidder.SelectQuote(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, quote)
}

func TestProofQuoteBidderClaimIfAvailableClaimsDirectly(t *testing.T) {
	t.Parallel()

	pub := newFakePublisher()
	pub.claimableOk = true
	pub.claimableEpoch = 3
	pub.quoteValid = map[uint64]bool{20: true}
	pool := &fakeTxPool{quotes: map[uint64][]EpochProofQuote{
		3: {{EpochToProve: 3, ValidUntilSlot: 100, BasisPointFee: 20}},
	}}

	bidder := NewProofQuoteBidder(pub, pool, zerolog.Nop())
	err := bidder.ClaimIfAvailable(context.Background(), 1)
	require.NoError(t, err)
}

func TestProofQuoteBidderClaimFailedIsRaised(t *testing.T) {
	t.Parallel()

	pub := newFakePublisher()
	pub.claimableOk = true
	pub.claimableEpoch = 3
	pub.quoteValid = map[uint64]bool{20: true}
	pub.claimFails = true
	pool := &fakeTxPool{quotes: map[uint64][]EpochProofQuote{
		3: {{EpochToProve: 3, ValidUntilSlot: 100, BasisPointFee: 20}},
	}}

	bidder := NewProofQuoteBidder(pub, pool, zerolog.Nop())
	err := bidder.ClaimIfAvailable(context.Background(), 1)
	require.Error(t, err)
	require.True(t, errorIsKind(err, KindClaimFailed))
}
