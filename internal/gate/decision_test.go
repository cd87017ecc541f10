package gate

import (
	"testing"
	"time"

	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name        string
		freeUsed    int
		credits     []creditdomain.CreditTransaction
		wantAllowed bool
		wantReason  Reason
		wantErr     error
	}{
		{
			name:        "free tier available",
			freeUsed:    0,
			wantAllowed: true,
			wantReason:  ReasonFreeTier,
		},
		{
			name:       "free tier exhausted, no credits",
			freeUsed:   1,
			wantReason: ReasonBlocked,
		},
		{
			name:     "free tier exhausted, spendable credit",
			freeUsed: 1,
			credits: []creditdomain.CreditTransaction{
				{ID: 1, Status: creditdomain.StatusSucceeded, AvailableCredits: 1},
			},
			wantAllowed: true,
			wantReason:  ReasonPaidCredit,
		},
		{
			name:     "pending credit does not count",
			freeUsed: 1,
			credits: []creditdomain.CreditTransaction{
				{ID: 1, Status: creditdomain.StatusPending, AvailableCredits: 1},
			},
			wantReason: ReasonBlocked,
		},
		{
			name:     "consumed credit does not count",
			freeUsed: 1,
			credits: []creditdomain.CreditTransaction{
				{ID: 1, Status: creditdomain.StatusSucceeded, AvailableCredits: 0, ConsumedAt: &now},
			},
			wantReason: ReasonBlocked,
		},
		{
			name:     "negative credits is an invariant violation",
			freeUsed: 1,
			credits: []creditdomain.CreditTransaction{
				{ID: 1, Status: creditdomain.StatusSucceeded, AvailableCredits: -1},
			},
			wantReason: ReasonBlocked,
			wantErr:    creditdomain.ErrInvariantViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := Decide(
				usagedomain.Resolution{EffectiveFreeUsed: tt.freeUsed},
				tt.credits,
				1,
			)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantReason, decision.Reason)
		})
	}
}

func TestDecideMonotonic(t *testing.T) {
	// Once the free tier is exhausted and no credit exists, the decision is
	// blocked no matter how often it is repeated.
	resolution := usagedomain.Resolution{EffectiveFreeUsed: 1}
	for i := 0; i < 5; i++ {
		decision, err := Decide(resolution, nil, 1)
		assert.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonBlocked, decision.Reason)
	}
}

func TestDecidePicksFirstSpendableCredit(t *testing.T) {
	now := time.Now().UTC()
	credits := []creditdomain.CreditTransaction{
		{ID: 1, Status: creditdomain.StatusSucceeded, AvailableCredits: 0, ConsumedAt: &now},
		{ID: 2, Status: creditdomain.StatusSucceeded, AvailableCredits: 3},
		{ID: 3, Status: creditdomain.StatusSucceeded, AvailableCredits: 1},
	}

	decision, err := Decide(usagedomain.Resolution{EffectiveFreeUsed: 1}, credits, 1)
	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonPaidCredit, decision.Reason)
	if assert.NotNil(t, decision.CreditTx) {
		assert.EqualValues(t, 2, decision.CreditTx.ID)
	}
}
