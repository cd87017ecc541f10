// Package gate decides, for every creation request, whether it is free, paid,
// or blocked.
package gate

import (
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
)

// Reason explains an allow/deny decision.
type Reason string

const (
	ReasonFreeTier   Reason = "free_tier"
	ReasonPaidCredit Reason = "paid_credit"
	ReasonBlocked    Reason = "blocked"
)

// Decision is the outcome of the creation gate. When Reason is
// ReasonPaidCredit, CreditTx is the transaction the caller must consume
// before starting the generation.
type Decision struct {
	Allowed  bool
	Reason   Reason
	CreditTx *creditdomain.CreditTransaction
}

// Decide is a pure function over the resolved usage view and the caller's
// credit transactions. It has no side effects and is safe to call
// speculatively, e.g. for status display, without consuming anything.
//
// Any uncertainty resolves to blocked; the gate never fails open.
func Decide(resolution usagedomain.Resolution, credits []creditdomain.CreditTransaction, freeLimit int) (Decision, error) {
	if resolution.EffectiveFreeUsed < freeLimit {
		return Decision{Allowed: true, Reason: ReasonFreeTier}, nil
	}

	for i := range credits {
		if credits[i].AvailableCredits < 0 {
			return Decision{Reason: ReasonBlocked}, creditdomain.ErrInvariantViolation
		}
		if credits[i].Spendable() {
			return Decision{Allowed: true, Reason: ReasonPaidCredit, CreditTx: &credits[i]}, nil
		}
	}

	return Decision{Reason: ReasonBlocked}, nil
}
