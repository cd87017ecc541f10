package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentConfirmed is the payment processor's charge-confirmed event, as
// delivered to the webhook endpoint. Delivery may repeat; (Provider,
// ProviderTxID) dedupes.
type PaymentConfirmed struct {
	Provider       string
	ProviderTxID   string
	OwnerRef       string
	CreditsGranted int
	Payload        []byte
}

// ConsumeResult reports the outcome of a single-credit decrement.
type ConsumeResult struct {
	Success          bool
	RemainingCredits int
}

type Service interface {
	// Grant records a confirmed purchase. Redelivery of the same provider
	// event returns the already-stored transaction.
	Grant(ctx context.Context, event PaymentConfirmed) (*CreditTransaction, error)

	// ListAvailable returns succeeded transactions owned by any of the given
	// refs, newest purchase first.
	ListAvailable(ctx context.Context, ownerRefs []string) ([]CreditTransaction, error)

	// Consume decrements one credit from the transaction if and only if it is
	// currently spendable. Success=false means the credit was exhausted,
	// possibly by a concurrent request; the caller must re-run the gate
	// decision rather than granting the generation.
	Consume(ctx context.Context, txID snowflake.ID) (ConsumeResult, error)
}

type Repository interface {
	InsertIgnoreDuplicate(ctx context.Context, tx *CreditTransaction) (bool, error)
	FindByProviderTx(ctx context.Context, provider, providerTxID string) (*CreditTransaction, error)
	FindByID(ctx context.Context, id snowflake.ID) (*CreditTransaction, error)
	ListSucceededByOwnerRefs(ctx context.Context, ownerRefs []string) ([]CreditTransaction, error)

	// DecrementOne performs the conditional single decrement, setting
	// consumed_at in the same statement when the counter reaches zero.
	// Returns false when the precondition no longer holds.
	DecrementOne(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)
}

var (
	ErrInvalidProvider    = errors.New("invalid_provider")
	ErrInvalidProviderTx  = errors.New("invalid_provider_tx")
	ErrInvalidOwnerRef    = errors.New("invalid_owner_ref")
	ErrInvalidCredits     = errors.New("invalid_credits")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrTransactionMissing = errors.New("transaction_not_found")

	// ErrInvariantViolation marks ledger state that must never occur, such as
	// a negative available_credits. Requests observing it are denied.
	ErrInvariantViolation = errors.New("credit_invariant_violation")
)
