package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/songsmith/songsmith/internal/callerctx"
)

// Resolution is the effective usage view computed across every record that
// matches the caller's identifiers. EffectiveFreeUsed is the maximum of the
// matched counters, not their sum: the same person may be represented by
// several bookkeeping rows (old device ids, pre- and post-login) and summing
// would manufacture usage that never happened.
type Resolution struct {
	Records           []UsageRecord
	Primary           *UsageRecord
	EffectiveFreeUsed int
}

// Resolver computes the effective usage view for a caller.
type Resolver interface {
	Resolve(ctx context.Context, identity callerctx.Identity) (Resolution, error)
}

// Service mutates usage records after confirmed generations.
type Service interface {
	Resolver

	// RecordCompleted folds the authoritative generation count into every
	// matched record. The count is derived from the caller's generations to
	// date, so re-delivery of the same completion callback is a no-op.
	RecordCompleted(ctx context.Context, identity callerctx.Identity, generationCount int) error
}

// Repository is the durable store for usage records. Every write is a
// conditional or insert-or-ignore statement; unconditional read-then-write is
// what loses updates under concurrent sign-ins and retried callbacks.
type Repository interface {
	FindByIdentity(ctx context.Context, identity callerctx.Identity) ([]UsageRecord, error)
	FindByAccount(ctx context.Context, accountID string) (*UsageRecord, error)

	// CreateAnonymous inserts a record for a device id, ignoring the insert
	// when a record for that device already exists. Returns the stored row.
	CreateAnonymous(ctx context.Context, record *UsageRecord) (*UsageRecord, error)

	// CreateForAccount inserts a record for an account id, ignoring the
	// insert when one already exists. Returns the stored row.
	CreateForAccount(ctx context.Context, record *UsageRecord) (*UsageRecord, error)

	// FoldFreeUsed raises free_creations_used to count when it is currently
	// lower, in a single conditional UPDATE. Safe to repeat.
	FoldFreeUsed(ctx context.Context, id snowflake.ID, count int, lastSeenIP *string, now time.Time) error

	// DeleteAnonymous removes anonymous records for the given device ids.
	// Records that already carry an account id are never touched.
	DeleteAnonymous(ctx context.Context, deviceIDs []string) error
}

var (
	ErrInvalidIdentity = errors.New("invalid_identity")
	ErrInvalidCount    = errors.New("invalid_count")
)
