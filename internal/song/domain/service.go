package domain

import (
	"context"
	"errors"
	"time"

	"github.com/songsmith/songsmith/internal/callerctx"
)

type Service interface {
	// Record persists a completed generation for the caller.
	Record(ctx context.Context, identity callerctx.Identity, title string) (*Song, error)

	// ListForIdentity returns songs owned by the caller's account or any of
	// its device ids, newest first.
	ListForIdentity(ctx context.Context, identity callerctx.Identity) ([]Song, error)
}

type Repository interface {
	Create(ctx context.Context, song *Song) error
	ListByIdentity(ctx context.Context, identity callerctx.Identity) ([]Song, error)

	// ReassignGuestSongs moves every song owned by one of the guest ids to
	// the account, clearing the guest marker in the same statement. An
	// already-reassigned song has no matching owner_guest_id left, so the
	// update is exactly-once under merge retries. Returns rows moved.
	ReassignGuestSongs(ctx context.Context, guestIDs []string, accountID string, now time.Time) (int64, error)
}

var (
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidIdentity = errors.New("invalid_identity")
)
