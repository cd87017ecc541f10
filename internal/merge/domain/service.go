// Package domain defines the identity merge contract: folding anonymous usage
// history into an account at sign-in.
package domain

import (
	"context"
	"errors"

	"github.com/songsmith/songsmith/internal/callerctx"
)

// Result reports what a merge invocation moved.
type Result struct {
	MigratedSongs     int64 `json:"migrated_song_count"`
	FreeCreationsUsed int   `json:"free_creations_used"`
}

// Service reconciles anonymous usage records into the authenticated caller's
// record at sign-in. Every invocation is idempotent: sign-in events may be
// delivered more than once, and a client that timed out mid-merge retries
// from the start.
type Service interface {
	Migrate(ctx context.Context, identity callerctx.Identity) (Result, error)
}

var ErrAccountRequired = errors.New("account_required")
