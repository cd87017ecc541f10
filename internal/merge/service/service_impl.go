package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/songsmith/songsmith/internal/callerctx"
	"github.com/songsmith/songsmith/internal/clock"
	mergedomain "github.com/songsmith/songsmith/internal/merge/domain"
	"github.com/songsmith/songsmith/internal/metrics"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	UsageRepo usagedomain.Repository
	SongRepo  songdomain.Repository
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	usageRepo usagedomain.Repository
	songRepo  songdomain.Repository
	metrics   *metrics.Metrics
}

func NewService(p Params) mergedomain.Service {
	return &Service{
		log:       p.Log.Named("merge.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		usageRepo: p.UsageRepo,
		songRepo:  p.SongRepo,
		metrics:   p.Metrics,
	}
}

// Migrate folds the caller's anonymous usage records into the account record
// and reassigns guest-owned songs.
//
// Every step is an idempotent upsert or conditional update, never an
// unconditional increment, so any prefix of the sequence can be retried from
// the start and converge to the same final state:
//
//  1. ensure the account record exists (insert-or-ignore on account_id)
//  2. read the anonymous records for the supplied device ids
//  3. fold max(account, anonymous...) into the account record; the fold only
//     raises the counter, so repeating it with already-merged inputs is a no-op
//  4. reassign songs by owner_guest_id; a reassigned song no longer matches
//  5. delete the anonymous records last — if this fails, the retry re-reads
//     an empty (or smaller) anonymous set and the max in step 3 is unchanged
//
// Because the merged value is a max rather than an additive delta, concurrent
// merges for the same account converge instead of double-applying usage.
func (s *Service) Migrate(ctx context.Context, identity callerctx.Identity) (mergedomain.Result, error) {
	identity = identity.Normalize()
	if identity.IsAnonymous() {
		return mergedomain.Result{}, mergedomain.ErrAccountRequired
	}

	now := s.clock.Now()
	account, err := s.ensureAccountRecord(ctx, identity, now)
	if err != nil {
		return mergedomain.Result{}, err
	}

	merged := account.FreeCreationsUsed
	var lastSeenIP *string
	if identity.LastIP != "" {
		ip := identity.LastIP
		lastSeenIP = &ip
	}

	var anonymous []usagedomain.UsageRecord
	if len(identity.DeviceIDs) > 0 {
		records, err := s.usageRepo.FindByIdentity(ctx, callerctx.Identity{DeviceIDs: identity.DeviceIDs})
		if err != nil {
			return mergedomain.Result{}, err
		}
		for _, record := range records {
			if !record.IsAnonymous() {
				continue
			}
			anonymous = append(anonymous, record)
			if record.FreeCreationsUsed > merged {
				merged = record.FreeCreationsUsed
			}
			if lastSeenIP == nil && record.LastSeenIP != nil {
				lastSeenIP = record.LastSeenIP
			}
		}
	}

	if err := s.usageRepo.FoldFreeUsed(ctx, account.ID, merged, lastSeenIP, now); err != nil {
		return mergedomain.Result{}, err
	}

	moved, err := s.songRepo.ReassignGuestSongs(ctx, identity.DeviceIDs, identity.AccountID, now)
	if err != nil {
		return mergedomain.Result{}, err
	}

	if len(anonymous) > 0 {
		if err := s.usageRepo.DeleteAnonymous(ctx, identity.DeviceIDs); err != nil {
			// The fold and reassignment are committed; a retry of the whole
			// merge is a no-op apart from this deletion.
			return mergedomain.Result{}, err
		}
	}

	if s.metrics != nil {
		s.metrics.MergesCompleted.Inc()
		s.metrics.SongsReassigned.Add(float64(moved))
	}
	s.log.Info("identity merged",
		zap.String("account_id", identity.AccountID),
		zap.Int("device_ids", len(identity.DeviceIDs)),
		zap.Int("merged_free_used", merged),
		zap.Int64("songs_reassigned", moved),
	)

	return mergedomain.Result{
		MigratedSongs:     moved,
		FreeCreationsUsed: merged,
	}, nil
}

func (s *Service) ensureAccountRecord(ctx context.Context, identity callerctx.Identity, now time.Time) (*usagedomain.UsageRecord, error) {
	existing, err := s.usageRepo.FindByAccount(ctx, identity.AccountID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	account := identity.AccountID
	record := &usagedomain.UsageRecord{
		ID:        s.genID.Generate(),
		AccountID: &account,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.usageRepo.CreateForAccount(ctx, record)
}
