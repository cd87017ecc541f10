package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/songsmith/songsmith/internal/callerctx"
	"github.com/songsmith/songsmith/internal/clock"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  usagedomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  usagedomain.Repository
}

func NewService(p Params) usagedomain.Service {
	return &Service{
		log:   p.Log.Named("usage.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Resolve fetches every record matching the caller's account id or device ids
// and computes the effective usage view.
func (s *Service) Resolve(ctx context.Context, identity callerctx.Identity) (usagedomain.Resolution, error) {
	identity = identity.Normalize()
	if identity.IsEmpty() {
		return usagedomain.Resolution{}, usagedomain.ErrInvalidIdentity
	}

	records, err := s.repo.FindByIdentity(ctx, identity)
	if err != nil {
		return usagedomain.Resolution{}, err
	}

	resolution := usagedomain.Resolution{Records: records}
	for i := range records {
		if records[i].FreeCreationsUsed > resolution.EffectiveFreeUsed {
			resolution.EffectiveFreeUsed = records[i].FreeCreationsUsed
		}
	}
	resolution.Primary = pickPrimary(records, identity)
	return resolution, nil
}

// pickPrimary selects the canonical record: the account match when present,
// else the first record matching a supplied device id (in supplied order),
// else the most recently updated match.
func pickPrimary(records []usagedomain.UsageRecord, identity callerctx.Identity) *usagedomain.UsageRecord {
	if len(records) == 0 {
		return nil
	}

	if !identity.IsAnonymous() {
		for i := range records {
			if records[i].AccountID != nil && *records[i].AccountID == identity.AccountID {
				return &records[i]
			}
		}
	}

	for _, device := range identity.DeviceIDs {
		for i := range records {
			if records[i].DeviceID != nil && *records[i].DeviceID == device {
				return &records[i]
			}
		}
	}

	latest := &records[0]
	for i := range records {
		if records[i].UpdatedAt.After(latest.UpdatedAt) {
			latest = &records[i]
		}
	}
	return latest
}

// RecordCompleted raises free_creations_used on every matched record to the
// authoritative generation count. The fold is conditional, so a duplicated
// completion callback observes the already-raised counter and changes nothing.
func (s *Service) RecordCompleted(ctx context.Context, identity callerctx.Identity, generationCount int) error {
	identity = identity.Normalize()
	if identity.IsEmpty() {
		return usagedomain.ErrInvalidIdentity
	}
	if generationCount < 0 {
		return usagedomain.ErrInvalidCount
	}

	records, err := s.repo.FindByIdentity(ctx, identity)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	var lastSeenIP *string
	if identity.LastIP != "" {
		ip := identity.LastIP
		lastSeenIP = &ip
	}

	if len(records) == 0 {
		created, err := s.createInitialRecord(ctx, identity, now)
		if err != nil {
			return err
		}
		records = []usagedomain.UsageRecord{*created}
	}

	for i := range records {
		if err := s.repo.FoldFreeUsed(ctx, records[i].ID, generationCount, lastSeenIP, now); err != nil {
			return err
		}
	}

	s.log.Debug("usage recorded",
		zap.Int("generation_count", generationCount),
		zap.Int("records", len(records)),
	)
	return nil
}

func (s *Service) createInitialRecord(ctx context.Context, identity callerctx.Identity, now time.Time) (*usagedomain.UsageRecord, error) {
	record := &usagedomain.UsageRecord{
		ID:        s.genID.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if identity.LastIP != "" {
		ip := identity.LastIP
		record.LastSeenIP = &ip
	}

	if !identity.IsAnonymous() {
		account := identity.AccountID
		record.AccountID = &account
		return s.repo.CreateForAccount(ctx, record)
	}

	device := identity.DeviceIDs[0]
	record.DeviceID = &device
	return s.repo.CreateAnonymous(ctx, record)
}
