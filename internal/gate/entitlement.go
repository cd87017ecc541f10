package gate

import (
	"context"

	"github.com/songsmith/songsmith/internal/callerctx"
	"github.com/songsmith/songsmith/internal/config"
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	"github.com/songsmith/songsmith/internal/metrics"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// consumeAttempts bounds the re-decide loop when concurrent requests drain
// credits between the decision and the decrement.
const consumeAttempts = 3

// Status is the read-only entitlement view, safe to poll.
type Status struct {
	Allowed           bool   `json:"allowed"`
	Reason            Reason `json:"reason"`
	FreeCreationsUsed int    `json:"free_creations_used"`
	HasPaidCredit     bool   `json:"has_paid_credit"`
}

// Authorization is the outcome of authorizeAndConsume.
type Authorization struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Resolver  usagedomain.Service
	CreditSvc creditdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

// Service orchestrates resolve, decide and consume. It is the only caller of
// credit consumption.
type Service struct {
	log       *zap.Logger
	resolver  usagedomain.Resolver
	creditSvc creditdomain.Service
	metrics   *metrics.Metrics
	freeLimit int
}

func NewService(p Params) *Service {
	return &Service{
		log:       p.Log.Named("gate.service"),
		resolver:  p.Resolver,
		creditSvc: p.CreditSvc,
		metrics:   p.Metrics,
		freeLimit: p.Cfg.FreeCreationLimit,
	}
}

// CheckStatus resolves the caller's usage and credits and runs the decision
// speculatively. Nothing is consumed.
func (s *Service) CheckStatus(ctx context.Context, identity callerctx.Identity) (Status, error) {
	resolution, credits, err := s.resolve(ctx, identity)
	if err != nil {
		return Status{}, err
	}

	decision, err := Decide(resolution, credits, s.freeLimit)
	if err != nil {
		s.log.Error("gate decision failed", zap.Error(err))
		return Status{}, err
	}

	hasPaid := false
	for i := range credits {
		if credits[i].Spendable() {
			hasPaid = true
			break
		}
	}

	return Status{
		Allowed:           decision.Allowed,
		Reason:            decision.Reason,
		FreeCreationsUsed: resolution.EffectiveFreeUsed,
		HasPaidCredit:     hasPaid,
	}, nil
}

// AuthorizeAndConsume decides and, when the decision rides on a purchased
// credit, performs the single race-safe decrement. A failed decrement means a
// concurrent request spent the credit first; the decision is re-run against
// fresh state rather than granted.
func (s *Service) AuthorizeAndConsume(ctx context.Context, identity callerctx.Identity) (Authorization, error) {
	for attempt := 0; attempt < consumeAttempts; attempt++ {
		resolution, credits, err := s.resolve(ctx, identity)
		if err != nil {
			return Authorization{}, err
		}

		decision, err := Decide(resolution, credits, s.freeLimit)
		if err != nil {
			s.log.Error("gate decision failed", zap.Error(err))
			return Authorization{}, err
		}

		switch decision.Reason {
		case ReasonFreeTier:
			s.observe(ReasonFreeTier)
			return Authorization{Allowed: true, Reason: ReasonFreeTier}, nil

		case ReasonPaidCredit:
			result, err := s.creditSvc.Consume(ctx, decision.CreditTx.ID)
			if err != nil {
				return Authorization{}, err
			}
			if result.Success {
				s.observe(ReasonPaidCredit)
				if s.metrics != nil {
					s.metrics.CreditsConsumed.Inc()
				}
				return Authorization{Allowed: true, Reason: ReasonPaidCredit}, nil
			}
			// Lost the race for this credit; re-resolve and decide again.
			if s.metrics != nil {
				s.metrics.ConsumeConflict.Inc()
			}
			s.log.Debug("credit consume conflict, re-deciding",
				zap.String("transaction_id", decision.CreditTx.ID.String()),
			)

		default:
			s.observe(ReasonBlocked)
			return Authorization{Allowed: false, Reason: ReasonBlocked}, nil
		}
	}

	s.observe(ReasonBlocked)
	return Authorization{Allowed: false, Reason: ReasonBlocked}, nil
}

func (s *Service) resolve(ctx context.Context, identity callerctx.Identity) (usagedomain.Resolution, []creditdomain.CreditTransaction, error) {
	identity = identity.Normalize()
	resolution, err := s.resolver.Resolve(ctx, identity)
	if err != nil {
		return usagedomain.Resolution{}, nil, err
	}
	credits, err := s.creditSvc.ListAvailable(ctx, identity.OwnerRefs())
	if err != nil {
		return usagedomain.Resolution{}, nil, err
	}
	return resolution, credits, nil
}

func (s *Service) observe(reason Reason) {
	if s.metrics != nil {
		s.metrics.GateDecisions.WithLabelValues(string(reason)).Inc()
	}
}
