package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/songsmith/songsmith/internal/clock"
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  creditdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  creditdomain.Repository
}

func NewService(p Params) creditdomain.Service {
	return &Service{
		log:   p.Log.Named("credit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Grant(ctx context.Context, event creditdomain.PaymentConfirmed) (*creditdomain.CreditTransaction, error) {
	if err := validateEvent(&event); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tx := &creditdomain.CreditTransaction{
		ID:               s.genID.Generate(),
		Provider:         event.Provider,
		ProviderTxID:     event.ProviderTxID,
		OwnerRef:         event.OwnerRef,
		AvailableCredits: event.CreditsGranted,
		Status:           creditdomain.StatusSucceeded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if len(event.Payload) > 0 {
		tx.Payload = datatypes.JSON(event.Payload)
	}

	inserted, err := s.repo.InsertIgnoreDuplicate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Info("credit granted",
			zap.String("provider", event.Provider),
			zap.String("provider_tx_id", event.ProviderTxID),
			zap.Int("credits", event.CreditsGranted),
		)
		return tx, nil
	}

	// Redelivered webhook; the first delivery won.
	existing, err := s.repo.FindByProviderTx(ctx, event.Provider, event.ProviderTxID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, creditdomain.ErrTransactionMissing
	}
	return existing, nil
}

func (s *Service) ListAvailable(ctx context.Context, ownerRefs []string) ([]creditdomain.CreditTransaction, error) {
	txs, err := s.repo.ListSucceededByOwnerRefs(ctx, ownerRefs)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if txs[i].AvailableCredits < 0 {
			s.log.Error("negative available_credits in ledger",
				zap.String("transaction_id", txs[i].ID.String()),
				zap.Int("available_credits", txs[i].AvailableCredits),
			)
			return nil, creditdomain.ErrInvariantViolation
		}
	}
	return txs, nil
}

func (s *Service) Consume(ctx context.Context, txID snowflake.ID) (creditdomain.ConsumeResult, error) {
	ok, err := s.repo.DecrementOne(ctx, txID, s.clock.Now())
	if err != nil {
		return creditdomain.ConsumeResult{}, err
	}
	if !ok {
		// Exhausted, not yet succeeded, or missing. Either way no credit was
		// spent and the caller must re-run the gate decision.
		return creditdomain.ConsumeResult{Success: false}, nil
	}

	tx, err := s.repo.FindByID(ctx, txID)
	if err != nil {
		// The decrement committed, so the credit is spent; surfacing the
		// readback failure would make the caller retry against a credit that
		// is already gone.
		s.log.Warn("credit consumed but remaining-count readback failed",
			zap.String("transaction_id", txID.String()),
			zap.Error(err),
		)
		return creditdomain.ConsumeResult{Success: true}, nil
	}
	result := creditdomain.ConsumeResult{Success: true}
	if tx != nil {
		result.RemainingCredits = tx.AvailableCredits
	}
	return result, nil
}

func validateEvent(event *creditdomain.PaymentConfirmed) error {
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	event.ProviderTxID = strings.TrimSpace(event.ProviderTxID)
	event.OwnerRef = strings.TrimSpace(event.OwnerRef)

	if event.Provider == "" {
		return creditdomain.ErrInvalidProvider
	}
	if event.ProviderTxID == "" {
		return creditdomain.ErrInvalidProviderTx
	}
	if event.OwnerRef == "" {
		return creditdomain.ErrInvalidOwnerRef
	}
	if event.CreditsGranted <= 0 {
		return creditdomain.ErrInvalidCredits
	}
	if len(event.Payload) > 0 && !json.Valid(event.Payload) {
		return creditdomain.ErrInvalidPayload
	}
	return nil
}
