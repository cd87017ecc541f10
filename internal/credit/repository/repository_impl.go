package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	"github.com/songsmith/songsmith/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) creditdomain.Repository {
	return &repo{db: db}
}

func (r *repo) InsertIgnoreDuplicate(ctx context.Context, tx *creditdomain.CreditTransaction) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_tx_id"}},
			DoNothing: true,
		}).
		Create(tx)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByProviderTx(ctx context.Context, provider, providerTxID string) (*creditdomain.CreditTransaction, error) {
	var tx creditdomain.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_tx_id = ?", provider, providerTxID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*creditdomain.CreditTransaction, error) {
	var tx creditdomain.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repo) ListSucceededByOwnerRefs(ctx context.Context, ownerRefs []string) ([]creditdomain.CreditTransaction, error) {
	if len(ownerRefs) == 0 {
		return nil, nil
	}
	var txs []creditdomain.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("owner_ref IN ? AND status = ?", ownerRefs, creditdomain.StatusSucceeded).
		Order("created_at DESC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// DecrementOne is the race barrier for credit consumption: the WHERE clause
// re-checks spendability at mutation time, so two concurrent requests racing
// for the last credit produce exactly one affected row.
//
// consumed_at must be assigned before the decrement: MySQL evaluates SET
// left-to-right against already-updated values, while Postgres and SQLite
// read the pre-update row. With this order the CASE sees the original count
// under both semantics.
func (r *repo) DecrementOne(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE credit_transactions
		 SET consumed_at = CASE WHEN available_credits = 1 THEN ? ELSE consumed_at END,
		     available_credits = available_credits - 1,
		     updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND consumed_at IS NULL
		   AND available_credits > 0`,
		now,
		now,
		id,
		creditdomain.StatusSucceeded,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
