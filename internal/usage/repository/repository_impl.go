package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/songsmith/songsmith/internal/callerctx"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	"github.com/songsmith/songsmith/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) usagedomain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByIdentity(ctx context.Context, identity callerctx.Identity) ([]usagedomain.UsageRecord, error) {
	identity = identity.Normalize()
	if identity.IsEmpty() {
		return nil, nil
	}

	stmt := r.db.WithContext(ctx).Model(&usagedomain.UsageRecord{})
	switch {
	case !identity.IsAnonymous() && len(identity.DeviceIDs) > 0:
		stmt = stmt.Where("account_id = ? OR device_id IN ?", identity.AccountID, identity.DeviceIDs)
	case !identity.IsAnonymous():
		stmt = stmt.Where("account_id = ?", identity.AccountID)
	default:
		stmt = stmt.Where("device_id IN ?", identity.DeviceIDs)
	}

	var records []usagedomain.UsageRecord
	if err := stmt.Order("updated_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) FindByAccount(ctx context.Context, accountID string) (*usagedomain.UsageRecord, error) {
	var record usagedomain.UsageRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) CreateAnonymous(ctx context.Context, record *usagedomain.UsageRecord) (*usagedomain.UsageRecord, error) {
	if record == nil || record.DeviceID == nil || *record.DeviceID == "" {
		return nil, usagedomain.ErrInvalidIdentity
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil && !db.IsDuplicateKeyErr(result.Error) {
		return nil, result.Error
	}
	if result.Error == nil && result.RowsAffected > 0 {
		return record, nil
	}
	// Lost the insert race; return the row that won.
	var existing usagedomain.UsageRecord
	if err := r.db.WithContext(ctx).
		Where("device_id = ?", *record.DeviceID).
		First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *repo) CreateForAccount(ctx context.Context, record *usagedomain.UsageRecord) (*usagedomain.UsageRecord, error) {
	if record == nil || record.AccountID == nil || *record.AccountID == "" {
		return nil, usagedomain.ErrInvalidIdentity
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil && !db.IsDuplicateKeyErr(result.Error) {
		return nil, result.Error
	}
	if result.Error == nil && result.RowsAffected > 0 {
		return record, nil
	}
	return r.FindByAccount(ctx, *record.AccountID)
}

func (r *repo) FoldFreeUsed(ctx context.Context, id snowflake.ID, count int, lastSeenIP *string, now time.Time) error {
	if count < 0 {
		return usagedomain.ErrInvalidCount
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE usage_records
		 SET free_creations_used = ?,
		     last_seen_ip = COALESCE(?, last_seen_ip),
		     updated_at = ?
		 WHERE id = ? AND free_creations_used < ?`,
		count,
		lastSeenIP,
		now,
		id,
		count,
	).Error
}

func (r *repo) DeleteAnonymous(ctx context.Context, deviceIDs []string) error {
	if len(deviceIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM usage_records WHERE account_id IS NULL AND device_id IN ?`,
		deviceIDs,
	).Error
}
