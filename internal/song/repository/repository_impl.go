package repository

import (
	"context"
	"time"

	"github.com/songsmith/songsmith/internal/callerctx"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) songdomain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, song *songdomain.Song) error {
	return r.db.WithContext(ctx).Create(song).Error
}

func (r *repo) ListByIdentity(ctx context.Context, identity callerctx.Identity) ([]songdomain.Song, error) {
	identity = identity.Normalize()
	if identity.IsEmpty() {
		return nil, nil
	}

	stmt := r.db.WithContext(ctx).Model(&songdomain.Song{})
	switch {
	case !identity.IsAnonymous() && len(identity.DeviceIDs) > 0:
		stmt = stmt.Where("owner_account_id = ? OR owner_guest_id IN ?", identity.AccountID, identity.DeviceIDs)
	case !identity.IsAnonymous():
		stmt = stmt.Where("owner_account_id = ?", identity.AccountID)
	default:
		stmt = stmt.Where("owner_guest_id IN ?", identity.DeviceIDs)
	}

	var songs []songdomain.Song
	if err := stmt.Order("created_at DESC").Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

func (r *repo) ReassignGuestSongs(ctx context.Context, guestIDs []string, accountID string, now time.Time) (int64, error) {
	if len(guestIDs) == 0 || accountID == "" {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Exec(
		`UPDATE songs
		 SET owner_account_id = ?,
		     owner_guest_id = NULL,
		     updated_at = ?
		 WHERE owner_guest_id IN ?`,
		accountID,
		now,
		guestIDs,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
