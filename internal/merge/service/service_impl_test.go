package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/songsmith/songsmith/internal/callerctx"
	"github.com/songsmith/songsmith/internal/clock"
	mergedomain "github.com/songsmith/songsmith/internal/merge/domain"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
	songrepo "github.com/songsmith/songsmith/internal/song/repository"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	usagerepo "github.com/songsmith/songsmith/internal/usage/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mergeFixture struct {
	svc  mergedomain.Service
	db   *gorm.DB
	node *snowflake.Node
	now  time.Time
}

func setupMergeService(t *testing.T) mergeFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:merge_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&usagedomain.UsageRecord{}, &songdomain.Song{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(now),
		UsageRepo: usagerepo.Provide(db),
		SongRepo:  songrepo.Provide(db),
	})
	return mergeFixture{svc: svc, db: db, node: node, now: now}
}

func (f mergeFixture) seedUsage(t *testing.T, deviceID, accountID string, freeUsed int) {
	t.Helper()

	record := usagedomain.UsageRecord{
		ID:                f.node.Generate(),
		FreeCreationsUsed: freeUsed,
		CreatedAt:         f.now,
		UpdatedAt:         f.now,
	}
	if deviceID != "" {
		record.DeviceID = &deviceID
	}
	if accountID != "" {
		record.AccountID = &accountID
	}
	require.NoError(t, f.db.Create(&record).Error)
}

func (f mergeFixture) seedGuestSong(t *testing.T, guestID, title string) {
	t.Helper()

	song := songdomain.Song{
		ID:           f.node.Generate(),
		Title:        title,
		OwnerGuestID: &guestID,
		CreatedAt:    f.now,
		UpdatedAt:    f.now,
	}
	require.NoError(t, f.db.Create(&song).Error)
}

func (f mergeFixture) accountRecord(t *testing.T, accountID string) usagedomain.UsageRecord {
	t.Helper()

	var record usagedomain.UsageRecord
	require.NoError(t, f.db.Where("account_id = ?", accountID).First(&record).Error)
	return record
}

func TestMigrateRequiresAccount(t *testing.T) {
	f := setupMergeService(t)

	_, err := f.svc.Migrate(context.Background(), callerctx.Identity{DeviceIDs: []string{"d1"}})
	assert.ErrorIs(t, err, mergedomain.ErrAccountRequired)
}

func TestMigrateFreshAccountAdoptsDeviceUsage(t *testing.T) {
	f := setupMergeService(t)
	f.seedUsage(t, "d1", "", 1)
	f.seedGuestSong(t, "d1", "My First Song")

	result, err := f.svc.Migrate(context.Background(), callerctx.Identity{
		AccountID: "acc-1",
		DeviceIDs: []string{"d1"},
	})
	require.NoError(t, err)

	// The device's burned free creation follows the person to the account.
	assert.Equal(t, 1, result.FreeCreationsUsed)
	assert.EqualValues(t, 1, result.MigratedSongs)

	account := f.accountRecord(t, "acc-1")
	assert.Equal(t, 1, account.FreeCreationsUsed)

	// The anonymous record is gone; only the account record remains.
	var count int64
	require.NoError(t, f.db.Model(&usagedomain.UsageRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var song songdomain.Song
	require.NoError(t, f.db.First(&song, "title = ?", "My First Song").Error)
	require.NotNil(t, song.OwnerAccountID)
	assert.Equal(t, "acc-1", *song.OwnerAccountID)
	assert.Nil(t, song.OwnerGuestID)
}

func TestMigrateMergesByMaxNotSum(t *testing.T) {
	f := setupMergeService(t)
	f.seedUsage(t, "", "acc-1", 1)
	f.seedUsage(t, "d1", "", 1)
	f.seedUsage(t, "d2", "", 3)

	result, err := f.svc.Migrate(context.Background(), callerctx.Identity{
		AccountID: "acc-1",
		DeviceIDs: []string{"d1", "d2"},
	})
	require.NoError(t, err)

	// 1+1+3 rows for the same person still only ever used 3 free creations.
	assert.Equal(t, 3, result.FreeCreationsUsed)
	assert.Equal(t, 3, f.accountRecord(t, "acc-1").FreeCreationsUsed)
}

func TestMigrateIsIdempotent(t *testing.T) {
	f := setupMergeService(t)
	f.seedUsage(t, "d1", "", 2)
	f.seedGuestSong(t, "d1", "Song A")
	f.seedGuestSong(t, "d1", "Song B")

	identity := callerctx.Identity{AccountID: "acc-1", DeviceIDs: []string{"d1"}}

	first, err := f.svc.Migrate(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, 2, first.FreeCreationsUsed)
	assert.EqualValues(t, 2, first.MigratedSongs)

	for i := 0; i < 3; i++ {
		again, err := f.svc.Migrate(context.Background(), identity)
		require.NoError(t, err)
		// Replays change nothing: same usage, no songs left to move.
		assert.Equal(t, 2, again.FreeCreationsUsed)
		assert.Zero(t, again.MigratedSongs)
	}

	assert.Equal(t, 2, f.accountRecord(t, "acc-1").FreeCreationsUsed)
	var count int64
	require.NoError(t, f.db.Model(&usagedomain.UsageRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMigrateNeverLowersAccountUsage(t *testing.T) {
	f := setupMergeService(t)
	f.seedUsage(t, "", "acc-1", 4)
	f.seedUsage(t, "d1", "", 1)

	result, err := f.svc.Migrate(context.Background(), callerctx.Identity{
		AccountID: "acc-1",
		DeviceIDs: []string{"d1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.FreeCreationsUsed)
	assert.Equal(t, 4, f.accountRecord(t, "acc-1").FreeCreationsUsed)
}

func TestMigrateWithNoDeviceHistory(t *testing.T) {
	f := setupMergeService(t)

	result, err := f.svc.Migrate(context.Background(), callerctx.Identity{
		AccountID: "acc-1",
		DeviceIDs: []string{"d-unseen"},
	})
	require.NoError(t, err)

	assert.Zero(t, result.FreeCreationsUsed)
	assert.Zero(t, result.MigratedSongs)
	assert.Equal(t, 0, f.accountRecord(t, "acc-1").FreeCreationsUsed)
}

func TestMigrateLeavesOtherGuestsAlone(t *testing.T) {
	f := setupMergeService(t)
	f.seedUsage(t, "d1", "", 1)
	f.seedUsage(t, "d-other", "", 1)
	f.seedGuestSong(t, "d-other", "Someone Else's Song")

	_, err := f.svc.Migrate(context.Background(), callerctx.Identity{
		AccountID: "acc-1",
		DeviceIDs: []string{"d1"},
	})
	require.NoError(t, err)

	var record usagedomain.UsageRecord
	require.NoError(t, f.db.Where("device_id = ?", "d-other").First(&record).Error)
	assert.Nil(t, record.AccountID)

	var song songdomain.Song
	require.NoError(t, f.db.First(&song, "title = ?", "Someone Else's Song").Error)
	assert.Nil(t, song.OwnerAccountID)
}
