// Package domain contains persistence models and contracts for usage tracking.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord tracks how many free song creations an identity has consumed.
// A record belongs to an anonymous device, an authenticated account, or both.
// Anonymous records are deleted only after a successful merge into an account
// record; account records are never hard-deleted.
type UsageRecord struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	DeviceID          *string      `gorm:"type:text;uniqueIndex:ux_usage_records_device_id"`
	AccountID         *string      `gorm:"type:text;uniqueIndex:ux_usage_records_account_id"`
	FreeCreationsUsed int          `gorm:"not null;default:0"`
	LastSeenIP        *string      `gorm:"type:text"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }

// IsAnonymous reports whether the record has no account attached.
func (r UsageRecord) IsAnonymous() bool {
	return r.AccountID == nil || *r.AccountID == ""
}
