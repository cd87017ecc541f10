// Package domain contains the song ownership model. The core mutates songs
// only to reassign guest-owned rows to an account at merge time.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Song is the externally-owned generated-song entity. Exactly one of
// OwnerAccountID / OwnerGuestID is non-null before a merge; after a merge the
// account id is set and the guest id cleared.
type Song struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	Title          string       `gorm:"type:text;not null"`
	OwnerAccountID *string      `gorm:"type:text;index"`
	OwnerGuestID   *string      `gorm:"type:text;index"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Song) TableName() string { return "songs" }
