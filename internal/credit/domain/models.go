// Package domain contains persistence models and contracts for the credit ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status mirrors the payment processor's view of a charge.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// CreditTransaction is one purchased-credit transaction. Rows are never
// deleted; available_credits only ever decreases, and consumed_at is set
// exactly once, on the decrement that reaches zero.
type CreditTransaction struct {
	ID               snowflake.ID   `gorm:"primaryKey"`
	Provider         string         `gorm:"type:text;not null;uniqueIndex:ux_credit_transactions_provider_tx,priority:1"`
	ProviderTxID     string         `gorm:"type:text;not null;uniqueIndex:ux_credit_transactions_provider_tx,priority:2"`
	OwnerRef         string         `gorm:"type:text;not null;index"`
	AvailableCredits int            `gorm:"not null"`
	ConsumedAt       *time.Time     `gorm:""`
	Status           Status         `gorm:"type:text;not null"`
	Payload          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// Spendable reports whether the gate may authorize a paid creation against
// this transaction.
func (t CreditTransaction) Spendable() bool {
	return t.Status == StatusSucceeded && t.AvailableCredits > 0 && t.ConsumedAt == nil
}
