// Package repository implements the donation ledger on GORM/Postgres.
package repository

import (
	"time"

	"github.com/google/uuid"
)

// Donation represents a donation row in the database. Money columns are
// integer minor units. The payment intent column carries a partial unique
// index: at most one row may hold a given gateway intent.
type Donation struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Amount     int64     `gorm:"not null"`
	Currency   string    `gorm:"type:varchar(3);not null"`
	DonorEmail string    `gorm:"size:255;not null"`
	DonorName  string    `gorm:"size:100;not null"`
	DonorPhone string    `gorm:"size:32"`
	Message    string    `gorm:"size:500"`
	Anonymous  bool      `gorm:"not null;default:false"`
	Kind       string    `gorm:"size:20;not null;default:'single';index"`
	Category   string    `gorm:"size:20;not null;default:'general';index"`
	Status     string    `gorm:"size:20;not null;default:'pending';index"`

	SessionID       string `gorm:"size:255"`
	PaymentIntentID string `gorm:"size:255;index:idx_donations_intent,unique,where:payment_intent_id <> ''"`
	CustomerID      string `gorm:"size:255"`
	ChargeID        string `gorm:"size:255"`
	PriceID         string `gorm:"size:255"`
	SubscriptionID  string `gorm:"size:255"`

	RecurringFrequency   string     `gorm:"size:20"`
	RecurringNextDue     *time.Time ``
	RecurringActive      bool       `gorm:"not null;default:false"`
	RecurringCancelledAt *time.Time ``

	RetryCount int    `gorm:"not null;default:0"`
	LastError  string `gorm:"size:1024"`

	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	ProcessedAt *time.Time
	PaidAt      *time.Time
}
