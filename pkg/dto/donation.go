// Package dto defines flat data-transfer shapes exchanged between the
// service layer and the persistence layer.
package dto

import (
	"time"

	"github.com/google/uuid"
)

// DonationRead is the persistence-layer view of a donation row.
type DonationRead struct {
	ID         uuid.UUID
	Amount     int64
	Currency   string
	DonorEmail string
	DonorName  string
	DonorPhone string
	Message    string
	Anonymous  bool
	Kind       string
	Category   string
	Status     string

	SessionID       string
	PaymentIntentID string
	CustomerID      string
	ChargeID        string
	PriceID         string
	SubscriptionID  string

	RecurringFrequency   string
	RecurringNextDue     *time.Time
	RecurringActive      bool
	RecurringCancelledAt *time.Time

	RetryCount int
	LastError  string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
	PaidAt      *time.Time
}

// StatusPatch carries the gateway-reported fields persisted alongside a
// status transition. Nil fields are left untouched.
type StatusPatch struct {
	ChargeID    *string
	CustomerID  *string
	LastError   *string
	PaidAt      *time.Time
	ProcessedAt *time.Time
}

// DonationStats is the aggregate view served by the stats endpoint.
// Amounts are integer minor units.
type DonationStats struct {
	TotalCompletedMinor int64
	CompletedCount      int64
	FailedCount         int64
	PendingCount        int64
	RefundedCount       int64
	ByCategory          map[string]int64
}
