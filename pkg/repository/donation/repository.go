// Package donation declares the ledger port. The GORM implementation lives
// in infra/repository.
package donation

import (
	"context"

	"github.com/google/uuid"
	"github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/dto"
)

// Repository is the donation ledger. Rows are append-and-advance only;
// nothing is ever deleted.
//
// Every status-changing method is a compare-and-set: the transition is
// applied only when the row's current status is in the allowed predecessor
// set, and the boolean result reports whether a row was actually updated.
// A false result is not an error; for webhook application it means the
// event was already applied or arrived out of order.
type Repository interface {
	// Create inserts a new pending donation row.
	Create(ctx context.Context, d *donation.Donation) error

	// Get returns a donation by its ledger ID.
	Get(ctx context.Context, id uuid.UUID) (*dto.DonationRead, error)

	// GetByIntentID returns the donation holding the given gateway payment
	// intent reference, or donation.ErrNotFound.
	GetByIntentID(ctx context.Context, intentID string) (*dto.DonationRead, error)

	// GetByChargeID returns the donation holding the given gateway charge
	// reference, or donation.ErrNotFound. Charge events do not always carry
	// an intent reference.
	GetByChargeID(ctx context.Context, chargeID string) (*dto.DonationRead, error)

	// SetIntent stores the gateway references on a pending row and advances
	// it to processing. The intent column is write-once: rows that already
	// carry an intent, or are no longer pending, are left untouched.
	SetIntent(ctx context.Context, id uuid.UUID, intentID, customerID string) (bool, error)

	// TransitionStatus applies from→to on the row identified by gateway
	// intent ID, persisting the patch in the same statement.
	TransitionStatus(
		ctx context.Context,
		intentID string,
		from []donation.Status,
		to donation.Status,
		patch dto.StatusPatch,
	) (bool, error)

	// TransitionByID is TransitionStatus keyed by ledger ID, used by the
	// explicit refund and cancel operations.
	TransitionByID(
		ctx context.Context,
		id uuid.UUID,
		from []donation.Status,
		to donation.Status,
		patch dto.StatusPatch,
	) (bool, error)

	// MarkError records a gateway failure on the row: increments the retry
	// count and stores the message without changing status.
	MarkError(ctx context.Context, id uuid.UUID, msg string) error

	// DeactivateRecurring stops a recurring schedule.
	DeactivateRecurring(ctx context.Context, id uuid.UUID) error

	// Stats aggregates completed totals and per-status counts.
	Stats(ctx context.Context) (*dto.DonationStats, error)

	// Recent lists the newest completed donations, newest first.
	Recent(ctx context.Context, limit int) ([]dto.DonationRead, error)
}
