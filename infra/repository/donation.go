package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/dto"
	repo "github.com/hopeworks/giving/pkg/repository/donation"
)

type donationRepository struct {
	db *gorm.DB
}

// New creates the GORM-backed donation ledger.
func New(db *gorm.DB) repo.Repository {
	return &donationRepository{db: db}
}

// Create implements donation.Repository.
func (r *donationRepository) Create(ctx context.Context, d *donation.Donation) error {
	row := mapDomainToModel(d)
	return r.db.WithContext(ctx).Create(row).Error
}

// Get implements donation.Repository.
func (r *donationRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*dto.DonationRead, error) {
	var row Donation
	if err := r.db.WithContext(
		ctx,
	).First(
		&row,
		"id = ?",
		id,
	).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return mapModelToReadDTO(&row), nil
}

// GetByIntentID implements donation.Repository.
func (r *donationRepository) GetByIntentID(
	ctx context.Context,
	intentID string,
) (*dto.DonationRead, error) {
	var row Donation
	if err := r.db.WithContext(
		ctx,
	).Where(
		"payment_intent_id = ?",
		intentID,
	).First(
		&row,
	).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return mapModelToReadDTO(&row), nil
}

// GetByChargeID implements donation.Repository.
func (r *donationRepository) GetByChargeID(
	ctx context.Context,
	chargeID string,
) (*dto.DonationRead, error) {
	var row Donation
	if err := r.db.WithContext(
		ctx,
	).Where(
		"charge_id = ?",
		chargeID,
	).First(
		&row,
	).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return mapModelToReadDTO(&row), nil
}

// SetIntent implements donation.Repository. The WHERE clause is the
// write-once guard: only a pending row with an empty intent column takes
// the update.
func (r *donationRepository) SetIntent(
	ctx context.Context,
	id uuid.UUID,
	intentID, customerID string,
) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(
		ctx,
	).Model(
		&Donation{},
	).Where(
		"id = ? AND status = ? AND payment_intent_id = ''",
		id,
		donation.StatusPending,
	).Updates(map[string]any{
		"payment_intent_id": intentID,
		"customer_id":       customerID,
		"status":            donation.StatusProcessing,
		"processed_at":      now,
		"updated_at":        now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TransitionStatus implements donation.Repository. The status predicate
// makes the update a compare-and-set, so two racing webhook deliveries for
// the same event cannot both apply it.
func (r *donationRepository) TransitionStatus(
	ctx context.Context,
	intentID string,
	from []donation.Status,
	to donation.Status,
	patch dto.StatusPatch,
) (bool, error) {
	res := r.db.WithContext(
		ctx,
	).Model(
		&Donation{},
	).Where(
		"payment_intent_id = ? AND status IN ?",
		intentID,
		statusStrings(from),
	).Updates(
		patchToUpdates(to, patch),
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TransitionByID implements donation.Repository.
func (r *donationRepository) TransitionByID(
	ctx context.Context,
	id uuid.UUID,
	from []donation.Status,
	to donation.Status,
	patch dto.StatusPatch,
) (bool, error) {
	res := r.db.WithContext(
		ctx,
	).Model(
		&Donation{},
	).Where(
		"id = ? AND status IN ?",
		id,
		statusStrings(from),
	).Updates(
		patchToUpdates(to, patch),
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkError implements donation.Repository.
func (r *donationRepository) MarkError(
	ctx context.Context,
	id uuid.UUID,
	msg string,
) error {
	return r.db.WithContext(
		ctx,
	).Model(
		&Donation{},
	).Where(
		"id = ?",
		id,
	).Updates(map[string]any{
		"retry_count": gorm.Expr("retry_count + 1"),
		"last_error":  msg,
		"updated_at":  time.Now().UTC(),
	}).Error
}

// DeactivateRecurring implements donation.Repository.
func (r *donationRepository) DeactivateRecurring(
	ctx context.Context,
	id uuid.UUID,
) error {
	now := time.Now().UTC()
	return r.db.WithContext(
		ctx,
	).Model(
		&Donation{},
	).Where(
		"id = ? AND recurring_active = true",
		id,
	).Updates(map[string]any{
		"recurring_active":       false,
		"recurring_cancelled_at": now,
		"updated_at":             now,
	}).Error
}

// Stats implements donation.Repository.
func (r *donationRepository) Stats(ctx context.Context) (*dto.DonationStats, error) {
	stats := &dto.DonationStats{ByCategory: make(map[string]int64)}

	type statusCount struct {
		Status string
		Count  int64
		Total  int64
	}
	var byStatus []statusCount
	if err := r.db.WithContext(
		ctx,
	).Model(
		&Donation{},
	).Select(
		"status, count(*) as count, coalesce(sum(amount), 0) as total",
	).Group(
		"status",
	).Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, sc := range byStatus {
		switch donation.Status(sc.Status) {
		case donation.StatusCompleted:
			stats.CompletedCount = sc.Count
			stats.TotalCompletedMinor = sc.Total
		case donation.StatusFailed:
			stats.FailedCount = sc.Count
		case donation.StatusPending, donation.StatusProcessing:
			stats.PendingCount += sc.Count
		case donation.StatusRefunded:
			stats.RefundedCount = sc.Count
		}
	}

	type categoryTotal struct {
		Category string
		Total    int64
	}
	var byCategory []categoryTotal
	if err := r.db.WithContext(
		ctx,
	).Model(
		&Donation{},
	).Select(
		"category, coalesce(sum(amount), 0) as total",
	).Where(
		"status = ?",
		donation.StatusCompleted,
	).Group(
		"category",
	).Scan(&byCategory).Error; err != nil {
		return nil, err
	}
	for _, ct := range byCategory {
		stats.ByCategory[ct.Category] = ct.Total
	}
	return stats, nil
}

// Recent implements donation.Repository.
func (r *donationRepository) Recent(
	ctx context.Context,
	limit int,
) ([]dto.DonationRead, error) {
	var rows []Donation
	if err := r.db.WithContext(
		ctx,
	).Where(
		"status = ?",
		donation.StatusCompleted,
	).Order(
		"created_at DESC",
	).Limit(
		limit,
	).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]dto.DonationRead, 0, len(rows))
	for i := range rows {
		out = append(out, *mapModelToReadDTO(&rows[i]))
	}
	return out, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return donation.ErrNotFound
	}
	return err
}

func statusStrings(states []donation.Status) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func patchToUpdates(to donation.Status, patch dto.StatusPatch) map[string]any {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": time.Now().UTC(),
	}
	if patch.ChargeID != nil {
		updates["charge_id"] = *patch.ChargeID
	}
	if patch.CustomerID != nil {
		updates["customer_id"] = *patch.CustomerID
	}
	if patch.LastError != nil {
		updates["last_error"] = *patch.LastError
	}
	if patch.PaidAt != nil {
		updates["paid_at"] = *patch.PaidAt
	}
	if patch.ProcessedAt != nil {
		updates["processed_at"] = *patch.ProcessedAt
	}
	return updates
}
