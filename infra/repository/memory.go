package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/dto"
	repo "github.com/hopeworks/giving/pkg/repository/donation"
)

// MemoryLedger is an in-process donation ledger for tests and local
// development. It applies the same compare-and-set semantics as the
// Postgres implementation.
type MemoryLedger struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Donation
}

// NewMemoryLedger creates an empty in-process ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[uuid.UUID]*Donation)}
}

var _ repo.Repository = (*MemoryLedger)(nil)

// Create implements donation.Repository.
func (m *MemoryLedger) Create(ctx context.Context, d *donation.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[d.ID] = mapDomainToModel(d)
	return nil
}

// Get implements donation.Repository.
func (m *MemoryLedger) Get(ctx context.Context, id uuid.UUID) (*dto.DonationRead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, donation.ErrNotFound
	}
	return mapModelToReadDTO(row), nil
}

// GetByIntentID implements donation.Repository.
func (m *MemoryLedger) GetByIntentID(ctx context.Context, intentID string) (*dto.DonationRead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.findByIntent(intentID)
	if row == nil {
		return nil, donation.ErrNotFound
	}
	return mapModelToReadDTO(row), nil
}

// GetByChargeID implements donation.Repository.
func (m *MemoryLedger) GetByChargeID(ctx context.Context, chargeID string) (*dto.DonationRead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chargeID != "" {
		for _, row := range m.rows {
			if row.ChargeID == chargeID {
				return mapModelToReadDTO(row), nil
			}
		}
	}
	return nil, donation.ErrNotFound
}

// SetIntent implements donation.Repository.
func (m *MemoryLedger) SetIntent(ctx context.Context, id uuid.UUID, intentID, customerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.Status != string(donation.StatusPending) || row.PaymentIntentID != "" {
		return false, nil
	}
	now := time.Now().UTC()
	row.PaymentIntentID = intentID
	row.CustomerID = customerID
	row.Status = string(donation.StatusProcessing)
	row.ProcessedAt = &now
	row.UpdatedAt = now
	return true, nil
}

// TransitionStatus implements donation.Repository.
func (m *MemoryLedger) TransitionStatus(
	ctx context.Context,
	intentID string,
	from []donation.Status,
	to donation.Status,
	patch dto.StatusPatch,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.findByIntent(intentID)
	if row == nil {
		return false, nil
	}
	return m.transition(row, from, to, patch), nil
}

// TransitionByID implements donation.Repository.
func (m *MemoryLedger) TransitionByID(
	ctx context.Context,
	id uuid.UUID,
	from []donation.Status,
	to donation.Status,
	patch dto.StatusPatch,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	return m.transition(row, from, to, patch), nil
}

// MarkError implements donation.Repository.
func (m *MemoryLedger) MarkError(ctx context.Context, id uuid.UUID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok {
		row.RetryCount++
		row.LastError = msg
		row.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// DeactivateRecurring implements donation.Repository.
func (m *MemoryLedger) DeactivateRecurring(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok && row.RecurringActive {
		now := time.Now().UTC()
		row.RecurringActive = false
		row.RecurringCancelledAt = &now
		row.UpdatedAt = now
	}
	return nil
}

// Stats implements donation.Repository.
func (m *MemoryLedger) Stats(ctx context.Context) (*dto.DonationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &dto.DonationStats{ByCategory: make(map[string]int64)}
	for _, row := range m.rows {
		switch donation.Status(row.Status) {
		case donation.StatusCompleted:
			stats.CompletedCount++
			stats.TotalCompletedMinor += row.Amount
			stats.ByCategory[row.Category] += row.Amount
		case donation.StatusFailed:
			stats.FailedCount++
		case donation.StatusPending, donation.StatusProcessing:
			stats.PendingCount++
		case donation.StatusRefunded:
			stats.RefundedCount++
		}
	}
	return stats, nil
}

// Recent implements donation.Repository.
func (m *MemoryLedger) Recent(ctx context.Context, limit int) ([]dto.DonationRead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var completed []*Donation
	for _, row := range m.rows {
		if row.Status == string(donation.StatusCompleted) {
			completed = append(completed, row)
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		return completed[i].CreatedAt.After(completed[j].CreatedAt)
	})
	if len(completed) > limit {
		completed = completed[:limit]
	}
	out := make([]dto.DonationRead, 0, len(completed))
	for _, row := range completed {
		out = append(out, *mapModelToReadDTO(row))
	}
	return out, nil
}

func (m *MemoryLedger) findByIntent(intentID string) *Donation {
	for _, row := range m.rows {
		if row.PaymentIntentID == intentID && intentID != "" {
			return row
		}
	}
	return nil
}

func (m *MemoryLedger) transition(
	row *Donation,
	from []donation.Status,
	to donation.Status,
	patch dto.StatusPatch,
) bool {
	allowed := false
	for _, s := range from {
		if row.Status == string(s) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	row.Status = string(to)
	row.UpdatedAt = time.Now().UTC()
	if patch.ChargeID != nil {
		row.ChargeID = *patch.ChargeID
	}
	if patch.CustomerID != nil {
		row.CustomerID = *patch.CustomerID
	}
	if patch.LastError != nil {
		row.LastError = *patch.LastError
	}
	if patch.PaidAt != nil {
		row.PaidAt = patch.PaidAt
	}
	if patch.ProcessedAt != nil {
		row.ProcessedAt = patch.ProcessedAt
	}
	return true
}
