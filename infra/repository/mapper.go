package repository

import (
	"github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/dto"
)

func mapDomainToModel(d *donation.Donation) *Donation {
	row := &Donation{
		ID:         d.ID,
		Amount:     d.Amount.Amount(),
		Currency:   string(d.Amount.Currency()),
		DonorEmail: d.DonorEmail,
		DonorName:  d.DonorName,
		DonorPhone: d.DonorPhone,
		Message:    d.Message,
		Anonymous:  d.Anonymous,
		Kind:       string(d.Kind),
		Category:   string(d.Category),
		Status:     string(d.Status),

		SessionID:       d.Gateway.SessionID,
		PaymentIntentID: d.Gateway.PaymentIntentID,
		CustomerID:      d.Gateway.CustomerID,
		ChargeID:        d.Gateway.ChargeID,
		PriceID:         d.Gateway.PriceID,
		SubscriptionID:  d.Gateway.SubscriptionID,

		RetryCount: d.RetryCount,
		LastError:  d.LastError,

		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		ProcessedAt: d.ProcessedAt,
		PaidAt:      d.PaidAt,
	}
	if d.Recurring != nil {
		row.RecurringFrequency = string(d.Recurring.Frequency)
		nextDue := d.Recurring.NextDueDate
		row.RecurringNextDue = &nextDue
		row.RecurringActive = d.Recurring.Active
		row.RecurringCancelledAt = d.Recurring.CancelledAt
	}
	return row
}

func mapModelToReadDTO(row *Donation) *dto.DonationRead {
	return &dto.DonationRead{
		ID:         row.ID,
		Amount:     row.Amount,
		Currency:   row.Currency,
		DonorEmail: row.DonorEmail,
		DonorName:  row.DonorName,
		DonorPhone: row.DonorPhone,
		Message:    row.Message,
		Anonymous:  row.Anonymous,
		Kind:       row.Kind,
		Category:   row.Category,
		Status:     row.Status,

		SessionID:       row.SessionID,
		PaymentIntentID: row.PaymentIntentID,
		CustomerID:      row.CustomerID,
		ChargeID:        row.ChargeID,
		PriceID:         row.PriceID,
		SubscriptionID:  row.SubscriptionID,

		RecurringFrequency:   row.RecurringFrequency,
		RecurringNextDue:     row.RecurringNextDue,
		RecurringActive:      row.RecurringActive,
		RecurringCancelledAt: row.RecurringCancelledAt,

		RetryCount: row.RetryCount,
		LastError:  row.LastError,

		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		ProcessedAt: row.ProcessedAt,
		PaidAt:      row.PaidAt,
	}
}
