// Package reconcile folds asynchronous gateway webhooks into the donation
// ledger. Delivery is at-least-once and may be duplicated or out of order,
// so every application is an idempotent compare-and-set: replays and
// off-graph transitions are acknowledged without mutation.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hopeworks/giving/pkg/audit"
	domain "github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/dto"
	"github.com/hopeworks/giving/pkg/provider"
	repo "github.com/hopeworks/giving/pkg/repository/donation"
)

// Service applies verified webhook events to the ledger.
type Service struct {
	repo    repo.Repository
	gateway provider.PaymentGateway
	audit   *audit.Logger
	logger  *slog.Logger
}

// NewService wires the reconciler.
func NewService(
	r repo.Repository,
	gateway provider.PaymentGateway,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *Service {
	return &Service{repo: r, gateway: gateway, audit: auditLog, logger: logger}
}

// HandleWebhook verifies and applies one webhook delivery.
//
// Only a signature failure is returned to the caller (the sender must see
// it and may retry: a bad signature can be a transient configuration
// problem). Every failure after verification is absorbed: redelivering the
// same payload cannot fix an internal fault, so the delivery is
// acknowledged and the failure routed to the audit trail for manual
// follow-up.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	log := s.logger.With("handler", "reconcile.HandleWebhook")

	event, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, provider.ErrSignature) {
			return err
		}
		// Verified but unparseable payloads are absorbed like any other
		// post-verification fault.
		log.Error("webhook normalization failed", "error", err)
		s.auditRecord(audit.Entry{
			Event:  audit.EventPaymentError,
			Detail: err.Error(),
		})
		return nil
	}
	log = log.With("event_id", event.ID, "event_kind", event.Kind)

	s.auditRecord(audit.Entry{
		Event:       audit.EventWebhookReceived,
		IntentID:    event.PaymentIntentID,
		AmountMinor: event.AmountMinor,
		Currency:    event.Currency,
		Detail:      string(event.Kind),
	})

	if event.Kind == provider.EventIgnored {
		return nil
	}
	if event.PaymentIntentID == "" && event.ChargeID == "" {
		log.Info("webhook carries no gateway reference, acknowledging")
		return nil
	}

	if err := s.apply(ctx, event, log); err != nil {
		log.Error("webhook application failed", "error", err)
		s.auditRecord(audit.Entry{
			Event:    audit.EventPaymentError,
			IntentID: event.PaymentIntentID,
			Detail:   err.Error(),
		})
	}
	return nil
}

func (s *Service) apply(
	ctx context.Context,
	event *provider.WebhookEvent,
	log *slog.Logger,
) error {
	d, err := s.lookup(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Not a donation this system opened. Acknowledge so the
			// gateway stops redelivering.
			log.Info("webhook for unknown payment, acknowledging",
				"payment_intent_id", event.PaymentIntentID,
				"charge_id", event.ChargeID)
			return nil
		}
		return err
	}
	log = log.With("donation_id", d.ID, "status", d.Status)

	now := time.Now().UTC()
	var target domain.Status
	patch := dto.StatusPatch{}

	switch event.Kind {
	case provider.EventPaymentSucceeded:
		target = domain.StatusCompleted
		patch.PaidAt = &now
		if event.ChargeID != "" {
			patch.ChargeID = &event.ChargeID
		}
	case provider.EventPaymentFailed:
		target = domain.StatusFailed
		if event.FailureMessage != "" {
			patch.LastError = &event.FailureMessage
		}
	case provider.EventRefunded:
		target = domain.StatusRefunded
		if event.ChargeID != "" {
			patch.ChargeID = &event.ChargeID
		}
	default:
		return nil
	}
	patch.ProcessedAt = &now

	applied, err := s.repo.TransitionByID(
		ctx,
		d.ID,
		domain.Predecessors(target),
		target,
		patch,
	)
	if err != nil {
		return err
	}
	if !applied {
		// Replay of an already-applied event, or an out-of-order delivery
		// whose predecessor has not landed yet. Either way: no mutation.
		log.Info("transition not applicable, acknowledging", "target", target.String())
		return nil
	}

	if target == domain.StatusCompleted {
		s.auditRecord(audit.Entry{
			Event:       audit.EventPaymentConfirmed,
			DonationID:  d.ID.String(),
			IntentID:    event.PaymentIntentID,
			AmountMinor: d.Amount,
			Currency:    d.Currency,
		})
	}
	log.Info("📥 Webhook applied", "target", target.String())
	return nil
}

// lookup resolves the ledger row for an event by gateway intent ID, falling
// back to the charge ID for charge events whose payload lacks an intent
// reference.
func (s *Service) lookup(
	ctx context.Context,
	event *provider.WebhookEvent,
) (*dto.DonationRead, error) {
	if event.PaymentIntentID != "" {
		d, err := s.repo.GetByIntentID(ctx, event.PaymentIntentID)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return d, err
		}
	}
	if event.ChargeID != "" {
		return s.repo.GetByChargeID(ctx, event.ChargeID)
	}
	return nil, domain.ErrNotFound
}

func (s *Service) auditRecord(e audit.Entry) {
	if err := s.audit.Record(e); err != nil {
		s.logger.Error("failed to write audit record", "error", err, "event", e.Event)
	}
}
