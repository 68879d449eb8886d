// Package donation implements the payment intent orchestrator: it owns
// donation creation, explicit refund/cancel, and the public read queries.
package donation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hopeworks/giving/config"
	"github.com/hopeworks/giving/pkg/audit"
	domain "github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/dto"
	"github.com/hopeworks/giving/pkg/money"
	"github.com/hopeworks/giving/pkg/provider"
	repo "github.com/hopeworks/giving/pkg/repository/donation"
	"github.com/hopeworks/giving/pkg/validation"
)

// Service orchestrates the donation payment lifecycle.
type Service struct {
	repo        repo.Repository
	gateway     provider.PaymentGateway
	audit       *audit.Logger
	beneficiary config.Beneficiary
	logger      *slog.Logger
}

// NewService wires the orchestrator.
func NewService(
	r repo.Repository,
	gateway provider.PaymentGateway,
	auditLog *audit.Logger,
	beneficiary config.Beneficiary,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        r,
		gateway:     gateway,
		audit:       auditLog,
		beneficiary: beneficiary,
		logger:      logger,
	}
}

// CreateIntentRequest is the donation request accepted from a client.
// Amounts are integer minor currency units.
type CreateIntentRequest struct {
	AmountMinor  int64
	Currency     string
	DonorEmail   string
	DonorName    string
	DonorPhone   string
	Message      string
	Anonymous    bool
	Category     string
	WantsReceipt bool

	// Frequency, when set, makes this a recurring donation billed on the
	// given cadence. Empty means a one-off gift.
	Frequency string
}

// ValidationError carries the aggregated field violations of a rejected
// request.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Result.Errors, "; ")
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

// BeneficiaryInfo is the recipient display view. Account is already masked.
type BeneficiaryInfo struct {
	Name          string
	MaskedAccount string
	Bank          string
}

// IntentResult is returned to the client after a successful orchestration.
type IntentResult struct {
	DonationID   uuid.UUID
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Beneficiary  BeneficiaryInfo
}

// CreateIntent validates the request, writes the pending ledger row, opens
// the gateway intent and advances the row to processing.
//
// The ledger row is written before the gateway call; the donation ID doubles
// as the gateway idempotency key, so a retried orchestration after a crash
// or timeout converges on the same intent instead of charging twice. When
// the gateway call fails the row stays pending with the error recorded for
// later reconciliation.
func (s *Service) CreateIntent(
	ctx context.Context,
	req CreateIntentRequest,
) (*IntentResult, error) {
	log := s.logger.With(
		"handler", "donation.CreateIntent",
		"amount", req.AmountMinor,
		"currency", req.Currency,
	)

	req.DonorName = validation.Sanitize(req.DonorName)
	req.Message = validation.Sanitize(req.Message)

	result := validation.ValidateDonationRequest(validation.DonationRequest{
		AmountMinor: req.AmountMinor,
		Email:       req.DonorEmail,
		Name:        req.DonorName,
		Phone:       req.DonorPhone,
		Message:     req.Message,
		Category:    req.Category,
		Frequency:   req.Frequency,
	})
	if !result.Valid {
		log.Warn("donation request rejected", "errors", result.Errors)
		return nil, &ValidationError{Result: result}
	}

	amount, err := money.NewFromMinor(req.AmountMinor, money.Code(strings.ToUpper(req.Currency)))
	if err != nil {
		return nil, &ValidationError{Result: validation.Result{
			Valid:  false,
			Errors: []string{err.Error()},
		}}
	}

	category := domain.Category(req.Category)
	if req.Category == "" {
		category = domain.CategoryGeneral
	}

	var d *domain.Donation
	if req.Frequency != "" {
		freq := domain.Frequency(req.Frequency)
		d, err = domain.NewRecurring(
			amount, req.DonorEmail, req.DonorName, category,
			freq, freq.Next(time.Now().UTC()),
		)
	} else {
		d, err = domain.New(amount, req.DonorEmail, req.DonorName, domain.KindSingle, category)
	}
	if err != nil {
		return nil, err
	}
	d.DonorPhone = req.DonorPhone
	d.Message = req.Message
	d.Anonymous = req.Anonymous

	if err := s.repo.Create(ctx, d); err != nil {
		log.Error("failed to persist donation", "error", err)
		return nil, fmt.Errorf("creating donation: %w", err)
	}
	s.auditRecord(audit.Entry{
		Event:       audit.EventDonationCreated,
		DonationID:  d.ID.String(),
		AmountMinor: amount.Amount(),
		Currency:    amount.Currency().String(),
		Detail:      string(category),
	})
	log = log.With("donation_id", d.ID)

	receiptEmail := ""
	if req.WantsReceipt {
		receiptEmail = req.DonorEmail
	}
	intent, err := s.gateway.CreateIntent(ctx, &provider.CreateIntentParams{
		AmountMinor:    amount.Amount(),
		Currency:       strings.ToLower(amount.Currency().String()),
		IdempotencyKey: d.ID.String(),
		ReceiptEmail:   receiptEmail,
		Metadata: map[string]string{
			"donation_id": d.ID.String(),
			"email":       req.DonorEmail,
			"name":        req.DonorName,
			"category":    string(category),
		},
	})
	if err != nil {
		log.Error("gateway intent creation failed", "error", err)
		if markErr := s.repo.MarkError(ctx, d.ID, err.Error()); markErr != nil {
			log.Error("failed to record gateway error", "error", markErr)
		}
		s.auditRecord(audit.Entry{
			Event:      audit.EventPaymentError,
			DonationID: d.ID.String(),
			Detail:     err.Error(),
		})
		return nil, err
	}

	applied, err := s.repo.SetIntent(ctx, d.ID, intent.ID, intent.CustomerID)
	if err != nil {
		log.Error("failed to store gateway intent", "error", err)
		return nil, fmt.Errorf("storing gateway intent: %w", err)
	}
	if !applied {
		// A concurrent retry already attached an intent to this row; the
		// idempotency key guarantees it is the same one.
		log.Warn("intent already attached", "payment_intent_id", intent.ID)
	}
	s.auditRecord(audit.Entry{
		Event:       audit.EventIntentCreated,
		DonationID:  d.ID.String(),
		IntentID:    intent.ID,
		AmountMinor: amount.Amount(),
		Currency:    amount.Currency().String(),
	})

	log.Info("🤲 Donation intent created", "payment_intent_id", intent.ID)
	return &IntentResult{
		DonationID:   d.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  amount.Amount(),
		Currency:     amount.Currency().String(),
		Beneficiary:  s.Beneficiary(),
	}, nil
}

// Confirm looks up a donation by gateway intent ID and, when the gateway
// reports the intent as succeeded while the ledger still shows processing,
// applies the completed transition through the same compare-and-set path
// the webhook reconciler uses.
func (s *Service) Confirm(
	ctx context.Context,
	intentID string,
) (*dto.DonationRead, error) {
	log := s.logger.With(
		"handler", "donation.Confirm",
		"payment_intent_id", intentID,
	)

	d, err := s.repo.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		log.Error("failed to retrieve intent", "error", err)
		return nil, err
	}

	if intent.Status == provider.IntentSucceeded &&
		domain.Status(d.Status) == domain.StatusProcessing {
		now := time.Now().UTC()
		applied, err := s.repo.TransitionStatus(
			ctx,
			intentID,
			domain.Predecessors(domain.StatusCompleted),
			domain.StatusCompleted,
			dto.StatusPatch{PaidAt: &now},
		)
		if err != nil {
			return nil, err
		}
		if applied {
			s.auditRecord(audit.Entry{
				Event:       audit.EventPaymentConfirmed,
				DonationID:  d.ID.String(),
				IntentID:    intentID,
				AmountMinor: d.Amount,
				Currency:    d.Currency,
			})
			log.Info("✅ Donation confirmed")
		}
		return s.repo.GetByIntentID(ctx, intentID)
	}
	return d, nil
}

// Refund reverses a completed donation through the gateway and advances the
// ledger row to refunded.
func (s *Service) Refund(ctx context.Context, id uuid.UUID) (*dto.DonationRead, error) {
	log := s.logger.With("handler", "donation.Refund", "donation_id", id)

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.Status(d.Status).CanTransitionTo(domain.StatusRefunded) {
		return nil, fmt.Errorf(
			"%w: cannot refund donation in status %s",
			domain.ErrInvalidTransition, d.Status,
		)
	}

	if _, err := s.gateway.CreateRefund(ctx, &provider.RefundParams{
		PaymentIntentID: d.PaymentIntentID,
	}); err != nil {
		log.Error("gateway refund failed", "error", err)
		s.auditRecord(audit.Entry{
			Event:      audit.EventPaymentError,
			DonationID: id.String(),
			IntentID:   d.PaymentIntentID,
			Detail:     err.Error(),
		})
		return nil, err
	}

	applied, err := s.repo.TransitionByID(
		ctx,
		id,
		domain.Predecessors(domain.StatusRefunded),
		domain.StatusRefunded,
		dto.StatusPatch{},
	)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.Warn("refund transition raced with another update")
	}
	log.Info("↩️ Donation refunded")
	return s.repo.Get(ctx, id)
}

// Cancel explicitly cancels an in-flight donation. Only pending and
// processing rows can be cancelled; webhooks never cancel. For recurring
// donations the schedule is deactivated as well.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*dto.DonationRead, error) {
	log := s.logger.With("handler", "donation.Cancel", "donation_id", id)

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.TransitionByID(
		ctx,
		id,
		domain.Predecessors(domain.StatusCancelled),
		domain.StatusCancelled,
		dto.StatusPatch{},
	)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf(
			"%w: cannot cancel donation in status %s",
			domain.ErrInvalidTransition, d.Status,
		)
	}
	if domain.Kind(d.Kind) == domain.KindRecurring {
		if err := s.repo.DeactivateRecurring(ctx, id); err != nil {
			log.Error("failed to deactivate recurring schedule", "error", err)
		}
	}
	log.Info("🚫 Donation cancelled")
	return s.repo.Get(ctx, id)
}

// Stats returns the aggregate donation totals.
func (s *Service) Stats(ctx context.Context) (*dto.DonationStats, error) {
	return s.repo.Stats(ctx)
}

// MaxRecentLimit bounds the public recent-donations listing.
const MaxRecentLimit = 50

// Recent lists recently completed donations for public display. Donors who
// asked for anonymity are listed as "Anonymous".
func (s *Service) Recent(ctx context.Context, limit int) ([]dto.DonationRead, error) {
	if limit <= 0 || limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	rows, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Anonymous {
			rows[i].DonorName = "Anonymous"
		}
		// Contact details never leave the service on public surfaces.
		rows[i].DonorEmail = ""
		rows[i].DonorPhone = ""
	}
	return rows, nil
}

// Beneficiary returns the recipient display info with the account number
// masked to its last four characters.
func (s *Service) Beneficiary() BeneficiaryInfo {
	return BeneficiaryInfo{
		Name:          s.beneficiary.Name,
		MaskedAccount: MaskAccount(s.beneficiary.Account),
		Bank:          s.beneficiary.Bank,
	}
}

// MaskAccount hides all but the last four characters of an account number.
func MaskAccount(account string) string {
	if len(account) <= 4 {
		return strings.Repeat("*", len(account))
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}

func (s *Service) auditRecord(e audit.Entry) {
	if err := s.audit.Record(e); err != nil {
		s.logger.Error("failed to write audit record", "error", err, "event", e.Event)
	}
}
