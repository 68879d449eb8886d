// Package provider implements the payment gateway port on Stripe.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/hopeworks/giving/config"
	"github.com/hopeworks/giving/pkg/provider"
)

// StripeGateway implements provider.PaymentGateway using the Stripe API.
type StripeGateway struct {
	client *stripe.Client
	cfg    *config.Stripe
	logger *slog.Logger
}

// NewStripeGateway creates a gateway client from the Stripe configuration.
func NewStripeGateway(cfg *config.Stripe, logger *slog.Logger) *StripeGateway {
	return &StripeGateway{
		client: stripe.NewClient(cfg.ApiKey),
		cfg:    cfg,
		logger: logger,
	}
}

// CreateIntent opens a PaymentIntent. The caller's idempotency key makes a
// retried call return the original intent instead of opening a second one.
func (s *StripeGateway) CreateIntent(
	ctx context.Context,
	params *provider.CreateIntentParams,
) (*provider.Intent, error) {
	log := s.logger.With(
		"handler", "stripe.CreateIntent",
		"amount", params.AmountMinor,
		"currency", params.Currency,
	)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	piParams := &stripe.PaymentIntentCreateParams{
		Amount:       stripe.Int64(params.AmountMinor),
		Currency:     stripe.String(params.Currency),
		ReceiptEmail: stripe.String(params.ReceiptEmail),
		Metadata:     params.Metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if params.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := s.client.V1PaymentIntents.Create(ctx, piParams)
	if err != nil {
		log.Error("failed to create payment intent", "error", err)
		return nil, mapStripeError(err)
	}

	log.Info("💳 Created payment intent", "payment_intent_id", pi.ID)
	return mapIntent(pi), nil
}

// RetrieveIntent fetches Stripe's current view of an intent.
func (s *StripeGateway) RetrieveIntent(
	ctx context.Context,
	intentID string,
) (*provider.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	pi, err := s.client.V1PaymentIntents.Retrieve(ctx, intentID, nil)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return mapIntent(pi), nil
}

// CreateRefund reverses a completed payment.
func (s *StripeGateway) CreateRefund(
	ctx context.Context,
	params *provider.RefundParams,
) (*provider.Refund, error) {
	log := s.logger.With(
		"handler", "stripe.CreateRefund",
		"payment_intent_id", params.PaymentIntentID,
	)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	refundParams := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(params.PaymentIntentID),
	}
	if params.Reason != "" {
		refundParams.Reason = stripe.String(params.Reason)
	}

	refund, err := s.client.V1Refunds.Create(ctx, refundParams)
	if err != nil {
		log.Error("failed to create refund", "error", err)
		return nil, mapStripeError(err)
	}

	log.Info("↩️ Created refund", "refund_id", refund.ID)
	return &provider.Refund{
		ID:          refund.ID,
		AmountMinor: refund.Amount,
		Status:      string(refund.Status),
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the signing
// secret and normalizes the event into the kinds this system acts on.
func (s *StripeGateway) VerifyWebhook(
	payload []byte,
	signature string,
) (*provider.WebhookEvent, error) {
	log := s.logger.With("handler", "stripe.VerifyWebhook")

	event, err := webhook.ConstructEvent(payload, signature, s.cfg.SigningSecret)
	if err != nil {
		log.Error("invalid webhook signature", "error", err)
		return nil, fmt.Errorf("%w: %v", provider.ErrSignature, err)
	}
	log = log.With("event_type", event.Type, "event_id", event.ID)

	switch event.Type {
	case "payment_intent.succeeded":
		return s.normalizeIntentEvent(event, provider.EventPaymentSucceeded, log)
	case "payment_intent.payment_failed":
		return s.normalizeIntentEvent(event, provider.EventPaymentFailed, log)
	case "charge.refunded":
		return s.normalizeChargeEvent(event, provider.EventRefunded, log)
	default:
		log.Info("Unhandled event type")
		return &provider.WebhookEvent{ID: event.ID, Kind: provider.EventIgnored}, nil
	}
}

func (s *StripeGateway) normalizeIntentEvent(
	event stripe.Event,
	kind provider.EventKind,
	log *slog.Logger,
) (*provider.WebhookEvent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Error("parsing payment_intent event", "error", err)
		return nil, fmt.Errorf("error parsing %s: %w", event.Type, err)
	}

	we := &provider.WebhookEvent{
		ID:              event.ID,
		Kind:            kind,
		PaymentIntentID: pi.ID,
		AmountMinor:     pi.Amount,
		Currency:        string(pi.Currency),
	}
	if pi.LatestCharge != nil {
		we.ChargeID = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		we.FailureMessage = pi.LastPaymentError.Msg
	}
	return we, nil
}

func (s *StripeGateway) normalizeChargeEvent(
	event stripe.Event,
	kind provider.EventKind,
	log *slog.Logger,
) (*provider.WebhookEvent, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		log.Error("parsing charge event", "error", err)
		return nil, fmt.Errorf("error parsing %s: %w", event.Type, err)
	}

	we := &provider.WebhookEvent{
		ID:          event.ID,
		Kind:        kind,
		ChargeID:    ch.ID,
		AmountMinor: ch.AmountRefunded,
		Currency:    string(ch.Currency),
	}
	if ch.PaymentIntent != nil {
		we.PaymentIntentID = ch.PaymentIntent.ID
	}
	return we, nil
}

func mapIntent(pi *stripe.PaymentIntent) *provider.Intent {
	intent := &provider.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapIntentStatus(pi.Status),
	}
	if pi.Customer != nil {
		intent.CustomerID = pi.Customer.ID
	}
	return intent
}

func mapIntentStatus(status stripe.PaymentIntentStatus) provider.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return provider.IntentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return provider.IntentCanceled
	default:
		return provider.IntentPending
	}
}

// mapStripeError folds a Stripe API error into the gateway error taxonomy.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}
	switch {
	case stripeErr.HTTPStatusCode == 401:
		return fmt.Errorf("%w: %s", provider.ErrAuth, stripeErr.Msg)
	case stripeErr.HTTPStatusCode == 403:
		return fmt.Errorf("%w: %s", provider.ErrPermission, stripeErr.Msg)
	case stripeErr.HTTPStatusCode == 429 || stripeErr.Code == stripe.ErrorCodeRateLimit:
		return fmt.Errorf("%w: %s", provider.ErrRateLimited, stripeErr.Msg)
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest || stripeErr.Type == stripe.ErrorTypeCard:
		return fmt.Errorf("%w: %s", provider.ErrInvalidRequest, stripeErr.Msg)
	default:
		return err
	}
}
