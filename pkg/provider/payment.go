// Package provider defines the payment gateway port. The concrete gateway
// (Stripe) lives in infra/provider; everything above this interface is
// gateway-agnostic.
package provider

import (
	"context"
)

// CreateIntentParams carries everything needed to open a payment intent.
// IdempotencyKey makes a retried orchestration safe to repeat: the gateway
// returns the original intent instead of opening a second one.
type CreateIntentParams struct {
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	ReceiptEmail   string
	Metadata       map[string]string
}

// Intent is the gateway-side payment attempt.
type Intent struct {
	ID           string
	ClientSecret string
	CustomerID   string
	Status       IntentStatus
}

// IntentStatus is the gateway's view of an intent.
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentSucceeded IntentStatus = "succeeded"
	IntentFailed    IntentStatus = "failed"
	IntentCanceled  IntentStatus = "canceled"
)

// RefundParams identifies the payment to reverse.
type RefundParams struct {
	PaymentIntentID string
	Reason          string
}

// Refund is the gateway's record of a reversal.
type Refund struct {
	ID          string
	AmountMinor int64
	Status      string
}

// EventKind is a normalized webhook event type.
type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventRefunded         EventKind = "refunded"
	// EventIgnored marks event types this system does not act on. They are
	// acknowledged so the gateway stops redelivering them.
	EventIgnored EventKind = "ignored"
)

// WebhookEvent is a verified, normalized gateway notification.
type WebhookEvent struct {
	ID              string
	Kind            EventKind
	PaymentIntentID string
	ChargeID        string
	AmountMinor     int64
	Currency        string
	FailureMessage  string
}

// PaymentGateway is the external collaborator wrapper. Implementations must
// honor context deadlines on every outbound call.
type PaymentGateway interface {
	// CreateIntent opens a payment intent for the given amount.
	CreateIntent(ctx context.Context, params *CreateIntentParams) (*Intent, error)
	// RetrieveIntent fetches the gateway's current view of an intent.
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	// VerifyWebhook checks the payload signature against the shared signing
	// secret and normalizes the event. Returns ErrSignature when the
	// signature does not verify.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
	// CreateRefund reverses a completed payment.
	CreateRefund(ctx context.Context, params *RefundParams) (*Refund, error)
}
