package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hopeworks/giving/pkg/provider"
)

// MockGateway simulates the payment gateway for tests and local development.
//
// Webhook signatures are compared verbatim against Secret instead of being
// cryptographically verified, and webhook payloads are plain JSON of the
// shape {"type": "payment_intent.succeeded", "payment_intent_id": "..."}.
// NOT for production use.
type MockGateway struct {
	mu      sync.Mutex
	intents map[string]*provider.Intent

	// Secret is the expected webhook signature value.
	Secret string
	// CreateErr, when set, is returned by CreateIntent.
	CreateErr error
	// RefundErr, when set, is returned by CreateRefund.
	RefundErr error

	// CreateCalls counts CreateIntent invocations.
	CreateCalls int
}

// NewMockGateway creates an empty mock gateway.
func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{
		intents: make(map[string]*provider.Intent),
		Secret:  secret,
	}
}

// CreateIntent implements provider.PaymentGateway. The intent ID is derived
// from the idempotency key, so a retried call returns the same intent.
func (m *MockGateway) CreateIntent(
	ctx context.Context,
	params *provider.CreateIntentParams,
) (*provider.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	id := "pi_mock_" + params.IdempotencyKey
	if existing, ok := m.intents[id]; ok {
		return existing, nil
	}
	intent := &provider.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       provider.IntentPending,
	}
	m.intents[id] = intent
	return intent, nil
}

// RetrieveIntent implements provider.PaymentGateway.
func (m *MockGateway) RetrieveIntent(
	ctx context.Context,
	intentID string,
) (*provider.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if intent, ok := m.intents[intentID]; ok {
		return intent, nil
	}
	return nil, fmt.Errorf("%w: no such intent %s", provider.ErrInvalidRequest, intentID)
}

// SettleIntent marks a stored intent as succeeded, simulating the payer
// completing the payment.
func (m *MockGateway) SettleIntent(intentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if intent, ok := m.intents[intentID]; ok {
		intent.Status = provider.IntentSucceeded
	}
}

// CreateRefund implements provider.PaymentGateway.
func (m *MockGateway) CreateRefund(
	ctx context.Context,
	params *provider.RefundParams,
) (*provider.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}
	return &provider.Refund{
		ID:     "re_mock_" + params.PaymentIntentID,
		Status: "succeeded",
	}, nil
}

type mockWebhookPayload struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	PaymentIntentID string `json:"payment_intent_id"`
	ChargeID        string `json:"charge_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	FailureMessage  string `json:"failure_message"`
}

// VerifyWebhook implements provider.PaymentGateway.
func (m *MockGateway) VerifyWebhook(
	payload []byte,
	signature string,
) (*provider.WebhookEvent, error) {
	if signature != m.Secret {
		return nil, fmt.Errorf("%w: signature mismatch", provider.ErrSignature)
	}
	var p mockWebhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing mock webhook payload: %w", err)
	}

	kind := provider.EventIgnored
	switch p.Type {
	case "payment_intent.succeeded":
		kind = provider.EventPaymentSucceeded
	case "payment_intent.payment_failed":
		kind = provider.EventPaymentFailed
	case "charge.refunded":
		kind = provider.EventRefunded
	}
	return &provider.WebhookEvent{
		ID:              p.ID,
		Kind:            kind,
		PaymentIntentID: p.PaymentIntentID,
		ChargeID:        p.ChargeID,
		AmountMinor:     p.Amount,
		Currency:        p.Currency,
		FailureMessage:  p.FailureMessage,
	}, nil
}
