package donations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopeworks/giving/config"
	infraprovider "github.com/hopeworks/giving/infra/provider"
	infrarepo "github.com/hopeworks/giving/infra/repository"
	"github.com/hopeworks/giving/pkg/audit"
	domain "github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/ratelimit"
	donationsvc "github.com/hopeworks/giving/pkg/service/donation"
	reconcilesvc "github.com/hopeworks/giving/pkg/service/reconcile"
	"github.com/hopeworks/giving/webapi"
)

const webhookSecret = "whsec_test"

type testApp struct {
	app     *fiber.App
	ledger  *infrarepo.MemoryLedger
	gateway *infraprovider.MockGateway
}

func newTestApp(t *testing.T, paymentMax int) *testApp {
	t.Helper()
	auditLog, err := audit.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { auditLog.Close() }) //nolint: errcheck

	ledger := infrarepo.NewMemoryLedger()
	gateway := infraprovider.NewMockGateway(webhookSecret)
	beneficiary := config.Beneficiary{
		Name:    "Hopeworks Foundation",
		Account: "DE89370400440532013000",
		Bank:    "Test Bank",
	}

	app := webapi.SetupApp(webapi.Deps{
		Config: &config.AppConfig{AllowedOrigins: "*"},
		DonationSvc: donationsvc.NewService(
			ledger, gateway, auditLog, beneficiary, slog.Default()),
		ReconcileSvc: reconcilesvc.NewService(
			ledger, gateway, auditLog, slog.Default()),
		PaymentLimiter: ratelimit.New(
			ratelimit.NewMemoryStore(), paymentMax, time.Minute),
		ReadLimiter: ratelimit.New(
			ratelimit.NewMemoryStore(), 120, time.Minute),
	})
	return &testApp{app: app, ledger: ledger, gateway: gateway}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) []byte {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
	return raw
}

func validBody() map[string]any {
	return map[string]any{
		"amount":   5000,
		"currency": "EUR",
		"email":    "a@b.com",
		"name":     "Ann Lee",
	}
}

// createProcessingDonation drives a donation through the API into processing
// and returns its gateway intent ID.
func (ta *testApp) createProcessingDonation(t *testing.T, body map[string]any) string {
	t.Helper()
	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/intents", body))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var envelope struct {
		Data struct {
			DonationID string `json:"donation_id"`
		} `json:"data"`
	}
	decodeBody(t, resp, &envelope)

	id, err := uuid.Parse(envelope.Data.DonationID)
	require.NoError(t, err)
	d, err := ta.ledger.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotEmpty(t, d.PaymentIntentID)
	return d.PaymentIntentID
}

func (ta *testApp) sendWebhook(t *testing.T, signature, eventType, intentID string) *http.Response {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"type":              eventType,
		"payment_intent_id": intentID,
	})
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodPost, "/donations/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCreateIntentEndpoint(t *testing.T) {
	ta := newTestApp(t, 10)

	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/intents", validBody()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var envelope struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Data    struct {
			DonationID   string `json:"donation_id"`
			ClientSecret string `json:"client_secret"`
			Amount       int64  `json:"amount"`
			Currency     string `json:"currency"`
			Beneficiary  struct {
				Name          string `json:"name"`
				MaskedAccount string `json:"masked_account"`
			} `json:"beneficiary"`
		} `json:"data"`
	}
	decodeBody(t, resp, &envelope)
	assert.Equal(t, fiber.StatusCreated, envelope.Status)
	assert.NotEmpty(t, envelope.Data.DonationID)
	assert.NotEmpty(t, envelope.Data.ClientSecret)
	assert.Equal(t, int64(5000), envelope.Data.Amount)
	assert.Equal(t, "EUR", envelope.Data.Currency)
	assert.Equal(t, "******************3000", envelope.Data.Beneficiary.MaskedAccount,
		"the raw account number never leaves the server")
}

func TestCreateIntentValidationProblem(t *testing.T) {
	ta := newTestApp(t, 10)

	body := validBody()
	body["amount"] = 0
	body["email"] = "nope"
	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/intents", body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))

	var pd struct {
		Title  string   `json:"title"`
		Status int      `json:"status"`
		Errors []string `json:"errors"`
	}
	decodeBody(t, resp, &pd)
	assert.Equal(t, "Validation failed", pd.Title)
	assert.Len(t, pd.Errors, 2, "every violation is reported at once")
}

func TestCreateIntentMalformedJSON(t *testing.T) {
	ta := newTestApp(t, 10)

	req := httptest.NewRequest(fiber.MethodPost, "/donations/intents", bytes.NewBufferString("{broken"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPaymentRateLimit(t *testing.T) {
	ta := newTestApp(t, 5)

	for i := 0; i < 5; i++ {
		resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/intents", validBody()))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode, "request %d is within the window", i+1)
	}

	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/intents", validBody()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode, "6th request within the window is rejected")
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
}

func TestPaymentRateLimitIgnoresSpoofedForwardingHeader(t *testing.T) {
	ta := newTestApp(t, 1)

	req := jsonRequest(t, fiber.MethodPost, "/donations/intents", validBody())
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// No trusted proxies configured: the header is ignored and every request
	// stays keyed on the peer address.
	for i := 2; i <= 5; i++ {
		req := jsonRequest(t, fiber.MethodPost, "/donations/intents", validBody())
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode,
			"rotating the forwarding header must not open a fresh window")
	}
}

func TestRateLimitHeadersOnSuccess(t *testing.T) {
	ta := newTestApp(t, 5)

	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/intents", validBody()))
	require.NoError(t, err)
	assert.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestWebhookInvalidSignature(t *testing.T) {
	ta := newTestApp(t, 10)
	intentID := ta.createProcessingDonation(t, validBody())

	resp := ta.sendWebhook(t, "wrong", "payment_intent.succeeded", intentID)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	d, err := ta.ledger.GetByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusProcessing), d.Status, "ledger is untouched")
}

func TestWebhookMissingSignatureHeader(t *testing.T) {
	ta := newTestApp(t, 10)

	req := httptest.NewRequest(fiber.MethodPost, "/donations/webhook", bytes.NewBufferString("{}"))
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookEmptyBody(t *testing.T) {
	ta := newTestApp(t, 10)

	req := httptest.NewRequest(fiber.MethodPost, "/donations/webhook", nil)
	req.Header.Set("Stripe-Signature", webhookSecret)
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookReplayStaysAcknowledged(t *testing.T) {
	ta := newTestApp(t, 10)
	intentID := ta.createProcessingDonation(t, validBody())

	resp := ta.sendWebhook(t, webhookSecret, "payment_intent.succeeded", intentID)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	first, err := ta.ledger.GetByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), first.Status)

	// Identical redelivery: still 200, ledger unchanged.
	resp = ta.sendWebhook(t, webhookSecret, "payment_intent.succeeded", intentID)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	second, err := ta.ledger.GetByIntentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestWebhookUnknownIntentIsAcknowledged(t *testing.T) {
	ta := newTestApp(t, 10)
	resp := ta.sendWebhook(t, webhookSecret, "payment_intent.succeeded", "pi_not_ours")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestConfirmEndpoint(t *testing.T) {
	ta := newTestApp(t, 10)
	intentID := ta.createProcessingDonation(t, validBody())
	ta.gateway.SettleIntent(intentID)

	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/confirmations",
		map[string]any{"payment_intent_id": intentID}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	decodeBody(t, resp, &envelope)
	assert.Equal(t, string(domain.StatusCompleted), envelope.Data.Status)
}

func TestConfirmRequiresIntentID(t *testing.T) {
	ta := newTestApp(t, 10)
	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/confirmations", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestConfirmUnknownIntent(t *testing.T) {
	ta := newTestApp(t, 10)
	resp, err := ta.app.Test(jsonRequest(t, fiber.MethodPost, "/donations/confirmations",
		map[string]any{"payment_intent_id": "pi_unknown"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
}

func TestRecentHidesDonorIdentity(t *testing.T) {
	ta := newTestApp(t, 10)

	body := validBody()
	body["anonymous"] = true
	intentID := ta.createProcessingDonation(t, body)

	// Settle through the webhook so the donation shows up in the listing.
	resp := ta.sendWebhook(t, webhookSecret, "payment_intent.succeeded", intentID)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	listResp, err := ta.app.Test(httptest.NewRequest(fiber.MethodGet, "/donations/recent", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var envelope struct {
		Data []struct {
			DonorName string `json:"donor_name"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	raw := decodeBody(t, listResp, &envelope)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Anonymous", envelope.Data[0].DonorName)
	assert.NotContains(t, string(raw), "a@b.com", "contact details never reach public surfaces")
	assert.NotContains(t, string(raw), "Ann Lee")
}

func TestStatsEndpoint(t *testing.T) {
	ta := newTestApp(t, 10)
	intentID := ta.createProcessingDonation(t, validBody())

	resp := ta.sendWebhook(t, webhookSecret, "payment_intent.succeeded", intentID)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	statsResp, err := ta.app.Test(httptest.NewRequest(fiber.MethodGet, "/donations/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, statsResp.StatusCode)

	var envelope struct {
		Data struct {
			TotalCompleted int64            `json:"total_completed"`
			CompletedCount int64            `json:"completed_count"`
			ByCategory     map[string]int64 `json:"by_category"`
		} `json:"data"`
	}
	decodeBody(t, statsResp, &envelope)
	assert.Equal(t, int64(5000), envelope.Data.TotalCompleted)
	assert.Equal(t, int64(1), envelope.Data.CompletedCount)
	assert.Equal(t, int64(5000), envelope.Data.ByCategory["general"])
}

func TestBeneficiaryEndpoint(t *testing.T) {
	ta := newTestApp(t, 10)

	resp, err := ta.app.Test(httptest.NewRequest(fiber.MethodGet, "/donations/beneficiary", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Name          string `json:"name"`
			MaskedAccount string `json:"masked_account"`
		} `json:"data"`
	}
	decodeBody(t, resp, &envelope)
	assert.Equal(t, "Hopeworks Foundation", envelope.Data.Name)
	assert.Equal(t, "******************3000", envelope.Data.MaskedAccount)
}

func TestHealthEndpoint(t *testing.T) {
	ta := newTestApp(t, 10)
	resp, err := ta.app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
