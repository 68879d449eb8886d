// Package donations exposes the donation lifecycle over HTTP.
package donations

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/hopeworks/giving/pkg/dto"
	"github.com/hopeworks/giving/pkg/ratelimit"
	donationsvc "github.com/hopeworks/giving/pkg/service/donation"
	reconcilesvc "github.com/hopeworks/giving/pkg/service/reconcile"
	"github.com/hopeworks/giving/webapi/common"
)

// Routes registers the donation endpoints. The payment limiter guards
// everything that opens gateway work; reads get the lenient limiter. The
// webhook route is unlimited: the gateway is the only caller and throttling
// it only delays reconciliation.
func Routes(
	app *fiber.App,
	donationSvc *donationsvc.Service,
	reconcileSvc *reconcilesvc.Service,
	paymentLimiter *ratelimit.Limiter,
	readLimiter *ratelimit.Limiter,
	logger *slog.Logger,
) {
	app.Post(
		"/donations/intents",
		common.RateLimit(paymentLimiter),
		CreateIntent(donationSvc, logger),
	)
	app.Post(
		"/donations/confirmations",
		common.RateLimit(paymentLimiter),
		Confirm(donationSvc, logger),
	)
	app.Post("/donations/webhook", Webhook(reconcileSvc))
	app.Get(
		"/donations/stats",
		common.RateLimit(readLimiter),
		Stats(donationSvc, logger),
	)
	app.Get(
		"/donations/recent",
		common.RateLimit(readLimiter),
		Recent(donationSvc, logger),
	)
	app.Get(
		"/donations/beneficiary",
		common.RateLimit(readLimiter),
		Beneficiary(donationSvc),
	)
}

// CreateIntent returns a handler that validates a donation request, writes
// the pending ledger row and opens a payment intent with the gateway.
// @Summary Create a donation payment intent
// @Description Validates the donation request and opens a payment intent.
// @Tags donations
// @Accept json
// @Produce json
// @Success 201 {object} common.Response "Intent created"
// @Failure 400 {object} common.ProblemDetails "Validation failed"
// @Failure 429 {object} common.ProblemDetails "Rate limit exceeded"
// @Router /donations/intents [post]
func CreateIntent(svc *donationsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := common.BindAndValidate[CreateIntentRequest](c)
		if err != nil {
			return nil // problem response already written
		}

		result, err := svc.CreateIntent(c.Context(), donationsvc.CreateIntentRequest{
			AmountMinor:  body.Amount,
			Currency:     body.Currency,
			DonorEmail:   body.Email,
			DonorName:    body.Name,
			DonorPhone:   body.Phone,
			Message:      body.Message,
			Anonymous:    body.Anonymous,
			Category:     body.Category,
			WantsReceipt: body.WantsReceipt,
			Frequency:    body.Frequency,
		})
		if err != nil {
			var ve *donationsvc.ValidationError
			if errors.As(err, &ve) {
				return common.ValidationProblemJSON(c, ve.Result.Errors)
			}
			logger.Error("failed to create donation intent", "error", err)
			return common.ProblemDetailsJSON(c, "Failed to create donation intent", err)
		}

		return common.SuccessResponseJSON(
			c, fiber.StatusCreated, "Donation intent created", IntentDTO{
				DonationID:   result.DonationID.String(),
				ClientSecret: result.ClientSecret,
				Amount:       result.AmountMinor,
				Currency:     result.Currency,
				Beneficiary: BeneficiaryDTO{
					Name:          result.Beneficiary.Name,
					MaskedAccount: result.Beneficiary.MaskedAccount,
					Bank:          result.Beneficiary.Bank,
				},
			})
	}
}

// Confirm returns a handler that checks a donation against the gateway's
// view of its intent and returns the confirmed summary.
// @Summary Confirm a donation
// @Tags donations
// @Accept json
// @Produce json
// @Success 200 {object} common.Response "Donation summary"
// @Failure 404 {object} common.ProblemDetails "Unknown payment intent"
// @Router /donations/confirmations [post]
func Confirm(svc *donationsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := common.BindAndValidate[ConfirmRequest](c)
		if err != nil {
			return nil // problem response already written
		}

		d, err := svc.Confirm(c.Context(), body.PaymentIntentID)
		if err != nil {
			logger.Error("failed to confirm donation", "error", err)
			return common.ProblemDetailsJSON(c, "Failed to confirm donation", err)
		}
		return common.SuccessResponseJSON(
			c, fiber.StatusOK, "Donation confirmed", toDonationDTO(d))
	}
}

// Webhook returns the gateway callback handler. The raw body is passed
// through untouched for signature verification. Only an invalid signature
// produces a non-200; every post-verification failure is absorbed and
// surfaced through the audit trail instead, since redelivery cannot fix an
// internal fault.
func Webhook(svc *reconcilesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("Stripe-Signature")
		if signature == "" {
			return common.ProblemDetailsJSON(
				c, "Missing signature header",
				errors.New("Stripe-Signature header is required"),
				fiber.StatusBadRequest)
		}
		payload := c.Body()
		if len(payload) == 0 {
			return common.ProblemDetailsJSON(
				c, "Empty request body",
				errors.New("webhook payload is empty"),
				fiber.StatusBadRequest)
		}

		if err := svc.HandleWebhook(c.Context(), payload, signature); err != nil {
			return common.ProblemDetailsJSON(c, "Invalid webhook signature", err)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}

// Stats returns the public aggregate totals handler.
// @Summary Donation statistics
// @Tags donations
// @Produce json
// @Success 200 {object} common.Response "Aggregate totals"
// @Router /donations/stats [get]
func Stats(svc *donationsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.Stats(c.Context())
		if err != nil {
			logger.Error("failed to compute donation stats", "error", err)
			return common.ProblemDetailsJSON(c, "Failed to compute stats", err)
		}
		return common.SuccessResponseJSON(
			c, fiber.StatusOK, "Donation stats", StatsDTO{
				TotalCompleted: stats.TotalCompletedMinor,
				CompletedCount: stats.CompletedCount,
				FailedCount:    stats.FailedCount,
				PendingCount:   stats.PendingCount,
				RefundedCount:  stats.RefundedCount,
				ByCategory:     stats.ByCategory,
			})
	}
}

// Recent returns the public recent-donations handler. Donors who asked for
// anonymity are listed as "Anonymous"; contact details are never included.
func Recent(svc *donationsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", donationsvc.MaxRecentLimit)
		rows, err := svc.Recent(c.Context(), limit)
		if err != nil {
			logger.Error("failed to list recent donations", "error", err)
			return common.ProblemDetailsJSON(c, "Failed to list recent donations", err)
		}
		dtos := make([]DonationDTO, 0, len(rows))
		for i := range rows {
			dtos = append(dtos, toDonationDTO(&rows[i]))
		}
		return common.SuccessResponseJSON(
			c, fiber.StatusOK, "Recent donations", dtos)
	}
}

// Beneficiary returns the recipient display handler.
func Beneficiary(svc *donationsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b := svc.Beneficiary()
		return common.SuccessResponseJSON(
			c, fiber.StatusOK, "Beneficiary", BeneficiaryDTO{
				Name:          b.Name,
				MaskedAccount: b.MaskedAccount,
				Bank:          b.Bank,
			})
	}
}

func toDonationDTO(d *dto.DonationRead) DonationDTO {
	name := d.DonorName
	if d.Anonymous {
		name = "Anonymous"
	}
	return DonationDTO{
		ID:        d.ID.String(),
		Amount:    d.Amount,
		Currency:  d.Currency,
		DonorName: name,
		Message:   d.Message,
		Category:  d.Category,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		PaidAt:    d.PaidAt,
	}
}
