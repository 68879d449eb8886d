// Package webapi assembles the HTTP surface of the donation backend.
package webapi

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hopeworks/giving/config"
	"github.com/hopeworks/giving/pkg/ratelimit"
	donationsvc "github.com/hopeworks/giving/pkg/service/donation"
	reconcilesvc "github.com/hopeworks/giving/pkg/service/reconcile"
	"github.com/hopeworks/giving/webapi/common"
	"github.com/hopeworks/giving/webapi/donations"
)

// Deps carries everything SetupApp needs.
type Deps struct {
	Config         *config.AppConfig
	DonationSvc    *donationsvc.Service
	ReconcileSvc   *reconcilesvc.Service
	PaymentLimiter *ratelimit.Limiter
	ReadLimiter    *ratelimit.Limiter
	Logger         *slog.Logger
}

// SetupApp initializes Fiber with the donation routes and middleware.
func SetupApp(deps Deps) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	app := fiber.New(fiber.Config{
		// X-Forwarded-For is only believed when the peer is a configured
		// proxy; rate-limit windows are keyed on c.IP().
		EnableTrustedProxyCheck: true,
		TrustedProxies:          deps.Config.TrustedProxies,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return common.ProblemDetailsJSON(c, e.Message, nil, e.Code)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
	}))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Giving API is running! 🤲")
	})

	donations.Routes(
		app,
		deps.DonationSvc,
		deps.ReconcileSvc,
		deps.PaymentLimiter,
		deps.ReadLimiter,
		deps.Logger,
	)
	return app
}
