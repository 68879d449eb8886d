package common

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/hopeworks/giving/pkg/ratelimit"
)

// ClientKey resolves the stable client identity a limiter window is keyed
// on. c.IP() only reflects the forwarding header when the request came
// through a configured trusted proxy; a direct client cannot rotate headers
// to escape its window or exhaust someone else's.
func ClientKey(c *fiber.Ctx) string {
	return c.IP()
}

// RateLimit returns a middleware enforcing the given limiter per client.
// Limit metadata is exposed on every response; rejected requests get a 429
// problem response with a Retry-After header.
func RateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := limiter.Allow(ClientKey(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retryAfter := int(d.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded, retry later"),
				fiber.StatusTooManyRequests,
			)
		}
		return c.Next()
	}
}
