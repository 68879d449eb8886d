// Package common provides the shared HTTP response envelope and the error
// → status-code mapping used by every handler.
package common

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	domain "github.com/hopeworks/giving/pkg/domain/donation"
	"github.com/hopeworks/giving/pkg/provider"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

// SuccessResponseJSON writes the standard success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// ProblemDetailsJSON writes an RFC 9457 problem response. The status is
// derived from err unless an explicit override is given.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, status ...int) error {
	code := fiber.StatusInternalServerError
	if err != nil {
		code = ErrorToStatusCode(err)
	}
	if len(status) > 0 {
		code = status[0]
	}

	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   code,
		Instance: c.OriginalURL(),
	}
	if err != nil {
		if code == fiber.StatusInternalServerError {
			// Internal details are logged server side, never surfaced.
			pd.Detail = "an internal error occurred"
		} else {
			pd.Detail = err.Error()
		}
	}
	// The media type must ride on JSON itself; fiber's JSON would otherwise
	// overwrite a header set beforehand.
	return c.Status(code).JSON(pd, "application/problem+json")
}

// ErrorToStatusCode maps domain and gateway errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, provider.ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, provider.ErrPermission):
		return fiber.StatusForbidden
	case errors.Is(err, provider.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, provider.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, provider.ErrSignature):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
