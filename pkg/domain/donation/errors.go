package donation

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a donation cannot be located.
	ErrNotFound = errors.New("donation not found")
	// ErrValidation is returned when input validation fails.
	ErrValidation = errors.New("validation error")
	// ErrInvalidTransition is returned when an explicit operation (refund,
	// cancel) is attempted from a state that does not allow it. Webhook
	// application never returns this; off-graph webhook transitions are
	// acknowledged as no-ops.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRecurringScheduleRequired is returned when a recurring donation is
	// built without a schedule.
	ErrRecurringScheduleRequired = errors.New("recurring donation requires a schedule")
)
