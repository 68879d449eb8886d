package provider

import "errors"

// Gateway error taxonomy. The adapter maps concrete gateway failures onto
// these sentinels; the HTTP layer maps them onto status codes.
var (
	// ErrAuth: the gateway rejected our credentials (401).
	ErrAuth = errors.New("gateway authentication failed")
	// ErrPermission: the gateway refused the operation for this account (403).
	ErrPermission = errors.New("gateway permission denied")
	// ErrInvalidRequest: the gateway considered the request malformed (400).
	ErrInvalidRequest = errors.New("gateway rejected request as invalid")
	// ErrRateLimited: the gateway throttled us (429).
	ErrRateLimited = errors.New("gateway rate limit exceeded")
	// ErrSignature: a webhook payload failed signature verification (400).
	ErrSignature = errors.New("webhook signature verification failed")
)
