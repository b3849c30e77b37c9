package core

import "errors"

// Error kinds shared across the codec, verifier, store and service layers.
// Lower layers wrap these sentinels; the service boundary maps them to HTTP
// status codes.
var (
	// ErrValidation marks malformed input: form fields, scope format,
	// secret encoding, entity names.
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication marks a rejected or mismatched caller identity.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotFound marks a referenced resource/scope/role that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a downstream identity-service or store outage.
	ErrUnavailable = errors.New("service unavailable")
)
