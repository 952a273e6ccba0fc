// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Authentication failures. Unknown user and wrong password share one value.
var (
	// ErrInvalidCredentials indicates an unknown username or a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRequest indicates a login request without username or password.
	ErrInvalidRequest = errors.New("missing username or password")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Token failures, in the order they are detected.
var (
	// ErrTokenMalformed indicates a token that does not parse into the expected structure.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenInvalidSignature indicates a token whose signature does not match its payload.
	ErrTokenInvalidSignature = errors.New("token signature invalid")

	// ErrTokenExpired indicates a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnknownSubject indicates a valid token whose subject is not in the user store.
	ErrUnknownSubject = errors.New("unknown subject")
)

// Store and startup errors.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a duplicate username or id in the user store.
	ErrAlreadyExists = errors.New("already exists")

	// ErrSigningKey indicates a missing or unusable token signing key.
	ErrSigningKey = errors.New("unusable signing key")
)
