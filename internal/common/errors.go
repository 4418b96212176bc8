// Package common defines shared constants and sentinel errors used across
// gophsync server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrPrecondition marks a call that broke a guarantee the protocol makes
	// (missing acting user, nil item hash, unknown sort column). It is a
	// programming error, never a business conflict.
	ErrPrecondition = errors.New("precondition violated")

	// ErrInvalidDescriptor is returned by validating factories for malformed values.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
