package domain

import "errors"

var (
	ErrUserNotFound    = errors.New("user-not-found")
	ErrDuplicateEmail  = errors.New("duplicate-email")
	ErrDetailsNotFound = errors.New("details-not-found")
)

// Wrapped around errors we didn't anticipate, so handlers can collapse
// them to a generic response while logs keep the cause.
var (
	UnexpectedDatabaseError               = errors.New("unexpected-database-error")
	UnexpectedPasswordHashingError        = errors.New("unexpected-password-hashing-error")
	UnexpectedPasswordHashComparisonError = errors.New("unexpected-password-hash-comparison-error")
	UnexpectedTokenGenerationError        = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError      = errors.New("unexpected-token-verification-error")
)

var (
	ErrInvalidSigningAlg     = errors.New("invalid-signing-alg")
	ErrExpiredToken          = errors.New("expired-token")
	ErrInvalidTokenSignature = errors.New("invalid-token-signature")
	ErrCorruptedToken        = errors.New("corrupted-token")
)
