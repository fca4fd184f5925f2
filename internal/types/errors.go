// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import "errors"

// Sentinel errors forming the user-facing failure taxonomy. Services wrap
// these with context; the HTTP layer maps them to stable statuses and codes.
var (
	// ErrUnauthenticated covers missing, malformed, or mis-signed credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenExpired is the distinguished expired-credential variant, so
	// clients can tell "please refresh" apart from "please re-authenticate".
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden means authenticated but lacking role or tenant scope.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the entity is absent or in the wrong state for the
	// requested transition.
	ErrNotFound = errors.New("not found")
	// ErrConflict is a uniqueness violation (duplicate account, duplicate
	// pending invitation).
	ErrConflict = errors.New("conflict")
	// ErrQuotaExceeded means the tenant's seat limit is reached.
	ErrQuotaExceeded = errors.New("seat quota exceeded")
	// ErrMissingAttribute means an external identity profile lacks a
	// required attribute (email).
	ErrMissingAttribute = errors.New("missing required attribute")
	// ErrValidation is a malformed, field-level input failure.
	ErrValidation = errors.New("validation error")
	// ErrExpired marks an entity (invitation) whose expiry has passed;
	// distinct from ErrTokenExpired, which is reserved for credentials.
	ErrExpired = errors.New("expired")
	// ErrRateLimited means the client exceeded the credential-endpoint
	// request budget.
	ErrRateLimited = errors.New("rate limited")
)
