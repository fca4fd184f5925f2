// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/teamtrait/identity-service/internal/types"
)

// Principal is the immutable authenticated identity attached to a request
// after the gate has verified the credential and re-loaded the account.
type Principal struct {
	Account types.Account
}

func (p Principal) ID() string {
	return p.Account.ID
}

func (p Principal) Role() types.Role {
	return p.Account.Role
}

// TenantID returns the owning tenant, empty for super admins and
// not-yet-onboarded users.
func (p Principal) TenantID() (string, bool) {
	if p.Account.TenantID == nil {
		return "", false
	}
	return *p.Account.TenantID, true
}

// Define a private custom type to avoid collisions
type contextKey struct{}

var principalContextKey = contextKey{}

// WithPrincipal returns a new context with the principal derived from the parent context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}
