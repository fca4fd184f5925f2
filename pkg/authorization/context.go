// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import "context"

// Define a private custom type to avoid collisions
type contextKey struct{}

var tenantScopeContextKey = contextKey{}

// WithTenantScope records the tenant id a request is authorized to act on.
// Super admins acting without an explicit target carry the empty scope,
// meaning unrestricted.
func WithTenantScope(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantScopeContextKey, tenantID)
}

// TenantScopeFromContext retrieves the resolved tenant scope.
func TenantScopeFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantScopeContextKey).(string)
	return id, ok
}
