// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/authentication"

	httptypes "github.com/teamtrait/identity-service/internal/http/types"
)

// Bodies larger than this are not inspected for a tenant target.
const maxBodyPeekBytes = 1 << 20

type Authorizer struct {
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RequireRoles allows only principals whose role is in the given list.
// The authentication gate must run first.
func (a *Authorizer) RequireRoles(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := a.tracer.Start(r.Context(), "authorization.Authorizer.RequireRoles")
			defer span.End()

			principal, ok := authentication.PrincipalFromContext(ctx)
			if !ok {
				httptypes.WriteError(w, types.ErrUnauthenticated)
				return
			}

			if !slices.Contains(roles, principal.Role()) {
				a.logger.Security().AuthzFailure(principal.ID(), r.Method+" "+r.URL.Path)
				httptypes.WriteError(w, types.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is the common allow-list for administrative routes.
func (a *Authorizer) RequireAdmin() func(http.Handler) http.Handler {
	return a.RequireRoles(types.RoleCompanyAdmin, types.RoleSuperAdmin)
}

// TenantScope resolves the tenant a request targets and enforces tenant
// isolation. The target is taken from the URL parameter, then the query
// string, then a tenantId field in a JSON body, first match wins. Super
// admins may target any tenant; everyone else is confined to their own.
// A request without an explicit target defaults to the principal's tenant.
func (a *Authorizer) TenantScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := a.tracer.Start(r.Context(), "authorization.Authorizer.TenantScope")
			defer span.End()

			principal, ok := authentication.PrincipalFromContext(ctx)
			if !ok {
				httptypes.WriteError(w, types.ErrUnauthenticated)
				return
			}

			target := a.resolveTarget(r)

			if principal.Role() == types.RoleSuperAdmin {
				// Empty scope means unrestricted.
				ctx = WithTenantScope(ctx, target)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			own, hasTenant := principal.TenantID()
			if !hasTenant {
				a.logger.Security().AuthzFailure(principal.ID(), "tenant-scoped request without tenant membership")
				httptypes.WriteError(w, types.ErrForbidden)
				return
			}

			if target != "" && target != own {
				a.logger.Security().AuthzFailure(principal.ID(), "cross-tenant access to "+target)
				httptypes.WriteError(w, types.ErrForbidden)
				return
			}

			ctx = WithTenantScope(ctx, own)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Authorizer) resolveTarget(r *http.Request) string {
	if id := chi.URLParam(r, "tenantID"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("tenantId"); id != "" {
		return id
	}
	return a.peekBodyTenant(r)
}

// peekBodyTenant reads a tenantId field out of a JSON body without
// consuming it, so the handler can still decode the payload.
func (a *Authorizer) peekBodyTenant(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeekBytes))
	if err != nil {
		a.logger.Debugf("failed to read body for tenant resolution: %v", err)
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		TenantID string `json:"tenantId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.TenantID
}

func NewAuthorizer(tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Authorizer {
	return &Authorizer{
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
