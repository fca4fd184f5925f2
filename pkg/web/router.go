// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	cors "github.com/go-chi/cors"

	"github.com/teamtrait/identity-service/internal/db"
	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/audit"
	"github.com/teamtrait/identity-service/pkg/auth"
	"github.com/teamtrait/identity-service/pkg/authentication"
	"github.com/teamtrait/identity-service/pkg/authorization"
	"github.com/teamtrait/identity-service/pkg/invitation"
	"github.com/teamtrait/identity-service/pkg/metrics"
	"github.com/teamtrait/identity-service/pkg/status"
	"github.com/teamtrait/identity-service/pkg/tenant"
)

type APIs struct {
	Auth       *auth.API
	Invitation *invitation.API
	Tenant     *tenant.API
	Audit      *audit.API
}

func NewRouter(
	apis APIs,
	authenticator *authentication.Middleware,
	authorizer *authorization.Authorizer,
	dbClient db.DBClientInterface,
	allowedOrigins []string,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS(allowedOrigins),
	)

	router.Use(middlewares...)

	router.Route("/api/v0", func(r chi.Router) {
		metrics.NewAPI(logger).RegisterEndpoints(r)
		status.NewAPI(tracer, monitor, logger).RegisterEndpoints(r)

		// Public surface: registration, login, token refresh, OAuth flows,
		// and invitation lookup by token.
		r.Group(func(r chi.Router) {
			r.Use(db.TransactionMiddleware(dbClient, logger))
			apis.Auth.RegisterPublicEndpoints(r)
			apis.Invitation.RegisterPublicEndpoints(r)
		})

		// Everything below requires a live session.
		r.Group(func(r chi.Router) {
			r.Use(db.TransactionMiddleware(dbClient, logger))
			r.Use(authenticator.Authenticate())

			apis.Auth.RegisterEndpoints(r)

			// Tenant admins, confined to their own tenant.
			r.Group(func(r chi.Router) {
				r.Use(authorizer.RequireAdmin())
				r.Use(authorizer.TenantScope())
				apis.Invitation.RegisterEndpoints(r)
				apis.Tenant.RegisterEndpoints(r)
			})

			// Platform operations.
			r.Group(func(r chi.Router) {
				r.Use(authorizer.RequireRoles(types.RoleSuperAdmin))
				apis.Tenant.RegisterAdminEndpoints(r)
				apis.Audit.RegisterEndpoints(r)
			})
		})
	})

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}

func middlewareCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(
		cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		},
	)
}
