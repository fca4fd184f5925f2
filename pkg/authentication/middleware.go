// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"errors"
	"net/http"
	"strings"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/token"

	httptypes "github.com/teamtrait/identity-service/internal/http/types"
)

type Middleware struct {
	verifier TokenVerifierInterface
	accounts AccountLoaderInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Authenticate gates a route group. It verifies the bearer access token,
// re-loads the account so revocations and role changes take effect
// immediately, and attaches the resulting Principal to the request context.
func (m *Middleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "authentication.Middleware.Authenticate")
			defer span.End()

			raw, found := m.getBearerToken(r.Header)
			if !found {
				m.logger.Security().AuthnFailure("", "missing authorization header")
				httptypes.WriteError(w, types.ErrUnauthenticated)
				return
			}

			claims, err := m.verifier.Verify(raw, token.KindAccess)
			if err != nil {
				m.logger.Debugf("access token verification failed: %v", err)
				m.logger.Security().AuthnFailure("", "invalid access token")
				// Expired tokens get the distinguished code so clients can
				// attempt a silent refresh.
				httptypes.WriteError(w, err)
				return
			}

			account, err := m.accounts.GetAccountByID(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					m.logger.Security().AuthnFailure(claims.Subject, "account no longer exists")
					httptypes.WriteError(w, types.ErrUnauthenticated)
					return
				}
				m.logger.Errorf("failed to load account %s: %v", claims.Subject, err)
				httptypes.WriteError(w, err)
				return
			}

			if !account.Active {
				m.logger.Security().AuthnFailure(account.ID, "account deactivated")
				httptypes.WriteError(w, types.ErrUnauthenticated)
				return
			}

			ctx = WithPrincipal(ctx, Principal{Account: *account})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) getBearerToken(headers http.Header) (string, bool) {
	bearer := headers.Get("Authorization")
	if bearer == "" {
		return "", false
	}

	// Only support "Bearer <token>" format (RFC 6750)
	if !strings.HasPrefix(bearer, "Bearer ") {
		return "", false
	}

	return strings.TrimPrefix(bearer, "Bearer "), true
}

func NewMiddleware(verifier TokenVerifierInterface, accounts AccountLoaderInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		verifier: verifier,
		accounts: accounts,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}
