// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/teamtrait/identity-service/internal/db"
	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/audit"
	"github.com/teamtrait/identity-service/pkg/authentication"
	"github.com/teamtrait/identity-service/pkg/token"
)

func newTestAPI(t *testing.T, ctrl *gomock.Controller, service ServiceInterface) (*API, *audit.MockRecorderInterface) {
	t.Helper()

	auditor := audit.NewMockRecorderInterface(ctrl)
	limiter := NewRateLimiter(5, 10)
	t.Cleanup(limiter.Stop)

	dbClient := db.NewMockDBClientInterface(ctrl)
	dbClient.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) },
	).AnyTimes()

	api := NewAPI(service, limiter, auditor, dbClient, "https://app.teamtrait.io",
		tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	return api, auditor
}

func TestLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Login(gomock.Any(), "jo@example.com", "hunter2hunter2").
		Return(&types.Account{ID: "acc-1", Email: "jo@example.com", Role: types.RoleUser},
			&token.Pair{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(15 * time.Minute)}, nil)

	api, auditor := newTestAPI(t, ctrl, service)
	auditor.EXPECT().Record(gomock.Any(), gomock.Any())

	mux := chi.NewRouter()
	api.RegisterPublicEndpoints(mux)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"jo@example.com","password":"hunter2hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Account.ID != "acc-1" || resp.Tokens.AccessToken != "at" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestLoginHandlerRejectsBadPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api, _ := newTestAPI(t, ctrl, NewMockServiceInterface(ctrl))
	mux := chi.NewRouter()
	api.RegisterPublicEndpoints(mux)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestLoginHandlerRateLimits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil, types.ErrUnauthenticated).AnyTimes()

	auditor := audit.NewMockRecorderInterface(ctrl)
	limiter := NewRateLimiter(1, 2)
	t.Cleanup(limiter.Stop)

	api := NewAPI(service, limiter, auditor, db.NewMockDBClientInterface(ctrl), "https://app.teamtrait.io",
		tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	mux := chi.NewRouter()
	api.RegisterPublicEndpoints(mux)

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"jo@example.com","password":"guess"}`))
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", last)
	}
}

func TestRefreshHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Refresh(gomock.Any(), "refresh-raw").
		Return(&token.Pair{AccessToken: "new-at", RefreshToken: "new-rt"}, nil)

	api, _ := newTestAPI(t, ctrl, service)
	mux := chi.NewRouter()
	api.RegisterPublicEndpoints(mux)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"refresh-raw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMeHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api, _ := newTestAPI(t, ctrl, NewMockServiceInterface(ctrl))
	mux := chi.NewRouter()
	api.RegisterEndpoints(mux)

	tid := "tenant-1"
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := authentication.WithPrincipal(req.Context(), authentication.Principal{
		Account: types.Account{ID: "acc-1", Email: "jo@example.com", Role: types.RoleCompanyAdmin, TenantID: &tid, Active: true},
	})
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view accountView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.ID != "acc-1" || view.TenantID == nil || *view.TenantID != "tenant-1" {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestLogoutHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Logout(gomock.Any(), "acc-1").Return(nil)

	api, auditor := newTestAPI(t, ctrl, service)
	auditor.EXPECT().Record(gomock.Any(), gomock.Any())

	mux := chi.NewRouter()
	api.RegisterEndpoints(mux)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	ctx := authentication.WithPrincipal(req.Context(), authentication.Principal{
		Account: types.Account{ID: "acc-1", Role: types.RoleUser, Active: true},
	})
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestOAuthCallbackResolvesInsideTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Callback(gomock.Any(), types.ProviderGoogle, "code-1").
		Return(&types.Account{ID: "acc-1", Email: "jo@example.com", Role: types.RoleUser},
			&token.Pair{AccessToken: "at", RefreshToken: "rt"}, nil)

	auditor := audit.NewMockRecorderInterface(ctrl)
	auditor.EXPECT().Record(gomock.Any(), gomock.Any())
	limiter := NewRateLimiter(5, 10)
	t.Cleanup(limiter.Stop)

	// The resolution writes through a single transaction even though the
	// callback arrives as a GET.
	dbClient := db.NewMockDBClientInterface(ctrl)
	dbClient.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) },
	).Times(1)

	api := NewAPI(service, limiter, auditor, dbClient, "https://app.teamtrait.io",
		tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	mux := chi.NewRouter()
	api.RegisterPublicEndpoints(mux)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=genuine&code=code-1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "genuine"})
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "accessToken=at") {
		t.Errorf("expected tokens in the redirect fragment, got %q", loc)
	}
}

func TestOAuthCallbackRollsBackOnResolutionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Callback(gomock.Any(), types.ProviderGoogle, "code-1").
		Return(nil, nil, errors.New("seat bookkeeping failed"))

	auditor := audit.NewMockRecorderInterface(ctrl)
	limiter := NewRateLimiter(5, 10)
	t.Cleanup(limiter.Stop)

	dbClient := db.NewMockDBClientInterface(ctrl)
	dbClient.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			err := fn(ctx)
			if err == nil {
				t.Error("expected the transaction callback to propagate the failure")
			}
			return err
		},
	).Times(1)

	api := NewAPI(service, limiter, auditor, dbClient, "https://app.teamtrait.io",
		tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	mux := chi.NewRouter()
	api.RegisterPublicEndpoints(mux)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=genuine&code=code-1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "genuine"})
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestOAuthCallbackRejectsStateMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api, _ := newTestAPI(t, ctrl, NewMockServiceInterface(ctrl))
	mux := chi.NewRouter()
	api.RegisterPublicEndpoints(mux)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=code-1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "genuine"})
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
