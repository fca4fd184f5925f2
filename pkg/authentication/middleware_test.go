// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/token"
)

//go:generate mockgen -build_flags=--mod=mod -package authentication -destination ./mock_interfaces.go -source=./interfaces.go

func accessClaims(subject string) *token.Claims {
	c := &token.Claims{Role: "user", TenantID: "tenant-1"}
	c.Subject = subject
	return c
}

func TestMiddleware_Authenticate(t *testing.T) {
	activeAccount := &types.Account{ID: "acc-1", Role: types.RoleUser, Active: true}
	inactiveAccount := &types.Account{ID: "acc-2", Role: types.RoleUser, Active: false}

	tests := []struct {
		name               string
		authHeader         string
		setupMocks         func(*gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface)
		expectedStatusCode int
		expectedCode       string
	}{
		{
			name:       "Missing token - rejects request",
			authHeader: "",
			setupMocks: func(ctrl *gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface) {
				return NewMockTokenVerifierInterface(ctrl), NewMockAccountLoaderInterface(ctrl)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedCode:       "UNAUTHENTICATED",
		},
		{
			name:       "Invalid token format - rejects request",
			authHeader: "InvalidToken",
			setupMocks: func(ctrl *gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface) {
				return NewMockTokenVerifierInterface(ctrl), NewMockAccountLoaderInterface(ctrl)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedCode:       "UNAUTHENTICATED",
		},
		{
			name:       "Token verification fails - rejects request",
			authHeader: "Bearer invalid-token",
			setupMocks: func(ctrl *gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface) {
				mockVerifier := NewMockTokenVerifierInterface(ctrl)
				mockVerifier.EXPECT().Verify("invalid-token", token.KindAccess).Return(nil, fmt.Errorf("bad signature: %w", types.ErrUnauthenticated))
				return mockVerifier, NewMockAccountLoaderInterface(ctrl)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedCode:       "UNAUTHENTICATED",
		},
		{
			name:       "Expired token - distinguished code",
			authHeader: "Bearer expired-token",
			setupMocks: func(ctrl *gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface) {
				mockVerifier := NewMockTokenVerifierInterface(ctrl)
				mockVerifier.EXPECT().Verify("expired-token", token.KindAccess).Return(nil, types.ErrTokenExpired)
				return mockVerifier, NewMockAccountLoaderInterface(ctrl)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedCode:       "TOKEN_EXPIRED",
		},
		{
			name:       "Account deleted since issuance - rejects request",
			authHeader: "Bearer valid-token",
			setupMocks: func(ctrl *gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface) {
				mockVerifier := NewMockTokenVerifierInterface(ctrl)
				mockVerifier.EXPECT().Verify("valid-token", token.KindAccess).Return(accessClaims("acc-gone"), nil)
				mockLoader := NewMockAccountLoaderInterface(ctrl)
				mockLoader.EXPECT().GetAccountByID(gomock.Any(), "acc-gone").Return(nil, storage.ErrNotFound)
				return mockVerifier, mockLoader
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedCode:       "UNAUTHENTICATED",
		},
		{
			name:       "Deactivated account - rejects request",
			authHeader: "Bearer valid-token",
			setupMocks: func(ctrl *gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface) {
				mockVerifier := NewMockTokenVerifierInterface(ctrl)
				mockVerifier.EXPECT().Verify("valid-token", token.KindAccess).Return(accessClaims("acc-2"), nil)
				mockLoader := NewMockAccountLoaderInterface(ctrl)
				mockLoader.EXPECT().GetAccountByID(gomock.Any(), "acc-2").Return(inactiveAccount, nil)
				return mockVerifier, mockLoader
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedCode:       "UNAUTHENTICATED",
		},
		{
			name:       "Valid token with active account",
			authHeader: "Bearer valid-token",
			setupMocks: func(ctrl *gomock.Controller) (TokenVerifierInterface, AccountLoaderInterface) {
				mockVerifier := NewMockTokenVerifierInterface(ctrl)
				mockVerifier.EXPECT().Verify("valid-token", token.KindAccess).Return(accessClaims("acc-1"), nil)
				mockLoader := NewMockAccountLoaderInterface(ctrl)
				mockLoader.EXPECT().GetAccountByID(gomock.Any(), "acc-1").Return(activeAccount, nil)
				return mockVerifier, mockLoader
			},
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			verifier, loader := tt.setupMocks(ctrl)
			middleware := NewMiddleware(verifier, loader, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())

			var gotPrincipal *Principal
			handler := middleware.Authenticate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if p, ok := PrincipalFromContext(r.Context()); ok {
					gotPrincipal = &p
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatusCode {
				t.Errorf("expected status %d, got %d", tt.expectedStatusCode, rec.Code)
			}

			if tt.expectedCode != "" {
				var body struct {
					Code string `json:"code"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("failed to decode error body: %v", err)
				}
				if body.Code != tt.expectedCode {
					t.Errorf("expected code %q, got %q", tt.expectedCode, body.Code)
				}
			}

			if tt.expectedStatusCode == http.StatusOK {
				if gotPrincipal == nil {
					t.Fatal("expected principal in context")
				}
				if gotPrincipal.ID() != "acc-1" {
					t.Errorf("expected principal acc-1, got %q", gotPrincipal.ID())
				}
			}
		})
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	tid := "tenant-1"
	p := Principal{Account: types.Account{ID: "acc-1", Role: types.RoleCompanyAdmin, TenantID: &tid}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithPrincipal(req.Context(), p)

	got, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal")
	}
	if got.ID() != "acc-1" || got.Role() != types.RoleCompanyAdmin {
		t.Errorf("unexpected principal: %+v", got)
	}
	if gotTid, ok := got.TenantID(); !ok || gotTid != "tenant-1" {
		t.Errorf("expected tenant-1, got %q/%v", gotTid, ok)
	}

	if _, ok := PrincipalFromContext(req.Context()); ok {
		t.Error("expected no principal on bare context")
	}
}
