// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invitation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/audit"
	"github.com/teamtrait/identity-service/pkg/authentication"
	"github.com/teamtrait/identity-service/pkg/authorization"
)

func newTestAPI(ctrl *gomock.Controller, service ServiceInterface) (*API, *audit.MockRecorderInterface) {
	auditor := audit.NewMockRecorderInterface(ctrl)
	api := NewAPI(service, auditor, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	return api, auditor
}

func adminContextRequest(r *http.Request, accountID, scope string) *http.Request {
	ctx := authentication.WithPrincipal(r.Context(), authentication.Principal{
		Account: types.Account{ID: accountID, Role: types.RoleCompanyAdmin, TenantID: &scope, Active: true},
	})
	ctx = authorization.WithTenantScope(ctx, scope)
	return r.WithContext(ctx)
}

func TestCreateHandler(t *testing.T) {
	tests := []struct {
		name               string
		body               string
		setupMocks         func(*gomock.Controller) ServiceInterface
		audited            bool
		expectedStatusCode int
	}{
		{
			name: "valid request",
			body: `{"email":"new@example.com","role":"user"}`,
			setupMocks: func(ctrl *gomock.Controller) ServiceInterface {
				service := NewMockServiceInterface(ctrl)
				service.EXPECT().Create(gomock.Any(), "tenant-1", "admin-1", "new@example.com", types.RoleUser).
					Return(&types.Invitation{ID: "inv-1", Email: "new@example.com", TenantID: "tenant-1", Role: types.RoleUser, Status: types.InvitationPending, ExpiresAt: time.Now().Add(time.Hour)}, true, nil)
				return service
			},
			audited:            true,
			expectedStatusCode: http.StatusCreated,
		},
		{
			name: "malformed email",
			body: `{"email":"not-an-email","role":"user"}`,
			setupMocks: func(ctrl *gomock.Controller) ServiceInterface {
				return NewMockServiceInterface(ctrl)
			},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name: "unknown role",
			body: `{"email":"new@example.com","role":"owner"}`,
			setupMocks: func(ctrl *gomock.Controller) ServiceInterface {
				return NewMockServiceInterface(ctrl)
			},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name: "quota exceeded maps to conflict",
			body: `{"email":"new@example.com","role":"user"}`,
			setupMocks: func(ctrl *gomock.Controller) ServiceInterface {
				service := NewMockServiceInterface(ctrl)
				service.EXPECT().Create(gomock.Any(), "tenant-1", "admin-1", "new@example.com", types.RoleUser).
					Return(nil, false, types.ErrQuotaExceeded)
				return service
			},
			expectedStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			api, auditor := newTestAPI(ctrl, tt.setupMocks(ctrl))
			if tt.audited {
				auditor.EXPECT().Record(gomock.Any(), gomock.Any()).Do(
					func(_ context.Context, entry types.AuditEntry) {
						if entry.Action != "invitation.create" || entry.EntityID != "inv-1" {
							t.Errorf("unexpected audit entry %s/%s", entry.Action, entry.EntityID)
						}
					})
			}
			mux := chi.NewRouter()
			api.RegisterEndpoints(mux)

			req := httptest.NewRequest(http.MethodPost, "/invitations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req = adminContextRequest(req, "admin-1", "tenant-1")
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatusCode {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatusCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateHandlerReportsFailedDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Create(gomock.Any(), "tenant-1", "admin-1", "new@example.com", types.RoleUser).
		Return(&types.Invitation{ID: "inv-1", Email: "new@example.com", TenantID: "tenant-1", Role: types.RoleUser, Status: types.InvitationPending}, false, nil)

	api, auditor := newTestAPI(ctrl, service)
	auditor.EXPECT().Record(gomock.Any(), gomock.Any())

	mux := chi.NewRouter()
	api.RegisterEndpoints(mux)

	req := httptest.NewRequest(http.MethodPost, "/invitations", strings.NewReader(`{"email":"new@example.com","role":"user"}`))
	req.Header.Set("Content-Type", "application/json")
	req = adminContextRequest(req, "admin-1", "tenant-1")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp createResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Delivered {
		t.Error("expected delivered=false when the mail did not go out")
	}
}

func TestRevokeHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Revoke(gomock.Any(), "tenant-1", "inv-1").Return(nil)

	api, auditor := newTestAPI(ctrl, service)
	auditor.EXPECT().Record(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, entry types.AuditEntry) {
			if entry.Action != "invitation.revoke" || entry.EntityID != "inv-1" {
				t.Errorf("unexpected audit entry %s/%s", entry.Action, entry.EntityID)
			}
		})
	mux := chi.NewRouter()
	api.RegisterEndpoints(mux)

	req := httptest.NewRequest(http.MethodDelete, "/invitations/inv-1", nil)
	req = adminContextRequest(req, "admin-1", "tenant-1")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestDescribeHandler(t *testing.T) {
	tests := []struct {
		name               string
		serviceErr         error
		expectedStatusCode int
	}{
		{"live token", nil, http.StatusOK},
		{"unknown token", storage.ErrNotFound, http.StatusNotFound},
		{"expired token", types.ErrExpired, http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockServiceInterface(ctrl)
			if tt.serviceErr != nil {
				service.EXPECT().Describe(gomock.Any(), "tok-1").Return(nil, tt.serviceErr)
			} else {
				service.EXPECT().Describe(gomock.Any(), "tok-1").
					Return(&PublicInvitation{Email: "new@example.com", TenantName: "Acme", Role: types.RoleUser}, nil)
			}

			api, _ := newTestAPI(ctrl, service)
			mux := chi.NewRouter()
			api.RegisterPublicEndpoints(mux)

			req := httptest.NewRequest(http.MethodGet, "/invitations/token/tok-1", nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatusCode {
				t.Errorf("expected status %d, got %d", tt.expectedStatusCode, rec.Code)
			}
		})
	}
}
