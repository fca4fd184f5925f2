// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/audit"
	"github.com/teamtrait/identity-service/pkg/authentication"
)

func newTestAPI(ctrl *gomock.Controller, service ServiceInterface) (*API, *audit.MockRecorderInterface) {
	auditor := audit.NewMockRecorderInterface(ctrl)
	api := NewAPI(service, auditor,
		tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	return api, auditor
}

func adminRequest(r *http.Request, accountID string) *http.Request {
	tid := "tenant-1"
	ctx := authentication.WithPrincipal(r.Context(), authentication.Principal{
		Account: types.Account{ID: accountID, Role: types.RoleCompanyAdmin, TenantID: &tid, Active: true},
	})
	return r.WithContext(ctx)
}

func TestCreateTenantHandler(t *testing.T) {
	t.Run("valid request creates and audits", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockServiceInterface(ctrl)
		service.EXPECT().Create(gomock.Any(), "Acme", 10).
			Return(&types.Tenant{ID: "tenant-1", Name: "Acme", Slug: "acme", PurchasedSeats: 10, Subscription: types.SubscriptionTrial}, nil)

		api, auditor := newTestAPI(ctrl, service)
		auditor.EXPECT().Record(gomock.Any(), gomock.Any())

		mux := chi.NewRouter()
		api.RegisterAdminEndpoints(mux)

		req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(`{"name":"Acme","purchasedSeats":10}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var view tenantView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if view.Slug != "acme" || view.PurchasedSeats != 10 {
			t.Errorf("unexpected view: %+v", view)
		}
	})

	t.Run("missing seats is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		api, _ := newTestAPI(ctrl, NewMockServiceInterface(ctrl))
		mux := chi.NewRouter()
		api.RegisterAdminEndpoints(mux)

		req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(`{"name":"Acme"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestUpdateLicenseHandler(t *testing.T) {
	t.Run("shrink below consumed seats maps to quota conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockServiceInterface(ctrl)
		service.EXPECT().UpdateLicense(gomock.Any(), "tenant-1", 3).
			Return(nil, storage.ErrSeatsExhausted)

		api, _ := newTestAPI(ctrl, service)
		mux := chi.NewRouter()
		api.RegisterAdminEndpoints(mux)

		req := httptest.NewRequest(http.MethodPatch, "/tenants/tenant-1/license", strings.NewReader(`{"purchasedSeats":3}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		var resp struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Code != "QUOTA_EXCEEDED" {
			t.Errorf("expected QUOTA_EXCEEDED, got %q", resp.Code)
		}
	})

	t.Run("valid update is audited", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockServiceInterface(ctrl)
		service.EXPECT().UpdateLicense(gomock.Any(), "tenant-1", 50).
			Return(&types.Tenant{ID: "tenant-1", PurchasedSeats: 50}, nil)

		api, auditor := newTestAPI(ctrl, service)
		auditor.EXPECT().Record(gomock.Any(), gomock.Any())

		mux := chi.NewRouter()
		api.RegisterAdminEndpoints(mux)

		req := httptest.NewRequest(http.MethodPatch, "/tenants/tenant-1/license", strings.NewReader(`{"purchasedSeats":50}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestGetTenantHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockServiceInterface(ctrl)
	service.EXPECT().Get(gomock.Any(), "tenant-1").
		Return(&types.Tenant{ID: "tenant-1", Name: "Acme", Slug: "acme"}, nil)

	api, _ := newTestAPI(ctrl, service)
	mux := chi.NewRouter()
	api.RegisterEndpoints(mux)

	req := httptest.NewRequest(http.MethodGet, "/tenants/tenant-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, adminRequest(req, "admin-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUpdateMemberRoleHandler(t *testing.T) {
	t.Run("unknown role is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		api, _ := newTestAPI(ctrl, NewMockServiceInterface(ctrl))
		mux := chi.NewRouter()
		api.RegisterEndpoints(mux)

		req := httptest.NewRequest(http.MethodPatch, "/tenants/tenant-1/members/acc-2", strings.NewReader(`{"role":"owner"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, adminRequest(req, "admin-1"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("valid promotion is audited", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockServiceInterface(ctrl)
		service.EXPECT().UpdateMemberRole(gomock.Any(), "tenant-1", "acc-2", types.RoleCompanyAdmin).Return(nil)

		api, auditor := newTestAPI(ctrl, service)
		auditor.EXPECT().Record(gomock.Any(), gomock.Any())

		mux := chi.NewRouter()
		api.RegisterEndpoints(mux)

		req := httptest.NewRequest(http.MethodPatch, "/tenants/tenant-1/members/acc-2", strings.NewReader(`{"role":"company_admin"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, adminRequest(req, "admin-1"))

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestRemoveMemberHandler(t *testing.T) {
	t.Run("admins cannot remove themselves", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		api, _ := newTestAPI(ctrl, NewMockServiceInterface(ctrl))
		mux := chi.NewRouter()
		api.RegisterEndpoints(mux)

		req := httptest.NewRequest(http.MethodDelete, "/tenants/tenant-1/members/admin-1", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, adminRequest(req, "admin-1"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("removal is audited", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockServiceInterface(ctrl)
		service.EXPECT().RemoveMember(gomock.Any(), "tenant-1", "acc-2").Return(nil)

		api, auditor := newTestAPI(ctrl, service)
		auditor.EXPECT().Record(gomock.Any(), gomock.Any())

		mux := chi.NewRouter()
		api.RegisterEndpoints(mux)

		req := httptest.NewRequest(http.MethodDelete, "/tenants/tenant-1/members/acc-2", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, adminRequest(req, "admin-1"))

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})
}
