// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/internal/validation"
	"github.com/teamtrait/identity-service/pkg/audit"
	"github.com/teamtrait/identity-service/pkg/authentication"

	httptypes "github.com/teamtrait/identity-service/internal/http/types"
)

type API struct {
	service ServiceInterface
	auditor audit.RecorderInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

type createTenantRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	PurchasedSeats int    `json:"purchasedSeats" validate:"required,min=1"`
}

type renameTenantRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type licenseRequest struct {
	PurchasedSeats int `json:"purchasedSeats" validate:"required,min=1"`
}

type subscriptionRequest struct {
	State string `json:"state" validate:"required"`
}

type memberRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type tenantView struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Slug           string                  `json:"slug"`
	PurchasedSeats int                     `json:"purchasedSeats"`
	ConsumedSeats  int                     `json:"consumedSeats"`
	Subscription   types.SubscriptionState `json:"subscription"`
	CreatedAt      time.Time               `json:"createdAt"`
}

type memberView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        types.Role `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func viewOf(t *types.Tenant) tenantView {
	return tenantView{
		ID:             t.ID,
		Name:           t.Name,
		Slug:           t.Slug,
		PurchasedSeats: t.PurchasedSeats,
		ConsumedSeats:  t.ConsumedSeats,
		Subscription:   t.Subscription,
		CreatedAt:      t.CreatedAt,
	}
}

func memberViewOf(a *types.Account) memberView {
	return memberView{
		ID:          a.ID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Role:        a.Role,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

// RegisterEndpoints wires the tenant-scoped admin surface. The router mounts
// this group behind the authentication gate, the admin role policy, and
// tenant scoping over the tenantID path parameter.
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Get("/tenants/{tenantID}", a.get)
	mux.Patch("/tenants/{tenantID}", a.rename)
	mux.Get("/tenants/{tenantID}/members", a.listMembers)
	mux.Patch("/tenants/{tenantID}/members/{accountID}", a.updateMemberRole)
	mux.Delete("/tenants/{tenantID}/members/{accountID}", a.removeMember)
}

// RegisterAdminEndpoints wires the platform operations reserved for super
// admins: provisioning, licensing, billing state, and teardown.
func (a *API) RegisterAdminEndpoints(mux chi.Router) {
	mux.Post("/tenants", a.create)
	mux.Get("/tenants", a.list)
	mux.Patch("/tenants/{tenantID}/license", a.updateLicense)
	mux.Patch("/tenants/{tenantID}/subscription", a.setSubscription)
	mux.Delete("/tenants/{tenantID}", a.remove)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.create")
	defer span.End()

	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	created, err := a.service.Create(ctx, req.Name, req.PurchasedSeats)
	if err != nil {
		a.logger.Debugf("tenant create failed: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "tenant.create", "tenant", created.ID)
	entry.After = audit.Snapshot(viewOf(created))
	a.auditor.Record(ctx, entry)

	httptypes.WriteJSON(w, http.StatusCreated, viewOf(created))
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.list")
	defer span.End()

	tenants, err := a.service.List(ctx)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	views := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, viewOf(t))
	}
	httptypes.WriteJSON(w, http.StatusOK, views)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.get")
	defer span.End()

	tenant, err := a.service.Get(ctx, chi.URLParam(r, "tenantID"))
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, viewOf(tenant))
}

func (a *API) rename(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.rename")
	defer span.End()

	var req renameTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	tenant, err := a.service.Rename(ctx, chi.URLParam(r, "tenantID"), req.Name)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "tenant.rename", "tenant", tenant.ID)
	entry.After = audit.Snapshot(map[string]string{"name": tenant.Name})
	a.auditor.Record(ctx, entry)

	httptypes.WriteJSON(w, http.StatusOK, viewOf(tenant))
}

func (a *API) updateLicense(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.updateLicense")
	defer span.End()

	var req licenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	tenant, err := a.service.UpdateLicense(ctx, chi.URLParam(r, "tenantID"), req.PurchasedSeats)
	if err != nil {
		a.logger.Debugf("license update failed: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "tenant.license.update", "tenant", tenant.ID)
	entry.After = audit.Snapshot(map[string]int{"purchasedSeats": tenant.PurchasedSeats})
	a.auditor.Record(ctx, entry)

	httptypes.WriteJSON(w, http.StatusOK, viewOf(tenant))
}

func (a *API) setSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.setSubscription")
	defer span.End()

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := a.service.SetSubscriptionState(ctx, tenantID, types.SubscriptionState(req.State)); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "tenant.subscription.update", "tenant", tenantID)
	entry.After = audit.Snapshot(map[string]string{"state": req.State})
	a.auditor.Record(ctx, entry)

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.remove")
	defer span.End()

	tenantID := chi.URLParam(r, "tenantID")
	if err := a.service.Delete(ctx, tenantID); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	a.auditor.Record(ctx, audit.Entry(r, "tenant.delete", "tenant", tenantID))

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.listMembers")
	defer span.End()

	members, err := a.service.ListMembers(ctx, chi.URLParam(r, "tenantID"))
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberViewOf(m))
	}
	httptypes.WriteJSON(w, http.StatusOK, views)
}

func (a *API) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.updateMemberRole")
	defer span.End()

	var req memberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	role, err := types.ParseRole(req.Role)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	accountID := chi.URLParam(r, "accountID")

	if err := a.service.UpdateMemberRole(ctx, tenantID, accountID, role); err != nil {
		a.logger.Debugf("member role update failed: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "tenant.member.role_update", "account", accountID)
	entry.After = audit.Snapshot(map[string]string{"role": role.String()})
	a.auditor.Record(ctx, entry)

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) removeMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "tenant.API.removeMember")
	defer span.End()

	tenantID := chi.URLParam(r, "tenantID")
	accountID := chi.URLParam(r, "accountID")

	principal, ok := authentication.PrincipalFromContext(ctx)
	if !ok {
		httptypes.WriteError(w, types.ErrUnauthenticated)
		return
	}
	if principal.ID() == accountID {
		httptypes.WriteError(w, fmt.Errorf("cannot remove your own account: %w", types.ErrValidation))
		return
	}

	if err := a.service.RemoveMember(ctx, tenantID, accountID); err != nil {
		a.logger.Debugf("member removal failed: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	a.auditor.Record(ctx, audit.Entry(r, "tenant.member.remove", "account", accountID))

	w.WriteHeader(http.StatusNoContent)
}

func NewAPI(
	service ServiceInterface,
	auditor audit.RecorderInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *API {
	return &API{
		service: service,
		auditor: auditor,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
