// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invitation

import (
	"context"
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
	"github.com/teamtrait/identity-service/pkg/authorization"

	httptypes "github.com/teamtrait/identity-service/internal/http/types"
)

type API struct {
	service ServiceInterface
	auditor audit.RecorderInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

type createRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required"`
	TenantID string `json:"tenantId" validate:"omitempty,uuid"`
}

type invitationView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	TenantID  string     `json:"tenantId"`
	Role      types.Role `json:"role"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// createResponse carries the delivery outcome alongside the invitation, a
// failed mail never voids the row so the status alone cannot express it.
type createResponse struct {
	invitationView
	Delivered bool `json:"delivered"`
}

func viewOf(i *types.Invitation) invitationView {
	return invitationView{
		ID:        i.ID,
		Email:     i.Email,
		TenantID:  i.TenantID,
		Role:      i.Role,
		Status:    string(i.Status),
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
}

// RegisterEndpoints wires the admin surface. The router mounts this group
// behind the authentication gate, the admin role policy, and tenant scoping.
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Post("/invitations", a.create)
	mux.Get("/invitations", a.list)
	mux.Delete("/invitations/{id}", a.revoke)
}

// RegisterPublicEndpoints wires the unauthenticated token describe route
// used by the acceptance page.
func (a *API) RegisterPublicEndpoints(mux chi.Router) {
	mux.Get("/invitations/token/{token}", a.describe)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "invitation.API.create")
	defer span.End()

	var req createRequest
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

	tenantID, err := targetTenant(ctx, req.TenantID)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	principal, ok := authentication.PrincipalFromContext(ctx)
	if !ok {
		httptypes.WriteError(w, types.ErrUnauthenticated)
		return
	}

	created, delivered, err := a.service.Create(ctx, tenantID, principal.ID(), req.Email, role)
	if err != nil {
		a.logger.Debugf("invitation create failed: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "invitation.create", "invitation", created.ID)
	entry.TenantID = &created.TenantID
	entry.After = audit.Snapshot(viewOf(created))
	a.auditor.Record(ctx, entry)

	httptypes.WriteJSON(w, http.StatusCreated, createResponse{invitationView: viewOf(created), Delivered: delivered})
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "invitation.API.list")
	defer span.End()

	tenantID, err := targetTenant(ctx, "")
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	invitations, err := a.service.List(ctx, tenantID)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	views := make([]invitationView, 0, len(invitations))
	for _, i := range invitations {
		views = append(views, viewOf(i))
	}
	httptypes.WriteJSON(w, http.StatusOK, views)
}

func (a *API) revoke(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "invitation.API.revoke")
	defer span.End()

	scope, _ := authorization.TenantScopeFromContext(ctx)
	id := chi.URLParam(r, "id")

	if err := a.service.Revoke(ctx, scope, id); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	a.auditor.Record(ctx, audit.Entry(r, "invitation.revoke", "invitation", id))

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) describe(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "invitation.API.describe")
	defer span.End()

	public, err := a.service.Describe(ctx, chi.URLParam(r, "token"))
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, public)
}

// targetTenant picks the tenant a handler acts on: the resolved scope when
// confined, otherwise (super admins) an explicit target, which is required.
func targetTenant(ctx context.Context, explicit string) (string, error) {
	scope, ok := authorization.TenantScopeFromContext(ctx)
	if !ok {
		return "", types.ErrForbidden
	}
	if scope != "" {
		return scope, nil
	}
	if explicit != "" {
		return explicit, nil
	}
	return "", fmt.Errorf("tenantId is required: %w", types.ErrValidation)
}

func NewAPI(service ServiceInterface, auditor audit.RecorderInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	return &API{
		service: service,
		auditor: auditor,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
