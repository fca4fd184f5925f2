// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"

	httptypes "github.com/teamtrait/identity-service/internal/http/types"
)

const defaultListLimit = 100

type API struct {
	recorder RecorderInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RegisterEndpoints wires the audit trail read surface. The router mounts
// this behind the super admin policy.
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Get("/audit-entries", a.list)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "audit.API.list")
	defer span.End()

	var tenantID *string
	if tid := r.URL.Query().Get("tenantId"); tid != "" {
		tenantID = &tid
	}

	limit := uint64(defaultListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := a.recorder.List(ctx, tenantID, limit)
	if err != nil {
		a.logger.Errorf("failed to list audit entries: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, entries)
}

func NewAPI(recorder RecorderInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	return &API{
		recorder: recorder,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}
