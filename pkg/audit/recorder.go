// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package audit writes an append-only trail of security-relevant mutations.
// Recording is fire and forget, a failed write is logged and dropped rather
// than failing the operation that produced it.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/authentication"
)

const writeTimeout = 5 * time.Second

type Recorder struct {
	storage StoreInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface

	wg sync.WaitGroup
}

// Record persists the entry in the background. The actor and tenant are
// taken from the request principal when the entry does not carry them. The
// write runs on a fresh context so it survives request cancellation and
// stays out of the request transaction.
func (r *Recorder) Record(ctx context.Context, entry types.AuditEntry) {
	_, span := r.tracer.Start(ctx, "audit.Recorder.Record")
	defer span.End()

	if entry.ActorID == nil {
		if principal, ok := authentication.PrincipalFromContext(ctx); ok {
			id := principal.ID()
			entry.ActorID = &id
			if entry.TenantID == nil {
				if tid, ok := principal.TenantID(); ok {
					entry.TenantID = &tid
				}
			}
		}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := r.storage.CreateAuditEntry(writeCtx, &entry); err != nil {
			r.logger.Errorf("failed to record audit entry %s/%s: %v", entry.Action, entry.EntityID, err)
		}
	}()
}

func (r *Recorder) List(ctx context.Context, tenantID *string, limit uint64) ([]*types.AuditEntry, error) {
	ctx, span := r.tracer.Start(ctx, "audit.Recorder.List")
	defer span.End()

	return r.storage.ListAuditEntries(ctx, tenantID, limit)
}

// Flush blocks until all in-flight writes have finished, used on shutdown
// and in tests.
func (r *Recorder) Flush() {
	r.wg.Wait()
}

func NewRecorder(storage StoreInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Recorder {
	return &Recorder{
		storage: storage,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
