// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"

	"github.com/teamtrait/identity-service/internal/types"
)

type RecorderInterface interface {
	// Record persists the entry asynchronously. It never blocks the caller
	// and never fails the surrounding operation.
	Record(ctx context.Context, entry types.AuditEntry)
	// List returns recent entries, optionally filtered to one tenant.
	List(ctx context.Context, tenantID *string, limit uint64) ([]*types.AuditEntry, error)
}

type StoreInterface interface {
	CreateAuditEntry(ctx context.Context, e *types.AuditEntry) error
	ListAuditEntries(ctx context.Context, tenantID *string, limit uint64) ([]*types.AuditEntry, error)
}
