// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/teamtrait/identity-service/internal/types"
)

var auditColumns = []string{
	"id", "actor_id", "tenant_id", "action", "entity_type", "entity_id",
	"before", "after", "remote_addr", "user_agent", "created_at",
}

// CreateAuditEntry appends one audit record. There is no update or delete
// path for this table.
func (s *Storage) CreateAuditEntry(ctx context.Context, e *types.AuditEntry) error {
	ctx, span := s.tracer.Start(ctx, "storage.CreateAuditEntry")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate audit entry ID: %w", err)
	}

	_, err = s.db.Statement(ctx).
		Insert("audit_entries").
		Columns("id", "actor_id", "tenant_id", "action", "entity_type", "entity_id",
			"before", "after", "remote_addr", "user_agent").
		Values(id.String(), e.ActorID, e.TenantID, e.Action, e.EntityType, e.EntityID,
			[]byte(e.Before), []byte(e.After), e.RemoteAddr, e.UserAgent).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

func (s *Storage) ListAuditEntries(ctx context.Context, tenantID *string, limit uint64) ([]*types.AuditEntry, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListAuditEntries")
	defer span.End()

	query := s.db.Statement(ctx).
		Select(auditColumns...).
		From("audit_entries").
		OrderBy("created_at DESC").
		Limit(limit)

	if tenantID != nil {
		query = query.Where(sq.Eq{"tenant_id": *tenantID})
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		var before, after []byte
		if err := rows.Scan(
			&e.ID, &e.ActorID, &e.TenantID, &e.Action, &e.EntityType, &e.EntityID,
			&before, &after, &e.RemoteAddr, &e.UserAgent, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Before = before
		e.After = after
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
