// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/teamtrait/identity-service/internal/types"
)

var invitationColumns = []string{
	"id", "email", "tenant_id", "inviter_id", "role", "token",
	"status", "expires_at", "created_at",
}

func scanInvitation(row sq.RowScanner) (*types.Invitation, error) {
	var i types.Invitation
	var role, status string
	err := row.Scan(
		&i.ID, &i.Email, &i.TenantID, &i.InviterID, &role, &i.Token,
		&status, &i.ExpiresAt, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.Role = types.Role(role)
	i.Status = types.InvitationStatus(status)
	return &i, nil
}

// CreateInvitation inserts a pending invitation. The insert is conditional
// on no live pending invitation existing for the same (email, tenant) pair,
// closing the duplicate-check-then-insert race in a single statement.
// Returns ErrDuplicateKey when a live pending invitation already exists.
func (s *Storage) CreateInvitation(ctx context.Context, i *types.Invitation) (*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateInvitation")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation ID: %w", err)
	}

	row := s.db.Statement(ctx).
		Insert("invitations").
		Columns("id", "email", "tenant_id", "inviter_id", "role", "token", "status", "expires_at").
		Select(sq.
			Select().
			Column(sq.Expr("?, ?, ?, ?, ?, ?, ?, ?",
				id.String(), i.Email, i.TenantID, i.InviterID,
				i.Role.String(), i.Token, string(types.InvitationPending), i.ExpiresAt)).
			Where(sq.Expr("NOT EXISTS (SELECT 1 FROM invitations WHERE email = ? AND tenant_id = ? AND status = 'pending' AND expires_at > NOW())",
				i.Email, i.TenantID))).
		Suffix("RETURNING " + columnList(invitationColumns)).
		QueryRowContext(ctx)

	created, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pending invitation already exists: %w", ErrDuplicateKey)
		}
		if IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("invitation references missing tenant or inviter: %w", ErrForeignKeyViolation)
		}
		return nil, fmt.Errorf("failed to insert invitation: %w", err)
	}

	return created, nil
}

func (s *Storage) GetInvitationByID(ctx context.Context, id string) (*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetInvitationByID")
	defer span.End()

	row := s.db.Statement(ctx).
		Select(invitationColumns...).
		From("invitations").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx)

	i, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return i, nil
}

func (s *Storage) GetInvitationByToken(ctx context.Context, token string) (*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetInvitationByToken")
	defer span.End()

	row := s.db.Statement(ctx).
		Select(invitationColumns...).
		From("invitations").
		Where(sq.Eq{"token": token}).
		QueryRowContext(ctx)

	i, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return i, nil
}

// GetLatestPendingInvitationByEmail returns the most recently created live
// pending invitation for the email across all tenants.
func (s *Storage) GetLatestPendingInvitationByEmail(ctx context.Context, email string, now time.Time) (*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetLatestPendingInvitationByEmail")
	defer span.End()

	row := s.db.Statement(ctx).
		Select(invitationColumns...).
		From("invitations").
		Where(sq.Eq{"email": email, "status": string(types.InvitationPending)}).
		Where(sq.Gt{"expires_at": now}).
		OrderBy("created_at DESC").
		Limit(1).
		QueryRowContext(ctx)

	i, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pending invitation: %w", err)
	}

	return i, nil
}

// MarkInvitationAccepted transitions pending → accepted. The predicate
// filters on pending and unexpired, so a second consume (or a consume of an
// aged-out row) reports ErrNotFound.
func (s *Storage) MarkInvitationAccepted(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.MarkInvitationAccepted")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("invitations").
		Set("status", string(types.InvitationAccepted)).
		Where(sq.Eq{"id": id, "status": string(types.InvitationPending)}).
		Where(sq.Expr("expires_at > NOW()")).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	return requireRowsAffected(res)
}

// MarkInvitationRevoked transitions pending → revoked.
func (s *Storage) MarkInvitationRevoked(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.MarkInvitationRevoked")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("invitations").
		Set("status", string(types.InvitationRevoked)).
		Where(sq.Eq{"id": id, "status": string(types.InvitationPending)}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}

	return requireRowsAffected(res)
}

func (s *Storage) ListInvitationsByTenantID(ctx context.Context, tenantID string) ([]*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListInvitationsByTenantID")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select(invitationColumns...).
		From("invitations").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("created_at DESC").
		QueryContext(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*types.Invitation
	for rows.Next() {
		i, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return invitations, nil
}
