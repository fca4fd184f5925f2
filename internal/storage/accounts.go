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

var accountColumns = []string{
	"id", "email", "password_hash", "google_id", "github_id",
	"first_name", "last_name", "avatar_url", "role", "tenant_id",
	"active", "email_verified", "token_generation", "last_login_at",
	"created_at", "updated_at",
}

func scanAccount(row sq.RowScanner) (*types.Account, error) {
	var a types.Account
	var role string
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.GoogleID, &a.GitHubID,
		&a.FirstName, &a.LastName, &a.AvatarURL, &role, &a.TenantID,
		&a.Active, &a.EmailVerified, &a.TokenGeneration, &a.LastLoginAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = types.Role(role)
	return &a, nil
}

// externalIDColumn maps a provider to its identity reference column. Each
// column carries a unique index, enforcing at most one account per
// external identity.
func externalIDColumn(p types.Provider) (string, error) {
	switch p {
	case types.ProviderGoogle:
		return "google_id", nil
	case types.ProviderGitHub:
		return "github_id", nil
	}
	return "", fmt.Errorf("unknown identity provider %q", p)
}

func (s *Storage) CreateAccount(ctx context.Context, a *types.Account) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateAccount")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account ID: %w", err)
	}

	row := s.db.Statement(ctx).
		Insert("accounts").
		Columns("id", "email", "password_hash", "google_id", "github_id",
			"first_name", "last_name", "avatar_url", "role", "tenant_id",
			"active", "email_verified", "token_generation", "last_login_at").
		Values(id.String(), a.Email, a.PasswordHash, a.GoogleID, a.GitHubID,
			a.FirstName, a.LastName, a.AvatarURL, a.Role.String(), a.TenantID,
			a.Active, a.EmailVerified, a.TokenGeneration, a.LastLoginAt).
		Suffix("RETURNING " + columnList(accountColumns)).
		QueryRowContext(ctx)

	created, err := scanAccount(row)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, WrapDuplicateKeyError(err, "account already exists")
		}
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return created, nil
}

func (s *Storage) GetAccountByID(ctx context.Context, id string) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetAccountByID")
	defer span.End()

	return s.getAccount(ctx, sq.Eq{"id": id})
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetAccountByEmail")
	defer span.End()

	return s.getAccount(ctx, sq.Eq{"email": email})
}

func (s *Storage) GetAccountByExternalID(ctx context.Context, provider types.Provider, externalID string) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetAccountByExternalID")
	defer span.End()

	column, err := externalIDColumn(provider)
	if err != nil {
		return nil, err
	}

	return s.getAccount(ctx, sq.Eq{column: externalID})
}

func (s *Storage) getAccount(ctx context.Context, pred interface{}) (*types.Account, error) {
	row := s.db.Statement(ctx).
		Select(accountColumns...).
		From("accounts").
		Where(pred).
		QueryRowContext(ctx)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return a, nil
}

func (s *Storage) LinkExternalID(ctx context.Context, accountID string, provider types.Provider, externalID string) error {
	ctx, span := s.tracer.Start(ctx, "storage.LinkExternalID")
	defer span.End()

	column, err := externalIDColumn(provider)
	if err != nil {
		return err
	}

	res, err := s.db.Statement(ctx).
		Update("accounts").
		Set(column, externalID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": accountID}).
		ExecContext(ctx)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return WrapDuplicateKeyError(err, "external identity already linked")
		}
		return fmt.Errorf("failed to link external identity: %w", err)
	}

	return requireRowsAffected(res)
}

func (s *Storage) StampLogin(ctx context.Context, accountID string, at time.Time) error {
	ctx, span := s.tracer.Start(ctx, "storage.StampLogin")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("accounts").
		Set("last_login_at", at).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": accountID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to stamp login: %w", err)
	}

	return requireRowsAffected(res)
}

func (s *Storage) UpdateAccountRole(ctx context.Context, accountID string, role types.Role, tenantID *string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateAccountRole")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("accounts").
		Set("role", role.String()).
		Set("tenant_id", tenantID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": accountID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to update account role: %w", err)
	}

	return requireRowsAffected(res)
}

func (s *Storage) SetAccountActive(ctx context.Context, accountID string, active bool) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetAccountActive")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("accounts").
		Set("active", active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": accountID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to set account active flag: %w", err)
	}

	return requireRowsAffected(res)
}

// BumpTokenGeneration invalidates all outstanding refresh tokens for the
// account by incrementing the generation the refresh flow compares against.
func (s *Storage) BumpTokenGeneration(ctx context.Context, accountID string) error {
	ctx, span := s.tracer.Start(ctx, "storage.BumpTokenGeneration")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("accounts").
		Set("token_generation", sq.Expr("token_generation + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": accountID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to bump token generation: %w", err)
	}

	return requireRowsAffected(res)
}

func (s *Storage) ActiveAccountExistsInTenant(ctx context.Context, email, tenantID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ActiveAccountExistsInTenant")
	defer span.End()

	var exists bool
	err := s.db.Statement(ctx).
		Select().
		Column(sq.Expr("EXISTS(SELECT 1 FROM accounts WHERE email = ? AND tenant_id = ? AND active)", email, tenantID)).
		QueryRowContext(ctx).
		Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}

	return exists, nil
}

func (s *Storage) ListAccountsByTenantID(ctx context.Context, tenantID string) ([]*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListAccountsByTenantID")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("created_at").
		QueryContext(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*types.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return accounts, nil
}

func columnList(columns []string) string {
	out := ""
	for i, c := range columns {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func requireRowsAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
