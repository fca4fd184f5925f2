// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/teamtrait/identity-service/internal/types"
)

var tenantColumns = []string{
	"id", "name", "slug", "purchased_seats", "consumed_seats",
	"subscription_state", "created_at", "updated_at",
}

func scanTenant(row sq.RowScanner) (*types.Tenant, error) {
	var t types.Tenant
	var state string
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.PurchasedSeats, &t.ConsumedSeats,
		&state, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Subscription = types.SubscriptionState(state)
	return &t, nil
}

func (s *Storage) CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateTenant")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tenant ID: %w", err)
	}

	row := s.db.Statement(ctx).
		Insert("tenants").
		Columns("id", "name", "slug", "purchased_seats", "consumed_seats", "subscription_state").
		Values(id.String(), t.Name, t.Slug, t.PurchasedSeats, t.ConsumedSeats, string(t.Subscription)).
		Suffix("RETURNING " + columnList(tenantColumns)).
		QueryRowContext(ctx)

	created, err := scanTenant(row)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, WrapDuplicateKeyError(err, "tenant slug already taken")
		}
		return nil, fmt.Errorf("failed to insert tenant: %w", err)
	}

	return created, nil
}

func (s *Storage) GetTenantByID(ctx context.Context, id string) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetTenantByID")
	defer span.End()

	row := s.db.Statement(ctx).
		Select(tenantColumns...).
		From("tenants").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return t, nil
}

func (s *Storage) ListTenants(ctx context.Context) ([]*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListTenants")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select(tenantColumns...).
		From("tenants").
		OrderBy("created_at").
		QueryContext(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*types.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

// UpdateTenant updates the fields named in paths, PATCH style.
func (s *Storage) UpdateTenant(ctx context.Context, t *types.Tenant, paths []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateTenant")
	defer span.End()

	if len(paths) == 0 {
		return nil
	}

	updateMap := make(map[string]interface{})
	for _, p := range paths {
		switch p {
		case "name":
			updateMap["name"] = t.Name
		case "slug":
			updateMap["slug"] = t.Slug
		}
	}

	if len(updateMap) == 0 {
		return nil
	}
	updateMap["updated_at"] = sq.Expr("NOW()")

	res, err := s.db.Statement(ctx).
		Update("tenants").
		SetMap(updateMap).
		Where(sq.Eq{"id": t.ID}).
		ExecContext(ctx)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return WrapDuplicateKeyError(err, "tenant slug already taken")
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	return requireRowsAffected(res)
}

// UpdateTenantLicense sets the purchased seat count. The predicate refuses
// to drop purchased seats below the consumed count.
func (s *Storage) UpdateTenantLicense(ctx context.Context, id string, purchasedSeats int) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateTenantLicense")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("tenants").
		Set("purchased_seats", purchasedSeats).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.LtOrEq{"consumed_seats": purchasedSeats}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to update tenant license: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		// Either the tenant is missing or the new count is below the
		// consumed seats; disambiguate for the caller.
		if _, err := s.GetTenantByID(ctx, id); err != nil {
			return err
		}
		return ErrSeatsExhausted
	}

	return nil
}

func (s *Storage) SetSubscriptionState(ctx context.Context, id string, state types.SubscriptionState) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetSubscriptionState")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("tenants").
		Set("subscription_state", string(state)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to set subscription state: %w", err)
	}

	return requireRowsAffected(res)
}

// ConsumeSeat atomically takes one seat. The quota check and the increment
// are a single conditional update, so concurrent accepts cannot oversubscribe
// the tenant.
func (s *Storage) ConsumeSeat(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.ConsumeSeat")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("tenants").
		Set("consumed_seats", sq.Expr("consumed_seats + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("consumed_seats < purchased_seats")).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to consume seat: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.GetTenantByID(ctx, id); err != nil {
			return err
		}
		return ErrSeatsExhausted
	}

	return nil
}

func (s *Storage) ReleaseSeat(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.ReleaseSeat")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("tenants").
		Set("consumed_seats", sq.Expr("consumed_seats - 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("consumed_seats > 0")).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}

	return requireRowsAffected(res)
}

// DeleteTenant removes the tenant; accounts and invitations cascade via
// foreign keys.
func (s *Storage) DeleteTenant(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteTenant")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Delete("tenants").
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	return requireRowsAffected(res)
}
