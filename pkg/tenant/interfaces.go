// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"

	"github.com/teamtrait/identity-service/internal/types"
)

type ServiceInterface interface {
	Create(ctx context.Context, name string, purchasedSeats int) (*types.Tenant, error)
	Get(ctx context.Context, id string) (*types.Tenant, error)
	List(ctx context.Context) ([]*types.Tenant, error)
	Rename(ctx context.Context, id, name string) (*types.Tenant, error)
	UpdateLicense(ctx context.Context, id string, purchasedSeats int) (*types.Tenant, error)
	SetSubscriptionState(ctx context.Context, id string, state types.SubscriptionState) error
	Delete(ctx context.Context, id string) error

	ListMembers(ctx context.Context, tenantID string) ([]*types.Account, error)
	UpdateMemberRole(ctx context.Context, tenantID, accountID string, role types.Role) error
	RemoveMember(ctx context.Context, tenantID, accountID string) error
}

type StoreInterface interface {
	CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error)
	GetTenantByID(ctx context.Context, id string) (*types.Tenant, error)
	ListTenants(ctx context.Context) ([]*types.Tenant, error)
	UpdateTenant(ctx context.Context, t *types.Tenant, paths []string) error
	UpdateTenantLicense(ctx context.Context, id string, purchasedSeats int) error
	SetSubscriptionState(ctx context.Context, id string, state types.SubscriptionState) error
	ReleaseSeat(ctx context.Context, id string) error
	DeleteTenant(ctx context.Context, id string) error

	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
	ListAccountsByTenantID(ctx context.Context, tenantID string) ([]*types.Account, error)
	UpdateAccountRole(ctx context.Context, accountID string, role types.Role, tenantID *string) error
	SetAccountActive(ctx context.Context, accountID string, active bool) error
	BumpTokenGeneration(ctx context.Context, accountID string) error
}
