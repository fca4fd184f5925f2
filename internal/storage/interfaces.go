// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"time"

	"github.com/teamtrait/identity-service/internal/types"
)

type StorageInterface interface {
	CreateAccount(ctx context.Context, a *types.Account) (*types.Account, error)
	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*types.Account, error)
	GetAccountByExternalID(ctx context.Context, provider types.Provider, externalID string) (*types.Account, error)
	LinkExternalID(ctx context.Context, accountID string, provider types.Provider, externalID string) error
	StampLogin(ctx context.Context, accountID string, at time.Time) error
	UpdateAccountRole(ctx context.Context, accountID string, role types.Role, tenantID *string) error
	SetAccountActive(ctx context.Context, accountID string, active bool) error
	BumpTokenGeneration(ctx context.Context, accountID string) error
	ActiveAccountExistsInTenant(ctx context.Context, email, tenantID string) (bool, error)
	ListAccountsByTenantID(ctx context.Context, tenantID string) ([]*types.Account, error)

	CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error)
	GetTenantByID(ctx context.Context, id string) (*types.Tenant, error)
	ListTenants(ctx context.Context) ([]*types.Tenant, error)
	UpdateTenant(ctx context.Context, t *types.Tenant, paths []string) error
	UpdateTenantLicense(ctx context.Context, id string, purchasedSeats int) error
	SetSubscriptionState(ctx context.Context, id string, state types.SubscriptionState) error
	ConsumeSeat(ctx context.Context, id string) error
	ReleaseSeat(ctx context.Context, id string) error
	DeleteTenant(ctx context.Context, id string) error

	CreateInvitation(ctx context.Context, i *types.Invitation) (*types.Invitation, error)
	GetInvitationByID(ctx context.Context, id string) (*types.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*types.Invitation, error)
	GetLatestPendingInvitationByEmail(ctx context.Context, email string, now time.Time) (*types.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id string) error
	MarkInvitationRevoked(ctx context.Context, id string) error
	ListInvitationsByTenantID(ctx context.Context, tenantID string) ([]*types.Invitation, error)

	CreateAuditEntry(ctx context.Context, e *types.AuditEntry) error
	ListAuditEntries(ctx context.Context, tenantID *string, limit uint64) ([]*types.AuditEntry, error)
}
