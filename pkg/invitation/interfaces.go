// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invitation

import (
	"context"
	"time"

	"github.com/teamtrait/identity-service/internal/types"
)

type ServiceInterface interface {
	// Create issues a pending invitation for an email into a tenant. The
	// flag reports whether the notification mail was delivered.
	Create(ctx context.Context, tenantID, inviterID, email string, role types.Role) (*types.Invitation, bool, error)
	// Revoke cancels a pending invitation. An empty scope means unrestricted.
	Revoke(ctx context.Context, scope, id string) error
	// Describe resolves an invitation token into its public view.
	Describe(ctx context.Context, token string) (*PublicInvitation, error)
	// List returns the tenant's invitations with their effective status.
	List(ctx context.Context, tenantID string) ([]*types.Invitation, error)
}

type StoreInterface interface {
	ActiveAccountExistsInTenant(ctx context.Context, email, tenantID string) (bool, error)
	GetTenantByID(ctx context.Context, id string) (*types.Tenant, error)
	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
	CreateInvitation(ctx context.Context, i *types.Invitation) (*types.Invitation, error)
	GetInvitationByID(ctx context.Context, id string) (*types.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*types.Invitation, error)
	MarkInvitationRevoked(ctx context.Context, id string) error
	ListInvitationsByTenantID(ctx context.Context, tenantID string) ([]*types.Invitation, error)
}

type MailerInterface interface {
	SendInvitation(ctx context.Context, email, tenantName, inviterName, link string) error
}

// PublicInvitation is the sanitized view an invitee sees before accepting.
// The token itself and internal ids are never echoed back.
type PublicInvitation struct {
	Email       string     `json:"email"`
	TenantName  string     `json:"tenantName"`
	InviterName string     `json:"inviterName"`
	Role        types.Role `json:"role"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}
