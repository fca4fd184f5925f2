// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package identity

import (
	"context"
	"time"

	"github.com/teamtrait/identity-service/internal/types"
)

type ResolverInterface interface {
	// Resolve maps an authenticated external profile onto a local account,
	// creating or linking one as needed.
	Resolve(ctx context.Context, profile types.ExternalProfile) (*types.Account, error)
}

type StoreInterface interface {
	GetAccountByExternalID(ctx context.Context, provider types.Provider, externalID string) (*types.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*types.Account, error)
	LinkExternalID(ctx context.Context, accountID string, provider types.Provider, externalID string) error
	StampLogin(ctx context.Context, accountID string, at time.Time) error
	CreateAccount(ctx context.Context, a *types.Account) (*types.Account, error)
	GetLatestPendingInvitationByEmail(ctx context.Context, email string, now time.Time) (*types.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id string) error
	ConsumeSeat(ctx context.Context, tenantID string) error
}

type ProviderInterface interface {
	Name() types.Provider
	// AuthCodeURL builds the redirect to the provider's consent screen.
	AuthCodeURL(state string) string
	// Exchange trades the authorization code for a normalized profile.
	Exchange(ctx context.Context, code string) (*types.ExternalProfile, error)
}
