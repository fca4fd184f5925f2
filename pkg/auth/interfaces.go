// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"time"

	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/token"
)

type ServiceInterface interface {
	Register(ctx context.Context, p RegisterParams) (*types.Account, *token.Pair, error)
	Login(ctx context.Context, email, password string) (*types.Account, *token.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Pair, error)
	Logout(ctx context.Context, accountID string) error
	LoginURL(provider types.Provider, state string) (string, error)
	Callback(ctx context.Context, provider types.Provider, code string) (*types.Account, *token.Pair, error)
}

// RegisterParams carries a password registration. InvitationToken is
// optional; when present it decides role and tenant membership.
type RegisterParams struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	InvitationToken string
}

type StoreInterface interface {
	CreateAccount(ctx context.Context, a *types.Account) (*types.Account, error)
	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*types.Account, error)
	StampLogin(ctx context.Context, accountID string, at time.Time) error
	BumpTokenGeneration(ctx context.Context, accountID string) error
	GetInvitationByToken(ctx context.Context, token string) (*types.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id string) error
	ConsumeSeat(ctx context.Context, tenantID string) error
}

type TokenManagerInterface interface {
	IssueTokenPair(a *types.Account) (*token.Pair, error)
	Verify(raw string, kind token.Kind) (*token.Claims, error)
}

type HasherInterface interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
