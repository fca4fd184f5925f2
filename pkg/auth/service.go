// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package auth implements credential authentication: password registration
// and login, the stateless token pair lifecycle, and the OAuth code flow
// front door.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/identity"
	"github.com/teamtrait/identity-service/pkg/token"
)

type Service struct {
	storage   StoreInterface
	tokens    TokenManagerInterface
	hasher    HasherInterface
	resolver  identity.ResolverInterface
	providers map[types.Provider]identity.ProviderInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface

	now func() time.Time
}

// Register creates a password account. An invitation token, when given,
// decides role and tenant and is consumed atomically with the seat.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*types.Account, *token.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Service.Register")
	defer span.End()

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, nil, err
	}

	account := &types.Account{
		Email:        strings.ToLower(p.Email),
		PasswordHash: &hash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Role:         types.RoleUser,
		Active:       true,
	}

	var invitationID string
	if p.InvitationToken != "" {
		inv, err := s.redeemInvitation(ctx, p.InvitationToken, account.Email)
		if err != nil {
			return nil, nil, err
		}
		account.Role = inv.Role
		tid := inv.TenantID
		account.TenantID = &tid
		// Joining through an invitation proves control of the invited
		// address.
		account.EmailVerified = true
		invitationID = inv.ID
	}

	created, err := s.storage.CreateAccount(ctx, account)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil, fmt.Errorf("account already exists: %w", types.ErrConflict)
		}
		return nil, nil, err
	}

	if invitationID != "" {
		if err := s.storage.MarkInvitationAccepted(ctx, invitationID); err != nil {
			s.logger.Errorf("failed to mark invitation %s accepted: %v", invitationID, err)
		}
	}

	if err := s.storage.StampLogin(ctx, created.ID, s.now()); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.IssueTokenPair(created)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Security().AuthnSuccess(created.ID)
	return created, pair, nil
}

// redeemInvitation validates the token, checks the address matches, and
// claims a seat. The seat claim is the conditional update that closes the
// overcommit race.
func (s *Service) redeemInvitation(ctx context.Context, rawToken, email string) (*types.Invitation, error) {
	inv, err := s.storage.GetInvitationByToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	switch inv.EffectiveStatus(s.now()) {
	case types.InvitationPending:
	case types.InvitationExpired:
		return nil, fmt.Errorf("invitation expired: %w", types.ErrExpired)
	default:
		return nil, storage.ErrNotFound
	}

	if !strings.EqualFold(inv.Email, email) {
		return nil, fmt.Errorf("invitation was issued to a different address: %w", types.ErrValidation)
	}

	if err := s.storage.ConsumeSeat(ctx, inv.TenantID); err != nil {
		if errors.Is(err, storage.ErrSeatsExhausted) {
			return nil, fmt.Errorf("tenant %s has no free seats: %w", inv.TenantID, types.ErrQuotaExceeded)
		}
		return nil, err
	}

	return inv, nil
}

// Login checks the password and mints a token pair. Unknown addresses,
// password-less accounts, and bad passwords all fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*types.Account, *token.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Service.Login")
	defer span.End()

	account, err := s.storage.GetAccountByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Security().AuthnFailure("", "login for unknown address")
			return nil, nil, types.ErrUnauthenticated
		}
		return nil, nil, err
	}

	if account.PasswordHash == nil {
		s.logger.Security().AuthnFailure(account.ID, "password login on external-only account")
		return nil, nil, types.ErrUnauthenticated
	}

	if err := s.hasher.Compare(*account.PasswordHash, password); err != nil {
		s.logger.Security().AuthnFailure(account.ID, "wrong password")
		return nil, nil, err
	}

	if !account.Active {
		s.logger.Security().AuthnFailure(account.ID, "login on deactivated account")
		return nil, nil, types.ErrUnauthenticated
	}

	if err := s.storage.StampLogin(ctx, account.ID, s.now()); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.IssueTokenPair(account)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Security().AuthnSuccess(account.ID)
	return account, pair, nil
}

// Refresh re-loads the account so role and tenant changes take effect and
// compares the generation claim, which invalidates tokens minted before
// the last logout.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Service.Refresh")
	defer span.End()

	claims, err := s.tokens.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, err
	}

	account, err := s.storage.GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrUnauthenticated
		}
		return nil, err
	}

	if !account.Active {
		s.logger.Security().AuthnFailure(account.ID, "refresh on deactivated account")
		return nil, types.ErrUnauthenticated
	}

	if claims.Generation != account.TokenGeneration {
		s.logger.Security().AuthnFailure(account.ID, "refresh with revoked generation")
		return nil, types.ErrUnauthenticated
	}

	return s.tokens.IssueTokenPair(account)
}

// Logout bumps the token generation, invalidating every outstanding
// refresh token. Access tokens ride out their short expiry.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	ctx, span := s.tracer.Start(ctx, "auth.Service.Logout")
	defer span.End()

	return s.storage.BumpTokenGeneration(ctx, accountID)
}

// LoginURL builds the provider consent redirect.
func (s *Service) LoginURL(provider types.Provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q: %w", provider, types.ErrNotFound)
	}
	return p.AuthCodeURL(state), nil
}

// Callback finishes the code flow: exchange, resolve to a local account,
// mint the pair.
func (s *Service) Callback(ctx context.Context, provider types.Provider, code string) (*types.Account, *token.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Service.Callback")
	defer span.End()

	p, ok := s.providers[provider]
	if !ok {
		return nil, nil, fmt.Errorf("unknown provider %q: %w", provider, types.ErrNotFound)
	}

	profile, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	account, err := s.resolver.Resolve(ctx, *profile)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.IssueTokenPair(account)
	if err != nil {
		return nil, nil, err
	}

	return account, pair, nil
}

func NewService(
	storage StoreInterface,
	tokens TokenManagerInterface,
	hasher HasherInterface,
	resolver identity.ResolverInterface,
	providers []identity.ProviderInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	byName := make(map[types.Provider]identity.ProviderInterface, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Service{
		storage:   storage,
		tokens:    tokens,
		hasher:    hasher,
		resolver:  resolver,
		providers: byName,
		tracer:    tracer,
		monitor:   monitor,
		logger:    logger,
		now:       time.Now,
	}
}
