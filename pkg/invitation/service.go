// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package invitation manages the lifecycle of tenant invitations: issuance
// by admins, public description by token, revocation, and expiry.
package invitation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
)

const tokenBytes = 32

type Service struct {
	storage  StoreInterface
	mailer   MailerInterface
	lifetime time.Duration
	baseURL  string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface

	now func() time.Time
}

// Create issues a pending invitation after checking, in order, that no
// active account with the email already belongs to the tenant, that the
// tenant has a free seat, and that no live pending invitation exists for
// the same pair. The last check is enforced atomically by the insert. The
// returned flag reports whether the notification mail went out, a failed
// delivery never voids the invitation itself.
func (s *Service) Create(ctx context.Context, tenantID, inviterID, email string, role types.Role) (*types.Invitation, bool, error) {
	ctx, span := s.tracer.Start(ctx, "invitation.Service.Create")
	defer span.End()

	if !role.Grantable() {
		return nil, false, fmt.Errorf("role %q cannot be granted by invitation: %w", role, types.ErrValidation)
	}

	// Addresses are stored and compared lower-cased.
	email = strings.ToLower(email)

	exists, err := s.storage.ActiveAccountExistsInTenant(ctx, email, tenantID)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, fmt.Errorf("account %s is already a member: %w", email, types.ErrConflict)
	}

	tenant, err := s.storage.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	if tenant.ConsumedSeats >= tenant.PurchasedSeats {
		return nil, false, fmt.Errorf("tenant %s has no free seats: %w", tenantID, types.ErrQuotaExceeded)
	}

	token, err := newToken()
	if err != nil {
		return nil, false, err
	}

	created, err := s.storage.CreateInvitation(ctx, &types.Invitation{
		Email:     email,
		TenantID:  tenantID,
		InviterID: inviterID,
		Role:      role,
		Token:     token,
		ExpiresAt: s.now().Add(s.lifetime),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, false, fmt.Errorf("a pending invitation for %s already exists: %w", email, types.ErrConflict)
		}
		return nil, false, err
	}

	// Delivery is best effort, the invitation row stands either way.
	return created, s.deliver(ctx, created, tenant, inviterID), nil
}

func (s *Service) deliver(ctx context.Context, inv *types.Invitation, tenant *types.Tenant, inviterID string) bool {
	inviterName := ""
	if inviter, err := s.storage.GetAccountByID(ctx, inviterID); err == nil {
		inviterName = inviter.FirstName + " " + inviter.LastName
	}

	link := s.baseURL + "/invitations/" + inv.Token
	if err := s.mailer.SendInvitation(ctx, inv.Email, tenant.Name, inviterName, link); err != nil {
		s.logger.Errorf("failed to deliver invitation %s to %s: %v", inv.ID, inv.Email, err)
		return false
	}
	return true
}

// Revoke cancels a pending invitation. A non-empty scope confines the
// caller to invitations of that tenant; mismatches surface as not found so
// foreign ids cannot be probed.
func (s *Service) Revoke(ctx context.Context, scope, id string) error {
	ctx, span := s.tracer.Start(ctx, "invitation.Service.Revoke")
	defer span.End()

	inv, err := s.storage.GetInvitationByID(ctx, id)
	if err != nil {
		return err
	}
	if scope != "" && inv.TenantID != scope {
		return storage.ErrNotFound
	}
	if inv.EffectiveStatus(s.now()) != types.InvitationPending {
		return fmt.Errorf("invitation %s is not pending: %w", id, storage.ErrNotFound)
	}

	return s.storage.MarkInvitationRevoked(ctx, id)
}

// Describe resolves a token for the public acceptance page. Accepted and
// revoked invitations are indistinguishable from unknown tokens; expired
// ones get their own error so the page can offer to request a new invite.
func (s *Service) Describe(ctx context.Context, token string) (*PublicInvitation, error) {
	ctx, span := s.tracer.Start(ctx, "invitation.Service.Describe")
	defer span.End()

	inv, err := s.storage.GetInvitationByToken(ctx, token)
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

	tenant, err := s.storage.GetTenantByID(ctx, inv.TenantID)
	if err != nil {
		return nil, err
	}

	// Inviter display name is best effort; the inviter may have been removed.
	inviterName := ""
	if inviter, err := s.storage.GetAccountByID(ctx, inv.InviterID); err == nil {
		inviterName = inviter.FirstName + " " + inviter.LastName
	}

	return &PublicInvitation{
		Email:       inv.Email,
		TenantName:  tenant.Name,
		InviterName: inviterName,
		Role:        inv.Role,
		ExpiresAt:   inv.ExpiresAt,
	}, nil
}

// List returns a tenant's invitations with expiry folded into the status.
func (s *Service) List(ctx context.Context, tenantID string) ([]*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "invitation.Service.List")
	defer span.End()

	invitations, err := s.storage.ListInvitationsByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, inv := range invitations {
		inv.Status = inv.EffectiveStatus(now)
	}
	return invitations, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func NewService(
	storage StoreInterface,
	mailer MailerInterface,
	lifetime time.Duration,
	baseURL string,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage:  storage,
		mailer:   mailer,
		lifetime: lifetime,
		baseURL:  baseURL,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
		now:      time.Now,
	}
}
