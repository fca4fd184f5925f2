// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package identity maps external identities (Google, GitHub) onto local
// accounts. Resolution is idempotent, logging in twice with the same
// external identity always lands on the same account.
package identity

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
)

type Resolver struct {
	store StoreInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface

	now func() time.Time
}

// Resolve finds or creates the account behind an external profile:
//  1. an account already linked to the external id wins;
//  2. an account with the same email gets the external id linked;
//  3. otherwise a new account is created, with role and tenant taken from
//     the most recent live invitation for the email, if any.
func (r *Resolver) Resolve(ctx context.Context, profile types.ExternalProfile) (*types.Account, error) {
	ctx, span := r.tracer.Start(ctx, "identity.Resolver.Resolve")
	defer span.End()

	if profile.Email == "" {
		return nil, fmt.Errorf("%s profile has no email: %w", profile.Provider, types.ErrMissingAttribute)
	}

	// The address is the linking key, stored and compared lower-cased.
	profile.Email = strings.ToLower(profile.Email)

	account, err := r.store.GetAccountByExternalID(ctx, profile.Provider, profile.ExternalID)
	if err == nil {
		return r.admit(ctx, account)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	account, err = r.store.GetAccountByEmail(ctx, profile.Email)
	if err == nil {
		if err := r.store.LinkExternalID(ctx, account.ID, profile.Provider, profile.ExternalID); err != nil {
			return nil, err
		}
		return r.admit(ctx, account)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return r.create(ctx, profile)
}

// admit stamps the login and rejects deactivated accounts.
func (r *Resolver) admit(ctx context.Context, account *types.Account) (*types.Account, error) {
	if !account.Active {
		r.logger.Security().AuthnFailure(account.ID, "external login on deactivated account")
		return nil, types.ErrUnauthenticated
	}
	if err := r.store.StampLogin(ctx, account.ID, r.now()); err != nil {
		return nil, err
	}
	r.logger.Security().AuthnSuccess(account.ID)
	return account, nil
}

func (r *Resolver) create(ctx context.Context, profile types.ExternalProfile) (*types.Account, error) {
	role := types.RoleUser
	var tenantID *string
	var invitationID string

	invitation, err := r.store.GetLatestPendingInvitationByEmail(ctx, profile.Email, r.now())
	switch {
	case err == nil:
		// The invitation decides membership, but only if the tenant still
		// has a seat.
		if seatErr := r.store.ConsumeSeat(ctx, invitation.TenantID); seatErr != nil {
			if !errors.Is(seatErr, storage.ErrSeatsExhausted) {
				return nil, seatErr
			}
			r.logger.Warnf("invitation %s unusable, tenant %s has no free seats", invitation.ID, invitation.TenantID)
		} else {
			role = invitation.Role
			tid := invitation.TenantID
			tenantID = &tid
			invitationID = invitation.ID
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, err
	}

	first, last := splitName(profile.Name)
	account := &types.Account{
		Email:     profile.Email,
		FirstName: first,
		LastName:  last,
		Role:      role,
		TenantID:  tenantID,
		Active:    true,
		// The provider already verified ownership of the address.
		EmailVerified: true,
	}
	if profile.AvatarURL != "" {
		avatar := profile.AvatarURL
		account.AvatarURL = &avatar
	}
	switch profile.Provider {
	case types.ProviderGoogle:
		account.GoogleID = &profile.ExternalID
	case types.ProviderGitHub:
		account.GitHubID = &profile.ExternalID
	}

	created, err := r.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	if invitationID != "" {
		if err := r.store.MarkInvitationAccepted(ctx, invitationID); err != nil {
			// The account exists and the seat is held, losing the status
			// flip is recoverable.
			r.logger.Errorf("failed to mark invitation %s accepted: %v", invitationID, err)
		}
	}

	if err := r.store.StampLogin(ctx, created.ID, r.now()); err != nil {
		return nil, err
	}
	r.logger.Security().AuthnSuccess(created.ID)
	return created, nil
}

// splitName is a best-effort split of a display name into first and last.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	first, last, found := strings.Cut(name, " ")
	if !found {
		return name, ""
	}
	return first, strings.TrimSpace(last)
}

func NewResolver(store StoreInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Resolver {
	return &Resolver{
		store:   store,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
		now:     time.Now,
	}
}
