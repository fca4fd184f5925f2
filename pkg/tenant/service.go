// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package tenant manages tenant organizations, their seat licenses and
// subscription state, and membership administration.
package tenant

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
)

type Service struct {
	storage StoreInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Create provisions a tenant with the given seat license. New tenants start
// on a trial subscription until billing flips them active.
func (s *Service) Create(ctx context.Context, name string, purchasedSeats int) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.Create")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tenant name is required: %w", types.ErrValidation)
	}
	if purchasedSeats < 1 {
		return nil, fmt.Errorf("purchased seats must be at least 1: %w", types.ErrValidation)
	}

	created, err := s.storage.CreateTenant(ctx, &types.Tenant{
		Name:           name,
		Slug:           slugify(name),
		PurchasedSeats: purchasedSeats,
		Subscription:   types.SubscriptionTrial,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("created tenant %s (%s) with %d seats", created.ID, created.Slug, purchasedSeats)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.Get")
	defer span.End()

	return s.storage.GetTenantByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.List")
	defer span.End()

	return s.storage.ListTenants(ctx)
}

// Rename changes the display name. The slug is a stable identifier and is
// deliberately left untouched.
func (s *Service) Rename(ctx context.Context, id, name string) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.Rename")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tenant name is required: %w", types.ErrValidation)
	}

	tenant, err := s.storage.GetTenantByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tenant.Name = name
	if err := s.storage.UpdateTenant(ctx, tenant, []string{"name"}); err != nil {
		return nil, err
	}

	return tenant, nil
}

// UpdateLicense adjusts the purchased seat count. Shrinking below the
// currently consumed seats is refused by the storage predicate.
func (s *Service) UpdateLicense(ctx context.Context, id string, purchasedSeats int) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.UpdateLicense")
	defer span.End()

	if purchasedSeats < 1 {
		return nil, fmt.Errorf("purchased seats must be at least 1: %w", types.ErrValidation)
	}

	if err := s.storage.UpdateTenantLicense(ctx, id, purchasedSeats); err != nil {
		return nil, err
	}

	return s.storage.GetTenantByID(ctx, id)
}

func (s *Service) SetSubscriptionState(ctx context.Context, id string, state types.SubscriptionState) error {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.SetSubscriptionState")
	defer span.End()

	switch state {
	case types.SubscriptionActive, types.SubscriptionTrial, types.SubscriptionSuspended, types.SubscriptionInactive:
	default:
		return fmt.Errorf("unknown subscription state %q: %w", state, types.ErrValidation)
	}

	return s.storage.SetSubscriptionState(ctx, id, state)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.Delete")
	defer span.End()

	if err := s.storage.DeleteTenant(ctx, id); err != nil {
		return err
	}

	s.logger.Infof("deleted tenant %s", id)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, tenantID string) ([]*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.ListMembers")
	defer span.End()

	return s.storage.ListAccountsByTenantID(ctx, tenantID)
}

// UpdateMemberRole changes a member's role within the tenant. Only grantable
// roles apply; super admin cannot be conferred through membership admin.
func (s *Service) UpdateMemberRole(ctx context.Context, tenantID, accountID string, role types.Role) error {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.UpdateMemberRole")
	defer span.End()

	if !role.Grantable() {
		return fmt.Errorf("role %q cannot be granted: %w", role, types.ErrValidation)
	}

	account, err := s.memberOf(ctx, tenantID, accountID)
	if err != nil {
		return err
	}

	return s.storage.UpdateAccountRole(ctx, account.ID, role, account.TenantID)
}

// RemoveMember deactivates the account, revokes its outstanding refresh
// tokens, and releases the seat it held.
func (s *Service) RemoveMember(ctx context.Context, tenantID, accountID string) error {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.RemoveMember")
	defer span.End()

	account, err := s.memberOf(ctx, tenantID, accountID)
	if err != nil {
		return err
	}

	if err := s.storage.SetAccountActive(ctx, account.ID, false); err != nil {
		return err
	}
	if err := s.storage.BumpTokenGeneration(ctx, account.ID); err != nil {
		return err
	}
	if err := s.storage.ReleaseSeat(ctx, tenantID); err != nil {
		return err
	}

	s.logger.Infof("removed account %s from tenant %s", accountID, tenantID)
	return nil
}

// memberOf loads the account and confirms it is an active member of the
// tenant. Accounts outside the tenant read as not found so foreign ids
// cannot be probed.
func (s *Service) memberOf(ctx context.Context, tenantID, accountID string) (*types.Account, error) {
	account, err := s.storage.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.Active || account.TenantID == nil || *account.TenantID != tenantID {
		return nil, storage.ErrNotFound
	}
	return account, nil
}

// slugify derives a URL-safe identifier from the tenant name.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func NewService(
	storage StoreInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage: storage,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
