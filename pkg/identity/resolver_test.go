// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
)

//go:generate mockgen -build_flags=--mod=mod -package identity -destination ./mock_interfaces.go -source=./interfaces.go

func newTestResolver(store StoreInterface) *Resolver {
	r := NewResolver(store, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func googleProfile() types.ExternalProfile {
	return types.ExternalProfile{
		Provider:      types.ProviderGoogle,
		ExternalID:    "google-sub-1",
		Email:         "jo@example.com",
		Name:          "Jo Smith",
		AvatarURL:     "https://lh3.example.com/photo",
		EmailVerified: true,
	}
}

func TestResolveRejectsProfileWithoutEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := newTestResolver(NewMockStoreInterface(ctrl))

	profile := googleProfile()
	profile.Email = ""

	_, err := resolver.Resolve(context.Background(), profile)
	if !errors.Is(err, types.ErrMissingAttribute) {
		t.Errorf("expected ErrMissingAttribute, got %v", err)
	}
}

func TestResolveReturnsLinkedAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	existing := &types.Account{ID: "acc-1", Email: "jo@example.com", Role: types.RoleUser, Active: true}

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(existing, nil)
	store.EXPECT().StampLogin(gomock.Any(), "acc-1", gomock.Any()).Return(nil)

	resolver := newTestResolver(store)

	account, err := resolver.Resolve(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if account.ID != "acc-1" {
		t.Errorf("expected acc-1, got %q", account.ID)
	}
}

func TestResolveRejectsDeactivatedAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	existing := &types.Account{ID: "acc-1", Email: "jo@example.com", Role: types.RoleUser, Active: false}

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(existing, nil)

	resolver := newTestResolver(store)

	_, err := resolver.Resolve(context.Background(), googleProfile())
	if !errors.Is(err, types.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestResolveLinksAccountByEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	existing := &types.Account{ID: "acc-1", Email: "jo@example.com", Role: types.RoleCompanyAdmin, Active: true}

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetAccountByEmail(gomock.Any(), "jo@example.com").Return(existing, nil)
	store.EXPECT().LinkExternalID(gomock.Any(), "acc-1", types.ProviderGoogle, "google-sub-1").Return(nil)
	store.EXPECT().StampLogin(gomock.Any(), "acc-1", gomock.Any()).Return(nil)

	resolver := newTestResolver(store)

	account, err := resolver.Resolve(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if account.Role != types.RoleCompanyAdmin {
		t.Errorf("linking must not touch the existing role, got %q", account.Role)
	}
}

func TestResolveLinksAccountRegardlessOfEmailCase(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	existing := &types.Account{ID: "acc-1", Email: "jo@example.com", Role: types.RoleUser, Active: true}

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetAccountByEmail(gomock.Any(), "jo@example.com").Return(existing, nil)
	store.EXPECT().LinkExternalID(gomock.Any(), "acc-1", types.ProviderGoogle, "google-sub-1").Return(nil)
	store.EXPECT().StampLogin(gomock.Any(), "acc-1", gomock.Any()).Return(nil)

	resolver := newTestResolver(store)

	profile := googleProfile()
	profile.Email = "Jo@Example.COM"

	account, err := resolver.Resolve(context.Background(), profile)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if account.ID != "acc-1" {
		t.Errorf("a differently cased address must link, not duplicate, got %q", account.ID)
	}
}

func TestResolveCreatesAccountWithLowerCasedEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetAccountByEmail(gomock.Any(), "jo@example.com").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetLatestPendingInvitationByEmail(gomock.Any(), "jo@example.com", gomock.Any()).Return(nil, storage.ErrNotFound)
	store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *types.Account) (*types.Account, error) {
			if a.Email != "jo@example.com" {
				t.Errorf("expected lower-cased email, got %q", a.Email)
			}
			created := *a
			created.ID = "acc-new"
			return &created, nil
		})
	store.EXPECT().StampLogin(gomock.Any(), "acc-new", gomock.Any()).Return(nil)

	resolver := newTestResolver(store)

	profile := googleProfile()
	profile.Email = "Jo@Example.COM"

	if _, err := resolver.Resolve(context.Background(), profile); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
}

func TestResolveCreatesAccountFromInvitation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	invitation := &types.Invitation{
		ID:       "inv-1",
		Email:    "jo@example.com",
		TenantID: "tenant-1",
		Role:     types.RoleCompanyAdmin,
		Status:   types.InvitationPending,
	}

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetAccountByEmail(gomock.Any(), "jo@example.com").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetLatestPendingInvitationByEmail(gomock.Any(), "jo@example.com", gomock.Any()).Return(invitation, nil)
	store.EXPECT().ConsumeSeat(gomock.Any(), "tenant-1").Return(nil)
	store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *types.Account) (*types.Account, error) {
			if a.Role != types.RoleCompanyAdmin {
				t.Errorf("expected invited role, got %q", a.Role)
			}
			if a.TenantID == nil || *a.TenantID != "tenant-1" {
				t.Error("expected tenant membership from invitation")
			}
			if !a.EmailVerified {
				t.Error("provider-verified email must be marked verified")
			}
			if a.FirstName != "Jo" || a.LastName != "Smith" {
				t.Errorf("unexpected name split: %q %q", a.FirstName, a.LastName)
			}
			if a.GoogleID == nil || *a.GoogleID != "google-sub-1" {
				t.Error("expected google id to be linked on creation")
			}
			created := *a
			created.ID = "acc-new"
			return &created, nil
		})
	store.EXPECT().MarkInvitationAccepted(gomock.Any(), "inv-1").Return(nil)
	store.EXPECT().StampLogin(gomock.Any(), "acc-new", gomock.Any()).Return(nil)

	resolver := newTestResolver(store)

	account, err := resolver.Resolve(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if account.ID != "acc-new" {
		t.Errorf("expected acc-new, got %q", account.ID)
	}
}

func TestResolveCreatesUnaffiliatedAccountWithoutInvitation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetAccountByEmail(gomock.Any(), "jo@example.com").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetLatestPendingInvitationByEmail(gomock.Any(), "jo@example.com", gomock.Any()).Return(nil, storage.ErrNotFound)
	store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *types.Account) (*types.Account, error) {
			if a.Role != types.RoleUser {
				t.Errorf("expected default role user, got %q", a.Role)
			}
			if a.TenantID != nil {
				t.Error("expected no tenant membership")
			}
			created := *a
			created.ID = "acc-new"
			return &created, nil
		})
	store.EXPECT().StampLogin(gomock.Any(), "acc-new", gomock.Any()).Return(nil)

	resolver := newTestResolver(store)

	if _, err := resolver.Resolve(context.Background(), googleProfile()); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
}

func TestResolveInvitationWithExhaustedSeats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	invitation := &types.Invitation{ID: "inv-1", Email: "jo@example.com", TenantID: "tenant-1", Role: types.RoleUser}

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetAccountByExternalID(gomock.Any(), types.ProviderGoogle, "google-sub-1").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetAccountByEmail(gomock.Any(), "jo@example.com").Return(nil, storage.ErrNotFound)
	store.EXPECT().GetLatestPendingInvitationByEmail(gomock.Any(), "jo@example.com", gomock.Any()).Return(invitation, nil)
	store.EXPECT().ConsumeSeat(gomock.Any(), "tenant-1").Return(storage.ErrSeatsExhausted)
	store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *types.Account) (*types.Account, error) {
			if a.TenantID != nil {
				t.Error("seatless invitation must not grant membership")
			}
			created := *a
			created.ID = "acc-new"
			return &created, nil
		})
	store.EXPECT().StampLogin(gomock.Any(), "acc-new", gomock.Any()).Return(nil)

	resolver := newTestResolver(store)

	if _, err := resolver.Resolve(context.Background(), googleProfile()); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		first string
		last  string
	}{
		{"empty", "", "", ""},
		{"single", "Cher", "Cher", ""},
		{"two parts", "Jo Smith", "Jo", "Smith"},
		{"three parts", "Jo van Smith", "Jo", "van Smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := splitName(tt.in)
			if first != tt.first || last != tt.last {
				t.Errorf("expected %q/%q, got %q/%q", tt.first, tt.last, first, last)
			}
		})
	}
}
