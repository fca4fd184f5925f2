// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
)

//go:generate mockgen -build_flags=--mod=mod -package tenant -destination ./mock_interfaces.go -source=./interfaces.go

func newTestService(store StoreInterface) *Service {
	return NewService(store, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
}

func strptr(s string) *string { return &s }

func TestCreateTenant(t *testing.T) {
	t.Run("slugifies the name and starts on trial", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := NewMockStoreInterface(ctrl)
		store.EXPECT().CreateTenant(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *types.Tenant) (*types.Tenant, error) {
				if in.Slug != "acme-rockets-ltd" {
					t.Errorf("unexpected slug %q", in.Slug)
				}
				if in.Subscription != types.SubscriptionTrial {
					t.Errorf("expected trial subscription, got %q", in.Subscription)
				}
				created := *in
				created.ID = "tenant-1"
				return &created, nil
			})

		created, err := newTestService(store).Create(context.Background(), "  Acme Rockets, Ltd.  ", 25)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.ID != "tenant-1" || created.PurchasedSeats != 25 {
			t.Errorf("unexpected tenant: %+v", created)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, err := newTestService(NewMockStoreInterface(ctrl)).Create(context.Background(), "   ", 5)
		if !errors.Is(err, types.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects zero seats", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, err := newTestService(NewMockStoreInterface(ctrl)).Create(context.Background(), "Acme", 0)
		if !errors.Is(err, types.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestRenameKeepsSlug(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().GetTenantByID(gomock.Any(), "tenant-1").
		Return(&types.Tenant{ID: "tenant-1", Name: "Acme", Slug: "acme"}, nil)
	store.EXPECT().UpdateTenant(gomock.Any(), gomock.Any(), []string{"name"}).DoAndReturn(
		func(_ context.Context, in *types.Tenant, _ []string) error {
			if in.Name != "Acme Rockets" || in.Slug != "acme" {
				t.Errorf("unexpected update payload: %+v", in)
			}
			return nil
		})

	renamed, err := newTestService(store).Rename(context.Background(), "tenant-1", "Acme Rockets")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Slug != "acme" {
		t.Errorf("slug changed to %q", renamed.Slug)
	}
}

func TestUpdateLicense(t *testing.T) {
	t.Run("returns the refreshed tenant", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := NewMockStoreInterface(ctrl)
		store.EXPECT().UpdateTenantLicense(gomock.Any(), "tenant-1", 50).Return(nil)
		store.EXPECT().GetTenantByID(gomock.Any(), "tenant-1").
			Return(&types.Tenant{ID: "tenant-1", PurchasedSeats: 50, ConsumedSeats: 12}, nil)

		updated, err := newTestService(store).UpdateLicense(context.Background(), "tenant-1", 50)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.PurchasedSeats != 50 {
			t.Errorf("expected 50 seats, got %d", updated.PurchasedSeats)
		}
	})

	t.Run("surfaces a shrink below consumed seats", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := NewMockStoreInterface(ctrl)
		store.EXPECT().UpdateTenantLicense(gomock.Any(), "tenant-1", 3).Return(storage.ErrSeatsExhausted)

		_, err := newTestService(store).UpdateLicense(context.Background(), "tenant-1", 3)
		if !errors.Is(err, storage.ErrSeatsExhausted) {
			t.Errorf("expected seats exhausted, got %v", err)
		}
	})

	t.Run("rejects zero seats before touching storage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, err := newTestService(NewMockStoreInterface(ctrl)).UpdateLicense(context.Background(), "tenant-1", 0)
		if !errors.Is(err, types.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestSetSubscriptionState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStoreInterface(ctrl)
	store.EXPECT().SetSubscriptionState(gomock.Any(), "tenant-1", types.SubscriptionSuspended).Return(nil)

	svc := newTestService(store)
	if err := svc.SetSubscriptionState(context.Background(), "tenant-1", types.SubscriptionSuspended); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := svc.SetSubscriptionState(context.Background(), "tenant-1", "cancelled"); !errors.Is(err, types.ErrValidation) {
		t.Errorf("expected validation error for unknown state, got %v", err)
	}
}

func TestUpdateMemberRole(t *testing.T) {
	member := &types.Account{ID: "acc-1", Role: types.RoleUser, TenantID: strptr("tenant-1"), Active: true}

	t.Run("promotes a member", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := NewMockStoreInterface(ctrl)
		store.EXPECT().GetAccountByID(gomock.Any(), "acc-1").Return(member, nil)
		store.EXPECT().UpdateAccountRole(gomock.Any(), "acc-1", types.RoleCompanyAdmin, member.TenantID).Return(nil)

		err := newTestService(store).UpdateMemberRole(context.Background(), "tenant-1", "acc-1", types.RoleCompanyAdmin)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
	})

	t.Run("super admin is not grantable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		err := newTestService(NewMockStoreInterface(ctrl)).
			UpdateMemberRole(context.Background(), "tenant-1", "acc-1", types.RoleSuperAdmin)
		if !errors.Is(err, types.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("foreign member reads as not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		outsider := &types.Account{ID: "acc-2", Role: types.RoleUser, TenantID: strptr("tenant-2"), Active: true}
		store := NewMockStoreInterface(ctrl)
		store.EXPECT().GetAccountByID(gomock.Any(), "acc-2").Return(outsider, nil)

		err := newTestService(store).UpdateMemberRole(context.Background(), "tenant-1", "acc-2", types.RoleUser)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestRemoveMember(t *testing.T) {
	t.Run("deactivates, revokes tokens, and frees the seat", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		member := &types.Account{ID: "acc-1", Role: types.RoleUser, TenantID: strptr("tenant-1"), Active: true}
		store := NewMockStoreInterface(ctrl)
		store.EXPECT().GetAccountByID(gomock.Any(), "acc-1").Return(member, nil)
		store.EXPECT().SetAccountActive(gomock.Any(), "acc-1", false).Return(nil)
		store.EXPECT().BumpTokenGeneration(gomock.Any(), "acc-1").Return(nil)
		store.EXPECT().ReleaseSeat(gomock.Any(), "tenant-1").Return(nil)

		if err := newTestService(store).RemoveMember(context.Background(), "tenant-1", "acc-1"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
	})

	t.Run("already removed member reads as not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		gone := &types.Account{ID: "acc-1", Role: types.RoleUser, TenantID: strptr("tenant-1"), Active: false}
		store := NewMockStoreInterface(ctrl)
		store.EXPECT().GetAccountByID(gomock.Any(), "acc-1").Return(gone, nil)

		err := newTestService(store).RemoveMember(context.Background(), "tenant-1", "acc-1")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Acme", "acme"},
		{"Acme Rockets, Ltd.", "acme-rockets-ltd"},
		{"  spaced   out  ", "spaced-out"},
		{"Ünïcode Näme", "ünïcode-näme"},
		{"trailing!!!", "trailing"},
	}

	for _, c := range cases {
		if got := slugify(c.in); got != c.want {
			t.Errorf("slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
