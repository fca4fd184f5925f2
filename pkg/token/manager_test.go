// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package token

import (
	"errors"
	"testing"
	"time"

	"github.com/teamtrait/identity-service/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(
		[]byte("access-secret-for-tests"),
		[]byte("refresh-secret-for-tests"),
		15*time.Minute,
		7*24*time.Hour,
		"teamtrait-identity",
	)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

func strptr(s string) *string { return &s }

func TestNewManagerRejectsSharedSecret(t *testing.T) {
	_, err := NewManager([]byte("same"), []byte("same"), time.Minute, time.Hour, "iss")
	if err == nil {
		t.Fatal("expected error for identical secrets")
	}

	_, err = NewManager(nil, []byte("refresh"), time.Minute, time.Hour, "iss")
	if err == nil {
		t.Fatal("expected error for empty access secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		account  *types.Account
		wantRole string
		wantTid  string
	}{
		{
			name:     "user with tenant",
			account:  &types.Account{ID: "acc-1", Role: types.RoleUser, TenantID: strptr("tenant-1")},
			wantRole: "user",
			wantTid:  "tenant-1",
		},
		{
			name:     "company admin with tenant",
			account:  &types.Account{ID: "acc-2", Role: types.RoleCompanyAdmin, TenantID: strptr("tenant-2")},
			wantRole: "company_admin",
			wantTid:  "tenant-2",
		},
		{
			name:     "super admin without tenant",
			account:  &types.Account{ID: "acc-3", Role: types.RoleSuperAdmin},
			wantRole: "super_admin",
			wantTid:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t)

			raw, _, err := m.IssueAccessToken(tc.account)
			if err != nil {
				t.Fatalf("issue failed: %v", err)
			}

			claims, err := m.Verify(raw, KindAccess)
			if err != nil {
				t.Fatalf("verify failed: %v", err)
			}

			if claims.Subject != tc.account.ID {
				t.Errorf("expected subject %q, got %q", tc.account.ID, claims.Subject)
			}
			if claims.Role != tc.wantRole {
				t.Errorf("expected role %q, got %q", tc.wantRole, claims.Role)
			}
			if claims.TenantID != tc.wantTid {
				t.Errorf("expected tenant %q, got %q", tc.wantTid, claims.TenantID)
			}
		})
	}
}

func TestExpiredAccessTokenIsDistinguished(t *testing.T) {
	m := newTestManager(t)

	account := &types.Account{ID: "acc-1", Role: types.RoleUser, TenantID: strptr("tenant-1")}
	raw, _, err := m.IssueAccessToken(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Move the clock past the access TTL.
	m.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, err = m.Verify(raw, KindAccess)
	if !errors.Is(err, types.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
	if errors.Is(err, types.ErrUnauthenticated) {
		t.Error("expired token must not map to the generic invalid variant")
	}
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	m := newTestManager(t)

	account := &types.Account{ID: "acc-1", Role: types.RoleUser}

	refresh, _, err := m.IssueRefreshToken(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// A refresh token presented as an access token fails signature
	// verification against the access secret.
	if _, err := m.Verify(refresh, KindAccess); !errors.Is(err, types.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Verify("not-a-token", KindAccess); !errors.Is(err, types.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRefreshTokenCarriesMinimalClaims(t *testing.T) {
	m := newTestManager(t)

	account := &types.Account{ID: "acc-1", Role: types.RoleCompanyAdmin, TenantID: strptr("tenant-1"), TokenGeneration: 3}

	raw, _, err := m.IssueRefreshToken(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := m.Verify(raw, KindRefresh)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if claims.Subject != "acc-1" {
		t.Errorf("expected subject acc-1, got %q", claims.Subject)
	}
	if claims.Role != "" || claims.TenantID != "" {
		t.Errorf("refresh token must not carry role or tenant, got %q/%q", claims.Role, claims.TenantID)
	}
	if claims.Generation != 3 {
		t.Errorf("expected generation 3, got %d", claims.Generation)
	}
}

func TestIssueTokenPair(t *testing.T) {
	m := newTestManager(t)

	pair, err := m.IssueTokenPair(&types.Account{ID: "acc-1", Role: types.RoleUser})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be minted")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
}
