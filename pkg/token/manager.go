// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package token

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teamtrait/identity-service/internal/types"
)

// Kind selects which signing secret and claim set a token carries.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the signed claim set. Access tokens carry role and tenant;
// refresh tokens carry only the account id and generation, forcing a fresh
// account-state lookup on every refresh.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	// Generation is compared against the account's stored token generation
	// at refresh time; a mismatch invalidates the token early.
	Generation int `json:"generation"`
}

// Pair is an access/refresh token pair as returned by login and refresh.
type Pair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Manager mints and verifies the two token kinds. Verification is pure
// computation; no server-side state is consulted or kept.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string

	now func() time.Time
}

// NewManager builds a Manager. The two secrets must be non-empty and
// distinct per token kind.
func NewManager(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration, issuer string) (*Manager, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if subtle.ConstantTimeCompare(accessSecret, refreshSecret) == 1 {
		return nil, errors.New("access and refresh token secrets must be distinct")
	}

	return &Manager{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
		now:           time.Now,
	}, nil
}

// IssueAccessToken encodes account id, role, tenant id, and a short expiry.
func (m *Manager) IssueAccessToken(a *types.Account) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.accessTTL)

	tenantID := ""
	if a.TenantID != nil {
		tenantID = *a.TenantID
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:       a.Role.String(),
		TenantID:   tenantID,
		Generation: a.TokenGeneration,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// IssueRefreshToken encodes only the account id and generation with a long
// expiry.
func (m *Manager) IssueRefreshToken(a *types.Account) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.refreshTTL)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Generation: a.TokenGeneration,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signed, expiresAt, nil
}

// IssueTokenPair mints an access and a refresh token for the account.
func (m *Manager) IssueTokenPair(a *types.Account) (*Pair, error) {
	access, expiresAt, err := m.IssueAccessToken(a)
	if err != nil {
		return nil, err
	}

	refresh, _, err := m.IssueRefreshToken(a)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// Verify checks signature and expiry against the secret matching kind. An
// expired but well-signed token fails with types.ErrTokenExpired so callers
// can offer a refresh; anything else fails with types.ErrUnauthenticated.
func (m *Manager) Verify(raw string, kind Kind) (*Claims, error) {
	secret := m.accessSecret
	if kind == KindRefresh {
		secret = m.refreshSecret
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s token expired: %w", kind, types.ErrTokenExpired)
		}
		return nil, fmt.Errorf("invalid %s token: %w", kind, types.ErrUnauthenticated)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid %s token claims: %w", kind, types.ErrUnauthenticated)
	}

	return claims, nil
}
