// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"time"
)

// SubscriptionState is the billing state of a tenant.
type SubscriptionState string

const (
	SubscriptionActive    SubscriptionState = "active"
	SubscriptionTrial     SubscriptionState = "trial"
	SubscriptionSuspended SubscriptionState = "suspended"
	SubscriptionInactive  SubscriptionState = "inactive"
)

// InvitationStatus is the stored, write-driven status of an invitation.
// Expiry is never written; it is computed at read time against ExpiresAt.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	// InvitationExpired is a derived status only, never stored.
	InvitationExpired InvitationStatus = "expired"
)

// Provider identifies an external identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

type Account struct {
	ID            string  `db:"id"`
	Email         string  `db:"email"`
	PasswordHash  *string `db:"password_hash"`
	GoogleID      *string `db:"google_id"`
	GitHubID      *string `db:"github_id"`
	FirstName     string  `db:"first_name"`
	LastName      string  `db:"last_name"`
	AvatarURL     *string `db:"avatar_url"`
	Role          Role    `db:"role"`
	TenantID      *string `db:"tenant_id"`
	Active        bool    `db:"active"`
	EmailVerified bool    `db:"email_verified"`
	// TokenGeneration is compared against the generation claim carried by
	// refresh tokens; bumping it invalidates all outstanding refresh tokens
	// without a server-side session store.
	TokenGeneration int        `db:"token_generation"`
	LastLoginAt     *time.Time `db:"last_login_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// ExternalID returns the account's identity reference for the given provider.
func (a *Account) ExternalID(p Provider) *string {
	switch p {
	case ProviderGoogle:
		return a.GoogleID
	case ProviderGitHub:
		return a.GitHubID
	}
	return nil
}

type Tenant struct {
	ID             string            `db:"id"`
	Name           string            `db:"name"`
	Slug           string            `db:"slug"`
	PurchasedSeats int               `db:"purchased_seats"`
	ConsumedSeats  int               `db:"consumed_seats"`
	Subscription   SubscriptionState `db:"subscription_state"`
	CreatedAt      time.Time         `db:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"`
}

type Invitation struct {
	ID        string           `db:"id"`
	Email     string           `db:"email"`
	TenantID  string           `db:"tenant_id"`
	InviterID string           `db:"inviter_id"`
	Role      Role             `db:"role"`
	Token     string           `db:"token"`
	Status    InvitationStatus `db:"status"`
	ExpiresAt time.Time        `db:"expires_at"`
	CreatedAt time.Time        `db:"created_at"`
}

// Expired reports whether the invitation's expiry has passed at now.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EffectiveStatus is the status as seen by readers: a pending row past its
// expiry counts as expired without ever being rewritten.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.Expired(now) {
		return InvitationExpired
	}
	return i.Status
}

type AuditEntry struct {
	ID         string          `db:"id"`
	ActorID    *string         `db:"actor_id"`
	TenantID   *string         `db:"tenant_id"`
	Action     string          `db:"action"`
	EntityType string          `db:"entity_type"`
	EntityID   string          `db:"entity_id"`
	Before     json.RawMessage `db:"before"`
	After      json.RawMessage `db:"after"`
	RemoteAddr string          `db:"remote_addr"`
	UserAgent  string          `db:"user_agent"`
	CreatedAt  time.Time       `db:"created_at"`
}

// ExternalProfile is the normalized profile an identity provider hands back
// after authenticating the user.
type ExternalProfile struct {
	Provider      Provider
	ExternalID    string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}
