// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/teamtrait/identity-service/internal/types"
)

// Hasher wraps bcrypt with the service's chosen cost.
type Hasher struct {
	cost int
}

func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare reports a mismatch as the generic unauthenticated sentinel so
// callers never leak whether the account exists.
func (h *Hasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return types.ErrUnauthenticated
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}
	return nil
}

func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}
