// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/token"
)

type TokenVerifierInterface interface {
	// Verify checks a raw token of the given kind, distinguishing expired
	// from invalid credentials.
	Verify(raw string, kind token.Kind) (*token.Claims, error)
}

type AccountLoaderInterface interface {
	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
}
