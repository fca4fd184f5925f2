// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package mailer

import (
	"context"

	"github.com/teamtrait/identity-service/internal/logging"
)

// NoopClient logs instead of delivering, used when no notifier is configured.
type NoopClient struct {
	logger logging.LoggerInterface
}

func (c *NoopClient) SendInvitation(ctx context.Context, email, tenantName, inviterName, link string) error {
	c.logger.Infof("mailer disabled, skipping invitation email to %s for tenant %q", email, tenantName)
	return nil
}

func NewNoopClient(logger logging.LoggerInterface) *NoopClient {
	return &NoopClient{logger: logger}
}
